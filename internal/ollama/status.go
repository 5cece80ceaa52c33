package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Status reports whether the Ollama endpoint is reachable and which models
// it has pulled.
type Status struct {
	Status              string   `json:"status"`
	Message             string   `json:"message"`
	ModelsAvailable     []string `json:"models_available"`
	AnalysisModel       string   `json:"analysis_model,omitempty"`
	EmbeddingModel      string   `json:"embedding_model,omitempty"`
	AnalysisModelReady  bool     `json:"analysis_model_ready"`
	EmbeddingModelReady bool     `json:"embedding_model_ready"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// GetStatus probes the /api/tags endpoint with a short timeout. It never
// returns an error: an unreachable backend is reported as offline status.
func (c *Client) GetStatus(ctx context.Context) *Status {
	tags, err := c.listTags(ctx)
	if err != nil {
		return &Status{
			Status:          "offline",
			Message:         "Ollama is not running. Start with: ollama serve",
			ModelsAvailable: []string{},
		}
	}

	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}

	return &Status{
		Status:              "online",
		Message:             "Ollama is running",
		ModelsAvailable:     names,
		AnalysisModel:       c.model,
		EmbeddingModel:      c.embeddingModel,
		AnalysisModelReady:  modelReady(names, c.model),
		EmbeddingModelReady: modelReady(names, c.embeddingModel),
	}
}

// Ping is a lightweight liveness check against /api/tags.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.listTags(ctx)
	return err
}

func (c *Client) listTags(ctx context.Context) (*tagsResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create probe request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, c.transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("ollama probe returned status %d", resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decode probe response: %w", err)
	}
	return &tags, nil
}

// modelReady matches on the base model name, ignoring the tag suffix
// ("llama3.2:latest" satisfies "llama3.2").
func modelReady(available []string, model string) bool {
	base, _, _ := strings.Cut(model, ":")
	for _, name := range available {
		got, _, _ := strings.Cut(name, ":")
		if got == base {
			return true
		}
	}
	return false
}
