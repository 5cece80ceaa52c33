// Package ollama is a client for a local Ollama endpoint, covering the three
// calls the service needs: chat/generate for analysis, embeddings for
// retrieval, and the tags probe for liveness.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// Default configuration values.
const (
	DefaultBaseURL        = "http://localhost:11434"
	DefaultModel          = "llama3.2"
	DefaultEmbeddingModel = "nomic-embed-text"

	// Local inference is slow; generation gets a long timeout while the
	// liveness probe stays short.
	DefaultGenerateTimeout = 120 * time.Second
	DefaultEmbedTimeout    = 60 * time.Second
	DefaultProbeTimeout    = 5 * time.Second

	// Embedding backends have context limits; longer input is truncated,
	// never rejected.
	maxEmbedChars = 8000
)

var (
	// ErrUnavailable means the backend could not be reached at all
	// (connection refused). Callers use it to degrade gracefully where the
	// call is optional.
	ErrUnavailable = errors.New("ollama backend unavailable")

	// ErrTimeout means the backend accepted the call but did not answer
	// within the deadline.
	ErrTimeout = errors.New("ollama request timed out")
)

type Config struct {
	BaseURL         string
	Model           string
	EmbeddingModel  string
	GenerateTimeout time.Duration
	EmbedTimeout    time.Duration
	ProbeTimeout    time.Duration
}

type Client struct {
	httpClient      *http.Client
	baseURL         string
	model           string
	embeddingModel  string
	generateTimeout time.Duration
	embedTimeout    time.Duration
	probeTimeout    time.Duration
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.GenerateTimeout == 0 {
		cfg.GenerateTimeout = DefaultGenerateTimeout
	}
	if cfg.EmbedTimeout == 0 {
		cfg.EmbedTimeout = DefaultEmbedTimeout
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}

	return &Client{
		httpClient:      &http.Client{},
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		model:           cfg.Model,
		embeddingModel:  cfg.EmbeddingModel,
		generateTimeout: cfg.GenerateTimeout,
		embedTimeout:    cfg.EmbedTimeout,
		probeTimeout:    cfg.ProbeTimeout,
	}
}

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options holds generation parameters.
type Options struct {
	Temperature float64 `json:"temperature,omitempty"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  *Options  `json:"options,omitempty"`
}

type chatResponse struct {
	Message Message `json:"message"`
	Done    bool    `json:"done"`
}

type generateRequest struct {
	Model   string   `json:"model"`
	Prompt  string   `json:"prompt"`
	Stream  bool     `json:"stream"`
	Options *Options `json:"options,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Chat conducts a single non-streaming chat round trip.
func (c *Client) Chat(ctx context.Context, messages []Message, opts Options) (string, error) {
	reqBody := chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
	}
	if opts != (Options{}) {
		reqBody.Options = &opts
	}

	var resp chatResponse
	if err := c.postJSON(ctx, "/api/chat", c.generateTimeout, reqBody, &resp); err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}

// Generate produces a text completion from a bare prompt.
func (c *Client) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	reqBody := generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Stream: false,
	}
	if opts != (Options{}) {
		reqBody.Options = &opts
	}

	var resp generateResponse
	if err := c.postJSON(ctx, "/api/generate", c.generateTimeout, reqBody, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

// Embed generates an embedding vector for the given text. Input is truncated
// to the backend's context limit rather than rejected.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	text = truncate(text, maxEmbedChars)

	reqBody := embedRequest{
		Model:  c.embeddingModel,
		Prompt: text,
	}

	var resp embedResponse
	if err := c.postJSON(ctx, "/api/embeddings", c.embedTimeout, reqBody, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("ollama returned an empty embedding")
	}
	return resp.Embedding, nil
}

// Summarize asks the generation model for a summary of at most maxLen
// characters.
func (c *Client) Summarize(ctx context.Context, text string, maxLen int) (string, error) {
	text = truncate(text, 3000)
	prompt := fmt.Sprintf("Summarize this text in %d characters or less:\n\n%s", maxLen, text)
	out, err := c.Generate(ctx, prompt, Options{Temperature: 0.3})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// truncate cuts s to at most max bytes without splitting a multibyte
// character.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

func (c *Client) Model() string          { return c.model }
func (c *Client) EmbeddingModel() string { return c.embeddingModel }

func (c *Client) postJSON(ctx context.Context, path string, timeout time.Duration, in, out interface{}) error {
	jsonBody, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return fmt.Errorf("ollama error (status %d): failed to read response", resp.StatusCode)
		}
		return fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// transportError classifies a failed round trip: deadline expiry is a
// distinct condition from an unreachable backend.
func (c *Client) transportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
