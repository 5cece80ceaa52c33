package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL:         baseURL,
		Model:           "llama3.2",
		EmbeddingModel:  "nomic-embed-text",
		GenerateTimeout: 2 * time.Second,
		EmbedTimeout:    2 * time.Second,
		ProbeTimeout:    time.Second,
	})
}

func TestChat(t *testing.T) {
	var gotBody map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"message": map[string]string{"role": "assistant", "content": "hello back"},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	out, err := client.Chat(context.Background(), []Message{
		{Role: "user", Content: "hello"},
	}, Options{Temperature: 0.3})
	require.NoError(t, err)
	assert.Equal(t, "hello back", out)

	assert.Equal(t, "llama3.2", gotBody["model"])
	assert.Equal(t, false, gotBody["stream"])
}

func TestEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embeddings", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "nomic-embed-text", body["model"])
		json.NewEncoder(w).Encode(map[string]interface{}{
			"embedding": []float64{0.1, 0.2, 0.3},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	vec, err := client.Embed(context.Background(), "some text")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestEmbedTruncatesLongInput(t *testing.T) {
	var gotPrompt string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gotPrompt = body["prompt"]
		json.NewEncoder(w).Encode(map[string]interface{}{
			"embedding": []float64{0.1},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Embed(context.Background(), strings.Repeat("a", 20000))
	require.NoError(t, err)
	assert.Len(t, gotPrompt, maxEmbedChars)

	// The cut must land on a rune boundary for multibyte input.
	_, err = client.Embed(context.Background(), strings.Repeat("世界", 10000))
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(gotPrompt))
	assert.LessOrEqual(t, len(gotPrompt), maxEmbedChars)
}

func TestEmbedRejectsEmptyEmbedding(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"embedding": []float64{},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Embed(context.Background(), "text")
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body["prompt"], "200 characters or less")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"response": " a short summary \n",
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	out, err := client.Summarize(context.Background(), "long document text", 200)
	require.NoError(t, err)
	assert.Equal(t, "a short summary", out)
}

func TestUnreachableBackendIsErrUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestClient(server.URL)
	_, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "x"}}, Options{})
	assert.ErrorIs(t, err, ErrUnavailable)

	_, err = client.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSlowBackendIsErrTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer server.Close()

	client := NewClient(Config{
		BaseURL:         server.URL,
		GenerateTimeout: 50 * time.Millisecond,
		EmbedTimeout:    50 * time.Millisecond,
		ProbeTimeout:    50 * time.Millisecond,
	})
	_, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "x"}}, Options{})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestNon200IsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Chat(context.Background(), []Message{{Role: "user", Content: "x"}}, Options{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
}

func TestGetStatusOnline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"models": []map[string]string{
				{"name": "llama3.2:latest"},
				{"name": "nomic-embed-text:latest"},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	status := client.GetStatus(context.Background())

	assert.Equal(t, "online", status.Status)
	assert.True(t, status.AnalysisModelReady)
	assert.True(t, status.EmbeddingModelReady)
	assert.Len(t, status.ModelsAvailable, 2)
}

func TestGetStatusOffline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestClient(server.URL)
	status := client.GetStatus(context.Background())

	assert.Equal(t, "offline", status.Status)
	assert.False(t, status.AnalysisModelReady)
	assert.Empty(t, status.ModelsAvailable)
}

func TestModelReadyIgnoresTagSuffix(t *testing.T) {
	assert.True(t, modelReady([]string{"llama3.2:latest"}, "llama3.2"))
	assert.True(t, modelReady([]string{"llama3.2"}, "llama3.2:latest"))
	assert.False(t, modelReady([]string{"mistral:latest"}, "llama3.2"))
}
