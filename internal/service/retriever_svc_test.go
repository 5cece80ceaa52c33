package service

import (
	"context"
	"errors"
	"testing"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayoubladame458-sys/bias-detector-ai/internal/repository"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return f.vec, f.err
}

type fakeSearcher struct {
	results  []repository.SearchResult
	err      error
	gotTopK  int
	gotDocID string
	calls    int
}

func (f *fakeSearcher) Search(_ context.Context, _ pgvector.Vector, topK int, documentID string) ([]repository.SearchResult, error) {
	f.calls++
	f.gotTopK = topK
	f.gotDocID = documentID
	return f.results, f.err
}

func vec768() []float32 {
	return make([]float32, 768)
}

func TestRelevantContextFiltersAndOrders(t *testing.T) {
	searcher := &fakeSearcher{results: []repository.SearchResult{
		{DocumentID: "doc-a", Filename: "a.txt", Content: "strong match", Score: 0.9},
		{DocumentID: "doc-self", Filename: "self.txt", Content: "own document", Score: 0.85},
		{DocumentID: "doc-b", Filename: "b.txt", Content: "ok match", Score: 0.5},
		{DocumentID: "doc-c", Filename: "c.txt", Content: "weak match", Score: 0.1},
	}}
	embeddings := NewEmbeddingService(&fakeEmbedder{vec: vec768()}, 768, 2)
	retriever := NewRetriever(embeddings, searcher, 0.3)

	chunks := retriever.RelevantContext(context.Background(), "query", "doc-self", 5)

	require.Len(t, chunks, 2)
	assert.Equal(t, "strong match", chunks[0].Text)
	assert.Equal(t, "ok match", chunks[1].Text)

	// Over-fetches double the requested amount, unfiltered by document.
	assert.Equal(t, 10, searcher.gotTopK)
	assert.Empty(t, searcher.gotDocID)
}

func TestRelevantContextCapsAtTopK(t *testing.T) {
	searcher := &fakeSearcher{results: []repository.SearchResult{
		{DocumentID: "d1", Content: "one", Score: 0.9},
		{DocumentID: "d2", Content: "two", Score: 0.8},
		{DocumentID: "d3", Content: "three", Score: 0.7},
		{DocumentID: "d4", Content: "four", Score: 0.6},
	}}
	embeddings := NewEmbeddingService(&fakeEmbedder{vec: vec768()}, 768, 2)
	retriever := NewRetriever(embeddings, searcher, 0.3)

	chunks := retriever.RelevantContext(context.Background(), "query", "", 2)
	require.Len(t, chunks, 2)
	assert.Equal(t, "one", chunks[0].Text)
	assert.Equal(t, "two", chunks[1].Text)
}

func TestRelevantContextEmbeddingFailureYieldsEmpty(t *testing.T) {
	searcher := &fakeSearcher{}
	embeddings := NewEmbeddingService(&fakeEmbedder{err: errors.New("backend down")}, 768, 2)
	retriever := NewRetriever(embeddings, searcher, 0.3)

	chunks := retriever.RelevantContext(context.Background(), "query", "", 5)
	assert.Empty(t, chunks)
	assert.Zero(t, searcher.calls)
}

func TestRelevantContextSearchFailureYieldsEmpty(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("index unusable")}
	embeddings := NewEmbeddingService(&fakeEmbedder{vec: vec768()}, 768, 2)
	retriever := NewRetriever(embeddings, searcher, 0.3)

	chunks := retriever.RelevantContext(context.Background(), "query", "", 5)
	assert.Empty(t, chunks)
}

func TestRelevantContextZeroTopK(t *testing.T) {
	searcher := &fakeSearcher{}
	embeddings := NewEmbeddingService(&fakeEmbedder{vec: vec768()}, 768, 2)
	retriever := NewRetriever(embeddings, searcher, 0.3)

	assert.Empty(t, retriever.RelevantContext(context.Background(), "query", "", 0))
	assert.Zero(t, searcher.calls)
}
