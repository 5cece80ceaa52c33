package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayoubladame458-sys/bias-detector-ai/internal/chunker"
)

type countingEmbedder struct {
	dims     int
	inFlight atomic.Int32
	peak     atomic.Int32
	failOn   string
}

func (e *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	current := e.inFlight.Add(1)
	defer e.inFlight.Add(-1)
	for {
		peak := e.peak.Load()
		if current <= peak || e.peak.CompareAndSwap(peak, current) {
			break
		}
	}

	if e.failOn != "" && text == e.failOn {
		return nil, errors.New("embed failed")
	}
	return make([]float32, e.dims), nil
}

func TestEmbedTextValidatesDimension(t *testing.T) {
	svc := NewEmbeddingService(&countingEmbedder{dims: 64}, 768, 2)

	_, err := svc.EmbedText(context.Background(), "text")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension 64")

	svc = NewEmbeddingService(&countingEmbedder{dims: 768}, 768, 2)
	vec, err := svc.EmbedText(context.Background(), "text")
	require.NoError(t, err)
	assert.Len(t, vec.Slice(), 768)
}

func TestEmbedChunksBoundsConcurrency(t *testing.T) {
	embedder := &countingEmbedder{dims: 768}
	svc := NewEmbeddingService(embedder, 768, 3)

	chunks := make([]chunker.Chunk, 20)
	for i := range chunks {
		chunks[i] = chunker.Chunk{Index: i, Text: "chunk"}
	}

	vectors, err := svc.EmbedChunks(context.Background(), chunks)
	require.NoError(t, err)
	assert.Len(t, vectors, 20)
	assert.LessOrEqual(t, embedder.peak.Load(), int32(3))
}

func TestEmbedChunksDropsFailedChunks(t *testing.T) {
	embedder := &countingEmbedder{dims: 768, failOn: "bad"}
	svc := NewEmbeddingService(embedder, 768, 2)

	chunks := []chunker.Chunk{
		{Index: 0, Text: "good"},
		{Index: 1, Text: "bad"},
		{Index: 2, Text: "also good"},
	}

	vectors, err := svc.EmbedChunks(context.Background(), chunks)
	require.NoError(t, err)
	assert.Len(t, vectors, 2)
}

func TestEmbedChunksEmptyInput(t *testing.T) {
	svc := NewEmbeddingService(&countingEmbedder{dims: 768}, 768, 2)
	vectors, err := svc.EmbedChunks(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
}

func TestNewEmbeddingServiceDefaults(t *testing.T) {
	svc := NewEmbeddingService(&countingEmbedder{dims: 768}, 0, 0)
	assert.Equal(t, 768, svc.Dimensions())
}
