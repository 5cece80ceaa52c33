package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/pgvector/pgvector-go"

	"github.com/ayoubladame458-sys/bias-detector-ai/internal/chunker"
)

// Embedder turns text into a fixed-dimension vector. Satisfied by
// *ollama.Client.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingService wraps the embedding backend with the service's policy:
// dimension validation and bounded-concurrency batch embedding.
type EmbeddingService struct {
	embedder    Embedder
	dimensions  int
	concurrency int
}

func NewEmbeddingService(embedder Embedder, dimensions, concurrency int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = 768
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &EmbeddingService{
		embedder:    embedder,
		dimensions:  dimensions,
		concurrency: concurrency,
	}
}

func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// EmbedText embeds a single text. The backend truncates over-long input
// itself; this just validates the result dimension.
func (s *EmbeddingService) EmbedText(ctx context.Context, text string) (pgvector.Vector, error) {
	raw, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return pgvector.Vector{}, err
	}
	if len(raw) != s.dimensions {
		return pgvector.Vector{}, fmt.Errorf("embedding has dimension %d, expected %d", len(raw), s.dimensions)
	}
	return pgvector.NewVector(raw), nil
}

// EmbedChunks embeds a document's chunks with at most s.concurrency calls in
// flight at once, so a large document does not overwhelm the local backend.
// Chunks whose embedding fails are dropped; callers compare the returned
// count against the chunk count before writing to the index.
func (s *EmbeddingService) EmbedChunks(ctx context.Context, chunks []chunker.Chunk) ([]pgvector.Vector, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	type slot struct {
		vec pgvector.Vector
		ok  bool
	}
	slots := make([]slot, len(chunks))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, s.concurrency)

	for i, chunk := range chunks {
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			vec, err := s.EmbedText(ctx, text)
			if err != nil {
				log.Printf("embedding chunk %d failed: %v", i, err)
				return
			}
			slots[i] = slot{vec: vec, ok: true}
		}(i, chunk.Text)
	}
	wg.Wait()

	vectors := make([]pgvector.Vector, 0, len(chunks))
	for _, sl := range slots {
		if sl.ok {
			vectors = append(vectors, sl.vec)
		}
	}
	return vectors, nil
}
