package service

import (
	"context"
	"log"

	"github.com/pgvector/pgvector-go"

	"github.com/ayoubladame458-sys/bias-detector-ai/internal/repository"
)

// Queries are cut to a bounded prefix before embedding to respect the
// backend's context limit.
const maxQueryChars = 4000

// ChunkSearcher is the read side of the vector index. Satisfied by
// *repository.ChunkRepository.
type ChunkSearcher interface {
	Search(ctx context.Context, query pgvector.Vector, topK int, documentID string) ([]repository.SearchResult, error)
}

// ContextChunk is a retrieval result handed to the prompt builder. Transient,
// never persisted.
type ContextChunk struct {
	Text           string  `json:"text"`
	Filename       string  `json:"filename"`
	RelevanceScore float64 `json:"relevance_score"`
	DocumentID     string  `json:"document_id"`
}

// Retriever finds cross-document context for a piece of text.
type Retriever struct {
	embeddings *EmbeddingService
	searcher   ChunkSearcher
	threshold  float64
}

func NewRetriever(embeddings *EmbeddingService, searcher ChunkSearcher, threshold float64) *Retriever {
	return &Retriever{
		embeddings: embeddings,
		searcher:   searcher,
		threshold:  threshold,
	}
}

// RelevantContext returns up to topK chunks above the relevance threshold,
// excluding any chunk from excludeDocumentID, ordered by descending
// relevance. Retrieval is an enhancement, not a dependency: any failure
// (embedding backend down, index unusable) yields an empty result, never an
// error.
func (r *Retriever) RelevantContext(ctx context.Context, queryText, excludeDocumentID string, topK int) []ContextChunk {
	if topK <= 0 {
		return nil
	}
	queryText = truncate(queryText, maxQueryChars)

	queryVec, err := r.embeddings.EmbedText(ctx, queryText)
	if err != nil {
		log.Printf("context retrieval skipped, query embedding failed: %v", err)
		return nil
	}

	// Over-fetch so post-filtering (exclusion + threshold) still leaves
	// enough candidates; the index has no combined exclude+floor query.
	candidates, err := r.searcher.Search(ctx, queryVec, topK*2, "")
	if err != nil {
		log.Printf("context retrieval skipped, vector search failed: %v", err)
		return nil
	}

	var relevant []ContextChunk
	for _, candidate := range candidates {
		if excludeDocumentID != "" && candidate.DocumentID == excludeDocumentID {
			continue
		}
		if candidate.Score < r.threshold {
			continue
		}

		relevant = append(relevant, ContextChunk{
			Text:           candidate.Content,
			Filename:       candidate.Filename,
			RelevanceScore: candidate.Score,
			DocumentID:     candidate.DocumentID,
		})

		if len(relevant) >= topK {
			break
		}
	}
	return relevant
}
