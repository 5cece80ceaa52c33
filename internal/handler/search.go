package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ayoubladame458-sys/bias-detector-ai/internal/ollama"
	"github.com/ayoubladame458-sys/bias-detector-ai/internal/repository"
	"github.com/ayoubladame458-sys/bias-detector-ai/internal/service"
)

type SearchHandler struct {
	embeddings *service.EmbeddingService
	chunkRepo  *repository.ChunkRepository
}

func NewSearchHandler(embeddings *service.EmbeddingService, chunkRepo *repository.ChunkRepository) *SearchHandler {
	return &SearchHandler{embeddings: embeddings, chunkRepo: chunkRepo}
}

type searchRequest struct {
	Query      string `json:"query" binding:"required"`
	TopK       int    `json:"top_k"`
	DocumentID string `json:"document_id"`
}

type searchResultItem struct {
	DocumentID     string  `json:"document_id"`
	Filename       string  `json:"filename"`
	TextChunk      string  `json:"text_chunk"`
	RelevanceScore float64 `json:"relevance_score"`
	ChunkIndex     int     `json:"chunk_index"`
}

func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	topK := req.TopK
	if topK < 1 {
		topK = 5
	}
	if topK > 20 {
		topK = 20
	}

	vec, err := h.embeddings.EmbedText(c.Request.Context(), req.Query)
	if err != nil {
		if errors.Is(err, ollama.ErrUnavailable) || errors.Is(err, ollama.ErrTimeout) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not generate query embedding. Make sure Ollama is running."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	results, err := h.chunkRepo.Search(c.Request.Context(), vec, topK, req.DocumentID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	items := make([]searchResultItem, 0, len(results))
	for _, r := range results {
		items = append(items, searchResultItem{
			DocumentID:     r.DocumentID,
			Filename:       r.Filename,
			TextChunk:      r.Content,
			RelevanceScore: r.Score,
			ChunkIndex:     r.ChunkIndex,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"results":       items,
		"query":         req.Query,
		"total_results": len(items),
	})
}

func (h *SearchHandler) Stats(c *gin.Context) {
	count, err := h.chunkRepo.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_vectors": count,
		"dimensions":    h.chunkRepo.Dimensions(),
		"table":         "document_chunks",
	})
}
