package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ayoubladame458-sys/bias-detector-ai/internal/config"
	"github.com/ayoubladame458-sys/bias-detector-ai/internal/ollama"
	"github.com/ayoubladame458-sys/bias-detector-ai/internal/repository"
	"github.com/ayoubladame458-sys/bias-detector-ai/internal/service"
)

type RAGHandler struct {
	ragSvc       *service.RAGService
	retriever    *service.Retriever
	analysisRepo *repository.AnalysisRepository
	docRepo      *repository.DocumentRepository
	chunkRepo    *repository.ChunkRepository
	client       *ollama.Client
	cfg          *config.Config
}

func NewRAGHandler(
	ragSvc *service.RAGService,
	retriever *service.Retriever,
	analysisRepo *repository.AnalysisRepository,
	docRepo *repository.DocumentRepository,
	chunkRepo *repository.ChunkRepository,
	client *ollama.Client,
	cfg *config.Config,
) *RAGHandler {
	return &RAGHandler{
		ragSvc:       ragSvc,
		retriever:    retriever,
		analysisRepo: analysisRepo,
		docRepo:      docRepo,
		chunkRepo:    chunkRepo,
		client:       client,
		cfg:          cfg,
	}
}

type askRequest struct {
	Question   string `json:"question" binding:"required,min=5,max=500"`
	DocumentID string `json:"document_id"`
	TopK       int    `json:"top_k"`
}

func (h *RAGHandler) Ask(c *gin.Context) {
	if !h.cfg.RAGEnabled {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "RAG feature is disabled"})
		return
	}

	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	topK := req.TopK
	if topK < 1 {
		topK = 5
	}
	if topK > 10 {
		topK = 10
	}

	result, err := h.ragSvc.AnswerQuestion(c.Request.Context(), req.Question, req.DocumentID, topK)
	if err != nil {
		switch {
		case errors.Is(err, ollama.ErrTimeout):
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "answer generation timed out"})
		case errors.Is(err, ollama.ErrUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "generation backend unavailable. Make sure Ollama is running."})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

type contextRequest struct {
	Text              string `json:"text" binding:"required,min=10,max=5000"`
	ExcludeDocumentID string `json:"exclude_document_id"`
	TopK              int    `json:"top_k"`
}

func (h *RAGHandler) Context(c *gin.Context) {
	var req contextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	topK := req.TopK
	if topK < 1 {
		topK = h.cfg.MaxContextChunks
	}
	if topK > 10 {
		topK = 10
	}

	chunks := h.retriever.RelevantContext(c.Request.Context(), req.Text, req.ExcludeDocumentID, topK)

	c.JSON(http.StatusOK, gin.H{
		"context_chunks": chunks,
		"total_found":    len(chunks),
	})
}

func (h *RAGHandler) Status(c *gin.Context) {
	status := h.client.GetStatus(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{
		"ollama":               status,
		"rag_enabled":          h.cfg.RAGEnabled,
		"analysis_model":       h.cfg.OllamaModel,
		"embedding_model":      h.cfg.OllamaEmbeddingModel,
		"max_context_chunks":   h.cfg.MaxContextChunks,
		"relevance_threshold":  h.cfg.RelevanceThreshold,
		"embedding_dimensions": h.cfg.EmbeddingDimensions,
	})
}

func (h *RAGHandler) Statistics(c *gin.Context) {
	stats, err := h.analysisRepo.GetStatistics(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	docCount, err := h.docRepo.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	vectorCount, err := h.chunkRepo.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_documents":    docCount,
		"total_analyses":     stats.TotalAnalyses,
		"average_bias_score": stats.AverageBiasScore,
		"bias_distribution":  stats.BiasDistribution,
		"indexed_chunks":     vectorCount,
	})
}
