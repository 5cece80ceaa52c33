package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ayoubladame458-sys/bias-detector-ai/internal/config"
	"github.com/ayoubladame458-sys/bias-detector-ai/internal/model"
	"github.com/ayoubladame458-sys/bias-detector-ai/internal/ollama"
	"github.com/ayoubladame458-sys/bias-detector-ai/internal/repository"
	"github.com/ayoubladame458-sys/bias-detector-ai/internal/service"
)

type AnalysisHandler struct {
	ragSvc       *service.RAGService
	docSvc       *service.DocumentService
	extractor    *service.ExtractService
	analysisRepo *repository.AnalysisRepository
	docRepo      *repository.DocumentRepository
	indexer      *service.Indexer
	cfg          *config.Config
}

func NewAnalysisHandler(
	ragSvc *service.RAGService,
	docSvc *service.DocumentService,
	extractor *service.ExtractService,
	analysisRepo *repository.AnalysisRepository,
	docRepo *repository.DocumentRepository,
	indexer *service.Indexer,
	cfg *config.Config,
) *AnalysisHandler {
	return &AnalysisHandler{
		ragSvc:       ragSvc,
		docSvc:       docSvc,
		extractor:    extractor,
		analysisRepo: analysisRepo,
		docRepo:      docRepo,
		indexer:      indexer,
		cfg:          cfg,
	}
}

type analyzeRequest struct {
	DocumentID string   `json:"document_id" binding:"required"`
	BiasTypes  []string `json:"bias_types"`
	UseRAG     *bool    `json:"use_rag"`
}

func (h *AnalysisHandler) Analyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	biasTypes := make([]model.BiasType, 0, len(req.BiasTypes))
	for _, raw := range req.BiasTypes {
		bt := model.ParseBiasType(raw)
		if string(bt) != strings.ToLower(strings.TrimSpace(raw)) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown bias type: " + raw})
			return
		}
		biasTypes = append(biasTypes, bt)
	}

	path, fileType, err := h.docSvc.FindFile(req.DocumentID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found: " + req.DocumentID})
		return
	}

	text, err := h.extractor.Extract(path, fileType)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "text extraction failed: " + err.Error()})
		return
	}
	if strings.TrimSpace(text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no text could be extracted from document"})
		return
	}

	useRAG := true
	if req.UseRAG != nil {
		useRAG = *req.UseRAG
	}
	useContext := useRAG && h.cfg.RAGEnabled

	filename := filenameFromPath(path)
	result, err := h.ragSvc.AnalyzeWithContext(c.Request.Context(), text, req.DocumentID, biasTypes, useContext)
	if err != nil {
		switch {
		case errors.Is(err, ollama.ErrTimeout):
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "analysis timed out, try a smaller document"})
		case errors.Is(err, ollama.ErrUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "analysis backend unavailable. Make sure Ollama is running."})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	h.persistAnalysis(c, req.DocumentID, filename, biasTypes, result)

	h.indexer.Enqueue(service.IndexJob{
		DocumentID: req.DocumentID,
		FilePath:   path,
		FileType:   fileType,
		Filename:   filename,
	})

	c.JSON(http.StatusOK, result)
}

// persistAnalysis saves history on a best-effort basis. The caller already
// has a complete result, a broken history store must not fail the request.
func (h *AnalysisHandler) persistAnalysis(c *gin.Context, documentID, filename string, biasTypes []model.BiasType, result *service.AnalysisResult) {
	requested := make(model.StringArray, 0, len(biasTypes))
	for _, bt := range biasTypes {
		requested = append(requested, string(bt))
	}

	analysis := &model.Analysis{
		DocumentID:          documentID,
		Filename:            filename,
		OverallScore:        result.OverallScore,
		BiasInstances:       result.BiasInstances,
		Summary:             result.Summary,
		RAGMetadata:         result.RAGMetadata,
		ComparativeInsights: result.ComparativeInsights,
		BiasTypesRequested:  requested,
		AnalyzedAt:          result.AnalyzedAt,
	}

	if err := h.analysisRepo.Create(c.Request.Context(), analysis); err != nil {
		log.Printf("analysis history save failed for %s: %v", documentID, err)
		return
	}
	if err := h.docRepo.MarkAnalyzed(c.Request.Context(), documentID, analysis.ID); err != nil {
		log.Printf("document analyzed flag update failed for %s: %v", documentID, err)
	}
}

func (h *AnalysisHandler) History(c *gin.Context) {
	documentID := c.Param("document_id")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if limit < 1 || limit > 50 {
		limit = 10
	}

	analyses, err := h.analysisRepo.FindByDocumentID(c.Request.Context(), documentID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"document_id": documentID,
		"analyses":    analyses,
		"total_count": len(analyses),
	})
}

func (h *AnalysisHandler) Latest(c *gin.Context) {
	documentID := c.Param("document_id")

	analysis, err := h.analysisRepo.FindLatest(c.Request.Context(), documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "no analysis found for document: " + documentID})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, analysis)
}

func (h *AnalysisHandler) All(c *gin.Context) {
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if skip < 0 {
		skip = 0
	}

	analyses, total, err := h.analysisRepo.List(c.Request.Context(), skip, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"analyses": analyses,
		"skip":     skip,
		"limit":    limit,
		"count":    len(analyses),
		"total":    total,
	})
}

func filenameFromPath(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
