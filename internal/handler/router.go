package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ayoubladame458-sys/bias-detector-ai/internal/config"
	"github.com/ayoubladame458-sys/bias-detector-ai/internal/ollama"
	"github.com/ayoubladame458-sys/bias-detector-ai/internal/repository"
	"github.com/ayoubladame458-sys/bias-detector-ai/internal/service"
)

func SetupRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	// Initialize repositories
	docRepo := repository.NewDocumentRepository(db)
	analysisRepo := repository.NewAnalysisRepository(db)
	chunkRepo := repository.NewChunkRepository(db)

	// Initialize Ollama client
	client := ollama.NewClient(ollama.Config{
		BaseURL:         cfg.OllamaBaseURL,
		Model:           cfg.OllamaModel,
		EmbeddingModel:  cfg.OllamaEmbeddingModel,
		GenerateTimeout: cfg.GenerateTimeout,
		EmbedTimeout:    cfg.EmbedTimeout,
		ProbeTimeout:    cfg.ProbeTimeout,
	})

	// Initialize services
	extractSvc := service.NewExtractService()
	embeddingSvc := service.NewEmbeddingService(client, cfg.EmbeddingDimensions, cfg.EmbedConcurrency)
	retriever := service.NewRetriever(embeddingSvc, chunkRepo, cfg.RelevanceThreshold)
	analyzer := service.NewAnalyzer(client)
	ragSvc := service.NewRAGService(retriever, analyzer, embeddingSvc, chunkRepo, cfg.MaxContextChunks)
	docSvc := service.NewDocumentService(docRepo, analysisRepo, chunkRepo, cfg)

	// Background chunk indexer, one worker for the lifetime of the process
	indexer := service.NewIndexer(extractSvc, embeddingSvc, chunkRepo, cfg.ChunkSize, cfg.ChunkOverlap)
	indexer.Start()

	// Initialize handlers
	docHandler := NewDocumentHandler(docSvc, cfg)
	analysisHandler := NewAnalysisHandler(ragSvc, docSvc, extractSvc, analysisRepo, docRepo, indexer, cfg)
	searchHandler := NewSearchHandler(embeddingSvc, chunkRepo)
	ragHandler := NewRAGHandler(ragSvc, retriever, analysisRepo, docRepo, chunkRepo, client, cfg)

	// Health check endpoints
	r.GET("/health", healthCheck(client))
	r.GET("/ready", readinessCheck)
	r.GET("/live", livenessCheck)

	// Root endpoint
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":      "Bias Detector",
			"version":      "1.0.0",
			"status":       "running",
			"health_check": "/health",
		})
	})

	// API v1
	v1 := r.Group("/api/v1")
	{
		documents := v1.Group("/documents")
		{
			documents.POST("/upload", docHandler.Upload)
			documents.GET("", docHandler.List)
			documents.GET("/:id", docHandler.Get)
			documents.DELETE("/:id", docHandler.Delete)
		}

		analysis := v1.Group("/analysis")
		{
			analysis.POST("/analyze", analysisHandler.Analyze)
			analysis.GET("/history/:document_id", analysisHandler.History)
			analysis.GET("/latest/:document_id", analysisHandler.Latest)
			analysis.GET("/all", analysisHandler.All)
		}

		search := v1.Group("/search")
		{
			search.POST("", searchHandler.Search)
			search.GET("/stats", searchHandler.Stats)
		}

		rag := v1.Group("/rag")
		{
			rag.POST("/ask", ragHandler.Ask)
			rag.POST("/context", ragHandler.Context)
			rag.GET("/status", ragHandler.Status)
			rag.GET("/statistics", ragHandler.Statistics)
		}
	}

	return r
}

// healthCheck reports degraded instead of failing when the inference backend
// is down. History and document endpoints still work without it.
func healthCheck(client *ollama.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := "healthy"
		if err := client.Ping(c.Request.Context()); err != nil {
			status = "degraded"
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  status,
			"service": "bias-detector",
		})
	}
}

func readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

func livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
