package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ayoubladame458-sys/bias-detector-ai/internal/config"
	"github.com/ayoubladame458-sys/bias-detector-ai/internal/service"
)

type DocumentHandler struct {
	svc *service.DocumentService
	cfg *config.Config
}

func NewDocumentHandler(svc *service.DocumentService, cfg *config.Config) *DocumentHandler {
	return &DocumentHandler{svc: svc, cfg: cfg}
}

func (h *DocumentHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	defer file.Close()

	if header.Size > h.cfg.MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error":          "file too large",
			"max_size_bytes": h.cfg.MaxUploadSize,
		})
		return
	}

	doc, err := h.svc.Upload(c.Request.Context(), header.Filename, header.Size, file)
	if err != nil {
		if errors.Is(err, service.ErrUnsupportedType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "file type not allowed, accepted types: pdf, txt, docx"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"document_id": doc.DocumentID,
		"filename":    doc.Filename,
		"file_size":   doc.FileSize,
		"file_type":   doc.FileType,
		"uploaded_at": doc.UploadedAt,
	})
}

func (h *DocumentHandler) List(c *gin.Context) {
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if skip < 0 {
		skip = 0
	}

	docs, total, err := h.svc.List(c.Request.Context(), skip, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"documents": docs,
		"skip":      skip,
		"limit":     limit,
		"count":     len(docs),
		"total":     total,
	})
}

func (h *DocumentHandler) Get(c *gin.Context) {
	doc, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
		return
	}
	c.JSON(http.StatusOK, doc)
}

func (h *DocumentHandler) Delete(c *gin.Context) {
	err := h.svc.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrDocumentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
