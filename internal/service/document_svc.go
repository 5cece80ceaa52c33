package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ayoubladame458-sys/bias-detector-ai/internal/config"
	"github.com/ayoubladame458-sys/bias-detector-ai/internal/model"
	"github.com/ayoubladame458-sys/bias-detector-ai/internal/repository"
)

var ErrDocumentNotFound = errors.New("document not found")

// DocumentService owns uploaded files on disk and their metadata rows. The
// metadata store is best-effort: when it is down, uploads still succeed and
// reads fall back to the filesystem.
type DocumentService struct {
	docRepo      *repository.DocumentRepository
	analysisRepo *repository.AnalysisRepository
	chunkRepo    *repository.ChunkRepository
	cfg          *config.Config
}

func NewDocumentService(docRepo *repository.DocumentRepository, analysisRepo *repository.AnalysisRepository, chunkRepo *repository.ChunkRepository, cfg *config.Config) *DocumentService {
	return &DocumentService{
		docRepo:      docRepo,
		analysisRepo: analysisRepo,
		chunkRepo:    chunkRepo,
		cfg:          cfg,
	}
}

// Upload stores the file as <upload_dir>/<document_id>.<ext> and records its
// metadata.
func (s *DocumentService) Upload(ctx context.Context, filename string, size int64, reader io.Reader) (*model.Document, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	if !s.cfg.ExtensionAllowed(ext) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}

	documentID := uuid.New().String()
	storagePath := filepath.Join(s.cfg.UploadDir, documentID+"."+ext)

	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	dst, err := os.Create(storagePath)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	written, err := io.Copy(dst, reader)
	dst.Close()
	if err != nil {
		os.Remove(storagePath)
		return nil, fmt.Errorf("save file: %w", err)
	}
	if size <= 0 {
		size = written
	}

	doc := &model.Document{
		DocumentID:  documentID,
		Filename:    filename,
		FileType:    ext,
		FileSize:    size,
		StoragePath: storagePath,
		UploadedAt:  time.Now().UTC(),
	}

	// Metadata persistence must not block the upload.
	if err := s.docRepo.Upsert(ctx, doc); err != nil {
		log.Printf("saving document metadata for %s failed: %v", documentID, err)
	}

	return doc, nil
}

// FindFile locates the stored file for a document id and reports its type.
func (s *DocumentService) FindFile(documentID string) (path, fileType string, err error) {
	matches, err := filepath.Glob(filepath.Join(s.cfg.UploadDir, documentID+".*"))
	if err != nil || len(matches) == 0 {
		return "", "", ErrDocumentNotFound
	}
	path = matches[0]
	fileType = strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	return path, fileType, nil
}

func (s *DocumentService) List(ctx context.Context, skip, limit int) ([]model.Document, int64, error) {
	return s.docRepo.List(ctx, skip, limit)
}

// Get returns document metadata, preferring the database row and falling
// back to the file on disk when the row is missing.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*model.Document, error) {
	doc, err := s.docRepo.FindByDocumentID(ctx, documentID)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("metadata lookup for %s failed: %v", documentID, err)
	}

	path, fileType, ferr := s.FindFile(documentID)
	if ferr != nil {
		return nil, ErrDocumentNotFound
	}
	info, serr := os.Stat(path)
	if serr != nil {
		return nil, ErrDocumentNotFound
	}

	return &model.Document{
		DocumentID:  documentID,
		Filename:    filepath.Base(path),
		FileType:    fileType,
		FileSize:    info.Size(),
		StoragePath: path,
		UploadedAt:  info.ModTime().UTC(),
	}, nil
}

// Delete removes a document everywhere: the file on disk, the metadata and
// analysis rows, and the vector index records. Individual failures are
// tolerated; only when every step fails is an error returned.
func (s *DocumentService) Delete(ctx context.Context, documentID string) error {
	path, _, err := s.FindFile(documentID)
	if err != nil {
		return err
	}

	var errs []string

	if err := os.Remove(path); err != nil {
		errs = append(errs, fmt.Sprintf("file deletion: %v", err))
	}

	if err := s.docRepo.DeleteByDocumentID(ctx, documentID); err != nil {
		errs = append(errs, fmt.Sprintf("metadata deletion: %v", err))
	} else if err := s.analysisRepo.DeleteByDocumentID(ctx, documentID); err != nil {
		errs = append(errs, fmt.Sprintf("analysis deletion: %v", err))
	}

	if err := s.chunkRepo.DeleteByDocumentID(ctx, documentID); err != nil {
		errs = append(errs, fmt.Sprintf("vector deletion: %v", err))
	}

	if len(errs) >= 3 {
		return fmt.Errorf("deleting document %s: %s", documentID, strings.Join(errs, "; "))
	}
	for _, msg := range errs {
		log.Printf("partial delete of %s: %s", documentID, msg)
	}
	return nil
}
