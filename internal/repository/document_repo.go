package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ayoubladame458-sys/bias-detector-ai/internal/model"
)

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Upsert creates or replaces the metadata row for a document id.
func (r *DocumentRepository) Upsert(ctx context.Context, doc *model.Document) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "document_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"filename", "file_type", "file_size", "storage_path",
				"analyzed", "last_analysis_id", "uploaded_at", "metadata", "updated_at",
			}),
		}).
		Create(doc).Error
}

func (r *DocumentRepository) FindByDocumentID(ctx context.Context, documentID string) (*model.Document, error) {
	var doc model.Document
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		First(&doc).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepository) List(ctx context.Context, skip, limit int) ([]model.Document, int64, error) {
	var docs []model.Document
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Document{})
	query.Count(&total)
	err := query.Order("created_at DESC").Offset(skip).Limit(limit).Find(&docs).Error
	return docs, total, err
}

func (r *DocumentRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Document{}).Count(&count).Error
	return count, err
}

// MarkAnalyzed records that a document has a fresh analysis.
func (r *DocumentRepository) MarkAnalyzed(ctx context.Context, documentID string, analysisID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Document{}).
		Where("document_id = ?", documentID).
		Updates(map[string]interface{}{
			"analyzed":         true,
			"last_analysis_id": analysisID,
		}).Error
}

func (r *DocumentRepository) DeleteByDocumentID(ctx context.Context, documentID string) error {
	return r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Delete(&model.Document{}).Error
}
