package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ayoubladame458-sys/bias-detector-ai/internal/model"
)

type AnalysisRepository struct {
	db *gorm.DB
}

func NewAnalysisRepository(db *gorm.DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

func (r *AnalysisRepository) Create(ctx context.Context, analysis *model.Analysis) error {
	return r.db.WithContext(ctx).Create(analysis).Error
}

func (r *AnalysisRepository) FindByDocumentID(ctx context.Context, documentID string, limit int) ([]model.Analysis, error) {
	var analyses []model.Analysis
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("analyzed_at DESC").
		Limit(limit).
		Find(&analyses).Error
	return analyses, err
}

func (r *AnalysisRepository) FindLatest(ctx context.Context, documentID string) (*model.Analysis, error) {
	var analysis model.Analysis
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("analyzed_at DESC").
		First(&analysis).Error
	if err != nil {
		return nil, err
	}
	return &analysis, nil
}

func (r *AnalysisRepository) List(ctx context.Context, skip, limit int) ([]model.Analysis, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Analysis{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var analyses []model.Analysis
	err := r.db.WithContext(ctx).
		Order("analyzed_at DESC").
		Offset(skip).
		Limit(limit).
		Find(&analyses).Error
	return analyses, total, err
}

func (r *AnalysisRepository) DeleteByDocumentID(ctx context.Context, documentID string) error {
	return r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Delete(&model.Analysis{}).Error
}

// BiasTypeCount is one bucket of the bias-type distribution.
type BiasTypeCount struct {
	Type  string `json:"type"`
	Count int64  `json:"count"`
}

// Statistics aggregates across all stored analyses.
type Statistics struct {
	TotalAnalyses    int64           `json:"total_analyses"`
	AverageBiasScore float64         `json:"average_bias_score"`
	BiasDistribution []BiasTypeCount `json:"bias_distribution"`
}

func (r *AnalysisRepository) GetStatistics(ctx context.Context) (*Statistics, error) {
	stats := &Statistics{BiasDistribution: []BiasTypeCount{}}

	if err := r.db.WithContext(ctx).Model(&model.Analysis{}).Count(&stats.TotalAnalyses).Error; err != nil {
		return nil, err
	}

	if stats.TotalAnalyses > 0 {
		var avg *float64
		if err := r.db.WithContext(ctx).Model(&model.Analysis{}).
			Select("AVG(overall_score)").Scan(&avg).Error; err != nil {
			return nil, err
		}
		if avg != nil {
			stats.AverageBiasScore = *avg
		}
	}

	// Unnest the jsonb instance array to count occurrences per bias type.
	err := r.db.WithContext(ctx).Raw(`
		SELECT instance->>'type' AS type, COUNT(*) AS count
		FROM analyses, jsonb_array_elements(bias_instances) AS instance
		WHERE deleted_at IS NULL
		GROUP BY instance->>'type'
		ORDER BY count DESC
	`).Scan(&stats.BiasDistribution).Error
	if err != nil {
		return nil, err
	}

	return stats, nil
}
