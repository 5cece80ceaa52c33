package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/ayoubladame458-sys/bias-detector-ai/internal/chunker"
	"github.com/ayoubladame458-sys/bias-detector-ai/internal/model"
)

var (
	// ErrCountMismatch means the number of embeddings does not match the
	// number of chunks; the write is refused to prevent a misaligned index.
	ErrCountMismatch = errors.New("chunk and embedding counts do not match")

	// ErrDimensionMismatch means a batch mixes vector dimensions.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch in batch")
)

// ChunkRepository is the vector index: it stores document chunks with their
// embeddings in a pgvector-backed table and serves nearest-neighbor search.
//
// The table is created lazily on the first upsert, with the vector column
// dimension inferred from that first batch. Reads before any write see no
// table and degrade to empty results.
type ChunkRepository struct {
	db *gorm.DB

	mu         sync.Mutex
	tableReady bool
	dimensions int
}

func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// Upsert replaces all records for a document id with the given chunk/vector
// set in one transaction (delete-then-insert, not merge). An empty batch is
// a no-op success.
func (r *ChunkRepository) Upsert(ctx context.Context, documentID, filename string, chunks []chunker.Chunk, vectors []pgvector.Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("%w: %d chunks, %d embeddings", ErrCountMismatch, len(chunks), len(vectors))
	}

	dim := len(vectors[0].Slice())
	for i, v := range vectors {
		if len(v.Slice()) != dim {
			return fmt.Errorf("%w: vector %d has dimension %d, expected %d",
				ErrDimensionMismatch, i, len(v.Slice()), dim)
		}
	}

	if err := r.ensureTable(ctx, dim); err != nil {
		return fmt.Errorf("ensure chunk table: %w", err)
	}

	records := make([]model.DocumentChunk, len(chunks))
	now := time.Now().UTC()
	for i, chunk := range chunks {
		records[i] = model.DocumentChunk{
			RecordID:   model.ChunkRecordID(documentID, chunk.Index),
			DocumentID: documentID,
			Filename:   filename,
			ChunkIndex: chunk.Index,
			Content:    chunk.Text,
			Embedding:  vectors[i],
			CreatedAt:  now,
		}
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", documentID).Delete(&model.DocumentChunk{}).Error; err != nil {
			return err
		}
		return tx.Create(&records).Error
	})
}

// SearchResult is one retrieval hit with its similarity score in [0,1].
type SearchResult struct {
	RecordID   string
	DocumentID string
	Filename   string
	ChunkIndex int
	Content    string
	Score      float64
}

// Search returns up to topK records ordered by descending similarity.
// Distance is mapped to a score via 1/(1+distance) so smaller distance means
// a score closer to 1. An optional documentID restricts results to that
// document. An index with no records yields an empty slice, never an error.
func (r *ChunkRepository) Search(ctx context.Context, query pgvector.Vector, topK int, documentID string) ([]SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	if !r.hasTable() {
		return nil, nil
	}

	var rows []struct {
		model.DocumentChunk
		Distance float64 `gorm:"column:distance"`
	}

	q := r.db.WithContext(ctx).
		Table("document_chunks").
		Select("record_id, document_id, filename, chunk_index, content, embedding <=> ? AS distance", query).
		Order("distance ASC").
		Limit(topK)
	if documentID != "" {
		q = q.Where("document_id = ?", documentID)
	}

	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	results := make([]SearchResult, len(rows))
	for i, row := range rows {
		results[i] = SearchResult{
			RecordID:   row.RecordID,
			DocumentID: row.DocumentID,
			Filename:   row.Filename,
			ChunkIndex: row.ChunkIndex,
			Content:    row.Content,
			Score:      1 / (1 + row.Distance),
		}
	}
	return results, nil
}

// DeleteByDocumentID removes all records for a document id. Deleting an id
// that was never indexed succeeds silently.
func (r *ChunkRepository) DeleteByDocumentID(ctx context.Context, documentID string) error {
	if !r.hasTable() {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Delete(&model.DocumentChunk{}).Error
}

func (r *ChunkRepository) Count(ctx context.Context) (int64, error) {
	if !r.hasTable() {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).Model(&model.DocumentChunk{}).Count(&count).Error
	return count, err
}

// Dimensions reports the vector dimension the table was created with, or 0
// before the first write.
func (r *ChunkRepository) Dimensions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dimensions
}

func (r *ChunkRepository) ensureTable(ctx context.Context, dim int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tableReady {
		return nil
	}

	stmt := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS document_chunks (
			record_id   TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			filename    TEXT,
			chunk_index INTEGER NOT NULL,
			content     TEXT,
			embedding   vector(%d),
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, dim)
	if err := r.db.WithContext(ctx).Exec(stmt).Error; err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).
		Exec("CREATE INDEX IF NOT EXISTS idx_document_chunks_document_id ON document_chunks (document_id)").Error; err != nil {
		return err
	}

	r.tableReady = true
	r.dimensions = dim
	return nil
}

func (r *ChunkRepository) hasTable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.tableReady {
		return true
	}
	// The table may exist from a previous process lifetime.
	if r.db.Migrator().HasTable(&model.DocumentChunk{}) {
		r.tableReady = true
		return true
	}
	return false
}
