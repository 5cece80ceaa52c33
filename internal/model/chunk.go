package model

import (
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
)

// DocumentChunk is one indexed record in the vector store: a chunk of
// document text together with its embedding. The table is created lazily by
// the chunk repository (the vector column dimension is only known once the
// first batch arrives), so this model is intentionally kept out of
// AutoMigrate.
type DocumentChunk struct {
	RecordID   string          `gorm:"column:record_id;primaryKey" json:"record_id"`
	DocumentID string          `gorm:"column:document_id;index" json:"document_id"`
	Filename   string          `gorm:"column:filename" json:"filename"`
	ChunkIndex int             `gorm:"column:chunk_index" json:"chunk_index"`
	Content    string          `gorm:"column:content" json:"content"`
	Embedding  pgvector.Vector `gorm:"column:embedding" json:"-"`
	CreatedAt  time.Time       `gorm:"column:created_at" json:"created_at"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}

// ChunkRecordID builds the stable record key for a (document, ordinal) pair.
func ChunkRecordID(documentID string, chunkIndex int) string {
	return fmt.Sprintf("%s_chunk_%d", documentID, chunkIndex)
}
