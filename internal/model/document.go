package model

import (
	"time"

	"github.com/google/uuid"
)

// Document holds metadata for an uploaded document. The extracted text is
// never stored here; it is re-read from the file on disk when needed.
type Document struct {
	BaseModel
	DocumentID     string     `gorm:"size:100;uniqueIndex;not null" json:"document_id"`
	Filename       string     `gorm:"size:500;not null" json:"filename"`
	FileType       string     `gorm:"size:20;not null" json:"file_type"`
	FileSize       int64      `gorm:"not null" json:"file_size"`
	StoragePath    string     `gorm:"size:1000" json:"-"`
	Analyzed       bool       `gorm:"default:false" json:"analyzed"`
	LastAnalysisID *uuid.UUID `gorm:"type:uuid" json:"analysis_id,omitempty"`
	UploadedAt     time.Time  `json:"uploaded_at"`
	Metadata       JSONMap    `gorm:"type:jsonb" json:"metadata,omitempty"`
}

func (Document) TableName() string {
	return "documents"
}
