package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

type BiasType string

const (
	BiasTypeGender       BiasType = "gender"
	BiasTypePolitical    BiasType = "political"
	BiasTypeCultural     BiasType = "cultural"
	BiasTypeConfirmation BiasType = "confirmation"
	BiasTypeSelection    BiasType = "selection"
	BiasTypeAnchoring    BiasType = "anchoring"
	BiasTypeOther        BiasType = "other"
)

// AllBiasTypes lists the fixed taxonomy in prompt order.
var AllBiasTypes = []BiasType{
	BiasTypeGender,
	BiasTypePolitical,
	BiasTypeCultural,
	BiasTypeConfirmation,
	BiasTypeSelection,
	BiasTypeAnchoring,
	BiasTypeOther,
}

// ParseBiasType coerces a free-form label into the taxonomy. Unknown labels
// map to BiasTypeOther rather than being rejected, since the generative
// backend is not guaranteed to emit exact enum values.
func ParseBiasType(s string) BiasType {
	t := BiasType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllBiasTypes {
		if t == known {
			return t
		}
	}
	return BiasTypeOther
}

// BiasInstance is a single detected passage of biased text.
type BiasInstance struct {
	Type          BiasType `json:"type"`
	Text          string   `json:"text"`
	Explanation   string   `json:"explanation"`
	Severity      float64  `json:"severity"`
	StartPosition int      `json:"start_position"`
	EndPosition   int      `json:"end_position"`
	Suggestions   string   `json:"suggestions,omitempty"`
}

// BiasInstances is stored as jsonb
type BiasInstances []BiasInstance

func (b BiasInstances) Value() (driver.Value, error) {
	if b == nil {
		return json.Marshal([]BiasInstance{})
	}
	return json.Marshal(b)
}

func (b *BiasInstances) Scan(value interface{}) error {
	if value == nil {
		*b = nil
		return nil
	}
	raw, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			raw = []byte(s)
		} else {
			return errors.New("unsupported type for BiasInstances")
		}
	}
	return json.Unmarshal(raw, b)
}

// RAGMetadata describes the retrieval context that backed an analysis.
type RAGMetadata struct {
	ContextUsed        bool     `json:"context_used"`
	NumReferenceChunks int      `json:"num_reference_chunks"`
	ReferenceDocuments []string `json:"reference_documents"`
}

func (m *RAGMetadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *RAGMetadata) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	raw, ok := value.([]byte)
	if !ok {
		if s, ok := value.(string); ok {
			raw = []byte(s)
		} else {
			return errors.New("unsupported type for RAGMetadata")
		}
	}
	return json.Unmarshal(raw, m)
}

// Analysis is one persisted bias-analysis run for a document.
type Analysis struct {
	BaseModel
	DocumentID          string        `gorm:"size:100;index;not null" json:"document_id"`
	Filename            string        `gorm:"size:500" json:"filename"`
	OverallScore        float64       `gorm:"not null" json:"overall_score"`
	BiasInstances       BiasInstances `gorm:"type:jsonb" json:"bias_instances"`
	Summary             string        `gorm:"type:text" json:"summary"`
	RAGMetadata         *RAGMetadata  `gorm:"type:jsonb" json:"rag_metadata,omitempty"`
	ComparativeInsights string        `gorm:"type:text" json:"comparative_insights,omitempty"`
	BiasTypesRequested  StringArray   `gorm:"type:jsonb" json:"bias_types_requested,omitempty"`
	AnalyzedAt          time.Time     `gorm:"index;not null" json:"analyzed_at"`
}

func (Analysis) TableName() string {
	return "analyses"
}
