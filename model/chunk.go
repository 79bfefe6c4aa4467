package model

import (
	"time"

	"github.com/google/uuid"
)

// Chunk represents an embedded document chunk. A chunk belongs to exactly
// one embedding model version; vectors from different versions are never
// compared.
type Chunk struct {
	ID           int       `json:"id"`
	RID          uuid.UUID `json:"rid"`
	Text         string    `json:"text"`
	Source       string    `json:"source,omitempty"`
	Embedding    []float32 `json:"embedding,omitempty"`
	ModelVersion string    `json:"model_version"`
	Truncated    bool      `json:"truncated,omitempty"`
	Metadata     Metadata  `json:"metadata,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	// Result fields, populated by similarity search
	Similarity float64 `json:"similarity,omitempty"`
}
