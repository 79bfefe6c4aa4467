package model

import (
	"time"

	"github.com/google/uuid"
)

// EntityType is the label of a node in the knowledge graph.
type EntityType string

const (
	EntityMedicalConcept   EntityType = "MedicalConcept"
	EntityDisease          EntityType = "Disease"
	EntitySymptom          EntityType = "Symptom"
	EntityRiskFactor       EntityType = "RiskFactor"
	EntityDiagnosticMethod EntityType = "DiagnosticMethod"
	EntityTreatment        EntityType = "Treatment"
	EntityComplication     EntityType = "Complication"
	EntityFood             EntityType = "Food"
	EntityGuideline        EntityType = "Guideline"
	EntityQuestion         EntityType = "Question"
)

// Entity represents a node in the knowledge graph. Entity names are unique
// within a type. The graph is populated by the external extraction pipeline;
// the retrieval path only reads entities.
type Entity struct {
	ID         int        `json:"id"`
	RID        uuid.UUID  `json:"rid"`
	Type       EntityType `json:"entity_type"`
	Name       string     `json:"name"`
	Attributes Metadata   `json:"attributes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// EntityRef identifies a graph entity without carrying its attributes.
type EntityRef struct {
	Type EntityType `json:"entity_type"`
	Name string     `json:"name"`
}

// Ref returns the entity's reference.
func (e *Entity) Ref() EntityRef {
	return EntityRef{Type: e.Type, Name: e.Name}
}
