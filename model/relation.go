package model

import (
	"time"

	"github.com/google/uuid"
)

// RelationType is the label of a typed edge in the knowledge graph.
type RelationType string

const (
	RelationIsA                RelationType = "IS_A"
	RelationHasSymptom         RelationType = "HAS_SYMPTOM"
	RelationHasRiskFactor      RelationType = "HAS_RISK_FACTOR"
	RelationDiagnosedBy        RelationType = "DIAGNOSED_BY"
	RelationTreatedBy          RelationType = "TREATED_BY"
	RelationCanCause           RelationType = "CAN_CAUSE"
	RelationRecommendedFor     RelationType = "RECOMMENDED_FOR"
	RelationContraindicatedFor RelationType = "CONTRAINDICATED_FOR"
	RelationRecommends         RelationType = "RECOMMENDS"
	RelationAnswers            RelationType = "ANSWERS"
)

// Relation represents a typed edge between two entities. Each relation type
// is constrained to fixed source/target entity type pairs (see the schema
// package).
type Relation struct {
	ID         int          `json:"id"`
	RID        uuid.UUID    `json:"rid"`
	Type       RelationType `json:"relation_type"`
	SourceID   int          `json:"source_id"`
	TargetID   int          `json:"target_id"`
	Attributes Metadata     `json:"attributes,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
}

// PathStep is one traversed edge, with both endpoints resolved.
type PathStep struct {
	Relation RelationType `json:"relation"`
	From     EntityRef    `json:"from"`
	To       EntityRef    `json:"to"`
}

// Path is a sequence of steps from a seed entity outward.
type Path []PathStep

// Hops returns the path length in edges.
func (p Path) Hops() int {
	return len(p)
}

// Terminal returns the last entity on the path, or the zero EntityRef for an
// empty path.
func (p Path) Terminal() EntityRef {
	if len(p) == 0 {
		return EntityRef{}
	}
	return p[len(p)-1].To
}
