package model

import "time"

// QueryCategory is a coarse lexical classification of the question. It
// selects the default traversal relation filter and, when adaptive weights
// are enabled, the modality weight preset.
type QueryCategory string

const (
	CategorySymptom    QueryCategory = "symptom"
	CategoryDiagnosis  QueryCategory = "diagnosis"
	CategoryTreatment  QueryCategory = "treatment"
	CategoryCause      QueryCategory = "cause"
	CategoryPrevention QueryCategory = "prevention"
	CategoryDiet       QueryCategory = "diet"
	CategoryRisk       QueryCategory = "risk"
	CategoryGeneral    QueryCategory = "general"
)

// Seed is a graph entity matched against the query text.
type Seed struct {
	Entity     EntityRef `json:"entity"`
	Confidence float64   `json:"confidence"`
	Matched    string    `json:"matched"` // the query token that matched
}

// Query is the per-request retrieval input. It is created by the pipeline
// and discarded after response assembly.
type Query struct {
	RawText  string        `json:"raw_text"`
	Category QueryCategory `json:"category"`
	Seeds    []Seed        `json:"seeds,omitempty"`
}

// QueryConfig represents configuration for a retrieval query.
type QueryConfig struct {
	// Vector search parameters
	TopKSemantic  int     `json:"top_k_semantic"`
	MinSimilarity float64 `json:"min_similarity"`

	// Graph traversal parameters
	MaxHops       int            `json:"max_hops"`
	RelationTypes []RelationType `json:"relation_types,omitempty"` // nil = category default

	// Fusion parameters
	BudgetChars    int     `json:"budget_chars"`
	SemanticWeight float64 `json:"semantic_weight"`
	GraphWeight    float64 `json:"graph_weight"`

	// AdaptiveWeights derives the modality weights from the query category
	// instead of SemanticWeight/GraphWeight.
	AdaptiveWeights bool `json:"adaptive_weights"`

	// Per-modality deadlines. A modality that misses its deadline
	// contributes an empty hit list.
	SemanticTimeout time.Duration `json:"semantic_timeout"`
	GraphTimeout    time.Duration `json:"graph_timeout"`
}

// DefaultQueryConfig returns a sensible default configuration.
func DefaultQueryConfig() QueryConfig {
	return QueryConfig{
		TopKSemantic:    5,
		MinSimilarity:   0.2,
		MaxHops:         2,
		BudgetChars:     2000,
		SemanticWeight:  0.5,
		GraphWeight:     0.5,
		AdaptiveWeights: true,
		SemanticTimeout: 5 * time.Second,
		GraphTimeout:    5 * time.Second,
	}
}
