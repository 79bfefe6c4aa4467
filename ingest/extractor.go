package ingest

import (
	"sort"
	"strings"

	"github.com/graphclinic/gdmrag/graph"
	"github.com/graphclinic/gdmrag/model"
)

// categoryTypes maps lexicon keyword groups to graph entity types.
var categoryTypes = map[string]model.EntityType{
	"disease":      model.EntityDisease,
	"symptom":      model.EntitySymptom,
	"treatment":    model.EntityTreatment,
	"diagnostic":   model.EntityDiagnosticMethod,
	"risk":         model.EntityRiskFactor,
	"nutrition":    model.EntityFood,
	"complication": model.EntityComplication,
}

// Candidate is a lexicon term found in a document. Candidates are proposals
// for graph curation, not finished entities: the schema requires attributes
// (description, modifiable, ...) that only a curator can fill in.
type Candidate struct {
	Type    model.EntityType `json:"type"`
	Name    string           `json:"name"`
	Context string           `json:"context"` // the sentence the term appeared in
}

// Extractor finds medical vocabulary in text using the retrieval lexicon, so
// the ingested documents and the graph share one term inventory.
type Extractor struct {
	lexicon *graph.Lexicon
}

// NewExtractor creates an extractor over the given lexicon. A nil lexicon
// falls back to the built-in vocabulary.
func NewExtractor(lexicon *graph.Lexicon) *Extractor {
	if lexicon == nil {
		lexicon = graph.DefaultLexicon()
	}
	return &Extractor{lexicon: lexicon}
}

// Extract returns the entity candidates found in the text, one per distinct
// (type, name) pair, in first-occurrence order.
func (e *Extractor) Extract(text string) []Candidate {
	var candidates []Candidate
	seen := map[Candidate]bool{}

	for _, sentence := range splitSentences(text) {
		for _, category := range sortedCategories(e.lexicon.Keywords) {
			entityType, ok := categoryTypes[category]
			if !ok {
				continue
			}

			for _, keyword := range e.lexicon.Keywords[category] {
				if !strings.Contains(sentence, keyword) {
					continue
				}

				key := Candidate{Type: entityType, Name: keyword}
				if seen[key] {
					continue
				}
				seen[key] = true

				candidates = append(candidates, Candidate{
					Type:    entityType,
					Name:    keyword,
					Context: sentence,
				})
			}
		}
	}

	return candidates
}

// sortedCategories returns map keys in stable order.
func sortedCategories(keywords map[string][]string) []string {
	categories := make([]string, 0, len(keywords))
	for category := range keywords {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories
}
