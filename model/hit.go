package model

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// SemanticHit is a vector-search result. Score is cosine similarity in [0,1].
type SemanticHit struct {
	ChunkID int     `json:"chunk_id"`
	Score   float64 `json:"score"`
	Snippet string  `json:"snippet"`
	Source  string  `json:"source,omitempty"`
}

// GraphHit is a scored traversal result. Entity is the terminal entity of
// the path; Score is in [0,1].
type GraphHit struct {
	Entity EntityRef `json:"entity_ref"`
	Path   Path      `json:"path"`
	Score  float64   `json:"score"`
}

// FusedHit is one merged evidence item. A hit carries graph provenance,
// semantic provenance, or both when deduplication matched a chunk to an
// entity.
type FusedHit struct {
	Entity        *EntityRef `json:"entity_ref,omitempty"`
	Path          Path       `json:"path,omitempty"`
	ChunkID       int        `json:"chunk_id,omitempty"`
	Snippet       string     `json:"snippet,omitempty"`
	Source        string     `json:"source,omitempty"`
	CombinedScore float64    `json:"combined_score"`
	GraphScore    float64    `json:"graph_score,omitempty"`
	SemanticScore float64    `json:"semantic_score,omitempty"`
	// 1-based ranks within the original hit lists, 0 = not present.
	GraphRank    int `json:"graph_rank,omitempty"`
	SemanticRank int `json:"semantic_rank,omitempty"`
}

// FromGraph reports whether the hit carries graph provenance.
func (h *FusedHit) FromGraph() bool { return h.GraphRank > 0 }

// FromSemantic reports whether the hit carries semantic provenance.
func (h *FusedHit) FromSemantic() bool { return h.SemanticRank > 0 }

// ContextText renders the hit as evidence text for the answer generator.
func (h *FusedHit) ContextText() string {
	var b strings.Builder

	if h.Entity != nil {
		fmt.Fprintf(&b, "[%s] %s", h.Entity.Type, h.Entity.Name)
		if len(h.Path) > 0 {
			b.WriteString("\n")
			b.WriteString(renderPath(h.Path))
		}
	}
	if h.Snippet != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(h.Snippet)
	}

	return b.String()
}

// Size returns the serialized size of the hit in characters, the unit the
// fusion budget is accounted in.
func (h *FusedHit) Size() int {
	return utf8.RuneCountInString(h.ContextText())
}

func renderPath(p Path) string {
	if len(p) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s(%s)", p[0].From.Type, p[0].From.Name)
	for _, step := range p {
		fmt.Fprintf(&b, " -[%s]-> %s(%s)", step.Relation, step.To.Type, step.To.Name)
	}
	return b.String()
}

// FusedContext is the ordered, deduplicated, budget-bounded evidence set
// handed to the answer generator.
type FusedContext struct {
	Hits      []*FusedHit `json:"hits"`
	TotalSize int         `json:"total_size"`
}

// Empty reports whether no evidence survived retrieval and fusion.
func (c *FusedContext) Empty() bool {
	return c == nil || len(c.Hits) == 0
}

// Text renders all hits as one evidence block.
func (c *FusedContext) Text() string {
	parts := make([]string, 0, len(c.Hits))
	for _, hit := range c.Hits {
		parts = append(parts, hit.ContextText())
	}
	return strings.Join(parts, "\n\n")
}

// Sources returns the distinct provenance sources of the hits, in hit order.
func (c *FusedContext) Sources() []string {
	var sources []string
	seen := map[string]bool{}
	for _, hit := range c.Hits {
		var s string
		switch {
		case hit.Source != "":
			s = hit.Source
		case hit.Entity != nil:
			s = fmt.Sprintf("graph:%s", hit.Entity.Name)
		default:
			continue
		}
		if !seen[s] {
			seen[s] = true
			sources = append(sources, s)
		}
	}
	return sources
}
