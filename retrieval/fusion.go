package retrieval

import (
	"sort"
	"strings"

	"github.com/graphclinic/gdmrag/model"
)

// Fuse merges the two modality hit lists into one ranked, deduplicated,
// budget-bounded evidence set. Scores are min-max normalized within each
// modality before weighting, so the two scales are comparable. A semantic
// chunk whose text mentions a graph entity is merged with that entity's hit
// instead of appearing twice. The result is fully deterministic for a given
// input order.
func Fuse(semanticHits []model.SemanticHit, graphHits []model.GraphHit, config *model.QueryConfig) *model.FusedContext {
	semanticWeight, graphWeight := config.SemanticWeight, config.GraphWeight
	if semanticWeight+graphWeight <= 0 {
		semanticWeight, graphWeight = 0.5, 0.5
	}

	semanticNorm := normalizeScores(semanticScores(semanticHits))
	graphNorm := normalizeScores(graphScores(graphHits))

	// Graph hits seed the fused list in their original order.
	fused := make([]*model.FusedHit, 0, len(graphHits)+len(semanticHits))
	for i := range graphHits {
		hit := graphHits[i]
		fused = append(fused, &model.FusedHit{
			Entity:     &hit.Entity,
			Path:       hit.Path,
			GraphScore: graphNorm[i],
			GraphRank:  i + 1,
		})
	}

	// Semantic hits merge into the first graph hit whose entity the chunk
	// text mentions; unmatched chunks stand alone.
	for i := range semanticHits {
		hit := semanticHits[i]
		merged := false
		for _, candidate := range fused {
			if candidate.FromSemantic() || candidate.Entity == nil {
				continue
			}
			if chunkMentionsEntity(hit.Snippet, candidate.Entity.Name) {
				candidate.ChunkID = hit.ChunkID
				candidate.Snippet = hit.Snippet
				candidate.Source = hit.Source
				candidate.SemanticScore = semanticNorm[i]
				candidate.SemanticRank = i + 1
				merged = true
				break
			}
		}
		if !merged {
			fused = append(fused, &model.FusedHit{
				ChunkID:       hit.ChunkID,
				Snippet:       hit.Snippet,
				Source:        hit.Source,
				SemanticScore: semanticNorm[i],
				SemanticRank:  i + 1,
			})
		}
	}

	order := map[*model.FusedHit]int{}
	for i, hit := range fused {
		hit.CombinedScore = 0
		if hit.FromSemantic() {
			hit.CombinedScore += semanticWeight * hit.SemanticScore
		}
		if hit.FromGraph() {
			hit.CombinedScore += graphWeight * hit.GraphScore
		}
		order[hit] = i
	}

	// Combined score descending; ties prefer graph provenance, then the
	// original order.
	sort.SliceStable(fused, func(a, b int) bool {
		if fused[a].CombinedScore != fused[b].CombinedScore {
			return fused[a].CombinedScore > fused[b].CombinedScore
		}
		if fused[a].FromGraph() != fused[b].FromGraph() {
			return fused[a].FromGraph()
		}
		return order[fused[a]] < order[fused[b]]
	})

	// Greedy budget truncation. Items are whole: a hit that does not fit is
	// dropped along with everything after it, never split.
	context := &model.FusedContext{}
	for _, hit := range fused {
		size := hit.Size()
		if config.BudgetChars > 0 && context.TotalSize+size > config.BudgetChars {
			break
		}
		context.Hits = append(context.Hits, hit)
		context.TotalSize += size
	}

	return context
}

func semanticScores(hits []model.SemanticHit) []float64 {
	scores := make([]float64, len(hits))
	for i, hit := range hits {
		scores[i] = hit.Score
	}
	return scores
}

func graphScores(hits []model.GraphHit) []float64 {
	scores := make([]float64, len(hits))
	for i, hit := range hits {
		scores[i] = hit.Score
	}
	return scores
}

// normalizeScores min-max normalizes into [0,1]. A single hit, or a list
// with zero variance, normalizes to 1.0 so the modality still contributes.
func normalizeScores(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}

	minScore, maxScore := scores[0], scores[0]
	for _, score := range scores[1:] {
		if score < minScore {
			minScore = score
		}
		if score > maxScore {
			maxScore = score
		}
	}

	normalized := make([]float64, len(scores))
	if maxScore == minScore {
		for i := range normalized {
			normalized[i] = 1.0
		}
		return normalized
	}

	for i, score := range scores {
		normalized[i] = (score - minScore) / (maxScore - minScore)
	}
	return normalized
}

// chunkMentionsEntity reports whether the chunk text contains the entity
// name, comparing case-insensitively with whitespace collapsed.
func chunkMentionsEntity(chunkText, entityName string) bool {
	if entityName == "" {
		return false
	}
	normalize := func(s string) string {
		return strings.ToLower(strings.Join(strings.Fields(s), ""))
	}
	return strings.Contains(normalize(chunkText), normalize(entityName))
}
