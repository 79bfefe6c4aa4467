package graph

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/graphclinic/gdmrag/model"
	"github.com/graphclinic/gdmrag/schema"
)

// Seed confidence by match kind. Exact name matches are trusted most,
// synonym expansions less, substring matches least.
const (
	exactMatchConfidence   = 1.0
	synonymMatchConfidence = 0.8
	fuzzyMatchConfidence   = 0.6
)

// hopDecay penalizes longer paths; each hop beyond the first multiplies the
// score by this factor.
const hopDecay = 0.7

// maxSeeds bounds the number of seed entities per query.
const maxSeeds = 5

// searchLimit bounds the number of store matches considered per keyword.
const searchLimit = 10

// relationWeights is the domain-curated importance of each relation type
// when it is the first edge of a path.
var relationWeights = map[model.RelationType]float64{
	model.RelationHasRiskFactor:      1.0,
	model.RelationHasSymptom:         1.0,
	model.RelationDiagnosedBy:        1.0,
	model.RelationTreatedBy:          1.0,
	model.RelationCanCause:           0.9,
	model.RelationRecommendedFor:     0.9,
	model.RelationContraindicatedFor: 0.9,
	model.RelationRecommends:         0.8,
	model.RelationAnswers:            0.7,
	model.RelationIsA:                0.5,
}

// categoryRelations maps a query category to the relation types worth
// traversing for it. General queries traverse all types.
var categoryRelations = map[model.QueryCategory][]model.RelationType{
	model.CategorySymptom:    {model.RelationHasSymptom, model.RelationIsA},
	model.CategoryDiagnosis:  {model.RelationDiagnosedBy, model.RelationRecommends},
	model.CategoryTreatment:  {model.RelationTreatedBy, model.RelationRecommends},
	model.CategoryCause:      {model.RelationHasRiskFactor, model.RelationCanCause},
	model.CategoryPrevention: {model.RelationHasRiskFactor, model.RelationRecommendedFor},
	model.CategoryDiet:       {model.RelationRecommendedFor, model.RelationContraindicatedFor},
	model.CategoryRisk:       {model.RelationHasRiskFactor, model.RelationCanCause},
}

// RelationFilter returns the default traversal filter for a query category,
// or nil (all relation types) for general queries.
func RelationFilter(category model.QueryCategory) []model.RelationType {
	return categoryRelations[category]
}

// cjkToken matches 2-4 character Chinese terms for fallback extraction.
var cjkToken = regexp.MustCompile(`[\x{4e00}-\x{9fff}]{2,4}`)

// latinToken matches latin/digit terms such as OGTT or BMI.
var latinToken = regexp.MustCompile(`[A-Za-z][A-Za-z0-9]{1,}`)

// Retriever matches query text against known entity names and traverses the
// knowledge graph outward from the matched seeds.
type Retriever struct {
	store   Store
	lexicon *Lexicon
	log     *slog.Logger
}

// NewRetriever creates a graph retriever over a read-only store handle.
func NewRetriever(store Store, lexicon *Lexicon, log *slog.Logger) *Retriever {
	if lexicon == nil {
		lexicon = DefaultLexicon()
	}
	return &Retriever{
		store:   store,
		lexicon: lexicon,
		log:     log,
	}
}

// Lexicon returns the retriever's vocabulary.
func (r *Retriever) Lexicon() *Lexicon {
	return r.lexicon
}

// ExtractEntities matches query tokens against known entity names. Lexical
// only: exact matches, curated synonym expansions, and substring fallback.
// An empty result is not an error.
func (r *Retriever) ExtractEntities(ctx context.Context, queryText string) ([]model.Seed, error) {
	keywords := r.lexicon.MatchKeywords(queryText)
	if len(keywords) == 0 {
		keywords = r.fallbackTokens(queryText)
	}
	if len(keywords) > maxSeeds {
		keywords = keywords[:maxSeeds]
	}

	best := map[model.EntityRef]model.Seed{}

	record := func(entity *model.Entity, confidence float64, matched string) {
		ref := entity.Ref()
		if existing, ok := best[ref]; ok && existing.Confidence >= confidence {
			return
		}
		best[ref] = model.Seed{Entity: ref, Confidence: confidence, Matched: matched}
	}

	for _, keyword := range keywords {
		entities, err := r.store.SearchEntities(ctx, keyword, searchLimit)
		if err != nil {
			return nil, err
		}
		for _, entity := range entities {
			if normalizeName(entity.Name) == normalizeName(keyword) {
				record(entity, exactMatchConfidence, keyword)
			} else {
				record(entity, fuzzyMatchConfidence, keyword)
			}
		}

		for _, synonym := range r.lexicon.Expand(keyword) {
			entities, err := r.store.SearchEntities(ctx, synonym, searchLimit)
			if err != nil {
				return nil, err
			}
			for _, entity := range entities {
				if normalizeName(entity.Name) == normalizeName(synonym) {
					record(entity, synonymMatchConfidence, keyword)
				}
			}
		}
	}

	seeds := make([]model.Seed, 0, len(best))
	for _, seed := range best {
		seeds = append(seeds, seed)
	}

	// Deterministic order: confidence, then type, then name.
	sort.Slice(seeds, func(a, b int) bool {
		if seeds[a].Confidence != seeds[b].Confidence {
			return seeds[a].Confidence > seeds[b].Confidence
		}
		if seeds[a].Entity.Type != seeds[b].Entity.Type {
			return seeds[a].Entity.Type < seeds[b].Entity.Type
		}
		return seeds[a].Entity.Name < seeds[b].Entity.Name
	})

	if len(seeds) > maxSeeds {
		seeds = seeds[:maxSeeds]
	}

	return seeds, nil
}

// fallbackTokens extracts candidate medical terms when no lexicon keyword
// matched.
func (r *Retriever) fallbackTokens(queryText string) []string {
	var tokens []string
	seen := map[string]bool{}

	for _, token := range cjkToken.FindAllString(queryText, -1) {
		if !r.lexicon.IsStopword(token) && !seen[token] {
			seen[token] = true
			tokens = append(tokens, token)
		}
	}
	for _, token := range latinToken.FindAllString(queryText, -1) {
		if !seen[token] {
			seen[token] = true
			tokens = append(tokens, token)
		}
	}

	return tokens
}

// SeedPath is one traversal result: a path rooted at a seed entity.
type SeedPath struct {
	Seed model.Seed
	Path model.Path
}

// Traverse expands breadth-first from each seed along the relation types in
// relationFilter, up to maxHops edges. A nil filter traverses all relation
// types. Cycles are prevented by a per-seed visited set. An unknown
// relation type in the filter fails with ErrInvalidQuery.
func (r *Retriever) Traverse(ctx context.Context, seeds []model.Seed, relationFilter []model.RelationType, maxHops int) ([]SeedPath, error) {
	for _, relationType := range relationFilter {
		if !schema.KnownRelationType(relationType) {
			return nil, fmt.Errorf("%w: unknown relation type %q in filter", model.ErrInvalidQuery, relationType)
		}
	}
	if maxHops <= 0 {
		maxHops = 1
	}

	var paths []SeedPath
	for _, seed := range seeds {
		seedPaths, err := r.traverseSeed(ctx, seed, relationFilter, maxHops)
		if err != nil {
			return nil, err
		}
		paths = append(paths, seedPaths...)
	}

	return paths, nil
}

type traversalNode struct {
	entity *model.Entity
	path   model.Path
}

func (r *Retriever) traverseSeed(ctx context.Context, seed model.Seed, relationFilter []model.RelationType, maxHops int) ([]SeedPath, error) {
	root, err := r.store.LookupEntity(ctx, seed.Entity.Type, seed.Entity.Name)
	if err != nil {
		return nil, err
	}
	if root == nil {
		return nil, nil
	}

	visited := map[int]bool{root.ID: true}
	queue := []traversalNode{{entity: root}}
	var paths []SeedPath

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		current := queue[0]
		queue = queue[1:]

		if len(current.path) >= maxHops {
			continue
		}

		neighbors, err := r.store.Neighbors(ctx, current.entity.ID, relationFilter)
		if err != nil {
			return nil, err
		}

		for _, neighbor := range neighbors {
			if visited[neighbor.Entity.ID] {
				continue
			}

			// Defensive re-check of the schema triple; ingestion already
			// enforced it, but a malformed edge must not leak into results.
			sourceType, targetType := current.entity.Type, neighbor.Entity.Type
			if !neighbor.Outgoing {
				sourceType, targetType = targetType, sourceType
			}
			if err := schema.ValidateRelation(neighbor.Relation, sourceType, targetType); err != nil {
				r.log.Warn("Skipping edge violating schema",
					slog.String("relation", string(neighbor.Relation)),
					slog.String("source_type", string(sourceType)),
					slog.String("target_type", string(targetType)))
				continue
			}

			visited[neighbor.Entity.ID] = true

			path := make(model.Path, len(current.path), len(current.path)+1)
			copy(path, current.path)
			path = append(path, model.PathStep{
				Relation: neighbor.Relation,
				From:     current.entity.Ref(),
				To:       neighbor.Entity.Ref(),
			})

			paths = append(paths, SeedPath{Seed: seed, Path: path})
			queue = append(queue, traversalNode{entity: neighbor.Entity, path: path})
		}
	}

	return paths, nil
}

// ScorePath scores a traversal path:
//
//	score = seed confidence * relation weight of first edge * hopDecay^(hops-1)
func ScorePath(sp SeedPath) float64 {
	hops := sp.Path.Hops()
	if hops == 0 {
		return 0
	}

	weight, ok := relationWeights[sp.Path[0].Relation]
	if !ok {
		weight = 0.5
	}

	score := sp.Seed.Confidence * weight
	for i := 1; i < hops; i++ {
		score *= hopDecay
	}

	return score
}

// Retrieve runs the full graph modality: seeds from the query (extracted on
// demand when absent), category-driven relation filter, traversal, and path
// scoring. At most one GraphHit is returned per distinct entity, keeping
// the best-scoring path.
func (r *Retriever) Retrieve(ctx context.Context, query *model.Query, config *model.QueryConfig) ([]model.GraphHit, error) {
	seeds := query.Seeds
	if len(seeds) == 0 {
		extracted, err := r.ExtractEntities(ctx, query.RawText)
		if err != nil {
			return nil, err
		}
		seeds = extracted
	}
	if len(seeds) == 0 {
		return nil, nil
	}

	relationFilter := config.RelationTypes
	if relationFilter == nil {
		relationFilter = RelationFilter(query.Category)
	}

	paths, err := r.Traverse(ctx, seeds, relationFilter, config.MaxHops)
	if err != nil {
		return nil, err
	}

	best := map[model.EntityRef]model.GraphHit{}
	order := map[model.EntityRef]int{}
	for i, sp := range paths {
		hit := model.GraphHit{
			Entity: sp.Path.Terminal(),
			Path:   sp.Path,
			Score:  ScorePath(sp),
		}
		if existing, ok := best[hit.Entity]; ok && existing.Score >= hit.Score {
			continue
		}
		if _, ok := order[hit.Entity]; !ok {
			order[hit.Entity] = i
		}
		best[hit.Entity] = hit
	}

	hits := make([]model.GraphHit, 0, len(best))
	for _, hit := range best {
		hits = append(hits, hit)
	}

	// Score descending, ties by first discovery order.
	sort.Slice(hits, func(a, b int) bool {
		if hits[a].Score != hits[b].Score {
			return hits[a].Score > hits[b].Score
		}
		return order[hits[a].Entity] < order[hits[b].Entity]
	})

	r.log.Debug("Graph retrieval complete",
		slog.Int("seeds", len(seeds)),
		slog.Int("paths", len(paths)),
		slog.Int("hits", len(hits)))

	return hits, nil
}

// normalizeName lowercases and strips all whitespace for entity name
// comparison.
func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), ""))
}
