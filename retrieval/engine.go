package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/graphclinic/gdmrag/graph"
	"github.com/graphclinic/gdmrag/model"
)

// bothModalitiesBonus is added to the confidence when graph and semantic
// evidence both survived fusion.
const bothModalitiesBonus = 0.05

// confidenceFloor and confidenceCeiling clamp the derived confidence.
const (
	confidenceFloor   = 0.1
	confidenceCeiling = 1.0
)

// adaptiveWeights are the per-category modality weight presets, as
// (semantic, graph) pairs. Structured questions lean on the graph;
// open-ended ones lean on text similarity.
var adaptiveWeights = map[model.QueryCategory][2]float64{
	model.CategorySymptom:    {0.35, 0.65},
	model.CategoryDiagnosis:  {0.35, 0.65},
	model.CategoryRisk:       {0.35, 0.65},
	model.CategoryCause:      {0.4, 0.6},
	model.CategoryTreatment:  {0.5, 0.5},
	model.CategoryPrevention: {0.5, 0.5},
	model.CategoryDiet:       {0.5, 0.5},
	model.CategoryGeneral:    {0.6, 0.4},
}

// Result is the outcome of one hybrid retrieval.
type Result struct {
	Query      model.Query         `json:"query"`
	Context    *model.FusedContext `json:"context"`
	Confidence float64             `json:"confidence"`
	// Degraded lists the modalities that contributed nothing because they
	// timed out or failed.
	Degraded []string `json:"degraded,omitempty"`
}

// Engine runs both retrieval modalities concurrently and fuses their hits.
// A modality that times out or fails degrades the result instead of failing
// it; only both modalities coming back empty is an error.
type Engine struct {
	graph    *graph.Retriever
	semantic *SemanticRetriever
	log      *slog.Logger
}

// NewEngine creates a hybrid retrieval engine.
func NewEngine(graphRetriever *graph.Retriever, semanticRetriever *SemanticRetriever, log *slog.Logger) *Engine {
	return &Engine{
		graph:    graphRetriever,
		semantic: semanticRetriever,
		log:      log,
	}
}

// BuildQuery classifies the raw question text. Blank text is an invalid
// query.
func (e *Engine) BuildQuery(rawText string) (*model.Query, error) {
	if strings.TrimSpace(rawText) == "" {
		return nil, fmt.Errorf("%w: blank query text", model.ErrInvalidQuery)
	}

	return &model.Query{
		RawText:  rawText,
		Category: e.graph.Lexicon().Classify(rawText),
	}, nil
}

type modalityOutcome[T any] struct {
	hits []T
	err  error
}

// Retrieve runs the full hybrid pipeline for a question. The two modalities
// run concurrently under their own deadlines from config; fusion weights
// follow the category preset when config.AdaptiveWeights is set.
func (e *Engine) Retrieve(ctx context.Context, rawText string, config *model.QueryConfig) (*Result, error) {
	query, err := e.BuildQuery(rawText)
	if err != nil {
		return nil, err
	}

	graphCh := make(chan modalityOutcome[model.GraphHit], 1)
	semanticCh := make(chan modalityOutcome[model.SemanticHit], 1)

	go func() {
		graphCtx, cancel := context.WithTimeout(ctx, config.GraphTimeout)
		defer cancel()
		hits, err := e.graph.Retrieve(graphCtx, query, config)
		graphCh <- modalityOutcome[model.GraphHit]{hits: hits, err: err}
	}()

	go func() {
		semanticCtx, cancel := context.WithTimeout(ctx, config.SemanticTimeout)
		defer cancel()
		hits, err := e.semantic.Retrieve(semanticCtx, query, config)
		semanticCh <- modalityOutcome[model.SemanticHit]{hits: hits, err: err}
	}()

	graphOutcome := <-graphCh
	semanticOutcome := <-semanticCh

	// The caller walking away aborts the whole request; a modality hitting
	// its own deadline only degrades it.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var degraded []string
	graphHits := graphOutcome.hits
	if graphOutcome.err != nil {
		if errors.Is(graphOutcome.err, model.ErrInvalidQuery) {
			return nil, graphOutcome.err
		}
		e.log.Warn("Graph retrieval degraded", slog.Any("error", e.wrapTimeout(graphOutcome.err)))
		graphHits = nil
		degraded = append(degraded, "graph")
	}
	semanticHits := semanticOutcome.hits
	if semanticOutcome.err != nil {
		e.log.Warn("Semantic retrieval degraded", slog.Any("error", e.wrapTimeout(semanticOutcome.err)))
		semanticHits = nil
		degraded = append(degraded, "semantic")
	}

	fusionConfig := *config
	if config.AdaptiveWeights {
		weights := adaptiveWeights[query.Category]
		fusionConfig.SemanticWeight, fusionConfig.GraphWeight = weights[0], weights[1]
	}

	fusedContext := Fuse(semanticHits, graphHits, &fusionConfig)
	if fusedContext.Empty() {
		return nil, fmt.Errorf("%w: no evidence for %q", model.ErrNoContext, rawText)
	}

	result := &Result{
		Query:      *query,
		Context:    fusedContext,
		Confidence: deriveConfidence(fusedContext),
		Degraded:   degraded,
	}

	e.log.Debug("Hybrid retrieval complete",
		slog.String("category", string(query.Category)),
		slog.Int("graph_hits", len(graphHits)),
		slog.Int("semantic_hits", len(semanticHits)),
		slog.Int("fused_hits", len(fusedContext.Hits)),
		slog.Float64("confidence", result.Confidence))

	return result, nil
}

// wrapTimeout tags deadline errors with the retrieval timeout sentinel so
// callers inspecting the degradation log can tell timeouts from failures.
func (e *Engine) wrapTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", model.ErrRetrievalTimeout, err)
	}
	return err
}

// deriveConfidence derives answer confidence from the fused evidence: the
// mean of the top three combined scores, with a small bonus when both
// modalities contributed, clamped to [0.1, 1.0].
func deriveConfidence(fusedContext *model.FusedContext) float64 {
	if fusedContext.Empty() {
		return confidenceFloor
	}

	top := fusedContext.Hits
	if len(top) > 3 {
		top = top[:3]
	}

	var sum float64
	var hasGraph, hasSemantic bool
	for _, hit := range top {
		sum += hit.CombinedScore
		hasGraph = hasGraph || hit.FromGraph()
		hasSemantic = hasSemantic || hit.FromSemantic()
	}

	confidence := sum / float64(len(top))
	if hasGraph && hasSemantic {
		confidence += bothModalitiesBonus
	}

	if confidence < confidenceFloor {
		return confidenceFloor
	}
	if confidence > confidenceCeiling {
		return confidenceCeiling
	}
	return confidence
}
