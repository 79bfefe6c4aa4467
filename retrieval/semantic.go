// Package retrieval combines the graph and semantic modalities: it runs
// both retrievers concurrently, fuses their hits into one ranked evidence
// set, and degrades gracefully when a modality fails.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/graphclinic/gdmrag/model"
	"github.com/graphclinic/gdmrag/vector"
)

// encodeRetryDelay is the backoff before the single encode retry.
const encodeRetryDelay = 100 * time.Millisecond

// SemanticRetriever embeds the query and searches the in-memory vector
// index for similar chunks.
type SemanticRetriever struct {
	embedder *vector.Embedder
	index    *vector.Index
	log      *slog.Logger
}

// NewSemanticRetriever creates a semantic retriever over an embedder and a
// serving index.
func NewSemanticRetriever(embedder *vector.Embedder, index *vector.Index, log *slog.Logger) *SemanticRetriever {
	return &SemanticRetriever{
		embedder: embedder,
		index:    index,
		log:      log,
	}
}

// Retrieve embeds the query text and returns the chunks above the
// similarity floor, best first. The index model version must match the
// embedder; comparing vectors across model versions is silently wrong, so
// a mismatch fails with ErrEncoding instead.
func (r *SemanticRetriever) Retrieve(ctx context.Context, query *model.Query, config *model.QueryConfig) ([]model.SemanticHit, error) {
	if indexVersion := r.index.ModelVersion(); indexVersion != r.embedder.Version {
		return nil, fmt.Errorf("%w: index built with model %q but embedder is %q, rebuild required",
			model.ErrEncoding, indexVersion, r.embedder.Version)
	}

	vec, truncated, err := r.encodeWithRetry(ctx, query.RawText)
	if err != nil {
		return nil, err
	}
	if truncated {
		r.log.Warn("Query truncated before embedding", slog.Int("max_runes", r.embedder.MaxInputRunes))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	matches, err := r.index.Search(vec, config.TopKSemantic)
	if err != nil {
		return nil, err
	}

	hits := make([]model.SemanticHit, 0, len(matches))
	for _, match := range matches {
		if match.Score < config.MinSimilarity {
			continue
		}
		hits = append(hits, model.SemanticHit{
			ChunkID: match.ChunkID,
			Score:   match.Score,
			Snippet: match.Text,
			Source:  match.Source,
		})
	}

	return hits, nil
}

// encodeWithRetry retries a failed encode once after a short backoff.
// Embedding backends fail transiently under load; a second failure is
// treated as real.
func (r *SemanticRetriever) encodeWithRetry(ctx context.Context, text string) ([]float32, bool, error) {
	vec, truncated, err := r.embedder.Encode(text)
	if err == nil {
		return vec, truncated, nil
	}

	r.log.Warn("Encode failed, retrying once", slog.Any("error", err))

	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case <-time.After(encodeRetryDelay):
	}

	return r.embedder.Encode(text)
}
