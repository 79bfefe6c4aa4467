package retrieval

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/graphclinic/gdmrag/graph"
	"github.com/graphclinic/gdmrag/model"
	"github.com/graphclinic/gdmrag/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeEdge struct {
	relation model.RelationType
	sourceID int
	targetID int
}

// engineStore is an in-memory graph.Store with an optional per-call delay
// for timeout tests.
type engineStore struct {
	entities []*model.Entity
	edges    []storeEdge
	delay    time.Duration
}

func (s *engineStore) wait(ctx context.Context) error {
	if s.delay == 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.delay):
		return nil
	}
}

func (s *engineStore) LookupEntity(ctx context.Context, entityType model.EntityType, name string) (*model.Entity, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	for _, e := range s.entities {
		if e.Type == entityType && e.Name == name {
			return e, nil
		}
	}
	return nil, nil
}

func (s *engineStore) SearchEntities(ctx context.Context, term string, limit int) ([]*model.Entity, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	var matches []*model.Entity
	for _, e := range s.entities {
		if strings.Contains(e.Name, term) {
			matches = append(matches, e)
			if len(matches) == limit {
				break
			}
		}
	}
	return matches, nil
}

func (s *engineStore) Neighbors(ctx context.Context, entityID int, relationTypes []model.RelationType) ([]*graph.Neighbor, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	byID := map[int]*model.Entity{}
	for _, e := range s.entities {
		byID[e.ID] = e
	}
	wanted := func(rt model.RelationType) bool {
		if relationTypes == nil {
			return true
		}
		for _, t := range relationTypes {
			if t == rt {
				return true
			}
		}
		return false
	}

	var neighbors []*graph.Neighbor
	for _, edge := range s.edges {
		if !wanted(edge.relation) {
			continue
		}
		switch entityID {
		case edge.sourceID:
			neighbors = append(neighbors, &graph.Neighbor{Relation: edge.relation, Entity: byID[edge.targetID], Outgoing: true})
		case edge.targetID:
			neighbors = append(neighbors, &graph.Neighbor{Relation: edge.relation, Entity: byID[edge.sourceID], Outgoing: false})
		}
	}
	return neighbors, nil
}

func gdmEngineStore() *engineStore {
	return &engineStore{
		entities: []*model.Entity{
			{ID: 1, Type: model.EntityDisease, Name: "妊娠期糖尿病"},
			{ID: 2, Type: model.EntityRiskFactor, Name: "肥胖"},
			{ID: 3, Type: model.EntityRiskFactor, Name: "高龄"},
			{ID: 4, Type: model.EntityRiskFactor, Name: "家族史"},
		},
		edges: []storeEdge{
			{model.RelationHasRiskFactor, 1, 2},
			{model.RelationHasRiskFactor, 1, 3},
			{model.RelationHasRiskFactor, 1, 4},
		},
	}
}

// keywordEmbedder encodes text onto one of two axes depending on whether it
// mentions the disease, giving predictable similarities.
func keywordEmbedder() *vector.Embedder {
	return vector.NewEmbedder(func(text string) ([]float32, error) {
		if strings.Contains(text, "糖尿病") {
			return []float32{1, 0}, nil
		}
		return []float32{0, 1}, nil
	}, "test-model")
}

func newTestEngine(t *testing.T, store graph.Store) *Engine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	index := vector.NewIndex(2, "test-model")
	require.NoError(t, index.Add(vector.Entry{
		ChunkID: 1,
		Vector:  []float32{1, 0},
		Text:    "妊娠期糖尿病的风险因素包括肥胖、高龄和糖尿病家族史。",
		Source:  "guideline.md",
	}))
	require.NoError(t, index.Add(vector.Entry{
		ChunkID: 2,
		Vector:  []float32{0.9, 0.1},
		Text:    "孕期血糖控制目标为空腹血糖低于5.3mmol/L。",
		Source:  "guideline.md",
	}))
	require.NoError(t, index.Add(vector.Entry{
		ChunkID: 3,
		Vector:  []float32{0, 1},
		Text:    "本章介绍产后护理的一般流程。",
		Source:  "handbook.md",
	}))

	graphRetriever := graph.NewRetriever(store, nil, logger)
	semanticRetriever := NewSemanticRetriever(keywordEmbedder(), index, logger)
	return NewEngine(graphRetriever, semanticRetriever, logger)
}

func TestEngineRetrieve(t *testing.T) {
	t.Run("Answers a risk factor question from both modalities", func(t *testing.T) {
		engine := newTestEngine(t, gdmEngineStore())
		config := model.DefaultQueryConfig()

		result, err := engine.Retrieve(context.Background(), "妊娠期糖尿病有哪些风险因素", &config)

		require.NoError(t, err)
		assert.Equal(t, model.CategoryRisk, result.Query.Category)
		assert.Empty(t, result.Degraded)
		require.False(t, result.Context.Empty())

		text := result.Context.Text()
		assert.Contains(t, text, "肥胖")
		assert.Contains(t, text, "高龄")
		assert.Contains(t, text, "家族史")

		assert.GreaterOrEqual(t, result.Confidence, 0.1)
		assert.LessOrEqual(t, result.Confidence, 1.0)
		assert.LessOrEqual(t, result.Context.TotalSize, config.BudgetChars)
	})

	t.Run("Degrades to semantic only when the graph times out", func(t *testing.T) {
		store := gdmEngineStore()
		store.delay = 200 * time.Millisecond
		engine := newTestEngine(t, store)
		config := model.DefaultQueryConfig()
		config.GraphTimeout = 10 * time.Millisecond

		result, err := engine.Retrieve(context.Background(), "妊娠期糖尿病有哪些风险因素", &config)

		require.NoError(t, err)
		assert.Equal(t, []string{"graph"}, result.Degraded)
		require.False(t, result.Context.Empty())
		for _, hit := range result.Context.Hits {
			assert.False(t, hit.FromGraph())
		}
	})

	t.Run("Blank question is invalid", func(t *testing.T) {
		engine := newTestEngine(t, gdmEngineStore())
		config := model.DefaultQueryConfig()

		_, err := engine.Retrieve(context.Background(), "   ", &config)

		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrInvalidQuery))
	})

	t.Run("Unknown relation filter is invalid", func(t *testing.T) {
		engine := newTestEngine(t, gdmEngineStore())
		config := model.DefaultQueryConfig()
		config.RelationTypes = []model.RelationType{"EATS"}

		_, err := engine.Retrieve(context.Background(), "妊娠期糖尿病有哪些风险因素", &config)

		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrInvalidQuery))
	})

	t.Run("No evidence at all is a no-context error", func(t *testing.T) {
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		emptyIndex := vector.NewIndex(2, "test-model")
		engine := NewEngine(
			graph.NewRetriever(&engineStore{}, nil, logger),
			NewSemanticRetriever(keywordEmbedder(), emptyIndex, logger),
			logger,
		)
		config := model.DefaultQueryConfig()

		_, err := engine.Retrieve(context.Background(), "产后护理流程", &config)

		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrNoContext))
	})

	t.Run("Cancelled parent context aborts the request", func(t *testing.T) {
		store := gdmEngineStore()
		store.delay = 50 * time.Millisecond
		engine := newTestEngine(t, store)
		config := model.DefaultQueryConfig()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := engine.Retrieve(ctx, "妊娠期糖尿病有哪些风险因素", &config)

		require.Error(t, err)
		assert.True(t, errors.Is(err, context.Canceled))
	})

	t.Run("Repeated retrieval is deterministic", func(t *testing.T) {
		engine := newTestEngine(t, gdmEngineStore())
		config := model.DefaultQueryConfig()

		first, err := engine.Retrieve(context.Background(), "妊娠期糖尿病有哪些风险因素", &config)
		require.NoError(t, err)

		for i := 0; i < 5; i++ {
			again, err := engine.Retrieve(context.Background(), "妊娠期糖尿病有哪些风险因素", &config)
			require.NoError(t, err)
			assert.Equal(t, first.Context.Text(), again.Context.Text())
			assert.Equal(t, first.Confidence, again.Confidence)
		}
	})
}

func TestSemanticRetrieverVersionCheck(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	index := vector.NewIndex(2, "old-model")
	retriever := NewSemanticRetriever(keywordEmbedder(), index, logger)
	config := model.DefaultQueryConfig()

	_, err := retriever.Retrieve(context.Background(), &model.Query{RawText: "血糖"}, &config)

	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrEncoding))
}

func TestSemanticRetrieverFloor(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	index := vector.NewIndex(2, "test-model")
	require.NoError(t, index.Add(vector.Entry{ChunkID: 1, Vector: []float32{1, 0}, Text: "糖尿病饮食"}))
	require.NoError(t, index.Add(vector.Entry{ChunkID: 2, Vector: []float32{0, 1}, Text: "产后护理"}))
	retriever := NewSemanticRetriever(keywordEmbedder(), index, logger)
	config := model.DefaultQueryConfig()

	hits, err := retriever.Retrieve(context.Background(), &model.Query{RawText: "糖尿病"}, &config)

	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].ChunkID)
}

func TestSemanticRetrieverRetriesEncode(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	index := vector.NewIndex(2, "flaky-model")

	calls := 0
	embedder := vector.NewEmbedder(func(string) ([]float32, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("backend busy")
		}
		return []float32{1, 0}, nil
	}, "flaky-model")
	require.NoError(t, index.Add(vector.Entry{ChunkID: 1, Vector: []float32{1, 0}, Text: "血糖监测"}))

	retriever := NewSemanticRetriever(embedder, index, logger)
	config := model.DefaultQueryConfig()

	hits, err := retriever.Retrieve(context.Background(), &model.Query{RawText: "血糖"}, &config)

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	require.Len(t, hits, 1)
}
