// Package gdmrag is a hybrid retrieval engine for gestational diabetes
// question answering. It combines typed knowledge graph traversal with
// vector similarity search over embedded guideline chunks, fuses both into
// one ranked evidence set, and optionally generates a grounded answer.
package gdmrag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/graphclinic/gdmrag/database"
	"github.com/graphclinic/gdmrag/graph"
	"github.com/graphclinic/gdmrag/helper"
	"github.com/graphclinic/gdmrag/ingest"
	"github.com/graphclinic/gdmrag/llm"
	"github.com/graphclinic/gdmrag/model"
	"github.com/graphclinic/gdmrag/retrieval"
	loadSql "github.com/graphclinic/gdmrag/sql"
	"github.com/graphclinic/gdmrag/vector"
)

// GDMRag provides a unified interface to the knowledge graph, the chunk
// store, the serving index, and the hybrid retrieval engine.
type GDMRag struct {
	DB        *helper.Database
	Entities  *database.EntitiesDBHandler
	Relations *database.RelationsDBHandler
	Chunks    *database.ChunksDBHandler
	Graph     *graph.Retriever
	Index     *vector.Index
	Embedder  *vector.Embedder
	Engine    *retrieval.Engine
	Generator llm.Generator
	Pipeline  *ingest.Pipeline

	embeddingDim int
	log          *slog.Logger
}

// New creates a GDMRag instance with all database handlers initialized.
// An embedder must be attached with SetEmbedder or UseDefaultEmbedder
// before indexing or retrieval.
func New(config *helper.DatabaseConfiguration, embeddingDim int) (*GDMRag, error) {
	opts := helper.PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{
			Level: slog.LevelInfo,
		},
	}
	logger := slog.New(helper.NewPrettyHandler(os.Stdout, opts))

	db := helper.NewDatabase("gdmrag", config, logger)
	err := loadSql.Init(db.Instance)
	if err != nil {
		return nil, helper.NewError("initialize database extensions", err)
	}

	// force=false to not reload if functions already exist
	entities, err := database.NewEntitiesDBHandler(db, false)
	if err != nil {
		return nil, helper.NewError("create entities handler", err)
	}

	relations, err := database.NewRelationsDBHandler(db, entities, false)
	if err != nil {
		return nil, helper.NewError("create relations handler", err)
	}

	chunks, err := database.NewChunksDBHandler(db, embeddingDim, false)
	if err != nil {
		return nil, helper.NewError("create chunks handler", err)
	}

	graphRetriever := graph.NewRetriever(database.NewGraphStore(db), nil, logger)

	return &GDMRag{
		DB:           db,
		Entities:     entities,
		Relations:    relations,
		Chunks:       chunks,
		Graph:        graphRetriever,
		embeddingDim: embeddingDim,
		log:          logger,
	}, nil
}

// Close closes the database connection
func (g *GDMRag) Close() error {
	if g.DB != nil && g.DB.Instance != nil {
		return g.DB.Instance.Close()
	}
	return nil
}

// SetEmbedder attaches an embedder and builds a fresh serving index bound
// to its model version. The index starts empty; call RebuildIndex to load
// the stored chunks of that version.
func (g *GDMRag) SetEmbedder(embedder *vector.Embedder) {
	g.Embedder = embedder
	g.Index = vector.NewIndex(g.embeddingDim, embedder.Version)

	semantic := retrieval.NewSemanticRetriever(embedder, g.Index, g.log)
	g.Engine = retrieval.NewEngine(g.Graph, semantic, g.log)
}

// UseDefaultEmbedder attaches the all-MiniLM-L6-v2 sentence transformer
// (384 dimensions).
func (g *GDMRag) UseDefaultEmbedder() error {
	embedder, err := vector.DefaultEmbedder()
	if err != nil {
		return helper.NewError("create default embedder", err)
	}

	g.SetEmbedder(embedder)
	return nil
}

// UseLexicon replaces the medical vocabulary of the graph retriever.
func (g *GDMRag) UseLexicon(lexicon *graph.Lexicon) {
	g.Graph = graph.NewRetriever(database.NewGraphStore(g.DB), lexicon, g.log)
	if g.Embedder != nil {
		semantic := retrieval.NewSemanticRetriever(g.Embedder, g.Index, g.log)
		g.Engine = retrieval.NewEngine(g.Graph, semantic, g.log)
	}
}

// SetPipeline sets the document processing pipeline.
func (g *GDMRag) SetPipeline(pipeline *ingest.Pipeline) {
	g.Pipeline = pipeline
}

// UseDefaultPipeline sets up sentence chunking plus lexicon-based candidate
// extraction.
func (g *GDMRag) UseDefaultPipeline() {
	g.Pipeline = ingest.DefaultPipeline()
}

// SetGenerator attaches an answer generator.
func (g *GDMRag) SetGenerator(generator llm.Generator) {
	g.Generator = generator
}

// UseDefaultGenerator attaches the chat generator configured from the
// environment (LLM_API_KEY, LLM_BASE_URL, LLM_MODEL).
func (g *GDMRag) UseDefaultGenerator() error {
	configuration, err := llm.NewConfiguration()
	if err != nil {
		return helper.NewError("create llm configuration", err)
	}

	g.Generator = llm.NewChatGenerator(configuration)
	return nil
}

// IndexChunk embeds a text passage, stores it durably, and adds it to the
// serving index. Over-limit text is truncated and flagged, not rejected.
func (g *GDMRag) IndexChunk(text string, source string) (*model.Chunk, error) {
	if g.Embedder == nil {
		return nil, helper.NewError("index chunk", fmt.Errorf("embedder not set, use SetEmbedder() first"))
	}

	embedding, truncated, err := g.Embedder.Encode(text)
	if err != nil {
		return nil, helper.NewError("encode chunk", err)
	}

	chunk := &model.Chunk{
		Text:         text,
		Source:       source,
		Embedding:    embedding,
		ModelVersion: g.Embedder.Version,
		Truncated:    truncated,
	}
	if err := g.Chunks.InsertChunk(chunk); err != nil {
		return nil, helper.NewError("insert chunk", err)
	}

	err = g.Index.Add(vector.Entry{
		ChunkID:   chunk.ID,
		Vector:    chunk.Embedding,
		Text:      chunk.Text,
		Source:    chunk.Source,
		Truncated: chunk.Truncated,
	})
	if err != nil {
		return nil, helper.NewError("add chunk to index", err)
	}

	g.log.Info("Indexed chunk", slog.Int("chunk_id", chunk.ID), slog.String("source", chunk.Source))

	return chunk, nil
}

// IngestDocument chunks a document, embeds and indexes every chunk, and
// returns the entity candidates found in the text for graph curation.
func (g *GDMRag) IngestDocument(doc *ingest.Document) (int, []ingest.Candidate, error) {
	if g.Pipeline == nil {
		return 0, nil, helper.NewError("ingest document", fmt.Errorf("pipeline not set, use SetPipeline() first"))
	}

	result, err := g.Pipeline.Process(doc)
	if err != nil {
		return 0, nil, helper.NewError("process document", err)
	}

	for _, text := range result.Chunks {
		if _, err := g.IndexChunk(text, doc.Source); err != nil {
			return 0, nil, err
		}
	}

	g.log.Info("Ingested document",
		slog.String("source", doc.Source),
		slog.Int("chunks", len(result.Chunks)),
		slog.Int("candidates", len(result.Candidates)))

	return len(result.Chunks), result.Candidates, nil
}

// RebuildIndex reloads the serving index from the chunk store. Readers keep
// searching the old snapshot until the new one is swapped in atomically.
func (g *GDMRag) RebuildIndex() error {
	if g.Embedder == nil {
		return helper.NewError("rebuild index", fmt.Errorf("embedder not set, use SetEmbedder() first"))
	}

	chunks, err := g.Chunks.SelectChunksByModelVersion(g.Embedder.Version)
	if err != nil {
		return helper.NewError("select chunks", err)
	}

	entries := make([]vector.Entry, 0, len(chunks))
	for _, chunk := range chunks {
		entries = append(entries, vector.Entry{
			ChunkID:   chunk.ID,
			Vector:    chunk.Embedding,
			Text:      chunk.Text,
			Source:    chunk.Source,
			Truncated: chunk.Truncated,
		})
	}

	if err := g.Index.Rebuild(entries, g.Embedder.Version); err != nil {
		return helper.NewError("rebuild index", err)
	}

	g.log.Info("Rebuilt serving index", slog.Int("chunks", len(entries)))

	return nil
}

// Retrieve runs the hybrid retrieval pipeline for a question.
func (g *GDMRag) Retrieve(ctx context.Context, question string, config *model.QueryConfig) (*retrieval.Result, error) {
	if g.Engine == nil {
		return nil, helper.NewError("retrieve", fmt.Errorf("embedder not set, use SetEmbedder() first"))
	}

	return g.Engine.Retrieve(ctx, question, config)
}

// QAResult is a generated answer with the retrieval evidence behind it.
type QAResult struct {
	Answer     *llm.Answer         `json:"answer"`
	Context    *model.FusedContext `json:"context,omitempty"`
	Category   model.QueryCategory `json:"category,omitempty"`
	Confidence float64             `json:"confidence"`
	Degraded   []string            `json:"degraded,omitempty"`
}

// Answer retrieves evidence for the question and generates a grounded
// answer. When no evidence exists the fixed no-context answer is returned
// instead of an error.
func (g *GDMRag) Answer(ctx context.Context, question string, config *model.QueryConfig) (*QAResult, error) {
	if g.Generator == nil {
		return nil, helper.NewError("answer", fmt.Errorf("generator not set, use SetGenerator() first"))
	}

	result, err := g.Retrieve(ctx, question, config)
	if errors.Is(err, model.ErrNoContext) {
		return &QAResult{
			Answer: &llm.Answer{Text: llm.NoContextAnswer, UsedContext: false},
		}, nil
	}
	if err != nil {
		return nil, err
	}

	answer, err := g.Generator.Generate(ctx, question, result.Context)
	if err != nil {
		return nil, helper.NewError("generate answer", err)
	}

	return &QAResult{
		Answer:     answer,
		Context:    result.Context,
		Category:   result.Query.Category,
		Confidence: result.Confidence,
		Degraded:   result.Degraded,
	}, nil
}

// DiseaseSummary is the one-hop neighborhood of a disease, grouped by
// relation type.
type DiseaseSummary struct {
	Disease       *model.Entity     `json:"disease"`
	Symptoms      []model.EntityRef `json:"symptoms,omitempty"`
	RiskFactors   []model.EntityRef `json:"risk_factors,omitempty"`
	Diagnostics   []model.EntityRef `json:"diagnostics,omitempty"`
	Treatments    []model.EntityRef `json:"treatments,omitempty"`
	Complications []model.EntityRef `json:"complications,omitempty"`
}

// DiseaseContext returns everything the graph knows about a disease in one
// hop.
func (g *GDMRag) DiseaseContext(ctx context.Context, diseaseName string) (*DiseaseSummary, error) {
	store := database.NewGraphStore(g.DB)

	disease, err := store.LookupEntity(ctx, model.EntityDisease, diseaseName)
	if err != nil {
		return nil, helper.NewError("lookup disease", err)
	}
	if disease == nil {
		return nil, fmt.Errorf("%w: unknown disease %q", model.ErrNoContext, diseaseName)
	}

	neighbors, err := store.Neighbors(ctx, disease.ID, nil)
	if err != nil {
		return nil, helper.NewError("load disease neighborhood", err)
	}

	summary := &DiseaseSummary{Disease: disease}
	for _, neighbor := range neighbors {
		ref := neighbor.Entity.Ref()
		switch neighbor.Relation {
		case model.RelationHasSymptom:
			summary.Symptoms = append(summary.Symptoms, ref)
		case model.RelationHasRiskFactor:
			summary.RiskFactors = append(summary.RiskFactors, ref)
		case model.RelationDiagnosedBy:
			summary.Diagnostics = append(summary.Diagnostics, ref)
		case model.RelationTreatedBy:
			summary.Treatments = append(summary.Treatments, ref)
		case model.RelationCanCause:
			if neighbor.Outgoing {
				summary.Complications = append(summary.Complications, ref)
			}
		}
	}

	return summary, nil
}
