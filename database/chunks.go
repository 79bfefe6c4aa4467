package database

import (
	"context"
	"fmt"
	"time"

	"github.com/graphclinic/gdmrag/helper"
	"github.com/graphclinic/gdmrag/model"
	loadSql "github.com/graphclinic/gdmrag/sql"
	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// ChunksDBHandlerFunctions defines the interface for Chunks database operations.
type ChunksDBHandlerFunctions interface {
	InsertChunk(chunk *model.Chunk) error
	DeleteChunk(id int) error
	SelectChunk(id int) (*model.Chunk, error)
	SelectChunksByModelVersion(modelVersion string) ([]*model.Chunk, error)
	SelectChunksBySimilarity(embedding []float32, limit int, threshold float64, modelVersion string) ([]*model.Chunk, error)
	CountChunks() (int64, error)
}

// ChunksDBHandler handles chunk-related database operations
type ChunksDBHandler struct {
	db *helper.Database
}

// NewChunksDBHandler creates a new chunks database handler.
// It initializes the database connection and loads chunk-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewChunksDBHandler(db *helper.Database, embeddingDim int, force bool) (*ChunksDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	chunksDbHandler := &ChunksDBHandler{
		db: db,
	}

	err := loadSql.LoadChunksSql(chunksDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load chunks sql", err)
	}

	err = chunksDbHandler.CreateTable(embeddingDim)
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized ChunksDBHandler")

	return chunksDbHandler, nil
}

// CreateTable creates the 'chunks' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary extensions and indexes.
func (h *ChunksDBHandler) CreateTable(embeddingDim int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_chunks($1);`, embeddingDim)
	if err != nil {
		return helper.NewError("initializing chunks table", err)
	}

	h.db.Logger.Info("Checked/created table chunks")

	return nil
}

// InsertChunk inserts a new chunk
func (h *ChunksDBHandler) InsertChunk(chunk *model.Chunk) error {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_chunk($1, $2, $3, $4, $5, $6)`,
		chunk.Text,
		chunk.Source,
		pq.Array(chunk.Embedding),
		chunk.ModelVersion,
		chunk.Truncated,
		chunk.Metadata,
	)

	err := row.Scan(
		&chunk.ID,
		&chunk.RID,
		&chunk.Text,
		&chunk.Source,
		pq.Array(&chunk.Embedding),
		&chunk.ModelVersion,
		&chunk.Truncated,
		&chunk.Metadata,
		&chunk.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// DeleteChunk deletes a chunk by ID
func (h *ChunksDBHandler) DeleteChunk(id int) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_chunk($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// SelectChunk retrieves a chunk by ID
func (h *ChunksDBHandler) SelectChunk(id int) (*model.Chunk, error) {
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_chunk($1)`,
		id,
	)

	chunk := &model.Chunk{}
	err := row.Scan(
		&chunk.ID,
		&chunk.RID,
		&chunk.Text,
		&chunk.Source,
		pq.Array(&chunk.Embedding),
		&chunk.ModelVersion,
		&chunk.Truncated,
		&chunk.Metadata,
		&chunk.CreatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return chunk, nil
}

// SelectChunksByModelVersion retrieves all chunks embedded with the given
// model version, in insertion order. Used to rebuild the serving index.
func (h *ChunksDBHandler) SelectChunksByModelVersion(modelVersion string) ([]*model.Chunk, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_chunks_by_model_version($1)`,
		modelVersion,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var chunks []*model.Chunk
	for rows.Next() {
		chunk := &model.Chunk{}
		err := rows.Scan(
			&chunk.ID,
			&chunk.RID,
			&chunk.Text,
			&chunk.Source,
			pq.Array(&chunk.Embedding),
			&chunk.ModelVersion,
			&chunk.Truncated,
			&chunk.Metadata,
			&chunk.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		chunks = append(chunks, chunk)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return chunks, nil
}

// SelectChunksBySimilarity performs vector similarity search within one
// embedding model version
func (h *ChunksDBHandler) SelectChunksBySimilarity(embedding []float32, limit int, threshold float64, modelVersion string) ([]*model.Chunk, error) {
	embeddingVector := pgvector.NewVector(embedding)

	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_chunks_by_similarity($1, $2, $3, $4)`,
		embeddingVector,
		limit,
		threshold,
		modelVersion,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var results []*model.Chunk
	for rows.Next() {
		chunk := &model.Chunk{}
		err := rows.Scan(
			&chunk.ID,
			&chunk.RID,
			&chunk.Text,
			&chunk.Source,
			pq.Array(&chunk.Embedding),
			&chunk.ModelVersion,
			&chunk.Truncated,
			&chunk.Metadata,
			&chunk.CreatedAt,
			&chunk.Similarity,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		results = append(results, chunk)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return results, nil
}

// CountChunks returns the total number of chunks
func (h *ChunksDBHandler) CountChunks() (int64, error) {
	var count int64
	err := h.db.Instance.QueryRow(`SELECT count_chunks()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}
