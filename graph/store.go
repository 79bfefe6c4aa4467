// Package graph implements the graph retriever: lexical entity matching
// against the knowledge graph, breadth-first traversal from matched seeds,
// and path scoring.
package graph

import (
	"context"

	"github.com/graphclinic/gdmrag/model"
)

// Store is the read-only knowledge-graph access handle, opened at process
// start and closed at shutdown. The retrieval path never mutates it.
// Implementations that support it should serve Neighbors from a read-only
// transaction so a traversal never observes a half-committed ingestion batch.
type Store interface {
	// LookupEntity returns the entity with the given type and name, or
	// (nil, nil) when absent.
	LookupEntity(ctx context.Context, entityType model.EntityType, name string) (*model.Entity, error)

	// SearchEntities returns entities whose name contains the term,
	// case-insensitively, across all types.
	SearchEntities(ctx context.Context, term string, limit int) ([]*model.Entity, error)

	// Neighbors returns the edges incident to the entity, in both
	// directions, optionally filtered by relation type.
	Neighbors(ctx context.Context, entityID int, relationTypes []model.RelationType) ([]*Neighbor, error)
}

// Neighbor is one edge incident to a queried entity, with the far endpoint
// resolved.
type Neighbor struct {
	Relation model.RelationType
	Entity   *model.Entity
	// Outgoing is true when the edge points away from the queried entity.
	Outgoing bool
}
