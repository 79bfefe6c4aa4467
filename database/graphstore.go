package database

import (
	"context"
	"database/sql"
	"errors"

	"github.com/graphclinic/gdmrag/graph"
	"github.com/graphclinic/gdmrag/helper"
	"github.com/graphclinic/gdmrag/model"
	"github.com/lib/pq"
)

// GraphStore adapts the entities and relations tables to the traversal
// interface. Every call runs in a read-only transaction so a traversal never
// observes a half-committed ingestion batch.
type GraphStore struct {
	db *helper.Database
}

// NewGraphStore creates a read-only graph access handle over an already
// initialized database.
func NewGraphStore(db *helper.Database) *GraphStore {
	return &GraphStore{db: db}
}

// LookupEntity returns the entity with the given type and name, or
// (nil, nil) when absent.
func (s *GraphStore) LookupEntity(ctx context.Context, entityType model.EntityType, name string) (*model.Entity, error) {
	tx, err := s.beginRead(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	entity := &model.Entity{}
	row := tx.QueryRowContext(ctx,
		`SELECT * FROM select_entity_by_name($1, $2)`,
		entityType,
		name,
	)

	err = row.Scan(
		&entity.ID,
		&entity.RID,
		&entity.Type,
		&entity.Name,
		&entity.Attributes,
		&entity.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return entity, nil
}

// SearchEntities returns entities whose name contains the term,
// case-insensitively, across all types.
func (s *GraphStore) SearchEntities(ctx context.Context, term string, limit int) ([]*model.Entity, error) {
	tx, err := s.beginRead(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		`SELECT * FROM search_entities($1, $2)`,
		term,
		limit,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var entities []*model.Entity
	for rows.Next() {
		entity := &model.Entity{}
		err := rows.Scan(
			&entity.ID,
			&entity.RID,
			&entity.Type,
			&entity.Name,
			&entity.Attributes,
			&entity.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		entities = append(entities, entity)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return entities, nil
}

// Neighbors returns the edges incident to the entity, in both directions,
// optionally filtered by relation type.
func (s *GraphStore) Neighbors(ctx context.Context, entityID int, relationTypes []model.RelationType) ([]*graph.Neighbor, error) {
	tx, err := s.beginRead(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var typesParam interface{}
	if len(relationTypes) > 0 {
		types := make([]string, len(relationTypes))
		for i, relationType := range relationTypes {
			types[i] = string(relationType)
		}
		typesParam = pq.Array(types)
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT * FROM select_neighbors($1, $2)`,
		entityID,
		typesParam,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var neighbors []*graph.Neighbor
	for rows.Next() {
		neighbor := &graph.Neighbor{Entity: &model.Entity{}}
		err := rows.Scan(
			&neighbor.Relation,
			&neighbor.Outgoing,
			&neighbor.Entity.ID,
			&neighbor.Entity.RID,
			&neighbor.Entity.Type,
			&neighbor.Entity.Name,
			&neighbor.Entity.Attributes,
			&neighbor.Entity.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		neighbors = append(neighbors, neighbor)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return neighbors, nil
}

func (s *GraphStore) beginRead(ctx context.Context) (*sql.Tx, error) {
	tx, err := s.db.Instance.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, helper.NewError("begin read-only transaction", err)
	}
	return tx, nil
}
