package database

import (
	"context"
	"fmt"
	"time"

	"github.com/graphclinic/gdmrag/helper"
	"github.com/graphclinic/gdmrag/model"
	"github.com/graphclinic/gdmrag/schema"
	loadSql "github.com/graphclinic/gdmrag/sql"
	"github.com/lib/pq"
)

// RelationsDBHandlerFunctions defines the interface for Relations database operations.
type RelationsDBHandlerFunctions interface {
	InsertRelation(relation *model.Relation) error
	DeleteRelation(id int) error
	SelectRelation(id int) (*model.Relation, error)
	SelectRelationsFromEntity(sourceID int) ([]*model.Relation, error)
	SelectRelationsToEntity(targetID int) ([]*model.Relation, error)
	CountRelations() (int64, error)
}

// RelationsDBHandler handles relation-related database operations
type RelationsDBHandler struct {
	db       *helper.Database
	entities *EntitiesDBHandler
}

// NewRelationsDBHandler creates a new relations database handler.
// It initializes the database connection and loads relation-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
// The entities handler is required because relation inserts are validated
// against the endpoint entity types.
func NewRelationsDBHandler(db *helper.Database, entities *EntitiesDBHandler, force bool) (*RelationsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}
	if entities == nil {
		return nil, helper.NewError("entities handler validation", fmt.Errorf("entities handler is nil"))
	}

	relationsDbHandler := &RelationsDBHandler{
		db:       db,
		entities: entities,
	}

	err := loadSql.LoadRelationsSql(relationsDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load relations sql", err)
	}

	err = relationsDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized RelationsDBHandler")

	return relationsDbHandler, nil
}

// CreateTable creates the 'relations' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *RelationsDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_relations();`)
	if err != nil {
		return helper.NewError("initializing relations table", err)
	}

	h.db.Logger.Info("Checked/created table relations")

	return nil
}

// InsertRelation validates the (relation, source type, target type) triple
// against the graph schema and inserts the relation (or merges attributes if
// it exists).
func (h *RelationsDBHandler) InsertRelation(relation *model.Relation) error {
	source, err := h.entities.SelectEntity(relation.SourceID)
	if err != nil {
		return helper.NewError("select source entity", err)
	}
	target, err := h.entities.SelectEntity(relation.TargetID)
	if err != nil {
		return helper.NewError("select target entity", err)
	}

	if err := schema.ValidateRelation(relation.Type, source.Type, target.Type); err != nil {
		return err
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_relation($1, $2, $3, $4)`,
		relation.Type,
		relation.SourceID,
		relation.TargetID,
		relation.Attributes,
	)

	err = row.Scan(
		&relation.ID,
		&relation.RID,
		&relation.Type,
		&relation.SourceID,
		&relation.TargetID,
		&relation.Attributes,
		&relation.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// DeleteRelation deletes a relation by ID
func (h *RelationsDBHandler) DeleteRelation(id int) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_relation($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// SelectRelation retrieves a relation by ID
func (h *RelationsDBHandler) SelectRelation(id int) (*model.Relation, error) {
	relation := &model.Relation{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_relation($1)`,
		id,
	)

	err := row.Scan(
		&relation.ID,
		&relation.RID,
		&relation.Type,
		&relation.SourceID,
		&relation.TargetID,
		&relation.Attributes,
		&relation.CreatedAt,
	)
	if err != nil {
		return nil, helper.NewError("scan", err)
	}

	return relation, nil
}

// SelectRelationsFromEntity retrieves all relations with the given source entity
func (h *RelationsDBHandler) SelectRelationsFromEntity(sourceID int) ([]*model.Relation, error) {
	return h.selectRelations(`SELECT * FROM select_relations_from_entity($1)`, sourceID)
}

// SelectRelationsToEntity retrieves all relations with the given target entity
func (h *RelationsDBHandler) SelectRelationsToEntity(targetID int) ([]*model.Relation, error) {
	return h.selectRelations(`SELECT * FROM select_relations_to_entity($1)`, targetID)
}

func (h *RelationsDBHandler) selectRelations(query string, entityID int) ([]*model.Relation, error) {
	rows, err := h.db.Instance.Query(query, entityID)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var relations []*model.Relation
	for rows.Next() {
		relation := &model.Relation{}
		err := rows.Scan(
			&relation.ID,
			&relation.RID,
			&relation.Type,
			&relation.SourceID,
			&relation.TargetID,
			&relation.Attributes,
			&relation.CreatedAt,
		)
		if err != nil {
			return nil, helper.NewError("scan", err)
		}

		relations = append(relations, relation)
	}

	err = rows.Err()
	if err != nil {
		return nil, helper.NewError("rows error", err)
	}

	return relations, nil
}

// SelectNeighbors retrieves every edge incident to an entity with the far
// endpoint resolved, optionally filtered by relation type. A nil filter
// returns all relation types.
func (h *RelationsDBHandler) SelectNeighbors(ctx context.Context, entityID int, relationTypes []model.RelationType) ([]*EntityNeighbor, error) {
	var typesParam interface{}
	if len(relationTypes) > 0 {
		types := make([]string, len(relationTypes))
		for i, relationType := range relationTypes {
			types[i] = string(relationType)
		}
		typesParam = pq.Array(types)
	}

	rows, err := h.db.Instance.QueryContext(ctx,
		`SELECT * FROM select_neighbors($1, $2)`,
		entityID,
		typesParam,
	)
	if err != nil {
		return nil, helper.NewError("query", err)
	}
	defer rows.Close()

	var neighbors []*EntityNeighbor
	for rows.Next() {
		neighbor := &EntityNeighbor{Entity: &model.Entity{}}
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

// EntityNeighbor is one edge incident to a queried entity with the far
// endpoint resolved.
type EntityNeighbor struct {
	Relation model.RelationType
	Entity   *model.Entity
	Outgoing bool
}

// CountRelations returns the total number of relations
func (h *RelationsDBHandler) CountRelations() (int64, error) {
	var count int64
	err := h.db.Instance.QueryRow(`SELECT count_relations()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}
