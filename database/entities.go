package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/graphclinic/gdmrag/helper"
	"github.com/graphclinic/gdmrag/model"
	"github.com/graphclinic/gdmrag/schema"
	loadSql "github.com/graphclinic/gdmrag/sql"
)

// EntitiesDBHandlerFunctions defines the interface for Entities database operations.
type EntitiesDBHandlerFunctions interface {
	InsertEntity(entity *model.Entity) error
	UpdateEntityAttributes(id int, attributes model.Metadata) error
	DeleteEntity(id int) error
	SelectEntity(id int) (*model.Entity, error)
	SelectEntityByName(entityType model.EntityType, name string) (*model.Entity, error)
	SearchEntities(searchTerm string, limit int) ([]*model.Entity, error)
	SelectEntitiesByType(entityType model.EntityType, limit int) ([]*model.Entity, error)
	CountEntities() (int64, error)
}

// EntitiesDBHandler handles entity-related database operations
type EntitiesDBHandler struct {
	db *helper.Database
}

// NewEntitiesDBHandler creates a new entities database handler.
// It initializes the database connection and loads entity-related SQL functions.
// If force is true, it will reload the SQL functions even if they already exist.
func NewEntitiesDBHandler(db *helper.Database, force bool) (*EntitiesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	entitiesDbHandler := &EntitiesDBHandler{
		db: db,
	}

	err := loadSql.LoadEntitiesSql(entitiesDbHandler.db.Instance, force)
	if err != nil {
		return nil, helper.NewError("load entities sql", err)
	}

	err = entitiesDbHandler.CreateTable()
	if err != nil {
		return nil, helper.NewError("create table", err)
	}

	db.Logger.Info("Initialized EntitiesDBHandler")

	return entitiesDbHandler, nil
}

// CreateTable creates the 'entities' table in the database.
// If the table already exists, it does not create it again.
// It also creates all necessary indexes.
func (h *EntitiesDBHandler) CreateTable() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := h.db.Instance.ExecContext(ctx, `SELECT init_entities();`)
	if err != nil {
		return helper.NewError("initializing entities table", err)
	}

	h.db.Logger.Info("Checked/created table entities")

	return nil
}

// InsertEntity validates the entity against the graph schema and inserts it
// (or merges attributes if it exists). The name column is mirrored into the
// attributes for validation since the schema requires it there.
func (h *EntitiesDBHandler) InsertEntity(entity *model.Entity) error {
	attributes := model.Metadata{}
	for key, value := range entity.Attributes {
		attributes[key] = value
	}
	if _, ok := attributes["name"]; !ok {
		attributes["name"] = entity.Name
	}
	if err := schema.ValidateEntity(entity.Type, attributes); err != nil {
		return err
	}
	if entity.Name == "" {
		return fmt.Errorf("%w: entity name must not be empty", model.ErrSchemaViolation)
	}

	row := h.db.Instance.QueryRow(
		`SELECT * FROM insert_entity($1, $2, $3)`,
		entity.Type,
		entity.Name,
		entity.Attributes,
	)

	err := row.Scan(
		&entity.ID,
		&entity.RID,
		&entity.Type,
		&entity.Name,
		&entity.Attributes,
		&entity.CreatedAt,
	)
	if err != nil {
		return helper.NewError("scan", err)
	}

	return nil
}

// UpdateEntityAttributes replaces the attributes of an entity
func (h *EntitiesDBHandler) UpdateEntityAttributes(id int, attributes model.Metadata) error {
	_, err := h.db.Instance.Exec(
		`SELECT * FROM update_entity_attributes($1, $2)`,
		id,
		attributes,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// DeleteEntity deletes an entity by ID
func (h *EntitiesDBHandler) DeleteEntity(id int) error {
	_, err := h.db.Instance.Exec(
		`SELECT delete_entity($1)`,
		id,
	)
	if err != nil {
		return helper.NewError("exec", err)
	}
	return nil
}

// SelectEntity retrieves an entity by ID
func (h *EntitiesDBHandler) SelectEntity(id int) (*model.Entity, error) {
	entity := &model.Entity{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_entity($1)`,
		id,
	)

	err := row.Scan(
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

	return entity, nil
}

// SelectEntityByName retrieves an entity by type and name. A missing entity
// returns (nil, nil), not an error.
func (h *EntitiesDBHandler) SelectEntityByName(entityType model.EntityType, name string) (*model.Entity, error) {
	entity := &model.Entity{}
	row := h.db.Instance.QueryRow(
		`SELECT * FROM select_entity_by_name($1, $2)`,
		entityType,
		name,
	)

	err := row.Scan(
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

// SearchEntities searches entities by name substring across all types
func (h *EntitiesDBHandler) SearchEntities(searchTerm string, limit int) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM search_entities($1, $2)`,
		searchTerm,
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

// SelectEntitiesByType retrieves entities by type
func (h *EntitiesDBHandler) SelectEntitiesByType(entityType model.EntityType, limit int) ([]*model.Entity, error) {
	rows, err := h.db.Instance.Query(
		`SELECT * FROM select_entities_by_type($1, $2)`,
		entityType,
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

// CountEntities returns the total number of entities
func (h *EntitiesDBHandler) CountEntities() (int64, error) {
	var count int64
	err := h.db.Instance.QueryRow(`SELECT count_entities()`).Scan(&count)
	if err != nil {
		return 0, helper.NewError("scan", err)
	}
	return count, nil
}
