package database

import (
	"context"
	"errors"
	"testing"

	"github.com/graphclinic/gdmrag/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedGraph inserts a small disease subgraph and returns the handlers and
// entities by name.
func seedGraph(t *testing.T) (*EntitiesDBHandler, *RelationsDBHandler, map[string]*model.Entity) {
	t.Helper()
	database := initDB(t)

	entitiesDbHandler, err := NewEntitiesDBHandler(database, true)
	require.NoError(t, err)
	relationsDbHandler, err := NewRelationsDBHandler(database, entitiesDbHandler, true)
	require.NoError(t, err)

	entities := map[string]*model.Entity{
		"gdm":     {Type: model.EntityDisease, Name: "妊娠期糖尿病", Attributes: model.Metadata{"description": "GDM"}},
		"obesity": {Type: model.EntityRiskFactor, Name: "肥胖", Attributes: model.Metadata{"description": "BMI过高", "modifiable": true}},
		"thirst":  {Type: model.EntitySymptom, Name: "多饮", Attributes: model.Metadata{"description": "烦渴"}},
		"ogtt":    {Type: model.EntityDiagnosticMethod, Name: "OGTT", Attributes: model.Metadata{"description": "糖耐量试验"}},
	}
	for _, entity := range entities {
		require.NoError(t, entitiesDbHandler.InsertEntity(entity))
	}

	t.Cleanup(func() {
		for _, entity := range entities {
			entitiesDbHandler.DeleteEntity(entity.ID)
		}
	})

	return entitiesDbHandler, relationsDbHandler, entities
}

func TestRelationsNewRelationsDBHandler(t *testing.T) {
	database := initDB(t)

	entitiesDbHandler, err := NewEntitiesDBHandler(database, true)
	require.NoError(t, err)

	t.Run("Valid call NewRelationsDBHandler", func(t *testing.T) {
		relationsDbHandler, err := NewRelationsDBHandler(database, entitiesDbHandler, true)
		assert.NoError(t, err, "Expected NewRelationsDBHandler to not return an error")
		require.NotNil(t, relationsDbHandler, "Expected NewRelationsDBHandler to return a non-nil instance")
	})

	t.Run("Invalid call NewRelationsDBHandler with nil database", func(t *testing.T) {
		_, err := NewRelationsDBHandler(nil, entitiesDbHandler, false)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "database connection is nil")
	})

	t.Run("Invalid call NewRelationsDBHandler with nil entities handler", func(t *testing.T) {
		_, err := NewRelationsDBHandler(database, nil, false)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "entities handler is nil")
	})
}

func TestRelationsInsert(t *testing.T) {
	_, relationsDbHandler, entities := seedGraph(t)

	t.Run("Insert valid relation", func(t *testing.T) {
		relation := &model.Relation{
			Type:     model.RelationHasRiskFactor,
			SourceID: entities["gdm"].ID,
			TargetID: entities["obesity"].ID,
		}

		err := relationsDbHandler.InsertRelation(relation)
		assert.NoError(t, err, "Expected Insert to not return an error")
		assert.NotEmpty(t, relation.ID, "Expected inserted relation to have an ID")

		// Cleanup
		relationsDbHandler.DeleteRelation(relation.ID)
	})

	t.Run("Insert rejects schema-violating triple", func(t *testing.T) {
		// HAS_SYMPTOM requires a Symptom target
		relation := &model.Relation{
			Type:     model.RelationHasSymptom,
			SourceID: entities["gdm"].ID,
			TargetID: entities["obesity"].ID,
		}

		err := relationsDbHandler.InsertRelation(relation)
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrSchemaViolation))
	})

	t.Run("Insert rejects unknown relation type", func(t *testing.T) {
		relation := &model.Relation{
			Type:     model.RelationType("EATS"),
			SourceID: entities["gdm"].ID,
			TargetID: entities["obesity"].ID,
		}

		err := relationsDbHandler.InsertRelation(relation)
		require.Error(t, err)
		assert.True(t, errors.Is(err, model.ErrSchemaViolation))
	})

	t.Run("Insert duplicate relation is an upsert", func(t *testing.T) {
		relation := &model.Relation{
			Type:     model.RelationDiagnosedBy,
			SourceID: entities["gdm"].ID,
			TargetID: entities["ogtt"].ID,
		}
		require.NoError(t, relationsDbHandler.InsertRelation(relation))
		firstID := relation.ID

		duplicate := &model.Relation{
			Type:     model.RelationDiagnosedBy,
			SourceID: entities["gdm"].ID,
			TargetID: entities["ogtt"].ID,
		}
		err := relationsDbHandler.InsertRelation(duplicate)
		assert.NoError(t, err)
		assert.Equal(t, firstID, duplicate.ID)

		// Cleanup
		relationsDbHandler.DeleteRelation(firstID)
	})
}

func TestRelationsSelect(t *testing.T) {
	_, relationsDbHandler, entities := seedGraph(t)

	relations := []*model.Relation{
		{Type: model.RelationHasRiskFactor, SourceID: entities["gdm"].ID, TargetID: entities["obesity"].ID},
		{Type: model.RelationHasSymptom, SourceID: entities["gdm"].ID, TargetID: entities["thirst"].ID},
		{Type: model.RelationDiagnosedBy, SourceID: entities["gdm"].ID, TargetID: entities["ogtt"].ID},
	}
	for _, relation := range relations {
		require.NoError(t, relationsDbHandler.InsertRelation(relation))
	}
	defer func() {
		for _, relation := range relations {
			relationsDbHandler.DeleteRelation(relation.ID)
		}
	}()

	t.Run("Select relation by ID", func(t *testing.T) {
		retrieved, err := relationsDbHandler.SelectRelation(relations[0].ID)
		assert.NoError(t, err)
		require.NotNil(t, retrieved)
		assert.Equal(t, model.RelationHasRiskFactor, retrieved.Type)
	})

	t.Run("Select relations from entity", func(t *testing.T) {
		fromGdm, err := relationsDbHandler.SelectRelationsFromEntity(entities["gdm"].ID)
		assert.NoError(t, err)
		assert.Len(t, fromGdm, 3)
	})

	t.Run("Select relations to entity", func(t *testing.T) {
		toObesity, err := relationsDbHandler.SelectRelationsToEntity(entities["obesity"].ID)
		assert.NoError(t, err)
		require.Len(t, toObesity, 1)
		assert.Equal(t, model.RelationHasRiskFactor, toObesity[0].Type)
	})

	t.Run("Count relations", func(t *testing.T) {
		count, err := relationsDbHandler.CountRelations()
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, count, int64(3))
	})
}

func TestRelationsSelectNeighbors(t *testing.T) {
	_, relationsDbHandler, entities := seedGraph(t)

	relations := []*model.Relation{
		{Type: model.RelationHasRiskFactor, SourceID: entities["gdm"].ID, TargetID: entities["obesity"].ID},
		{Type: model.RelationHasSymptom, SourceID: entities["gdm"].ID, TargetID: entities["thirst"].ID},
	}
	for _, relation := range relations {
		require.NoError(t, relationsDbHandler.InsertRelation(relation))
	}
	defer func() {
		for _, relation := range relations {
			relationsDbHandler.DeleteRelation(relation.ID)
		}
	}()

	t.Run("All neighbors of the disease", func(t *testing.T) {
		neighbors, err := relationsDbHandler.SelectNeighbors(context.Background(), entities["gdm"].ID, nil)
		assert.NoError(t, err)
		require.Len(t, neighbors, 2)
		for _, neighbor := range neighbors {
			assert.True(t, neighbor.Outgoing)
		}
	})

	t.Run("Filter by relation type", func(t *testing.T) {
		neighbors, err := relationsDbHandler.SelectNeighbors(context.Background(), entities["gdm"].ID,
			[]model.RelationType{model.RelationHasRiskFactor})
		assert.NoError(t, err)
		require.Len(t, neighbors, 1)
		assert.Equal(t, "肥胖", neighbors[0].Entity.Name)
	})

	t.Run("Incoming edge is reported as not outgoing", func(t *testing.T) {
		neighbors, err := relationsDbHandler.SelectNeighbors(context.Background(), entities["obesity"].ID, nil)
		assert.NoError(t, err)
		require.Len(t, neighbors, 1)
		assert.False(t, neighbors[0].Outgoing)
		assert.Equal(t, "妊娠期糖尿病", neighbors[0].Entity.Name)
	})
}
