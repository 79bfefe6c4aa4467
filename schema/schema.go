// Package schema holds the static knowledge-graph schema: the legal entity
// types, their required attributes, and the legal (relation, source type,
// target type) triples. All checks are pure and callable concurrently
// without coordination.
package schema

import (
	"fmt"

	"github.com/graphclinic/gdmrag/model"
)

// entityAttributes lists the required attributes per entity type. Optional
// attributes (icd_code, glycemic_index, normal_range, ...) are not checked.
var entityAttributes = map[model.EntityType][]string{
	model.EntityMedicalConcept:   {"name", "description"},
	model.EntityDisease:          {"name", "description"},
	model.EntitySymptom:          {"name", "description"},
	model.EntityRiskFactor:       {"name", "description", "modifiable"},
	model.EntityDiagnosticMethod: {"name", "description"},
	model.EntityTreatment:        {"name", "description", "type"},
	model.EntityComplication:     {"name", "description", "target"},
	model.EntityFood:             {"name", "description"},
	model.EntityGuideline:        {"name", "description"},
	model.EntityQuestion:         {"text", "description"},
}

// relationRule constrains a relation type to fixed source/target type sets.
type relationRule struct {
	Sources []model.EntityType
	Targets []model.EntityType
}

var relationRules = map[model.RelationType]relationRule{
	model.RelationIsA: {
		Sources: []model.EntityType{model.EntityMedicalConcept, model.EntityDisease},
		Targets: []model.EntityType{model.EntityMedicalConcept, model.EntityDisease},
	},
	model.RelationHasSymptom: {
		Sources: []model.EntityType{model.EntityDisease},
		Targets: []model.EntityType{model.EntitySymptom},
	},
	model.RelationHasRiskFactor: {
		Sources: []model.EntityType{model.EntityDisease},
		Targets: []model.EntityType{model.EntityRiskFactor},
	},
	model.RelationDiagnosedBy: {
		Sources: []model.EntityType{model.EntityDisease},
		Targets: []model.EntityType{model.EntityDiagnosticMethod},
	},
	model.RelationTreatedBy: {
		Sources: []model.EntityType{model.EntityDisease},
		Targets: []model.EntityType{model.EntityTreatment},
	},
	model.RelationCanCause: {
		Sources: []model.EntityType{model.EntityDisease, model.EntityTreatment},
		Targets: []model.EntityType{model.EntityComplication, model.EntityDisease, model.EntityMedicalConcept},
	},
	model.RelationRecommendedFor: {
		Sources: []model.EntityType{model.EntityFood, model.EntityTreatment},
		Targets: []model.EntityType{model.EntityDisease},
	},
	model.RelationContraindicatedFor: {
		Sources: []model.EntityType{model.EntityFood, model.EntityTreatment},
		Targets: []model.EntityType{model.EntityDisease},
	},
	model.RelationRecommends: {
		Sources: []model.EntityType{model.EntityGuideline},
		Targets: []model.EntityType{model.EntityDisease, model.EntityTreatment, model.EntityDiagnosticMethod},
	},
	model.RelationAnswers: {
		Sources: []model.EntityType{
			model.EntityMedicalConcept, model.EntityTreatment, model.EntityFood,
			model.EntityDisease, model.EntityComplication,
		},
		Targets: []model.EntityType{model.EntityQuestion},
	},
}

// EntityTypes returns all legal entity types in declaration order.
func EntityTypes() []model.EntityType {
	return []model.EntityType{
		model.EntityMedicalConcept,
		model.EntityDisease,
		model.EntitySymptom,
		model.EntityRiskFactor,
		model.EntityDiagnosticMethod,
		model.EntityTreatment,
		model.EntityComplication,
		model.EntityFood,
		model.EntityGuideline,
		model.EntityQuestion,
	}
}

// RelationTypes returns all legal relation types in declaration order.
func RelationTypes() []model.RelationType {
	return []model.RelationType{
		model.RelationIsA,
		model.RelationHasSymptom,
		model.RelationHasRiskFactor,
		model.RelationDiagnosedBy,
		model.RelationTreatedBy,
		model.RelationCanCause,
		model.RelationRecommendedFor,
		model.RelationContraindicatedFor,
		model.RelationRecommends,
		model.RelationAnswers,
	}
}

// KnownEntityType reports whether t is a legal entity type.
func KnownEntityType(t model.EntityType) bool {
	_, ok := entityAttributes[t]
	return ok
}

// KnownRelationType reports whether t is a legal relation type.
func KnownRelationType(t model.RelationType) bool {
	_, ok := relationRules[t]
	return ok
}

// ValidateEntity checks that the type is known and all required attributes
// are present and non-empty.
func ValidateEntity(entityType model.EntityType, attributes model.Metadata) error {
	required, ok := entityAttributes[entityType]
	if !ok {
		return fmt.Errorf("%w: unknown entity type %q", model.ErrSchemaViolation, entityType)
	}

	for _, attr := range required {
		value, ok := attributes[attr]
		if !ok || value == nil || value == "" {
			return fmt.Errorf("%w: entity type %q requires attribute %q", model.ErrSchemaViolation, entityType, attr)
		}
	}

	return nil
}

// ValidateRelation checks that the (relation, source type, target type)
// triple is a member of the static relation table.
func ValidateRelation(relationType model.RelationType, sourceType, targetType model.EntityType) error {
	rule, ok := relationRules[relationType]
	if !ok {
		return fmt.Errorf("%w: unknown relation type %q", model.ErrSchemaViolation, relationType)
	}

	if !containsType(rule.Sources, sourceType) {
		return fmt.Errorf("%w: relation %q does not allow source type %q", model.ErrSchemaViolation, relationType, sourceType)
	}
	if !containsType(rule.Targets, targetType) {
		return fmt.Errorf("%w: relation %q does not allow target type %q", model.ErrSchemaViolation, relationType, targetType)
	}

	return nil
}

func containsType(types []model.EntityType, t model.EntityType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}
