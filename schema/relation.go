package schema

import (
	"fmt"
	"strings"

	"github.com/rediwo/redi-shape/utils"
)

// GetJunctionTableName generates a junction table name for many-to-many relations
func GetJunctionTableName(modelA, modelB string) string {
	if modelA == modelB {
		tableA := ModelNameToTableName(modelA)
		return singular(tableA) + "_" + tableA
	}

	// Sort models alphabetically so both sides agree on the name
	firstModel, secondModel := modelA, modelB
	if strings.ToLower(modelA) > strings.ToLower(modelB) {
		firstModel, secondModel = modelB, modelA
	}

	return singular(ModelNameToTableName(firstModel)) + "_" + ModelNameToTableName(secondModel)
}

func singular(table string) string {
	switch {
	case strings.HasSuffix(table, "ies"):
		return table[:len(table)-3] + "y"
	case strings.HasSuffix(table, "s"):
		return table[:len(table)-1]
	default:
		return table
	}
}

// Normalize fills relation defaults against the owning and related schemas
// and checks that the referenced fields exist.
func (r Relation) Normalize(owner, related *Schema) (Relation, error) {
	if related == nil {
		return r, fmt.Errorf("related model %s not found", r.Model)
	}

	ownerPK := firstOr(owner.PrimaryKeyFields(), "id")
	relatedPK := firstOr(related.PrimaryKeyFields(), "id")

	switch r.Type {
	case RelationManyToOne:
		if r.References == "" {
			r.References = relatedPK
		}
		if _, err := owner.GetField(r.ForeignKey); err != nil {
			return r, fmt.Errorf("foreign key field %s not found in model %s", r.ForeignKey, owner.Name)
		}
		if _, err := related.GetField(r.References); err != nil {
			return r, fmt.Errorf("references field %s not found in model %s", r.References, related.Name)
		}

	case RelationOneToMany:
		if r.References == "" {
			r.References = ownerPK
		}
		if r.ForeignKey == "" {
			r.ForeignKey = strings.ToLower(owner.Name[:1]) + owner.Name[1:] + "Id"
		}
		if _, err := related.GetField(r.ForeignKey); err != nil {
			return r, fmt.Errorf("foreign key field %s not found in model %s", r.ForeignKey, related.Name)
		}
		if _, err := owner.GetField(r.References); err != nil {
			return r, fmt.Errorf("references field %s not found in model %s", r.References, owner.Name)
		}

	case RelationOneToOne:
		_, errOwner := owner.GetField(r.ForeignKey)
		_, errRelated := related.GetField(r.ForeignKey)
		if errOwner != nil && errRelated != nil {
			return r, fmt.Errorf("foreign key field %s not found in either model", r.ForeignKey)
		}
		if r.References == "" {
			if errOwner == nil {
				r.References = relatedPK
			} else {
				r.References = ownerPK
			}
		}

	case RelationManyToMany:
		if r.Through == "" {
			r.Through = GetJunctionTableName(owner.Name, related.Name)
		}
		if r.ForeignKey == "" {
			r.ForeignKey = utils.ToSnakeCase(owner.Name) + "_id"
		}
		if r.References == "" {
			r.References = utils.ToSnakeCase(related.Name) + "_id"
		}

	default:
		return r, fmt.Errorf("unknown relation type: %s", r.Type)
	}

	return r, nil
}

func firstOr(values []string, fallback string) string {
	if len(values) > 0 {
		return values[0]
	}
	return fallback
}
