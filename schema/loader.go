package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type fileSchema struct {
	Models []fileModel `yaml:"models"`
}

type fileModel struct {
	Name         string         `yaml:"name"`
	Table        string         `yaml:"table"`
	CompositeKey []string       `yaml:"composite_key"`
	Fields       []fileField    `yaml:"fields"`
	Relations    []fileRelation `yaml:"relations"`
}

type fileField struct {
	Name          string `yaml:"name"`
	Type          string `yaml:"type"`
	PrimaryKey    bool   `yaml:"primary_key"`
	AutoIncrement bool   `yaml:"auto_increment"`
	Nullable      bool   `yaml:"nullable"`
	Unique        bool   `yaml:"unique"`
	Default       any    `yaml:"default"`
	Map           string `yaml:"map"`
}

type fileRelation struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Model      string `yaml:"model"`
	ForeignKey string `yaml:"foreign_key"`
	References string `yaml:"references"`
	Through    string `yaml:"through"`
	Reverse    bool   `yaml:"reverse"`
	OnDelete   string `yaml:"on_delete"`
}

// LoadFile reads model definitions from a YAML schema file
func LoadFile(path string) ([]*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML model definitions:
//
//	models:
//	  - name: User
//	    fields:
//	      - {name: id, type: int, primary_key: true, auto_increment: true}
//	      - {name: name, type: string}
//	    relations:
//	      - {name: posts, type: oneToMany, model: Post, foreign_key: authorId}
func Parse(data []byte) ([]*Schema, error) {
	var file fileSchema
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	schemas := make([]*Schema, 0, len(file.Models))
	for _, m := range file.Models {
		if m.Name == "" {
			return nil, fmt.Errorf("model without a name")
		}
		s := New(m.Name)
		if m.Table != "" {
			s.WithTableName(m.Table)
		}
		if len(m.CompositeKey) > 0 {
			s.WithCompositeKey(m.CompositeKey)
		}

		for _, f := range m.Fields {
			fieldType, err := ParseFieldType(f.Type)
			if err != nil {
				return nil, fmt.Errorf("model %s: field %s: %w", m.Name, f.Name, err)
			}
			b := NewField(f.Name).Type(fieldType).Default(f.Default).Map(f.Map)
			if f.PrimaryKey {
				b.PrimaryKey()
			}
			if f.AutoIncrement {
				b.AutoIncrement()
			}
			if f.Nullable {
				b.Nullable()
			}
			if f.Unique {
				b.Unique()
			}
			s.AddField(b.Build())
		}

		for _, r := range m.Relations {
			relType := RelationType(r.Type)
			switch relType {
			case RelationOneToOne, RelationOneToMany, RelationManyToOne, RelationManyToMany:
			default:
				return nil, fmt.Errorf("model %s: relation %s has unknown type %q", m.Name, r.Name, r.Type)
			}
			s.AddRelation(r.Name, Relation{
				Type:       relType,
				Model:      r.Model,
				ForeignKey: r.ForeignKey,
				References: r.References,
				Through:    r.Through,
				Reverse:    r.Reverse,
				OnDelete:   r.OnDelete,
			})
		}

		schemas = append(schemas, s)
	}

	return schemas, nil
}
