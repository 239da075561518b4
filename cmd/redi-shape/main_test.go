package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/rediwo/redi-shape/database"
	"github.com/rediwo/redi-shape/logger"
	"github.com/rediwo/redi-shape/schema"
)

const testSchema = `
models:
  - name: User
    fields:
      - {name: id, type: int, primary_key: true, auto_increment: true}
      - {name: name}
      - {name: active, type: bool, default: true}
      - {name: tagId, type: int, nullable: true}
    relations:
      - {name: tag, type: manyToOne, model: Tag, foreign_key: tagId}
  - name: Tag
    fields:
      - {name: id, type: int, primary_key: true}
      - {name: label}
`

// setup writes a schema file and a seeded sqlite database into a temp dir
func setup(t *testing.T) (dir, dbURI, schemaPath string) {
	t.Helper()
	ctx := context.Background()
	dir = t.TempDir()
	schemaPath = filepath.Join(dir, "schema.yaml")
	require.NoError(t, os.WriteFile(schemaPath, []byte(testSchema), 0o644))

	schemas, err := schema.Parse([]byte(testSchema))
	require.NoError(t, err)
	registry := schema.NewRegistry()
	require.NoError(t, registry.Register(schemas...))

	dbURI = "sqlite://" + filepath.Join(dir, "test.db")
	db, err := database.Open(dbURI, registry, database.WithLogger(logger.NewNullLogger()))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.CreateModel(ctx, "Tag"))
	require.NoError(t, db.CreateModel(ctx, "User"))
	_, err = db.Insert(ctx, "Tag", map[string]any{"id": 1, "label": "go"})
	require.NoError(t, err)
	_, err = db.Insert(ctx, "User", map[string]any{"name": "ann", "tagId": 1})
	require.NoError(t, err)
	_, err = db.Insert(ctx, "User", map[string]any{"name": "bob", "active": false})
	require.NoError(t, err)
	return dir, dbURI, schemaPath
}

func TestRunVersionAndHelp(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"version"}, &out))
	assert.Equal(t, "RediShape CLI v"+version+"\n", out.String())

	out.Reset()
	require.NoError(t, run(context.Background(), nil, &out))
	assert.Contains(t, out.String(), "Usage:")
}

func TestRunErrors(t *testing.T) {
	_, dbURI, schemaPath := setup(t)

	tests := []struct {
		name string
		args []string
		msg  string
	}{
		{"unknown command", []string{"explode"}, "unknown command"},
		{"missing model", []string{"dump", "--db", dbURI}, "--model is required"},
		{"missing db", []string{"dump", "--model", "User", "--schema", schemaPath}, "--db is required"},
		{"missing schema", []string{"dump", "--model", "User", "--db", dbURI}, "--schema is required"},
		{"bad format", []string{"dump", "--format", "xml"}, "unsupported format"},
		{"bad where", []string{"dump", "--where", "nothing"}, "field=value"},
		{"bad log level", []string{"dump", "--model", "User", "--db", dbURI, "--log-level", "loud"}, "invalid config"},
		{"unknown model", []string{"dump", "--model", "Nope", "--db", dbURI, "--schema", schemaPath}, "Nope"},
		{"unknown field", []string{"dump", "--model", "User", "--db", dbURI, "--schema", schemaPath, "--fields", "nope"}, "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(context.Background(), tt.args, &bytes.Buffer{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestRunDump(t *testing.T) {
	_, dbURI, schemaPath := setup(t)
	base := []string{"dump", "--db", dbURI, "--schema", schemaPath, "--model", "User", "--log-level", "none"}

	tests := []struct {
		name   string
		args   []string
		expect string
	}{
		{
			name:   "defaults",
			expect: `[{"id": 1, "name": "ann", "active": true, "tagId": 1}, {"id": 2, "name": "bob", "active": false, "tagId": null}]`,
		},
		{
			name:   "fields and where",
			args:   []string{"--fields", "name,tag", "--where", "active=true"},
			expect: `[{"name": "ann", "tag": {"id": 1, "label": "go"}}]`,
		},
		{
			name:   "exclude and camelcase",
			args:   []string{"--exclude", "active,tagId", "--camelcase"},
			expect: `[{"id": 1, "name": "ann"}, {"id": 2, "name": "bob"}]`,
		},
		{
			name:   "values list",
			args:   []string{"--fields", "name", "--values-list"},
			expect: `["ann", "bob"]`,
		},
		{
			name:   "selection",
			args:   []string{"--select", "{ who: name tag { label } }", "--where", "name=ann"},
			expect: `[{"who": "ann", "tag": "go"}]`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, run(context.Background(), append(append([]string{}, base...), tt.args...), &out))
			assert.JSONEq(t, tt.expect, out.String())
		})
	}
}

func TestRunDumpYAMLWithConfig(t *testing.T) {
	dir, dbURI, _ := setup(t)
	settings := `
options:
  fields: [name]
  posthook:
    script: "function(r, attrs) { attrs.name = attrs.name.toUpperCase() }"
database:
  uri: "` + dbURI + `"
  schema: schema.yaml
logging:
  level: none
`
	configPath := filepath.Join(dir, "shape.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(settings), 0o644))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(),
		[]string{"dump", "--config", configPath, "--model", "User", "--format", "yaml"}, &out))

	var got []map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, []map[string]any{{"name": "ANN"}, {"name": "BOB"}}, got)
}

func TestRunModels(t *testing.T) {
	_, _, schemaPath := setup(t)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"models", "--schema", schemaPath}, &out))
	assert.Contains(t, out.String(), "User (users): id, name, active, tagId | tag")
	assert.Contains(t, out.String(), "Tag (tags): id, label")
}

func TestParseWhere(t *testing.T) {
	criteria, err := parseWhere([]string{"id=1", "active=false", "name=ann", "tagId=null"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": 1, "active": false, "name": "ann", "tagId": nil}, criteria)

	criteria, err = parseWhere(nil)
	require.NoError(t, err)
	assert.Nil(t, criteria)
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(" "))
	assert.Equal(t, []string{"a", "b"}, splitList("a, b,,"))
}
