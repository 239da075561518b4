package database

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/rediwo/redi-shape/logger"
	"github.com/rediwo/redi-shape/schema"
	"github.com/rediwo/redi-shape/types"
)

// DB is a SQL storage backend whose models are read as collections of rows
type DB struct {
	conn     *sqlx.DB
	config   Config
	dialect  dialect
	registry *schema.Registry
	logger   logger.Logger
}

type openOptions struct {
	logger logger.Logger
}

type Option func(*openOptions)

// WithLogger sets the logger used for statements
func WithLogger(l logger.Logger) Option {
	return func(o *openOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

func buildOptions(opts []Option) openOptions {
	o := openOptions{logger: logger.GetGlobalLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Open connects to the database at uri. Model metadata comes from registry,
// or from the process-wide registry when nil.
func Open(uri string, registry *schema.Registry, opts ...Option) (*DB, error) {
	config, err := ParseURI(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URI: %w", err)
	}
	driverName, err := config.SQLDriver()
	if err != nil {
		return nil, err
	}
	dsn, err := config.DSN()
	if err != nil {
		return nil, err
	}

	conn, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", config.Driver, err)
	}
	if config.FilePath == ":memory:" {
		// Every new connection would see a fresh empty database
		conn.SetMaxOpenConns(1)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", config.Driver, err)
	}

	if registry == nil {
		registry = schema.DefaultRegistry()
	}
	return &DB{
		conn:     conn,
		config:   config,
		dialect:  dialect(config.Driver),
		registry: registry,
		logger:   buildOptions(opts).logger,
	}, nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}

// Driver returns the database type: sqlite, mysql or postgresql
func (db *DB) Driver() string {
	return db.config.Driver
}

func (db *DB) Registry() *schema.Registry {
	return db.registry
}

// Model returns every row of the named model
func (db *DB) Model(name string) (*QuerySet, error) {
	s, err := db.registry.GetSchema(name)
	if err != nil {
		return nil, err
	}
	return &QuerySet{db: db, schema: s}, nil
}

// CreateModel creates the model's table and the junction tables of its
// manyToMany relations.
func (db *DB) CreateModel(ctx context.Context, name string) error {
	s, err := db.registry.GetSchema(name)
	if err != nil {
		return err
	}
	if _, err := db.exec(ctx, db.dialect.createTableSQL(s)); err != nil {
		return fmt.Errorf("failed to create table for model %s: %w", name, err)
	}

	for _, accessor := range s.RelationNames() {
		if s.Relations[accessor].Type != schema.RelationManyToMany {
			continue
		}
		rel, err := db.registry.Relation(name, accessor)
		if err != nil {
			return fmt.Errorf("relation %s.%s: %w", name, accessor, err)
		}
		related, err := db.registry.GetSchema(rel.Model)
		if err != nil {
			return err
		}
		ownerKey, err := s.GetPrimaryKey()
		if err != nil {
			return fmt.Errorf("manyToMany relation %s.%s needs a single primary key: %w", name, accessor, err)
		}
		relatedKey, err := related.GetPrimaryKey()
		if err != nil {
			return fmt.Errorf("manyToMany relation %s.%s needs a single primary key on %s: %w", name, accessor, rel.Model, err)
		}
		if _, err := db.exec(ctx, db.dialect.junctionTableSQL(rel, *ownerKey, *relatedKey)); err != nil {
			return fmt.Errorf("failed to create junction table %s: %w", rel.Through, err)
		}
	}
	return nil
}

// Insert stores a row given by field name and returns its generated id when
// the driver reports one.
func (db *DB) Insert(ctx context.Context, model string, data map[string]any) (int64, error) {
	s, err := db.registry.GetSchema(model)
	if err != nil {
		return 0, err
	}
	mapped, err := s.MapSchemaDataToColumns(data)
	if err != nil {
		return 0, err
	}

	columns := make([]string, 0, len(mapped))
	for column := range mapped {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	quoted := make([]string, len(columns))
	args := make([]any, len(columns))
	for i, column := range columns {
		quoted[i] = db.dialect.quote(column)
		args[i] = mapped[column]
	}

	var query string
	if len(columns) == 0 {
		query = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES", db.dialect.quote(s.TableName))
		if db.dialect == DriverMySQL {
			query = fmt.Sprintf("INSERT INTO %s () VALUES ()", db.dialect.quote(s.TableName))
		}
	} else {
		query = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
			db.dialect.quote(s.TableName),
			strings.Join(quoted, ", "),
			strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", "))
	}

	if db.dialect == DriverPostgreSQL {
		pk, err := s.GetPrimaryKey()
		if err != nil || !pk.AutoIncrement {
			_, err := db.exec(ctx, query, args...)
			return 0, err
		}
		var id int64
		query += " RETURNING " + db.dialect.quote(pk.GetColumnName())
		start := time.Now()
		err = db.conn.QueryRowxContext(ctx, db.conn.Rebind(query), args...).Scan(&id)
		db.logSQL(query, args, start, err)
		if err != nil {
			return 0, fmt.Errorf("failed to insert %s: %w", model, err)
		}
		return id, nil
	}

	result, err := db.exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert %s: %w", model, err)
	}
	id, _ := result.LastInsertId()
	return id, nil
}

// Link adds a row to the junction table of a manyToMany relation
func (db *DB) Link(ctx context.Context, model, accessor string, ownerID, relatedID any) error {
	rel, err := db.registry.Relation(model, accessor)
	if err != nil {
		return err
	}
	if rel.Type != schema.RelationManyToMany {
		return fmt.Errorf("relation %s.%s is %s, not manyToMany", model, accessor, rel.Type)
	}
	query := fmt.Sprintf("INSERT INTO %s (%s, %s) VALUES (?, ?)",
		db.dialect.quote(rel.Through), db.dialect.quote(rel.ForeignKey), db.dialect.quote(rel.References))
	if _, err := db.exec(ctx, query, ownerID, relatedID); err != nil {
		return fmt.Errorf("failed to link %s.%s: %w", model, accessor, err)
	}
	return nil
}

func (db *DB) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	result, err := db.conn.ExecContext(ctx, db.conn.Rebind(query), args...)
	db.logSQL(query, args, start, err)
	return result, err
}

// query runs a SELECT and returns each row keyed by column name
func (db *DB) query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	start := time.Now()
	rows, err := db.conn.QueryxContext(ctx, db.conn.Rebind(query), args...)
	db.logSQL(query, args, start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []map[string]any
	for rows.Next() {
		row := make(map[string]any)
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		for column, value := range row {
			if b, ok := value.([]byte); ok {
				row[column] = string(b)
			}
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

func (db *DB) logSQL(query string, args []any, start time.Time, err error) {
	if err != nil {
		db.logger.Error("SQL failed: %s %v (%s): %v", query, args, time.Since(start), err)
		return
	}
	db.logger.Debug("SQL: %s %v (%s)", query, args, time.Since(start))
}

// rowsFor wraps raw column maps as records of s
func (db *DB) rowsFor(s *schema.Schema, raw []map[string]any) []types.Record {
	records := make([]types.Record, len(raw))
	for i, columns := range raw {
		records[i] = newRow(db, s, columns)
	}
	return records
}
