package database

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rediwo/redi-shape/logger"
	"github.com/rediwo/redi-shape/schema"
	"github.com/rediwo/redi-shape/types"
)

// Mongo is a MongoDB backend whose models are read as collections of
// documents. Embedded documents come back as ordered mappings.
type Mongo struct {
	client   *mongo.Client
	database *mongo.Database
	registry *schema.Registry
	logger   logger.Logger
}

// OpenMongo connects to the MongoDB deployment at uri
func OpenMongo(ctx context.Context, uri string, registry *schema.Registry, opts ...Option) (*Mongo, error) {
	config, err := ParseURI(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URI: %w", err)
	}
	if config.Driver != DriverMongoDB {
		return nil, fmt.Errorf("%s is not a MongoDB URI", config.Driver)
	}

	client, err := mongo.Connect(ctx, mongooptions.Client().ApplyURI(config.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	if registry == nil {
		registry = schema.DefaultRegistry()
	}
	return &Mongo{
		client:   client,
		database: client.Database(config.Database),
		registry: registry,
		logger:   buildOptions(opts).logger,
	}, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// Model returns every document of the named model's collection
func (m *Mongo) Model(name string) (*Documents, error) {
	s, err := m.registry.GetSchema(name)
	if err != nil {
		return nil, err
	}
	return &Documents{mongo: m, schema: s, filter: bson.D{}}, nil
}

// Documents is a lazy find over one collection
type Documents struct {
	mongo  *Mongo
	schema *schema.Schema
	filter bson.D
}

func (d *Documents) Model() string {
	return d.schema.Name
}

func (d *Documents) collection() *mongo.Collection {
	return d.mongo.database.Collection(d.schema.TableName)
}

// Filter narrows the documents by equality criteria; slices become $in
func (d *Documents) Filter(ctx context.Context, criteria map[string]any) (types.Collection, error) {
	filter, err := criteriaFilter(d.schema, criteria)
	if err != nil {
		return nil, err
	}
	next := append(append(bson.D{}, d.filter...), filter...)
	return &Documents{mongo: d.mongo, schema: d.schema, filter: next}, nil
}

func (d *Documents) Records(ctx context.Context) ([]types.Record, error) {
	docs, err := d.find(ctx, nil)
	if err != nil {
		return nil, err
	}
	records := make([]types.Record, len(docs))
	for i, doc := range docs {
		records[i] = newDocument(d.schema, doc)
	}
	return records, nil
}

// ValuesList projects the documents onto the named fields
func (d *Documents) ValuesList(ctx context.Context, accessors []string) ([][]any, error) {
	projection := bson.D{}
	for _, accessor := range accessors {
		if _, err := d.schema.GetField(accessor); err != nil {
			return nil, fmt.Errorf("%w: %q on %s", types.ErrFieldNotFound, accessor, d.schema.Name)
		}
		projection = append(projection, bson.E{Key: documentKey(d.schema, accessor), Value: 1})
	}

	docs, err := d.find(ctx, projection)
	if err != nil {
		return nil, err
	}
	out := make([][]any, len(docs))
	for i, raw := range docs {
		doc := newDocument(d.schema, raw)
		row := make([]any, len(accessors))
		for j, accessor := range accessors {
			row[j], _ = doc.Get(accessor)
		}
		out[i] = row
	}
	return out, nil
}

func (d *Documents) find(ctx context.Context, projection bson.D) ([]bson.D, error) {
	opts := mongooptions.Find().SetSort(documentSort(d.schema))
	if projection != nil {
		opts.SetProjection(projection)
	}

	start := time.Now()
	cursor, err := d.collection().Find(ctx, d.filter, opts)
	if err != nil {
		d.mongo.logger.Error("MongoDB find on %s %v failed: %v", d.schema.TableName, d.filter, err)
		return nil, fmt.Errorf("failed to query %s: %w", d.schema.Name, err)
	}
	defer cursor.Close(ctx)

	var docs []bson.D
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", d.schema.Name, err)
	}
	d.mongo.logger.Debug("MongoDB find on %s %v: %d documents (%s)", d.schema.TableName, d.filter, len(docs), time.Since(start))
	return docs, nil
}

// documentKey maps a field name to its document key. A single primary key
// is stored as _id.
func documentKey(s *schema.Schema, field string) string {
	if pk := s.PrimaryKeyFields(); len(pk) == 1 && pk[0] == field {
		return "_id"
	}
	if f, err := s.GetField(field); err == nil {
		return f.GetColumnName()
	}
	return field
}

func documentSort(s *schema.Schema) bson.D {
	order := bson.D{}
	for _, field := range s.PrimaryKeyFields() {
		order = append(order, bson.E{Key: documentKey(s, field), Value: 1})
	}
	return order
}

func criteriaFilter(s *schema.Schema, criteria map[string]any) (bson.D, error) {
	keys := make([]string, 0, len(criteria))
	for key := range criteria {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	filter := bson.D{}
	for _, key := range keys {
		if _, err := s.GetField(key); err != nil {
			return nil, fmt.Errorf("%w: %q on %s", types.ErrFieldNotFound, key, s.Name)
		}
		value := criteria[key]
		if rv := reflect.ValueOf(value); value != nil && (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
			in := make(bson.A, rv.Len())
			for i := range in {
				in[i] = rv.Index(i).Interface()
			}
			value = bson.D{{Key: "$in", Value: in}}
		}
		filter = append(filter, bson.E{Key: documentKey(s, key), Value: value})
	}
	return filter, nil
}

// Document is one stored document keyed by field name
type Document struct {
	schema *schema.Schema
	values bson.D
}

func newDocument(s *schema.Schema, raw bson.D) *Document {
	values := make(bson.D, 0, len(raw))
	for _, e := range raw {
		key := e.Key
		if key == "_id" {
			if pk := s.PrimaryKeyFields(); len(pk) == 1 {
				key = pk[0]
			}
		} else if field, err := s.GetFieldByColumnName(key); err == nil {
			key = field.Name
		}
		values = append(values, bson.E{Key: key, Value: normalizeBSON(e.Value)})
	}
	return &Document{schema: s, values: values}
}

// normalizeBSON converts driver specific values into plain ones
func normalizeBSON(v any) any {
	switch val := v.(type) {
	case primitive.ObjectID:
		return val.Hex()
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.Decimal128:
		return val.String()
	case bson.D:
		out := make(bson.D, len(val))
		for i, e := range val {
			out[i] = bson.E{Key: e.Key, Value: normalizeBSON(e.Value)}
		}
		return out
	case bson.A:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalizeBSON(item)
		}
		return out
	default:
		return v
	}
}

func (d *Document) ModelName() string {
	return d.schema.Name
}

func (d *Document) Identity() any {
	fields := d.schema.PrimaryKeyFields()
	parts := make([]string, len(fields))
	for i, name := range fields {
		v, _ := d.Get(name)
		parts[i] = fmt.Sprint(v)
	}
	return rowIdentity{model: d.schema.Name, key: strings.Join(parts, "\x00")}
}

func (d *Document) Get(name string) (any, bool) {
	for _, e := range d.values {
		if e.Key == name {
			return e.Value, true
		}
	}
	if _, err := d.schema.GetField(name); err == nil {
		return nil, true
	}
	return nil, false
}

// D returns the document keyed by field name
func (d *Document) D() bson.D {
	return append(bson.D(nil), d.values...)
}
