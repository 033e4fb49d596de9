// Package store wraps the MongoDB driver for the one collection this tool
// queries: sampling for schema inference, CSV ingestion inserts, and bounded
// execution of validated queries.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/askmongo/askmongo/internal/query"
	"github.com/askmongo/askmongo/internal/schema"
)

// ExecutionError surfaces a store-level failure with its underlying cause.
type ExecutionError struct {
	Op    string
	Cause error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Cause)
}

func (e *ExecutionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

type Config struct {
	URI        string
	Database   string
	Collection string

	// ConnectTimeout bounds server selection during Open.
	ConnectTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	return c
}

// Store is a connected handle on the configured collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// Open connects and pings the server so a bad URI fails here, not on the
// first question.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	cfg = cfg.withDefaults()
	if cfg.URI == "" {
		return nil, fmt.Errorf("MONGO_URI is required")
	}
	if cfg.Database == "" || cfg.Collection == "" {
		return nil, fmt.Errorf("DB_NAME and COLLECTION_NAME are required")
	}

	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(cfg.ConnectTimeout))
	if err != nil {
		return nil, &ExecutionError{Op: "connect", Cause: err}
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &ExecutionError{Op: "ping", Cause: err}
	}

	return &Store{
		client: client,
		coll:   client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// SampleDocuments returns up to limit documents for schema inference, with
// driver-specific value types normalized to plain Go types.
func (s *Store) SampleDocuments(ctx context.Context, limit int) ([]map[string]any, error) {
	if limit <= 0 {
		limit = 100
	}
	cur, err := s.coll.Find(ctx, bson.D{}, options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, &ExecutionError{Op: "sample", Cause: err}
	}
	return drainCursor(ctx, cur, "sample")
}

// InsertDocuments writes ingested rows into the collection.
func (s *Store) InsertDocuments(ctx context.Context, docs []map[string]any) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	payload := make([]any, len(docs))
	for i, d := range docs {
		payload[i] = d
	}
	res, err := s.coll.InsertMany(ctx, payload)
	if err != nil {
		return 0, &ExecutionError{Op: "insert", Cause: err}
	}
	return len(res.InsertedIDs), nil
}

// Execute runs a validated query and returns at most limit documents.
// Single attempt; retrying is the caller's decision.
func (s *Store) Execute(ctx context.Context, q query.StructuredQuery, fields schema.FieldSchema, limit int) ([]map[string]any, error) {
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().SetLimit(int64(limit))
	if len(q.Sort) > 0 {
		opts = opts.SetSort(query.BSONSort(q.Sort))
	}

	cur, err := s.coll.Find(ctx, query.BSONFilter(q.Filter, fields), opts)
	if err != nil {
		return nil, &ExecutionError{Op: "find", Cause: err}
	}
	return drainCursor(ctx, cur, "find")
}

func drainCursor(ctx context.Context, cur *mongo.Cursor, op string) ([]map[string]any, error) {
	defer func() {
		_ = cur.Close(ctx)
	}()

	var out []map[string]any
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, &ExecutionError{Op: op, Cause: err}
		}
		out = append(out, NormalizeDocument(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, &ExecutionError{Op: op, Cause: err}
	}
	return out, nil
}

// NormalizeDocument converts driver-specific BSON values into plain Go types
// and drops the synthetic _id, mirroring what table rendering and schema
// inference expect.
func NormalizeDocument(doc bson.M) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		if k == "_id" {
			continue
		}
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case primitive.DateTime:
		return t.Time().UTC()
	case primitive.ObjectID:
		return t.Hex()
	case primitive.A:
		items := make([]any, len(t))
		for i, item := range t {
			items[i] = normalizeValue(item)
		}
		return items
	case bson.M:
		sub := make(map[string]any, len(t))
		for k, item := range t {
			sub[k] = normalizeValue(item)
		}
		return sub
	case bson.D:
		sub := make(map[string]any, len(t))
		for _, e := range t {
			sub[e.Key] = normalizeValue(e.Value)
		}
		return sub
	case int32:
		return int64(t)
	default:
		return v
	}
}
