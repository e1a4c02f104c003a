// Package docstore is a small document-store abstraction over MongoDB, PostgreSQL JSONB
// and an in-memory map. Documents are schema-free JSON objects addressed by a
// store-generated "_id".
package docstore

import (
	"context"
	"errors"
)

// IDField is the key under which every document carries its identifier.
const IDField = "_id"

var (
	// ErrNotFound is returned when no document matches an id.
	ErrNotFound = errors.New("document not found")
	// ErrInvalidID is returned when an id is not valid for the backend.
	ErrInvalidID = errors.New("invalid document id")
	// ErrUnavailable is returned when the backing store cannot be reached.
	ErrUnavailable = errors.New("document store unavailable")
)

// Document is a schema-free JSON object.
type Document map[string]any

// ID returns the document identifier as a string, or "" when unset.
func (d Document) ID() string {
	id, _ := d[IDField].(string)
	return id
}

// InsertResult acknowledges an insert.
type InsertResult struct {
	Acknowledged bool   `json:"acknowledged"`
	InsertedID   string `json:"insertedId"`
}

// UpdateResult acknowledges an update.
type UpdateResult struct {
	Acknowledged  bool    `json:"acknowledged"`
	MatchedCount  int64   `json:"matchedCount"`
	ModifiedCount int64   `json:"modifiedCount"`
	UpsertedCount int64   `json:"upsertedCount"`
	UpsertedID    *string `json:"upsertedId"`
}

// DeleteResult acknowledges a delete.
type DeleteResult struct {
	Acknowledged bool  `json:"acknowledged"`
	DeletedCount int64 `json:"deletedCount"`
}

// Query selects documents for Find.
type Query struct {
	// Equals restricts results to documents whose top-level fields equal these values.
	Equals map[string]any
	Skip   int64
	// Limit caps the number of results; zero means no limit.
	Limit int64
}

// Collection is a named set of documents. Implementations are safe for concurrent use.
type Collection interface {
	Insert(ctx context.Context, doc Document) (InsertResult, error)
	FindOne(ctx context.Context, id string) (Document, error)
	// Find returns matching documents in insertion order.
	Find(ctx context.Context, q Query) ([]Document, error)
	// SetFields overwrites the given top-level fields. With upsert a missing id is created.
	SetFields(ctx context.Context, id string, fields Document, upsert bool) (UpdateResult, error)
	Delete(ctx context.Context, id string) (DeleteResult, error)
	// EstimatedCount may lag the exact number of documents.
	EstimatedCount(ctx context.Context) (int64, error)
}

// Store owns the connection shared by its collections.
type Store interface {
	Collection(name string) Collection
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// withoutID copies doc dropping any client supplied identifier.
func withoutID(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		if k == IDField {
			continue
		}
		out[k] = v
	}
	return out
}

func pageBounds(n int, q Query) (int, int) {
	start := 0
	if q.Skip > 0 {
		start = n
		if q.Skip < int64(n) {
			start = int(q.Skip)
		}
	}
	end := n
	if q.Limit > 0 && q.Limit < int64(n-start) {
		end = start + int(q.Limit)
	}
	return start, end
}
