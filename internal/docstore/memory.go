package docstore

import (
	"context"
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// Memory is a process-local Store for development and tests.
type Memory struct {
	mu          sync.Mutex
	collections map[string]*MemoryCollection
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]*MemoryCollection)}
}

// Collection returns the named collection, creating it on first use.
func (m *Memory) Collection(name string) Collection {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[name]
	if !ok {
		c = &MemoryCollection{}
		m.collections[name] = c
	}
	return c
}

// Ping always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }

// Close is a no-op.
func (m *Memory) Close(context.Context) error { return nil }

// MemoryCollection keeps documents in insertion order.
type MemoryCollection struct {
	mu   sync.RWMutex
	docs []Document
}

func (c *MemoryCollection) indexOf(id string) int {
	for i, doc := range c.docs {
		if doc.ID() == id {
			return i
		}
	}
	return -1
}

// Insert stores a copy of doc under a new id.
func (c *MemoryCollection) Insert(_ context.Context, doc Document) (InsertResult, error) {
	stored := cloneDocument(withoutID(doc))
	id := uuid.NewString()
	stored[IDField] = id

	c.mu.Lock()
	c.docs = append(c.docs, stored)
	c.mu.Unlock()
	return InsertResult{Acknowledged: true, InsertedID: id}, nil
}

// FindOne returns a copy of the document with id.
func (c *MemoryCollection) FindOne(_ context.Context, id string) (Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := c.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	return cloneDocument(c.docs[i]), nil
}

// Find returns copies of matching documents in insertion order.
func (c *MemoryCollection) Find(_ context.Context, q Query) ([]Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	matched := make([]Document, 0, len(c.docs))
	for _, doc := range c.docs {
		if matches(doc, q.Equals) {
			matched = append(matched, doc)
		}
	}
	start, end := pageBounds(len(matched), q)
	out := make([]Document, 0, end-start)
	for _, doc := range matched[start:end] {
		out = append(out, cloneDocument(doc))
	}
	return out, nil
}

// SetFields overwrites fields on the document with id.
func (c *MemoryCollection) SetFields(_ context.Context, id string, fields Document, upsert bool) (UpdateResult, error) {
	fields = cloneDocument(withoutID(fields))

	c.mu.Lock()
	defer c.mu.Unlock()

	i := c.indexOf(id)
	if i < 0 {
		if !upsert {
			return UpdateResult{Acknowledged: true}, nil
		}
		fields[IDField] = id
		c.docs = append(c.docs, fields)
		return UpdateResult{Acknowledged: true, UpsertedCount: 1, UpsertedID: &id}, nil
	}

	doc := c.docs[i]
	modified := false
	for k, v := range fields {
		if old, ok := doc[k]; !ok || !reflect.DeepEqual(old, v) {
			modified = true
		}
		doc[k] = v
	}
	res := UpdateResult{Acknowledged: true, MatchedCount: 1}
	if modified {
		res.ModifiedCount = 1
	}
	return res, nil
}

// Delete removes the document with id, reporting zero when it does not exist.
func (c *MemoryCollection) Delete(_ context.Context, id string) (DeleteResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return DeleteResult{Acknowledged: true}, nil
	}
	c.docs = append(c.docs[:i], c.docs[i+1:]...)
	return DeleteResult{Acknowledged: true, DeletedCount: 1}, nil
}

// EstimatedCount is exact for the in-memory store.
func (c *MemoryCollection) EstimatedCount(context.Context) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int64(len(c.docs)), nil
}

func matches(doc Document, equals map[string]any) bool {
	for k, want := range equals {
		got, ok := doc[k]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

func cloneDocument(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Document:
		return cloneDocument(t)
	case map[string]any:
		return map[string]any(cloneDocument(t))
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
