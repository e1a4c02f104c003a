package assignment

import (
	"context"
	"math"

	"studygroup/internal/docstore"
)

// Fields are the assignment attributes replaced by Update.
var Fields = []string{
	"assignment_name",
	"due_date",
	"assignment_image",
	"marks",
	"level",
	"description",
}

// Page selects a slice of the assignment list. Size zero means no limit.
type Page struct {
	Page int64
	Size int64
}

// Service implements assignment CRUD over a document collection.
type Service struct {
	coll docstore.Collection
}

// NewService creates a service backed by coll.
func NewService(coll docstore.Collection) *Service {
	return &Service{coll: coll}
}

// Create stores payload as a new assignment.
func (s *Service) Create(ctx context.Context, payload docstore.Document) (docstore.InsertResult, error) {
	return s.coll.Insert(ctx, payload)
}

// Get returns the assignment with id.
func (s *Service) Get(ctx context.Context, id string) (docstore.Document, error) {
	return s.coll.FindOne(ctx, id)
}

// Update replaces the assignment fields of id, creating the assignment when missing.
// Fields absent from payload are stored as null.
func (s *Service) Update(ctx context.Context, id string, payload docstore.Document) (docstore.UpdateResult, error) {
	set := make(docstore.Document, len(Fields))
	for _, f := range Fields {
		set[f] = payload[f]
	}
	return s.coll.SetFields(ctx, id, set, true)
}

// Delete removes the assignment with id.
func (s *Service) Delete(ctx context.Context, id string) (docstore.DeleteResult, error) {
	return s.coll.Delete(ctx, id)
}

// List returns one page of assignments in creation order.
func (s *Service) List(ctx context.Context, p Page) ([]docstore.Document, error) {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size < 0 {
		p.Size = 0
	}
	skip := p.Page * p.Size
	if p.Size != 0 && p.Page > math.MaxInt64/p.Size {
		skip = math.MaxInt64
	}
	return s.coll.Find(ctx, docstore.Query{Skip: skip, Limit: p.Size})
}

// Count returns the estimated number of assignments.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.coll.EstimatedCount(ctx)
}
