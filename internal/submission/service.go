package submission

import (
	"context"
	"errors"

	"studygroup/internal/auth"
	"studygroup/internal/docstore"
)

// Submission status values. A submission starts pending and becomes graded once a
// grader sets any other status; it never returns to pending.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

var (
	// ErrForbidden is returned when a user lists submissions of another owner.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidTransition is returned when a grade would move a submission back to pending.
	ErrInvalidTransition = errors.New("graded submission cannot return to pending")
)

// Grade holds the fields a grader may change.
type Grade struct {
	Status        string `json:"status"`
	ObtainedMarks any    `json:"obtained_marks"`
	Feedback      any    `json:"feedback"`
}

// Service implements submission storage and grading.
type Service struct {
	coll docstore.Collection
}

// NewService creates a service backed by coll.
func NewService(coll docstore.Collection) *Service {
	return &Service{coll: coll}
}

// Create stores payload as a new submission.
func (s *Service) Create(ctx context.Context, payload docstore.Document) (docstore.InsertResult, error) {
	return s.coll.Insert(ctx, payload)
}

// ListAll returns every submission.
func (s *Service) ListAll(ctx context.Context) ([]docstore.Document, error) {
	return s.coll.Find(ctx, docstore.Query{})
}

// ListByOwner returns the submissions owned by email. The caller may only list its own
// submissions; an empty email means the caller's.
func (s *Service) ListByOwner(ctx context.Context, email string, caller auth.Identity) ([]docstore.Document, error) {
	if email == "" {
		email = caller.Email
	}
	if email != caller.Email {
		return nil, ErrForbidden
	}
	return s.coll.Find(ctx, docstore.Query{Equals: map[string]any{"email": email}})
}

// Get returns the submission with id.
func (s *Service) Get(ctx context.Context, id string) (docstore.Document, error) {
	return s.coll.FindOne(ctx, id)
}

// Grade overwrites status, obtained_marks and feedback of the submission with id.
// An empty status grades the submission as completed.
func (s *Service) Grade(ctx context.Context, id string, g Grade) (docstore.UpdateResult, error) {
	if g.Status == StatusPending {
		return docstore.UpdateResult{}, ErrInvalidTransition
	}
	if g.Status == "" {
		g.Status = StatusCompleted
	}
	return s.coll.SetFields(ctx, id, docstore.Document{
		"status":         g.Status,
		"obtained_marks": g.ObtainedMarks,
		"feedback":       g.Feedback,
	}, false)
}
