package docstore

import (
	"context"
	"fmt"
)

// Unavailable stands in for a backend that could not be constructed. Every operation
// fails with ErrUnavailable so routes stay registered and answer 503.
type Unavailable struct {
	Cause error
}

func (u Unavailable) err() error {
	if u.Cause == nil {
		return ErrUnavailable
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, u.Cause)
}

// Collection returns u itself.
func (u Unavailable) Collection(string) Collection { return u }

// Ping reports the unavailability.
func (u Unavailable) Ping(context.Context) error { return u.err() }

// Close is a no-op.
func (u Unavailable) Close(context.Context) error { return nil }

// FindOne fails with ErrUnavailable.
func (u Unavailable) FindOne(context.Context, string) (Document, error) {
	return nil, u.err()
}

// Insert fails with ErrUnavailable.
func (u Unavailable) Insert(context.Context, Document) (InsertResult, error) {
	return InsertResult{}, u.err()
}

// Find fails with ErrUnavailable.
func (u Unavailable) Find(context.Context, Query) ([]Document, error) {
	return nil, u.err()
}

// SetFields fails with ErrUnavailable.
func (u Unavailable) SetFields(context.Context, string, Document, bool) (UpdateResult, error) {
	return UpdateResult{}, u.err()
}

// Delete fails with ErrUnavailable.
func (u Unavailable) Delete(context.Context, string) (DeleteResult, error) {
	return DeleteResult{}, u.err()
}

// EstimatedCount fails with ErrUnavailable.
func (u Unavailable) EstimatedCount(context.Context) (int64, error) {
	return 0, u.err()
}
