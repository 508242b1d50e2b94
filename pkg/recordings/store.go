package recordings

import "context"

// Store is the document store interface for tracking records. Implementations
// must be safe for concurrent use; writers are partitioned per session id by
// construction, so no cross-document transactional guarantees are required
// beyond atomic per-document field updates.
type Store interface {
	// Insert creates a new tracking record. Returns ErrAlreadyExists when a
	// record with the same session id is present.
	Insert(ctx context.Context, rec *Record) error

	// UpdateFields applies a partial update to the record with merge
	// semantics. Returns ErrNotFound when the record does not exist.
	UpdateFields(ctx context.Context, id string, update Update) error

	// Find returns the record for a session id, or ErrNotFound.
	Find(ctx context.Context, id string) (*Record, error)

	// Delete removes a record. Returns ErrNotFound when absent.
	Delete(ctx context.Context, id string) error

	// DeleteByEvent removes all records associated with a calendar event and
	// returns how many were deleted.
	DeleteByEvent(ctx context.Context, eventID string) (int, error)

	// List returns all tracking records, newest first.
	List(ctx context.Context) ([]*Record, error)
}
