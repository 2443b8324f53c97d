package dueitem

import (
	"context"
	"time"
)

// Filter narrows a FetchBatch query. Zero-valued fields are ignored.
type Filter struct {
	Kind          Kind
	Statuses      []Status
	DueOnOrAfter  *time.Time
	DueOn         *time.Time
	DueOnOrBefore *time.Time
	WithoutMarker string // only items whose marker for this label is unset
}

// PageCursor is a keyset-pagination position in the (due_date, id)
// ordering. Paging by cursor instead of offset keeps iteration stable
// while processing mutates items out of the active filter's match set.
type PageCursor struct {
	DueDate time.Time
	ID      string
}

// Repository defines the persistence operations the scheduler needs.
// MarkFired and UpdateStatus must be atomic conditional updates: the
// batch runner tolerates overlapping invocations and relies on these
// primitives for its at-most-once marker guarantee.
type Repository interface {
	// FetchBatch returns one page of items matching the filter, ordered
	// by (due_date, id) ascending, strictly after the cursor position.
	// A nil cursor starts from the beginning.
	FetchBatch(ctx context.Context, f Filter, after *PageCursor, limit int) ([]*Item, error)

	// MarkFired sets the dedup marker for the given window label if and
	// only if it is not already set. It returns true when this call won
	// the write; false means another run already marked the window.
	MarkFired(ctx context.Context, itemID, label string, at time.Time) (bool, error)

	// UpdateStatus transitions the item to the given status provided its
	// current status is one of from. A no-op result is not an error.
	UpdateStatus(ctx context.Context, itemID string, from []Status, to Status) error
}
