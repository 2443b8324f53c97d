package dueitem

import "time"

// Kind distinguishes the two tracked obligation types.
type Kind string

const (
	KindServiceRecord Kind = "service_record"
	KindDocument      Kind = "document"
)

// Status is the escalation state of an item. Transitions are monotonic
// (upcoming → due_today → overdue) except resolved, which may be set
// externally from any state when the obligation is fulfilled.
type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusDueToday Status = "due_today"
	StatusOverdue  Status = "overdue"
	StatusResolved Status = "resolved"
)

// Contact is a single notification recipient. Phone may be empty, in
// which case the recipient is email-only.
type Contact struct {
	Name  string
	Email string
	Phone string
}

// Item is a trackable obligation: a vendor service due date or an
// expiring document. Audience contacts arrive already hydrated from the
// store; this subsystem never resolves them itself.
type Item struct {
	ID             string
	OrganizationID string
	Kind           Kind
	Title          string // service type or document title
	LocationName   string
	DueDate        time.Time // date only; comparisons are day-granularity
	Status         Status
	VendorContact  *Contact  // nil for documents
	ClientContacts []Contact // org owners/admins/managers
	SentMarkers    map[string]time.Time
}

// DaysUntilDue returns the whole number of days between today and the
// due date. Both sides are aligned to UTC midnight and the difference
// truncated, so an item due "tomorrow" reports 1 regardless of the
// local wall-clock time of the run.
func (i *Item) DaysUntilDue(today time.Time) int {
	return int(midnightUTC(i.DueDate).Sub(midnightUTC(today)).Hours() / 24)
}

// HasFired reports whether the dedup marker for the given window label
// has already been written for this item.
func (i *Item) HasFired(label string) bool {
	_, ok := i.SentMarkers[label]
	return ok
}

func midnightUTC(t time.Time) time.Time {
	// Convert before extracting the calendar date: a zoned timestamp
	// near midnight belongs to a different UTC day than its local one.
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
