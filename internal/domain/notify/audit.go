package notify

import (
	"context"
	"time"
)

// Record is one audit row: a notification attempt for one audience leg
// of a fired window, successful or not.
type Record struct {
	ID          string
	RunID       string
	ItemID      string
	ItemKind    string
	WindowLabel string
	Urgency     string
	Audience    string
	SentVia     string // "email", "sms", "both" or "none"
	Outcome     string // "sent", "failed" or "skipped"
	Error       string
	CreatedAt   time.Time
}

const (
	OutcomeSent    = "sent"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// AuditLogger records every notification attempt for compliance
// traceability. Append failures are logged by callers but never abort
// processing.
type AuditLogger interface {
	Append(ctx context.Context, rec *Record) error
}
