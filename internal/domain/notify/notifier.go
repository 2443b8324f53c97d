package notify

import (
	"context"

	"compliance_notifier/internal/domain/schedule"
)

// Notifier sends fully-resolved payloads. Implementations must treat a
// missing transport credential as a successful no-op (empty id, nil
// error) so the engine still writes its dedup marker instead of
// retrying the same item on every future run.
type Notifier interface {
	// SendEmail delivers an HTML email and returns the provider message
	// id, or an empty id when the transport is not configured.
	SendEmail(ctx context.Context, to, subject, html string) (string, error)

	// SendSMS delivers a plain-text SMS and returns the provider message
	// id, or an empty id when the transport is not configured.
	SendSMS(ctx context.Context, to, body string) (string, error)
}

// Intent is one resolved notification: a single recipient on a single
// channel for a single fired window. Ephemeral: produced by the
// escalation engine and handed straight to the Notifier.
type Intent struct {
	ItemID        string
	WindowLabel   string
	Audience      schedule.Audience
	Channel       schedule.Channel
	RecipientName string
	Recipient     string // email address or phone number
	Subject       string // unused for SMS
	Body          string // HTML for email, plain text for SMS
}
