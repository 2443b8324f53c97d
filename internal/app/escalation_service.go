// internal/app/escalation_service.go
package app

import (
	"context"
	"fmt"
	"time"

	"compliance_notifier/internal/domain/dueitem"
	"compliance_notifier/internal/domain/notify"
	"compliance_notifier/internal/domain/schedule"

	"github.com/sirupsen/logrus"
)

// overdueGraceDays is the fixed grace period after the due date before
// an item escalates to overdue.
const overdueGraceDays = 7

// Outcome summarizes what Process did for one item.
type Outcome struct {
	Fired     bool
	Window    schedule.Window
	Intents   int
	NewStatus dueitem.Status // empty when the status did not change
}

// EscalationService is the per-item escalation engine: it evaluates an
// item against its kind's window table and dedup markers, dispatches at
// most one window's notifications per run, records the dedup marker,
// drives the upcoming → due_today → overdue status transitions, and
// appends an audit record for every attempt.
type EscalationService struct {
	items    dueitem.Repository
	notifier notify.Notifier
	audit    notify.AuditLogger
	logger   *logrus.Entry
	appURL   string
}

func NewEscalationService(
	items dueitem.Repository,
	notifier notify.Notifier,
	audit notify.AuditLogger,
	logger *logrus.Entry,
	appURL string,
) *EscalationService {
	return &EscalationService{
		items:    items,
		notifier: notifier,
		audit:    audit,
		logger:   logger,
		appURL:   appURL,
	}
}

// Process runs the per-item algorithm. It is idempotent for an
// unchanged item and unchanged today: the second invocation resolves
// the same window, finds its marker set and does nothing.
//
// The dedup marker is written only after the Notifier reports success,
// so a send that succeeds just before a marker write fails can be
// delivered again on the next run. That duplicate is bounded to one
// per window per item and is the accepted cost of not having a
// transaction spanning the transport and the store.
func (s *EscalationService) Process(ctx context.Context, runID string, item *dueitem.Item, today time.Time) (Outcome, error) {
	var out Outcome

	if item.Status == dueitem.StatusResolved {
		return out, nil
	}

	daysUntil := item.DaysUntilDue(today)
	windows := schedule.ForKind(item.Kind)
	w, ok := schedule.Resolve(windows, daysUntil)
	if !ok || item.HasFired(w.Label) || moreUrgentFired(item, windows, w) {
		return out, nil
	}

	intents := s.buildIntents(item, w, daysUntil)
	if len(intents) == 0 {
		s.logger.WithFields(logrus.Fields{
			"item_id": item.ID,
			"window":  w.Label,
		}).Debug("No reachable recipients for fired window; skipping item.")
		return out, nil
	}

	delivered, sendErr := s.dispatch(ctx, intents)
	s.appendAudit(ctx, runID, item, w, intents, delivered, sendErr)
	if sendErr != nil {
		// Item stays unmarked and is retried on the next scheduled run.
		return out, fmt.Errorf("dispatch for item %s window %s: %w", item.ID, w.Label, sendErr)
	}

	marked, err := s.items.MarkFired(ctx, item.ID, w.Label, today)
	if err != nil {
		return out, fmt.Errorf("failed to mark window %s fired for item %s: %w", w.Label, item.ID, err)
	}
	if !marked {
		// A concurrent run won the marker write after we already sent.
		// Bounded duplicate, surfaced for observability.
		s.logger.WithFields(logrus.Fields{
			"item_id": item.ID,
			"window":  w.Label,
		}).Warn("Dedup marker was already set by a concurrent run; a duplicate notification was delivered.")
	}
	if item.SentMarkers == nil {
		item.SentMarkers = map[string]time.Time{}
	}
	item.SentMarkers[w.Label] = today

	out.Fired = true
	out.Window = w
	out.Intents = len(intents)

	switch {
	case w.DaysOut <= -overdueGraceDays:
		if item.Status != dueitem.StatusOverdue {
			from := []dueitem.Status{dueitem.StatusUpcoming, dueitem.StatusDueToday}
			if err := s.items.UpdateStatus(ctx, item.ID, from, dueitem.StatusOverdue); err != nil {
				return out, fmt.Errorf("failed to transition item %s to overdue: %w", item.ID, err)
			}
			item.Status = dueitem.StatusOverdue
			out.NewStatus = dueitem.StatusOverdue
		}
	case daysUntil == 0 && item.Status == dueitem.StatusUpcoming:
		from := []dueitem.Status{dueitem.StatusUpcoming}
		if err := s.items.UpdateStatus(ctx, item.ID, from, dueitem.StatusDueToday); err != nil {
			return out, fmt.Errorf("failed to transition item %s to due_today: %w", item.ID, err)
		}
		item.Status = dueitem.StatusDueToday
		out.NewStatus = dueitem.StatusDueToday
	}

	return out, nil
}

// moreUrgentFired reports whether any window tighter than the candidate
// has already fired for the item. Window labels must stay non-decreasing
// in urgency over an item's life; once a tighter window fired, earlier
// windows are permanently out of play.
func moreUrgentFired(item *dueitem.Item, windows []schedule.Window, candidate schedule.Window) bool {
	for _, w := range windows {
		if w.DaysOut < candidate.DaysOut && item.HasFired(w.Label) {
			return true
		}
	}
	return false
}

// buildIntents expands a fired window into one intent per reachable
// (recipient, channel) pair. SMS is suppressed for low urgency and for
// contacts without a phone number, independent of the window's own
// channel list.
func (s *EscalationService) buildIntents(item *dueitem.Item, w schedule.Window, daysUntil int) []notify.Intent {
	type leg struct {
		audience schedule.Audience
		contacts []dueitem.Contact
	}
	var legs []leg
	if w.Audience == schedule.AudienceVendor || w.Audience == schedule.AudienceBoth {
		if item.VendorContact != nil {
			legs = append(legs, leg{schedule.AudienceVendor, []dueitem.Contact{*item.VendorContact}})
		}
	}
	if w.Audience == schedule.AudienceClient || w.Audience == schedule.AudienceBoth {
		legs = append(legs, leg{schedule.AudienceClient, item.ClientContacts})
	}

	var intents []notify.Intent
	for _, l := range legs {
		for _, c := range l.contacts {
			if c.Email != "" && w.HasChannel(schedule.ChannelEmail) {
				subject, html := emailContent(item, w, daysUntil, c.Name, s.appURL)
				intents = append(intents, notify.Intent{
					ItemID:        item.ID,
					WindowLabel:   w.Label,
					Audience:      l.audience,
					Channel:       schedule.ChannelEmail,
					RecipientName: c.Name,
					Recipient:     c.Email,
					Subject:       subject,
					Body:          html,
				})
			}
			if c.Phone != "" && w.HasChannel(schedule.ChannelSMS) && w.Urgency != schedule.UrgencyLow {
				intents = append(intents, notify.Intent{
					ItemID:        item.ID,
					WindowLabel:   w.Label,
					Audience:      l.audience,
					Channel:       schedule.ChannelSMS,
					RecipientName: c.Name,
					Recipient:     c.Phone,
					Body:          smsContent(item, w, daysUntil),
				})
			}
		}
	}
	return intents
}

// dispatch delivers intents sequentially, stopping at the first
// transport failure so the item is retried whole on the next run. The
// returned flag reports whether any transport actually accepted a
// payload; unconfigured transports succeed without producing a message
// id.
func (s *EscalationService) dispatch(ctx context.Context, intents []notify.Intent) (bool, error) {
	delivered := false
	for _, in := range intents {
		var (
			id  string
			err error
		)
		if in.Channel == schedule.ChannelSMS {
			id, err = s.notifier.SendSMS(ctx, in.Recipient, in.Body)
		} else {
			id, err = s.notifier.SendEmail(ctx, in.Recipient, in.Subject, in.Body)
		}
		if err != nil {
			s.logger.WithFields(logrus.Fields{
				"item_id": in.ItemID,
				"window":  in.WindowLabel,
				"channel": in.Channel,
			}).Errorf("Failed to dispatch notification: %v", err)
			return delivered, err
		}
		if id != "" {
			delivered = true
		}
		s.logger.WithFields(logrus.Fields{
			"item_id":    in.ItemID,
			"window":     in.WindowLabel,
			"channel":    in.Channel,
			"message_id": id,
		}).Debug("Notification dispatched.")
	}
	return delivered, nil
}

// appendAudit writes one record per audience leg of the attempt,
// success or failure. A run against unconfigured transports is recorded
// as skipped. Audit failures are logged, never fatal.
func (s *EscalationService) appendAudit(ctx context.Context, runID string, item *dueitem.Item, w schedule.Window, intents []notify.Intent, delivered bool, sendErr error) {
	type legUsage struct {
		email bool
		sms   bool
	}
	legs := map[schedule.Audience]*legUsage{}
	order := []schedule.Audience{}
	for _, in := range intents {
		u, ok := legs[in.Audience]
		if !ok {
			u = &legUsage{}
			legs[in.Audience] = u
			order = append(order, in.Audience)
		}
		if in.Channel == schedule.ChannelSMS {
			u.sms = true
		} else {
			u.email = true
		}
	}

	for _, audience := range order {
		u := legs[audience]
		sentVia := "none"
		switch {
		case u.email && u.sms:
			sentVia = "both"
		case u.sms:
			sentVia = "sms"
		case u.email:
			sentVia = "email"
		}
		rec := &notify.Record{
			RunID:       runID,
			ItemID:      item.ID,
			ItemKind:    string(item.Kind),
			WindowLabel: w.Label,
			Urgency:     string(w.Urgency),
			Audience:    string(audience),
			SentVia:     sentVia,
			Outcome:     notify.OutcomeSent,
		}
		switch {
		case sendErr != nil:
			rec.Outcome = notify.OutcomeFailed
			rec.Error = sendErr.Error()
		case !delivered:
			rec.Outcome = notify.OutcomeSkipped
		}
		if err := s.audit.Append(ctx, rec); err != nil {
			s.logger.WithField("item_id", item.ID).Errorf("Failed to append audit record: %v", err)
		}
	}
}
