package app

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"compliance_notifier/internal/domain/dueitem"
	"compliance_notifier/internal/domain/notify"

	"github.com/sirupsen/logrus"
)

var testToday = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l.WithField("component", "test")
}

func serviceItem(id string, daysFromNow int) *dueitem.Item {
	return &dueitem.Item{
		ID:             id,
		OrganizationID: "org-1",
		Kind:           dueitem.KindServiceRecord,
		Title:          "Hood Cleaning",
		LocationName:   "Main Kitchen",
		DueDate:        testToday.AddDate(0, 0, daysFromNow),
		Status:         dueitem.StatusUpcoming,
		VendorContact:  &dueitem.Contact{Name: "Acme Fire", Email: "ops@acmefire.test", Phone: "+15550001111"},
		ClientContacts: []dueitem.Contact{{Name: "Dana Ortiz", Email: "dana@client.test", Phone: "+15550002222"}},
		SentMarkers:    map[string]time.Time{},
	}
}

func documentItem(id string, daysFromNow int) *dueitem.Item {
	return &dueitem.Item{
		ID:             id,
		OrganizationID: "org-1",
		Kind:           dueitem.KindDocument,
		Title:          "Liability Insurance Certificate",
		LocationName:   "Main Kitchen",
		DueDate:        testToday.AddDate(0, 0, daysFromNow),
		Status:         dueitem.StatusUpcoming,
		ClientContacts: []dueitem.Contact{{Name: "Dana Ortiz", Email: "dana@client.test", Phone: "+15550002222"}},
		SentMarkers:    map[string]time.Time{},
	}
}

// fakeStore is an in-memory dueitem.Repository. MarkFired mirrors the
// production conditional-update semantics.
type fakeStore struct {
	items      []*dueitem.Item
	fetchCalls []dueitem.Filter
	failFetch  func(f dueitem.Filter) bool
	failMark   bool
}

func (s *fakeStore) FetchBatch(ctx context.Context, f dueitem.Filter, after *dueitem.PageCursor, limit int) ([]*dueitem.Item, error) {
	s.fetchCalls = append(s.fetchCalls, f)
	if s.failFetch != nil && s.failFetch(f) {
		return nil, fmt.Errorf("store unavailable")
	}
	var matched []*dueitem.Item
	for _, it := range s.items {
		if itemMatches(it, f) && afterCursor(it, after) {
			matched = append(matched, it)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		di, dj := dateOf(matched[i].DueDate), dateOf(matched[j].DueDate)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		return matched[i].ID < matched[j].ID
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func afterCursor(it *dueitem.Item, after *dueitem.PageCursor) bool {
	if after == nil {
		return true
	}
	d, cd := dateOf(it.DueDate), dateOf(after.DueDate)
	if !d.Equal(cd) {
		return d.After(cd)
	}
	return it.ID > after.ID
}

func (s *fakeStore) MarkFired(ctx context.Context, itemID, label string, at time.Time) (bool, error) {
	if s.failMark {
		return false, fmt.Errorf("store unavailable")
	}
	for _, it := range s.items {
		if it.ID != itemID {
			continue
		}
		if it.HasFired(label) {
			return false, nil
		}
		if it.SentMarkers == nil {
			it.SentMarkers = map[string]time.Time{}
		}
		it.SentMarkers[label] = at
		return true, nil
	}
	return false, nil
}

func (s *fakeStore) UpdateStatus(ctx context.Context, itemID string, from []dueitem.Status, to dueitem.Status) error {
	for _, it := range s.items {
		if it.ID != itemID {
			continue
		}
		for _, f := range from {
			if it.Status == f {
				it.Status = to
				return nil
			}
		}
	}
	return nil
}

func itemMatches(it *dueitem.Item, f dueitem.Filter) bool {
	if f.Kind != "" && it.Kind != f.Kind {
		return false
	}
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if it.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	d := dateOf(it.DueDate)
	if f.DueOnOrAfter != nil && d.Before(*f.DueOnOrAfter) {
		return false
	}
	if f.DueOn != nil && !d.Equal(*f.DueOn) {
		return false
	}
	if f.DueOnOrBefore != nil && d.After(*f.DueOnOrBefore) {
		return false
	}
	if f.WithoutMarker != "" && it.HasFired(f.WithoutMarker) {
		return false
	}
	return true
}

type sentMessage struct {
	To      string
	Subject string
	Body    string
}

// fakeNotifier records sends and can be made to fail.
type fakeNotifier struct {
	emails []sentMessage
	sms    []sentMessage
	err    error
}

func (n *fakeNotifier) SendEmail(ctx context.Context, to, subject, html string) (string, error) {
	if n.err != nil {
		return "", n.err
	}
	n.emails = append(n.emails, sentMessage{To: to, Subject: subject, Body: html})
	return fmt.Sprintf("em_%d", len(n.emails)), nil
}

func (n *fakeNotifier) SendSMS(ctx context.Context, to, body string) (string, error) {
	if n.err != nil {
		return "", n.err
	}
	n.sms = append(n.sms, sentMessage{To: to, Body: body})
	return fmt.Sprintf("sm_%d", len(n.sms)), nil
}

func (n *fakeNotifier) total() int {
	return len(n.emails) + len(n.sms)
}

// noopNotifier mimics unconfigured transports: every send succeeds
// without producing a provider message id.
type noopNotifier struct{}

func (noopNotifier) SendEmail(ctx context.Context, to, subject, html string) (string, error) {
	return "", nil
}

func (noopNotifier) SendSMS(ctx context.Context, to, body string) (string, error) {
	return "", nil
}

// fakeAudit records appended audit rows.
type fakeAudit struct {
	records []*notify.Record
}

func (a *fakeAudit) Append(ctx context.Context, rec *notify.Record) error {
	a.records = append(a.records, rec)
	return nil
}
