package app

import (
	"context"
	"fmt"
	"testing"
	"time"

	"compliance_notifier/internal/domain/dueitem"
	"compliance_notifier/internal/domain/schedule"

	"github.com/stretchr/testify/require"
)

type fakeProcessor struct {
	calls   int
	process func(item *dueitem.Item) (Outcome, error)
}

func (p *fakeProcessor) Process(ctx context.Context, runID string, item *dueitem.Item, today time.Time) (Outcome, error) {
	p.calls++
	if p.process != nil {
		return p.process(item)
	}
	return Outcome{}, nil
}

func newTestRunner(store *fakeStore, proc ItemProcessor) *BatchService {
	svc := NewBatchService(store, proc, testLogger(), 50, 50*time.Second)
	svc.now = func() time.Time { return testToday }
	return svc
}

func TestRunEndToEnd(t *testing.T) {
	store := &fakeStore{items: []*dueitem.Item{
		serviceItem("svc-week", 7),
		serviceItem("svc-today", 0),
		serviceItem("svc-late", -10),
	}}
	engine := NewEscalationService(store, &fakeNotifier{}, &fakeAudit{}, testLogger(), "https://app.test")
	runner := newTestRunner(store, engine)

	summary := runner.Run(context.Background())

	require.NotEmpty(t, summary.RunID)
	require.False(t, summary.TimedOut)
	require.Empty(t, summary.Errors)

	require.Len(t, summary.RemindersSent, 1)
	require.Equal(t, "reminder_7d", summary.RemindersSent[0].Window)
	require.Equal(t, "Acme Fire", summary.RemindersSent[0].Vendor)

	require.Len(t, summary.DueTodayAlerts, 1)
	require.Equal(t, "Main Kitchen", summary.DueTodayAlerts[0].Location)

	require.Len(t, summary.OverdueAlerts, 1)
	require.Equal(t, 10, summary.OverdueAlerts[0].DaysOverdue)
}

func TestRunStopsAtBudget(t *testing.T) {
	store := &fakeStore{items: []*dueitem.Item{
		serviceItem("svc-1", 7),
		serviceItem("svc-2", 7),
		serviceItem("svc-3", 7),
		serviceItem("svc-4", 7),
		serviceItem("svc-5", 7),
	}}
	clock := testToday
	proc := &fakeProcessor{process: func(*dueitem.Item) (Outcome, error) {
		clock = clock.Add(20 * time.Second)
		return Outcome{}, nil
	}}
	runner := newTestRunner(store, proc)
	runner.now = func() time.Time { return clock }

	summary := runner.Run(context.Background())

	// 20s per item against a 50s budget: the deadline check before the
	// fourth item trips first.
	require.Equal(t, 3, proc.calls)
	require.True(t, summary.TimedOut)
}

func TestRunPaginatesLargePopulations(t *testing.T) {
	store := &fakeStore{}
	for i := 0; i < 120; i++ {
		store.items = append(store.items, serviceItem(fmt.Sprintf("svc-%d", i), 7))
	}
	proc := &fakeProcessor{}
	runner := newTestRunner(store, proc)

	summary := runner.Run(context.Background())

	require.False(t, summary.TimedOut)
	require.Equal(t, 120, proc.calls)
	// Three pages (50, 50, 20) for the service pre-due query, one fetch
	// for each of the five other phase queries.
	require.Len(t, store.fetchCalls, 8)
}

func TestRunCoversWholePopulationWhenProcessingShrinksTheFilter(t *testing.T) {
	// The overdue query excludes items once their marker is written, so
	// every processed page shrinks the remaining result set. Keyset
	// paging must still visit every item exactly once.
	store := &fakeStore{}
	for i := 0; i < 60; i++ {
		store.items = append(store.items, serviceItem(fmt.Sprintf("svc-%02d", i), -10))
	}
	engine := NewEscalationService(store, &fakeNotifier{}, &fakeAudit{}, testLogger(), "https://app.test")
	runner := newTestRunner(store, engine)

	summary := runner.Run(context.Background())

	require.False(t, summary.TimedOut)
	require.Empty(t, summary.Errors)
	require.Len(t, summary.OverdueAlerts, 60)
	for _, it := range store.items {
		require.True(t, it.HasFired("overdue_7d"), "item %s was never processed", it.ID)
		require.Equal(t, dueitem.StatusOverdue, it.Status)
	}
}

func TestRunStoreFailureAbortsPhaseOnly(t *testing.T) {
	store := &fakeStore{
		items: []*dueitem.Item{serviceItem("svc-late", -8)},
		failFetch: func(f dueitem.Filter) bool {
			return f.DueOnOrAfter != nil
		},
	}
	engine := NewEscalationService(store, &fakeNotifier{}, &fakeAudit{}, testLogger(), "https://app.test")
	runner := newTestRunner(store, engine)

	summary := runner.Run(context.Background())

	// Both pre-due queries fail, later phases still run.
	require.Len(t, summary.Errors, 2)
	for _, e := range summary.Errors {
		require.Contains(t, e, "pre_due_reminders: fetch failed")
	}
	require.Len(t, summary.OverdueAlerts, 1)
	require.Equal(t, 8, summary.OverdueAlerts[0].DaysOverdue)
	require.False(t, summary.TimedOut)
}

func TestRunUsesUTCDayForPhaseBoundaries(t *testing.T) {
	// A host clock of 18:00 March 10 in UTC-8 is 02:00 March 11 UTC, so
	// an item due March 11 is due today, not tomorrow.
	item := serviceItem("svc-1", 1)
	store := &fakeStore{items: []*dueitem.Item{item}}
	engine := NewEscalationService(store, &fakeNotifier{}, &fakeAudit{}, testLogger(), "https://app.test")
	runner := newTestRunner(store, engine)
	pacific := time.FixedZone("UTC-8", -8*60*60)
	runner.now = func() time.Time { return time.Date(2026, 3, 10, 18, 0, 0, 0, pacific) }

	summary := runner.Run(context.Background())

	require.Empty(t, summary.RemindersSent)
	require.Len(t, summary.DueTodayAlerts, 1)
	require.True(t, item.HasFired("client_due_day_alert"))
}

func TestRunProcessorErrorsDoNotAbort(t *testing.T) {
	store := &fakeStore{items: []*dueitem.Item{
		serviceItem("svc-bad", 7),
		serviceItem("svc-good", 7),
	}}
	proc := &fakeProcessor{process: func(it *dueitem.Item) (Outcome, error) {
		if it.ID == "svc-bad" {
			return Outcome{}, fmt.Errorf("dispatch for item svc-bad failed")
		}
		return Outcome{Fired: true, Window: schedule.Window{DaysOut: 7, Label: "reminder_7d"}}, nil
	}}
	runner := newTestRunner(store, proc)

	summary := runner.Run(context.Background())

	require.Len(t, summary.Errors, 1)
	require.Contains(t, summary.Errors[0], "svc-bad")
	require.Len(t, summary.RemindersSent, 1)
	require.Equal(t, "Hood Cleaning", summary.RemindersSent[0].Title)
}
