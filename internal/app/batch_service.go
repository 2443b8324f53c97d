// internal/app/batch_service.go
package app

import (
	"context"
	"time"

	"compliance_notifier/internal/domain/dueitem"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ItemProcessor is the per-item engine the runner drives. Satisfied by
// EscalationService.
type ItemProcessor interface {
	Process(ctx context.Context, runID string, item *dueitem.Item, today time.Time) (Outcome, error)
}

// OpsNotifier receives the summary of a finished run. Optional.
type OpsNotifier interface {
	NotifyRunSummary(ctx context.Context, summary *RunSummary)
}

// ReminderResult is one pre-due reminder delivered during a run.
type ReminderResult struct {
	Vendor string `json:"vendor,omitempty"`
	Title  string `json:"title"`
	Window string `json:"window"`
}

// DueTodayResult is one due-today client alert delivered during a run.
type DueTodayResult struct {
	Title    string `json:"title"`
	Location string `json:"location"`
}

// OverdueResult is one overdue escalation delivered during a run.
type OverdueResult struct {
	Vendor      string `json:"vendor,omitempty"`
	Title       string `json:"title"`
	DaysOverdue int    `json:"daysOverdue"`
}

// RunSummary is the response contract of one run, consumed by the cron
// caller's dashboard.
type RunSummary struct {
	RunID          string           `json:"runId"`
	RemindersSent  []ReminderResult `json:"remindersSent"`
	DueTodayAlerts []DueTodayResult `json:"dueTodayAlerts"`
	OverdueAlerts  []OverdueResult  `json:"overdueAlerts"`
	Errors         []string         `json:"errors"`
	TimedOut       bool             `json:"timedOut"`
	StartedAt      time.Time        `json:"startedAt"`
	DurationMS     int64            `json:"durationMs"`
}

// BatchService drives the escalation engine over the full due-item
// population within a hard wall-clock budget. One invocation is one
// run; no state is carried across runs. Partial progress is safe
// because every delivery is guarded by a dedup marker, so the next
// cron tick simply picks up whatever this run did not reach.
type BatchService struct {
	items     dueitem.Repository
	processor ItemProcessor
	logger    *logrus.Entry
	batchSize int
	budget    time.Duration
	now       func() time.Time
	ops       OpsNotifier
}

func NewBatchService(
	items dueitem.Repository,
	processor ItemProcessor,
	logger *logrus.Entry,
	batchSize int,
	budget time.Duration,
) *BatchService {
	return &BatchService{
		items:     items,
		processor: processor,
		logger:    logger,
		batchSize: batchSize,
		budget:    budget,
		now:       time.Now,
	}
}

// SetOpsNotifier attaches an optional operations channel that receives
// each run's summary.
func (s *BatchService) SetOpsNotifier(ops OpsNotifier) {
	s.ops = ops
}

type phase struct {
	name    string
	filters []dueitem.Filter
}

// Run executes the three phases sequentially: pre-due reminders,
// due-today alerts, overdue escalation. Each phase checks the deadline
// before every page and every item, so a slow early phase can starve a
// later one on a given run; the next run recovers whatever was starved.
// Errors never abort the run, they are collected into the summary.
func (s *BatchService) Run(ctx context.Context) *RunSummary {
	started := s.now()
	deadline := started.Add(s.budget)
	today := started

	summary := &RunSummary{
		RunID:          uuid.NewString(),
		RemindersSent:  []ReminderResult{},
		DueTodayAlerts: []DueTodayResult{},
		OverdueAlerts:  []OverdueResult{},
		Errors:         []string{},
		StartedAt:      started.UTC(),
	}
	runLog := s.logger.WithField("run_id", summary.RunID)
	runLog.Info("Starting notification run.")

	for _, ph := range s.phases(today) {
		if s.pastDeadline(deadline, summary) {
			break
		}
		for _, f := range ph.filters {
			if s.pastDeadline(deadline, summary) {
				break
			}
			s.runPhaseQuery(ctx, runLog, ph.name, f, today, deadline, summary)
		}
	}

	summary.DurationMS = s.now().Sub(started).Milliseconds()
	runLog.WithFields(logrus.Fields{
		"reminders": len(summary.RemindersSent),
		"due_today": len(summary.DueTodayAlerts),
		"overdue":   len(summary.OverdueAlerts),
		"errors":    len(summary.Errors),
		"timed_out": summary.TimedOut,
	}).Info("Notification run finished.")

	if s.ops != nil {
		s.ops.NotifyRunSummary(ctx, summary)
	}
	return summary
}

func (s *BatchService) phases(today time.Time) []phase {
	todayDate := dateOf(today)
	graceCutoff := todayDate.AddDate(0, 0, -overdueGraceDays)
	kinds := []dueitem.Kind{dueitem.KindServiceRecord, dueitem.KindDocument}

	var preDue, dueToday, overdue []dueitem.Filter
	for _, k := range kinds {
		preDue = append(preDue, dueitem.Filter{
			Kind:         k,
			Statuses:     []dueitem.Status{dueitem.StatusUpcoming},
			DueOnOrAfter: &todayDate,
		})
		dueToday = append(dueToday, dueitem.Filter{
			Kind:     k,
			Statuses: []dueitem.Status{dueitem.StatusUpcoming},
			DueOn:    &todayDate,
		})
		overdue = append(overdue, dueitem.Filter{
			Kind:          k,
			Statuses:      []dueitem.Status{dueitem.StatusUpcoming, dueitem.StatusDueToday},
			DueOnOrBefore: &graceCutoff,
			WithoutMarker: "overdue_7d",
		})
	}
	return []phase{
		{"pre_due_reminders", preDue},
		{"due_today_alerts", dueToday},
		{"overdue_escalation", overdue},
	}
}

// runPhaseQuery pages through one filter until exhausted, the deadline
// passes, or the store fails. A store failure aborts this phase only.
// Pages advance by keyset cursor: processing an item can remove it from
// the filter's match set (markers written, statuses transitioned), so
// an offset over the shrinking result set would silently skip items.
// The cursor always moves past every fetched item, processed or not.
func (s *BatchService) runPhaseQuery(ctx context.Context, runLog *logrus.Entry, phaseName string, f dueitem.Filter, today, deadline time.Time, summary *RunSummary) {
	var cursor *dueitem.PageCursor
	for {
		if s.pastDeadline(deadline, summary) {
			return
		}
		items, err := s.items.FetchBatch(ctx, f, cursor, s.batchSize)
		if err != nil {
			runLog.WithField("phase", phaseName).Errorf("Failed to fetch batch: %v", err)
			summary.Errors = append(summary.Errors, phaseName+": fetch failed: "+err.Error())
			return
		}
		if len(items) == 0 {
			return
		}
		for _, item := range items {
			if s.pastDeadline(deadline, summary) {
				return
			}
			out, err := s.processor.Process(ctx, summary.RunID, item, today)
			if err != nil {
				summary.Errors = append(summary.Errors, err.Error())
				continue
			}
			s.recordOutcome(summary, item, out, today)
		}
		last := items[len(items)-1]
		cursor = &dueitem.PageCursor{DueDate: last.DueDate, ID: last.ID}
		if len(items) < s.batchSize {
			return
		}
	}
}

func (s *BatchService) recordOutcome(summary *RunSummary, item *dueitem.Item, out Outcome, today time.Time) {
	if !out.Fired {
		return
	}
	vendor := ""
	if item.VendorContact != nil {
		vendor = item.VendorContact.Name
	}
	switch {
	case out.Window.DaysOut > 0:
		summary.RemindersSent = append(summary.RemindersSent, ReminderResult{
			Vendor: vendor,
			Title:  item.Title,
			Window: out.Window.Label,
		})
	case out.Window.DaysOut == 0:
		summary.DueTodayAlerts = append(summary.DueTodayAlerts, DueTodayResult{
			Title:    item.Title,
			Location: item.LocationName,
		})
	default:
		summary.OverdueAlerts = append(summary.OverdueAlerts, OverdueResult{
			Vendor:      vendor,
			Title:       item.Title,
			DaysOverdue: -item.DaysUntilDue(today),
		})
	}
}

func (s *BatchService) pastDeadline(deadline time.Time, summary *RunSummary) bool {
	if s.now().Before(deadline) {
		return false
	}
	summary.TimedOut = true
	return true
}

// dateOf aligns a timestamp to its UTC calendar day, matching the
// day-granularity comparisons in DaysUntilDue and the store's date
// filters.
func dateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
