package scheduler

import (
	"context"
	"time"

	"compliance_notifier/internal/infra/httpapi"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// RunScheduler triggers notification runs from an in-process cron
// schedule. Deployments driven by an external cron source simply leave
// the spec empty and call the HTTP endpoint instead; both paths invoke
// the same runner and rely on the same dedup markers, so running both
// at once is tolerated.
type RunScheduler struct {
	cronEngine *cron.Cron
	runner     httpapi.Runner
	logger     *logrus.Entry
	cronSpec   string
	budget     time.Duration
}

func NewRunScheduler(runner httpapi.Runner, logger *logrus.Entry, cronSpec string, budget time.Duration) *RunScheduler {
	return &RunScheduler{
		cronEngine: cron.New(cron.WithLocation(time.UTC)),
		runner:     runner,
		logger:     logger,
		cronSpec:   cronSpec,
		budget:     budget,
	}
}

// Start registers the run job and starts the cron engine. A missing
// spec disables the scheduler entirely.
func (s *RunScheduler) Start() error {
	if s.cronSpec == "" {
		s.logger.Info("No cron spec configured; in-process trigger disabled.")
		return nil
	}

	_, err := s.cronEngine.AddFunc(s.cronSpec, func() {
		s.logger.Info("Cron tick: starting scheduled notification run.")
		// The runner enforces its own wall-clock budget; the context
		// ceiling only catches a transport hanging past it.
		ctx, cancel := context.WithTimeout(context.Background(), s.budget+30*time.Second)
		defer cancel()
		summary := s.runner.Run(ctx)
		s.logger.WithFields(logrus.Fields{
			"run_id":    summary.RunID,
			"reminders": len(summary.RemindersSent),
			"due_today": len(summary.DueTodayAlerts),
			"overdue":   len(summary.OverdueAlerts),
			"errors":    len(summary.Errors),
			"timed_out": summary.TimedOut,
		}).Info("Scheduled notification run finished.")
	})
	if err != nil {
		return err
	}

	s.cronEngine.Start()
	s.logger.WithField("spec", s.cronSpec).Info("In-process cron trigger started.")
	return nil
}

// Stop halts the cron engine and waits for a running job to finish.
func (s *RunScheduler) Stop() {
	if s.cronSpec == "" {
		return
	}
	s.logger.Info("Stopping in-process cron trigger...")
	<-s.cronEngine.Stop().Done()
	s.logger.Info("In-process cron trigger stopped.")
}
