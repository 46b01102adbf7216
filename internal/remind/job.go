package remind

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mvasilyev/jean-claude-stopkran/internal/coordinator"
)

// pendingStatus is the slice of the arbiter the job needs.
type pendingStatus interface {
	PendingCount() int
	OldestPendingAge() (time.Duration, bool)
}

// StaleJob pings the approver when the oldest undecided request has been
// waiting longer than minAge.
type StaleJob struct {
	status   pendingStatus
	notifier coordinator.Notifier
	schedule string
	minAge   time.Duration
	logger   *slog.Logger
}

// NewStaleJob creates the job. schedule is a five-field cron expression.
func NewStaleJob(status pendingStatus, notifier coordinator.Notifier, schedule string, minAge time.Duration, logger *slog.Logger) *StaleJob {
	return &StaleJob{
		status:   status,
		notifier: notifier,
		schedule: schedule,
		minAge:   minAge,
		logger:   logger,
	}
}

// Name implements Job.
func (j *StaleJob) Name() string { return "stale-pending" }

// Schedule implements Job.
func (j *StaleJob) Schedule() string { return j.schedule }

// Run implements Job. A tick with nothing stale is a no-op.
func (j *StaleJob) Run(ctx context.Context) error {
	age, ok := j.status.OldestPendingAge()
	if !ok || age < j.minAge {
		return nil
	}

	n := j.status.PendingCount()
	text := fmt.Sprintf("⏳ %d request(s) still waiting, oldest for %s.", n, age.Round(time.Second))
	if _, err := j.notifier.Publish(ctx, coordinator.Prompt{Text: text}); err != nil {
		return fmt.Errorf("remind: publish reminder: %w", err)
	}
	j.logger.Info("reminder sent", "pending", n, "oldest_age", age)
	return nil
}
