package remind

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mvasilyev/jean-claude-stopkran/internal/coordinator"
	"github.com/mvasilyev/jean-claude-stopkran/internal/pending"
)

type fakeStatus struct {
	count int
	age   time.Duration
	ok    bool
}

func (f fakeStatus) PendingCount() int                       { return f.count }
func (f fakeStatus) OldestPendingAge() (time.Duration, bool) { return f.age, f.ok }

type captureNotifier struct {
	mu    sync.Mutex
	texts []string
}

func (c *captureNotifier) Publish(_ context.Context, p coordinator.Prompt) (pending.NotificationRef, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, p.Text)
	return pending.NotificationRef{ChatID: 1, MessageID: 1}, nil
}

func (c *captureNotifier) Finalize(context.Context, pending.NotificationRef, string) error {
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStaleJobQuietWhenFresh(t *testing.T) {
	t.Parallel()

	n := &captureNotifier{}
	job := NewStaleJob(fakeStatus{count: 1, age: 10 * time.Second, ok: true}, n, "* * * * *", time.Minute, testLogger())
	if err := job.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(n.texts) != 0 {
		t.Fatalf("reminder sent for a fresh request: %v", n.texts)
	}
}

func TestStaleJobQuietWhenEmpty(t *testing.T) {
	t.Parallel()

	n := &captureNotifier{}
	job := NewStaleJob(fakeStatus{}, n, "* * * * *", time.Minute, testLogger())
	if err := job.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(n.texts) != 0 {
		t.Fatalf("reminder sent with nothing pending: %v", n.texts)
	}
}

func TestStaleJobSendsReminder(t *testing.T) {
	t.Parallel()

	n := &captureNotifier{}
	job := NewStaleJob(fakeStatus{count: 2, age: 3 * time.Minute, ok: true}, n, "* * * * *", time.Minute, testLogger())
	if err := job.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(n.texts) != 1 {
		t.Fatalf("want 1 reminder, got %d", len(n.texts))
	}
}

func TestSchedulerRejectsDuplicateAndBadSchedule(t *testing.T) {
	t.Parallel()

	s := NewScheduler(testLogger())
	job := NewStaleJob(fakeStatus{}, &captureNotifier{}, "*/5 * * * *", time.Minute, testLogger())
	if err := s.RegisterJob(job); err != nil {
		t.Fatal(err)
	}
	if err := s.RegisterJob(job); err == nil {
		t.Fatal("duplicate job registered")
	}

	bad := NewScheduler(testLogger())
	if err := bad.RegisterJob(NewStaleJob(fakeStatus{}, &captureNotifier{}, "not a schedule", time.Minute, testLogger())); err != nil {
		t.Fatal(err)
	}
	if err := bad.Start(context.Background()); err == nil {
		bad.Stop(context.Background())
		t.Fatal("invalid schedule accepted")
	}
}

func TestSchedulerStartStop(t *testing.T) {
	t.Parallel()

	s := NewScheduler(testLogger())
	if err := s.RegisterJob(NewStaleJob(fakeStatus{}, &captureNotifier{}, "* * * * *", time.Minute, testLogger())); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
}
