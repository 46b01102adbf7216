package coordinator

import (
	"context"

	"github.com/mvasilyev/jean-claude-stopkran/internal/pending"
)

// Button is one inline action attached to a prompt. Data is the callback
// payload routed back to the arbiter (allow:<id>, deny:<id>, answer:<id>:<i>).
type Button struct {
	Label string
	Data  string
}

// Prompt is an outbound decision prompt: rendered text plus button rows.
type Prompt struct {
	Text    string
	Buttons [][]Button
}

// Notifier publishes decision prompts to the registered approver and edits
// them once a decision lands. Implemented by the Telegram bot.
type Notifier interface {
	// Publish sends the prompt and returns a reference to the sent message.
	Publish(ctx context.Context, p Prompt) (pending.NotificationRef, error)

	// Finalize replaces a previously sent prompt's text and drops its
	// buttons. Callers treat it as fire-and-forget: failures are logged,
	// never surfaced to the requester.
	Finalize(ctx context.Context, ref pending.NotificationRef, text string) error
}

// OwnerSource reports the registered approver identity.
type OwnerSource interface {
	Owner() (int64, bool)
}

// Metrics receives coordinator counters. The observe package provides the
// Prometheus implementation; NopMetrics is used when observability is off.
type Metrics interface {
	RequestReceived()
	DecisionRecorded(decision, source string)
}

// Decision sources reported to Metrics.
const (
	SourceButton  = "button"
	SourceReply   = "reply"
	SourceOption  = "option"
	SourceTimeout = "timeout"
	SourceAuto    = "auto"  // no owner registered
	SourceError   = "error" // publish failure, duplicate id
)

// NopMetrics discards all counters.
type NopMetrics struct{}

// RequestReceived implements Metrics.
func (NopMetrics) RequestReceived() {}

// DecisionRecorded implements Metrics.
func (NopMetrics) DecisionRecorded(string, string) {}
