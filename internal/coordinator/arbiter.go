package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/mvasilyev/jean-claude-stopkran/internal/pending"
)

// Status is the outcome of a resolution attempt, reported back to the
// acting approver. None of these are fatal.
type Status int

// Status values.
const (
	// StatusResolved means this attempt won the race and recorded the decision.
	StatusResolved Status = iota
	// StatusAlreadyHandled means another resolver (or the timeout) won first.
	StatusAlreadyHandled
	// StatusExpired means the request id is unknown: it was never tracked
	// or its handler already responded and cleaned up.
	StatusExpired
	// StatusInvalidOption means the option index is out of range or the
	// entry carries no question set.
	StatusInvalidOption
	// StatusNoPending means a quick reply arrived with nothing undecided.
	StatusNoPending
	// StatusIgnored means the text matched neither the vocabulary nor a
	// valid option number.
	StatusIgnored
)

// QuickReplyOutcome describes how a free-text reply was handled.
type QuickReplyOutcome struct {
	Status   Status
	Decision pending.Decision
	// Label is the selected option label when a numbered reply resolved a
	// question request.
	Label string
}

// Arbiter records decisions into registry entries with first-decision-wins
// discipline and finalizes the approver-facing message afterwards. It is
// the single funnel for all three inbound action sources: buttons, option
// selections, and quick replies.
type Arbiter struct {
	registry *pending.Registry
	notifier Notifier
	vocab    Vocabulary
	logger   *slog.Logger
	metrics  Metrics
}

// NewArbiter creates an arbiter. metrics may be nil.
func NewArbiter(registry *pending.Registry, notifier Notifier, vocab Vocabulary, logger *slog.Logger, metrics Metrics) *Arbiter {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Arbiter{
		registry: registry,
		notifier: notifier,
		vocab:    vocab,
		logger:   logger,
		metrics:  metrics,
	}
}

// ResolveButton handles an allow:<id> or deny:<id> button press.
func (a *Arbiter) ResolveButton(ctx context.Context, requestID string, decision pending.Decision) Status {
	return a.resolve(ctx, requestID, decision, nil, SourceButton)
}

// ResolveOption handles an answer:<id>:<index> button press. The index is
// validated against the first question's options; out-of-range indices are
// rejected without mutating the entry. On success the selected label is
// returned and the request resolves as Allow.
func (a *Arbiter) ResolveOption(ctx context.Context, requestID string, index int) (string, Status) {
	snap, err := a.registry.Snapshot(requestID)
	if err != nil {
		return "", StatusExpired
	}
	answer, label, ok := answerForIndex(snap.Questions, index)
	if !ok {
		return "", StatusInvalidOption
	}
	return label, a.resolve(ctx, requestID, pending.Allow, answer, SourceOption)
}

// QuickReply handles free text from the registered approver. A vocabulary
// token resolves the oldest undecided request; a bare positive integer is a
// 1-based option index into the oldest undecided request's question, valid
// only when that request carries one.
func (a *Arbiter) QuickReply(ctx context.Context, text string) QuickReplyOutcome {
	snap, hasPending := a.registry.OldestUndecided()

	if n, err := strconv.Atoi(strings.TrimSpace(text)); err == nil && n > 0 && hasPending && len(snap.Questions) > 0 {
		answer, label, ok := answerForIndex(snap.Questions, n-1)
		if !ok {
			return QuickReplyOutcome{Status: StatusInvalidOption}
		}
		st := a.resolve(ctx, snap.RequestID, pending.Allow, answer, SourceReply)
		return QuickReplyOutcome{Status: st, Decision: pending.Allow, Label: label}
	}

	decision, ok := a.vocab.Match(text)
	if !ok {
		return QuickReplyOutcome{Status: StatusIgnored}
	}
	if !hasPending {
		return QuickReplyOutcome{Status: StatusNoPending}
	}

	st := a.resolve(ctx, snap.RequestID, decision, nil, SourceReply)
	return QuickReplyOutcome{Status: st, Decision: decision}
}

// PendingCount returns the number of undecided requests, for /status.
func (a *Arbiter) PendingCount() int {
	return a.registry.UndecidedCount()
}

// OldestPendingAge returns how long the oldest undecided request has been
// waiting. Used by the reminder job.
func (a *Arbiter) OldestPendingAge() (time.Duration, bool) {
	snap, ok := a.registry.OldestUndecided()
	if !ok {
		return 0, false
	}
	return time.Since(snap.CreatedAt), true
}

// resolve is the shared compare-and-set path for all action sources. A win
// signals the waiting connection handler and finalizes the prompt message;
// a loss leaves the entry untouched.
func (a *Arbiter) resolve(ctx context.Context, requestID string, decision pending.Decision, answer *pending.Answer, source string) Status {
	res, err := a.registry.Resolve(requestID, decision, answer)
	if err != nil {
		return StatusExpired
	}
	if !res.Won {
		return StatusAlreadyHandled
	}

	a.metrics.DecisionRecorded(decision.String(), source)
	a.logger.Info("request resolved",
		"request_id", requestID,
		"decision", decision.String(),
		"source", source,
	)

	a.finalize(ctx, res, answer)
	return StatusResolved
}

// finalize appends the decision status line to the prompt message and
// removes its buttons. Best-effort: the decision is already recorded, so
// delivery failures here are logged and swallowed.
func (a *Arbiter) finalize(ctx context.Context, res pending.Resolution, answer *pending.Answer) {
	if res.Ref.IsZero() {
		return
	}

	label := "Allowed"
	emoji := "✅"
	if res.Decision == pending.Deny {
		label = "Denied"
		emoji = "❌"
	} else if answer != nil {
		if l := firstAnswerLabel(answer); l != "" {
			label = "Answer: " + l
		}
	}

	suffix := fmt.Sprintf("\n\n→ %s %s at %s", emoji, label, res.DecidedAt.UTC().Format("15:04"))
	if err := a.notifier.Finalize(ctx, res.Ref, res.DisplayText+suffix); err != nil {
		a.logger.Debug("finalize failed", "error", err)
	}
}

// answerForIndex validates a zero-based option index against the first
// question and builds the answer payload {question_text: option_label}.
func answerForIndex(questions []pending.Question, index int) (*pending.Answer, string, bool) {
	if len(questions) == 0 {
		return nil, "", false
	}
	q := questions[0]
	if index < 0 || index >= len(q.Options) {
		return nil, "", false
	}
	label := q.Options[index].Label
	return &pending.Answer{Answers: map[string]string{q.Text: label}}, label, true
}

// firstAnswerLabel returns the selected label from an answer payload.
func firstAnswerLabel(answer *pending.Answer) string {
	for _, label := range answer.Answers {
		return label
	}
	return ""
}
