// Package pending tracks in-flight permission requests between the moment a
// hook connection arrives and the moment its decision is written back.
// The registry is the only shared mutable state in the daemon; every read
// and write goes through a single mutex so that racing resolvers observe a
// consistent entry and exactly one decision wins.
package pending

import (
	"sync"
	"time"
)

// Decision is the outcome of a permission request.
type Decision int

// Decision values. An entry transitions Undecided -> {Allow, Deny} at most once.
const (
	Undecided Decision = iota
	Allow
	Deny
)

// String returns the wire representation used in IPC responses.
func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Deny:
		return "deny"
	default:
		return "undecided"
	}
}

// Question is one multiple-choice question carried by an AskUserQuestion
// request. Only the first question's options participate in answer-index
// resolution.
type Question struct {
	Text    string   `json:"question"`
	Options []Option `json:"options"`
}

// Option is a single selectable answer.
type Option struct {
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// Answer is the structured answer payload returned to the requester for
// multiple-choice requests, keyed by question text.
type Answer struct {
	Answers map[string]string `json:"answers"`
}

// NotificationRef identifies the prompt message sent to the approver so a
// resolver can edit it after the decision lands.
type NotificationRef struct {
	ChatID    int64
	MessageID int
}

// IsZero reports whether the ref has been set.
func (r NotificationRef) IsZero() bool {
	return r.ChatID == 0 && r.MessageID == 0
}

// entry is the registry's record of one in-flight request. All fields are
// guarded by Registry.mu; the done channel is closed exactly once, inside
// Resolve, while the mutex is held.
type entry struct {
	requestID   string
	questions   []Question
	createdAt   time.Time
	decision    Decision
	decidedAt   time.Time
	answer      *Answer
	ref         NotificationRef
	displayText string
	done        chan struct{}
}

// Snapshot is a consistent copy of an entry's state.
type Snapshot struct {
	RequestID   string
	Decision    Decision
	DecidedAt   time.Time
	Answer      *Answer
	Ref         NotificationRef
	DisplayText string
	Questions   []Question
	CreatedAt   time.Time
}

// Resolution describes the outcome of a Resolve call. When Won is false the
// entry had already been decided and nothing was changed.
type Resolution struct {
	Won         bool
	Decision    Decision
	DecidedAt   time.Time
	Ref         NotificationRef
	DisplayText string
}

// Registry is the in-memory table of in-flight requests. The zero value is
// not usable; call New.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	order   []string
	now     func() time.Time
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Create registers a new in-flight request and returns its suspension
// handle: a channel closed exactly once when a decision is recorded.
// Returns ErrDuplicateID if the id is already live.
func (r *Registry) Create(requestID string, questions []Question) (<-chan struct{}, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[requestID]; exists {
		return nil, ErrDuplicateID
	}

	e := &entry{
		requestID: requestID,
		questions: questions,
		createdAt: r.now(),
		decision:  Undecided,
		done:      make(chan struct{}),
	}
	r.entries[requestID] = e
	r.order = append(r.order, requestID)
	return e.done, nil
}

// SetNotification records the published prompt's message reference and the
// rendered text, so resolvers can later append a status suffix instead of
// replacing the message.
func (r *Registry) SetNotification(requestID string, ref NotificationRef, displayText string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[requestID]
	if !ok {
		return ErrNotFound
	}
	e.ref = ref
	e.displayText = displayText
	return nil
}

// Resolve records a decision using first-decision-wins semantics: the
// transition Undecided -> decision happens at most once and closes the
// suspension handle. A second attempt returns Won=false with the original
// decision and does not mutate the entry or re-trigger the signal.
// Returns ErrNotFound for unknown ids.
func (r *Registry) Resolve(requestID string, decision Decision, answer *Answer) (Resolution, error) {
	if decision != Allow && decision != Deny {
		panic("pending: Resolve requires a final decision")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[requestID]
	if !ok {
		return Resolution{}, ErrNotFound
	}

	if e.decision != Undecided {
		return Resolution{
			Won:         false,
			Decision:    e.decision,
			DecidedAt:   e.decidedAt,
			Ref:         e.ref,
			DisplayText: e.displayText,
		}, nil
	}

	e.decision = decision
	e.decidedAt = r.now()
	e.answer = answer
	close(e.done)

	return Resolution{
		Won:         true,
		Decision:    decision,
		DecidedAt:   e.decidedAt,
		Ref:         e.ref,
		DisplayText: e.displayText,
	}, nil
}

// Snapshot returns a copy of the entry's current state.
func (r *Registry) Snapshot(requestID string) (Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[requestID]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return snapshotLocked(e), nil
}

// OldestUndecided returns the undecided entry that was inserted earliest.
// Supports quick replies that do not name a request id.
func (r *Registry) OldestUndecided() (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.order {
		e, ok := r.entries[id]
		if !ok {
			continue
		}
		if e.decision == Undecided {
			return snapshotLocked(e), true
		}
	}
	return Snapshot{}, false
}

// Delete removes an entry. Only the owning connection handler calls this,
// after it has read the final decision.
func (r *Registry) Delete(requestID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entries[requestID]; !ok {
		return
	}
	delete(r.entries, requestID)
	for i, id := range r.order {
		if id == requestID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// UndecidedCount returns how many live entries are still awaiting a decision.
func (r *Registry) UndecidedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.entries {
		if e.decision == Undecided {
			n++
		}
	}
	return n
}

func snapshotLocked(e *entry) Snapshot {
	return Snapshot{
		RequestID:   e.requestID,
		Decision:    e.decision,
		DecidedAt:   e.decidedAt,
		Answer:      e.answer,
		Ref:         e.ref,
		DisplayText: e.displayText,
		Questions:   e.questions,
		CreatedAt:   e.createdAt,
	}
}
