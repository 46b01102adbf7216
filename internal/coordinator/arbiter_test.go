package coordinator

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/mvasilyev/jean-claude-stopkran/internal/pending"
)

type finalizeCall struct {
	ref  pending.NotificationRef
	text string
}

type fakeNotifier struct {
	mu         sync.Mutex
	published  []Prompt
	finalized  []finalizeCall
	publishErr error
	nextMsgID  int
}

func (f *fakeNotifier) Publish(_ context.Context, p Prompt) (pending.NotificationRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return pending.NotificationRef{}, f.publishErr
	}
	f.published = append(f.published, p)
	f.nextMsgID++
	return pending.NotificationRef{ChatID: 42, MessageID: f.nextMsgID}, nil
}

func (f *fakeNotifier) Finalize(_ context.Context, ref pending.NotificationRef, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalized = append(f.finalized, finalizeCall{ref, text})
	return nil
}

func (f *fakeNotifier) finalizeCalls() []finalizeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]finalizeCall(nil), f.finalized...)
}

type fixedOwner struct {
	id int64
	ok bool
}

func (o fixedOwner) Owner() (int64, bool) { return o.id, o.ok }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testVocab() Vocabulary {
	return NewVocabulary([]string{"yes", "да"}, []string{"no", "нет"})
}

func newTestArbiter(reg *pending.Registry, notifier *fakeNotifier) *Arbiter {
	return NewArbiter(reg, notifier, testVocab(), testLogger(), nil)
}

func TestResolveButtonFirstWins(t *testing.T) {
	t.Parallel()

	reg := pending.New()
	notifier := &fakeNotifier{}
	arb := newTestArbiter(reg, notifier)

	done, err := reg.Create("req-1", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := reg.SetNotification("req-1", pending.NotificationRef{ChatID: 42, MessageID: 7}, "prompt"); err != nil {
		t.Fatal(err)
	}

	if st := arb.ResolveButton(context.Background(), "req-1", pending.Allow); st != StatusResolved {
		t.Fatalf("first press: want StatusResolved, got %v", st)
	}
	select {
	case <-done:
	default:
		t.Fatal("suspension handle not signalled")
	}
	if st := arb.ResolveButton(context.Background(), "req-1", pending.Deny); st != StatusAlreadyHandled {
		t.Fatalf("second press: want StatusAlreadyHandled, got %v", st)
	}

	calls := notifier.finalizeCalls()
	if len(calls) != 1 {
		t.Fatalf("want 1 finalize call, got %d", len(calls))
	}
	if !strings.HasPrefix(calls[0].text, "prompt") {
		t.Errorf("original text dropped: %q", calls[0].text)
	}
	if !strings.Contains(calls[0].text, "✅ Allowed at") {
		t.Errorf("unexpected suffix: %q", calls[0].text)
	}
}

func TestResolveButtonUnknownID(t *testing.T) {
	t.Parallel()

	arb := newTestArbiter(pending.New(), &fakeNotifier{})
	if st := arb.ResolveButton(context.Background(), "ghost", pending.Deny); st != StatusExpired {
		t.Fatalf("want StatusExpired, got %v", st)
	}
}

func TestResolveOption(t *testing.T) {
	t.Parallel()

	reg := pending.New()
	notifier := &fakeNotifier{}
	arb := newTestArbiter(reg, notifier)

	questions := []pending.Question{{
		Text:    "Which one?",
		Options: []pending.Option{{Label: "First"}, {Label: "Second"}},
	}}
	if _, err := reg.Create("req-1", questions); err != nil {
		t.Fatal(err)
	}

	if _, st := arb.ResolveOption(context.Background(), "req-1", 5); st != StatusInvalidOption {
		t.Fatalf("out-of-range index: want StatusInvalidOption, got %v", st)
	}

	label, st := arb.ResolveOption(context.Background(), "req-1", 1)
	if st != StatusResolved || label != "Second" {
		t.Fatalf("want (Second, StatusResolved), got (%q, %v)", label, st)
	}

	snap, err := reg.Snapshot("req-1")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Decision != pending.Allow {
		t.Fatalf("option selection should allow, got %v", snap.Decision)
	}
	if snap.Answer == nil || snap.Answer.Answers["Which one?"] != "Second" {
		t.Fatalf("answer payload wrong: %+v", snap.Answer)
	}
}

func TestQuickReplyVocabulary(t *testing.T) {
	t.Parallel()

	reg := pending.New()
	arb := newTestArbiter(reg, &fakeNotifier{})

	if _, err := reg.Create("old", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := reg.Create("new", nil); err != nil {
		t.Fatal(err)
	}

	out := arb.QuickReply(context.Background(), "нет")
	if out.Status != StatusResolved || out.Decision != pending.Deny {
		t.Fatalf("want deny resolved, got %+v", out)
	}

	// The oldest request took the decision, the newer one is untouched.
	snap, _ := reg.Snapshot("old")
	if snap.Decision != pending.Deny {
		t.Fatalf("oldest not denied: %v", snap.Decision)
	}
	snap, _ = reg.Snapshot("new")
	if snap.Decision != pending.Undecided {
		t.Fatalf("newer request touched: %v", snap.Decision)
	}
}

func TestQuickReplyNumberSelectsOption(t *testing.T) {
	t.Parallel()

	reg := pending.New()
	arb := newTestArbiter(reg, &fakeNotifier{})

	questions := []pending.Question{{
		Text:    "Pick",
		Options: []pending.Option{{Label: "Alpha"}, {Label: "Beta"}},
	}}
	if _, err := reg.Create("req-1", questions); err != nil {
		t.Fatal(err)
	}

	out := arb.QuickReply(context.Background(), " 2 ")
	if out.Status != StatusResolved || out.Label != "Beta" {
		t.Fatalf("want Beta resolved, got %+v", out)
	}

	if out := arb.QuickReply(context.Background(), "9"); out.Status != StatusIgnored && out.Status != StatusNoPending {
		t.Fatalf("number with nothing pending: got %+v", out)
	}
}

func TestQuickReplyNumberOutOfRange(t *testing.T) {
	t.Parallel()

	reg := pending.New()
	arb := newTestArbiter(reg, &fakeNotifier{})

	questions := []pending.Question{{Text: "Pick", Options: []pending.Option{{Label: "Only"}}}}
	if _, err := reg.Create("req-1", questions); err != nil {
		t.Fatal(err)
	}

	if out := arb.QuickReply(context.Background(), "3"); out.Status != StatusInvalidOption {
		t.Fatalf("want StatusInvalidOption, got %+v", out)
	}
	snap, _ := reg.Snapshot("req-1")
	if snap.Decision != pending.Undecided {
		t.Fatal("invalid index mutated the entry")
	}
}

func TestQuickReplyIgnoresChatter(t *testing.T) {
	t.Parallel()

	reg := pending.New()
	arb := newTestArbiter(reg, &fakeNotifier{})
	if _, err := reg.Create("req-1", nil); err != nil {
		t.Fatal(err)
	}

	if out := arb.QuickReply(context.Background(), "how is it going"); out.Status != StatusIgnored {
		t.Fatalf("want StatusIgnored, got %+v", out)
	}
	snap, _ := reg.Snapshot("req-1")
	if snap.Decision != pending.Undecided {
		t.Fatal("chatter resolved a request")
	}
}

func TestQuickReplyNoPending(t *testing.T) {
	t.Parallel()

	arb := newTestArbiter(pending.New(), &fakeNotifier{})
	if out := arb.QuickReply(context.Background(), "yes"); out.Status != StatusNoPending {
		t.Fatalf("want StatusNoPending, got %+v", out)
	}
}
