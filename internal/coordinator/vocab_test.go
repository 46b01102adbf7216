package coordinator

import (
	"testing"

	"github.com/mvasilyev/jean-claude-stopkran/internal/pending"
)

func TestVocabularyMatch(t *testing.T) {
	t.Parallel()

	v := NewVocabulary(
		[]string{"да", "yes", "ok", "👍"},
		[]string{"нет", "no", "👎"},
	)

	cases := []struct {
		text     string
		decision pending.Decision
		ok       bool
	}{
		{"yes", pending.Allow, true},
		{"YES", pending.Allow, true},
		{"  Да  ", pending.Allow, true},
		{"👍", pending.Allow, true},
		{"no", pending.Deny, true},
		{"НЕТ", pending.Deny, true},
		{"maybe", pending.Undecided, false},
		{"yes please", pending.Undecided, false},
		{"", pending.Undecided, false},
	}
	for _, tc := range cases {
		d, ok := v.Match(tc.text)
		if d != tc.decision || ok != tc.ok {
			t.Errorf("Match(%q) = (%v, %v), want (%v, %v)", tc.text, d, ok, tc.decision, tc.ok)
		}
	}
}
