package coordinator

import (
	"strings"

	"github.com/mvasilyev/jean-claude-stopkran/internal/pending"
)

// Vocabulary maps quick-reply tokens to decisions. The token sets are
// configuration data (they are locale-specific), normalized to lower case
// at construction.
type Vocabulary struct {
	allow map[string]struct{}
	deny  map[string]struct{}
}

// NewVocabulary builds a vocabulary from the configured token lists.
func NewVocabulary(allow, deny []string) Vocabulary {
	v := Vocabulary{
		allow: make(map[string]struct{}, len(allow)),
		deny:  make(map[string]struct{}, len(deny)),
	}
	for _, tok := range allow {
		v.allow[strings.ToLower(strings.TrimSpace(tok))] = struct{}{}
	}
	for _, tok := range deny {
		v.deny[strings.ToLower(strings.TrimSpace(tok))] = struct{}{}
	}
	return v
}

// Match maps a free-text reply to a decision. The match is case-insensitive
// on the whole trimmed message; anything outside the vocabulary is not a
// quick reply.
func (v Vocabulary) Match(text string) (pending.Decision, bool) {
	tok := strings.ToLower(strings.TrimSpace(text))
	if _, ok := v.allow[tok]; ok {
		return pending.Allow, true
	}
	if _, ok := v.deny[tok]; ok {
		return pending.Deny, true
	}
	return pending.Undecided, false
}
