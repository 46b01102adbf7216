// Package security keeps the bot token out of log output. The config file is
// the only place the token may appear; everything the daemon logs passes
// through a redacting slog handler first.
package security

import (
	"regexp"
	"strings"
	"sync"
)

// RedactPlaceholder is the replacement string for redacted secrets.
const RedactPlaceholder = "***REDACTED***"

// botTokenPattern matches Telegram bot tokens (<bot_id>:<hash>) wherever
// they appear, including inside request URLs from wrapped HTTP errors.
var botTokenPattern = regexp.MustCompile(`\b\d{6,}:[A-Za-z0-9_-]{20,}\b`)

// Redactor replaces secret values in strings with a redaction placeholder.
// It combines a pattern for the Telegram token format with literal values
// registered at startup. All methods are safe for concurrent use.
type Redactor struct {
	mu       sync.RWMutex
	literals []string
}

// NewRedactor creates an empty Redactor. The bot token pattern is always
// active; AddLiteral covers tokens too short for the pattern.
func NewRedactor() *Redactor {
	return &Redactor{}
}

// AddLiteral adds a literal secret value that should be redacted on sight.
// Empty strings are ignored.
func (r *Redactor) AddLiteral(secret string) {
	if secret == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.literals = append(r.literals, secret)
}

// Redact replaces the token pattern and all literal values in s with
// RedactPlaceholder.
func (r *Redactor) Redact(s string) string {
	if s == "" {
		return s
	}

	r.mu.RLock()
	literals := r.literals
	r.mu.RUnlock()

	s = botTokenPattern.ReplaceAllString(s, RedactPlaceholder)

	for _, lit := range literals {
		if strings.Contains(s, lit) {
			s = strings.ReplaceAll(s, lit, RedactPlaceholder)
		}
	}

	return s
}
