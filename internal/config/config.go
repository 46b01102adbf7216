// Package config handles YAML configuration loading, environment variable
// expansion, and the durable store for the one-time owner claim.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// tokenPattern matches the Telegram bot token format: <digits>:<alphanum+dash>.
var tokenPattern = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)

// Config is the top-level configuration structure.
type Config struct {
	// Token is the Telegram bot token issued by BotFather.
	Token string `yaml:"token"`

	// ChatID is the registered owner's chat id. Zero means no owner is
	// registered yet; the first /start claims it and it is persisted back.
	ChatID int64 `yaml:"chat_id,omitempty"`

	// Timeout is how long a request waits for a decision before it is
	// auto-denied.
	Timeout time.Duration `yaml:"timeout"`

	// Socket is the Unix socket path the hook connects to.
	Socket string `yaml:"socket"`

	// ReadTimeout bounds how long the daemon waits for the hook to send
	// its request line.
	ReadTimeout time.Duration `yaml:"read_timeout"`

	Telegram   TelegramConfig   `yaml:"telegram"`
	Vocabulary VocabularyConfig `yaml:"vocabulary"`
	Observe    ObserveConfig    `yaml:"observe"`
	Remind     RemindConfig     `yaml:"remind"`
	Trace      TraceConfig      `yaml:"trace"`
}

// TelegramConfig holds Bot API transport settings.
type TelegramConfig struct {
	// APIURL overrides the Bot API base URL, mainly for tests.
	APIURL string `yaml:"api_url"`

	// PollingTimeout is the getUpdates long-poll timeout in seconds (0-50).
	PollingTimeout int `yaml:"polling_timeout"`
}

// VocabularyConfig is the quick-reply token vocabulary. The match set is
// locale-specific, so it is configuration data rather than code.
type VocabularyConfig struct {
	Allow []string `yaml:"allow"`
	Deny  []string `yaml:"deny"`
}

// ObserveConfig controls the optional HTTP observability endpoint.
type ObserveConfig struct {
	// Bind is the listen address for /health and /metrics. Empty disables
	// the server.
	Bind string `yaml:"bind"`
}

// RemindConfig controls the optional stale-pending reminder job.
type RemindConfig struct {
	// Schedule is a five-field cron expression. Empty disables reminders.
	Schedule string `yaml:"schedule"`

	// MinAge is how old the oldest undecided request must be before a
	// reminder fires.
	MinAge time.Duration `yaml:"min_age"`
}

// TraceConfig controls optional OTLP trace export.
type TraceConfig struct {
	// Endpoint is the OTLP/HTTP collector host:port. Empty disables export.
	Endpoint string `yaml:"endpoint"`

	// Insecure disables TLS for the exporter connection.
	Insecure bool `yaml:"insecure"`
}

// Defaults applies default values to unset fields.
func (c *Config) Defaults() {
	if c.Timeout == 0 {
		c.Timeout = 300 * time.Second
	}
	if c.Socket == "" {
		c.Socket = "/tmp/stopkran.sock"
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.Telegram.APIURL == "" {
		c.Telegram.APIURL = "https://api.telegram.org"
	}
	if c.Telegram.PollingTimeout == 0 {
		c.Telegram.PollingTimeout = 30
	}
	if c.Vocabulary.Allow == nil {
		c.Vocabulary.Allow = DefaultAllowVocabulary()
	}
	if c.Vocabulary.Deny == nil {
		c.Vocabulary.Deny = DefaultDenyVocabulary()
	}
	if c.Remind.Schedule != "" && c.Remind.MinAge == 0 {
		c.Remind.MinAge = time.Minute
	}
}

// Validate checks configuration constraints after defaults have been applied.
func (c *Config) Validate() error {
	if c.Token == "" {
		return errors.New("config: token is required (run \"stopkran setup\" first)")
	}
	if !tokenPattern.MatchString(c.Token) {
		return errors.New("config: token format invalid (expected <bot_id>:<hash>)")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("config: timeout must be positive, got %s", c.Timeout)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("config: read_timeout must be positive, got %s", c.ReadTimeout)
	}
	if c.Socket == "" {
		return errors.New("config: socket path is required")
	}
	if c.Telegram.PollingTimeout < 0 || c.Telegram.PollingTimeout > 50 {
		return fmt.Errorf("config: telegram.polling_timeout must be 0-50, got %d", c.Telegram.PollingTimeout)
	}
	if c.Observe.Bind != "" {
		if _, err := net.ResolveTCPAddr("tcp", c.Observe.Bind); err != nil {
			return fmt.Errorf("config: invalid observe.bind address %q", c.Observe.Bind)
		}
	}
	if c.Remind.Schedule != "" && c.Remind.MinAge < 0 {
		return fmt.Errorf("config: remind.min_age must not be negative, got %s", c.Remind.MinAge)
	}
	return nil
}

// DefaultAllowVocabulary returns the built-in affirmative quick-reply
// tokens. Mixed en/ru so watch and keyboard suggestions match either way.
func DefaultAllowVocabulary() []string {
	return []string{
		"да", "yes", "ок", "ok",
		"👍", "👍🏻", "👍🏼", "👍🏽", "👍🏾", "👍🏿", "✅",
	}
}

// DefaultDenyVocabulary returns the built-in negative quick-reply tokens.
func DefaultDenyVocabulary() []string {
	return []string{
		"нет", "no",
		"👎", "👎🏻", "👎🏼", "👎🏽", "👎🏾", "👎🏿", "❌",
	}
}

// DefaultPath returns the default configuration file location:
// $XDG_CONFIG_HOME/stopkran/stopkran.yaml, falling back to
// ~/.config/stopkran/stopkran.yaml.
func DefaultPath() string {
	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		return filepath.Join(xdg, "stopkran", "stopkran.yaml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "stopkran", "stopkran.yaml")
}
