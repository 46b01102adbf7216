package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stopkran.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "token: \"123456:AAbbCCdd\"\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Timeout != 300*time.Second {
		t.Errorf("Timeout = %s, want 300s", cfg.Timeout)
	}
	if cfg.Socket != "/tmp/stopkran.sock" {
		t.Errorf("Socket = %q, want /tmp/stopkran.sock", cfg.Socket)
	}
	if cfg.ReadTimeout != 10*time.Second {
		t.Errorf("ReadTimeout = %s, want 10s", cfg.ReadTimeout)
	}
	if cfg.Telegram.APIURL != "https://api.telegram.org" {
		t.Errorf("APIURL = %q", cfg.Telegram.APIURL)
	}
	if cfg.Telegram.PollingTimeout != 30 {
		t.Errorf("PollingTimeout = %d, want 30", cfg.Telegram.PollingTimeout)
	}
	if len(cfg.Vocabulary.Allow) == 0 || len(cfg.Vocabulary.Deny) == 0 {
		t.Error("vocabulary defaults missing")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate returned error: %v", err)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("STOPKRAN_TEST_TOKEN", "99:ZZ")

	path := writeConfig(t, strings.Join([]string{
		`token: "${STOPKRAN_TEST_TOKEN}"`,
		`socket: "${STOPKRAN_TEST_SOCKET:-/tmp/alt.sock}"`,
	}, "\n"))

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Token != "99:ZZ" {
		t.Errorf("Token = %q, want expanded env value", cfg.Token)
	}
	if cfg.Socket != "/tmp/alt.sock" {
		t.Errorf("Socket = %q, want default from ${VAR:-default}", cfg.Socket)
	}
}

func TestLoad_UnresolvedVariable(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `token: "${STOPKRAN_DEFINITELY_UNSET_VAR}"`)
	if _, err := Load(path); err == nil {
		t.Fatal("Load should fail on unresolved variable")
	}
}

func TestLoad_Durations(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, strings.Join([]string{
		`token: "123456:AAbbCCdd"`,
		`timeout: 2m`,
		`read_timeout: 5s`,
	}, "\n"))

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Timeout != 2*time.Minute {
		t.Errorf("Timeout = %s, want 2m", cfg.Timeout)
	}
	if cfg.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %s, want 5s", cfg.ReadTimeout)
	}
}

func TestValidate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing token", func(c *Config) { c.Token = "" }},
		{"bad token format", func(c *Config) { c.Token = "not-a-token" }},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }},
		{"empty socket", func(c *Config) { c.Socket = "" }},
		{"polling timeout too large", func(c *Config) { c.Telegram.PollingTimeout = 51 }},
		{"bad observe bind", func(c *Config) { c.Observe.Bind = "not an address" }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := &Config{Token: "123456:AAbbCCdd"}
			cfg.Defaults()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate should have failed")
			}
		})
	}
}
