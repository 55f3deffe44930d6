package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"seatwatch/internal/rules"

	"github.com/zalando/go-keyring"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"MATCH_URL", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "SEATWATCH_DEVTOOLS_URL", "SEATWATCH_SESSION_FILE"} {
		t.Setenv(k, "")
	}
	t.Chdir(t.TempDir())
	keyring.MockInit()
}

func TestNewConfig_Defaults(t *testing.T) {
	c := NewConfig()

	if len(c.Target.Sectors) != 2 || c.Target.Sectors[0] != "norte" || c.Target.Sectors[1] != "sul" {
		t.Errorf("Sectors = %v, want [norte sul]", c.Target.Sectors)
	}
	if c.Poll.MinDelay != 60*time.Second || c.Poll.MaxDelay != 120*time.Second {
		t.Errorf("poll range = %s..%s, want 1m0s..2m0s", c.Poll.MinDelay, c.Poll.MaxDelay)
	}
	if c.Poll.Recovery != 10*time.Second {
		t.Errorf("Recovery = %s, want 10s", c.Poll.Recovery)
	}
	if c.Poll.ProbeTimeout != 5*time.Second {
		t.Errorf("ProbeTimeout = %s, want 5s", c.Poll.ProbeTimeout)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("MATCH_URL", "https://example.com/match/1")
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Target.URL != "https://example.com/match/1" {
		t.Errorf("URL = %q", c.Target.URL)
	}
	if c.Telegram.Token != "tok" || c.Telegram.ChatID != "42" {
		t.Errorf("telegram = %q/%q", c.Telegram.Token, c.Telegram.ChatID)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "seatwatch.yaml")
	content := `
target:
  url: https://example.com/match/2
  sectors: [leste]
telegram:
  token: yaml-token
  chat_id: "7"
poll:
  min_delay: 30s
  max_delay: 45s
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Target.URL != "https://example.com/match/2" {
		t.Errorf("URL = %q", c.Target.URL)
	}
	if len(c.Target.Sectors) != 1 || c.Target.Sectors[0] != "leste" {
		t.Errorf("Sectors = %v", c.Target.Sectors)
	}
	if c.Poll.MinDelay != 30*time.Second || c.Poll.MaxDelay != 45*time.Second {
		t.Errorf("poll range = %s..%s", c.Poll.MinDelay, c.Poll.MaxDelay)
	}
	if c.Poll.Recovery != 10*time.Second {
		t.Errorf("Recovery default lost: %s", c.Poll.Recovery)
	}
}

func TestLoad_AuthMarkerModes(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "seatwatch.yaml")
	content := `
target:
  auth_markers:
    - login
    - mode: prefix
      pattern: https://sso.fieltorcedor.com.br/
    - mode: regex
      pattern: '/auth/\w+$'
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []rules.Condition{
		{Mode: rules.ModeContains, Pattern: "login"},
		{Mode: rules.ModePrefix, Pattern: "https://sso.fieltorcedor.com.br/"},
		{Mode: rules.ModeRegex, Pattern: `/auth/\w+$`},
	}
	if len(c.Target.AuthMarkers) != len(want) {
		t.Fatalf("AuthMarkers = %+v", c.Target.AuthMarkers)
	}
	for i := range want {
		if c.Target.AuthMarkers[i] != want[i] {
			t.Errorf("AuthMarkers[%d] = %+v, want %+v", i, c.Target.AuthMarkers[i], want[i])
		}
	}

	m := rules.New(c.Target.AuthMarkers...)
	if !m.AuthRedirect("https://sso.fieltorcedor.com.br/oauth") || m.AuthRedirect("https://www.fieltorcedor.com.br/jogos/1") {
		t.Error("configured markers do not drive the matcher")
	}
}

func TestLoad_EnvBeatsYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "seatwatch.yaml")
	if err := os.WriteFile(path, []byte("target:\n  url: https://from-yaml\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("MATCH_URL", "https://from-env")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Target.URL != "https://from-env" {
		t.Errorf("URL = %q, want env value", c.Target.URL)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	// godotenv 不覆盖已存在的变量
	os.Unsetenv("TELEGRAM_CHAT_ID")
	if err := os.WriteFile(".env", []byte("TELEGRAM_CHAT_ID=99\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Telegram.ChatID != "99" {
		t.Errorf("ChatID = %q, want 99", c.Telegram.ChatID)
	}
}

func TestLoad_KeyringFallback(t *testing.T) {
	clearEnv(t)
	if err := keyring.Set(KeyringService, KeyringTokenUser, "from-keyring"); err != nil {
		t.Fatalf("keyring.Set: %v", err)
	}

	c, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.Telegram.Token != "from-keyring" {
		t.Errorf("Token = %q, want keyring value", c.Telegram.Token)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := NewConfig()
		c.Target.URL = "https://example.com"
		c.Telegram.Token = "tok"
		c.Telegram.ChatID = "1"
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
		wantMsg string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing url", mutate: func(c *Config) { c.Target.URL = "" }, wantErr: ErrMissingValue, wantMsg: "MATCH_URL"},
		{name: "missing token", mutate: func(c *Config) { c.Telegram.Token = " " }, wantErr: ErrMissingValue, wantMsg: "TELEGRAM_BOT_TOKEN"},
		{name: "missing chat", mutate: func(c *Config) { c.Telegram.ChatID = "" }, wantErr: ErrMissingValue, wantMsg: "TELEGRAM_CHAT_ID"},
		{name: "no sectors", mutate: func(c *Config) { c.Target.Sectors = nil }, wantErr: ErrInvalidConfig},
		{name: "inverted range", mutate: func(c *Config) { c.Poll.MinDelay = 3 * time.Minute }, wantErr: ErrInvalidConfig},
		{name: "zero recovery", mutate: func(c *Config) { c.Poll.Recovery = 0 }, wantErr: ErrInvalidConfig},
		{name: "no auth markers", mutate: func(c *Config) { c.Target.AuthMarkers = nil }, wantErr: ErrInvalidConfig},
		{name: "bad auth regex", mutate: func(c *Config) {
			c.Target.AuthMarkers = []rules.Condition{{Mode: rules.ModeRegex, Pattern: "("}}
		}, wantErr: ErrInvalidConfig, wantMsg: "auth_markers[0]"},
		{name: "unknown auth mode", mutate: func(c *Config) {
			c.Target.AuthMarkers = []rules.Condition{{Mode: "fuzzy", Pattern: "x"}}
		}, wantErr: ErrInvalidConfig},
		{name: "empty session file", mutate: func(c *Config) { c.Session.File = "" }, wantErr: ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not name %s", err, tt.wantMsg)
			}
		})
	}
}
