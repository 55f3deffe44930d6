package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"seatwatch/internal/rules"

	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"
	"gopkg.in/yaml.v3"
)

const (
	// KeyringService 系统密钥环中的服务名
	KeyringService = "seatwatch"
	// KeyringTokenUser 系统密钥环中 Bot Token 的账户名
	KeyringTokenUser = "telegram_bot_token"
)

var (
	ErrMissingValue  = errors.New("missing required configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

var keyringGet = keyring.Get

// Config 配置文件结构体
type Config struct {
	Version string `yaml:"version"`

	Target struct {
		URL            string            `yaml:"url"`
		SiteURL        string            `yaml:"site_url"`
		LoginURL       string            `yaml:"login_url"`
		Sectors        []string          `yaml:"sectors"`
		AuthMarkers    []rules.Condition `yaml:"auth_markers"`
		DisabledMarker string            `yaml:"disabled_marker"`
	} `yaml:"target"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID string `yaml:"chat_id"`
		APIURL string `yaml:"api_url"`
	} `yaml:"telegram"`

	Browser struct {
		DevToolsURL string `yaml:"devtools_url"`
	} `yaml:"browser"`

	Session struct {
		File string `yaml:"file"`
	} `yaml:"session"`

	Poll struct {
		MinDelay      time.Duration `yaml:"min_delay"`
		MaxDelay      time.Duration `yaml:"max_delay"`
		Settle        time.Duration `yaml:"settle"`
		RestoreSettle time.Duration `yaml:"restore_settle"`
		Recovery      time.Duration `yaml:"recovery"`
		ProbeTimeout  time.Duration `yaml:"probe_timeout"`
	} `yaml:"poll"`

	Log struct {
		Level  string   `yaml:"level"`
		Writer []string `yaml:"writer"`
		File   string   `yaml:"file"`
	} `yaml:"log"`
}

// NewConfig 创建默认配置
func NewConfig() *Config {
	c := &Config{Version: "1.0.0"}

	c.Target.SiteURL = "https://www.fieltorcedor.com.br"
	c.Target.LoginURL = "https://www.fieltorcedor.com.br/auth/login"
	c.Target.Sectors = []string{"norte", "sul"}
	c.Target.AuthMarkers = rules.Contains("login", "auth")
	c.Target.DisabledMarker = "disabled"

	c.Telegram.APIURL = "https://api.telegram.org"
	c.Browser.DevToolsURL = "http://127.0.0.1:9222"
	c.Session.File = "session_cookies.json"

	c.Poll.MinDelay = 60 * time.Second
	c.Poll.MaxDelay = 120 * time.Second
	c.Poll.Settle = 5 * time.Second
	c.Poll.RestoreSettle = 3 * time.Second
	c.Poll.Recovery = 10 * time.Second
	c.Poll.ProbeTimeout = 5 * time.Second

	c.Log.Level = "info"
	c.Log.Writer = []string{"console"}
	c.Log.File = "seatwatch.log"
	return c
}

// Load 依次合并默认值、YAML 文件、.env 文件与环境变量，密钥缺失时回退到系统密钥环。
// path 为空时跳过 YAML 文件。
func Load(path string) (*Config, error) {
	c := NewConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, c); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	c.applyEnv()

	if c.Telegram.Token == "" {
		if tok, err := keyringGet(KeyringService, KeyringTokenUser); err == nil {
			c.Telegram.Token = tok
		}
	}
	return c, nil
}

func (c *Config) applyEnv() {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Target.URL, "MATCH_URL")
	set(&c.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	set(&c.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	set(&c.Browser.DevToolsURL, "SEATWATCH_DEVTOOLS_URL")
	set(&c.Session.File, "SEATWATCH_SESSION_FILE")
}

// Validate 校验启动所需配置，任何缺失都视为致命错误
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Target.URL) == "" {
		missing = append(missing, "MATCH_URL")
	}
	if strings.TrimSpace(c.Telegram.Token) == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if strings.TrimSpace(c.Telegram.ChatID) == "" {
		missing = append(missing, "TELEGRAM_CHAT_ID")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingValue, strings.Join(missing, ", "))
	}

	if len(c.Target.AuthMarkers) == 0 {
		return fmt.Errorf("%w: no auth markers configured", ErrInvalidConfig)
	}
	for i, m := range c.Target.AuthMarkers {
		if err := m.Validate(); err != nil {
			return fmt.Errorf("%w: auth_markers[%d]: %v", ErrInvalidConfig, i, err)
		}
	}
	if len(c.Target.Sectors) == 0 {
		return fmt.Errorf("%w: no sectors configured", ErrInvalidConfig)
	}
	if c.Poll.MinDelay <= 0 || c.Poll.MaxDelay <= 0 || c.Poll.Recovery <= 0 {
		return fmt.Errorf("%w: poll delays must be positive", ErrInvalidConfig)
	}
	if c.Poll.MinDelay > c.Poll.MaxDelay {
		return fmt.Errorf("%w: min_delay %s > max_delay %s", ErrInvalidConfig, c.Poll.MinDelay, c.Poll.MaxDelay)
	}
	if c.Session.File == "" {
		return fmt.Errorf("%w: session file path is empty", ErrInvalidConfig)
	}
	return nil
}
