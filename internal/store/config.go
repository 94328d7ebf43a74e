package store

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Mode    string   `yaml:"mode" default:"once" validate:"oneof=once scheduled"`
	Tickers []string `yaml:"tickers" validate:"required,min=1,dive,required"`

	Calendar struct {
		Name          string   `yaml:"name" default:"NYSE"`
		Timezone      string   `yaml:"timezone" default:"America/New_York" validate:"required"`
		Open          string   `yaml:"open" default:"09:30" validate:"datetime=15:04"`
		Close         string   `yaml:"close" default:"16:00" validate:"datetime=15:04"`
		EarlyClose    string   `yaml:"early_close" default:"13:00" validate:"omitempty,datetime=15:04"`
		NYSERules     bool     `yaml:"nyse_rules" default:"true"`
		Holidays      []string `yaml:"holidays" validate:"dive,datetime=2006-01-02"`
		EarlyCloses   []string `yaml:"early_closes" validate:"dive,datetime=2006-01-02"`
		LookbackDays  int      `yaml:"lookback_days" default:"10" validate:"gte=1"`
		LookaheadDays int      `yaml:"lookahead_days" default:"10" validate:"gte=1"`
		ProbeDays     int      `yaml:"probe_days" default:"1" validate:"gte=1"`
	} `yaml:"calendar"`

	News struct {
		Source      string        `yaml:"source" default:"finviz" validate:"oneof=finviz"`
		BaseURL     string        `yaml:"base_url" default:"https://finviz.com/quote.ashx" validate:"url"`
		Timezone    string        `yaml:"timezone" default:"America/New_York" validate:"required"`
		Timeout     time.Duration `yaml:"timeout" default:"20s"`
		UserAgent   string        `yaml:"user_agent"`
		MapSessions bool          `yaml:"map_sessions" default:"true"`
	} `yaml:"news"`

	LLM struct {
		Provider    string        `yaml:"provider" default:"openai" validate:"oneof=openai claude gemini noop"`
		Model       string        `yaml:"model"`
		BaseURL     string        `yaml:"base_url" validate:"omitempty,url"`
		MaxTokens   int           `yaml:"max_tokens" default:"64" validate:"gte=1"`
		Temperature float32       `yaml:"temperature" validate:"gte=0,lte=2"`
		System      string        `yaml:"system"`
		APIKeyEnv   string        `yaml:"api_key_env"`
		Timeout     time.Duration `yaml:"timeout" default:"30s"`
	} `yaml:"llm"`

	RateLimit struct {
		MaxCalls   int           `yaml:"max_calls" default:"30" validate:"gte=1"`
		Period     time.Duration `yaml:"period" default:"60s"`
		MaxRetries int           `yaml:"max_retries" default:"3" validate:"gte=0"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"5s"`
	} `yaml:"rate_limit"`

	Selection struct {
		Worst int `yaml:"worst" default:"3" validate:"gte=0"`
		Best  int `yaml:"best" default:"3" validate:"gte=0"`
	} `yaml:"selection"`

	Storage struct {
		DataDir    string `yaml:"data_dir" default:"data" validate:"required"`
		Cache      string `yaml:"cache" default:"file" validate:"oneof=file badger"`
		BadgerDir  string `yaml:"badger_dir"`
		LedgerFile string `yaml:"ledger_file" default:"trades.csv"`
	} `yaml:"storage"`

	// Scheduled runs fire Lead before each session boundary. Cron, when
	// set, replaces the calendar-driven schedule with fixed ticks.
	Schedule struct {
		Lead time.Duration `yaml:"lead" default:"1m"`
		Cron string        `yaml:"cron"`
	} `yaml:"schedule"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Addr    string `yaml:"addr" default:":9102"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
}

var validate = validator.New()

// maxLead keeps a run inside its own window: the shortest gap between two
// session boundaries is an early-close session.
const maxLead = 3 * time.Hour

// Validate runs tag validation and the rules that span fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.RateLimit.Period <= 0 {
		return fmt.Errorf("rate_limit.period must be positive, got %s", c.RateLimit.Period)
	}
	if c.RateLimit.RetryDelay < 0 {
		return fmt.Errorf("rate_limit.retry_delay must not be negative, got %s", c.RateLimit.RetryDelay)
	}
	if c.Selection.Worst == 0 && c.Selection.Best == 0 {
		return errors.New("selection: at least one of worst or best must be positive")
	}
	if _, err := time.LoadLocation(c.Calendar.Timezone); err != nil {
		return fmt.Errorf("calendar.timezone: %w", err)
	}
	if _, err := time.LoadLocation(c.News.Timezone); err != nil {
		return fmt.Errorf("news.timezone: %w", err)
	}
	if c.Schedule.Lead < 0 || c.Schedule.Lead >= maxLead {
		return fmt.Errorf("schedule.lead must be in [0, %s), got %s", maxLead, c.Schedule.Lead)
	}
	if c.Schedule.Cron != "" {
		if _, err := cron.ParseStandard(c.Schedule.Cron); err != nil {
			return fmt.Errorf("schedule.cron %q: %w", c.Schedule.Cron, err)
		}
	}
	return nil
}

// Default returns a config with every default applied and no tickers.
func Default() *Config {
	var c Config
	if err := defaults.Set(&c); err != nil {
		panic(err)
	}
	return &c
}

// Parse decodes YAML over the defaults, applies env overrides and validates.
func Parse(b []byte) (*Config, error) {
	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	c.applyEnv()
	c.normalize()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return c, nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TRADER_TICKERS"); v != "" {
		c.Tickers = strings.Split(v, ",")
	}
	if v := os.Getenv("TRADER_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}
	if v := os.Getenv("TRADER_LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("TRADER_MODE"); v != "" {
		c.Mode = v
	}
}

func (c *Config) normalize() {
	seen := make(map[string]bool, len(c.Tickers))
	tickers := c.Tickers[:0]
	for _, t := range c.Tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tickers = append(tickers, t)
	}
	c.Tickers = tickers
	c.LLM.Provider = strings.ToLower(strings.TrimSpace(c.LLM.Provider))
	if c.Storage.BadgerDir == "" {
		c.Storage.BadgerDir = filepath.Join(c.Storage.DataDir, "badger")
	}
}

// Fingerprint is a short digest of the effective config, used to tell runs
// made under different settings apart.
func (c *Config) Fingerprint() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		return "unknown"
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:6])
}

// LedgerPath is the trade ledger location inside the data dir unless absolute.
func (c *Config) LedgerPath() string {
	if filepath.IsAbs(c.Storage.LedgerFile) {
		return c.Storage.LedgerFile
	}
	return filepath.Join(c.Storage.DataDir, c.Storage.LedgerFile)
}
