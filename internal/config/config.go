// Package config loads WealthPulse settings from a YAML file, a .env file and
// the environment, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"WealthPulse/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Server struct {
		Port        int      `yaml:"port"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Collector struct {
		Waterfalls    map[string][]string `yaml:"waterfalls"`
		BaseURLs      map[string]string   `yaml:"base_urls"`
		MaxParallel   int                 `yaml:"max_parallel"`
		SymbolTimeout time.Duration       `yaml:"symbol_timeout"`
		Retry         struct {
			Attempts int           `yaml:"attempts"`
			Timeout  time.Duration `yaml:"timeout"`
			Backoff  time.Duration `yaml:"backoff"`
		} `yaml:"retry"`
		IBJAAPIKey string   `yaml:"ibja_api_key"`
		GoldAPIKey string   `yaml:"goldapi_key"`
		FundCodes  []string `yaml:"fund_codes"`
	} `yaml:"collector"`
	Cache struct {
		TTLs        map[string]time.Duration `yaml:"ttls"`
		LoadTimeout time.Duration            `yaml:"load_timeout"`
	} `yaml:"cache"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Schedule struct {
		// Cron expressions with a leading seconds field, keyed by dataset.
		Refresh    map[string]string `yaml:"refresh"`
		Probe      string            `yaml:"probe"`
		RunOnStart bool              `yaml:"run_on_start"`
	} `yaml:"schedule"`
	Advisor struct {
		APIKey     string `yaml:"api_key"`
		Model      string `yaml:"model"`
		MaxPerHour int    `yaml:"max_per_hour"`
	} `yaml:"advisor"`
	Proxy string `yaml:"proxy"`
}

// DefaultPath is used when CONFIG_PATH is unset.
const DefaultPath = "configs/config.yaml"

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	// .env is optional; real environment variables win over it.
	_ = godotenv.Load()

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.Server.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("LOG_PRETTY"); v != "" {
		c.Log.Pretty, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("IBJA_API_KEY"); v != "" {
		c.Collector.IBJAAPIKey = v
	}
	if v := os.Getenv("GOLDAPI_KEY"); v != "" {
		c.Collector.GoldAPIKey = v
	}
	if v := os.Getenv("MF_FUND_CODES"); v != "" {
		c.Collector.FundCodes = splitList(v)
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("RUN_ON_START"); v != "" {
		c.Schedule.RunOnStart, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.Advisor.APIKey = v
	}
	if v := os.Getenv("ADVISOR_MODEL"); v != "" {
		c.Advisor.Model = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"http://localhost:3000"}
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Collector.MaxParallel == 0 {
		c.Collector.MaxParallel = 5
	}
	if c.Collector.SymbolTimeout == 0 {
		c.Collector.SymbolTimeout = 8 * time.Second
	}
	if c.Collector.Retry.Attempts == 0 {
		c.Collector.Retry.Attempts = 3
	}
	if c.Collector.Retry.Timeout == 0 {
		c.Collector.Retry.Timeout = 10 * time.Second
	}
	if c.Collector.Retry.Backoff == 0 {
		c.Collector.Retry.Backoff = time.Second
	}
	if c.Cache.LoadTimeout == 0 {
		c.Cache.LoadTimeout = 2 * time.Minute
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/wealthpulse.db"
	}
	if c.Schedule.Refresh == nil {
		c.Schedule.Refresh = map[string]string{
			"equities": "0 */5 9-15 * * 1-5",
			"indices":  "0 */5 9-15 * * 1-5",
			"gold":     "0 0 */1 * * *",
			"funds":    "0 30 22 * * *",
		}
	}
	if c.Schedule.Probe == "" {
		c.Schedule.Probe = "0 0 8 * * *"
	}
	if c.Advisor.MaxPerHour == 0 {
		c.Advisor.MaxPerHour = 20
	}
}

// Validate checks that all fields are usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Collector.MaxParallel < 1 {
		return fmt.Errorf("collector.max_parallel must be positive")
	}
	if c.Collector.Retry.Attempts < 1 {
		return fmt.Errorf("collector.retry.attempts must be at least 1")
	}
	if c.Collector.Retry.Timeout <= 0 {
		return fmt.Errorf("collector.retry.timeout must be positive")
	}
	// A single hung symbol must not consume the whole attempt.
	if c.Collector.SymbolTimeout >= c.Collector.Retry.Timeout {
		return fmt.Errorf("collector.symbol_timeout %s must be shorter than collector.retry.timeout %s",
			c.Collector.SymbolTimeout, c.Collector.Retry.Timeout)
	}
	if c.Collector.Retry.Backoff < 0 {
		return fmt.Errorf("collector.retry.backoff must not be negative")
	}
	if _, err := c.Waterfalls(); err != nil {
		return err
	}
	if _, err := c.TTLs(); err != nil {
		return err
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range c.Schedule.Refresh {
		if _, err := model.ParseDataset(name); err != nil {
			return fmt.Errorf("schedule.refresh: %w", err)
		}
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("schedule.refresh.%s: %w", name, err)
		}
	}
	if _, err := parser.Parse(c.Schedule.Probe); err != nil {
		return fmt.Errorf("schedule.probe: %w", err)
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together")
	}
	if c.Advisor.MaxPerHour < 1 {
		return fmt.Errorf("advisor.max_per_hour must be positive")
	}
	return nil
}

// Waterfalls returns the configured adapter order keyed by dataset. An empty
// map means the collector defaults apply.
func (c *Config) Waterfalls() (map[model.Dataset][]string, error) {
	out := make(map[model.Dataset][]string, len(c.Collector.Waterfalls))
	for name, adapters := range c.Collector.Waterfalls {
		ds, err := model.ParseDataset(name)
		if err != nil {
			return nil, fmt.Errorf("collector.waterfalls: %w", err)
		}
		if len(adapters) == 0 {
			return nil, fmt.Errorf("collector.waterfalls.%s is empty", name)
		}
		out[ds] = adapters
	}
	return out, nil
}

// TTLs returns per-dataset TTL overrides.
func (c *Config) TTLs() (map[model.Dataset]time.Duration, error) {
	out := make(map[model.Dataset]time.Duration, len(c.Cache.TTLs))
	for name, ttl := range c.Cache.TTLs {
		ds, err := model.ParseDataset(name)
		if err != nil {
			return nil, fmt.Errorf("cache.ttls: %w", err)
		}
		if ttl <= 0 {
			return nil, fmt.Errorf("cache.ttls.%s must be positive", name)
		}
		out[ds] = ttl
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
