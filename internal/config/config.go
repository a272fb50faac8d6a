package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Account is a customer evaluated on schedule.
type Account struct {
	CPF      string `yaml:"cpf"`
	Password string `yaml:"password"`
}

// Config holds all application configuration.
type Config struct {
	Auth struct {
		BaseURL string        `yaml:"base_url" env:"BANK_API_URL"`
		Timeout time.Duration `yaml:"timeout" env:"BANK_API_TIMEOUT"`
		// Disabled skips the banking login and trusts configured CPFs. Local development only.
		Disabled bool `yaml:"disabled" env:"AUTH_DISABLED"`
	} `yaml:"auth"`
	Database struct {
		PostgresDSN string `yaml:"postgres_dsn" env:"DATABASE_URL"`
		SQLitePath  string `yaml:"sqlite_path" env:"SQLITE_PATH"`
		HistoryPath string `yaml:"history_path" env:"HISTORY_PATH"`
	} `yaml:"database"`
	Quotes struct {
		Source        string        `yaml:"source" env:"QUOTES_SOURCE"` // yahoo or mock
		Timeout       time.Duration `yaml:"timeout" env:"QUOTES_TIMEOUT"`
		CacheTTL      time.Duration `yaml:"cache_ttl" env:"QUOTES_CACHE_TTL"`
		DefaultFXRate float64       `yaml:"default_fx_rate" env:"DEFAULT_FX_RATE"`
		RPS           float64       `yaml:"requests_per_second" env:"QUOTES_RPS"`
		IndicatorTTL  time.Duration `yaml:"indicator_ttl" env:"INDICATOR_TTL"`

		// MockPrices feeds the mock source, keyed by quote symbol (PETR4.SA, BTC-USD, USDBRL=X).
		// In the environment: QUOTES_MOCK_PRICES=PETR4.SA:36.5,USDBRL=X:5.4
		MockPrices map[string]float64 `yaml:"mock_prices" env:"QUOTES_MOCK_PRICES" envKeyValSeparator:":"`
	} `yaml:"quotes"`
	Rebalance struct {
		// Tolerance is nil until set; an explicit 0 asks for exact targets.
		Tolerance *float64 `yaml:"tolerance" env:"REBALANCE_TOLERANCE"`
	} `yaml:"rebalance"`
	Schedule struct {
		EvaluateCron   string `yaml:"evaluate_cron" env:"CRON_EVALUATE"`
		IndicatorsCron string `yaml:"indicators_cron" env:"CRON_INDICATORS"`
		RunOnStart     bool   `yaml:"run_on_start" env:"RUN_ON_START"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
		ChatID   string `yaml:"chat_id" env:"TELEGRAM_CHAT_ID"`
	} `yaml:"telegram"`
	Kafka struct {
		Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
		Topic   string   `yaml:"topic" env:"KAFKA_TOPIC"`
	} `yaml:"kafka"`
	HTTP struct {
		Addr      string  `yaml:"addr" env:"HTTP_ADDR"`
		RateLimit float64 `yaml:"rate_limit" env:"HTTP_RATE_LIMIT"` // requests per second across the API
		Burst     int     `yaml:"burst" env:"HTTP_BURST"`
	} `yaml:"http"`
	Log struct {
		Level  string `yaml:"level" env:"LOG_LEVEL"`
		Format string `yaml:"format" env:"LOG_FORMAT"` // json or console
	} `yaml:"log"`
	Accounts []Account `yaml:"accounts"`
	Proxy    string    `yaml:"proxy" env:"HTTPS_PROXY"`
}

// Load reads config from a YAML file, then a .env file, then applies environment variable overrides
// and defaults.
func Load(path string) (*Config, error) {
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

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		zap.L().Warn("could not load .env file", zap.Error(err))
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	// A single account can be given through the environment.
	if cpf := os.Getenv("FINUP_CPF"); cpf != "" {
		cfg.Accounts = append([]Account{{CPF: cpf, Password: os.Getenv("FINUP_PASSWORD")}}, cfg.Accounts...)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Auth.Timeout == 0 {
		c.Auth.Timeout = 15 * time.Second
	}
	if c.Database.HistoryPath == "" {
		c.Database.HistoryPath = "data/finup_history.db"
	}
	if c.Database.PostgresDSN == "" && c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/finup.db"
	}
	if c.Quotes.Source == "" {
		c.Quotes.Source = "yahoo"
	}
	if c.Quotes.Timeout == 0 {
		c.Quotes.Timeout = 10 * time.Second
	}
	if c.Quotes.CacheTTL == 0 {
		c.Quotes.CacheTTL = 2 * time.Minute
	}
	if c.Quotes.DefaultFXRate == 0 {
		c.Quotes.DefaultFXRate = 5.0
	}
	if c.Quotes.RPS == 0 {
		c.Quotes.RPS = 2
	}
	if c.Quotes.IndicatorTTL == 0 {
		c.Quotes.IndicatorTTL = 6 * time.Hour
	}
	if c.Rebalance.Tolerance == nil {
		tol := 5.0
		c.Rebalance.Tolerance = &tol
	}
	if c.Schedule.EvaluateCron == "" {
		c.Schedule.EvaluateCron = "0 0 9 * * 1-5"
	}
	if c.Schedule.IndicatorsCron == "" {
		c.Schedule.IndicatorsCron = "0 0 8 * * 1"
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = "finup.evaluations"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.RateLimit == 0 {
		c.HTTP.RateLimit = 5
	}
	if c.HTTP.Burst == 0 {
		c.HTTP.Burst = 10
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
}

// Tolerance returns the rebalancing tolerance in percentage points.
func (c *Config) Tolerance() float64 {
	if c.Rebalance.Tolerance == nil {
		return 5
	}
	return *c.Rebalance.Tolerance
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	var errs []error
	if tol := c.Tolerance(); tol < 0 || tol >= 100 {
		errs = append(errs, fmt.Errorf("rebalance.tolerance must be in [0, 100)"))
	}
	if c.Quotes.DefaultFXRate <= 0 {
		errs = append(errs, fmt.Errorf("quotes.default_fx_rate must be positive"))
	}
	switch c.Quotes.Source {
	case "yahoo", "mock":
	default:
		errs = append(errs, fmt.Errorf("quotes.source must be yahoo or mock, got %q", c.Quotes.Source))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format must be json or console, got %q", c.Log.Format))
	}
	for i, a := range c.Accounts {
		if a.CPF == "" {
			errs = append(errs, fmt.Errorf("accounts[%d].cpf is required", i))
		}
		if a.Password == "" && !c.Auth.Disabled {
			errs = append(errs, fmt.Errorf("accounts[%d].password is required unless auth is disabled", i))
		}
	}
	return errors.Join(errs...)
}

// ValidateDaemon adds the checks the long-running service needs.
func (c *Config) ValidateDaemon() error {
	var errs []error
	if err := c.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Telegram.BotToken == "" {
		errs = append(errs, fmt.Errorf("telegram.bot_token is required"))
	}
	if c.Telegram.ChatID == "" {
		errs = append(errs, fmt.Errorf("telegram.chat_id is required"))
	}
	if len(c.Accounts) == 0 {
		errs = append(errs, fmt.Errorf("at least one account is required"))
	}
	return errors.Join(errs...)
}
