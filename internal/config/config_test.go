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
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_YAMLAndDefaults(t *testing.T) {
	path := writeConfig(t, `
auth:
  base_url: https://bank.example
database:
  postgres_dsn: postgres://finup@localhost/bank
quotes:
  timeout: 3s
rebalance:
  tolerance: 7.5
telegram:
  bot_token: abc
  chat_id: "42"
kafka:
  brokers: [localhost:9092]
accounts:
  - cpf: "12345678900"
    password: secret
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Auth.BaseURL != "https://bank.example" || cfg.Auth.Timeout != 15*time.Second {
		t.Errorf("unexpected auth %+v", cfg.Auth)
	}
	if cfg.Database.SQLitePath != "" {
		t.Errorf("sqlite default must not apply when postgres is set, got %q", cfg.Database.SQLitePath)
	}
	if cfg.Quotes.Timeout != 3*time.Second || cfg.Quotes.DefaultFXRate != 5 || cfg.Quotes.Source != "yahoo" {
		t.Errorf("unexpected quotes %+v", cfg.Quotes)
	}
	if cfg.Tolerance() != 7.5 {
		t.Errorf("expected tolerance 7.5, got %v", cfg.Tolerance())
	}
	if len(cfg.Kafka.Brokers) != 1 || cfg.Kafka.Topic != "finup.evaluations" {
		t.Errorf("unexpected kafka %+v", cfg.Kafka)
	}
	if cfg.Schedule.EvaluateCron == "" || cfg.HTTP.Addr != ":8080" || cfg.Log.Level != "info" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if err := cfg.ValidateDaemon(); err != nil {
		t.Errorf("expected valid daemon config, got %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
rebalance:
  tolerance: 7.5
telegram:
  chat_id: "1"
`)
	t.Setenv("REBALANCE_TOLERANCE", "3")
	t.Setenv("TELEGRAM_CHAT_ID", "99")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("QUOTES_TIMEOUT", "500ms")
	t.Setenv("FINUP_CPF", "11122233344")
	t.Setenv("FINUP_PASSWORD", "pw")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Tolerance() != 3 || cfg.Telegram.ChatID != "99" {
		t.Errorf("env did not override yaml: %v %+v", cfg.Tolerance(), cfg.Telegram)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "b:9092" {
		t.Errorf("unexpected brokers %v", cfg.Kafka.Brokers)
	}
	if cfg.Quotes.Timeout != 500*time.Millisecond {
		t.Errorf("unexpected timeout %v", cfg.Quotes.Timeout)
	}
	if len(cfg.Accounts) != 1 || cfg.Accounts[0].CPF != "11122233344" {
		t.Errorf("unexpected accounts %+v", cfg.Accounts)
	}
	if cfg.Database.SQLitePath != "data/finup.db" {
		t.Errorf("expected sqlite default, got %q", cfg.Database.SQLitePath)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got %v", err)
	}
	if err := cfg.ValidateDaemon(); err == nil {
		t.Error("daemon needs telegram and accounts")
	}
}

func TestLoad_ZeroToleranceIsKept(t *testing.T) {
	cfg, err := Load(writeConfig(t, "rebalance:\n  tolerance: 0\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Tolerance() != 0 {
		t.Errorf("explicit zero tolerance was replaced by %v", cfg.Tolerance())
	}

	cfg, err = Load(writeConfig(t, "log:\n  level: debug\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Tolerance() != 5 {
		t.Errorf("expected default tolerance 5, got %v", cfg.Tolerance())
	}
}

func TestLoad_MockPrices(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
quotes:
  source: mock
  mock_prices:
    PETR4.SA: 36.5
    BTC-USD: 62000
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Quotes.Source != "mock" || cfg.Quotes.MockPrices["PETR4.SA"] != 36.5 || cfg.Quotes.MockPrices["BTC-USD"] != 62000 {
		t.Errorf("unexpected quotes %+v", cfg.Quotes)
	}

	t.Setenv("QUOTES_MOCK_PRICES", "VALE3.SA:58.2,USDBRL=X:5.4")
	cfg, err = Load(filepath.Join(t.TempDir(), "none.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Quotes.MockPrices["VALE3.SA"] != 58.2 || cfg.Quotes.MockPrices["USDBRL=X"] != 5.4 {
		t.Errorf("unexpected env prices %v", cfg.Quotes.MockPrices)
	}
}

func TestLoad_BadYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "rebalance: [")); err == nil {
		t.Error("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()
	tooWide := 150.0
	cfg.Rebalance.Tolerance = &tooWide
	cfg.Quotes.Source = "bloomberg"
	cfg.Accounts = []Account{{CPF: "1"}}

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation errors")
	}
	for _, want := range []string{"tolerance", "quotes.source", "accounts[0].password"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected %q in %v", want, err)
		}
	}

	cfg.Rebalance.Tolerance = nil
	cfg.Quotes.Source = "mock"
	cfg.Auth.Disabled = true
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}
