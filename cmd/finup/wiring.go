package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"FinUp/internal/auth"
	"FinUp/internal/collector"
	"FinUp/internal/config"
	"FinUp/internal/logger"
	"FinUp/internal/model"
	"FinUp/internal/portfolio"
	"FinUp/internal/recorder"
	"FinUp/internal/store"

	"github.com/charmbracelet/glamour"
	"go.uber.org/zap"
)

// authenticator is what both the scheduler and the HTTP API need from a login backend.
type authenticator interface {
	Login(ctx context.Context, cpf, password string) (*model.Session, error)
	Resolve(ctx context.Context, sess *model.Session) error
}

// setup loads the config and installs the global logger. The returned func flushes the logger.
func setup() (*config.Config, func(), error) {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, nil, err
	}
	restore, err := logger.Install(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		restore()
		return nil, nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, restore, nil
}

type closer interface{ Close() error }

// openHoldings opens Postgres when a DSN is configured, the local SQLite mirror otherwise.
func openHoldings(ctx context.Context, cfg *config.Config) (store.HoldingsProvider, closer, error) {
	if cfg.Database.PostgresDSN != "" {
		pg, err := store.NewPostgres(ctx, cfg.Database.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg, nil
	}
	if err := ensureDir(cfg.Database.SQLitePath); err != nil {
		return nil, nil, err
	}
	s, err := store.OpenSQLite(cfg.Database.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	return s, s, nil
}

func ensureDir(file string) error {
	dir := filepath.Dir(file)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func newCollector(cfg *config.Config) *collector.Collector {
	var fetcher collector.Fetcher
	switch cfg.Quotes.Source {
	case "mock":
		fetcher = collector.NewMockFetcher(cfg.Quotes.MockPrices)
	default:
		fetcher = collector.NewYahooFetcher(cfg.Proxy, cfg.Quotes.RPS)
	}
	zap.L().Info("quote source", zap.String("fetcher", fetcher.Name()))
	return collector.NewCollector(fetcher, collector.Options{
		Timeout:       cfg.Quotes.Timeout,
		CacheTTL:      cfg.Quotes.CacheTTL,
		DefaultFXRate: cfg.Quotes.DefaultFXRate,
	})
}

func newManager(cfg *config.Config, holdings store.HoldingsProvider) *portfolio.Manager {
	return portfolio.NewManager(holdings, newCollector(cfg), cfg.Tolerance())
}

func newAuthenticator(cfg *config.Config) authenticator {
	if cfg.Auth.Disabled {
		zap.L().Warn("banking login disabled, sessions are trusted by cpf")
		return auth.Local{}
	}
	return auth.NewClient(cfg.Auth.BaseURL, cfg.Auth.Timeout)
}

// newRecorder fans out to the SQLite history and, when brokers are configured, to Kafka.
// Failures degrade to fewer sinks rather than aborting.
func newRecorder(ctx context.Context, cfg *config.Config) recorder.Recorder {
	var sinks recorder.Multi
	if cfg.Database.HistoryPath != "" {
		if err := ensureDir(cfg.Database.HistoryPath); err != nil {
			zap.L().Warn("history directory", zap.Error(err))
		} else if sr, err := recorder.NewSQLiteRecorder(cfg.Database.HistoryPath); err != nil {
			zap.L().Warn("init sqlite recorder failed", zap.Error(err))
		} else {
			sinks = append(sinks, sr)
		}
	}
	if len(cfg.Kafka.Brokers) > 0 {
		recorder.EnsureTopic(ctx, cfg.Kafka.Brokers[0], cfg.Kafka.Topic)
		w := recorder.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		sinks = append(sinks, recorder.NewKafkaRecorder(w, cfg.Quotes.Timeout))
		zap.L().Info("publishing evaluations to kafka", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	}
	if len(sinks) == 0 {
		return recorder.NewNoopRecorder()
	}
	return sinks
}

func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		fmt.Println(md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Println(md)
		return
	}
	fmt.Print(out)
}
