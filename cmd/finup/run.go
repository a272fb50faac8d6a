package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"FinUp/internal/api"
	"FinUp/internal/collector"
	"FinUp/internal/notifier"
	"FinUp/internal/scheduler"

	"github.com/google/subcommands"
	"go.uber.org/zap"
)

type runCmd struct {
	noHTTP bool
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "run the scheduled evaluator, Telegram bot and HTTP API" }
func (*runCmd) Usage() string {
	return `finup [-config <file>] run [-no-http]

  Evaluates the configured accounts on schedule, answers Telegram commands
  and serves the HTTP API until interrupted.
`
}

func (c *runCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&c.noHTTP, "no-http", false, "do not start the HTTP API")
}

func (c *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, restore, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	defer restore()
	if err := cfg.ValidateDaemon(); err != nil {
		zap.L().Error("config validation", zap.Error(err))
		return subcommands.ExitUsageError
	}
	zap.L().Info("FinUp starting")

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	holdings, hc, err := openHoldings(ctx, cfg)
	if err != nil {
		zap.L().Error("open holdings store", zap.Error(err))
		return subcommands.ExitFailure
	}
	defer hc.Close()

	manager := newManager(cfg, holdings)
	bcb := collector.NewBCBFetcher(cfg.Proxy, cfg.Quotes.IndicatorTTL)
	authn := newAuthenticator(cfg)

	rec := newRecorder(ctx, cfg)
	defer rec.Close()

	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)

	accounts := make([]scheduler.Credentials, 0, len(cfg.Accounts))
	for _, a := range cfg.Accounts {
		accounts = append(accounts, scheduler.Credentials{CPF: a.CPF, Password: a.Password})
	}
	sched := scheduler.NewScheduler(ctx, manager, authn, bcb, tn, rec, accounts)
	if err := sched.RegisterAll(cfg.Schedule.EvaluateCron, cfg.Schedule.IndicatorsCron); err != nil {
		zap.L().Error("register cron tasks", zap.Error(err))
		return subcommands.ExitFailure
	}
	sched.Start()
	defer sched.Stop()

	go tn.StartPolling(ctx, sched.HandleCommand)
	zap.L().Info("telegram polling started")

	if cfg.Schedule.RunOnStart {
		zap.L().Info("run_on_start enabled, evaluating now")
		go sched.RunEvaluateNow()
	}

	httpErr := make(chan error, 1)
	if !c.noHTTP {
		srv := api.NewServer(authn, manager, bcb, rec, cfg.HTTP.RateLimit, cfg.HTTP.Burst)
		go func() { httpErr <- srv.ListenAndServe(ctx, cfg.HTTP.Addr) }()
	}

	zap.L().Info("FinUp is running, press Ctrl+C to stop")
	select {
	case <-ctx.Done():
		zap.L().Info("shutdown signal received, stopping")
	case err := <-httpErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Error("http api stopped", zap.Error(err))
			return subcommands.ExitFailure
		}
	}
	return subcommands.ExitSuccess
}
