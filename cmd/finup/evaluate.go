package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"FinUp/internal/model"
	"FinUp/internal/notifier"
	"FinUp/internal/recorder"

	"github.com/google/subcommands"
	"go.uber.org/zap"
)

type evaluateCmd struct {
	cpf      string
	password string
	asJSON   bool
	record   bool
}

func (*evaluateCmd) Name() string     { return "evaluate" }
func (*evaluateCmd) Synopsis() string { return "value a portfolio and print its rebalancing plan" }
func (*evaluateCmd) Usage() string {
	return `finup [-config <file>] evaluate [-cpf <cpf>] [-password <pw>] [-json] [-record]

  Evaluates one account and prints the report. Without -cpf the first
  configured account is used.
`
}

func (c *evaluateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.cpf, "cpf", "", "account holder CPF")
	f.StringVar(&c.password, "password", "", "banking password (defaults to the configured one)")
	f.BoolVar(&c.asJSON, "json", false, "print the report as JSON")
	f.BoolVar(&c.record, "record", false, "store the evaluation in the history")
}

func (c *evaluateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, restore, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	defer restore()

	cpf, password := c.cpf, c.password
	for _, a := range cfg.Accounts {
		if cpf == "" || a.CPF == cpf {
			if cpf == "" {
				cpf = a.CPF
			}
			if password == "" {
				password = a.Password
			}
			break
		}
	}
	if strings.TrimSpace(cpf) == "" {
		fmt.Fprintln(os.Stderr, "Error: no cpf given and no account configured")
		return subcommands.ExitUsageError
	}

	holdings, hc, err := openHoldings(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer hc.Close()

	var sess *model.Session
	if cfg.Auth.Disabled {
		sess = &model.Session{CPF: cpf}
	} else if sess, err = newAuthenticator(cfg).Login(ctx, cpf, password); err != nil {
		fmt.Fprintf(os.Stderr, "Error: login: %v\n", err)
		return subcommands.ExitFailure
	}

	report, err := newManager(cfg, holdings).Evaluate(ctx, sess)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.record {
		rec := newRecorder(ctx, cfg)
		if err := rec.RecordEvaluation(recorder.NewEvaluationEvent(report, recorder.TriggerCLI)); err != nil {
			zap.L().Warn("record evaluation", zap.Error(err))
		}
		rec.Close()
	}

	if c.asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		return subcommands.ExitSuccess
	}
	printMarkdown(notifier.FormatReportMarkdown(report))
	return subcommands.ExitSuccess
}
