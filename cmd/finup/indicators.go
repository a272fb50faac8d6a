package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"FinUp/internal/collector"
	"FinUp/internal/notifier"

	"github.com/google/subcommands"
)

type indicatorsCmd struct{}

func (*indicatorsCmd) Name() string     { return "indicators" }
func (*indicatorsCmd) Synopsis() string { return "print the latest Banco Central economic indicators" }
func (*indicatorsCmd) Usage() string {
	return `finup indicators

  Fetches SELIC, IPCA, IGP-M, INPC, CDI and monthly GDP from the BCB SGS API.
`
}

func (*indicatorsCmd) SetFlags(*flag.FlagSet) {}

func (*indicatorsCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	cfg, restore, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	defer restore()

	inds, err := collector.NewBCBFetcher(cfg.Proxy, cfg.Quotes.IndicatorTTL).Indicators(ctx, collector.DefaultSeries)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(notifier.FormatIndicatorsMarkdown(inds))
	return subcommands.ExitSuccess
}
