package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

var configPath = flag.String("config", envOr("CONFIG_PATH", "configs/config.yaml"), "path to the YAML config file")

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")

	commander.Register(&runCmd{}, "service")
	commander.Register(&evaluateCmd{}, "reports")
	commander.Register(&indicatorsCmd{}, "reports")
	commander.Register(&migrateCmd{}, "database")
	commander.Register(&seedCmd{}, "database")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
