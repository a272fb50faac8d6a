package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"FinUp/internal/store"

	"github.com/google/subcommands"
	"go.uber.org/zap"
)

type migrateCmd struct{}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "create or upgrade the local holdings database" }
func (*migrateCmd) Usage() string {
	return `finup migrate

  Applies the embedded schema migrations to database.sqlite_path.
`
}

func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (*migrateCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	s, restore, err := openLocal()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer restore()
	s.Close()
	return subcommands.ExitSuccess
}

type seedCmd struct {
	fixtures string
}

func (*seedCmd) Name() string     { return "seed" }
func (*seedCmd) Synopsis() string { return "load customer fixtures into the local holdings database" }
func (*seedCmd) Usage() string {
	return `finup seed [-f <fixtures.yaml>]

  Inserts every customer of the fixtures file with its holdings.
`
}

func (c *seedCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.fixtures, "f", "configs/fixtures.yaml", "fixtures file")
}

func (c *seedCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	fx, err := store.LoadFixtures(c.fixtures)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	s, restore, err := openLocal()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	defer restore()
	defer s.Close()

	for _, fixture := range fx {
		id, err := s.Seed(ctx, fixture)
		if err != nil {
			zap.L().Error("seed customer", zap.String("name", fixture.Name), zap.Error(err))
			return subcommands.ExitFailure
		}
		zap.L().Info("customer seeded", zap.String("name", fixture.Name), zap.Int64("account", id))
	}
	return subcommands.ExitSuccess
}

// openLocal opens the SQLite holdings mirror, which applies pending migrations.
func openLocal() (*store.SQLite, func(), error) {
	cfg, restore, err := setup()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Database.SQLitePath == "" {
		restore()
		return nil, nil, fmt.Errorf("database.sqlite_path is not set")
	}
	if err := ensureDir(cfg.Database.SQLitePath); err != nil {
		restore()
		return nil, nil, err
	}
	s, err := store.OpenSQLite(cfg.Database.SQLitePath)
	if err != nil {
		restore()
		return nil, nil, err
	}
	return s, restore, nil
}
