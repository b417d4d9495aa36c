package main

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/dmitrymomot/notifyhub/pkg/config"
	"github.com/dmitrymomot/notifyhub/pkg/connections"
	"github.com/dmitrymomot/notifyhub/pkg/pg"
)

type migrateCmd struct {
	flags *globalFlags
}

func newMigrateCmd(flags *globalFlags) *migrateCmd {
	return &migrateCmd{flags: flags}
}

func (cmd *migrateCmd) command() *cli.Command {
	return &cli.Command{
		Name:        "migrate",
		Usage:       "Apply the Postgres connection-store schema",
		Description: "Runs the embedded goose migrations against PG_CONN_URL. serve applies them too when CONNECTIONS_BACKEND=postgres.",
		Action:      cmd.run,
	}
}

func (cmd *migrateCmd) run(ctx context.Context, _ *cli.Command) error {
	log := cmd.flags.logger

	var cfg pg.Config
	if err := config.Load(&cfg); err != nil {
		return err
	}
	pool, err := pg.Connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := connections.MigratePostgres(ctx, pool, cfg, log); err != nil {
		return err
	}
	log.LogAttrs(ctx, slog.LevelInfo, "migrations applied", slog.String("table", cfg.MigrationsTable))
	return nil
}
