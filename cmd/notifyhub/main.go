package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/urfave/cli/v3"
)

// Populated at build time via -ldflags.
var (
	version = "dev"
	commit  = "HEAD"
)

func buildVersion() string {
	v, c := version, commit
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				if s.Key == "vcs.revision" {
					c = s.Value
				}
			}
		}
	}
	if len(c) > 7 {
		c = c[:7]
	}
	return fmt.Sprintf("%s (%s)", v, c)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	flags := &globalFlags{}

	app := &cli.Command{
		Name:      "notifyhub",
		Usage:     "Fan out notifications to connected real-time clients",
		UsageText: "notifyhub [global options] command [command options]",
		Version:   buildVersion(),
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:        "env-file",
				Usage:       "load environment variables from `FILE` (repeatable, defaults to .env)",
				Destination: &flags.envFiles,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error); overrides the APP_ENV preset",
				Sources:     cli.EnvVars("LOG_LEVEL"),
				Destination: &flags.logLevel,
			},
		},
		Before: flags.before,
		Commands: []*cli.Command{
			newServeCmd(flags).command(),
			newSendCmd(flags).command(),
			newMigrateCmd(flags).command(),
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "notifyhub: %v\n", err)
		stop()
		os.Exit(1)
	}
}
