package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/dmitrymomot/notifyhub/pkg/config"
	"github.com/dmitrymomot/notifyhub/pkg/fanout"
	"github.com/dmitrymomot/notifyhub/pkg/invoke"
)

var errTypeRequired = errors.New("notification type is required (--type or --file)")

type sendCmd struct {
	flags *globalFlags

	file string
	req  fanout.Request
	data string
}

func newSendCmd(flags *globalFlags) *sendCmd {
	return &sendCmd{flags: flags}
}

func (cmd *sendCmd) command() *cli.Command {
	return &cli.Command{
		Name:      "send",
		Usage:     "Invoke a fan-out on a running instance over NATS",
		UsageText: "notifyhub send --type TYPE [--user ID]... [--role ROLE]... [--team TEAM]... | --file request.json",
		Description: `Publishes a send_notification invocation on NOTIFYHUB_INVOKE_SUBJECT and
prints the reply as JSON. Targeting flags combine the way the engine matches:
an empty list means "no constraint".`,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "read the notification from a JSON `FILE`", Destination: &cmd.file},
			&cli.StringFlag{Name: "type", Aliases: []string{"t"}, Usage: "notification type", Destination: &cmd.req.Type},
			&cli.StringFlag{Name: "title", Usage: "notification title", Destination: &cmd.req.Title},
			&cli.StringFlag{Name: "message", Aliases: []string{"m"}, Usage: "notification body", Destination: &cmd.req.Message},
			&cli.StringFlag{Name: "module", Usage: "originating module name", Destination: &cmd.req.ModuleName},
			&cli.StringFlag{Name: "owner", Usage: "process owner user id", Destination: &cmd.req.ProcessOwnerID},
			&cli.StringSliceFlag{Name: "user", Aliases: []string{"u"}, Usage: "target user id (repeatable)", Destination: &cmd.req.TargetUsers},
			&cli.StringSliceFlag{Name: "role", Usage: "required role (repeatable)", Destination: &cmd.req.RequiredRoles},
			&cli.StringSliceFlag{Name: "team", Usage: "target team (repeatable)", Destination: &cmd.req.TargetTeams},
			&cli.StringFlag{Name: "data", Usage: "JSON object attached as data", Destination: &cmd.data},
			&cli.StringFlag{
				Name:  "priority",
				Usage: "priority label, conventionally LOW, MEDIUM, HIGH or CRITICAL",
				Action: func(_ context.Context, _ *cli.Command, v string) error {
					cmd.req.Priority = fanout.Priority(v)
					return nil
				},
			},
		},
		Action: cmd.run,
	}
}

func (cmd *sendCmd) request() (fanout.Request, error) {
	req := cmd.req
	if cmd.file != "" {
		b, err := os.ReadFile(cmd.file)
		if err != nil {
			return req, fmt.Errorf("read notification file: %w", err)
		}
		req = fanout.Request{}
		if err := json.Unmarshal(b, &req); err != nil {
			return req, fmt.Errorf("decode notification file: %w", err)
		}
	}
	if cmd.data != "" {
		if err := json.Unmarshal([]byte(cmd.data), &req.Data); err != nil {
			return req, fmt.Errorf("decode --data: %w", err)
		}
	}
	if req.Type == "" {
		return req, errTypeRequired
	}
	return req, nil
}

func (cmd *sendCmd) run(ctx context.Context, _ *cli.Command) error {
	req, err := cmd.request()
	if err != nil {
		return err
	}

	var cfg invoke.Config
	if err := config.Load(&cfg); err != nil {
		return err
	}
	nc, err := invoke.Connect(cfg, cmd.flags.logger)
	if err != nil {
		return err
	}
	defer nc.Close()

	if cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RequestTimeout)
		defer cancel()
	}

	reply, err := invoke.Send(ctx, nc, cfg.Subject, req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(reply)
}
