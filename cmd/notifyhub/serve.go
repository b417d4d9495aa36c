package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/notifyhub/pkg/api"
	"github.com/dmitrymomot/notifyhub/pkg/awsconfig"
	"github.com/dmitrymomot/notifyhub/pkg/config"
	"github.com/dmitrymomot/notifyhub/pkg/connections"
	"github.com/dmitrymomot/notifyhub/pkg/fanout"
	"github.com/dmitrymomot/notifyhub/pkg/gateway"
	"github.com/dmitrymomot/notifyhub/pkg/httpserver"
	"github.com/dmitrymomot/notifyhub/pkg/invoke"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/metrics"
	"github.com/dmitrymomot/notifyhub/pkg/push"
	"github.com/dmitrymomot/notifyhub/pkg/tracing"
)

type serveCmd struct {
	flags *globalFlags
}

func newServeCmd(flags *globalFlags) *serveCmd {
	return &serveCmd{flags: flags}
}

func (cmd *serveCmd) command() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API, the WebSocket gateway and the NATS invocation listener",
		Description: `Starts every long-running component of the service:

  - HTTP API under /api/notifications, probes and /metrics
  - WebSocket gateway (PUSH_MODE=gateway) or API Gateway push channel (PUSH_MODE=apigateway)
  - NATS invocation listener when NATS_URL is set
  - stale-connection reaper

All settings come from the environment.`,
		Action: cmd.run,
	}
}

type serveConfig struct {
	fanout      fanout.Config
	connections connections.Config
	http        httpserver.Config
	gateway     gateway.Config
	tracing     tracing.Config
	invoke      invoke.Config
}

func loadServeConfig() (serveConfig, error) {
	var c serveConfig
	err := errors.Join(
		config.Load(&c.fanout),
		config.Load(&c.connections),
		config.Load(&c.http),
		config.Load(&c.gateway),
		config.Load(&c.tracing),
		config.Load(&c.invoke),
	)
	return c, err
}

func (cmd *serveCmd) run(ctx context.Context, _ *cli.Command) error {
	app, log := cmd.flags.app, cmd.flags.logger

	cfg, err := loadServeConfig()
	if err != nil {
		return err
	}

	tp, shutdownTracing, err := tracing.Setup(ctx, cfg.tracing, app.ServiceName, app.Version)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			log.LogAttrs(ctx, slog.LevelWarn, "tracing shutdown", logger.Error(err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	rec := metrics.New(reg)

	be, err := openBackend(ctx, cfg.connections, log)
	if err != nil {
		return err
	}
	defer be.close()

	reaper, err := fanout.NewReaperFromConfig(cfg.fanout, be.store,
		fanout.WithReaperLogger(log),
		fanout.WithReaperRecorder(rec),
	)
	if err != nil {
		return err
	}

	routerOpts := []api.RouterOption{
		api.WithLogger(log),
		api.WithMetrics(rec),
		api.WithTracerProvider(tp),
	}
	if be.ready != nil {
		routerOpts = append(routerOpts, api.WithReadinessChecks(be.ready))
	}

	var (
		channel fanout.PushChannel
		gw      *gateway.Gateway
	)
	switch app.PushMode {
	case PushModeAPIGateway:
		var ac awsconfig.Config
		var pc push.Config
		if err := errors.Join(config.Load(&ac), config.Load(&pc)); err != nil {
			return err
		}
		apigw, err := push.NewAPIGatewayFromConfig(ctx, ac, pc)
		if err != nil {
			return err
		}
		channel = apigw
	default:
		if cfg.connections.Backend != connections.BackendMemory {
			log.LogAttrs(ctx, slog.LevelWarn,
				"gateway push mode only reaches sockets held by this instance; records of other instances will be reaped",
				slog.String("backend", cfg.connections.Backend),
			)
		}
		gw = gateway.New(cfg.gateway, be.store, gateway.WithLogger(log))
		rec.TrackConnections(gw.Connected)
		channel = gw
		routerOpts = append(routerOpts, api.WithWebSocket(cfg.gateway.Path, gw))
	}

	dispatcher := fanout.NewDispatcherFromConfig(cfg.fanout, channel,
		fanout.WithDispatcherLogger(log),
		fanout.WithDispatcherRecorder(rec),
		fanout.WithStaleConnections(reaper.Stale()),
	)
	engine := fanout.NewEngine(be.store, dispatcher,
		fanout.WithEngineLogger(log),
		fanout.WithEngineRecorder(rec),
		fanout.WithTracerProvider(tp),
	)

	var sub *invoke.Subscriber
	if cfg.invoke.Enabled() {
		nc, err := invoke.Connect(cfg.invoke, log)
		if err != nil {
			return err
		}
		defer nc.Close()
		routerOpts = append(routerOpts, api.WithReadinessChecks(invoke.Healthcheck(nc)))
		sub = invoke.NewSubscriber(nc, cfg.invoke, invoke.NewHandler(engine, invoke.WithLogger(log)), log)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error { return reaper.Run(ctx) })

	if sub != nil {
		g.Go(func() error { return sub.Run(ctx) })
	}

	handlers := api.NewHandlers(engine, be.store, api.WithVersion(app.Version))
	router := api.NewRouter(handlers, routerOpts...)
	srv := httpserver.NewFromConfig(cfg.http, httpserver.WithLogger(log))
	g.Go(func() error { return srv.Run(ctx, router) })

	if gw != nil {
		g.Go(func() error {
			<-ctx.Done()
			return gw.Close()
		})
	}

	log.LogAttrs(ctx, slog.LevelInfo, "notifyhub started",
		slog.String("push_mode", app.PushMode),
		slog.String("backend", cfg.connections.Backend),
		slog.Bool("invoke", cfg.invoke.Enabled()),
	)
	return g.Wait()
}
