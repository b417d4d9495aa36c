package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/dmitrymomot/notifyhub/pkg/awsconfig"
	"github.com/dmitrymomot/notifyhub/pkg/config"
	"github.com/dmitrymomot/notifyhub/pkg/connections"
	"github.com/dmitrymomot/notifyhub/pkg/dynamo"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
	"github.com/dmitrymomot/notifyhub/pkg/mongo"
	"github.com/dmitrymomot/notifyhub/pkg/pg"
	"github.com/dmitrymomot/notifyhub/pkg/redis"
	"github.com/dmitrymomot/notifyhub/pkg/requestid"
)

// Push modes selectable through PUSH_MODE.
const (
	PushModeGateway    = "gateway"
	PushModeAPIGateway = "apigateway"
)

var errUnknownPushMode = errors.New("unknown push mode")

type appConfig struct {
	ServiceName string `env:"APP_NAME" envDefault:"notifyhub"`  // ServiceName tags every log record and trace.
	Environment string `env:"APP_ENV" envDefault:"development"` // Environment selects the logger preset.
	PushMode    string `env:"PUSH_MODE" envDefault:"gateway"`   // PushMode is gateway (self-hosted sockets) or apigateway.
	Version     string `env:"APP_VERSION" envDefault:"1.0.0"`   // Version is reported by the health endpoint.
}

func (c appConfig) Validate() error {
	switch c.PushMode {
	case PushModeGateway, PushModeAPIGateway:
		return nil
	default:
		return fmt.Errorf("%w: %q", errUnknownPushMode, c.PushMode)
	}
}

type globalFlags struct {
	envFiles []string
	logLevel string

	app    appConfig
	logger *slog.Logger
}

func (f *globalFlags) before(ctx context.Context, _ *cli.Command) (context.Context, error) {
	if err := config.LoadEnv(f.envFiles...); err != nil {
		return ctx, err
	}
	if err := config.Load(&f.app); err != nil {
		return ctx, err
	}

	opts := []logger.Option{
		logger.WithEnvironment(f.app.Environment, f.app.ServiceName),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	}
	if f.logLevel != "" {
		opts = append(opts, logger.WithLevelName(f.logLevel))
	}
	f.logger = logger.New(opts...)
	logger.SetAsDefault(f.logger)
	return ctx, nil
}

// backend is an opened connection store with its readiness probe and cleanup.
type backend struct {
	store connections.Store
	ready func(context.Context) error
	close func()
}

func openBackend(ctx context.Context, cfg connections.Config, log *slog.Logger) (backend, error) {
	nop := func() {}
	switch cfg.Backend {
	case connections.BackendMemory:
		return backend{store: connections.NewMemoryStore(), close: nop}, nil

	case connections.BackendRedis:
		var rc redis.Config
		if err := config.Load(&rc); err != nil {
			return backend{}, err
		}
		client, err := redis.Connect(ctx, rc)
		if err != nil {
			return backend{}, err
		}
		return backend{
			store: connections.NewRedisStore(client, rc.KeyPrefix, connections.WithRedisLogger(log)),
			ready: redis.Healthcheck(client),
			close: func() { _ = client.Close() },
		}, nil

	case connections.BackendDynamoDB:
		var ac awsconfig.Config
		var dc dynamo.Config
		if err := errors.Join(config.Load(&ac), config.Load(&dc)); err != nil {
			return backend{}, err
		}
		client, err := dynamo.New(ctx, ac, dc)
		if err != nil {
			return backend{}, err
		}
		return backend{
			store: connections.NewDynamoStore(client, cfg.Table),
			ready: dynamo.Healthcheck(client, cfg.Table),
			close: nop,
		}, nil

	case connections.BackendMongo:
		var mc mongo.Config
		if err := config.Load(&mc); err != nil {
			return backend{}, err
		}
		db, err := mongo.NewWithDatabase(ctx, mc)
		if err != nil {
			return backend{}, err
		}
		return backend{
			store: connections.NewMongoStore(db, cfg.MongoCollection),
			ready: mongo.Healthcheck(db.Client()),
			close: func() { _ = db.Client().Disconnect(context.WithoutCancel(ctx)) },
		}, nil

	case connections.BackendPostgres:
		var pc pg.Config
		if err := config.Load(&pc); err != nil {
			return backend{}, err
		}
		pool, err := pg.Connect(ctx, pc)
		if err != nil {
			return backend{}, err
		}
		if err := connections.MigratePostgres(ctx, pool, pc, log); err != nil {
			pool.Close()
			return backend{}, err
		}
		return backend{
			store: connections.NewPostgresStore(pool),
			ready: pg.Healthcheck(pool),
			close: pool.Close,
		}, nil

	default:
		return backend{}, fmt.Errorf("%w: %q", connections.ErrUnknownBackend, cfg.Backend)
	}
}
