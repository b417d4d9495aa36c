// Package pg opens PostgreSQL pools with pgx/v5 and applies goose migrations.
//
// Connect retries with linear back-off until the database answers a ping.
// Migrate takes an fs.FS so each storage package embeds its own schema:
//
//	//go:embed migrations/*.sql
//	var migrations embed.FS
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	if err := pg.Migrate(ctx, pool, migrations, "migrations", cfg, log); err != nil {
//		return err
//	}
//
// Healthcheck returns a probe suitable for httpserver readiness checks.
package pg
