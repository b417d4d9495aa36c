package connections

import (
	"context"
	"embed"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/notifyhub/pkg/fanout"
	"github.com/dmitrymomot/notifyhub/pkg/pg"
)

//go:embed migrations/*.sql
var migrations embed.FS

// MigratePostgres creates or upgrades the connections table.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool, cfg pg.Config, log *slog.Logger) error {
	return pg.Migrate(ctx, pool, migrations, "migrations", cfg, log)
}

const (
	upsertConnection = `
INSERT INTO connections (connection_id, user_id, roles, teams, department, connected_at, last_seen, subscribed_topics)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (connection_id) DO UPDATE SET
    user_id = EXCLUDED.user_id,
    roles = EXCLUDED.roles,
    teams = EXCLUDED.teams,
    department = EXCLUDED.department,
    connected_at = EXCLUDED.connected_at,
    last_seen = EXCLUDED.last_seen,
    subscribed_topics = EXCLUDED.subscribed_topics`

	selectConnections = `
SELECT connection_id, user_id, roles, teams, department, connected_at, last_seen, subscribed_topics
FROM connections`
)

type connectionRow struct {
	ConnectionID     string   `db:"connection_id"`
	UserID           string   `db:"user_id"`
	Roles            []string `db:"roles"`
	Teams            []string `db:"teams"`
	Department       string   `db:"department"`
	ConnectedAt      int64    `db:"connected_at"`
	LastSeen         int64    `db:"last_seen"`
	SubscribedTopics []string `db:"subscribed_topics"`
}

func (r connectionRow) connection() fanout.Connection {
	return fanout.Connection(r)
}

// PostgresStore keeps connections in the connections table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Put(ctx context.Context, conn fanout.Connection) error {
	if conn.ConnectionID == "" {
		return ErrEmptyConnectionID
	}
	_, err := s.pool.Exec(ctx, upsertConnection,
		conn.ConnectionID,
		conn.UserID,
		nonNil(conn.Roles),
		nonNil(conn.Teams),
		conn.Department,
		conn.ConnectedAt,
		conn.LastSeen,
		nonNil(conn.SubscribedTopics),
	)
	return err
}

func (s *PostgresStore) Remove(ctx context.Context, connectionID string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM connections WHERE connection_id = $1`, connectionID)
	return err
}

func (s *PostgresStore) Touch(ctx context.Context, connectionID string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE connections SET last_seen = $2 WHERE connection_id = $1`, connectionID, at.Unix())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConnectionNotFound
	}
	return nil
}

func (s *PostgresStore) SetTopics(ctx context.Context, connectionID string, topics []string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE connections SET subscribed_topics = $2 WHERE connection_id = $1`, connectionID, nonNil(topics))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConnectionNotFound
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, connectionID string) (fanout.Connection, error) {
	rows, err := s.pool.Query(ctx, selectConnections+` WHERE connection_id = $1`, connectionID)
	if err != nil {
		return fanout.Connection{}, err
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[connectionRow])
	if pg.IsNotFoundError(err) {
		return fanout.Connection{}, ErrConnectionNotFound
	}
	if err != nil {
		return fanout.Connection{}, err
	}
	return row.connection().WithDefaults(), nil
}

func (s *PostgresStore) All(ctx context.Context) ([]fanout.Connection, error) {
	rows, err := s.pool.Query(ctx, selectConnections+` ORDER BY connection_id`)
	if err != nil {
		return nil, err
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[connectionRow])
	if err != nil {
		return nil, err
	}
	out := make([]fanout.Connection, len(records))
	for i, r := range records {
		out[i] = r.connection()
	}
	return normalize(out), nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
