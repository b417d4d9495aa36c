package connections

import (
	"context"
	"time"

	"github.com/dmitrymomot/notifyhub/pkg/fanout"
)

// Store is the registry of live connections.
// Every backend satisfies fanout.ConnectionSource and fanout.Remover.
type Store interface {
	// Put inserts or replaces the record.
	Put(ctx context.Context, conn fanout.Connection) error
	// Remove deletes the record. Removing an unknown ID is not an error.
	Remove(ctx context.Context, connectionID string) error
	// Touch sets lastSeen. Returns ErrConnectionNotFound for unknown IDs.
	Touch(ctx context.Context, connectionID string, at time.Time) error
	// SetTopics replaces the subscription set. Returns ErrConnectionNotFound for unknown IDs.
	SetTopics(ctx context.Context, connectionID string, topics []string) error
	// Get returns one record or ErrConnectionNotFound.
	Get(ctx context.Context, connectionID string) (fanout.Connection, error)
	// All returns a best-effort snapshot of every record, normalized with WithDefaults.
	All(ctx context.Context) ([]fanout.Connection, error)
}

// Backend names accepted by Config.Backend.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendDynamoDB = "dynamodb"
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
)

// Config selects and names the connection registry.
type Config struct {
	Backend         string `env:"CONNECTIONS_BACKEND" envDefault:"memory"`                 // Backend is one of memory, redis, dynamodb, mongo, postgres.
	Table           string `env:"CONNECTIONS_TABLE" envDefault:"notification-connections"` // Table is the DynamoDB table name.
	MongoCollection string `env:"CONNECTIONS_MONGO_COLLECTION" envDefault:"connections"`   // MongoCollection is the MongoDB collection name.
}

// Validate reports an unknown backend.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendMemory, BackendRedis, BackendDynamoDB, BackendMongo, BackendPostgres:
		return nil
	default:
		return ErrUnknownBackend
	}
}

// normalize fills absent attributes on every record of a snapshot.
func normalize(conns []fanout.Connection) []fanout.Connection {
	for i := range conns {
		conns[i] = conns[i].WithDefaults()
	}
	return conns
}
