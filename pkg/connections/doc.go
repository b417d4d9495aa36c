// Package connections is the registry of live real-time connections.
//
// Store is implemented by five backends sharing one record shape (fanout.Connection):
//
//   - MemoryStore: process-local map, for a single gateway instance and tests.
//   - RedisStore: one hash per connection plus an ID index set.
//   - DynamoStore: a table keyed by connectionId, read with a paginated scan.
//   - MongoStore: one document per connection keyed by _id.
//   - PostgresStore: the connections table, created by MigratePostgres.
//
// All returns a best-effort snapshot: records removed mid-scan are skipped and
// every record comes back with default attributes filled in. Every Store is a
// fanout.ConnectionSource and a fanout.Remover.
package connections
