package connections

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/notifyhub/pkg/fanout"
	"github.com/dmitrymomot/notifyhub/pkg/logger"
)

// Hash fields of a connection record.
const (
	fieldConnectionID = "connectionId"
	fieldUserID       = "userId"
	fieldRoles        = "roles"
	fieldTeams        = "teams"
	fieldDepartment   = "department"
	fieldConnectedAt  = "connectedAt"
	fieldLastSeen     = "lastSeen"
	fieldTopics       = "subscribedTopics"
)

// hsetIfExists updates hash fields only when the key is present.
var hsetIfExists = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return 0
end
redis.call("HSET", KEYS[1], ARGV[1], ARGV[2])
return 1
`)

// RedisStore keeps each connection in a hash and indexes IDs in a set.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisLogger sets the logger used to report unreadable records.
func WithRedisLogger(l *slog.Logger) RedisOption {
	return func(s *RedisStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewRedisStore creates a store whose keys start with prefix.
func NewRedisStore(client redis.UniversalClient, prefix string, opts ...RedisOption) *RedisStore {
	if prefix == "" {
		prefix = "notifyhub"
	}
	s := &RedisStore{client: client, prefix: prefix, logger: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) key(connectionID string) string {
	return s.prefix + ":conn:" + connectionID
}

func (s *RedisStore) indexKey() string {
	return s.prefix + ":conns"
}

func (s *RedisStore) Put(ctx context.Context, conn fanout.Connection) error {
	if conn.ConnectionID == "" {
		return ErrEmptyConnectionID
	}
	fields, err := encodeHash(conn)
	if err != nil {
		return err
	}

	key := s.key(conn.ConnectionID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fields)
		pipe.SAdd(ctx, s.indexKey(), conn.ConnectionID)
		return nil
	})
	return err
}

func (s *RedisStore) Remove(ctx context.Context, connectionID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key(connectionID))
		pipe.SRem(ctx, s.indexKey(), connectionID)
		return nil
	})
	return err
}

func (s *RedisStore) Touch(ctx context.Context, connectionID string, at time.Time) error {
	return s.setField(ctx, connectionID, fieldLastSeen, strconv.FormatInt(at.Unix(), 10))
}

func (s *RedisStore) SetTopics(ctx context.Context, connectionID string, topics []string) error {
	raw, err := marshalList(topics)
	if err != nil {
		return err
	}
	return s.setField(ctx, connectionID, fieldTopics, raw)
}

func (s *RedisStore) setField(ctx context.Context, connectionID, field, value string) error {
	n, err := hsetIfExists.Run(ctx, s.client, []string{s.key(connectionID)}, field, value).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConnectionNotFound
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, connectionID string) (fanout.Connection, error) {
	fields, err := s.client.HGetAll(ctx, s.key(connectionID)).Result()
	if err != nil {
		return fanout.Connection{}, err
	}
	if len(fields) == 0 {
		return fanout.Connection{}, ErrConnectionNotFound
	}
	conn, err := decodeHash(fields)
	if err != nil {
		return fanout.Connection{}, err
	}
	return conn.WithDefaults(), nil
}

func (s *RedisStore) All(ctx context.Context) ([]fanout.Connection, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []fanout.Connection{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	if _, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.key(id))
		}
		return nil
	}); err != nil {
		return nil, err
	}

	hashes := make([]map[string]string, len(cmds))
	for i, cmd := range cmds {
		hashes[i] = cmd.Val()
	}
	return normalize(s.decodeAll(ctx, ids, hashes)), nil
}

// decodeAll turns HGETALL replies into connections. Unreadable records are logged and
// skipped so one bad hash does not hide the others; their index entries stay in place.
func (s *RedisStore) decodeAll(ctx context.Context, ids []string, hashes []map[string]string) []fanout.Connection {
	out := make([]fanout.Connection, 0, len(hashes))
	for i, fields := range hashes {
		if len(fields) == 0 {
			// Removed between SMEMBERS and HGETALL.
			continue
		}
		conn, err := decodeHash(fields)
		if err != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "Skipping unreadable connection record",
				logger.ConnectionID(ids[i]),
				logger.Error(err),
			)
			continue
		}
		out = append(out, conn)
	}
	return out
}

func encodeHash(c fanout.Connection) (map[string]any, error) {
	roles, err := marshalList(c.Roles)
	if err != nil {
		return nil, err
	}
	teams, err := marshalList(c.Teams)
	if err != nil {
		return nil, err
	}
	topics, err := marshalList(c.SubscribedTopics)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		fieldConnectionID: c.ConnectionID,
		fieldUserID:       c.UserID,
		fieldRoles:        roles,
		fieldTeams:        teams,
		fieldDepartment:   c.Department,
		fieldConnectedAt:  strconv.FormatInt(c.ConnectedAt, 10),
		fieldLastSeen:     strconv.FormatInt(c.LastSeen, 10),
		fieldTopics:       topics,
	}, nil
}

func decodeHash(fields map[string]string) (fanout.Connection, error) {
	c := fanout.Connection{
		ConnectionID: fields[fieldConnectionID],
		UserID:       fields[fieldUserID],
		Department:   fields[fieldDepartment],
	}
	if c.ConnectionID == "" {
		return fanout.Connection{}, ErrCorruptRecord
	}

	var err error
	if c.Roles, err = unmarshalList(fields[fieldRoles]); err != nil {
		return fanout.Connection{}, err
	}
	if c.Teams, err = unmarshalList(fields[fieldTeams]); err != nil {
		return fanout.Connection{}, err
	}
	if c.SubscribedTopics, err = unmarshalList(fields[fieldTopics]); err != nil {
		return fanout.Connection{}, err
	}
	if c.ConnectedAt, err = parseUnix(fields[fieldConnectedAt]); err != nil {
		return fanout.Connection{}, err
	}
	if c.LastSeen, err = parseUnix(fields[fieldLastSeen]); err != nil {
		return fanout.Connection{}, err
	}
	return c, nil
}

func marshalList(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", errors.Join(ErrCorruptRecord, err)
	}
	return string(b), nil
}

func unmarshalList(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var v []string
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, errors.Join(ErrCorruptRecord, err)
	}
	return v, nil
}

func parseUnix(raw string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.Join(ErrCorruptRecord, err)
	}
	return n, nil
}
