package connections

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/notifyhub/pkg/fanout"
)

// MemoryStore keeps connections in process memory.
// Suitable for a single gateway instance and for tests.
type MemoryStore struct {
	mu    sync.RWMutex
	conns map[string]fanout.Connection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{conns: make(map[string]fanout.Connection)}
}

func (s *MemoryStore) Put(_ context.Context, conn fanout.Connection) error {
	if conn.ConnectionID == "" {
		return ErrEmptyConnectionID
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn.ConnectionID] = clone(conn)
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, connectionID)
	return nil
}

func (s *MemoryStore) Touch(_ context.Context, connectionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conns[connectionID]
	if !ok {
		return ErrConnectionNotFound
	}
	c.LastSeen = at.Unix()
	s.conns[connectionID] = c
	return nil
}

func (s *MemoryStore) SetTopics(_ context.Context, connectionID string, topics []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conns[connectionID]
	if !ok {
		return ErrConnectionNotFound
	}
	c.SubscribedTopics = slices.Clone(topics)
	s.conns[connectionID] = c
	return nil
}

func (s *MemoryStore) Get(_ context.Context, connectionID string) (fanout.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.conns[connectionID]
	if !ok {
		return fanout.Connection{}, ErrConnectionNotFound
	}
	return clone(c).WithDefaults(), nil
}

func (s *MemoryStore) All(_ context.Context) ([]fanout.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]fanout.Connection, 0, len(s.conns))
	for _, id := range slices.Sorted(maps.Keys(s.conns)) {
		out = append(out, clone(s.conns[id]))
	}
	return normalize(out), nil
}

// clone detaches the slices so callers cannot mutate stored records.
func clone(c fanout.Connection) fanout.Connection {
	c.Roles = slices.Clone(c.Roles)
	c.Teams = slices.Clone(c.Teams)
	c.SubscribedTopics = slices.Clone(c.SubscribedTopics)
	return c
}
