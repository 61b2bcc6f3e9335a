package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SessionStore registers live session ids so that logout can revoke a cookie
// before it expires.
type SessionStore interface {
	Create(ctx context.Context, email string, ttl time.Duration) (string, error)
	Get(ctx context.Context, sessionID string) (string, error)
	Delete(ctx context.Context, sessionID string) error
}

// RedisSessionStore wraps Redis for session management.
type RedisSessionStore struct {
	rdb *redis.Client
}

func NewRedisSessionStore(rdb *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb}
}

// Create stores a new session mapping sessionID -> email.
func (s *RedisSessionStore) Create(ctx context.Context, email string, ttl time.Duration) (string, error) {
	sid := uuid.New().String()
	err := s.rdb.Set(ctx, "session:"+sid, email, ttl).Err()
	return sid, err
}

// Get returns the email for a session, or "" if not found / expired.
func (s *RedisSessionStore) Get(ctx context.Context, sessionID string) (string, error) {
	val, err := s.rdb.Get(ctx, "session:"+sessionID).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

// Delete removes a session.
func (s *RedisSessionStore) Delete(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, "session:"+sessionID).Err()
}

// Clock abstracts time retrieval so session expiry is deterministic in tests.
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

type memorySession struct {
	email   string
	expires time.Time
}

// MemorySessionStore keeps sessions in process memory. Sessions do not survive
// a restart and are not shared between replicas.
type MemorySessionStore struct {
	mu       sync.Mutex
	clock    Clock
	sessions map[string]memorySession
}

func NewMemorySessionStore(clock Clock) *MemorySessionStore {
	if clock == nil {
		clock = RealClock{}
	}
	return &MemorySessionStore{clock: clock, sessions: make(map[string]memorySession)}
}

func (s *MemorySessionStore) Create(_ context.Context, email string, ttl time.Duration) (string, error) {
	sid := uuid.New().String()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sid] = memorySession{email: email, expires: s.clock.Now().Add(ttl)}
	return sid, nil
}

func (s *MemorySessionStore) Get(_ context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return "", nil
	}
	if !s.clock.Now().Before(sess.expires) {
		delete(s.sessions, sessionID)
		return "", nil
	}
	return sess.email, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}
