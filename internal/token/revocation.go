package token

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RevocationSet records refresh tokens that must no longer be honoured.
// Implementations are safe for concurrent use.
type RevocationSet interface {
	// Add marks token as revoked. until is the token's own expiry; entries
	// may be forgotten after it.
	Add(ctx context.Context, token string, until time.Time) error
	Contains(ctx context.Context, token string) (bool, error)
}

func fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// MemorySet is a process-local revocation set. Entries live as long as the
// process.
type MemorySet struct {
	mu      sync.RWMutex
	entries map[string]struct{}
}

func NewMemorySet() *MemorySet {
	return &MemorySet{entries: make(map[string]struct{})}
}

func (m *MemorySet) Add(_ context.Context, token string, _ time.Time) error {
	m.mu.Lock()
	m.entries[fingerprint(token)] = struct{}{}
	m.mu.Unlock()
	return nil
}

func (m *MemorySet) Contains(_ context.Context, token string) (bool, error) {
	m.mu.RLock()
	_, ok := m.entries[fingerprint(token)]
	m.mu.RUnlock()
	return ok, nil
}

// Len reports the number of revoked tokens.
func (m *MemorySet) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// RedisSet stores revocations as keys that expire together with the token,
// so revocations survive restarts and are shared between instances.
type RedisSet struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisSet returns a set storing keys under prefix ("revoked" when
// empty).
func NewRedisSet(rdb *redis.Client, prefix string) *RedisSet {
	if prefix == "" {
		prefix = "revoked"
	}
	return &RedisSet{rdb: rdb, prefix: prefix, now: time.Now}
}

func (r *RedisSet) key(token string) string { return r.prefix + ":" + fingerprint(token) }

func (r *RedisSet) Add(ctx context.Context, token string, until time.Time) error {
	ttl := until.Sub(r.now())
	if ttl < time.Second {
		ttl = time.Second
	}
	return r.rdb.Set(ctx, r.key(token), 1, ttl).Err()
}

func (r *RedisSet) Contains(ctx context.Context, token string) (bool, error) {
	n, err := r.rdb.Exists(ctx, r.key(token)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
