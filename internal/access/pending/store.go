// Package pending holds the short-lived card assignment window: after the
// front desk picks a customer, the next unknown card tapped at a kiosk
// binds to them until the window expires.
package pending

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/memberline/memberline/internal/clock"
	"github.com/redis/go-redis/v9"
)

// Assignment is the payload of an open window. The token is handed to the
// caller that opened it and is required to cancel it.
type Assignment struct {
	CustomerID string `json:"customer_id"`
	Token      string `json:"token"`
}

// Store tracks at most one open assignment per tenant.
type Store interface {
	// Open replaces any previous window for the tenant.
	Open(ctx context.Context, tenantID string, a Assignment, ttl time.Duration) error
	// Claim consumes the open window. ok is false when no window is open.
	Claim(ctx context.Context, tenantID string) (a Assignment, ok bool, err error)
	// Cancel discards the open window when the token matches the one it
	// was opened with. ok is false when no matching window is open.
	Cancel(ctx context.Context, tenantID, token string) (ok bool, err error)
}

// cancelScript deletes the window only while the stored payload still
// carries the caller's token, mirroring the guarded release in
// ratelimit.Locker.
const cancelScript = `
local v = redis.call("GET", KEYS[1])
if v and string.find(v, ARGV[1], 1, true) then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// New returns a redis-backed store, or a process-local one when redis is
// not configured. The local store is fine for single-node deployments and
// tests; multi-node kiosk fleets need redis so any node can claim.
func New(client *redis.Client, clk clock.Clock) Store {
	if client == nil {
		return newMemoryStore(clk)
	}
	return &redisStore{
		client: client,
		script: redis.NewScript(cancelScript),
	}
}

func key(tenantID string) string {
	return fmt.Sprintf("access:pending:%s", tenantID)
}

type redisStore struct {
	client *redis.Client
	script *redis.Script
}

func (s *redisStore) Open(ctx context.Context, tenantID string, a Assignment, ttl time.Duration) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key(tenantID), payload, ttl).Err()
}

func (s *redisStore) Claim(ctx context.Context, tenantID string) (Assignment, bool, error) {
	payload, err := s.client.GetDel(ctx, key(tenantID)).Result()
	if err == redis.Nil {
		return Assignment{}, false, nil
	}
	if err != nil {
		return Assignment{}, false, err
	}

	var a Assignment
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return Assignment{}, false, err
	}
	return a, true, nil
}

func (s *redisStore) Cancel(ctx context.Context, tenantID, token string) (bool, error) {
	deleted, err := s.script.Run(ctx, s.client, []string{key(tenantID)}, token).Int()
	if err != nil {
		return false, err
	}
	return deleted > 0, nil
}

type memoryEntry struct {
	assignment Assignment
	expiresAt  time.Time
}

type memoryStore struct {
	clk     clock.Clock
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func newMemoryStore(clk clock.Clock) *memoryStore {
	return &memoryStore{
		clk:     clk,
		entries: make(map[string]memoryEntry),
	}
}

func (s *memoryStore) Open(ctx context.Context, tenantID string, a Assignment, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[tenantID] = memoryEntry{
		assignment: a,
		expiresAt:  s.clk.Now().Add(ttl),
	}
	return nil
}

func (s *memoryStore) Claim(ctx context.Context, tenantID string) (Assignment, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[tenantID]
	if !ok {
		return Assignment{}, false, nil
	}
	delete(s.entries, tenantID)
	if s.clk.Now().After(entry.expiresAt) {
		return Assignment{}, false, nil
	}
	return entry.assignment, true, nil
}

func (s *memoryStore) Cancel(ctx context.Context, tenantID, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[tenantID]
	if !ok || entry.assignment.Token != token {
		return false, nil
	}
	delete(s.entries, tenantID)
	if s.clk.Now().After(entry.expiresAt) {
		return false, nil
	}
	return true, nil
}
