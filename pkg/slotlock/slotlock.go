// Package slotlock provides a short-lived distributed single-writer lock on
// a (host, start, end) slot, backed by Redis. The lock is an optimization
// guarding the booking critical section; the transactional conflict check
// remains the hard guarantee, so an unreachable lock store degrades to
// lockless operation instead of failing the booking.
package slotlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const DefaultTTL = 30 * time.Second

// ErrSlotLocked is returned when another writer already holds the slot.
var ErrSlotLocked = errors.New("slot lock is held by another writer")

// releaseScript deletes the key only when the stored value equals the
// caller's token, so an expired-and-reacquired lock is never released by
// the previous holder.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

type Service struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Service{client: client, ttl: ttl}
}

func key(hostID string, start, end time.Time) string {
	return fmt.Sprintf("slot:%s:%s:%s", hostID, start.UTC().Format(time.RFC3339), end.UTC().Format(time.RFC3339))
}

// Acquire takes the slot lock with set-if-absent semantics and returns an
// opaque owner token. A held lock returns ErrSlotLocked. A lock-store
// failure returns an empty token and nil error: the caller proceeds
// without a lock.
func (s *Service) Acquire(ctx context.Context, hostID string, start, end time.Time) (string, error) {
	if s == nil || s.client == nil {
		return "", nil
	}

	token := uuid.NewString()
	ok, err := s.client.SetNX(ctx, key(hostID, start, end), token, s.ttl).Result()
	if err != nil {
		logrus.Warnf("slot lock store unavailable, proceeding without lock: %v", err)
		return "", nil
	}
	if !ok {
		return "", ErrSlotLocked
	}
	return token, nil
}

// Release removes the lock via compare-and-delete. An empty token is a
// no-op. Release failures are logged, not returned: the TTL bounds the
// damage of a leaked lock.
func (s *Service) Release(ctx context.Context, hostID string, start, end time.Time, token string) {
	if s == nil || s.client == nil || token == "" {
		return
	}

	if err := s.client.Eval(ctx, releaseScript, []string{key(hostID, start, end)}, token).Err(); err != nil {
		logrus.Warnf("failed to release slot lock for host %s: %v", hostID, err)
	}
}
