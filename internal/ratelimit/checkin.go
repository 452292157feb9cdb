package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
)

const keyCheckinTerminal = "checkin:terminal:%s"

// CheckinLimiter throttles kiosk card swipes per terminal so a jammed reader
// cannot flood the backend. Disabled (always allow) when redis is absent.
type CheckinLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewCheckinLimiter(client *redis.Client) *CheckinLimiter {
	if client == nil {
		return nil
	}
	return &CheckinLimiter{
		bucket: NewTokenBucket(client),
		rate:   5,
		burst:  10,
	}
}

func (l *CheckinLimiter) Allow(ctx context.Context, terminalID string) (bool, error) {
	if l == nil || l.bucket == nil {
		return true, nil
	}
	key := fmt.Sprintf(keyCheckinTerminal, strings.TrimSpace(terminalID))
	return l.bucket.Allow(ctx, key, l.rate, l.burst)
}
