package store

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// SendGuard records per-(recipient, calendar day) delivery markers in
// Redis. Keys are naturally superseded by the next day's key and the
// TTL sweeps them out afterwards.
type SendGuard struct {
	client goredis.UniversalClient
	ttl    time.Duration
}

const defaultGuardTTL = 48 * time.Hour

func NewSendGuard(client goredis.UniversalClient, ttl time.Duration) *SendGuard {
	if ttl <= 0 {
		ttl = defaultGuardTTL
	}
	return &SendGuard{client: client, ttl: ttl}
}

func guardKey(recipientID, day string) string {
	return fmt.Sprintf("sendguard:%s:%s", day, recipientID)
}

// Sent reports whether the recipient was already dispatched to on the
// given day.
func (g *SendGuard) Sent(ctx context.Context, recipientID, day string) (bool, error) {
	n, err := g.client.Exists(ctx, guardKey(recipientID, day)).Result()
	if err != nil {
		return false, fmt.Errorf("check send guard: %w", err)
	}
	return n > 0, nil
}

// Mark sets the guard after a successful send. Best-effort at the call
// site: a failed mark risks one duplicate send on the next run, which
// is preferred over silently dropping a recipient.
func (g *SendGuard) Mark(ctx context.Context, recipientID, day string) error {
	if err := g.client.SetNX(ctx, guardKey(recipientID, day), "1", g.ttl).Err(); err != nil {
		return fmt.Errorf("mark send guard: %w", err)
	}
	return nil
}
