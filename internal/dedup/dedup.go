// Package dedup guards against two workers handling the same inbound message
// at the same time. The processing log remains the durable record.
package dedup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL bounds how long a crashed worker can hold a claim
	DefaultTTL = 15 * time.Minute

	keyPrefix = "rfp-relay:claim:"
)

// Claimer hands out exclusive, expiring claims on message ids
type Claimer interface {
	// Claim reports true when the caller now owns id
	Claim(ctx context.Context, id string) (bool, error)
	Release(ctx context.Context, id string) error
}

// RedisClaimer shares claims across processes with SET NX
type RedisClaimer struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisClaimer(rdb *redis.Client, ttl time.Duration) *RedisClaimer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisClaimer{rdb: rdb, ttl: ttl}
}

func (c *RedisClaimer) Claim(ctx context.Context, id string) (bool, error) {
	set, err := c.rdb.SetNX(ctx, keyPrefix+id, 1, c.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup SETNX: %w", err)
	}
	return set, nil
}

func (c *RedisClaimer) Release(ctx context.Context, id string) error {
	if err := c.rdb.Del(ctx, keyPrefix+id).Err(); err != nil {
		return fmt.Errorf("dedup DEL: %w", err)
	}
	return nil
}

// MemoryClaimer keeps claims in process
type MemoryClaimer struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	claims map[string]time.Time
}

func NewMemoryClaimer(ttl time.Duration) *MemoryClaimer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryClaimer{ttl: ttl, now: time.Now, claims: make(map[string]time.Time)}
}

func (c *MemoryClaimer) Claim(_ context.Context, id string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if expires, ok := c.claims[id]; ok && now.Before(expires) {
		return false, nil
	}
	c.claims[id] = now.Add(c.ttl)
	return true, nil
}

func (c *MemoryClaimer) Release(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.claims, id)
	return nil
}
