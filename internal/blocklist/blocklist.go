// Package blocklist keeps track of stream keys operators have taken off air.
package blocklist

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/redis/go-redis/v9"
)

const redisKey = "radio_blocklist"

type Checker interface {
	IsBlocked(ctx context.Context, streamKey string) (bool, error)
}

type Adder interface {
	Block(ctx context.Context, streamKey string) error
	Unblock(ctx context.Context, streamKey string) error
}

type Blocklist interface {
	Checker
	Adder
	List(ctx context.Context) ([]string, error)
}

// Seed blocks every key in keys.
func Seed(ctx context.Context, a Adder, keys []string) error {
	for _, key := range keys {
		if err := a.Block(ctx, key); err != nil {
			return fmt.Errorf("failed to block %q: %w", key, err)
		}
	}
	return nil
}

type RedisBlocklist struct {
	client *redis.Client
}

func NewRedisBlocklist(client *redis.Client) *RedisBlocklist {
	return &RedisBlocklist{client: client}
}

func (b *RedisBlocklist) IsBlocked(ctx context.Context, streamKey string) (bool, error) {
	blocked, err := b.client.SIsMember(ctx, redisKey, streamKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check blocklist for stream %s: %w", streamKey, err)
	}
	return blocked, nil
}

func (b *RedisBlocklist) Block(ctx context.Context, streamKey string) error {
	if _, err := b.client.SAdd(ctx, redisKey, streamKey).Result(); err != nil {
		return fmt.Errorf("failed to add stream %s to blocklist: %w", streamKey, err)
	}
	return nil
}

func (b *RedisBlocklist) Unblock(ctx context.Context, streamKey string) error {
	if _, err := b.client.SRem(ctx, redisKey, streamKey).Result(); err != nil {
		return fmt.Errorf("failed to remove stream %s from blocklist: %w", streamKey, err)
	}
	return nil
}

// List returns the blocked keys in sorted order.
func (b *RedisBlocklist) List(ctx context.Context) ([]string, error) {
	keys, err := b.client.SMembers(ctx, redisKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list blocklist: %w", err)
	}
	slices.Sort(keys)
	return keys, nil
}

var _ Blocklist = (*RedisBlocklist)(nil)

type MemoryBlocklist struct {
	mu      sync.RWMutex
	blocked map[string]struct{}
}

func NewMemoryBlocklist(keys ...string) *MemoryBlocklist {
	b := &MemoryBlocklist{blocked: make(map[string]struct{}, len(keys))}
	for _, key := range keys {
		b.blocked[key] = struct{}{}
	}
	return b
}

func (b *MemoryBlocklist) IsBlocked(_ context.Context, streamKey string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.blocked[streamKey]
	return ok, nil
}

func (b *MemoryBlocklist) Block(_ context.Context, streamKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.blocked[streamKey] = struct{}{}
	return nil
}

func (b *MemoryBlocklist) Unblock(_ context.Context, streamKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blocked, streamKey)
	return nil
}

func (b *MemoryBlocklist) List(_ context.Context) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	keys := make([]string, 0, len(b.blocked))
	for key := range b.blocked {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys, nil
}

var _ Blocklist = (*MemoryBlocklist)(nil)
