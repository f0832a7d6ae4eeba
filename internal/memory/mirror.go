// internal/memory/mirror.go
package memory

import (
	"context"
	"encoding/json"
	"time"

	"loyalty-agent/internal/common/database"
)

// Mirror receives a copy of every short-term write so other replicas can
// read recent results.
type Mirror interface {
	Put(ctx context.Context, key string, record json.RawMessage) error
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	Clear(ctx context.Context) (int, error)
}

// RedisMirror stores records under prefix+key with a TTL.
type RedisMirror struct {
	client *database.RedisClient
	prefix string
	ttl    time.Duration
}

func NewRedisMirror(client *database.RedisClient, prefix string, ttl time.Duration) *RedisMirror {
	return &RedisMirror{client: client, prefix: prefix, ttl: ttl}
}

func (m *RedisMirror) Put(ctx context.Context, key string, record json.RawMessage) error {
	return m.client.SetJSON(ctx, m.prefix+key, record, m.ttl)
}

func (m *RedisMirror) Get(ctx context.Context, key string) (json.RawMessage, bool, error) {
	var record json.RawMessage
	found, err := m.client.GetJSON(ctx, m.prefix+key, &record)
	if err != nil || !found {
		return nil, false, err
	}
	return record, true, nil
}

// Clear removes every mirrored record and returns how many were removed.
func (m *RedisMirror) Clear(ctx context.Context) (int, error) {
	keys, err := m.client.ScanKeys(ctx, m.prefix)
	if err != nil || len(keys) == 0 {
		return 0, err
	}
	if err := m.client.Del(ctx, keys...); err != nil {
		return 0, err
	}
	return len(keys), nil
}
