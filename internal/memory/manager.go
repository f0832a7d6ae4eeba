// Package memory keeps recent analysis results in a bounded LRU and the full
// per-customer history in a JSON document on disk.
package memory

import (
	"context"
	"encoding/json"
	"path/filepath"
	"time"

	"loyalty-agent/internal/common/config"
	"loyalty-agent/internal/common/logger"
	"loyalty-agent/internal/common/metrics"
)

// Manager is the facade over both tiers. Disk and mirror failures are logged
// and counted here and never reach callers.
type Manager struct {
	short  *ShortTerm
	long   *LongTerm
	mirror Mirror
	logger logger.Logger
	now    func() time.Time
}

// Stats is the combined view of both tiers.
type Stats struct {
	ShortTerm ShortTermStats `json:"short_term"`
	LongTerm  LongTermStats  `json:"long_term"`
	Timestamp string         `json:"timestamp"`
}

type Option func(*Manager)

// WithMirror copies every short-term write to m.
func WithMirror(m Mirror) Option {
	return func(mgr *Manager) { mgr.mirror = m }
}

func WithClock(now func() time.Time) Option {
	return func(mgr *Manager) { mgr.now = now }
}

// NewManager opens the long-term file at cfg.Dir/cfg.LongTermFile. A corrupt
// or unreadable file is logged and replaced by an empty history.
func NewManager(cfg config.MemoryConfig, log logger.Logger, opts ...Option) *Manager {
	m := &Manager{
		short:  NewShortTerm(cfg.ShortTermCapacity),
		logger: log.WithFields(map[string]interface{}{"component": "memory"}),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	path := filepath.Join(cfg.Dir, cfg.LongTermFile)
	lt, err := OpenLongTerm(path)
	if err != nil {
		m.logger.Error("failed to load long-term memory, starting empty", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
	}
	m.long = lt

	stats := lt.Stats()
	m.logger.Info("memory initialized", map[string]interface{}{
		"capacity":  m.short.capacity,
		"path":      path,
		"customers": stats.TotalCustomers,
		"entries":   stats.TotalEntries,
	})
	return m
}

// Remember stores record in both tiers.
func (m *Manager) Remember(ctx context.Context, key string, record interface{}) error {
	raw, err := encodeRecord(record, m.now())
	if err != nil {
		return err
	}
	m.putShortTerm(ctx, key, raw)
	m.appendLongTerm(key, raw)
	return nil
}

// StoreShortTerm caches record as the latest result for key. The only error
// is a record that does not encode to a JSON object.
func (m *Manager) StoreShortTerm(ctx context.Context, key string, record interface{}) error {
	raw, err := encodeRecord(record, m.now())
	if err != nil {
		return err
	}
	m.putShortTerm(ctx, key, raw)
	return nil
}

// StoreLongTerm appends record to key's durable history.
func (m *Manager) StoreLongTerm(key string, record interface{}) error {
	raw, err := encodeRecord(record, m.now())
	if err != nil {
		return err
	}
	m.appendLongTerm(key, raw)
	return nil
}

func (m *Manager) putShortTerm(ctx context.Context, key string, raw json.RawMessage) {
	m.cacheLocal(key, raw)

	if m.mirror == nil {
		return
	}
	if err := m.mirror.Put(ctx, key, raw); err != nil {
		metrics.PersistFailures.WithLabelValues("redis").Inc()
		m.logger.Warn("failed to mirror short-term entry", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
	}
}

// cacheLocal writes to the in-process tier only.
func (m *Manager) cacheLocal(key string, raw json.RawMessage) {
	if evicted, ok := m.short.Put(key, raw); ok {
		metrics.CacheEvictions.Inc()
		m.logger.Debug("short-term entry evicted", map[string]interface{}{"key": evicted})
	}
	metrics.CacheEntries.Set(float64(m.short.Len()))
}

func (m *Manager) appendLongTerm(key string, raw json.RawMessage) {
	if err := m.long.Append(key, raw); err != nil {
		m.persistFailed("append", err, map[string]interface{}{"key": key})
	}
}

func (m *Manager) persistFailed(op string, err error, fields map[string]interface{}) {
	metrics.PersistFailures.WithLabelValues("file").Inc()
	if fields == nil {
		fields = map[string]interface{}{}
	}
	fields["operation"] = op
	fields["path"] = m.long.Path()
	fields["error"] = err.Error()
	m.logger.Error("failed to persist long-term memory", fields)
}

// GetShortTerm returns the cached record for key. On a local miss the mirror,
// if any, is consulted and a hit there is cached locally.
func (m *Manager) GetShortTerm(ctx context.Context, key string) (json.RawMessage, bool) {
	if raw, ok := m.short.Get(key); ok {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return raw, true
	}

	if m.mirror != nil {
		raw, found, err := m.mirror.Get(ctx, key)
		if err != nil {
			m.logger.Warn("failed to read mirrored entry", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
		if found {
			metrics.CacheLookups.WithLabelValues("mirror_hit").Inc()
			m.cacheLocal(key, raw)
			return raw, true
		}
	}

	metrics.CacheLookups.WithLabelValues("miss").Inc()
	return nil, false
}

// AllShortTerm returns a snapshot of the cache.
func (m *Manager) AllShortTerm() map[string]json.RawMessage {
	return m.short.Snapshot()
}

// ClearShortTerm empties the cache and, when present, the mirror.
func (m *Manager) ClearShortTerm(ctx context.Context) {
	m.short.Clear()
	metrics.CacheEntries.Set(0)

	fields := map[string]interface{}{}
	if m.mirror != nil {
		removed, err := m.mirror.Clear(ctx)
		if err != nil {
			metrics.PersistFailures.WithLabelValues("redis").Inc()
			m.logger.Warn("failed to clear mirrored entries", map[string]interface{}{"error": err.Error()})
		}
		fields["mirrored"] = removed
	}
	m.logger.Info("short-term memory cleared", fields)
}

// History returns key's durable records oldest first, limited to the most
// recent limit when limit is positive.
func (m *Manager) History(key string, limit int) []json.RawMessage {
	return m.long.History(key, limit)
}

func (m *Manager) ClearLongTerm(key string) {
	if err := m.long.Clear(key); err != nil {
		m.persistFailed("clear", err, map[string]interface{}{"key": key})
		return
	}
	m.logger.Info("long-term memory cleared", map[string]interface{}{"key": key})
}

func (m *Manager) ClearAllLongTerm() {
	if err := m.long.ClearAll(); err != nil {
		m.persistFailed("clear_all", err, nil)
		return
	}
	m.logger.Info("long-term memory cleared", nil)
}

// PersistAll appends every cached record to the durable history, oldest
// first, and returns how many were written.
func (m *Manager) PersistAll() int {
	keys, values := m.short.oldestFirst()
	if len(keys) == 0 {
		return 0
	}

	if err := m.long.AppendMany(values, keys); err != nil {
		m.persistFailed("persist_all", err, map[string]interface{}{"entries": len(keys)})
		return 0
	}

	m.logger.Info("short-term memory persisted", map[string]interface{}{"entries": len(keys)})
	return len(keys)
}

// PruneOlderThan removes durable records older than days and returns the
// number removed.
func (m *Manager) PruneOlderThan(days int) int {
	cutoff := m.now().Add(-time.Duration(days) * 24 * time.Hour)

	removed, err := m.long.PruneOlderThan(cutoff)
	if err != nil {
		m.persistFailed("prune", err, map[string]interface{}{"days": days})
	}
	if removed > 0 {
		m.logger.Info("old long-term entries removed", map[string]interface{}{
			"removed": removed,
			"days":    days,
		})
	}
	return removed
}

func (m *Manager) Stats() Stats {
	return Stats{
		ShortTerm: m.short.Stats(),
		LongTerm:  m.long.Stats(),
		Timestamp: m.now().Format(time.RFC3339),
	}
}
