// internal/memory/longterm.go
package memory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// LongTerm is the durable per-customer history. The whole document is
// rewritten on every mutation. Customer keys keep first-insertion order so a
// load followed by a save reproduces the file byte for byte.
type LongTerm struct {
	mu      sync.Mutex
	path    string
	order   []string
	entries map[string][]json.RawMessage
}

// LongTermStats summarizes the durable history.
type LongTermStats struct {
	TotalCustomers        int     `json:"total_customers"`
	TotalEntries          int     `json:"total_entries"`
	AvgEntriesPerCustomer float64 `json:"avg_entries_per_customer"`
	FileSizeKB            float64 `json:"file_size_kb"`
	FilePath              string  `json:"file_path"`
}

// OpenLongTerm loads path. A missing file yields an empty history; an
// unreadable or corrupt one is returned as loadErr alongside an empty,
// usable history.
func OpenLongTerm(path string) (lt *LongTerm, loadErr error) {
	lt = &LongTerm{path: path, entries: make(map[string][]json.RawMessage)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return lt, nil
	}
	if err != nil {
		return lt, fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return lt, nil
	}

	order, entries, err := decodeDocument(data)
	if err != nil {
		return lt, fmt.Errorf("decode %s: %w", path, err)
	}
	lt.order, lt.entries = order, entries
	return lt, nil
}

// decodeDocument walks the top-level object token by token to keep key order.
func decodeDocument(data []byte) ([]string, map[string][]json.RawMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("expected object, got %v", tok)
	}

	var order []string
	entries := make(map[string][]json.RawMessage)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, nil, err
		}
		key := tok.(string)

		var records []json.RawMessage
		if err := dec.Decode(&records); err != nil {
			return nil, nil, fmt.Errorf("customer %s: %w", key, err)
		}
		for i, r := range records {
			var buf bytes.Buffer
			if err := json.Compact(&buf, r); err != nil {
				return nil, nil, err
			}
			records[i] = buf.Bytes()
		}

		if _, seen := entries[key]; !seen {
			order = append(order, key)
		}
		entries[key] = records
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, err
	}
	return order, entries, nil
}

// Append adds record to key's history and flushes.
func (lt *LongTerm) Append(key string, record json.RawMessage) error {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	if _, ok := lt.entries[key]; !ok {
		lt.order = append(lt.order, key)
	}
	lt.entries[key] = append(lt.entries[key], record)
	return lt.flushLocked()
}

// AppendMany adds several records and flushes once.
func (lt *LongTerm) AppendMany(records map[string]json.RawMessage, keys []string) error {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	for _, key := range keys {
		if _, ok := lt.entries[key]; !ok {
			lt.order = append(lt.order, key)
		}
		lt.entries[key] = append(lt.entries[key], records[key])
	}
	return lt.flushLocked()
}

// History returns key's records oldest first. A positive limit keeps only
// the most recent limit records.
func (lt *LongTerm) History(key string, limit int) []json.RawMessage {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	records := lt.entries[key]
	if limit > 0 && limit < len(records) {
		records = records[len(records)-limit:]
	}
	out := make([]json.RawMessage, len(records))
	copy(out, records)
	return out
}

// Clear removes key and flushes. Clearing an unknown key is a no-op.
func (lt *LongTerm) Clear(key string) error {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	if _, ok := lt.entries[key]; !ok {
		return nil
	}
	lt.deleteLocked(key)
	return lt.flushLocked()
}

func (lt *LongTerm) ClearAll() error {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	lt.order = nil
	lt.entries = make(map[string][]json.RawMessage)
	return lt.flushLocked()
}

// PruneOlderThan drops records whose timestamp is before cutoff. Records
// without a parsable timestamp are kept. Customers left empty are removed.
// The file is rewritten only when something was removed.
func (lt *LongTerm) PruneOlderThan(cutoff time.Time) (int, error) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	removed := 0
	for _, key := range append([]string(nil), lt.order...) {
		kept := lt.entries[key][:0]
		for _, r := range lt.entries[key] {
			if ts, ok := recordTimestamp(r); ok && ts.Before(cutoff) {
				removed++
				continue
			}
			kept = append(kept, r)
		}
		if len(kept) == 0 {
			lt.deleteLocked(key)
		} else {
			lt.entries[key] = kept
		}
	}

	if removed == 0 {
		return 0, nil
	}
	return removed, lt.flushLocked()
}

func (lt *LongTerm) Stats() LongTermStats {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	total := 0
	for _, records := range lt.entries {
		total += len(records)
	}

	var avg float64
	if len(lt.order) > 0 {
		avg = round2(float64(total) / float64(len(lt.order)))
	}

	var sizeKB float64
	if info, err := os.Stat(lt.path); err == nil {
		sizeKB = round2(float64(info.Size()) / 1024)
	}

	return LongTermStats{
		TotalCustomers:        len(lt.order),
		TotalEntries:          total,
		AvgEntriesPerCustomer: avg,
		FileSizeKB:            sizeKB,
		FilePath:              lt.path,
	}
}

func (lt *LongTerm) Path() string { return lt.path }

func (lt *LongTerm) deleteLocked(key string) {
	delete(lt.entries, key)
	for i, k := range lt.order {
		if k == key {
			lt.order = append(lt.order[:i], lt.order[i+1:]...)
			break
		}
	}
}

// flushLocked writes the document to a temp file in the same directory and
// renames it over the target.
func (lt *LongTerm) flushLocked() error {
	data, err := lt.encodeLocked()
	if err != nil {
		return err
	}

	dir := filepath.Dir(lt.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(lt.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), lt.path); err != nil {
		return fmt.Errorf("rename to %s: %w", lt.path, err)
	}
	return nil
}

func (lt *LongTerm) encodeLocked() ([]byte, error) {
	var compact bytes.Buffer
	compact.WriteByte('{')
	for i, key := range lt.order {
		if i > 0 {
			compact.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		compact.Write(k)
		compact.WriteString(":[")
		for j, r := range lt.entries[key] {
			if j > 0 {
				compact.WriteByte(',')
			}
			compact.Write(r)
		}
		compact.WriteByte(']')
	}
	compact.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", "  "); err != nil {
		return nil, fmt.Errorf("encode long-term memory: %w", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}
