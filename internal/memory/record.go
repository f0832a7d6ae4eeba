// internal/memory/record.go
package memory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// timestampLayouts are tried in order when reading a record timestamp.
// Layouts without a zone are interpreted in local time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// encodeRecord marshals v, which must encode to a JSON object, and adds a
// "timestamp" member when it has none.
func encodeRecord(v interface{}, now time.Time) (json.RawMessage, error) {
	var raw []byte
	switch r := v.(type) {
	case json.RawMessage:
		raw = r
	case []byte:
		raw = r
	default:
		var err error
		if raw, err = json.Marshal(v); err != nil {
			return nil, fmt.Errorf("encode record: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(buf.Bytes(), &fields); err != nil {
		return nil, fmt.Errorf("record must be a JSON object: %w", err)
	}
	if _, ok := fields["timestamp"]; ok {
		return buf.Bytes(), nil
	}

	ts, _ := json.Marshal(now.Format(time.RFC3339Nano))
	out := bytes.TrimSuffix(buf.Bytes(), []byte("}"))
	if len(fields) > 0 {
		out = append(out, ',')
	}
	out = append(out, `"timestamp":`...)
	out = append(out, ts...)
	out = append(out, '}')
	return out, nil
}

// recordTimestamp extracts and parses the "timestamp" member of r.
func recordTimestamp(r json.RawMessage) (time.Time, bool) {
	var probe struct {
		Timestamp *string `json:"timestamp"`
	}
	if err := json.Unmarshal(r, &probe); err != nil || probe.Timestamp == nil {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, *probe.Timestamp, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
