// Package watchlist holds the list model and the pure logic of the bot:
// comparing two snapshots and turning the difference into postable text.
package watchlist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// UnknownSource groups records the upstream list publishes without a source.
const UnknownSource = "unknown"

// ErrMalformed is returned when a blob is neither a snapshot nor a list response.
var ErrMalformed = errors.New("malformed list data")

// Entry is one listed party. Name is the identity key; Source only groups.
type Entry struct {
	Name   string `json:"name"`
	Source string `json:"source"`
}

// Snapshot is the list as observed at one point in time.
type Snapshot struct {
	FetchedAt time.Time `json:"fetched_at"`
	Entries   []Entry   `json:"entries"`
}

func (s Snapshot) Len() int { return len(s.Entries) }

// Names returns the entry names in list order, duplicates included.
func (s Snapshot) Names() []string {
	out := make([]string, 0, len(s.Entries))
	for _, e := range s.Entries {
		out = append(out, e.Name)
	}
	return out
}

// Encode serializes the snapshot for a store.
func (s Snapshot) Encode() ([]byte, error) {
	if s.Entries == nil {
		s.Entries = []Entry{}
	}
	return json.Marshal(s)
}

// DecodeSnapshot parses a stored blob. Besides the native format it accepts
// the upstream response shapes (a bare array of records or an object with a
// "results" array), so state written by older deployments that persisted the
// raw API response still loads.
func DecodeSnapshot(b []byte) (Snapshot, error) {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return Snapshot{}, fmt.Errorf("%w: empty", ErrMalformed)
	}

	if b[0] == '[' {
		entries, err := decodeRecords(b)
		if err != nil {
			return Snapshot{}, err
		}
		return Snapshot{Entries: entries}, nil
	}

	var shape struct {
		FetchedAt time.Time       `json:"fetched_at"`
		Entries   json.RawMessage `json:"entries"`
		Results   json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(b, &shape); err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	switch {
	case len(shape.Entries) > 0:
		entries, err := decodeRecords(shape.Entries)
		if err != nil {
			return Snapshot{}, err
		}
		return Snapshot{FetchedAt: shape.FetchedAt, Entries: entries}, nil
	case len(shape.Results) > 0:
		entries, err := decodeRecords(shape.Results)
		if err != nil {
			return Snapshot{}, err
		}
		return Snapshot{FetchedAt: shape.FetchedAt, Entries: entries}, nil
	default:
		return Snapshot{}, fmt.Errorf("%w: no entries or results array", ErrMalformed)
	}
}

// ParseResponse decodes an upstream list response body (array or {"results": [...]}).
func ParseResponse(b []byte) ([]Entry, error) {
	s, err := DecodeSnapshot(b)
	if err != nil {
		return nil, err
	}
	return s.Entries, nil
}

// record is the subset of an upstream record this bot cares about.
// Upstream records carry many more fields; they are ignored.
type record struct {
	Name   *string `json:"name"`
	Source string  `json:"source"`
}

func decodeRecords(raw json.RawMessage) ([]Entry, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return []Entry{}, nil
	}
	var recs []record
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	out := make([]Entry, 0, len(recs))
	for i, r := range recs {
		if r.Name == nil {
			return nil, fmt.Errorf("%w: record %d has no name", ErrMalformed, i)
		}
		src := strings.TrimSpace(r.Source)
		if src == "" {
			src = UnknownSource
		}
		out = append(out, Entry{Name: *r.Name, Source: src})
	}
	return out, nil
}
