// Package state keeps the replication checkpoints of a sync: per stream and
// per company bookmarks, in the layout the Singer SDK uses, plus the stores
// that persist them between runs.
package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// State is the document emitted in STATE messages.
type State struct {
	Bookmarks        map[string]*StreamState `json:"bookmarks"`
	CurrentlySyncing *string                 `json:"currently_syncing"`
}

// StreamState holds the bookmarks of every partition of a stream.
type StreamState struct {
	Partitions []*Partition `json:"partitions"`
}

// Partition is the checkpoint of one company of a stream.
type Partition struct {
	Context             PartitionContext `json:"context"`
	ReplicationKey      string           `json:"replication_key,omitempty"`
	ReplicationKeyValue Cursor           `json:"replication_key_value,omitempty"`
}

// PartitionContext identifies a partition.
type PartitionContext struct {
	CompanyName string `json:"company_name"`
}

// Cursor is a replication key value. Inventio sends every value as text;
// numbers found in hand-written state files are accepted and kept as text.
type Cursor string

// UnmarshalJSON accepts a JSON string, number or null.
func (c *Cursor) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Cursor(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("replication_key_value must be a string or number: %w", err)
	}
	*c = Cursor(n.String())
	return nil
}

// New returns an empty state.
func New() *State {
	return &State{Bookmarks: make(map[string]*StreamState)}
}

// Parse decodes a state document. Empty input yields an empty state.
func Parse(data []byte) (*State, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return New(), nil
	}
	s := New()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse state JSON: %w", err)
	}
	if s.Bookmarks == nil {
		s.Bookmarks = make(map[string]*StreamState)
	}
	return s, nil
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	out := New()
	if s.CurrentlySyncing != nil {
		v := *s.CurrentlySyncing
		out.CurrentlySyncing = &v
	}
	for stream, ss := range s.Bookmarks {
		if ss == nil {
			continue
		}
		copied := &StreamState{Partitions: make([]*Partition, 0, len(ss.Partitions))}
		for _, p := range ss.Partitions {
			pc := *p
			copied.Partitions = append(copied.Partitions, &pc)
		}
		out.Bookmarks[stream] = copied
	}
	return out
}

// partition finds the partition of a company, creating it when create is set.
func (s *State) partition(stream, company string, create bool) *Partition {
	ss, ok := s.Bookmarks[stream]
	if !ok || ss == nil {
		if !create {
			return nil
		}
		ss = &StreamState{}
		s.Bookmarks[stream] = ss
	}
	for _, p := range ss.Partitions {
		if p.Context.CompanyName == company {
			return p
		}
	}
	if !create {
		return nil
	}
	p := &Partition{Context: PartitionContext{CompanyName: company}}
	ss.Partitions = append(ss.Partitions, p)
	return p
}

// Compare orders two cursor values. Integers compare exactly at any size,
// other finite numbers compare as floats, and everything else compares
// lexically (ISO dates and timestamps sort correctly as text).
func Compare(a, b string) int {
	if ia, ok := parseInt(a); ok {
		if ib, ok := parseInt(b); ok {
			return ia.Cmp(ib)
		}
	}
	if fa, ok := parseNumber(a); ok {
		if fb, ok := parseNumber(b); ok {
			return fa.Cmp(fb)
		}
	}
	return strings.Compare(a, b)
}

// Comparable reports whether a and b are of the same kind: both numbers or
// both non-numeric. A date floor says nothing about an entry number.
func Comparable(a, b string) bool {
	_, numA := parseNumber(a)
	_, numB := parseNumber(b)
	return numA == numB
}

func parseInt(s string) (*big.Int, bool) {
	return new(big.Int).SetString(s, 10)
}

func parseNumber(s string) (*big.Float, bool) {
	if i, ok := parseInt(s); ok {
		return new(big.Float).SetInt(i), true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	return big.NewFloat(f), true
}
