package state

import "sync"

// Tracker guards the in-flight state of a sync. Streams running concurrently
// share one Tracker.
type Tracker struct {
	mu        sync.Mutex
	state     *State
	startDate string
}

// NewTracker starts from initial (may be nil). startDate is the bookmark
// floor used for partitions that have no bookmark yet.
func NewTracker(initial *State, startDate string) *Tracker {
	if initial == nil {
		initial = New()
	}
	return &Tracker{state: initial.Clone(), startDate: startDate}
}

// Bookmark returns the replication value records must exceed for the
// partition, or "" when everything should be extracted.
func (t *Tracker) Bookmark(stream, company, key string) string {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.state.partition(stream, company, false)
	if p != nil && p.ReplicationKeyValue != "" && (p.ReplicationKey == "" || p.ReplicationKey == key) {
		return string(p.ReplicationKeyValue)
	}
	return t.startDate
}

// Advance moves the partition bookmark forward to value. It never moves a
// bookmark backwards and reports whether anything changed.
func (t *Tracker) Advance(stream, company, key, value string) bool {
	if value == "" {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.state.partition(stream, company, true)
	if p.ReplicationKey == key && p.ReplicationKeyValue != "" && Compare(value, string(p.ReplicationKeyValue)) <= 0 {
		return false
	}
	p.ReplicationKey = key
	p.ReplicationKeyValue = Cursor(value)
	return true
}

// SetCurrentlySyncing records the stream being synced; "" clears it.
func (t *Tracker) SetCurrentlySyncing(stream string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if stream == "" {
		t.state.CurrentlySyncing = nil
		return
	}
	t.state.CurrentlySyncing = &stream
}

// FinishStream clears currently_syncing if it still points at stream.
func (t *Tracker) FinishStream(stream string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state.CurrentlySyncing != nil && *t.state.CurrentlySyncing == stream {
		t.state.CurrentlySyncing = nil
	}
}

// Snapshot returns a copy that is safe to serialise while the sync continues.
func (t *Tracker) Snapshot() *State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Clone()
}
