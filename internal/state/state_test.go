package state

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Empty(t *testing.T) {
	for _, input := range []string{"", "  \n", "{}"} {
		s, err := Parse([]byte(input))
		require.NoError(t, err)
		assert.NotNil(t, s.Bookmarks)
		assert.Empty(t, s.Bookmarks)
		assert.Nil(t, s.CurrentlySyncing)
	}
}

func TestParse_Partitions(t *testing.T) {
	s, err := Parse([]byte(`{
		"bookmarks": {
			"GLEntry": {"partitions": [
				{"context": {"company_name": "ACME"}, "replication_key": "entry_no", "replication_key_value": 1200},
				{"context": {"company_name": "Globex"}, "replication_key": "posting_date", "replication_key_value": "2024-01-31"}
			]}
		},
		"currently_syncing": "GLEntry"
	}`))
	require.NoError(t, err)

	require.Contains(t, s.Bookmarks, "GLEntry")
	parts := s.Bookmarks["GLEntry"].Partitions
	require.Len(t, parts, 2)
	assert.Equal(t, Cursor("1200"), parts[0].ReplicationKeyValue)
	assert.Equal(t, Cursor("2024-01-31"), parts[1].ReplicationKeyValue)
	require.NotNil(t, s.CurrentlySyncing)
	assert.Equal(t, "GLEntry", *s.CurrentlySyncing)
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte(`{"bookmarks": [`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse state JSON")

	_, err = Parse([]byte(`{"bookmarks": {"x": {"partitions": [{"replication_key_value": true}]}}}`))
	require.Error(t, err)
}

func TestState_MarshalShape(t *testing.T) {
	tr := NewTracker(nil, "")
	tr.Advance("Customer", "ACME", "last_date_modified", "2024-02-01")

	data, err := json.Marshal(tr.Snapshot())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"bookmarks": {"Customer": {"partitions": [
			{"context": {"company_name": "ACME"}, "replication_key": "last_date_modified", "replication_key_value": "2024-02-01"}
		]}},
		"currently_syncing": null
	}`, string(data))
}

func TestClone_IsDeep(t *testing.T) {
	orig, err := Parse([]byte(`{"bookmarks": {"GLEntry": {"partitions": [
		{"context": {"company_name": "ACME"}, "replication_key": "entry_no", "replication_key_value": "5"}
	]}}, "currently_syncing": "GLEntry"}`))
	require.NoError(t, err)

	c := orig.Clone()
	c.Bookmarks["GLEntry"].Partitions[0].ReplicationKeyValue = "9"
	*c.CurrentlySyncing = "Customer"

	assert.Equal(t, Cursor("5"), orig.Bookmarks["GLEntry"].Partitions[0].ReplicationKeyValue)
	assert.Equal(t, "GLEntry", *orig.CurrentlySyncing)
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"9", "10", -1},
		{"10", "9", 1},
		{"10.0", "10", 0},
		{"2024-01-02", "2024-01-10", -1},
		{"2024-01-10T08:00:00", "2024-01-10", 1},
		{"abc", "abc", 0},
		{"9007199254740993", "9007199254740992", 1},
		{"123456789012345678901234567890", "123456789012345678901234567891", -1},
		{"-5", "3", -1},
		{"2.5", "10", -1},
		{"NaN", "1", 1},
		{"1", "NaN", -1},
		{"Inf", "5", 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Compare(tt.a, tt.b), "Compare(%q, %q)", tt.a, tt.b)
	}
}

func TestComparable(t *testing.T) {
	assert.True(t, Comparable("10", "9.5"))
	assert.True(t, Comparable("2024-01-01", "2023-12-31T10:00:00"))
	assert.False(t, Comparable("42", "2024-01-01"))
	assert.False(t, Comparable("NaN", "1"))
	assert.True(t, Comparable("NaN", "abc"))
}

func TestTracker_BookmarkFallsBackToStartDate(t *testing.T) {
	tr := NewTracker(nil, "2023-01-01")
	assert.Equal(t, "2023-01-01", tr.Bookmark("GLEntry", "ACME", "posting_date"))

	tr.Advance("GLEntry", "ACME", "posting_date", "2023-06-30")
	assert.Equal(t, "2023-06-30", tr.Bookmark("GLEntry", "ACME", "posting_date"))
	assert.Equal(t, "2023-01-01", tr.Bookmark("GLEntry", "Globex", "posting_date"))
}

func TestTracker_BookmarkIgnoresOtherKey(t *testing.T) {
	tr := NewTracker(nil, "")
	tr.Advance("GLEntry", "ACME", "entry_no", "100")

	assert.Equal(t, "100", tr.Bookmark("GLEntry", "ACME", "entry_no"))
	assert.Equal(t, "", tr.Bookmark("GLEntry", "ACME", "posting_date"))
}

func TestTracker_AdvanceOnlyForward(t *testing.T) {
	tr := NewTracker(nil, "")

	assert.True(t, tr.Advance("GLEntry", "ACME", "entry_no", "9"))
	assert.True(t, tr.Advance("GLEntry", "ACME", "entry_no", "10"))
	assert.False(t, tr.Advance("GLEntry", "ACME", "entry_no", "10"))
	assert.False(t, tr.Advance("GLEntry", "ACME", "entry_no", "2"))
	assert.False(t, tr.Advance("GLEntry", "ACME", "entry_no", ""))

	assert.Equal(t, "10", tr.Bookmark("GLEntry", "ACME", "entry_no"))
}

func TestTracker_DoesNotAliasInitialState(t *testing.T) {
	initial := New()
	tr := NewTracker(initial, "")
	tr.Advance("GLEntry", "ACME", "entry_no", "1")

	assert.Empty(t, initial.Bookmarks)
}

func TestTracker_CurrentlySyncing(t *testing.T) {
	tr := NewTracker(nil, "")

	tr.SetCurrentlySyncing("GLEntry")
	require.NotNil(t, tr.Snapshot().CurrentlySyncing)

	tr.SetCurrentlySyncing("Customer")
	tr.FinishStream("GLEntry")
	require.NotNil(t, tr.Snapshot().CurrentlySyncing, "finishing another stream keeps the marker")
	assert.Equal(t, "Customer", *tr.Snapshot().CurrentlySyncing)

	tr.FinishStream("Customer")
	assert.Nil(t, tr.Snapshot().CurrentlySyncing)

	tr.SetCurrentlySyncing("GLEntry")
	tr.SetCurrentlySyncing("")
	assert.Nil(t, tr.Snapshot().CurrentlySyncing)
}

func TestTracker_ConcurrentAdvance(t *testing.T) {
	tr := NewTracker(nil, "")

	var wg sync.WaitGroup
	for i := 1; i <= 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tr.Advance("GLEntry", "ACME", "entry_no", jsonNumber(i))
			_ = tr.Snapshot()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, "100", tr.Bookmark("GLEntry", "ACME", "entry_no"))
}

func jsonNumber(i int) string {
	b, _ := json.Marshal(i)
	return string(b)
}
