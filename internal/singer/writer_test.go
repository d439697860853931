package singer

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, buf *bytes.Buffer) []Message {
	t.Helper()
	var out []Message
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var msg Message
		require.NoError(t, json.Unmarshal(sc.Bytes(), &msg), "line: %s", sc.Text())
		out = append(out, msg)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestWriter_Schema(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	err := w.WriteSchema("Customer", json.RawMessage(`{"type":"object"}`), []string{"company_name", "no"}, nil)
	require.NoError(t, err)

	assert.JSONEq(t,
		`{"type":"SCHEMA","stream":"Customer","schema":{"type":"object"},"key_properties":["company_name","no"]}`,
		buf.String())
}

func TestWriter_SchemaNilKeys(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.WriteSchema("GLEntry", json.RawMessage(`{}`), nil, []string{"last_modified"}))
	assert.Contains(t, buf.String(), `"key_properties":[]`)
	assert.Contains(t, buf.String(), `"bookmark_properties":["last_modified"]`)
}

func TestWriter_Record(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600)) }

	require.NoError(t, w.WriteRecord("Customer", map[string]any{"no": "1", "name": "A&B <x>"}))

	assert.JSONEq(t,
		`{"type":"RECORD","stream":"Customer","record":{"no":"1","name":"A&B <x>"},"time_extracted":"2024-03-01T11:00:00Z"}`,
		buf.String())
	assert.Contains(t, buf.String(), "A&B <x>", "html characters should not be escaped")
	assert.Equal(t, 1, w.Count(TypeRecord))
}

func TestWriter_State(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, w.WriteState(map[string]any{"bookmarks": map[string]any{}}))

	msgs := readLines(t, &buf)
	require.Len(t, msgs, 1)
	assert.Equal(t, TypeState, msgs[0].Type)
	assert.JSONEq(t, `{"bookmarks":{}}`, string(msgs[0].Value))
}

func TestWriter_UnencodableValue(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	err := w.WriteRecord("Customer", map[string]any{"bad": make(chan int)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RECORD")
	assert.Equal(t, 0, w.Count(TypeRecord))
}

func TestWriter_ConcurrentLinesStayIntact(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = w.WriteRecord(fmt.Sprintf("s%d", i), map[string]any{"n": j})
			}
		}(i)
	}
	wg.Wait()

	msgs := readLines(t, &buf)
	assert.Len(t, msgs, 400)
	assert.Equal(t, 400, w.Count(TypeRecord))
}
