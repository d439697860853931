package singer

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// Writer emits Singer messages, one JSON object per line.
// It is safe for concurrent use; lines are never interleaved.
type Writer struct {
	mu  sync.Mutex
	enc *json.Encoder
	now func() time.Time

	counts map[MessageType]int
}

// NewWriter creates a Writer on top of w (normally stdout).
func NewWriter(w io.Writer) *Writer {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Writer{
		enc:    enc,
		now:    time.Now,
		counts: make(map[MessageType]int),
	}
}

// WriteSchema emits a SCHEMA message.
func (w *Writer) WriteSchema(stream string, schema json.RawMessage, keyProperties, bookmarkProperties []string) error {
	if keyProperties == nil {
		keyProperties = []string{}
	}
	return w.write(TypeSchema, SchemaMessage{
		Type:               TypeSchema,
		Stream:             stream,
		Schema:             schema,
		KeyProperties:      keyProperties,
		BookmarkProperties: bookmarkProperties,
	})
}

// WriteRecord emits a RECORD message stamped with the extraction time.
func (w *Writer) WriteRecord(stream string, record map[string]any) error {
	return w.write(TypeRecord, RecordMessage{
		Type:          TypeRecord,
		Stream:        stream,
		Record:        record,
		TimeExtracted: formatTime(w.now()),
	})
}

// WriteState emits a STATE message.
func (w *Writer) WriteState(value any) error {
	return w.write(TypeState, StateMessage{
		Type:  TypeState,
		Value: value,
	})
}

// Count returns how many messages of a type were written so far.
func (w *Writer) Count(t MessageType) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.counts[t]
}

func (w *Writer) write(t MessageType, msg any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.enc.Encode(msg); err != nil {
		return fmt.Errorf("failed to write %s message: %w", t, err)
	}
	w.counts[t]++
	return nil
}
