// Package singer implements the Singer message stream: SCHEMA, RECORD and
// STATE messages written as newline-delimited JSON, plus the catalog format.
package singer

import (
	"encoding/json"
	"time"
)

// MessageType is the "type" field of a Singer message.
type MessageType string

// Message types emitted by the tap.
const (
	TypeSchema MessageType = "SCHEMA"
	TypeRecord MessageType = "RECORD"
	TypeState  MessageType = "STATE"
)

// SchemaMessage announces the shape of the records that follow for a stream.
type SchemaMessage struct {
	Type               MessageType     `json:"type"`
	Stream             string          `json:"stream"`
	Schema             json.RawMessage `json:"schema"`
	KeyProperties      []string        `json:"key_properties"`
	BookmarkProperties []string        `json:"bookmark_properties,omitempty"`
}

// RecordMessage carries one extracted row.
type RecordMessage struct {
	Type          MessageType    `json:"type"`
	Stream        string         `json:"stream"`
	Record        map[string]any `json:"record"`
	TimeExtracted string         `json:"time_extracted,omitempty"`
}

// StateMessage carries a replication checkpoint.
type StateMessage struct {
	Type  MessageType `json:"type"`
	Value any         `json:"value"`
}

// Message is the union used when reading a Singer stream back.
type Message struct {
	Type   MessageType     `json:"type"`
	Stream string          `json:"stream,omitempty"`
	Record map[string]any  `json:"record,omitempty"`
	Schema json.RawMessage `json:"schema,omitempty"`
	Value  json.RawMessage `json:"value,omitempty"`
}

// formatTime renders timestamps the way Singer targets expect them.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
