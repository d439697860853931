// Package schemainfer derives a flat JSON schema from sample records.
// Inventio records are flat objects of strings, so only top-level keys are
// inspected, and a key seen only as null is assumed to hold strings.
package schemainfer

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
)

// maxLineSize bounds a single JSON line read from input.
const maxLineSize = 16 * 1024 * 1024

// Schema is the inferred document.
type Schema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

// Property lists the JSON types observed for a key.
type Property struct {
	Type []string `json:"type"`
}

// MissingRequiredError is returned when a required key never appeared.
type MissingRequiredError struct {
	Key  string
	Keys []string
}

func (e *MissingRequiredError) Error() string {
	return fmt.Sprintf("required property %q was not found in object keys %v", e.Key, e.Keys)
}

// Inferrer accumulates observed types per key.
type Inferrer struct {
	types map[string]map[string]bool
	count int
}

// New creates an empty Inferrer.
func New() *Inferrer {
	return &Inferrer{types: map[string]map[string]bool{}}
}

// Add records the types of every top-level value of record.
func (in *Inferrer) Add(record map[string]any) {
	in.count++
	for key, value := range record {
		seen, ok := in.types[key]
		if !ok {
			seen = map[string]bool{"null": true}
			in.types[key] = seen
		}
		seen[typeOf(value)] = true
	}
}

// Count is the number of records added.
func (in *Inferrer) Count() int {
	return in.count
}

// Schema builds the schema. When required is non-empty, company_name is
// required too and every required key must have been seen.
func (in *Inferrer) Schema(required []string) (*Schema, error) {
	schema := &Schema{Type: "object", Properties: make(map[string]Property, len(in.types))}
	for key, seen := range in.types {
		schema.Properties[key] = Property{Type: typeList(seen)}
	}

	if len(required) == 0 {
		return schema, nil
	}

	set := map[string]bool{"company_name": true}
	for _, key := range required {
		set[key] = true
	}
	for key := range set {
		schema.Required = append(schema.Required, key)
	}
	sort.Strings(schema.Required)

	for _, key := range schema.Required {
		if _, ok := in.types[key]; !ok {
			return nil, &MissingRequiredError{Key: key, Keys: in.keys()}
		}
	}
	return schema, nil
}

func (in *Inferrer) keys() []string {
	keys := make([]string, 0, len(in.types))
	for key := range in.types {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func typeOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case map[string]any:
		return "object"
	case []any:
		return "array"
	case bool:
		return "boolean"
	case float64, json.Number, int, int64:
		return "number"
	default:
		return "string"
	}
}

// typeList orders types with null first; a lone null becomes null|string.
func typeList(seen map[string]bool) []string {
	var out []string
	for t := range seen {
		if t != "null" {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	if len(out) == 0 {
		out = []string{"string"}
	}
	if seen["null"] {
		out = append([]string{"null"}, out...)
	}
	return out
}

// ReadRecords feeds every JSON line of r into the Inferrer. With singerStyle
// only the record of RECORD messages is used. Lines that are not JSON
// objects are logged and skipped.
func (in *Inferrer) ReadRecords(r io.Reader, singerStyle bool, logger *slog.Logger) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)

	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		record, ok := parseLine(line, singerStyle, logger)
		if ok && len(record) > 0 {
			in.Add(record)
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("failed to read records: %w", err)
	}
	return nil
}

func parseLine(line []byte, singerStyle bool, logger *slog.Logger) (map[string]any, bool) {
	var v any
	if err := json.Unmarshal(line, &v); err != nil {
		logger.Warn("failed to parse line", "line", string(line), "error", err)
		return nil, false
	}
	obj, ok := v.(map[string]any)
	if !ok {
		logger.Warn("row doesn't look like a record", "line", string(line))
		return nil, false
	}
	if !singerStyle {
		return obj, true
	}
	if obj["type"] != "RECORD" {
		return nil, false
	}
	record, ok := obj["record"].(map[string]any)
	return record, ok
}
