package singer

import (
	"encoding/json"
	"fmt"
	"os"
)

// Replication methods.
const (
	FullTable   = "FULL_TABLE"
	Incremental = "INCREMENTAL"
)

// Catalog lists the streams a tap can produce and which of them are selected.
type Catalog struct {
	Streams []CatalogEntry `json:"streams"`
}

// CatalogEntry describes one stream of the catalog.
type CatalogEntry struct {
	TapStreamID       string          `json:"tap_stream_id"`
	Stream            string          `json:"stream"`
	Schema            json.RawMessage `json:"schema"`
	KeyProperties     []string        `json:"key_properties"`
	ReplicationKey    string          `json:"replication_key,omitempty"`
	ReplicationMethod string          `json:"replication_method,omitempty"`
	Metadata          []Metadata      `json:"metadata"`
}

// Metadata attaches settings to the stream (empty breadcrumb) or to a property.
type Metadata struct {
	Breadcrumb []string       `json:"breadcrumb"`
	Metadata   map[string]any `json:"metadata"`
}

// StreamMetadata returns the stream-level metadata map, or nil.
func (e *CatalogEntry) StreamMetadata() map[string]any {
	for _, md := range e.Metadata {
		if len(md.Breadcrumb) == 0 {
			return md.Metadata
		}
	}
	return nil
}

// Selected reports whether the stream should be synced: an explicit
// "selected" wins, otherwise "selected-by-default" decides.
func (e *CatalogEntry) Selected() bool {
	md := e.StreamMetadata()
	if md == nil {
		return false
	}
	if v, ok := md["selected"].(bool); ok {
		return v
	}
	if v, ok := md["selected-by-default"].(bool); ok {
		return v
	}
	return false
}

// Lookup finds an entry by tap_stream_id.
func (c *Catalog) Lookup(id string) (*CatalogEntry, bool) {
	for i := range c.Streams {
		if c.Streams[i].TapStreamID == id {
			return &c.Streams[i], true
		}
	}
	return nil, false
}

// Selected returns the selected entries in catalog order.
func (c *Catalog) Selected() []*CatalogEntry {
	var out []*CatalogEntry
	for i := range c.Streams {
		if c.Streams[i].Selected() {
			out = append(out, &c.Streams[i])
		}
	}
	return out
}

// LoadCatalog reads a catalog JSON file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var catalog Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
	}
	for i, entry := range catalog.Streams {
		if entry.TapStreamID == "" {
			return nil, fmt.Errorf("catalog stream %d has no tap_stream_id", i)
		}
	}
	return &catalog, nil
}
