// Package streams defines the Inventio endpoints the tap can extract and the
// naming rules that map configuration keys onto them.
package streams

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/tap-inventio/schemas"
)

// Definition describes one extractable Inventio endpoint.
type Definition struct {
	// Name is the Inventio type without the -GET suffix, e.g. "GLEntry".
	Name string
	// RecordsPath is a JSONPath into the decoded XML document.
	RecordsPath string
	// PrimaryKeys identify a record; company_name is always part of them.
	PrimaryKeys []string
}

var registry = []Definition{
	{
		Name:        "GLEntry",
		RecordsPath: "$.entries.entry[*]",
		PrimaryKeys: []string{"company_name", "entry_no"},
	},
	{
		Name:        "DimensionSetEntry",
		RecordsPath: "$.dimension-entries.dimension-entry[*]",
		PrimaryKeys: []string{"company_name", "entry_no", "code"},
	},
	{
		Name:        "Customer",
		RecordsPath: "$.customers.customer[*]",
		PrimaryKeys: []string{"company_name", "no"},
	},
}

// All returns every stream definition sorted by name.
func All() []Definition {
	out := make([]Definition, len(registry))
	copy(out, registry)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup finds a stream by any spelling that normalises to its name.
func Lookup(name string) (Definition, bool) {
	key := NormaliseName(name)
	if key == "" {
		return Definition{}, false
	}
	for _, def := range registry {
		if NormaliseName(def.Name) == key {
			return def, true
		}
	}
	return Definition{}, false
}

// EndpointType is the value of the "type" query parameter for this stream.
func (d Definition) EndpointType() string {
	return d.Name + "-GET"
}

// SchemaFile is the embedded schema file name.
func (d Definition) SchemaFile() string {
	return d.Name + ".schema.json"
}

// Schema returns the raw JSON schema of the stream.
func (d Definition) Schema() (json.RawMessage, error) {
	data, err := schemas.Read(d.SchemaFile())
	if err != nil {
		return nil, fmt.Errorf("schema for stream %s: %w", d.Name, err)
	}
	return json.RawMessage(data), nil
}

// Properties lists the top-level property names declared by the schema, sorted.
func (d Definition) Properties() ([]string, error) {
	raw, err := d.Schema()
	if err != nil {
		return nil, err
	}
	var doc struct {
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse schema for stream %s: %w", d.Name, err)
	}
	names := make([]string, 0, len(doc.Properties))
	for name := range doc.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// NormaliseName maps endpoint spellings onto one comparable key.
//
//	"GLEntry-GET" -> "GLENTRY"
//	"ITEM-POST"   -> "" (post endpoints are not extracted)
func NormaliseName(name string) string {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if strings.HasSuffix(upper, "-POST") {
		return ""
	}
	return strings.TrimSuffix(upper, "-GET")
}
