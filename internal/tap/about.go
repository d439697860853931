package tap

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jonathan/tap-inventio/internal/streams"
	schemafiles "github.com/jonathan/tap-inventio/schemas"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

// About describes the tap for --about.
type About struct {
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Version      string    `json:"version"`
	Capabilities []string  `json:"capabilities"`
	Streams      []string  `json:"streams"`
	Settings     []Setting `json:"settings"`
}

// Setting is one config key.
type Setting struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Required    bool   `json:"required"`
	Secret      bool   `json:"secret"`
	Description string `json:"description,omitempty"`
}

// secretSettings hold tokens or credentials.
var secretSettings = map[string]bool{
	"endpoints":    true,
	"database_url": true,
}

// AboutInfo lists the tap metadata and the settings from the config schema.
func AboutInfo() (*About, error) {
	raw, err := schemafiles.Read("config.schema.json")
	if err != nil {
		return nil, err
	}
	var doc struct {
		Required   []string `json:"required"`
		Properties map[string]struct {
			Type        any    `json:"type"`
			Description string `json:"description"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse config schema: %w", err)
	}

	required := map[string]bool{}
	for _, name := range doc.Required {
		required[name] = true
	}

	about := &About{
		Name:         Name,
		Description:  "Singer tap extracting data from the Inventio smartapi",
		Version:      Version,
		Capabilities: []string{"catalog", "discover", "state", "about"},
	}
	for _, def := range streams.All() {
		about.Streams = append(about.Streams, def.Name)
	}
	for name, prop := range doc.Properties {
		about.Settings = append(about.Settings, Setting{
			Name:        name,
			Type:        typeName(prop.Type),
			Required:    required[name],
			Secret:      secretSettings[name],
			Description: prop.Description,
		})
	}
	sort.Slice(about.Settings, func(i, j int) bool { return about.Settings[i].Name < about.Settings[j].Name })
	return about, nil
}

func typeName(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []any:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, "|")
	default:
		return ""
	}
}
