package tap

import (
	"fmt"
	"slices"

	"github.com/jonathan/tap-inventio/internal/singer"
	"github.com/jonathan/tap-inventio/internal/streams"
)

// Discover builds the catalog of every stream the tap knows. A stream is
// selected by default when the config has an endpoint entry for it.
func (t *Tap) Discover() (*singer.Catalog, error) {
	catalog := &singer.Catalog{Streams: []singer.CatalogEntry{}}

	for _, def := range streams.All() {
		schema, err := def.Schema()
		if err != nil {
			return nil, err
		}
		props, err := def.Properties()
		if err != nil {
			return nil, err
		}

		ep, configured := t.cfg.EndpointFor(def.Name)
		method := singer.FullTable
		streamMeta := map[string]any{
			"inclusion":            "available",
			"selected":             configured,
			"selected-by-default":  configured,
			"table-key-properties": def.PrimaryKeys,
		}
		if ep.ReplicationKey != "" {
			method = singer.Incremental
			streamMeta["valid-replication-keys"] = []string{ep.ReplicationKey}
		}
		streamMeta["forced-replication-method"] = method

		metadata := []singer.Metadata{{Breadcrumb: []string{}, Metadata: streamMeta}}
		for _, prop := range props {
			inclusion := "available"
			if slices.Contains(def.PrimaryKeys, prop) || prop == ep.ReplicationKey {
				inclusion = "automatic"
			}
			metadata = append(metadata, singer.Metadata{
				Breadcrumb: []string{"properties", prop},
				Metadata:   map[string]any{"inclusion": inclusion},
			})
		}

		catalog.Streams = append(catalog.Streams, singer.CatalogEntry{
			TapStreamID:       def.Name,
			Stream:            def.Name,
			Schema:            schema,
			KeyProperties:     def.PrimaryKeys,
			ReplicationKey:    ep.ReplicationKey,
			ReplicationMethod: method,
			Metadata:          metadata,
		})
	}

	if len(catalog.Streams) == 0 {
		return nil, fmt.Errorf("no streams defined")
	}
	return catalog, nil
}
