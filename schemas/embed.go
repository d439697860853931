// Package schemas holds the JSON Schema documents shipped with the tap:
// one per stream plus the config and state schemas.
package schemas

import "embed"

// FS contains every *.schema.json file in this directory.
//
//go:embed *.schema.json
var FS embed.FS

// Read returns the raw bytes of the named schema file.
func Read(name string) ([]byte, error) {
	return FS.ReadFile(name)
}
