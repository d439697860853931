package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jonathan/tap-inventio/internal/schemas"
	"github.com/jonathan/tap-inventio/internal/streams"
	schemafiles "github.com/jonathan/tap-inventio/schemas"
	"gopkg.in/yaml.v3"
)

// EnvSource may be passed instead of a path to read settings from the environment.
const EnvSource = "ENV"

// EnvPrefix prefixes every setting read from the environment.
const EnvPrefix = "TAP_INVENTIO_"

type envKind int

const (
	envString envKind = iota
	envInt
	envBool
	envFloat
	envJSON
)

// envSettings lists the settings that can come from TAP_INVENTIO_* variables.
var envSettings = []struct {
	key  string
	kind envKind
}{
	{"endpoints", envJSON},
	{"user_agent", envString},
	{"limit", envInt},
	{"start_date", envString},
	{"base_url", envString},
	{"request_timeout", envString},
	{"max_retries", envInt},
	{"max_concurrency", envInt},
	{"requests_per_second", envFloat},
	{"state_backend", envString},
	{"state_path", envString},
	{"database_url", envString},
	{"state_id", envString},
	{"validate_records", envBool},
}

// LoadConfig loads configuration from one or more files, merged left to
// right. JSON and YAML are told apart by extension. The special path "ENV"
// applies TAP_INVENTIO_* environment variables after all files.
func LoadConfig(paths ...string) (*Config, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("config path is empty")
	}

	raw := map[string]any{}
	useEnv := false
	for _, path := range paths {
		if path == "" {
			return nil, fmt.Errorf("config path is empty")
		}
		if path == EnvSource {
			useEnv = true
			continue
		}
		doc, err := readFile(path)
		if err != nil {
			return nil, err
		}
		merge(raw, doc)
	}

	if useEnv {
		if err := applyEnv(raw, os.LookupEnv); err != nil {
			return nil, err
		}
	}

	return FromMap(raw)
}

// FromMap builds a Config from a decoded document, checking it against the
// config JSON schema first.
func FromMap(raw map[string]any) (*Config, error) {
	if err := normaliseEndpoints(raw); err != nil {
		return nil, err
	}

	schema, err := schemafiles.Read("config.schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to read config schema: %w", err)
	}
	if err := schemas.ValidateDocument(schema, raw); err != nil {
		return nil, fmt.Errorf("config does not match schema: %w", err)
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

func readFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var doc any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML %s: %w", path, err)
		}
		doc = stringKeys(doc)
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON %s: %w", path, err)
		}
	}

	if doc == nil {
		return map[string]any{}, nil
	}
	m, ok := doc.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("config file %s must contain an object", path)
	}
	return m, nil
}

// stringKeys converts YAML maps with non-string keys (numeric company
// names, for instance) into map[string]any.
func stringKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = stringKeys(val)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = stringKeys(val)
		}
		return out
	case []any:
		for i, val := range t {
			t[i] = stringKeys(val)
		}
		return t
	default:
		return v
	}
}

// merge copies src into dst. Endpoints merge per endpoint; everything else
// is replaced.
func merge(dst, src map[string]any) {
	for key, val := range src {
		if key == "endpoints" {
			dstEp, okDst := dst[key].(map[string]any)
			srcEp, okSrc := val.(map[string]any)
			if okDst && okSrc {
				for name, ep := range srcEp {
					dstEp[name] = ep
				}
				continue
			}
		}
		dst[key] = val
	}
}

// normaliseEndpoints converts the list form
//
//	[{"endpoint": "GLENTRY", "companies": {...}}]
//
// into the map form keyed by endpoint name.
func normaliseEndpoints(raw map[string]any) error {
	list, ok := raw["endpoints"].([]any)
	if !ok {
		return nil
	}

	out := make(map[string]any, len(list))
	counts := map[string]int{}
	for i, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			return fmt.Errorf("config error: endpoints[%d] must be an object", i)
		}
		name, _ := entry["endpoint"].(string)
		if name == "" {
			return fmt.Errorf("config error: endpoints[%d] has no 'endpoint' name", i)
		}
		if key := streams.NormaliseName(name); key != "" {
			counts[key]++
		}
		rest := make(map[string]any, len(entry))
		for k, v := range entry {
			if k != "endpoint" {
				rest[k] = v
			}
		}
		out[name] = rest
	}

	var dups []string
	for key, n := range counts {
		if n > 1 {
			dups = append(dups, duplicateMessage(key, n))
		}
	}
	if len(dups) > 0 {
		sort.Strings(dups)
		return fmt.Errorf("config validation failed: %s", strings.Join(dups, ";\n"))
	}

	raw["endpoints"] = out
	return nil
}

func applyEnv(raw map[string]any, lookup func(string) (string, bool)) error {
	for _, setting := range envSettings {
		name := EnvPrefix + strings.ToUpper(setting.key)
		val, ok := lookup(name)
		if !ok || val == "" {
			continue
		}
		switch setting.kind {
		case envString:
			raw[setting.key] = val
		case envInt:
			n, err := strconv.Atoi(val)
			if err != nil {
				return fmt.Errorf("config error: %s must be an integer: %w", name, err)
			}
			raw[setting.key] = n
		case envBool:
			b, err := strconv.ParseBool(val)
			if err != nil {
				return fmt.Errorf("config error: %s must be a boolean: %w", name, err)
			}
			raw[setting.key] = b
		case envFloat:
			f, err := strconv.ParseFloat(val, 64)
			if err != nil {
				return fmt.Errorf("config error: %s must be a number: %w", name, err)
			}
			raw[setting.key] = f
		case envJSON:
			var v any
			if err := json.Unmarshal([]byte(val), &v); err != nil {
				return fmt.Errorf("config error: %s must be JSON: %w", name, err)
			}
			raw[setting.key] = v
		}
	}
	return nil
}
