// Package extract pulls record objects out of decoded Inventio documents
// using JSONPath expressions.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/PaesslerAG/jsonpath"
)

// PathError reports an expression that could not be compiled.
type PathError struct {
	Path  string
	Cause error
}

func (e *PathError) Error() string {
	return fmt.Sprintf("invalid records path %q: %v", e.Path, e.Cause)
}

func (e *PathError) Unwrap() error {
	return e.Cause
}

// Records evaluates path against doc and returns the matched objects.
//
// The decoder does not produce single-element lists, so a trailing "[*]" is
// evaluated against its parent: a list yields its items, a lone object yields
// itself. A path that does not resolve yields no records. Non-object matches
// are dropped.
func Records(doc any, path string) ([]map[string]any, error) {
	expr := strings.TrimSpace(path)
	if expr == "" {
		return nil, &PathError{Path: path, Cause: fmt.Errorf("empty expression")}
	}

	if base, ok := strings.CutSuffix(expr, "[*]"); ok && base != "" {
		expr = base
	}

	eval, err := jsonpath.New(quoteKeys(expr))
	if err != nil {
		return nil, &PathError{Path: path, Cause: err}
	}

	val, err := eval(context.Background(), doc)
	if err != nil {
		// unknown keys and index misses mean "nothing here", not a broken path
		return nil, nil
	}

	return objects(val), nil
}

// quoteKeys rewrites dotted keys that are not plain identifiers into bracket
// form, since Inventio element names contain hyphens:
//
//	$.dimension-entries.dimension-entry -> $['dimension-entries']['dimension-entry']
//
// Expressions using filters, recursive descent or quoting are returned as is.
func quoteKeys(expr string) string {
	rest, ok := strings.CutPrefix(expr, "$.")
	if !ok || strings.ContainsAny(rest, `'"()?@`) {
		return expr
	}

	var sb strings.Builder
	sb.WriteString("$")
	for _, part := range strings.Split(rest, ".") {
		if part == "" {
			return expr
		}
		name, suffix := part, ""
		if i := strings.IndexByte(part, '['); i >= 0 {
			name, suffix = part[:i], part[i:]
		}
		switch {
		case name == "*" || isIdent(name):
			sb.WriteString("." + name)
		case name == "":
			// bare index such as "$.[0]"
			return expr
		default:
			sb.WriteString("['" + name + "']")
		}
		sb.WriteString(suffix)
	}
	return sb.String()
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func objects(val any) []map[string]any {
	switch t := val.(type) {
	case nil:
		return nil
	case map[string]any:
		return []map[string]any{t}
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, item := range t {
			switch v := item.(type) {
			case map[string]any:
				out = append(out, v)
			case []any:
				out = append(out, objects(v)...)
			}
		}
		return out
	default:
		return nil
	}
}

// PostProcess labels a record with its company and makes keys column friendly:
// every "-" in a key becomes "_". The input map is not modified.
func PostProcess(record map[string]any, companyName string) map[string]any {
	out := make(map[string]any, len(record)+1)
	for key, val := range record {
		out[strings.ReplaceAll(key, "-", "_")] = val
	}
	out["company_name"] = companyName
	return out
}
