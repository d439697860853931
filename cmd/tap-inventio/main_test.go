package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonathan/tap-inventio/internal/singer"
	"github.com/jonathan/tap-inventio/internal/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	stdout string
	stderr string
	err    error
}

func execute(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.ExecuteContext(context.Background())
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func inventioServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") == "bad" {
			_, _ = w.Write([]byte(`<error>Invalid token</error>`))
			return
		}
		switch r.URL.Query().Get("type") {
		case "GLEntry-GET":
			_, _ = w.Write([]byte(`<entries>
				<entry><entry-no>1</entry-no></entry>
				<entry><entry-no>2</entry-no></entry>
			</entries>`))
		default:
			_, _ = w.Write([]byte(`<error>Unknown type</error>`))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func writeConfig(t *testing.T, cfg map[string]any) string {
	t.Helper()
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func messages(t *testing.T, out string) []singer.Message {
	t.Helper()
	var msgs []singer.Message
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		var m singer.Message
		require.NoError(t, json.Unmarshal(sc.Bytes(), &m), "line: %s", sc.Text())
		msgs = append(msgs, m)
	}
	return msgs
}

func TestAbout_JSON(t *testing.T) {
	res := execute(t, "", "--about")
	require.NoError(t, res.err)

	var about map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &about))
	assert.Equal(t, "tap-inventio", about["name"])
	assert.Contains(t, about["capabilities"], "discover")
}

func TestAbout_Markdown(t *testing.T) {
	res := execute(t, "", "--about", "--format", "markdown")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "## Settings")
}

func TestAbout_UnknownFormat(t *testing.T) {
	res := execute(t, "", "--about", "--format", "yaml")
	assert.Error(t, res.err)
}

func TestRoot_RequiresConfig(t *testing.T) {
	res := execute(t, "")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "--config is required")
}

func TestDiscover(t *testing.T) {
	path := writeConfig(t, map[string]any{
		"endpoints": map[string]any{"GLENTRY": map[string]any{"companies": map[string]any{"ACME": "t"}}},
	})

	res := execute(t, "", "--config", path, "--discover")
	require.NoError(t, res.err)

	catalog, err := singer.ParseCatalog([]byte(res.stdout))
	require.NoError(t, err)
	assert.Len(t, catalog.Streams, 3)
	selected := catalog.Selected()
	require.Len(t, selected, 1)
	assert.Equal(t, "GLEntry", selected[0].TapStreamID)
}

func TestSync_WritesMessagesAndState(t *testing.T) {
	server := inventioServer(t)
	statePath := filepath.Join(t.TempDir(), "state.json")
	path := writeConfig(t, map[string]any{
		"endpoints": map[string]any{"GLENTRY": map[string]any{
			"companies":       map[string]any{"ACME": "t"},
			"replication_key": "entry_no",
		}},
		"base_url":      server.URL,
		"max_retries":   0,
		"state_backend": "file",
		"state_path":    statePath,
	})

	res := execute(t, "", "--config", path, "--log-format", "json")
	require.NoError(t, res.err, res.stderr)

	msgs := messages(t, res.stdout)
	require.NotEmpty(t, msgs)
	assert.Equal(t, singer.TypeSchema, msgs[0].Type)

	var records int
	for _, m := range msgs {
		if m.Type == singer.TypeRecord {
			records++
			assert.Equal(t, "ACME", m.Record["company_name"])
		}
	}
	assert.Equal(t, 2, records)
	assert.Contains(t, res.stderr, "SYNC SUMMARY")

	saved, err := state.LoadFile(statePath)
	require.NoError(t, err)
	assert.Equal(t, "2", state.NewTracker(saved, "").Bookmark("GLEntry", "ACME", "entry_no"))

	// a second run resumes from the stored bookmark
	res = execute(t, "", "--config", path)
	require.NoError(t, res.err, res.stderr)
	for _, m := range messages(t, res.stdout) {
		assert.NotEqual(t, singer.TypeRecord, m.Type)
	}
}

func TestSync_StateFlag(t *testing.T) {
	server := inventioServer(t)
	path := writeConfig(t, map[string]any{
		"endpoints": map[string]any{"GLENTRY": map[string]any{
			"companies":       map[string]any{"ACME": "t"},
			"replication_key": "entry_no",
		}},
		"base_url": server.URL,
	})
	statePath := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(statePath, []byte(`{"bookmarks": {"GLEntry": {"partitions": [
		{"context": {"company_name": "ACME"}, "replication_key": "entry_no", "replication_key_value": "1"}
	]}}}`), 0644))

	res := execute(t, "", "--config", path, "--state", statePath)
	require.NoError(t, res.err, res.stderr)

	var got []any
	for _, m := range messages(t, res.stdout) {
		if m.Type == singer.TypeRecord {
			got = append(got, m.Record["entry_no"])
		}
	}
	assert.Equal(t, []any{"2"}, got)
}

func TestSync_APIErrorFails(t *testing.T) {
	server := inventioServer(t)
	path := writeConfig(t, map[string]any{
		"endpoints": map[string]any{"GLENTRY": map[string]any{"companies": map[string]any{"ACME": "bad"}}},
		"base_url":  server.URL,
	})

	res := execute(t, "", "--config", path)
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "Invalid token")
	assert.NotContains(t, res.err.Error(), "token=bad")
}

func TestValidateConfig(t *testing.T) {
	good := writeConfig(t, map[string]any{
		"endpoints": map[string]any{
			"GLENTRY": map[string]any{"companies": map[string]any{"ACME": "secret-token"}},
			"ITEM":    map[string]any{"companies": map[string]any{"ACME": "t"}},
		},
	})
	res := execute(t, "", "validate-config", "--config", good, "--show")
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, "endpoint ITEM was configured")
	assert.NotContains(t, res.stdout, "secret-token")
	assert.Contains(t, res.stdout, "****")

	dup := writeConfig(t, map[string]any{
		"endpoints": map[string]any{
			"GLENTRY":     map[string]any{"companies": map[string]any{"ACME": "t"}},
			"glentry-get": map[string]any{"companies": map[string]any{"ACME": "t"}},
		},
	})
	res = execute(t, "", "validate-config", "--config", dup)
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "configured more than once! (2 times)")
}

func TestInferSchema(t *testing.T) {
	input := `{"type": "RECORD", "stream": "GLEntry", "record": {"company_name": "ACME", "entry_no": "1", "note": null}}
{"type": "STATE", "value": {}}
`
	res := execute(t, input, "infer-schema", "--singer-style", "--required", "entry_no")
	require.NoError(t, res.err)
	assert.JSONEq(t, `{
		"type": "object",
		"properties": {
			"company_name": {"type": ["null", "string"]},
			"entry_no": {"type": ["null", "string"]},
			"note": {"type": ["null", "string"]}
		},
		"required": ["company_name", "entry_no"]
	}`, res.stdout)

	res = execute(t, input, "infer-schema", "--singer-style", "--required", "missing")
	assert.Error(t, res.err)
}

func TestGet(t *testing.T) {
	server := inventioServer(t)

	res := execute(t, "", "get", "--base-url", server.URL, "-c", "ACME", "-t", "GLEntry-GET", "-k", "t", "--pretty")
	require.NoError(t, res.err, res.stderr)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &doc))
	assert.Contains(t, doc, "entries")

	res = execute(t, "", "get", "--url", server.URL+"/ACME/smartapi/?type=GLEntry-GET&token=bad")
	require.Error(t, res.err)
	assert.Contains(t, res.stdout, "Invalid token")
}

func TestGet_ArgumentForms(t *testing.T) {
	res := execute(t, "", "get", "-c", "ACME")
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "supply only --url")

	res = execute(t, "", "get", "--url", "http://x", "-c", "ACME", "-t", "GLEntry", "-k", "t")
	require.Error(t, res.err)
}

func TestTrimGetSuffix(t *testing.T) {
	assert.Equal(t, "GLEntry", trimGetSuffix("GLEntry-GET"))
	assert.Equal(t, "GLEntry", trimGetSuffix("GLEntry-get"))
	assert.Equal(t, "GLEntry", trimGetSuffix("GLEntry"))
}
