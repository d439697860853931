package extract

import (
	"testing"

	"github.com/jonathan/tap-inventio/internal/xmlmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, doc string) map[string]any {
	t.Helper()
	m, err := xmlmap.DecodeBytes([]byte(doc))
	require.NoError(t, err)
	return m
}

func TestRecords_List(t *testing.T) {
	doc := decode(t, `<entries><entry><entry-no>1</entry-no></entry><entry><entry-no>2</entry-no></entry></entries>`)

	records, err := Records(doc, "$.entries.entry[*]")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "1", records[0]["entry-no"])
	assert.Equal(t, "2", records[1]["entry-no"])
}

func TestRecords_SingleObject(t *testing.T) {
	doc := decode(t, `<customers><customer><no>10000</no><name>Jens</name></customer></customers>`)

	records, err := Records(doc, "$.customers.customer[*]")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, map[string]any{"no": "10000", "name": "Jens"}, records[0])
}

func TestRecords_HyphenatedKeys(t *testing.T) {
	doc := decode(t, `<dimension-entries>
		<dimension-entry><entry-no>7</entry-no><code>AFD</code></dimension-entry>
		<dimension-entry><entry-no>7</entry-no><code>PROJ</code></dimension-entry>
	</dimension-entries>`)

	records, err := Records(doc, "$.dimension-entries.dimension-entry[*]")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "PROJ", records[1]["code"])
}

func TestRecords_NoMatch(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "empty root", doc: `<entries/>`},
		{name: "different root", doc: `<customers><customer><no>1</no></customer></customers>`},
		{name: "text only entries", doc: `<entries><entry>a</entry><entry>b</entry></entries>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := Records(decode(t, tt.doc), "$.entries.entry[*]")
			require.NoError(t, err)
			assert.Empty(t, records)
		})
	}
}

func TestRecords_WithoutWildcard(t *testing.T) {
	doc := decode(t, `<setup><general-ledger-setup><code>X</code></general-ledger-setup></setup>`)

	records, err := Records(doc, "$.setup.general-ledger-setup")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "X", records[0]["code"])
}

func TestRecords_InvalidPath(t *testing.T) {
	_, err := Records(map[string]any{}, "")
	require.Error(t, err)

	var pathErr *PathError
	assert.ErrorAs(t, err, &pathErr)

	_, err = Records(map[string]any{}, "$.entries[")
	require.Error(t, err)
	assert.ErrorAs(t, err, &pathErr)
}

func TestQuoteKeys(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"$.entries.entry", "$.entries.entry"},
		{"$.dimension-entries.dimension-entry", "$['dimension-entries']['dimension-entry']"},
		{"$.entries.entry[0]", "$.entries.entry[0]"},
		{"$.a-b[1].c", "$['a-b'][1].c"},
		{"$.1st", "$['1st']"},
		{"$.*", "$.*"},
		{"$..entry", "$..entry"},
		{"$.entries[?(@.code=='X')]", "$.entries[?(@.code=='X')]"},
		{"$['a-b']", "$['a-b']"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, quoteKeys(tt.in))
		})
	}
}

func TestPostProcess(t *testing.T) {
	in := map[string]any{
		"entry-no":       "1",
		"g-l-account-no": "1010",
		"amount":         "5.00",
		"company_name":   "should be replaced",
	}

	out := PostProcess(in, "ACME")

	assert.Equal(t, map[string]any{
		"entry_no":       "1",
		"g_l_account_no": "1010",
		"amount":         "5.00",
		"company_name":   "ACME",
	}, out)
	assert.Equal(t, "1", in["entry-no"], "input must not be modified")
}
