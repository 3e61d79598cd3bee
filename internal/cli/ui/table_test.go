package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type iri string

func (i iri) String() string { return "<" + string(i) + ">" }

func TestTable_Render(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, []string{"id", "name", "age"}, &TableOptions{NoColor: true})
	table.AddValues("urn:p:1", "Alice", int64(34))
	table.AddValues("urn:p:2", nil, 7.5)
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, []string{
		"id       name   age",
		"───────  ─────  ───",
		"urn:p:1  Alice  34",
		"urn:p:2  -      7.5",
	}, lines)
	assert.Equal(t, 2, table.Len())
}

func TestTable_NoHeaders(t *testing.T) {
	var buf bytes.Buffer
	NewTable(&buf, nil, nil).Render()
	assert.Empty(t, buf.String())
}

func TestCell(t *testing.T) {
	assert.Equal(t, "-", Cell(nil))
	assert.Equal(t, "<urn:x>", Cell(iri("urn:x")))
	assert.Equal(t, "true", Cell(true))
	assert.Equal(t, "[1 2]", Cell([]int{1, 2}))
}

func TestKeyValueTable(t *testing.T) {
	var buf bytes.Buffer
	kv := NewKeyValueTable(&buf, true)
	kv.AddRow("type", "Person")
	kv.AddRow("combinator", "AND")
	kv.Render()

	assert.Equal(t, "type:       Person\ncombinator: AND\n", buf.String())
}

func TestSection(t *testing.T) {
	var buf bytes.Buffer
	s := NewSection(&buf, "Graph pattern", true)
	s.AddLines("?s <p> ?v1 .\n?s <q> ?v2 .\n")
	s.Render()
	assert.Equal(t, "Graph pattern\n  ?s <p> ?v1 .\n  ?s <q> ?v2 .\n\n", buf.String())

	buf.Reset()
	NewSection(&buf, "Filter", true).Render()
	assert.Equal(t, "Filter\n  (none)\n\n", buf.String())
}
