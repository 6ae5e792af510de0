package keywords

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_BuiltinTables(t *testing.T) {
	tests := []struct {
		name       string
		categories int
		first      string
	}{
		{Vulnerability, 10, "reentrancy"},
		{Defense, 10, "static_analysis"},
		{Themes, 6, "vulnerability_detection"},
		{Security, 17, "reentrancy"},
		{ContractPatterns, 7, "reentrancy"},
		{ScamKeywords, 2, "red_flags"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Load(tt.name)
			require.NoError(t, err)
			assert.Equal(t, tt.name, table.Name)
			assert.Len(t, table.Categories, tt.categories)
			assert.Equal(t, tt.first, table.Categories[0].Name)
		})
	}
}

func TestLoad_Unknown(t *testing.T) {
	_, err := Load("does-not-exist")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownTable)
}

func TestList(t *testing.T) {
	names, err := List()
	require.NoError(t, err)
	assert.Equal(t, []string{
		ContractPatterns, Defense, ScamKeywords, Security, Themes, Vulnerability,
	}, names)
}

func TestContractPatterns_TriggersIncludeCodePatterns(t *testing.T) {
	table := MustLoad(ContractPatterns)

	cat, ok := table.Get("tx_origin")
	require.True(t, ok)
	assert.Equal(t, []string{"tx.origin", "tx.origin authentication"}, cat.Keywords)
	assert.Contains(t, cat.Triggers(), "require(tx.origin == owner)")
	assert.Contains(t, cat.Triggers(), "if(tx.origin")
	assert.NotEmpty(t, cat.Description)

	ct := table.CategoryTable()
	assert.Len(t, ct, 7)
	assert.Contains(t, ct["delegatecall"], "delegatecall(")
}

func TestTable_NamesKeepFileOrder(t *testing.T) {
	table := MustLoad(Themes)
	assert.Equal(t, []string{
		"vulnerability_detection", "automated_tools", "deep_learning",
		"ethereum", "empirical_study", "security",
	}, table.Names())
}

func TestParse_MixedShapes(t *testing.T) {
	data := []byte(`
plain: [a, b]
detailed:
  keywords: [c]
  code_patterns: [d(]
  description: something
single: e
empty:
`)
	table, err := Parse("custom", data)
	require.NoError(t, err)

	ct := table.CategoryTable()
	assert.Equal(t, []string{"a", "b"}, ct["plain"])
	assert.Equal(t, []string{"c", "d("}, ct["detailed"])
	assert.Equal(t, []string{"e"}, ct["single"])
	assert.Empty(t, ct["empty"])
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse("bad", []byte("- just\n- a list\n"))
	assert.Error(t, err)

	_, err = Parse("dup", []byte("a: [x]\na: [y]\n"))
	assert.Error(t, err)

	_, err = Parse("broken", []byte("a: [x"))
	assert.Error(t, err)
}

func TestParse_EmptyDocument(t *testing.T) {
	table, err := Parse("empty", []byte(""))
	require.NoError(t, err)
	assert.Empty(t, table.Categories)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mine.yaml")
	require.NoError(t, os.WriteFile(path, []byte("x: [foo]\n"), 0o644))

	table, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "mine", table.Name)
	assert.Equal(t, []string{"foo"}, table.CategoryTable()["x"])

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
