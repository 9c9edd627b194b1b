package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleking/kanon/internal/kanon"
)

func writeTableFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	return path
}

func TestLoadTableGuessesCommaDelimiter(t *testing.T) {
	path := writeTableFile(t, "name,age\nAnn,25\nBob,27\n")

	tbl, err := LoadTable(path, TableOptions{Sensitivities: "i,q", Types: "s,i"})
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "age"}, tbl.Header)
	assert.Equal(t, 2, tbl.Rows)
	assert.Equal(t, []string{"Ann", "Bob"}, tbl.Columns["name"].Data)
	assert.Equal(t, []string{"25", "27"}, tbl.Columns["age"].Data)
	assert.Equal(t, kanon.TypeInteger, tbl.Columns["age"].Type)
	assert.Equal(t, kanon.Ignore, tbl.Columns["name"].Sensitivity)
}

func TestLoadTableGuessesTabDelimiter(t *testing.T) {
	path := writeTableFile(t, "name\tage\nAnn\t25\n")

	tbl, err := LoadTable(path, TableOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "age"}, tbl.Header)
	assert.Equal(t, []string{"Ann"}, tbl.Columns["name"].Data)
}

func TestLoadTableExplicitDelimiterOverridesGuessing(t *testing.T) {
	path := writeTableFile(t, "name;age\nAnn;25\n")

	tbl, err := LoadTable(path, TableOptions{Delim: ";"})
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "age"}, tbl.Header)
}

func TestLoadTableDefaultsMissingSensitivitiesToQuasi(t *testing.T) {
	path := writeTableFile(t, "a,b,c\n1,2,3\n")

	tbl, err := LoadTable(path, TableOptions{Sensitivities: "s"})
	require.NoError(t, err)

	assert.Equal(t, kanon.Sensitive, tbl.Columns["a"].Sensitivity)
	assert.Equal(t, kanon.Quasi, tbl.Columns["b"].Sensitivity)
	assert.Equal(t, kanon.Quasi, tbl.Columns["c"].Sensitivity)
}

func TestLoadTableDefaultsMissingWeightsToOne(t *testing.T) {
	path := writeTableFile(t, "a,b\n1,2\n")

	tbl, err := LoadTable(path, TableOptions{Weights: "2.5"})
	require.NoError(t, err)

	assert.InDelta(t, 2.5, tbl.Columns["a"].Weight, 1e-9)
	assert.InDelta(t, 1.0, tbl.Columns["b"].Weight, 1e-9)
}

func TestLoadTableEmbedsMatchingHierarchy(t *testing.T) {
	hierarchyPath := writeHierarchyFile(t, "Job/Blue Collar: Mechanic, Plumber\n")
	hs, err := LoadHierarchies(hierarchyPath)
	require.NoError(t, err)

	path := writeTableFile(t, "Job\nMechanic\nPlumber\n")

	tbl, err := LoadTable(path, TableOptions{Hierarchies: hs})
	require.NoError(t, err)

	require.NotNil(t, tbl.Columns["Job"].Hierarchy)
	assert.Equal(t, "Job", tbl.Columns["Job"].Hierarchy.Name())
}

func TestLoadTableFinalizesRangesAndWidths(t *testing.T) {
	path := writeTableFile(t, "age\n5\n100\n")

	tbl, err := LoadTable(path, TableOptions{Types: "i"})
	require.NoError(t, err)

	assert.Equal(t, "[5-100]", tbl.Columns["age"].Range.String())
	assert.Equal(t, 3, tbl.Columns["age"].Width)
}

func TestLoadTableUnrecognizedTypeCodeErrors(t *testing.T) {
	path := writeTableFile(t, "a\n1\n")

	_, err := LoadTable(path, TableOptions{Types: "z"})
	require.Error(t, err)
}

func TestLoadTableMissingFileErrors(t *testing.T) {
	_, err := LoadTable(filepath.Join(t.TempDir(), "missing.csv"), TableOptions{})
	require.Error(t, err)
}

func TestLoadTableEmptyFileErrors(t *testing.T) {
	path := writeTableFile(t, "")

	_, err := LoadTable(path, TableOptions{})
	require.Error(t, err)
}
