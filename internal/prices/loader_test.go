package prices

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-gate/internal/ingest"
	"backtest-gate/internal/table"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoad_FirstMatch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "BTC.csv"), "open_time,Close\n1700000000000,100\n1700000060000,101.5\n")
	writeFile(t, filepath.Join(root, "b", "ETH.csv"), "open_time,close\n1700000000000,9\n")

	series, stats, err := Load(root, "**/*.csv")
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Matched)
	assert.Equal(t, filepath.Join(root, "a", "BTC.csv"), stats.Source)
	assert.Equal(t, 2, series.Len())

	c, ok := series.At(1700000060000)
	require.True(t, ok)
	assert.Equal(t, "101.5", c.String())
}

func TestLoad_NoMatch(t *testing.T) {
	_, _, err := Load(t.TempDir(), "**/*.csv")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoSourceMatched))
}

func TestFromTable_MissingClose(t *testing.T) {
	tb, err := table.Parse(strings.NewReader("timestamp,open,high\n1,2,3\n"))
	require.NoError(t, err)
	tb.Path = "px.csv"

	_, _, err = FromTable(tb)

	var schemaErr *ingest.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "prices", schemaErr.Stage)
	assert.Equal(t, "close", schemaErr.Missing)
	assert.Equal(t, []string{"timestamp", "open", "high"}, schemaErr.Observed)
}

func TestFromTable_DuplicatesAndBadRows(t *testing.T) {
	tb, err := table.Parse(strings.NewReader(`time,c
1700000000000,10
1700000000000,11
oops,12
1700000060000,n/a
`))
	require.NoError(t, err)

	series, stats, err := FromTable(tb)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Rows)
	assert.Equal(t, 2, stats.Skipped)
	assert.Equal(t, 2, series.Len())

	c, ok := series.At(1700000000000)
	require.True(t, ok)
	assert.Equal(t, "10", c.String())
}
