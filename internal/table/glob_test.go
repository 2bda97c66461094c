package table

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, root, rel string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte("x\n"), 0644))
	return p
}

func TestMatch_DoubleStar(t *testing.T) {
	root := t.TempDir()
	top := touch(t, root, "ETHUSDT_1m.csv")
	nested := touch(t, root, "binance/2024/BTCUSDT_1m.csv")
	touch(t, root, "binance/notes.txt")

	got, err := Match(root, "**/*.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{top, nested}, got)
}

func TestMatch_SingleStarDoesNotCrossDirs(t *testing.T) {
	root := t.TempDir()
	top := touch(t, root, "a.csv")
	touch(t, root, "sub/b.csv")

	got, err := Match(root, "*.csv")
	require.NoError(t, err)
	assert.Equal(t, []string{top}, got)
}

func TestMatch_NoMatches(t *testing.T) {
	got, err := Match(t.TempDir(), "**/*.parquet")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMatch_RequiresRoot(t *testing.T) {
	_, err := Match("", "*.csv")
	assert.Error(t, err)
}
