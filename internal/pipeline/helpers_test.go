package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

const (
	pricesCSV = "open_time,close\n" +
		"1700000000,100\n" +
		"1700000060,110\n" +
		"1700000120,105\n" +
		"1700000180,120\n" +
		"1700000240,90\n"

	tradesCSV = "open_time,event,side\n" +
		"1700000000,ENTRY,long\n" +
		"1700000060,EXIT,\n" +
		"1700000120,ENTRY,short\n" +
		"1700000180,EXIT,\n" +
		"1700000240,EXIT,\n"

	predsCSV = "open_time,p\n" +
		"1700000000,0.9\n" +
		"1700000060,0.9\n" +
		"1700000120,0.1\n" +
		"1700000180,0.1\n" +
		"1700000240,0.95\n"
)

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

// fixture lays out a data root with one price file and an output dir
// holding the given trade log and predictions (skipped when empty).
func fixture(t *testing.T, trades, preds string) (dataRoot, outDir string) {
	t.Helper()
	base := t.TempDir()
	dataRoot = filepath.Join(base, "data")
	outDir = filepath.Join(base, "out")
	writeFile(t, filepath.Join(dataRoot, "BTCUSDT", "1m.csv"), pricesCSV)
	require.NoError(t, os.MkdirAll(outDir, 0o755))
	if trades != "" {
		writeFile(t, filepath.Join(outDir, FileTrades), trades)
	}
	if preds != "" {
		writeFile(t, filepath.Join(outDir, FilePreds), preds)
	}
	return dataRoot, outDir
}
