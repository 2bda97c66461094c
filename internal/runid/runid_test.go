package runid

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mr-tron/base58"
)

func TestCompute_Deterministic(t *testing.T) {
	a := Compute("out_thr0.83_h9", 0.83, 9, "abc")
	b := Compute("out_thr0.83_h9", 0.83, 9, "abc")
	if a != b {
		t.Errorf("Compute not deterministic: %s != %s", a, b)
	}

	decoded, err := base58.Decode(a)
	if err != nil {
		t.Fatalf("run_id is not base58: %v", err)
	}
	if len(decoded) != 32 {
		t.Errorf("expected 32-byte hash, got %d", len(decoded))
	}
}

func TestCompute_DiffersByField(t *testing.T) {
	base := Compute("out", 0.83, 9, "d")
	variants := map[string]string{
		"outdir":    Compute("out2", 0.83, 9, "d"),
		"threshold": Compute("out", 0.84, 9, "d"),
		"hold":      Compute("out", 0.83, 10, "d"),
		"digest":    Compute("out", 0.83, 9, "e"),
	}
	for name, v := range variants {
		if v == base {
			t.Errorf("changing %s did not change run_id", name)
		}
	}
}

func TestDigestFiles(t *testing.T) {
	dir := t.TempDir()
	trades := filepath.Join(dir, "trades.csv")
	preds := filepath.Join(dir, "preds_test.csv")

	if err := os.WriteFile(trades, []byte("event\nENTRY\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	d1, err := DigestFiles(trades, preds)
	if err != nil {
		t.Fatalf("DigestFiles failed: %v", err)
	}
	d2, _ := DigestFiles(trades, preds)
	if d1 != d2 {
		t.Error("digest not deterministic")
	}

	if err := os.WriteFile(preds, []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}
	d3, _ := DigestFiles(trades, preds)
	if d3 == d1 {
		t.Error("creating an empty file must change the digest")
	}
}
