// Package runid derives deterministic identifiers for evaluation runs.
package runid

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/mr-tron/base58"
)

// Compute returns a deterministic run_id.
// Formula: SHA256(out_dir|threshold|hold|inputs_digest), base58-encoded.
// The threshold is formatted with the shortest exact representation.
func Compute(outDir string, threshold float64, hold int, inputsDigest string) string {
	data := fmt.Sprintf("%s|%s|%d|%s",
		outDir,
		strconv.FormatFloat(threshold, 'g', -1, 64),
		hold,
		inputsDigest,
	)
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}

// DigestFiles hashes the contents of paths in order. A missing file
// contributes a fixed marker, so adding it later changes the digest.
func DigestFiles(paths ...string) (string, error) {
	h := sha256.New()
	for _, p := range paths {
		fmt.Fprintf(h, "%s\x00", p)
		f, err := os.Open(p)
		if errors.Is(err, os.ErrNotExist) {
			h.Write([]byte("<absent>\x00"))
			continue
		}
		if err != nil {
			return "", fmt.Errorf("open %s: %w", p, err)
		}
		_, err = io.Copy(h, f)
		f.Close()
		if err != nil {
			return "", fmt.Errorf("read %s: %w", p, err)
		}
		h.Write([]byte{0})
	}
	return base58.Encode(h.Sum(nil)), nil
}
