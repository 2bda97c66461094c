package table

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// Match returns files under root whose slash-separated relative path matches
// pattern. "**" spans directories, including zero of them, so "**/*.csv" also
// matches files directly under root. Results are sorted.
func Match(root, pattern string) ([]string, error) {
	if root == "" {
		return nil, fmt.Errorf("match %q: root directory is required", pattern)
	}
	pattern = strings.TrimPrefix(filepath.ToSlash(pattern), "./")

	matchers := make([]glob.Glob, 0, 2)
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", pattern, err)
	}
	matchers = append(matchers, g)
	if rest, ok := strings.CutPrefix(pattern, "**/"); ok {
		g, err := glob.Compile(rest, '/')
		if err != nil {
			return nil, fmt.Errorf("compile pattern %q: %w", rest, err)
		}
		matchers = append(matchers, g)
	}

	var out []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		for _, m := range matchers {
			if m.Match(rel) {
				out = append(out, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sort.Strings(out)
	return out, nil
}
