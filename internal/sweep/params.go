package sweep

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"backtest-gate/internal/table"
)

// WriteParams writes basePath with the combination's threshold and hold
// overlaid to outPath: entry.p_thr.trend, entry.p_thr.range and exit.min_hold.
// Every other key, and the key order, is preserved. An empty basePath starts
// from an empty document.
func WriteParams(basePath, outPath string, c Combo) error {
	var base []byte
	if basePath != "" {
		var err error
		base, err = os.ReadFile(basePath)
		if err != nil {
			return fmt.Errorf("read base params: %w", err)
		}
	}

	out, err := OverlayParams(base, c)
	if err != nil {
		return fmt.Errorf("overlay %s: %w", basePath, err)
	}
	return table.WriteFileAtomic(outPath, func(w io.Writer) error {
		_, err := w.Write(out)
		return err
	})
}

// OverlayParams applies the combination to a YAML document.
func OverlayParams(base []byte, c Combo) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(base, &doc); err != nil {
		return nil, err
	}
	if doc.Kind == 0 {
		doc.Kind = yaml.DocumentNode
		doc.Content = []*yaml.Node{nil}
	}

	if err := setPath(&doc, c.Threshold, "entry", "p_thr", "trend"); err != nil {
		return nil, err
	}
	if err := setPath(&doc, c.Threshold, "entry", "p_thr", "range"); err != nil {
		return nil, err
	}
	if err := setPath(&doc, c.Hold, "exit", "min_hold"); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// setPath sets value at the mapping path under doc, creating mappings as
// needed. Absent or null intermediate values become mappings.
func setPath(doc *yaml.Node, value any, path ...string) error {
	if isNull(doc.Content[0]) {
		doc.Content[0] = newMapping()
	}
	node := doc.Content[0]

	for i, key := range path {
		if node.Kind != yaml.MappingNode {
			where := strings.Join(path[:i], ".")
			if where == "" {
				where = "document root"
			}
			return fmt.Errorf("%s is not a mapping", where)
		}

		idx := valueIndex(node, key)
		if i == len(path)-1 {
			var v yaml.Node
			if err := v.Encode(value); err != nil {
				return err
			}
			if idx < 0 {
				node.Content = append(node.Content, scalarKey(key), &v)
			} else {
				node.Content[idx] = &v
			}
			return nil
		}

		switch {
		case idx < 0:
			child := newMapping()
			node.Content = append(node.Content, scalarKey(key), child)
			node = child
		case isNull(node.Content[idx]):
			node.Content[idx] = newMapping()
			node = node.Content[idx]
		default:
			node = node.Content[idx]
		}
	}
	return errors.New("empty path")
}

// valueIndex returns the index of key's value in a mapping node, or -1.
func valueIndex(m *yaml.Node, key string) int {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return i + 1
		}
	}
	return -1
}

func isNull(n *yaml.Node) bool {
	return n == nil || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null")
}

func newMapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

func scalarKey(key string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key}
}
