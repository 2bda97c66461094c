// Package summary maintains the persistent run summary shared by several producers.
package summary

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"backtest-gate/internal/domain"
	"backtest-gate/internal/table"
)

// Summary keys.
const (
	KeyExits        = "exits"
	KeyEntries      = "entries"
	KeyWinRate      = "win_rate"
	KeyProfitFactor = "profit_factor"
	KeyCumPnL       = "cum_pnl_close_based"
	KeyMCC          = "mcc"
	KeyConfusion    = "cmatrix"

	KeyWinRateFromTrades      = "win_rate_from_trades"
	KeyProfitFactorFromTrades = "profit_factor_from_trades"
	KeyCumPnLFromTrades       = "cum_pnl_close_based_from_trades"

	keyProvenance = "_provenance"
)

// Role distinguishes the authoritative value of a key from a recomputation.
type Role string

// Roles.
const (
	RoleCanonical  Role = "canonical"
	RoleRecomputed Role = "recomputed"
)

// Provenance records which producer last wrote a key and in what role.
type Provenance struct {
	Producer string `json:"producer"`
	Role     Role   `json:"role"`
}

var jsonNull = json.RawMessage("null")

// Summary is a JSON object whose unknown keys are preserved verbatim.
type Summary struct {
	fields     map[string]json.RawMessage
	provenance map[string]Provenance
}

// New returns an empty summary.
func New() *Summary {
	return &Summary{
		fields:     make(map[string]json.RawMessage),
		provenance: make(map[string]Provenance),
	}
}

// Load reads a summary from path. An absent or unreadable file yields an
// empty summary.
func Load(path string) *Summary {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Str("component", "summary").Str("path", path).Err(err).Msg("cannot read summary, starting empty")
		}
		return New()
	}

	s, err := Parse(data)
	if err != nil {
		log.Warn().Str("component", "summary").Str("path", path).Err(err).Msg("corrupt summary, starting empty")
		return New()
	}
	return s
}

// Parse decodes a summary JSON object.
func Parse(data []byte) (*Summary, error) {
	s := New()
	if err := json.Unmarshal(data, &s.fields); err != nil {
		return nil, fmt.Errorf("decode summary: %w", err)
	}
	if s.fields == nil {
		s.fields = make(map[string]json.RawMessage)
	}
	if raw, ok := s.fields[keyProvenance]; ok {
		if err := json.Unmarshal(raw, &s.provenance); err != nil || s.provenance == nil {
			s.provenance = make(map[string]Provenance)
		}
		delete(s.fields, keyProvenance)
	}
	return s, nil
}

// Clone returns a deep copy.
func (s *Summary) Clone() *Summary {
	c := New()
	for k, v := range s.fields {
		c.fields[k] = append(json.RawMessage(nil), v...)
	}
	for k, v := range s.provenance {
		c.provenance[k] = v
	}
	return c
}

// Has reports whether key is present, including explicit null.
func (s *Summary) Has(key string) bool {
	_, ok := s.fields[key]
	return ok
}

// IsNull reports whether key is present with a null value.
func (s *Summary) IsNull(key string) bool {
	raw, ok := s.fields[key]
	return ok && bytes.Equal(bytes.TrimSpace(raw), jsonNull)
}

// Keys returns all keys in sorted order.
func (s *Summary) Keys() []string {
	keys := make([]string, 0, len(s.fields))
	for k := range s.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Number returns the numeric value of key, or nil if absent, null or not a number.
func (s *Summary) Number(key string) *float64 {
	raw, ok := s.fields[key]
	if !ok {
		return nil
	}
	var v *float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

// Int returns the value of key truncated to an int.
func (s *Summary) Int(key string) (int, bool) {
	v := s.Number(key)
	if v == nil {
		return 0, false
	}
	return int(*v), true
}

// Confusion returns the cmatrix object if present and well formed.
func (s *Summary) Confusion() *domain.ConfusionMatrix {
	raw, ok := s.fields[KeyConfusion]
	if !ok {
		return nil
	}
	var cm *domain.ConfusionMatrix
	if err := json.Unmarshal(raw, &cm); err != nil {
		return nil
	}
	return cm
}

// Raw returns the raw JSON of key.
func (s *Summary) Raw(key string) (json.RawMessage, bool) {
	raw, ok := s.fields[key]
	return raw, ok
}

// Provenance returns the recorded producer of key.
func (s *Summary) Provenance(key string) (Provenance, bool) {
	p, ok := s.provenance[key]
	return p, ok
}

// Set writes key unconditionally. NaN and infinities are stored as null.
func (s *Summary) Set(key string, value any, p Provenance) error {
	raw, err := encodeValue(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	s.fields[key] = raw
	s.provenance[key] = p
	return nil
}

// setNumber writes a float or null. Numbers are encoded directly, so unlike
// Set it has no failure path.
func (s *Summary) setNumber(key string, v *float64, p Provenance) {
	s.fields[key] = numberRaw(v)
	s.provenance[key] = p
}

func (s *Summary) defaultNumber(key string, v *float64, p Provenance) {
	if !s.Has(key) {
		s.setNumber(key, v, p)
	}
}

func (s *Summary) setInt(key string, n int, p Provenance) {
	s.fields[key] = json.RawMessage(strconv.Itoa(n))
	s.provenance[key] = p
}

func (s *Summary) defaultInt(key string, n int, p Provenance) {
	if !s.Has(key) {
		s.setInt(key, n, p)
	}
}

func (s *Summary) setConfusion(cm domain.ConfusionMatrix, p Provenance) {
	s.fields[KeyConfusion] = json.RawMessage(fmt.Sprintf(`{"TP":%d,"TN":%d,"FP":%d,"FN":%d}`, cm.TP, cm.TN, cm.FP, cm.FN))
	s.provenance[KeyConfusion] = p
}

// numberRaw encodes v the way encoding/json formats a float64; nil, NaN and
// infinities become null.
func numberRaw(v *float64) json.RawMessage {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return jsonNull
	}
	f := *v
	format := byte('f')
	if abs := math.Abs(f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	b := strconv.AppendFloat(nil, f, format, -1, 64)
	if format == 'e' {
		// clean up e-09 to e-9
		if n := len(b); n >= 4 && b[n-4] == 'e' && b[n-3] == '-' && b[n-2] == '0' {
			b[n-2] = b[n-1]
			b = b[:n-1]
		}
	}
	return json.RawMessage(b)
}

func encodeValue(value any) (json.RawMessage, error) {
	switch v := value.(type) {
	case nil:
		return jsonNull, nil
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return jsonNull, nil
		}
	case *float64:
		if v == nil {
			return jsonNull, nil
		}
		return encodeValue(*v)
	}
	return json.Marshal(value)
}

// MarshalJSON encodes the summary with keys sorted and provenance attached.
func (s *Summary) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(s.fields)+1)
	for k, v := range s.fields {
		out[k] = v
	}
	if len(s.provenance) > 0 {
		raw, err := json.Marshal(s.provenance)
		if err != nil {
			return nil, err
		}
		out[keyProvenance] = raw
	}
	return json.Marshal(out)
}

// WriteTo writes the summary as two-space indented JSON.
func (s *Summary) WriteTo(w io.Writer) (int64, error) {
	compact, err := s.MarshalJSON()
	if err != nil {
		return 0, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, compact, "", "  "); err != nil {
		return 0, err
	}
	buf.WriteByte('\n')
	return buf.WriteTo(w)
}

// Save writes the whole summary atomically.
func (s *Summary) Save(path string) error {
	return table.WriteFileAtomic(path, func(w io.Writer) error {
		_, err := s.WriteTo(w)
		return err
	})
}
