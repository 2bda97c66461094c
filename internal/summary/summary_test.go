package summary

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-gate/internal/domain"
)

func fptr(f float64) *float64 { return &f }

func TestLoad_AbsentAndCorrupt(t *testing.T) {
	dir := t.TempDir()

	s := Load(filepath.Join(dir, "missing.json"))
	assert.Empty(t, s.Keys())

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
	s = Load(bad)
	assert.Empty(t, s.Keys())
}

func TestSaveLoad_PreservesUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "summary.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"engine":"v2","nested":{"a":[1,2]},"exits":3}`), 0o644))

	s := Load(path)
	require.NoError(t, s.Set(KeyMCC, 0.25, Provenance{Producer: "test", Role: RoleCanonical}))
	require.NoError(t, s.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"engine\": \"v2\"")

	again := Load(path)
	raw, ok := again.Raw("nested")
	require.True(t, ok)
	assert.JSONEq(t, `{"a":[1,2]}`, string(raw))
	n, ok := again.Int(KeyExits)
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	p, ok := again.Provenance(KeyMCC)
	require.True(t, ok)
	assert.Equal(t, "test", p.Producer)
	assert.False(t, again.Has("_provenance"))
}

func TestSet_NonFiniteBecomesNull(t *testing.T) {
	s := New()
	require.NoError(t, s.Set("x", math.Inf(1), Provenance{}))
	assert.True(t, s.IsNull("x"))
	assert.Nil(t, s.Number("x"))

	require.NoError(t, s.Set("y", (*float64)(nil), Provenance{}))
	assert.True(t, s.IsNull("y"))
}

func TestMerge_CanonicalFirstWinsShadowsRefresh(t *testing.T) {
	existing, err := Parse([]byte(`{"win_rate":0.9,"exits":1,"custom":"keep"}`))
	require.NoError(t, err)

	perf := domain.Performance{Trades: 4, WinRate: 0.5, ProfitFactor: fptr(2), CumulativePnL: 7}
	out := Merge(existing, Update{Producer: "evaluate", Reconcile: ReconcileDone, Exits: 4, Performance: perf})

	assert.Equal(t, 0.9, *out.Number(KeyWinRate))
	assert.Equal(t, 0.5, *out.Number(KeyWinRateFromTrades))
	assert.Equal(t, 2.0, *out.Number(KeyProfitFactor))
	assert.Equal(t, 2.0, *out.Number(KeyProfitFactorFromTrades))
	assert.Equal(t, 7.0, *out.Number(KeyCumPnL))
	assert.Equal(t, 7.0, *out.Number(KeyCumPnLFromTrades))

	exits, _ := out.Int(KeyExits)
	assert.Equal(t, 4, exits)
	entries, _ := out.Int(KeyEntries)
	assert.Equal(t, 4, entries)

	raw, _ := out.Raw("custom")
	assert.Equal(t, `"keep"`, string(raw))

	// existing is not mutated
	exits, _ = existing.Int(KeyExits)
	assert.Equal(t, 1, exits)

	p, _ := out.Provenance(KeyWinRateFromTrades)
	assert.Equal(t, RoleRecomputed, p.Role)
}

func TestMerge_NoLossesWritesNullProfitFactor(t *testing.T) {
	out := Merge(New(), Update{Reconcile: ReconcileDone, Exits: 1, Performance: domain.Performance{Trades: 1, WinRate: 1}})

	assert.True(t, out.IsNull(KeyProfitFactor))
	assert.True(t, out.IsNull(KeyProfitFactorFromTrades))
}

func TestMerge_SecondRunRefreshesOnlyShadows(t *testing.T) {
	first := Merge(New(), Update{Reconcile: ReconcileDone, Exits: 2, Performance: domain.Performance{WinRate: 0.5}})
	second := Merge(first, Update{Reconcile: ReconcileDone, Exits: 3, Performance: domain.Performance{WinRate: 1.0 / 3}})

	assert.Equal(t, 0.5, *second.Number(KeyWinRate))
	assert.InDelta(t, 1.0/3, *second.Number(KeyWinRateFromTrades), 1e-12)
	exits, _ := second.Int(KeyExits)
	assert.Equal(t, 3, exits)
	entries, _ := second.Int(KeyEntries)
	assert.Equal(t, 2, entries)
}

func TestMerge_ReconcileFailedCarriesExits(t *testing.T) {
	existing, err := Parse([]byte(`{"exits":5}`))
	require.NoError(t, err)

	out := Merge(existing, Update{Reconcile: ReconcileFailed})
	exits, ok := out.Int(KeyExits)
	assert.True(t, ok)
	assert.Equal(t, 5, exits)

	out = Merge(New(), Update{Reconcile: ReconcileFailed})
	exits, ok = out.Int(KeyExits)
	assert.True(t, ok)
	assert.Zero(t, exits)
	assert.False(t, out.Has(KeyWinRate))
}

func TestMerge_ReconcileSkippedLeavesExitsAlone(t *testing.T) {
	out := Merge(New(), Update{})
	assert.False(t, out.Has(KeyExits))
}

func TestMerge_Scoring(t *testing.T) {
	cm := domain.ConfusionMatrix{TP: 3, TN: 5, FP: 1, FN: 1}

	existing, err := Parse([]byte(`{"mcc":0.99}`))
	require.NoError(t, err)

	out := Merge(existing, Update{Scoring: ScoringComputed, Confusion: cm})
	assert.InDelta(t, 14.0/24.0, *out.Number(KeyMCC), 1e-12)
	assert.Equal(t, &cm, out.Confusion())

	raw, _ := out.Raw(KeyConfusion)
	assert.JSONEq(t, `{"TP":3,"TN":5,"FP":1,"FN":1}`, string(raw))

	// failure keeps an existing value
	failed := Merge(out, Update{Scoring: ScoringFailed})
	assert.InDelta(t, 14.0/24.0, *failed.Number(KeyMCC), 1e-12)

	// failure with no value writes explicit null, never zero
	fresh := Merge(New(), Update{Scoring: ScoringFailed})
	assert.True(t, fresh.IsNull(KeyMCC))
	assert.False(t, fresh.Has(KeyConfusion))
}

func TestMerge_ZeroDenominatorMCCIsZero(t *testing.T) {
	out := Merge(New(), Update{Scoring: ScoringComputed, Confusion: domain.ConfusionMatrix{TN: 10}})
	require.NotNil(t, out.Number(KeyMCC))
	assert.Zero(t, *out.Number(KeyMCC))
}

func TestWriteTo_Indented(t *testing.T) {
	s := New()
	require.NoError(t, s.Set(KeyExits, 2, Provenance{Producer: "p", Role: RoleCanonical}))

	var b strings.Builder
	_, err := s.WriteTo(&b)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(b.String(), "{\n  \"_provenance\""))
	assert.True(t, strings.HasSuffix(b.String(), "}\n"))
}

func TestNumberRaw(t *testing.T) {
	assert.Equal(t, "null", string(numberRaw(nil)))
	assert.Equal(t, "null", string(numberRaw(fptr(math.NaN()))))
	assert.Equal(t, "null", string(numberRaw(fptr(math.Inf(-1)))))
	assert.Equal(t, "0.5", string(numberRaw(fptr(0.5))))
	assert.Equal(t, "-47", string(numberRaw(fptr(-47))))
	assert.Equal(t, "1e-7", string(numberRaw(fptr(1e-7))))
	assert.Equal(t, "1e+21", string(numberRaw(fptr(1e21))))

	for _, v := range []float64{0.5, -47, 14.0 / 24.0, 1e-7, 123456.789} {
		var back float64
		require.NoError(t, json.Unmarshal(numberRaw(fptr(v)), &back))
		assert.Equal(t, v, back)
	}
}
