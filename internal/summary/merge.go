package summary

import (
	"backtest-gate/internal/domain"
)

// ReconcileStatus says what happened to the trade stage of a run.
type ReconcileStatus int

// Reconcile statuses.
const (
	ReconcileSkipped ReconcileStatus = iota // no trade log, summary untouched
	ReconcileFailed                         // trade log unusable, exits carried forward
	ReconcileDone
)

// ScoringStatus says what happened to the classification stage of a run.
type ScoringStatus int

// Scoring statuses.
const (
	ScoringSkipped ScoringStatus = iota // no predictions, summary untouched
	ScoringFailed                       // mcc set to null if absent
	ScoringComputed
)

// Update carries the freshly computed results of one run.
type Update struct {
	Producer string

	Reconcile   ReconcileStatus
	Exits       int
	Performance domain.Performance

	Scoring   ScoringStatus
	Confusion domain.ConfusionMatrix
}

// Merge applies fresh results to a copy of existing and returns it.
//
//   - exits is always overwritten; entries defaults to exits when absent.
//   - win_rate, profit_factor and cum_pnl_close_based keep the first value
//     ever written; their *_from_trades shadows are always refreshed.
//   - mcc and cmatrix are overwritten when computed; a scoring failure only
//     sets mcc to null when no value exists.
//   - A failed reconciliation keeps the previous exits (0 if none).
//   - Every other key is preserved.
func Merge(existing *Summary, u Update) *Summary {
	out := New()
	if existing != nil {
		out = existing.Clone()
	}

	canonical := Provenance{Producer: u.Producer, Role: RoleCanonical}
	recomputed := Provenance{Producer: u.Producer, Role: RoleRecomputed}

	switch u.Reconcile {
	case ReconcileDone:
		perf := u.Performance
		winRate, cumPnL := perf.WinRate, perf.CumulativePnL
		out.setInt(KeyExits, u.Exits, canonical)
		out.defaultInt(KeyEntries, u.Exits, recomputed)

		out.defaultNumber(KeyWinRate, &winRate, canonical)
		out.defaultNumber(KeyProfitFactor, perf.ProfitFactor, canonical)
		out.defaultNumber(KeyCumPnL, &cumPnL, canonical)

		out.setNumber(KeyWinRateFromTrades, &winRate, recomputed)
		out.setNumber(KeyProfitFactorFromTrades, perf.ProfitFactor, recomputed)
		out.setNumber(KeyCumPnLFromTrades, &cumPnL, recomputed)

	case ReconcileFailed:
		prev, _ := out.Int(KeyExits)
		p, ok := out.Provenance(KeyExits)
		if !ok {
			p = canonical
		}
		out.setInt(KeyExits, prev, p)
	}

	switch u.Scoring {
	case ScoringComputed:
		cm := u.Confusion
		mcc := cm.MCC()
		out.setNumber(KeyMCC, &mcc, canonical)
		out.setConfusion(cm, canonical)
	case ScoringFailed:
		out.defaultNumber(KeyMCC, nil, canonical)
	}

	return out
}
