package domain

// OutcomeTally accumulates matched-response outcomes for one model.
// Counters only ever increase, and Rows == Win + Lose + Tie holds
// after every response is scored. A fresh tally is built on each
// analysis run; nothing is persisted between runs.
type OutcomeTally struct {
	Rows int
	Win  int
	Lose int
	Tie  int
}

// denom returns the percentage denominator, clamped at 1 so a model
// with zero matched rows reports vacuous 0% instead of dividing by
// zero.
func (t *OutcomeTally) denom() float64 {
	if t.Rows < 1 {
		return 1
	}
	return float64(t.Rows)
}

// WinPct returns wins as a percentage of matched rows.
func (t *OutcomeTally) WinPct() float64 { return float64(t.Win) / t.denom() * 100 }

// LosePct returns losses as a percentage of matched rows.
func (t *OutcomeTally) LosePct() float64 { return float64(t.Lose) / t.denom() * 100 }

// TiePct returns ties as a percentage of matched rows.
func (t *OutcomeTally) TiePct() float64 { return float64(t.Tie) / t.denom() * 100 }
