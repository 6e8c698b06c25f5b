// Package simulator replays a decision tree against a chronological event
// slice on a virtual single-position ledger. It keeps no state across
// calls, which is what lets the GP fitness function, the walk-forward and
// regime-stress validation stages, and paper trading all share it.
package simulator

import (
	"time"

	"github.com/quantforge/synth/internal/tree"
	"github.com/quantforge/synth/models"
)

// DefaultStartingEquity matches the backtesting default used across the
// rest of the platform.
const DefaultStartingEquity = 10000.0

// Trade is one completed round trip on the virtual ledger.
type Trade struct {
	EntryTime  time.Time     `json:"entry_time"`
	ExitTime   time.Time     `json:"exit_time"`
	EntryPrice float64       `json:"entry_price"`
	ExitPrice  float64       `json:"exit_price"`
	Direction  int           `json:"direction"` // +1 long, -1 short
	PnL        float64       `json:"pnl"`       // fractional return on equity
	Regime     models.Regime `json:"regime"`    // regime at entry
}

// Result is everything one simulation run produces.
type Result struct {
	TotalReturn  float64
	MaxDrawdown  float64
	FinalEquity  float64
	Trades       []Trade
	EquityCurve  []float64
	EventsUsed   int
	EventsSkiped int
}

// Simulator holds only configuration; Run is safe for concurrent use.
type Simulator struct {
	startingEquity float64
}

func New(startingEquity float64) *Simulator {
	if startingEquity <= 0 {
		startingEquity = DefaultStartingEquity
	}
	return &Simulator{startingEquity: startingEquity}
}

// Run evaluates the tree at every event and drives the single virtual
// position: a buy or sell that disagrees with the current position closes
// it (recording the completed trade) before opening the new one, and close
// flattens without reversing. Events with a missing or non-positive price
// are skipped rather than failing the run.
func (s *Simulator) Run(strategy *tree.Node, events []models.MarketEvent) Result {
	res := Result{
		FinalEquity: s.startingEquity,
		EquityCurve: make([]float64, 0, len(events)+1),
	}
	res.EquityCurve = append(res.EquityCurve, s.startingEquity)

	equity := s.startingEquity
	peak := equity

	position := 0 // +1 long, -1 short, 0 flat
	var entryPrice float64
	var entryTime time.Time
	var entryRegime models.Regime

	var prev *models.MarketEvent
	var lastPrice float64
	var lastTime time.Time

	closePosition := func(price float64, at time.Time) {
		pnl := float64(position) * (price - entryPrice) / entryPrice
		equity *= 1 + pnl
		res.Trades = append(res.Trades, Trade{
			EntryTime:  entryTime,
			ExitTime:   at,
			EntryPrice: entryPrice,
			ExitPrice:  price,
			Direction:  position,
			PnL:        pnl,
			Regime:     entryRegime,
		})
		position = 0
	}

	for i := range events {
		ev := &events[i]
		if ev.Price <= 0 {
			res.EventsSkiped++
			continue
		}
		regime := ev.Regime
		if regime == "" {
			regime = ClassifyRegime(prev, ev)
		}

		decision := tree.Evaluate(strategy, ev.Snapshot(), regime)

		switch decision.Action {
		case models.ActionBuy:
			if position < 0 {
				closePosition(ev.Price, ev.Timestamp)
			}
			if position == 0 {
				position = 1
				entryPrice = ev.Price
				entryTime = ev.Timestamp
				entryRegime = regime
			}
		case models.ActionSell:
			if position > 0 {
				closePosition(ev.Price, ev.Timestamp)
			}
			if position == 0 {
				position = -1
				entryPrice = ev.Price
				entryTime = ev.Timestamp
				entryRegime = regime
			}
		case models.ActionClose:
			if position != 0 {
				closePosition(ev.Price, ev.Timestamp)
			}
		}

		// Mark-to-market equity including the open position.
		mark := equity
		if position != 0 {
			mark = equity * (1 + float64(position)*(ev.Price-entryPrice)/entryPrice)
		}
		res.EquityCurve = append(res.EquityCurve, mark)
		if mark > peak {
			peak = mark
		}
		if peak > 0 {
			if dd := (peak - mark) / peak; dd > res.MaxDrawdown {
				res.MaxDrawdown = dd
			}
		}

		prev = ev
		lastPrice = ev.Price
		lastTime = ev.Timestamp
		res.EventsUsed++
	}

	// Liquidate any open position at the final price so trades account for
	// the full equity path.
	if position != 0 && lastPrice > 0 {
		closePosition(lastPrice, lastTime)
		res.EquityCurve = append(res.EquityCurve, equity)
	}

	res.FinalEquity = equity
	res.TotalReturn = (equity - s.startingEquity) / s.startingEquity
	return res
}
