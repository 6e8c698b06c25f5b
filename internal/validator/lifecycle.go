package validator

import (
	"sync"
	"time"

	"github.com/quantforge/synth/internal/tree"
	"github.com/quantforge/synth/models"
)

// Tracker accumulates an approved strategy's virtual track record. It holds
// zero capital; market events replayed through it drive a paper ledger
// whose burn-in decides when the strategy is ready for the allocation
// layer. Lifecycle transitions are append-only and never rewritten.
type Tracker struct {
	mu sync.Mutex

	StrategyID string
	strategy   *tree.Node
	burnIn     time.Duration

	state       models.LifecycleState
	startedAt   time.Time
	started     bool
	equity      float64
	peak        float64
	drawdown    float64
	eventsSeen  int
	lastEvent   time.Time
	position    int
	entryPrice  float64
	transitions []models.LifecycleTransition
}

// TrackerStatus is a read-only snapshot of one paper-trading ledger.
type TrackerStatus struct {
	StrategyID    string                       `json:"strategy_id"`
	State         models.LifecycleState        `json:"state"`
	ElapsedHours  float64                      `json:"elapsed_hours"`
	VirtualEquity float64                      `json:"virtual_equity"`
	Drawdown      float64                      `json:"drawdown"`
	EventsSeen    int                          `json:"events_seen"`
	Ready         bool                         `json:"ready"`
	Transitions   []models.LifecycleTransition `json:"transitions"`
}

// NewTracker opens a paper-trading ledger for an approved strategy.
func NewTracker(strategyID string, strategy *tree.Node, cfg Config) *Tracker {
	t := &Tracker{
		StrategyID: strategyID,
		strategy:   strategy,
		burnIn:     time.Duration(cfg.BurnInHours * float64(time.Hour)),
		state:      models.LifecycleValidating,
		equity:     cfg.StartingEquity,
		peak:       cfg.StartingEquity,
	}
	t.transition(models.LifecyclePaperTrading, "approved by validation gauntlet")
	return t
}

// Process replays one market event through the strategy, mirroring the
// batch simulator's ledger semantics incrementally.
func (t *Tracker) Process(event models.MarketEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if event.Price <= 0 {
		return
	}
	if !t.started {
		t.started = true
		t.startedAt = event.Timestamp
	}
	t.lastEvent = event.Timestamp
	t.eventsSeen++

	decision := tree.Evaluate(t.strategy, event.Snapshot(), event.Regime)

	closePosition := func(price float64) {
		pnl := float64(t.position) * (price - t.entryPrice) / t.entryPrice
		t.equity *= 1 + pnl
		t.position = 0
	}

	switch decision.Action {
	case models.ActionBuy:
		if t.position < 0 {
			closePosition(event.Price)
		}
		if t.position == 0 {
			t.position = 1
			t.entryPrice = event.Price
		}
	case models.ActionSell:
		if t.position > 0 {
			closePosition(event.Price)
		}
		if t.position == 0 {
			t.position = -1
			t.entryPrice = event.Price
		}
	case models.ActionClose:
		if t.position != 0 {
			closePosition(event.Price)
		}
	}

	mark := t.equity
	if t.position != 0 {
		mark = t.equity * (1 + float64(t.position)*(event.Price-t.entryPrice)/t.entryPrice)
	}
	if mark > t.peak {
		t.peak = mark
	}
	if t.peak > 0 {
		if dd := (t.peak - mark) / t.peak; dd > t.drawdown {
			t.drawdown = dd
		}
	}

	if t.state == models.LifecyclePaperTrading && t.elapsedLocked() >= t.burnIn {
		t.transition(models.LifecycleReady, "paper-trading burn-in elapsed")
	}
}

// Status returns the current snapshot, including a copy of the transition
// log so callers cannot edit history.
func (t *Tracker) Status() TrackerStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TrackerStatus{
		StrategyID:    t.StrategyID,
		State:         t.state,
		ElapsedHours:  t.elapsedLocked().Hours(),
		VirtualEquity: t.equity,
		Drawdown:      t.drawdown,
		EventsSeen:    t.eventsSeen,
		Ready:         t.state == models.LifecycleReady,
		Transitions:   append([]models.LifecycleTransition(nil), t.transitions...),
	}
}

func (t *Tracker) elapsedLocked() time.Duration {
	if !t.started {
		return 0
	}
	return t.lastEvent.Sub(t.startedAt)
}

func (t *Tracker) transition(to models.LifecycleState, reason string) {
	t.transitions = append(t.transitions, models.LifecycleTransition{
		From:      t.state,
		To:        to,
		Timestamp: time.Now(),
		Reason:    reason,
	})
	t.state = to
}
