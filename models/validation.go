package models

import "time"

// ValidationStage names one stage of the validation gauntlet.
type ValidationStage string

const (
	StageStructural   ValidationStage = "structural"
	StageWalkForward  ValidationStage = "walk_forward"
	StageRegimeStress ValidationStage = "regime_stress"
	StageApproved     ValidationStage = "approved"
)

// ValidationResult records the outcome of one (strategy, stage) pair.
// Results are append-only; a strategy's validation history is the ordered
// list of these.
type ValidationResult struct {
	Stage     ValidationStage `json:"stage"`
	Passed    bool            `json:"passed"`
	Score     float64         `json:"score"` // in [0,1]
	Details   map[string]any  `json:"details,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// LifecycleState tracks a strategy after it clears the gauntlet.
type LifecycleState string

const (
	LifecycleValidating   LifecycleState = "validating"
	LifecycleRejected     LifecycleState = "rejected"
	LifecyclePaperTrading LifecycleState = "paper_trading"
	LifecycleReady        LifecycleState = "ready"
)

// LifecycleTransition is one append-only entry in a strategy's state log.
type LifecycleTransition struct {
	From      LifecycleState `json:"from"`
	To        LifecycleState `json:"to"`
	Timestamp time.Time      `json:"timestamp"`
	Reason    string         `json:"reason"`
}
