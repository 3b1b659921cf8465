// Package setups defines the trade setup model, the archetype catalog
// with its candidate generators, the invariant validator, and the
// ranker/publisher.
package setups

import (
	"time"

	"trade-setup-engine/internal/market"
)

// Status represents the lifecycle status of a setup
type Status string

const (
	StatusForming     Status = "FORMING"
	StatusReady       Status = "READY"
	StatusTriggered   Status = "TRIGGERED"
	StatusInvalidated Status = "INVALIDATED"
	StatusExpired     Status = "EXPIRED"
)

// Terminal reports whether the status is irrevocable within a tick
func (s Status) Terminal() bool {
	return s == StatusInvalidated || s == StatusExpired
}

// Rank orders statuses for publishing: READY > TRIGGERED > FORMING >
// unknown > INVALIDATED > EXPIRED
func (s Status) Rank() int {
	switch s {
	case StatusReady:
		return 5
	case StatusTriggered:
		return 4
	case StatusForming:
		return 3
	case StatusInvalidated:
		return 1
	case StatusExpired:
		return 0
	default:
		return 2
	}
}

// Side represents the trade direction
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// EntryMode distinguishes resting limit entries from market entries
type EntryMode string

const (
	ModeLimit  EntryMode = "LIMIT"
	ModeMarket EntryMode = "MARKET"
)

// Zone is the entry price band
type Zone struct {
	Lo float64 `json:"lo"`
	Hi float64 `json:"hi"`
}

// Contains reports whether price sits inside the zone, inclusive
func (z Zone) Contains(price float64) bool {
	return price >= z.Lo && price <= z.Hi
}

// Width returns the zone height
func (z Zone) Width() float64 {
	return z.Hi - z.Lo
}

// Mid returns the zone midpoint
func (z Zone) Mid() float64 {
	return (z.Lo + z.Hi) / 2
}

// TriggerPlan carries the trigger-readiness state of the entry
type TriggerPlan struct {
	Confirmed bool             `json:"confirmed"`
	Tier      Tier             `json:"tier"`
	Checklist []ChecklistItem  `json:"checklist"`
	Summary   string           `json:"summary"`
	Timeframe market.Timeframe `json:"timeframe"` // declared close-confirm timeframe
}

// EntryPlan describes how the setup is entered
type EntryPlan struct {
	Mode    EntryMode   `json:"mode"`
	Zone    Zone        `json:"zone"`
	Trigger TriggerPlan `json:"trigger"`
}

// StopPlan describes the protective stop
type StopPlan struct {
	Price float64 `json:"price"`
	Basis string  `json:"basis"` // e.g. "below swing low", "beyond sweep wick"
}

// TakeProfitLeg is one ordered take-profit target
type TakeProfitLeg struct {
	Price   float64 `json:"price"`
	Portion float64 `json:"portion"` // fraction of position closed at this leg
	Label   string  `json:"label"`
}

// Confidence carries the scored conviction for a setup
type Confidence struct {
	Score     float64      `json:"score"` // 0-100
	Grade     market.Grade `json:"grade"`
	GradePlus market.Grade `json:"grade_plus"`
	Reasons   []string     `json:"reasons"`
}

// ExecState is the per-tick execution recommendation state
type ExecState string

const (
	ExecBlocked     ExecState = "BLOCKED"
	ExecMonitor     ExecState = "MONITOR"
	ExecNoTrade     ExecState = "NO_TRADE"
	ExecForming     ExecState = "FORMING"
	ExecWaitRetest  ExecState = "WAIT_RETEST"
	ExecWaitClose   ExecState = "WAIT_CLOSE"
	ExecWaitZone    ExecState = "WAIT_ZONE"
	ExecPlaceLimit  ExecState = "PLACE_LIMIT"
	ExecEnterMarket ExecState = "ENTER_MARKET"
	ExecWaitFill    ExecState = "WAIT_FILL"
)

// ExecutionDecision is derived fresh each tick and never feeds back
// into the canonical setup status
type ExecutionDecision struct {
	State          ExecState `json:"state"`
	CanEnterMarket bool      `json:"can_enter_market"`
	CanPlaceLimit  bool      `json:"can_place_limit"`
	Blockers       []string  `json:"blockers,omitempty"`
	Reason         string    `json:"reason"`
	Narrative      string    `json:"narrative"`
}

// SetupTelemetry is per-setup display telemetry attached at enrichment
type SetupTelemetry struct {
	TotalChecklistItems int     `json:"total_checklist_items"`
	PassedItems         int     `json:"passed_items"`
	BlockingItems       int     `json:"blocking_items"`
	ProgressPercent     float64 `json:"progress_percent"`
	AgeMs               int64   `json:"age_ms"`
	StalledMs           int64   `json:"stalled_ms"`
}

// TradeSetup is one actionable trade idea. Its identity is the stable
// ID, not the object: the same structural idea regenerated on a later
// tick carries the same ID and is re-bound to its runtime state.
type TradeSetup struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Archetype Archetype `json:"archetype"`
	Side      Side      `json:"side"`
	Status    Status    `json:"status"`

	BiasTimeframe    market.Timeframe `json:"bias_timeframe"`
	EntryTimeframe   market.Timeframe `json:"entry_timeframe"`
	TriggerTimeframe market.Timeframe `json:"trigger_timeframe"`

	Entry       EntryPlan       `json:"entry_plan"`
	Stop        StopPlan        `json:"stop_plan"`
	TakeProfits []TakeProfitLeg `json:"take_profit_legs"`

	RiskRewardMin float64 `json:"risk_reward_min"`
	RiskRewardEst float64 `json:"risk_reward_est"`

	Confidence  Confidence `json:"confidence"`
	Tags        []string   `json:"tags,omitempty"`
	AnchorPrice float64    `json:"anchor_price"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`

	// Per-tick enrichment, never part of canonical identity
	Execution         *ExecutionDecision `json:"execution_decision,omitempty"`
	Telemetry         *SetupTelemetry    `json:"telemetry,omitempty"`
	PriorityScore     float64            `json:"priority_score"`
	DisplayConfidence float64            `json:"display_confidence"`
}

// Direction returns +1 for long, -1 for short
func (s *TradeSetup) Direction() float64 {
	if s.Side == SideShort {
		return -1
	}
	return 1
}

// RiskDistance returns the price distance between the worst zone edge
// and the stop
func (s *TradeSetup) RiskDistance() float64 {
	if s.Side == SideLong {
		return s.Entry.Zone.Lo - s.Stop.Price
	}
	return s.Stop.Price - s.Entry.Zone.Hi
}

// StopBreached reports whether mid has crossed the stop adversely
func (s *TradeSetup) StopBreached(mid float64) bool {
	if s.Side == SideLong {
		return mid <= s.Stop.Price
	}
	return mid >= s.Stop.Price
}
