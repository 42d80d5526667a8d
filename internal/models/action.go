package models

// ActionType represents the kind of corrective action.
type ActionType string

const (
	ActionCancel  ActionType = "CANCEL"
	ActionReplace ActionType = "REPLACE"
)

// ActionReason explains why an action was planned.
type ActionReason string

const (
	ReasonOrphan    ActionReason = "orphan"    // order on a symbol with no open position
	ReasonDuplicate ActionReason = "duplicate" // non-optimal stop-loss removed by consolidation
	ReasonConflict  ActionReason = "conflict"  // redundant next to attached protection
	ReasonOversize  ActionReason = "oversize"  // stop-loss larger than the live position
)

// CorrectiveAction is the engine's sole output unit. It carries no side
// effect itself; the executor applies it against the exchange.
//
// For ActionReplace, OrderID names the order to cancel first and
// NewSize/Side/TriggerPrice describe the order placed in its stead.
type CorrectiveAction struct {
	Type    ActionType
	Reason  ActionReason
	Symbol  string
	OrderID string

	NewSize      float64
	Side         OrderSide
	TriggerPrice float64
}
