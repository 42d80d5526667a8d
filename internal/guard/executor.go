// Package guard orchestrates one reconciliation pass: snapshots in,
// corrective actions out, persisted signal flags corrected.
package guard

import (
	"context"

	"github.com/rs/zerolog"

	"positionguard/internal/broker"
	"positionguard/internal/logging"
	"positionguard/internal/models"
	"positionguard/internal/reconcile"
)

// ReplaceOutcome surfaces the two-step cancel/place saga of a stop-loss
// replacement. The venue has no atomic amend, so the old order can be gone
// while the new one is not yet placed; callers can alert on that window.
type ReplaceOutcome struct {
	Symbol     string
	OldOrderID string
	NewOrderID string
	Cancelled  bool
	OldGone    bool // the old order had already disappeared at cancel time
	Placed     bool
	Err        error
}

// Unprotected reports whether the saga stopped between cancel and place,
// leaving the position without its stop-loss until the next pass.
func (o ReplaceOutcome) Unprotected() bool {
	return o.Cancelled && !o.Placed
}

// ExecutionResult aggregates what the executor actually did.
type ExecutionResult struct {
	Cancelled      int
	CancelFailures int
	Replaces       []ReplaceOutcome
}

// Executor applies a plan's corrective actions against the exchange.
type Executor struct {
	broker broker.Broker
	logger zerolog.Logger
}

// NewExecutor creates an executor.
func NewExecutor(b broker.Broker, logger zerolog.Logger) *Executor {
	return &Executor{broker: b, logger: logger}
}

// Execute applies the plan in order. Within a symbol, cancel-before-place is
// mandatory for replacements and a hard cancel failure aborts only that
// symbol's placement. Plain cancels are best-effort: a failure is logged and
// the pass continues.
func (x *Executor) Execute(ctx context.Context, plan *reconcile.Plan) ExecutionResult {
	var result ExecutionResult

	for _, action := range plan.Actions {
		switch action.Type {
		case models.ActionCancel:
			x.executeCancel(ctx, action, &result)
		case models.ActionReplace:
			result.Replaces = append(result.Replaces, x.executeReplace(ctx, action))
		}
	}

	return result
}

func (x *Executor) executeCancel(ctx context.Context, action models.CorrectiveAction, result *ExecutionResult) {
	gone, err := x.broker.CancelPlanOrder(ctx, action.Symbol, action.OrderID)
	if err != nil {
		x.logger.Error().Err(err).Str("symbol", action.Symbol).Str("order_id", action.OrderID).
			Str("reason", string(action.Reason)).Msg("Cancel failed")
		result.CancelFailures++
		return
	}
	logging.LogCancel(x.logger, action.Symbol, action.OrderID, string(action.Reason), gone)
	result.Cancelled++
}

func (x *Executor) executeReplace(ctx context.Context, action models.CorrectiveAction) ReplaceOutcome {
	outcome := ReplaceOutcome{
		Symbol:     action.Symbol,
		OldOrderID: action.OrderID,
	}

	gone, err := x.broker.CancelPlanOrder(ctx, action.Symbol, action.OrderID)
	if err != nil {
		// The cancel result gates the placement: placing on top of a live
		// order would double the protection.
		x.logger.Error().Err(err).Str("symbol", action.Symbol).Str("order_id", action.OrderID).
			Msg("Cancel failed, aborting replacement for this symbol")
		outcome.Err = err
		return outcome
	}
	outcome.Cancelled = true
	outcome.OldGone = gone
	if gone {
		x.logger.Warn().Str("symbol", action.Symbol).Str("order_id", action.OrderID).
			Msg("Old stop-loss already gone, placing replacement anyway")
	}

	newID, err := x.broker.PlacePlanOrder(ctx, broker.PlacePlanRequest{
		Symbol:       action.Symbol,
		Side:         action.Side,
		Size:         action.NewSize,
		TriggerPrice: action.TriggerPrice,
		OrderStyle:   "limit",
	})
	if err != nil {
		x.logger.Error().Err(err).Str("symbol", action.Symbol).
			Float64("size", action.NewSize).Float64("trigger", action.TriggerPrice).
			Msg("New stop-loss could not be placed, position unprotected until next pass")
		outcome.Err = err
		return outcome
	}

	outcome.Placed = true
	outcome.NewOrderID = newID
	logging.LogReplace(x.logger, action.Symbol, action.OrderID, newID, action.NewSize, action.TriggerPrice)
	return outcome
}
