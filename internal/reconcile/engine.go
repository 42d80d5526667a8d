package reconcile

import (
	"sort"

	"github.com/rs/zerolog"

	"positionguard/internal/models"
)

// Engine is the reconciliation decision core. It is a pure function of its
// snapshot inputs plus the tolerance constant; all side effects live in the
// executor that consumes the resulting plan.
type Engine struct {
	cmp    Comparator
	logger zerolog.Logger
}

// NewEngine creates an engine with the given size-unit tolerance.
func NewEngine(tolerance float64, logger zerolog.Logger) *Engine {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Engine{
		cmp:    Comparator{Epsilon: tolerance},
		logger: logger,
	}
}

// Plan is the engine's output: the ordered corrective actions plus the
// anomalies worth reporting in the pass summary.
type Plan struct {
	Actions []models.CorrectiveAction

	MissingStops []string // symbols with an open position but no stop protection
	Undersized   []string // symbols whose stop covers less than the position (reported, never grown)
	Conflicts    []string // symbols whose conditional orders clashed with attached protection
	Fallbacks    []string // symbols classified without an entry price
	OrphanCount  int      // orders cancelled because their symbol has no position
}

// Reconcile computes the minimal corrective actions for the given snapshots.
// Per-position corrections run first; the orphan sweep runs last over the
// full symbol sets so that a symbol mid-correction is never mistaken for
// orphaned.
func (e *Engine) Reconcile(positions map[models.PositionKey]models.Position, orders map[string][]models.ConditionalOrder) *Plan {
	plan := &Plan{}

	for _, key := range sortedPositionKeys(positions) {
		e.reconcilePosition(plan, positions[key], orders[key.Symbol])
	}

	e.sweepOrphans(plan, positions, orders)

	return plan
}

// reconcilePosition runs classification, conflict precedence, consolidation
// and size correction for one position.
func (e *Engine) reconcilePosition(plan *Plan, pos models.Position, symbolOrders []models.ConditionalOrder) {
	logger := e.logger.With().Str("symbol", pos.Symbol).Str("side", string(pos.Side)).Logger()

	classified, usedFallback := e.Classify(pos, symbolOrders)
	if usedFallback {
		plan.Fallbacks = append(plan.Fallbacks, pos.Symbol)
		logger.Warn().Msg("Entry price unknown, treating all closing orders as stop-loss candidates")
	}

	var stops, takes []models.ClassifiedOrder
	for _, order := range classified {
		switch order.Role {
		case models.RoleStopLoss:
			stops = append(stops, order)
		case models.RoleTakeProfit:
			takes = append(takes, order)
		}
	}

	// Attached protection is authoritative: every conditional order found for
	// the symbol is redundant and correction is skipped this pass.
	if pos.HasAttachedProtection() {
		if len(stops)+len(takes) > 0 {
			plan.Conflicts = append(plan.Conflicts, pos.Symbol)
		}
		for _, order := range append(stops, takes...) {
			logger.Warn().Str("order_id", order.ID).Float64("trigger", order.TriggerPrice).
				Msg("Conditional order conflicts with attached protection, cancelling")
			plan.Actions = append(plan.Actions, models.CorrectiveAction{
				Type:    models.ActionCancel,
				Reason:  models.ReasonConflict,
				Symbol:  pos.Symbol,
				OrderID: order.ID,
			})
		}
		return
	}

	effective, cancels, ok := e.Consolidate(pos, stops)
	if !ok {
		plan.MissingStops = append(plan.MissingStops, pos.Symbol)
		logger.Warn().Msg("Open position has no active stop-loss order")
		return
	}

	if len(cancels) > 0 {
		logger.Warn().Int("duplicates", len(cancels)).Str("optimal_order_id", effective.ID).
			Float64("consolidated_size", effective.Size).Msg("Multiple stop-loss orders, consolidating")
		plan.Actions = append(plan.Actions, cancels...)
	}

	// Only ever shrink an oversized guard. Growing one would invent a size
	// without an explicit signal; undersized coverage is reported instead.
	switch {
	case e.cmp.Greater(effective.Size, pos.Size):
		logger.Info().Float64("position_size", pos.Size).Float64("stop_size", effective.Size).
			Msg("Stop-loss oversized, planning cancel/replace")
		plan.Actions = append(plan.Actions, models.CorrectiveAction{
			Type:         models.ActionReplace,
			Reason:       models.ReasonOversize,
			Symbol:       pos.Symbol,
			OrderID:      effective.ID,
			NewSize:      pos.Size,
			Side:         pos.CloseSide(),
			TriggerPrice: effective.TriggerPrice,
		})
	case e.cmp.Less(effective.Size, pos.Size):
		plan.Undersized = append(plan.Undersized, pos.Symbol)
		logger.Debug().Float64("position_size", pos.Size).Float64("stop_size", effective.Size).
			Msg("Stop-loss covers only part of the position")
	}
}

// sweepOrphans cancels every conditional order whose symbol has no open
// position on any side. It consults only the position snapshot, which is
// independent of order placement timing.
func (e *Engine) sweepOrphans(plan *Plan, positions map[models.PositionKey]models.Position, orders map[string][]models.ConditionalOrder) {
	liveSymbols := make(map[string]bool, len(positions))
	for key := range positions {
		liveSymbols[key.Symbol] = true
	}

	for _, symbol := range sortedOrderSymbols(orders) {
		if liveSymbols[symbol] {
			continue
		}
		symbolOrders := orders[symbol]
		e.logger.Warn().Str("symbol", symbol).Int("orders", len(symbolOrders)).
			Msg("Orphaned conditional orders found, cancelling")
		for _, order := range symbolOrders {
			plan.Actions = append(plan.Actions, models.CorrectiveAction{
				Type:    models.ActionCancel,
				Reason:  models.ReasonOrphan,
				Symbol:  symbol,
				OrderID: order.ID,
			})
			plan.OrphanCount++
		}
	}
}

func sortedPositionKeys(positions map[models.PositionKey]models.Position) []models.PositionKey {
	keys := make([]models.PositionKey, 0, len(positions))
	for key := range positions {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Symbol != keys[j].Symbol {
			return keys[i].Symbol < keys[j].Symbol
		}
		return keys[i].Side < keys[j].Side
	})
	return keys
}

func sortedOrderSymbols(orders map[string][]models.ConditionalOrder) []string {
	symbols := make([]string, 0, len(orders))
	for symbol := range orders {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
