package guard

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"positionguard/internal/broker"
	"positionguard/internal/config"
	"positionguard/internal/models"
	"positionguard/internal/reconcile"
	"positionguard/internal/store"
)

// Runner executes one reconciliation pass. The caller guarantees serial
// invocation: two passes must never run concurrently against the same
// account, or both could observe the same oversized stop-loss and issue
// duplicate corrections.
type Runner struct {
	cfg     *config.Config
	broker  broker.Broker
	signals store.SignalStore // nil when signal tracking is disabled
	engine  *reconcile.Engine
	logger  zerolog.Logger
	dryRun  bool
}

// NewRunner creates a pass runner. signals may be nil to disable the
// take-profit tracker.
func NewRunner(cfg *config.Config, b broker.Broker, signals store.SignalStore, logger zerolog.Logger, dryRun bool) *Runner {
	return &Runner{
		cfg:     cfg,
		broker:  b,
		signals: signals,
		engine:  reconcile.NewEngine(cfg.Guard.Tolerance, logger),
		logger:  logger,
		dryRun:  dryRun,
	}
}

// Run executes one pass and always returns a summary, even on failure. An
// unexpected fault is caught at this boundary and reported as fatal for the
// pass; corrections already committed stay committed.
func (r *Runner) Run(ctx context.Context) (summary *Summary, err error) {
	summary = &Summary{DryRun: r.dryRun}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("unexpected fault during pass: %v", rec)
			summary.FatalError = err.Error()
			r.logger.Error().Interface("panic", rec).Msg("Pass aborted by unexpected fault")
		}
	}()

	// Positions are the anchor of every decision: without them nothing can
	// be corrected safely and the whole pass is skipped.
	positionRecords, err := r.broker.FetchPositions(ctx)
	if err != nil {
		summary.FatalError = err.Error()
		return summary, fmt.Errorf("position query failed, skipping pass: %w", err)
	}
	positions := reconcile.NormalizePositions(positionRecords, r.logger)
	summary.Positions = len(positions)

	var orders map[string][]models.ConditionalOrder
	orderRecords, ordersErr := r.broker.FetchPlanOrders(ctx)
	if ordersErr != nil {
		// Order-dependent checks are skipped; position-driven signal status
		// correction below still runs.
		summary.OrdersQueryError = ordersErr.Error()
		r.logger.Error().Err(ordersErr).Msg("Plan order query failed, skipping order corrections")
	} else {
		orders = reconcile.NormalizeOrders(orderRecords, r.logger)
		for _, symbolOrders := range orders {
			summary.Orders += len(symbolOrders)
		}
	}

	if ordersErr == nil {
		plan := r.engine.Reconcile(positions, orders)
		summary.PlannedActions = len(plan.Actions)
		summary.OrphansPlanned = plan.OrphanCount
		summary.MissingStops = plan.MissingStops
		summary.Undersized = plan.Undersized
		summary.Conflicts = plan.Conflicts
		summary.Fallbacks = plan.Fallbacks

		if r.dryRun {
			r.logger.Info().Int("actions", len(plan.Actions)).Msg("Dry run, no actions issued")
		} else {
			result := NewExecutor(r.broker, r.logger).Execute(ctx, plan)
			summary.Cancelled = result.Cancelled
			summary.CancelFailures = result.CancelFailures
			for _, outcome := range result.Replaces {
				if outcome.Placed {
					summary.Corrected++
				}
				if outcome.Unprotected() {
					summary.Unprotected = append(summary.Unprotected, outcome.Symbol)
				}
			}
		}
	}

	r.trackSignals(ctx, summary, positions, orders, ordersErr == nil)

	r.logSummary(summary)
	return summary, nil
}

// trackSignals corrects persisted signal rows against the live snapshots.
// Status correction (is_active) only needs the position snapshot; level
// tracking additionally needs the order snapshot.
func (r *Runner) trackSignals(ctx context.Context, summary *Summary, positions map[models.PositionKey]models.Position, orders map[string][]models.ConditionalOrder, haveOrders bool) {
	if r.signals == nil || !r.cfg.Guard.TrackSignals {
		return
	}

	active, err := r.signals.GetActiveSignals(ctx, r.cfg.Guard.UserKey)
	if err != nil {
		r.logger.Error().Err(err).Msg("Signal store read failed, skipping tracker")
		return
	}
	summary.SignalsTracked = len(active)

	for _, sig := range active {
		update := r.engine.TrackSignal(sig, positions, orders)

		if !haveOrders {
			// Without an order snapshot, absence of a level's order means
			// nothing; only the position-driven deactivation is trustworthy.
			update.PlacedSet = nil
			update.PlacedCleared = nil
			update.Reached = nil
			update.Signal.Levels = sig.Levels
		}

		if !update.Changed() {
			continue
		}

		logger := r.logger.With().Str("symbol", sig.Symbol).Str("position_type", string(sig.PositionType)).Logger()

		if r.dryRun {
			logger.Info().Bool("deactivated", update.Deactivated).
				Ints("levels_reached", update.Reached).Msg("Dry run, signal update not written")
			continue
		}

		if update.Deactivated {
			if err := r.signals.UpdateActive(ctx, sig.UserKey, sig.Symbol, sig.PositionType, false); err != nil {
				logger.Error().Err(err).Msg("Signal deactivation write failed")
			} else {
				summary.SignalsDeactivated++
				logger.Info().Msg("Signal deactivated, position closed")
			}
		}

		if len(update.PlacedSet)+len(update.PlacedCleared)+len(update.Reached) > 0 {
			if err := r.signals.UpdateLevels(ctx, &update.Signal); err != nil {
				logger.Error().Err(err).Msg("Signal level write failed")
				continue
			}
			summary.LevelsPlaced += len(update.PlacedSet)
			summary.LevelsCleared += len(update.PlacedCleared)
			summary.LevelsReached += len(update.Reached)
			logger.Info().
				Ints("placed", update.PlacedSet).
				Ints("cleared", update.PlacedCleared).
				Ints("reached", update.Reached).
				Msg("Take-profit levels updated")
		}
	}
}

func (r *Runner) logSummary(summary *Summary) {
	r.logger.Info().
		Bool("dry_run", summary.DryRun).
		Int("positions", summary.Positions).
		Int("orders", summary.Orders).
		Int("planned_actions", summary.PlannedActions).
		Int("corrected", summary.Corrected).
		Int("cancelled", summary.Cancelled).
		Int("cancel_failures", summary.CancelFailures).
		Strs("missing_stops", summary.MissingStops).
		Strs("unprotected", summary.Unprotected).
		Int("signals_deactivated", summary.SignalsDeactivated).
		Int("levels_reached", summary.LevelsReached).
		Msg("Pass complete")
}
