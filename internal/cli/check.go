package cli

import (
	"github.com/spf13/cobra"

	"positionguard/internal/broker"
	"positionguard/internal/guard"
)

func newCheckCmd(app *App) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Run one reconciliation pass",
		Long: `Run a single reconciliation pass against the exchange.

Fetches open positions and pending plan orders, then corrects protective
orders: oversized stop-losses are shrunk to the live position size, duplicate
stop-losses are consolidated onto the best trigger, and orders on symbols
with no open position are cancelled. Persisted take-profit signals are
tracked against the snapshots.

With --dry-run the pass plans everything but issues no cancellations,
placements, or database writes.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()

			if err := app.Config.ValidateCredentials(); err != nil {
				output.Error("Cannot run pass: %v", err)
				return err
			}

			clock := broker.NewTimeSync()
			if err := clock.Sync(ctx, app.Config.Exchange.BaseURL, app.Logger); err != nil {
				app.Logger.Warn().Err(err).Msg("Server time sync failed, using local clock")
			}

			b := broker.NewBitgetBroker(app.Config, clock, app.Logger)
			runner := guard.NewRunner(app.Config, b, app.Signals, app.Logger, dryRun)

			summary, err := runner.Run(ctx)
			if summary != nil {
				printSummary(output, summary)
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "plan corrections without issuing them")

	return cmd
}

func printSummary(output *Output, s *guard.Summary) {
	if output.IsJSON() {
		output.JSON(s)
		return
	}

	if s.DryRun {
		output.Info("Dry run: no orders were touched")
	}
	output.Bold("Pass Summary")
	output.Printf("  Positions:       %d\n", s.Positions)
	output.Printf("  Plan Orders:     %d\n", s.Orders)
	output.Printf("  Planned Actions: %d\n", s.PlannedActions)
	if !s.DryRun {
		output.Printf("  Corrected:       %d\n", s.Corrected)
		output.Printf("  Cancelled:       %d\n", s.Cancelled)
		if s.CancelFailures > 0 {
			output.Warning("  Cancel Failures: %d", s.CancelFailures)
		}
	}
	if s.OrphansPlanned > 0 {
		output.Printf("  Orphans Swept:   %d\n", s.OrphansPlanned)
	}
	for _, symbol := range s.MissingStops {
		output.Warning("  Missing stop-loss: %s", symbol)
	}
	for _, symbol := range s.Undersized {
		output.Warning("  Undersized stop-loss: %s", symbol)
	}
	for _, symbol := range s.Conflicts {
		output.Info("  Attached protection authoritative: %s", symbol)
	}
	for _, symbol := range s.Fallbacks {
		output.Dim("  Entry price unknown, treated all closers as stop-losses: %s", symbol)
	}
	for _, symbol := range s.Unprotected {
		output.Error("  UNPROTECTED until next pass: %s", symbol)
	}
	if s.OrdersQueryError != "" {
		output.Error("  Order query failed, corrections skipped: %s", s.OrdersQueryError)
	}

	if s.SignalsTracked > 0 {
		output.Println()
		output.Bold("Signals")
		output.Printf("  Tracked:     %d\n", s.SignalsTracked)
		output.Printf("  Deactivated: %d\n", s.SignalsDeactivated)
		output.Printf("  TP Placed:   %d\n", s.LevelsPlaced)
		output.Printf("  TP Cleared:  %d\n", s.LevelsCleared)
		output.Printf("  TP Reached:  %d\n", s.LevelsReached)
	}

	if s.FatalError != "" {
		output.Error("Pass failed: %s", s.FatalError)
	}
}
