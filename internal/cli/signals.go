package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"positionguard/internal/models"
)

func newSignalsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signals",
		Short: "Inspect persisted take-profit signals",
	}

	var showAll bool

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List take-profit signals for the configured user",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)

			if app.Signals == nil {
				output.Error("Signal store is not available")
				return fmt.Errorf("signal store unavailable")
			}

			signals, err := app.Signals.GetSignals(cmd.Context(), app.Config.Guard.UserKey, showAll)
			if err != nil {
				return fmt.Errorf("reading signals: %w", err)
			}

			if output.IsJSON() {
				return output.JSON(signals)
			}

			if len(signals) == 0 {
				output.Dim("No signals found")
				return nil
			}

			for _, sig := range signals {
				printSignal(output, sig)
			}
			return nil
		},
	}
	listCmd.Flags().BoolVar(&showAll, "all", false, "include inactive signals")

	cmd.AddCommand(listCmd)
	return cmd
}

func printSignal(output *Output, sig models.Signal) {
	status := "active"
	if !sig.IsActive {
		status = "inactive"
	}
	output.Bold("%s %s (%s)", sig.Symbol, sig.PositionType, status)
	for i, level := range sig.Levels {
		if !level.Set() {
			continue
		}
		state := "pending"
		switch {
		case level.Reached:
			state = "reached"
		case level.OrderPlaced:
			state = "placed"
		}
		output.Printf("  TP%d  %.4f  %s\n", i+1, level.Price, state)
	}
	output.Dim("  updated %s", sig.UpdatedAt.Format("2006-01-02 15:04:05"))
}
