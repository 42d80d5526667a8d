package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"positionguard/internal/config"
	"positionguard/internal/logging"
	"positionguard/internal/store"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config  *config.Config
	Logger  zerolog.Logger
	Signals store.SignalStore
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// The signal store is optional: a missing database disables the
	// take-profit tracker but never blocks a correction pass.
	if cfg.Guard.TrackSignals {
		signalStore, err := store.NewSQLiteStore(cfg.Guard.DBPath)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to open signal store, take-profit tracking disabled")
		} else {
			app.Signals = signalStore
			logger.Debug().Str("db", cfg.Guard.DBPath).Msg("Signal store initialized")
		}
	}

	rootCmd := &cobra.Command{
		Use:   "positionguard",
		Short: "Bitget position guard - keeps protective orders in sync with open positions",
		Long: `Position Guard reconciles Bitget conditional stop-loss and take-profit
orders against the account's open futures positions.

Each invocation runs a single pass: oversized stop-losses are shrunk to the
live position size, duplicate stop-losses are consolidated, orders orphaned
by closed positions are cancelled, and persisted take-profit levels are
tracked. Schedule it with cron or a systemd timer.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.Signals != nil {
				_ = app.Signals.Close()
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/positionguard)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newCheckCmd(app))
	rootCmd.AddCommand(newSignalsCmd(app))
	rootCmd.AddCommand(newConfigCmd(app))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"version": Version})
			} else {
				output.Printf("Position Guard v%s\n", Version)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			cfg := app.Config
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"exchange": cfg.Exchange,
					"guard":    cfg.Guard,
					"logging":  cfg.Logging,
				})
			}
			output.Bold("Exchange")
			output.Printf("  Base URL:     %s\n", cfg.Exchange.BaseURL)
			output.Printf("  Product Type: %s\n", cfg.Exchange.ProductType)
			output.Printf("  Margin Coin:  %s\n", cfg.Exchange.MarginCoin)
			output.Printf("  Timeout:      %s\n", cfg.Exchange.RequestTimeout)
			output.Println()
			output.Bold("Guard")
			output.Printf("  Tolerance:       %g\n", cfg.Guard.Tolerance)
			output.Printf("  Price Precision: %d\n", cfg.Guard.PricePrecision)
			output.Printf("  Size Precision:  %d\n", cfg.Guard.SizePrecision)
			output.Printf("  User Key:        %s\n", cfg.Guard.UserKey)
			output.Printf("  Track Signals:   %v\n", cfg.Guard.TrackSignals)
			output.Printf("  DB Path:         %s\n", cfg.Guard.DBPath)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if err := app.Config.ValidateCredentials(); err != nil {
				output.Warning("Configuration valid, but credentials are incomplete: %v", err)
				return nil
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}
