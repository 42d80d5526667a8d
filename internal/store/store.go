// Package store provides persistence for planned take-profit signals.
package store

import (
	"context"

	"positionguard/internal/models"
)

// SignalStore defines the persisted-signal operations the guard needs.
// Signals are seeded by an external planning process; the guard only reads
// active rows and corrects their flags.
type SignalStore interface {
	// SaveSignal inserts or replaces a signal row.
	SaveSignal(ctx context.Context, sig *models.Signal) error

	// GetActiveSignals returns all active signals for a user.
	GetActiveSignals(ctx context.Context, userKey string) ([]models.Signal, error)

	// GetSignals returns signals for a user, optionally including inactive rows.
	GetSignals(ctx context.Context, userKey string, includeInactive bool) ([]models.Signal, error)

	// UpdateActive flips the is_active flag for one row. The guard only ever
	// sets it to false; reactivation belongs to the planner.
	UpdateActive(ctx context.Context, userKey, symbol string, positionType models.PositionSide, active bool) error

	// UpdateLevels persists the take-profit flags of one signal. Reached
	// flags are monotonic: the store never clears one that is already set.
	UpdateLevels(ctx context.Context, sig *models.Signal) error

	// Lifecycle
	Close() error
}
