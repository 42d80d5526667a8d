package reconcile

import "positionguard/internal/models"

// SignalUpdate describes the flag corrections for one persisted signal after
// correlating it against the live snapshots. The caller applies it to the
// store; the tracker itself writes nothing.
type SignalUpdate struct {
	Signal models.Signal // corrected copy

	Deactivated   bool
	PlacedSet     []int // 1-based levels newly marked as placed
	PlacedCleared []int // 1-based levels whose placed flag was corrected back
	Reached       []int // 1-based levels promoted to reached
}

// Changed reports whether any persisted field differs from the input signal.
func (u SignalUpdate) Changed() bool {
	return u.Deactivated || len(u.PlacedSet)+len(u.PlacedCleared)+len(u.Reached) > 0
}

// TrackSignal runs the per-level take-profit state machine for one signal.
//
// The venue exposes only order existence, not fills, so reaching a level is
// inferred from the disappearance of its order. A disappeared order on a
// still-open position is promoted to reached (a partial take-profit fill is
// the expected cause). When the whole position is gone in the same pass the
// placed flag is corrected back to false instead: the close could equally
// have been a stop-loss or manual intervention, and the tracker never claims
// reached on that evidence. Reached is terminal and monotonic; it is never
// reset regardless of later observations.
func (e *Engine) TrackSignal(sig models.Signal, positions map[models.PositionKey]models.Position, orders map[string][]models.ConditionalOrder) SignalUpdate {
	update := SignalUpdate{Signal: sig}

	key := models.PositionKey{Symbol: sig.Symbol, Side: sig.PositionType}
	_, positionOpen := positions[key]

	closeSide := models.OrderCloseLong
	if sig.PositionType == models.SideShort {
		closeSide = models.OrderCloseShort
	}

	for i := range update.Signal.Levels {
		level := &update.Signal.Levels[i]
		if !level.Set() || level.Reached {
			continue
		}

		observed := false
		for _, order := range orders[sig.Symbol] {
			if order.Side == closeSide && e.cmp.Equal(order.TriggerPrice, level.Price) {
				observed = true
				break
			}
		}

		switch {
		case observed && !level.OrderPlaced:
			level.OrderPlaced = true
			update.PlacedSet = append(update.PlacedSet, i+1)
		case !observed && level.OrderPlaced && positionOpen:
			level.Reached = true
			update.Reached = append(update.Reached, i+1)
		case !observed && level.OrderPlaced && !positionOpen:
			level.OrderPlaced = false
			update.PlacedCleared = append(update.PlacedCleared, i+1)
		}
	}

	if sig.IsActive && !positionOpen {
		update.Signal.IsActive = false
		update.Deactivated = true
	}

	return update
}
