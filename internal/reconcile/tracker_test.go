package reconcile

import (
	"testing"

	"github.com/rs/zerolog"

	"positionguard/internal/models"
)

func activeSignal(symbol string, side models.PositionSide, prices ...float64) models.Signal {
	sig := models.Signal{
		UserKey:      "default",
		Symbol:       symbol,
		PositionType: side,
		IsActive:     true,
	}
	for i, p := range prices {
		sig.Levels[i].Price = p
	}
	return sig
}

func TestTrackSignalMarksObservedLevelPlaced(t *testing.T) {
	e := NewEngine(DefaultTolerance, zerolog.Nop())
	sig := activeSignal("BTCUSDT_UMCBL", models.SideLong, 110.0, 120.0)

	pos := longPosition(sig.Symbol, 1.0, 100.0)
	positions := map[models.PositionKey]models.Position{pos.Key(): pos}
	orders := map[string][]models.ConditionalOrder{
		sig.Symbol: {stopOrder("tp1", sig.Symbol, models.OrderCloseLong, 0.5, 110.0)},
	}

	update := e.TrackSignal(sig, positions, orders)
	if len(update.PlacedSet) != 1 || update.PlacedSet[0] != 1 {
		t.Fatalf("level 1 should be marked placed, got %v", update.PlacedSet)
	}
	if !update.Signal.Levels[0].OrderPlaced {
		t.Error("corrected signal should carry the placed flag")
	}
	if update.Signal.Levels[1].OrderPlaced {
		t.Error("level 2 has no matching order and must stay unplaced")
	}
	if update.Deactivated {
		t.Error("signal with a live position must stay active")
	}
}

func TestTrackSignalMatchesTriggerWithinTolerance(t *testing.T) {
	e := NewEngine(DefaultTolerance, zerolog.Nop())
	sig := activeSignal("BTCUSDT_UMCBL", models.SideLong, 110.0)

	pos := longPosition(sig.Symbol, 1.0, 100.0)
	positions := map[models.PositionKey]models.Position{pos.Key(): pos}
	orders := map[string][]models.ConditionalOrder{
		sig.Symbol: {stopOrder("tp1", sig.Symbol, models.OrderCloseLong, 0.5, 110.00005)},
	}

	update := e.TrackSignal(sig, positions, orders)
	if len(update.PlacedSet) != 1 {
		t.Errorf("trigger within tolerance of the level price should match, got %v", update.PlacedSet)
	}
}

func TestTrackSignalPromotesDisappearedOrderToReached(t *testing.T) {
	e := NewEngine(DefaultTolerance, zerolog.Nop())
	sig := activeSignal("BTCUSDT_UMCBL", models.SideLong, 110.0)
	sig.Levels[0].OrderPlaced = true

	// Position still open, order gone: a partial take-profit fill.
	pos := longPosition(sig.Symbol, 0.5, 100.0)
	positions := map[models.PositionKey]models.Position{pos.Key(): pos}

	update := e.TrackSignal(sig, positions, map[string][]models.ConditionalOrder{})
	if len(update.Reached) != 1 || update.Reached[0] != 1 {
		t.Fatalf("level 1 should be promoted to reached, got %v", update.Reached)
	}
	if !update.Signal.Levels[0].Reached {
		t.Error("corrected signal should carry the reached flag")
	}
	if update.Deactivated {
		t.Error("open position must keep the signal active")
	}
}

func TestTrackSignalClearsPlacedWhenPositionGone(t *testing.T) {
	e := NewEngine(DefaultTolerance, zerolog.Nop())
	sig := activeSignal("BTCUSDT_UMCBL", models.SideLong, 110.0)
	sig.Levels[0].OrderPlaced = true

	// Order and position both gone: the close could have been the stop-loss,
	// so the tracker must not claim the level was reached.
	update := e.TrackSignal(sig, map[models.PositionKey]models.Position{}, map[string][]models.ConditionalOrder{})
	if len(update.Reached) != 0 {
		t.Errorf("closed position must not promote levels to reached, got %v", update.Reached)
	}
	if len(update.PlacedCleared) != 1 || update.PlacedCleared[0] != 1 {
		t.Errorf("placed flag should be corrected back, got %v", update.PlacedCleared)
	}
	if update.Signal.Levels[0].OrderPlaced {
		t.Error("corrected signal should have placed cleared")
	}
	if !update.Deactivated {
		t.Error("signal without a position must be deactivated")
	}
	if update.Signal.IsActive {
		t.Error("corrected signal should be inactive")
	}
}

func TestTrackSignalReachedIsTerminal(t *testing.T) {
	e := NewEngine(DefaultTolerance, zerolog.Nop())
	sig := activeSignal("BTCUSDT_UMCBL", models.SideLong, 110.0)
	sig.Levels[0].OrderPlaced = true
	sig.Levels[0].Reached = true

	// Even with a matching order back on the book, a reached level is final.
	pos := longPosition(sig.Symbol, 1.0, 100.0)
	positions := map[models.PositionKey]models.Position{pos.Key(): pos}
	orders := map[string][]models.ConditionalOrder{
		sig.Symbol: {stopOrder("tp1", sig.Symbol, models.OrderCloseLong, 0.5, 110.0)},
	}

	update := e.TrackSignal(sig, positions, orders)
	if update.Changed() {
		t.Errorf("reached level must not change again: %+v", update)
	}
	if !update.Signal.Levels[0].Reached {
		t.Error("reached flag must never be reset")
	}
}

func TestTrackSignalSkipsUnsetLevels(t *testing.T) {
	e := NewEngine(DefaultTolerance, zerolog.Nop())
	sig := activeSignal("BTCUSDT_UMCBL", models.SideLong, 110.0) // levels 2 and 3 unset

	pos := longPosition(sig.Symbol, 1.0, 100.0)
	positions := map[models.PositionKey]models.Position{pos.Key(): pos}

	update := e.TrackSignal(sig, positions, map[string][]models.ConditionalOrder{})
	if len(update.PlacedSet)+len(update.PlacedCleared)+len(update.Reached) != 0 {
		t.Errorf("unset levels must not produce updates: %+v", update)
	}
}

func TestTrackSignalIgnoresWrongSideOrders(t *testing.T) {
	e := NewEngine(DefaultTolerance, zerolog.Nop())
	sig := activeSignal("BTCUSDT_UMCBL", models.SideShort, 90.0)

	pos := models.Position{Symbol: sig.Symbol, Side: models.SideShort, Size: 1.0, EntryPrice: 100.0}
	positions := map[models.PositionKey]models.Position{pos.Key(): pos}
	// A close_long at the level price belongs to the other side of the hedge.
	orders := map[string][]models.ConditionalOrder{
		sig.Symbol: {stopOrder("x", sig.Symbol, models.OrderCloseLong, 1.0, 90.0)},
	}

	update := e.TrackSignal(sig, positions, orders)
	if len(update.PlacedSet) != 0 {
		t.Errorf("order closing the opposite side must not match, got %v", update.PlacedSet)
	}
}

func TestTrackSignalSecondPassAfterReachedIsStable(t *testing.T) {
	e := NewEngine(DefaultTolerance, zerolog.Nop())
	sig := activeSignal("BTCUSDT_UMCBL", models.SideLong, 110.0, 120.0)
	sig.Levels[0].OrderPlaced = true

	pos := longPosition(sig.Symbol, 0.5, 100.0)
	positions := map[models.PositionKey]models.Position{pos.Key(): pos}

	first := e.TrackSignal(sig, positions, map[string][]models.ConditionalOrder{})
	if len(first.Reached) != 1 {
		t.Fatalf("setup: level 1 should reach, got %v", first.Reached)
	}

	second := e.TrackSignal(first.Signal, positions, map[string][]models.ConditionalOrder{})
	if second.Changed() {
		t.Errorf("re-tracking the corrected signal must be a no-op: %+v", second)
	}
}
