package guard

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"positionguard/internal/broker"
	"positionguard/internal/config"
	"positionguard/internal/models"
)

// fakeBroker records calls and returns scripted responses.
type fakeBroker struct {
	positions    []models.PositionRecord
	positionsErr error
	orders       []models.PlanOrderRecord
	ordersErr    error

	cancelErr  error
	cancelGone bool
	placeErr   error

	cancelled []string
	placed    []broker.PlacePlanRequest
}

func (f *fakeBroker) FetchPositions(ctx context.Context) ([]models.PositionRecord, error) {
	return f.positions, f.positionsErr
}

func (f *fakeBroker) FetchPlanOrders(ctx context.Context) ([]models.PlanOrderRecord, error) {
	return f.orders, f.ordersErr
}

func (f *fakeBroker) CancelPlanOrder(ctx context.Context, symbol, orderID string) (bool, error) {
	if f.cancelErr != nil {
		return false, f.cancelErr
	}
	f.cancelled = append(f.cancelled, orderID)
	return f.cancelGone, nil
}

func (f *fakeBroker) PlacePlanOrder(ctx context.Context, req broker.PlacePlanRequest) (string, error) {
	if f.placeErr != nil {
		return "", f.placeErr
	}
	f.placed = append(f.placed, req)
	return "new-order-id", nil
}

// fakeStore records flag writes.
type fakeStore struct {
	signals []models.Signal

	deactivated  []string
	levelsSaved  []models.Signal
	activeErr    error
	levelsErr    error
	readErr      error
}

func (f *fakeStore) SaveSignal(ctx context.Context, sig *models.Signal) error { return nil }

func (f *fakeStore) GetActiveSignals(ctx context.Context, userKey string) ([]models.Signal, error) {
	return f.signals, f.readErr
}

func (f *fakeStore) GetSignals(ctx context.Context, userKey string, includeInactive bool) ([]models.Signal, error) {
	return f.signals, f.readErr
}

func (f *fakeStore) UpdateActive(ctx context.Context, userKey, symbol string, positionType models.PositionSide, active bool) error {
	if f.activeErr != nil {
		return f.activeErr
	}
	f.deactivated = append(f.deactivated, symbol)
	return nil
}

func (f *fakeStore) UpdateLevels(ctx context.Context, sig *models.Signal) error {
	if f.levelsErr != nil {
		return f.levelsErr
	}
	f.levelsSaved = append(f.levelsSaved, *sig)
	return nil
}

func (f *fakeStore) Close() error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Guard: config.GuardConfig{
			Tolerance:      0.0001,
			PricePrecision: 4,
			SizePrecision:  4,
			UserKey:        "default",
			TrackSignals:   true,
		},
	}
}

func longPositionRecord(symbol, size, entry string) models.PositionRecord {
	return models.PositionRecord{Symbol: symbol, HoldSide: "long", Total: size, AverageOpenPrice: entry}
}

func TestRunSkipsWholePassWhenPositionsFail(t *testing.T) {
	b := &fakeBroker{
		positionsErr: errors.New("connection refused"),
		orders:       []models.PlanOrderRecord{{OrderID: "o1", Symbol: "BTCUSDT_UMCBL", Side: "close_long", Size: "1", TriggerPrice: "90"}},
	}
	runner := NewRunner(testConfig(), b, nil, zerolog.Nop(), false)

	summary, err := runner.Run(context.Background())
	if err == nil {
		t.Fatal("position failure must fail the pass")
	}
	if summary == nil || summary.FatalError == "" {
		t.Fatal("summary must still be produced with the fatal error recorded")
	}
	if len(b.cancelled)+len(b.placed) != 0 {
		t.Error("no corrections may be issued without a position snapshot")
	}
}

func TestRunOrderFailureSkipsCorrectionsButStillDeactivatesSignals(t *testing.T) {
	b := &fakeBroker{
		positions: []models.PositionRecord{longPositionRecord("BTCUSDT_UMCBL", "1.0", "100")},
		ordersErr: errors.New("timeout"),
	}
	// ETH signal has no live position and must be deactivated even though the
	// order snapshot is unavailable.
	ethSignal := models.Signal{UserKey: "default", Symbol: "ETHUSDT_UMCBL", PositionType: models.SideLong, IsActive: true}
	ethSignal.Levels[0].Price = 2100.0
	ethSignal.Levels[0].OrderPlaced = true
	st := &fakeStore{signals: []models.Signal{ethSignal}}

	runner := NewRunner(testConfig(), b, st, zerolog.Nop(), false)
	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("order failure must not fail the pass: %v", err)
	}
	if summary.OrdersQueryError == "" {
		t.Error("order query error should be recorded")
	}
	if len(b.cancelled)+len(b.placed) != 0 {
		t.Error("order corrections must be skipped without an order snapshot")
	}
	if len(st.deactivated) != 1 || st.deactivated[0] != "ETHUSDT_UMCBL" {
		t.Errorf("position-driven deactivation should still run, got %v", st.deactivated)
	}
	// Level flags cannot be judged without orders: no level writes allowed.
	if len(st.levelsSaved) != 0 {
		t.Errorf("level flags must not be written blind, got %d writes", len(st.levelsSaved))
	}
}

func TestRunShrinksOversizedStop(t *testing.T) {
	b := &fakeBroker{
		positions: []models.PositionRecord{longPositionRecord("BTCUSDT_UMCBL", "1.0", "100")},
		orders: []models.PlanOrderRecord{
			{OrderID: "o1", Symbol: "BTCUSDT_UMCBL", Side: "close_long", Size: "1.5", TriggerPrice: "90", OrderType: "limit"},
		},
	}
	runner := NewRunner(testConfig(), b, nil, zerolog.Nop(), false)

	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	if len(b.cancelled) != 1 || b.cancelled[0] != "o1" {
		t.Fatalf("old stop should be cancelled first, got %v", b.cancelled)
	}
	if len(b.placed) != 1 {
		t.Fatalf("replacement should be placed, got %d", len(b.placed))
	}
	placed := b.placed[0]
	if placed.Size != 1.0 || placed.TriggerPrice != 90.0 || placed.Side != models.OrderCloseLong {
		t.Errorf("replacement mis-built: %+v", placed)
	}
	if summary.Corrected != 1 {
		t.Errorf("summary should count the correction, got %d", summary.Corrected)
	}
	if len(summary.Unprotected) != 0 {
		t.Errorf("completed saga must not report unprotected, got %v", summary.Unprotected)
	}
}

func TestRunCancelFailureAbortsPlacement(t *testing.T) {
	b := &fakeBroker{
		positions: []models.PositionRecord{longPositionRecord("BTCUSDT_UMCBL", "1.0", "100")},
		orders: []models.PlanOrderRecord{
			{OrderID: "o1", Symbol: "BTCUSDT_UMCBL", Side: "close_long", Size: "1.5", TriggerPrice: "90", OrderType: "limit"},
		},
		cancelErr: errors.New("venue error 500"),
	}
	runner := NewRunner(testConfig(), b, nil, zerolog.Nop(), false)

	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	// Placing without a confirmed cancel would double the protection.
	if len(b.placed) != 0 {
		t.Fatalf("placement must be aborted after a failed cancel, got %d placements", len(b.placed))
	}
	if summary.Corrected != 0 {
		t.Errorf("nothing was corrected, got %d", summary.Corrected)
	}
	if len(summary.Unprotected) != 0 {
		t.Errorf("old order is still live, position is not unprotected: %v", summary.Unprotected)
	}
}

func TestRunToleratedGoneCancelStillPlaces(t *testing.T) {
	b := &fakeBroker{
		positions: []models.PositionRecord{longPositionRecord("BTCUSDT_UMCBL", "1.0", "100")},
		orders: []models.PlanOrderRecord{
			{OrderID: "o1", Symbol: "BTCUSDT_UMCBL", Side: "close_long", Size: "1.5", TriggerPrice: "90", OrderType: "limit"},
		},
		cancelGone: true, // the order vanished between snapshot and cancel
	}
	runner := NewRunner(testConfig(), b, nil, zerolog.Nop(), false)

	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	if len(b.placed) != 1 {
		t.Fatalf("an already-gone old order must not block the replacement, got %d placements", len(b.placed))
	}
	if summary.Corrected != 1 {
		t.Errorf("summary should count the correction, got %d", summary.Corrected)
	}
}

func TestRunPlaceFailureReportsUnprotected(t *testing.T) {
	b := &fakeBroker{
		positions: []models.PositionRecord{longPositionRecord("BTCUSDT_UMCBL", "1.0", "100")},
		orders: []models.PlanOrderRecord{
			{OrderID: "o1", Symbol: "BTCUSDT_UMCBL", Side: "close_long", Size: "1.5", TriggerPrice: "90", OrderType: "limit"},
		},
		placeErr: errors.New("insufficient margin"),
	}
	runner := NewRunner(testConfig(), b, nil, zerolog.Nop(), false)

	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	if len(summary.Unprotected) != 1 || summary.Unprotected[0] != "BTCUSDT_UMCBL" {
		t.Errorf("cancel-then-failed-place window must be reported, got %v", summary.Unprotected)
	}
}

func TestRunDryRunTouchesNothing(t *testing.T) {
	b := &fakeBroker{
		positions: []models.PositionRecord{longPositionRecord("BTCUSDT_UMCBL", "1.0", "100")},
		orders: []models.PlanOrderRecord{
			{OrderID: "o1", Symbol: "BTCUSDT_UMCBL", Side: "close_long", Size: "1.5", TriggerPrice: "90", OrderType: "limit"},
			{OrderID: "dead", Symbol: "ETHUSDT_UMCBL", Side: "close_long", Size: "1", TriggerPrice: "2000", OrderType: "limit"},
		},
	}
	ethSignal := models.Signal{UserKey: "default", Symbol: "ETHUSDT_UMCBL", PositionType: models.SideLong, IsActive: true}
	ethSignal.Levels[0].Price = 2100.0
	st := &fakeStore{signals: []models.Signal{ethSignal}}

	runner := NewRunner(testConfig(), b, st, zerolog.Nop(), true)
	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	if !summary.DryRun {
		t.Error("summary should be flagged dry-run")
	}
	if summary.PlannedActions == 0 {
		t.Error("planned corrections should still be reported")
	}
	if len(b.cancelled)+len(b.placed) != 0 {
		t.Error("dry run must not touch the exchange")
	}
	if len(st.deactivated)+len(st.levelsSaved) != 0 {
		t.Error("dry run must not write to the signal store")
	}
}

func TestRunTracksTakeProfitLevels(t *testing.T) {
	// BTC long is open, its TP1 order sits on the book at the planned price.
	b := &fakeBroker{
		positions: []models.PositionRecord{longPositionRecord("BTCUSDT_UMCBL", "1.0", "100")},
		orders: []models.PlanOrderRecord{
			{OrderID: "sl", Symbol: "BTCUSDT_UMCBL", Side: "close_long", Size: "1.0", TriggerPrice: "90", OrderType: "limit"},
			{OrderID: "tp", Symbol: "BTCUSDT_UMCBL", Side: "close_long", Size: "0.5", TriggerPrice: "110", OrderType: "limit"},
		},
	}
	btcSignal := models.Signal{UserKey: "default", Symbol: "BTCUSDT_UMCBL", PositionType: models.SideLong, IsActive: true}
	btcSignal.Levels[0].Price = 110.0
	st := &fakeStore{signals: []models.Signal{btcSignal}}

	runner := NewRunner(testConfig(), b, st, zerolog.Nop(), false)
	summary, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("pass failed: %v", err)
	}
	if summary.LevelsPlaced != 1 {
		t.Errorf("TP1 should be marked placed, got %d", summary.LevelsPlaced)
	}
	if len(st.levelsSaved) != 1 || !st.levelsSaved[0].Levels[0].OrderPlaced {
		t.Errorf("placed flag should be persisted, got %+v", st.levelsSaved)
	}
	if len(st.deactivated) != 0 {
		t.Errorf("open position must keep the signal active, got %v", st.deactivated)
	}
}
