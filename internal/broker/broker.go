// Package broker provides the signed Bitget transport for the position guard.
package broker

import (
	"context"

	"positionguard/internal/models"
)

// PlacePlanRequest describes a new conditional order to place.
type PlacePlanRequest struct {
	Symbol       string
	Side         models.OrderSide
	Size         float64
	TriggerPrice float64
	OrderStyle   string // execution style, e.g. "limit"
}

// Broker defines the exchange operations the guard needs. The reconciliation
// engine never touches this interface; only the pass runner does.
type Broker interface {
	// FetchPositions returns the raw open-position snapshot.
	FetchPositions(ctx context.Context) ([]models.PositionRecord, error)

	// FetchPlanOrders returns the raw pending conditional-order snapshot.
	FetchPlanOrders(ctx context.Context) ([]models.PlanOrderRecord, error)

	// CancelPlanOrder cancels one conditional order. gone is true when the
	// order no longer existed (a tolerated venue rejection), which is treated
	// like success for sequencing but distinguished in logs.
	CancelPlanOrder(ctx context.Context, symbol, orderID string) (gone bool, err error)

	// PlacePlanOrder places a new conditional order and returns its id.
	PlacePlanOrder(ctx context.Context, req PlacePlanRequest) (orderID string, err error)
}
