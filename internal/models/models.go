// Package models provides domain models for the position guard.
package models

// PositionSide represents the direction of an open position.
type PositionSide string

const (
	SideLong  PositionSide = "long"
	SideShort PositionSide = "short"
)

// Opposite returns the other position side.
func (s PositionSide) Opposite() PositionSide {
	if s == SideLong {
		return SideShort
	}
	return SideLong
}

// OrderSide represents the side of a plan order as reported by the exchange.
type OrderSide string

const (
	OrderOpenLong   OrderSide = "open_long"
	OrderOpenShort  OrderSide = "open_short"
	OrderCloseLong  OrderSide = "close_long"
	OrderCloseShort OrderSide = "close_short"
)

// Closes reports whether an order with this side closes a position on the
// given side.
func (s OrderSide) Closes(ps PositionSide) bool {
	return (ps == SideLong && s == OrderCloseLong) ||
		(ps == SideShort && s == OrderCloseShort)
}

// OrderRole is the derived role of a conditional order relative to one
// position.
type OrderRole string

const (
	RoleStopLoss   OrderRole = "stop_loss"
	RoleTakeProfit OrderRole = "take_profit"
	RoleIrrelevant OrderRole = "irrelevant"
)

// PositionKey identifies one position. A symbol can hold a long and a short
// side at the same time in hedge mode.
type PositionKey struct {
	Symbol string
	Side   PositionSide
}

// Position represents an open position. Rebuilt fresh every pass from the
// exchange snapshot, never persisted.
type Position struct {
	Symbol       string
	Side         PositionSide
	Size         float64
	EntryPrice   float64 // 0 when the exchange did not report one
	AttachedStop float64 // stop bound natively on the position, 0 when absent
	AttachedTake float64 // take-profit bound natively on the position, 0 when absent
}

// Key returns the composite key for this position.
func (p Position) Key() PositionKey {
	return PositionKey{Symbol: p.Symbol, Side: p.Side}
}

// HasEntryPrice reports whether a usable entry price was reported.
func (p Position) HasEntryPrice() bool {
	return p.EntryPrice > 0
}

// HasAttachedProtection reports whether the position carries a native stop or
// take-profit price. Attached protection is authoritative for the symbol.
func (p Position) HasAttachedProtection() bool {
	return p.AttachedStop > 0 || p.AttachedTake > 0
}

// CloseSide returns the order side that closes this position.
func (p Position) CloseSide() OrderSide {
	if p.Side == SideLong {
		return OrderCloseLong
	}
	return OrderCloseShort
}

// ConditionalOrder represents a pending trigger order on the exchange. The
// guard never mutates an order, it only issues cancel/place actions.
type ConditionalOrder struct {
	ID           string
	Symbol       string
	Side         OrderSide
	Size         float64
	TriggerPrice float64
	Kind         string // execution style (limit/market), orthogonal to the role
}

// ClassifiedOrder is a conditional order tagged with its derived role for one
// position. Transient, recomputed every pass.
type ClassifiedOrder struct {
	ConditionalOrder
	Role OrderRole
}
