package models

import "time"

// MaxTakeProfitLevels is the number of planned take-profit levels per signal.
const MaxTakeProfitLevels = 3

// TakeProfitLevel holds the persisted state of one planned take-profit level.
// Reached is monotonic: once true it is never reset by the guard.
type TakeProfitLevel struct {
	Price       float64 // 0 when the level is unset
	OrderPlaced bool
	Reached     bool
}

// Set reports whether this level carries a planned price.
func (l TakeProfitLevel) Set() bool {
	return l.Price > 0
}

// Signal is one persisted row of planned take-profit levels for a trade.
// Seeded by an external planning process; the guard only corrects its flags.
// IsActive is true only while a matching live position exists and is terminal
// once false.
type Signal struct {
	UserKey      string
	Symbol       string
	PositionType PositionSide
	Levels       [MaxTakeProfitLevels]TakeProfitLevel
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
