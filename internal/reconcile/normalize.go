package reconcile

import (
	"strconv"

	"github.com/rs/zerolog"

	"positionguard/internal/models"
)

// NormalizePositions converts raw position records into canonical positions
// keyed by (symbol, side). Zero-size rows are dropped; a malformed record is
// logged and skipped so that one bad row never blocks the rest of the pass.
func NormalizePositions(records []models.PositionRecord, logger zerolog.Logger) map[models.PositionKey]models.Position {
	positions := make(map[models.PositionKey]models.Position)

	for _, rec := range records {
		if rec.Symbol == "" {
			logger.Warn().Msg("Position record without symbol, skipping")
			continue
		}

		size, err := strconv.ParseFloat(rec.Total, 64)
		if err != nil {
			logger.Warn().Str("symbol", rec.Symbol).Str("total", rec.Total).
				Msg("Unparseable position size, skipping record")
			continue
		}
		if size <= 0 {
			logger.Debug().Str("symbol", rec.Symbol).Msg("Ignoring zero-size position")
			continue
		}

		var side models.PositionSide
		switch rec.HoldSide {
		case string(models.SideLong):
			side = models.SideLong
		case string(models.SideShort):
			side = models.SideShort
		default:
			logger.Warn().Str("symbol", rec.Symbol).Str("hold_side", rec.HoldSide).
				Msg("Unknown position side, skipping record")
			continue
		}

		pos := models.Position{
			Symbol: rec.Symbol,
			Side:   side,
			Size:   size,
		}

		// Entry price is optional; a bad value degrades to "unknown" and the
		// classifier falls back to its conservative path.
		if rec.AverageOpenPrice != "" {
			entry, err := strconv.ParseFloat(rec.AverageOpenPrice, 64)
			if err != nil || entry <= 0 {
				logger.Warn().Str("symbol", rec.Symbol).Str("entry", rec.AverageOpenPrice).
					Msg("Unusable entry price, classification will fall back")
			} else {
				pos.EntryPrice = entry
			}
		}

		pos.AttachedStop = parseOptionalPrice(rec.StopLossPrice)
		pos.AttachedTake = parseOptionalPrice(rec.TakeProfitPrice)

		positions[pos.Key()] = pos
		logger.Debug().Str("symbol", pos.Symbol).Str("side", string(pos.Side)).
			Float64("size", pos.Size).Msg("Position found")
	}

	return positions
}

// NormalizeOrders converts raw plan order records into canonical conditional
// orders grouped by symbol. All sides are kept, including opening orders, so
// the orphan sweep can cancel everything on a dead symbol; the classifier
// decides relevance per position.
func NormalizeOrders(records []models.PlanOrderRecord, logger zerolog.Logger) map[string][]models.ConditionalOrder {
	orders := make(map[string][]models.ConditionalOrder)

	for _, rec := range records {
		if rec.Symbol == "" || rec.OrderID == "" || rec.Size == "" || rec.TriggerPrice == "" {
			logger.Warn().Str("symbol", rec.Symbol).Str("order_id", rec.OrderID).
				Msg("Incomplete plan order record, skipping")
			continue
		}

		size, err := strconv.ParseFloat(rec.Size, 64)
		if err != nil || size <= 0 {
			logger.Warn().Str("symbol", rec.Symbol).Str("order_id", rec.OrderID).
				Str("size", rec.Size).Msg("Unparseable plan order size, skipping record")
			continue
		}

		trigger, err := strconv.ParseFloat(rec.TriggerPrice, 64)
		if err != nil || trigger <= 0 {
			logger.Warn().Str("symbol", rec.Symbol).Str("order_id", rec.OrderID).
				Str("trigger_price", rec.TriggerPrice).Msg("Unparseable trigger price, skipping record")
			continue
		}

		order := models.ConditionalOrder{
			ID:           rec.OrderID,
			Symbol:       rec.Symbol,
			Side:         models.OrderSide(rec.Side),
			Size:         size,
			TriggerPrice: trigger,
			Kind:         rec.OrderType,
		}

		orders[order.Symbol] = append(orders[order.Symbol], order)
		logger.Debug().Str("symbol", order.Symbol).Str("order_id", order.ID).
			Float64("size", order.Size).Float64("trigger", order.TriggerPrice).
			Str("kind", order.Kind).Msg("Conditional order found")
	}

	return orders
}

func parseOptionalPrice(raw string) float64 {
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return 0
	}
	return v
}
