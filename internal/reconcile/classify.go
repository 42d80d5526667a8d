package reconcile

import "positionguard/internal/models"

// Classify tags each conditional order on the position's symbol with its role
// relative to this position.
//
// Orders whose side does not close the position are irrelevant. When the
// entry price is known, a closing order triggering on the losing side of
// entry is a stop-loss, otherwise a take-profit. When the entry price is
// unknown every closing order is treated as a stop-loss: an ambiguous order
// must be size-corrected rather than silently ignored, so a position is never
// left unguarded because price data was missing. usedFallback reports that
// this conservative path was taken for at least one closing order.
func (e *Engine) Classify(pos models.Position, orders []models.ConditionalOrder) (classified []models.ClassifiedOrder, usedFallback bool) {
	for _, order := range orders {
		role := models.RoleIrrelevant

		if order.Side.Closes(pos.Side) {
			switch {
			case !pos.HasEntryPrice():
				role = models.RoleStopLoss
				usedFallback = true
			case pos.Side == models.SideLong && order.TriggerPrice < pos.EntryPrice:
				role = models.RoleStopLoss
			case pos.Side == models.SideShort && order.TriggerPrice > pos.EntryPrice:
				role = models.RoleStopLoss
			default:
				role = models.RoleTakeProfit
			}
		}

		classified = append(classified, models.ClassifiedOrder{
			ConditionalOrder: order,
			Role:             role,
		})
	}

	return classified, usedFallback
}
