package reconcile

import "positionguard/internal/models"

// Consolidate reduces multiple stop-loss candidates for one position to a
// single effective order. The optimal order minimizes loss: highest trigger
// for a long, lowest for a short. Triggers equal within tolerance tie-break
// on the larger size, which leaves fewer residual actions. The sizes of all
// cancelled duplicates are folded into the effective order so that removing
// them cannot drop total protection below the live position size.
//
// ok is false when there is no stop-loss candidate at all.
func (e *Engine) Consolidate(pos models.Position, stops []models.ClassifiedOrder) (effective models.ConditionalOrder, cancels []models.CorrectiveAction, ok bool) {
	switch len(stops) {
	case 0:
		return models.ConditionalOrder{}, nil, false
	case 1:
		return stops[0].ConditionalOrder, nil, true
	}

	optimal := stops[0]
	for _, cand := range stops[1:] {
		if e.betterStop(pos.Side, cand, optimal) {
			optimal = cand
		}
	}

	var sizeToAdd float64
	for _, stop := range stops {
		if stop.ID == optimal.ID {
			continue
		}
		sizeToAdd += stop.Size
		cancels = append(cancels, models.CorrectiveAction{
			Type:    models.ActionCancel,
			Reason:  models.ReasonDuplicate,
			Symbol:  pos.Symbol,
			OrderID: stop.ID,
		})
	}

	effective = optimal.ConditionalOrder
	effective.Size += sizeToAdd
	return effective, cancels, true
}

// betterStop reports whether candidate a is a strictly better stop-loss than
// b for the given position side.
func (e *Engine) betterStop(side models.PositionSide, a, b models.ClassifiedOrder) bool {
	if e.cmp.Equal(a.TriggerPrice, b.TriggerPrice) {
		return a.Size > b.Size
	}
	if side == models.SideLong {
		return a.TriggerPrice > b.TriggerPrice
	}
	return a.TriggerPrice < b.TriggerPrice
}
