// Package merge applies a freshly parsed structured update to persisted
// session state under the no-downgrade policy: order fields only gain or
// correct information, never lose it.
package merge

import "github.com/otrade-bot/server/internal/bot/model"

// Apply combines stored state with a new update. For each order field, a
// non-empty update value overwrites the stored one; when the update omits a
// field the stored value is back-filled into the returned update so
// downstream completion checks see the full picture regardless of what the
// model repeated this turn. Category and the completion flag are taken
// verbatim from the update.
func Apply(state model.SessionState, update model.StructuredUpdate) (model.SessionState, model.StructuredUpdate) {
	mergeString(&state.Order.ProductName, &update.ProductName)
	mergeInt(&state.Order.Quantity, &update.Quantity)
	mergeString(&state.Order.QuantityUnit, &update.QuantityUnit)
	mergeString(&state.Order.DestinationCountry, &update.DestinationCountry)
	mergeString(&state.Order.City, &update.City)
	mergeString(&state.Order.StreetAddress, &update.StreetAddress)
	mergeString(&state.Order.ShippingIncoterm, &update.ShippingIncoterm)
	mergeString(&state.Order.PaymentOption, &update.PaymentOption)
	return state, update
}

func mergeString(stored, incoming *string) {
	switch {
	case *incoming != "":
		*stored = *incoming
	case *stored != "":
		*incoming = *stored
	}
}

func mergeInt(stored, incoming *int) {
	switch {
	case *incoming > 0:
		*stored = *incoming
	case *stored > 0:
		*incoming = *stored
	}
}
