// Package prompts assembles the system prompt parts sent to the model
// gateway each turn: the strict output contract, the governor persona, the
// trimmed session state and an optional catalog excerpt.
package prompts

import (
	_ "embed"
	"encoding/json"
	"strings"

	"github.com/otrade-bot/server/internal/bot/model"
	logx "github.com/otrade-bot/server/pkg/logger"
)

//go:embed template/governor_prompt.txt
var governorPrompt string

// outputContract tells the model exactly how to shape its two-part output.
// The trailing JSON object is the only structured channel the service has,
// so the wording here is deliberately strict.
const outputContract = `You must output TWO parts:
1. A natural, human response (multi-line allowed).
2. On the FINAL line only, output a single JSON object representing the UPDATED STATE.
Never wrap the JSON in code fences. Never add text after it.

The JSON schema is exactly:
{
  "category": "Products & Sourcing" | "Logistics & Shipping" | "Payments & Finance" | "Guarantees & Quality" | "Relationship & Psychology",
  "ready_for_pdf": boolean,
  "product_name": string | null,
  "quantity": number | null,
  "quantity_unit": string | null,
  "destination_country": string | null,
  "city": string | null,
  "street_address": string | null,
  "shipping_incoterm": "FOB" | "CIF" | null,
  "payment_option": string | null
}

Rules:
- Only set "ready_for_pdf" to true once every field above is confirmed by the customer.
- Repeat previously confirmed values in the JSON whenever you know them.
- Use null for anything the customer has not stated yet.`

// SystemParts renders the ordered system prompt sections for one turn.
// State and catalog are trimmed to the configured caps to bound payload size.
func SystemParts(state model.SessionState, maxStateKeys, maxCatalogItems int) []string {
	parts := []string{outputContract, strings.TrimSpace(governorPrompt)}

	if s := stateJSON(state.Order, maxStateKeys); s != "" {
		parts = append(parts, "Current session state: "+s)
	}

	if len(state.Cache.Catalog) > 0 {
		catalog := state.Cache.Catalog
		if len(catalog) > maxCatalogItems {
			catalog = catalog[:maxCatalogItems]
		}
		if b, err := json.Marshal(catalog); err == nil {
			parts = append(parts, "Product catalog (subset): "+string(b))
		} else {
			logx.Warn().Err(err).Msg("failed to marshal catalog excerpt for prompt")
		}
	}

	return parts
}

// stateJSON serializes only the non-empty order fields, capped at maxKeys.
func stateJSON(f model.OrderFields, maxKeys int) string {
	fields := make(map[string]any)
	put := func(key, val string) {
		if val != "" && len(fields) < maxKeys {
			fields[key] = val
		}
	}
	put("product_name", f.ProductName)
	if f.Quantity > 0 && len(fields) < maxKeys {
		fields["quantity"] = f.Quantity
	}
	put("quantity_unit", f.QuantityUnit)
	put("destination_country", f.DestinationCountry)
	put("city", f.City)
	put("street_address", f.StreetAddress)
	put("shipping_incoterm", f.ShippingIncoterm)
	put("payment_option", f.PaymentOption)

	if len(fields) == 0 {
		return ""
	}
	b, err := json.Marshal(fields)
	if err != nil {
		logx.Warn().Err(err).Msg("failed to marshal session state for prompt")
		return ""
	}
	return string(b)
}
