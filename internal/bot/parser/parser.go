// Package parser splits raw model output into the natural-language reply and
// the structured update carried on its trailing JSON object. The model is an
// untrusted oracle: every shape of malformed output must degrade to a usable
// (reply, update) pair rather than an error.
package parser

import (
	"encoding/json"
	"strings"

	"github.com/otrade-bot/server/internal/bot/model"
	logx "github.com/otrade-bot/server/pkg/logger"
)

// basic safety limits to avoid pathological inputs
const (
	maxContentLen = 64 * 1024 // 64KB of model output
	maxPayloadLen = 8 * 1024  // 8KB trailing JSON payload
)

// Parse returns the human-readable reply and the structured update extracted
// from raw model output. It never fails past its boundary: when no payload
// block can be parsed, the whole text becomes the reply and the update falls
// back to defaults.
func Parse(raw string) (reply string, update model.StructuredUpdate) {
	// panic safety
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("component", "response_parser").Msgf("panic recovered: %v", r)
			reply = raw
			update = model.DefaultUpdate()
		}
	}()

	update = model.DefaultUpdate()

	if raw == "" {
		return "", update
	}
	if len(raw) > maxContentLen {
		logx.Warn().
			Str("component", "response_parser").
			Int("max_len", maxContentLen).
			Int("orig_len", len(raw)).
			Msg("model output truncated due to size limit")
		raw = raw[:maxContentLen]
	}

	lines := nonEmptyLines(raw)
	if len(lines) == 0 {
		return "", update
	}

	// Fast path: payload on the final non-empty line, closing brace as the
	// last non-whitespace character.
	last := strings.TrimSpace(lines[len(lines)-1])
	if strings.HasPrefix(last, "{") && strings.HasSuffix(last, "}") {
		if fields, ok := decodePayload(last); ok {
			return strings.TrimSpace(strings.Join(lines[:len(lines)-1], "\n")), updateFrom(fields)
		}
	}

	// Fallback: last outermost payload block anywhere in the text.
	lastOpen := strings.LastIndex(raw, "{")
	lastClose := strings.LastIndex(raw, "}")
	if lastOpen > -1 && lastClose > lastOpen {
		if fields, ok := decodePayload(raw[lastOpen : lastClose+1]); ok {
			return strings.TrimSpace(raw[:lastOpen]), updateFrom(fields)
		}
	}

	// No parseable payload: the whole output is the reply.
	return strings.TrimSpace(raw), update
}

func nonEmptyLines(s string) []string {
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// decodePayload parses a candidate JSON object, retrying once with a
// single-quote-to-double-quote transform for models that emit Python-style
// dictionaries.
func decodePayload(s string) (map[string]any, bool) {
	if len(s) > maxPayloadLen {
		logx.Warn().
			Str("component", "response_parser").
			Int("payload_len", len(s)).
			Msg("payload block exceeds size limit")
		return nil, false
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err == nil {
		return m, true
	}

	relaxed := strings.ReplaceAll(s, "'", `"`)
	if err := json.Unmarshal([]byte(relaxed), &m); err != nil {
		logx.Debug().
			Str("component", "response_parser").
			Err(err).
			Msg("payload block failed to parse")
		return nil, false
	}
	return m, true
}

// updateFrom builds a structured update from decoded payload fields. Each
// field is validated independently; anything with the wrong type or an
// out-of-set value is treated as absent.
func updateFrom(fields map[string]any) model.StructuredUpdate {
	u := model.DefaultUpdate()
	if v := stringField(fields, "category"); v != "" {
		u.Category = model.ParseCategory(v)
	}
	u.ReadyForInvoice = boolField(fields, "ready_for_pdf")
	u.ProductName = stringField(fields, "product_name")
	u.Quantity = intField(fields, "quantity")
	u.QuantityUnit = stringField(fields, "quantity_unit")
	u.DestinationCountry = stringField(fields, "destination_country")
	u.City = stringField(fields, "city")
	u.StreetAddress = stringField(fields, "street_address")
	u.ShippingIncoterm = model.NormalizeIncoterm(stringField(fields, "shipping_incoterm"))
	u.PaymentOption = stringField(fields, "payment_option")
	return u
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func boolField(m map[string]any, key string) bool {
	v, ok := m[key].(bool)
	return ok && v
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case float64:
		if v > 0 {
			return int(v)
		}
	case string:
		// models occasionally quote numbers
		var n int
		for _, r := range strings.TrimSpace(v) {
			if r < '0' || r > '9' {
				return 0
			}
			n = n*10 + int(r-'0')
		}
		return n
	}
	return 0
}
