package model

import (
	"strings"
	"time"
)

// Incoterm values accepted for an order. The model is told to emit one of
// these two; anything else is treated as unset.
const (
	IncotermFOB = "FOB"
	IncotermCIF = "CIF"
)

// NormalizeIncoterm upper-cases and validates an incoterm. It returns ""
// for anything outside the closed FOB/CIF set.
func NormalizeIncoterm(v string) string {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case IncotermFOB:
		return IncotermFOB
	case IncotermCIF:
		return IncotermCIF
	default:
		return ""
	}
}

// OrderFields is the fixed set of fields that gate invoice creation.
// A zero string or zero quantity means "not yet supplied".
type OrderFields struct {
	ProductName        string `json:"product_name,omitempty"`
	Quantity           int    `json:"quantity,omitempty"`
	QuantityUnit       string `json:"quantity_unit,omitempty"`
	DestinationCountry string `json:"destination_country,omitempty"`
	City               string `json:"city,omitempty"`
	StreetAddress      string `json:"street_address,omitempty"`
	ShippingIncoterm   string `json:"shipping_incoterm,omitempty"`
	PaymentOption      string `json:"payment_option,omitempty"`
}

// Complete reports whether every required order field has a non-empty value.
func (f OrderFields) Complete() bool {
	return f.ProductName != "" &&
		f.Quantity > 0 &&
		f.QuantityUnit != "" &&
		f.DestinationCountry != "" &&
		f.City != "" &&
		f.StreetAddress != "" &&
		f.ShippingIncoterm != "" &&
		f.PaymentOption != ""
}

// StructuredUpdate is the machine-readable tail of a model response. Every
// field is optional; the parser substitutes defaults when the payload is
// missing or malformed.
type StructuredUpdate struct {
	Category        Category `json:"category"`
	ReadyForInvoice bool     `json:"ready_for_pdf"`
	OrderFields
}

// DefaultUpdate is the fallback returned when no payload can be parsed.
func DefaultUpdate() StructuredUpdate {
	return StructuredUpdate{Category: DefaultCategory}
}

// OrderLine is a single product line on a finalized order.
type OrderLine struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Unit     string  `json:"unit"`
}

// OrderRecord is the finalized, immutable order handed to the renderer.
type OrderRecord struct {
	SessionID          string      `json:"session_id"`
	Lines              []OrderLine `json:"lines"`
	Quantity           int         `json:"quantity"`
	QuantityUnit       string      `json:"quantity_unit"`
	DestinationCountry string      `json:"destination_country"`
	City               string      `json:"city"`
	StreetAddress      string      `json:"street_address"`
	ShippingIncoterm   string      `json:"shipping_incoterm"`
	PaymentOption      string      `json:"payment_option"`
}

// NewOrderRecord builds a finalized order from session order fields. It
// returns ok=false when any required field is still missing, in which case
// no record exists at all.
func NewOrderRecord(sessionID string, f OrderFields) (*OrderRecord, bool) {
	if !f.Complete() {
		return nil, false
	}
	return &OrderRecord{
		SessionID: sessionID,
		Lines: []OrderLine{{
			Name:     f.ProductName,
			Price:    0, // wholesale pricing is quoted offline; invoices carry the line at zero
			Quantity: f.Quantity,
			Unit:     f.QuantityUnit,
		}},
		Quantity:           f.Quantity,
		QuantityUnit:       f.QuantityUnit,
		DestinationCountry: f.DestinationCountry,
		City:               f.City,
		StreetAddress:      f.StreetAddress,
		ShippingIncoterm:   f.ShippingIncoterm,
		PaymentOption:      f.PaymentOption,
	}, true
}

// Total sums price times quantity across all lines.
func (r *OrderRecord) Total() float64 {
	var total float64
	for _, l := range r.Lines {
		qty := l.Quantity
		if qty <= 0 {
			qty = 1
		}
		total += l.Price * float64(qty)
	}
	return total
}

// Invoice is the persisted record of a rendered order document.
type Invoice struct {
	ID        int64       `json:"id,omitempty"`
	SessionID string      `json:"session_id"`
	Number    string      `json:"invoice_number"`
	Reference string      `json:"pdf_url"`
	Order     OrderRecord `json:"order_data"`
	Total     float64     `json:"total_amount"`
	Currency  string      `json:"currency"`
	Status    string      `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Invoice lifecycle states. The core only ever creates invoices as pending;
// settlement happens outside this service.
const (
	InvoiceStatusPending = "pending"
	InvoiceStatusPaid    = "paid"
)

// Product is a catalog entry from the commerce backend.
type Product struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	StockQuantity *int    `json:"stock_quantity,omitempty"`
	Description   string  `json:"description,omitempty"`
}
