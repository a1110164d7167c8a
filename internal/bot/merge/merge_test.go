package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/otrade-bot/server/internal/bot/model"
)

func TestApplyNewValuesOverwrite(t *testing.T) {
	state := model.SessionState{}
	update := model.DefaultUpdate()
	update.ProductName = "rice"
	update.Quantity = 10
	update.City = "Lagos"

	state, update = Apply(state, update)

	assert.Equal(t, "rice", state.Order.ProductName)
	assert.Equal(t, 10, state.Order.Quantity)
	assert.Equal(t, "Lagos", state.Order.City)
	assert.Equal(t, "rice", update.ProductName)
}

func TestApplyNoDowngrade(t *testing.T) {
	state := model.SessionState{}
	state.Order = model.OrderFields{
		ProductName:        "rice",
		Quantity:           10,
		QuantityUnit:       "carton",
		DestinationCountry: "Nigeria",
		City:               "Lagos",
		StreetAddress:      "12 Marina Rd",
		ShippingIncoterm:   model.IncotermFOB,
		PaymentOption:      "bank transfer",
	}

	// A turn where the model returns everything as null must not blank
	// any confirmed field.
	state, _ = Apply(state, model.DefaultUpdate())

	assert.Equal(t, "rice", state.Order.ProductName)
	assert.Equal(t, 10, state.Order.Quantity)
	assert.Equal(t, "carton", state.Order.QuantityUnit)
	assert.Equal(t, "Nigeria", state.Order.DestinationCountry)
	assert.Equal(t, "Lagos", state.Order.City)
	assert.Equal(t, "12 Marina Rd", state.Order.StreetAddress)
	assert.Equal(t, model.IncotermFOB, state.Order.ShippingIncoterm)
	assert.Equal(t, "bank transfer", state.Order.PaymentOption)
}

func TestApplyBackFill(t *testing.T) {
	state := model.SessionState{}
	state.Order.City = "Lagos"

	update := model.DefaultUpdate()
	update.PaymentOption = "letter of credit"

	_, update = Apply(state, update)

	assert.Equal(t, "Lagos", update.City, "omitted fields are back-filled from state")
	assert.Equal(t, "letter of credit", update.PaymentOption)
}

func TestApplyCorrectionOverwrites(t *testing.T) {
	state := model.SessionState{}
	state.Order.City = "Lagos"

	update := model.DefaultUpdate()
	update.City = "Abuja"

	state, update = Apply(state, update)

	// New non-empty values win; this is the only correction path.
	assert.Equal(t, "Abuja", state.Order.City)
	assert.Equal(t, "Abuja", update.City)
}

func TestApplyCategoryAndFlagVerbatim(t *testing.T) {
	state := model.SessionState{}

	update := model.DefaultUpdate()
	update.Category = model.CategoryPayments
	update.ReadyForInvoice = true

	_, update = Apply(state, update)

	assert.Equal(t, model.CategoryPayments, update.Category)
	assert.True(t, update.ReadyForInvoice)
}

func TestApplyLeavesCacheUntouched(t *testing.T) {
	state := model.SessionState{}
	state.Cache.Catalog = []model.CatalogItem{{Name: "rice", Description: "long grain"}}

	state, _ = Apply(state, model.DefaultUpdate())

	assert.Len(t, state.Cache.Catalog, 1)
}
