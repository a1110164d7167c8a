package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otrade-bot/server/internal/bot/model"
)

// ---------- fakes ----------

type memStore struct {
	sessions map[string]*model.Session
	getErr   error
	mergeErr error
	creates  int
}

func newMemStore() *memStore {
	return &memStore{sessions: map[string]*model.Session{}}
}

func (s *memStore) Get(_ context.Context, id string) (*model.Session, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	sess, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

func (s *memStore) Create(_ context.Context, id, phone string, initial model.SessionState) (*model.Session, error) {
	s.creates++
	sess := &model.Session{ID: id, PhoneNumber: phone, State: initial}
	s.sessions[id] = sess
	cp := *sess
	return &cp, nil
}

// MergeWrite mimics the field-level hash merge of the Redis store.
func (s *memStore) MergeWrite(_ context.Context, id string, partial model.SessionState) error {
	if s.mergeErr != nil {
		return s.mergeErr
	}
	sess, ok := s.sessions[id]
	if !ok {
		sess = &model.Session{ID: id}
		s.sessions[id] = sess
	}
	o := &sess.State.Order
	put := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	put(&o.ProductName, partial.Order.ProductName)
	put(&o.QuantityUnit, partial.Order.QuantityUnit)
	put(&o.DestinationCountry, partial.Order.DestinationCountry)
	put(&o.City, partial.Order.City)
	put(&o.StreetAddress, partial.Order.StreetAddress)
	put(&o.ShippingIncoterm, partial.Order.ShippingIncoterm)
	put(&o.PaymentOption, partial.Order.PaymentOption)
	if partial.Order.Quantity > 0 {
		o.Quantity = partial.Order.Quantity
	}
	if len(partial.Cache.Catalog) > 0 {
		sess.State.Cache.Catalog = partial.Cache.Catalog
	}
	return nil
}

type memLog struct {
	messages  map[string][]model.ChatMessage
	appendErr error
}

func newMemLog() *memLog {
	return &memLog{messages: map[string][]model.ChatMessage{}}
}

func (l *memLog) Append(_ context.Context, id string, msg model.ChatMessage) error {
	if l.appendErr != nil {
		return l.appendErr
	}
	l.messages[id] = append(l.messages[id], msg)
	return nil
}

func (l *memLog) History(_ context.Context, id string, limit int) ([]model.ChatMessage, error) {
	msgs := l.messages[id]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}

type fakeCatalog struct {
	products []model.Product
	err      error
	calls    int
}

func (c *fakeCatalog) List(_ context.Context, _ int) ([]model.Product, error) {
	c.calls++
	return c.products, c.err
}

type scriptedGateway struct {
	outputs []string
	err     error
	calls   int
	history [][]model.ChatMessage
}

func (g *scriptedGateway) Complete(_ context.Context, _ []string, history []model.ChatMessage, _ string) (string, error) {
	g.history = append(g.history, history)
	if g.err != nil {
		return "", g.err
	}
	i := g.calls
	if i >= len(g.outputs) {
		i = len(g.outputs) - 1
	}
	g.calls++
	return g.outputs[i], nil
}

type fakeRenderer struct {
	err    error
	orders []model.OrderRecord
}

func (r *fakeRenderer) Render(_ context.Context, order model.OrderRecord) (*model.Invoice, error) {
	r.orders = append(r.orders, order)
	if r.err != nil {
		return nil, r.err
	}
	return &model.Invoice{
		SessionID: order.SessionID,
		Number:    fmt.Sprintf("INV-20260901-%08d", len(r.orders)),
		Reference: fmt.Sprintf("invoices/invoice-%d.pdf", len(r.orders)),
		Order:     order,
		Total:     order.Total(),
		Currency:  "USD",
		Status:    model.InvoiceStatusPending,
	}, nil
}

type fakeNotifier struct {
	err   error
	sends []string
}

func (n *fakeNotifier) Send(_ context.Context, to, text string) error {
	n.sends = append(n.sends, to+": "+text)
	return n.err
}

type fixture struct {
	orc      *Orchestrator
	store    *memStore
	log      *memLog
	catalog  *fakeCatalog
	gateway  *scriptedGateway
	renderer *fakeRenderer
	notifier *fakeNotifier
}

func newFixture(outputs ...string) *fixture {
	f := &fixture{
		store:    newMemStore(),
		log:      newMemLog(),
		catalog:  &fakeCatalog{products: []model.Product{{Name: "rice", Description: "long grain"}}},
		gateway:  &scriptedGateway{outputs: outputs},
		renderer: &fakeRenderer{},
		notifier: &fakeNotifier{},
	}
	f.orc = New(Deps{
		Sessions: f.store,
		Log:      f.log,
		Catalog:  f.catalog,
		Gateway:  f.gateway,
		Renderer: f.renderer,
		Notifier: f.notifier,
	}, model.ConversationConfig{
		HistoryTurns:    4,
		MaxStateKeys:    12,
		MaxCatalogItems: 50,
		CatalogPageSize: 100,
	})
	return f
}

const turn1Output = "Got it, 10 cartons of rice to Lagos. What's the street address?\n" +
	`{"category": "Products & Sourcing", "ready_for_pdf": false, "product_name": "rice", "quantity": 10, "quantity_unit": "carton", "destination_country": "Nigeria", "city": "Lagos", "street_address": null, "shipping_incoterm": null, "payment_option": null}`

const turn2Output = "Perfect, your order is confirmed.\n" +
	`{"category": "Payments & Finance", "ready_for_pdf": true, "product_name": null, "quantity": null, "quantity_unit": null, "destination_country": null, "city": null, "street_address": "12 Marina Rd", "shipping_incoterm": "FOB", "payment_option": "bank transfer"}`

// ---------- tests ----------

func TestTurnOneCollectsFields(t *testing.T) {
	f := newFixture(turn1Output)

	res := f.orc.ProcessTurn(context.Background(), TurnRequest{
		SessionID: "s1",
		Message:   "I want 10 cartons of rice to Lagos",
	})

	require.False(t, res.Degraded)
	assert.Equal(t, "Got it, 10 cartons of rice to Lagos. What's the street address?", res.Reply)
	assert.Equal(t, model.CategorySourcing, res.Category)
	assert.False(t, res.ReadyForInvoice)
	assert.Nil(t, res.Invoice)

	stored := f.store.sessions["s1"].State.Order
	assert.Equal(t, "rice", stored.ProductName)
	assert.Equal(t, 10, stored.Quantity)
	assert.Equal(t, "carton", stored.QuantityUnit)
	assert.Equal(t, "Nigeria", stored.DestinationCountry)
	assert.Equal(t, "Lagos", stored.City)
	assert.Empty(t, stored.StreetAddress)

	// session was created lazily with a catalog preload
	assert.Equal(t, 1, f.store.creates)
	assert.Equal(t, 1, f.catalog.calls)
	assert.NotEmpty(t, f.store.sessions["s1"].State.Cache.Catalog)

	// both sides of the exchange were logged, assistant with metadata
	msgs := f.log.messages["s1"]
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
	require.NotNil(t, msgs[1].Metadata)
	assert.Equal(t, "rice", msgs[1].Metadata.ProductName)
}

func TestTurnTwoFinalizesFromMergedState(t *testing.T) {
	f := newFixture(turn1Output, turn2Output)
	ctx := context.Background()

	f.orc.ProcessTurn(ctx, TurnRequest{SessionID: "s1", Message: "10 cartons of rice to Lagos", PhoneNumber: "+234800"})
	res := f.orc.ProcessTurn(ctx, TurnRequest{SessionID: "s1", Message: "12 Marina Rd, FOB, bank transfer", PhoneNumber: "+234800"})

	require.False(t, res.Degraded)
	assert.True(t, res.ReadyForInvoice)
	require.NotNil(t, res.Invoice)
	assert.NotEmpty(t, res.Invoice.Number)
	assert.Contains(t, res.Reply, res.Invoice.Reference)

	// the renderer saw the full order, including turn-1 fields the model
	// did not repeat
	require.Len(t, f.renderer.orders, 1)
	order := f.renderer.orders[0]
	assert.Equal(t, "rice", order.Lines[0].Name)
	assert.Equal(t, 10, order.Quantity)
	assert.Equal(t, "Lagos", order.City)
	assert.Equal(t, model.IncotermFOB, order.ShippingIncoterm)

	// the update handed back was back-filled too
	assert.Equal(t, "rice", res.Update.ProductName)
	assert.Equal(t, "Nigeria", res.Update.DestinationCountry)

	// invoice reference relayed out-of-band
	require.Len(t, f.notifier.sends, 1)
	assert.Contains(t, f.notifier.sends[0], "+234800")
}

func TestUnparsablePayloadDegradesToDefaults(t *testing.T) {
	raw := "Let me check that for you.\n" + `{"category": "Payments & Fin`
	f := newFixture(raw)

	res := f.orc.ProcessTurn(context.Background(), TurnRequest{SessionID: "s1", Message: "hello"})

	require.False(t, res.Degraded)
	assert.Equal(t, "Let me check that for you.\n"+`{"category": "Payments & Fin`, res.Reply)
	// category resets to the default bucket rather than carrying the prior
	// turn's value
	assert.Equal(t, model.DefaultCategory, res.Category)
	assert.False(t, res.ReadyForInvoice)
}

func TestGatewayFailureYieldsFixedDegradedReply(t *testing.T) {
	f := newFixture()
	f.gateway.err = errors.New("model unavailable")

	res := f.orc.ProcessTurn(context.Background(), TurnRequest{SessionID: "s1", Message: "hello"})

	assert.True(t, res.Degraded)
	assert.Equal(t, DegradedReply, res.Reply)
	assert.Equal(t, model.DefaultCategory, res.Category)
	assert.Equal(t, model.DefaultUpdate(), res.Update)

	// degraded reply is still logged to the conversation
	msgs := f.log.messages["s1"]
	require.NotEmpty(t, msgs)
	assert.Equal(t, DegradedReply, msgs[len(msgs)-1].Text)
}

func TestCatalogPreloadIdempotent(t *testing.T) {
	f := newFixture(turn1Output, turn1Output)
	ctx := context.Background()

	f.orc.ProcessTurn(ctx, TurnRequest{SessionID: "s1", Message: "what do you sell?"})
	require.Equal(t, 1, f.catalog.calls)

	// second sourcing turn with the catalog already cached performs no fetch
	f.orc.ProcessTurn(ctx, TurnRequest{SessionID: "s1", Message: "and rice?"})
	assert.Equal(t, 1, f.catalog.calls)
}

func TestLogFailureDoesNotBlockReply(t *testing.T) {
	f := newFixture(turn1Output)
	f.log.appendErr = errors.New("log store down")

	res := f.orc.ProcessTurn(context.Background(), TurnRequest{SessionID: "s1", Message: "hello"})

	require.False(t, res.Degraded)
	assert.NotEqual(t, DegradedReply, res.Reply)
}

func TestMergeWriteFailureDoesNotBlockReply(t *testing.T) {
	f := newFixture(turn1Output)
	f.store.mergeErr = errors.New("store down")

	res := f.orc.ProcessTurn(context.Background(), TurnRequest{SessionID: "s1", Message: "hello"})

	require.False(t, res.Degraded)
	assert.Equal(t, "rice", res.Update.ProductName, "turn proceeds with in-memory state")

	var merged *StepOutcome
	for i := range res.Outcomes {
		if res.Outcomes[i].Step == StepStateMerged {
			merged = &res.Outcomes[i]
		}
	}
	require.NotNil(t, merged)
	assert.Error(t, merged.Err)
}

func TestIncompleteOrderSkipsInvoice(t *testing.T) {
	// completion flagged by the model on the very first turn, with most
	// fields still missing
	raw := "All set!\n" + `{"category": "Payments & Finance", "ready_for_pdf": true, "product_name": "rice"}`
	f := newFixture(raw)

	res := f.orc.ProcessTurn(context.Background(), TurnRequest{SessionID: "s1", Message: "done"})

	require.False(t, res.Degraded)
	assert.True(t, res.ReadyForInvoice)
	assert.Nil(t, res.Invoice)
	assert.Empty(t, f.renderer.orders)
	assert.Equal(t, "All set!", res.Reply, "no error notice surfaces to the user")

	var finalize *StepOutcome
	for i := range res.Outcomes {
		if res.Outcomes[i].Step == StepFinalizeAttempted {
			finalize = &res.Outcomes[i]
		}
	}
	require.NotNil(t, finalize)
	assert.ErrorIs(t, finalize.Err, ErrOrderIncomplete)
}

func TestRenderFailureAppendsNotice(t *testing.T) {
	f := newFixture(turn1Output, turn2Output)
	f.renderer.err = errors.New("disk full")
	ctx := context.Background()

	f.orc.ProcessTurn(ctx, TurnRequest{SessionID: "s1", Message: "10 cartons of rice to Lagos"})
	res := f.orc.ProcessTurn(ctx, TurnRequest{SessionID: "s1", Message: "12 Marina Rd, FOB, bank transfer"})

	require.False(t, res.Degraded)
	assert.Nil(t, res.Invoice)
	assert.Contains(t, res.Reply, invoiceFailedNotice)
	assert.Empty(t, f.notifier.sends)
}

func TestHistoryForwardedToGateway(t *testing.T) {
	f := newFixture(turn1Output, turn2Output)
	ctx := context.Background()

	f.orc.ProcessTurn(ctx, TurnRequest{SessionID: "s1", Message: "first"})
	f.orc.ProcessTurn(ctx, TurnRequest{SessionID: "s1", Message: "second"})

	require.Len(t, f.gateway.history, 2)
	// first turn starts cold; the second replays exactly the first exchange,
	// without duplicating the new user message
	assert.Empty(t, f.gateway.history[0])
	assert.Len(t, f.gateway.history[1], 2)
}
