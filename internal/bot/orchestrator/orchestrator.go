// Package orchestrator sequences one conversation turn: log the inbound
// message, consult the model, merge the parsed update into session state,
// route by category, attempt finalization, and respond. Every external
// failure inside a turn is caught exactly once and degraded; the caller
// always receives a well-formed result.
package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/otrade-bot/server/internal/bot/merge"
	"github.com/otrade-bot/server/internal/bot/model"
	"github.com/otrade-bot/server/internal/bot/parser"
	"github.com/otrade-bot/server/internal/bot/prompts"
	logx "github.com/otrade-bot/server/pkg/logger"
)

// DegradedReply is the only message a user ever sees when a turn fails
// internally.
const DegradedReply = "I'm sorry, I'm having trouble responding right now. Could you please try again?"

const (
	invoiceReadyNotice  = "Your invoice has been generated: "
	invoiceFailedNotice = "Your invoice could not be generated right now. Our team will follow up with it shortly."
)

// ErrOrderIncomplete is recorded when the model flags completion but the
// merged order is still missing required fields. It never reaches the user.
var ErrOrderIncomplete = errors.New("order fields incomplete")

// Step names the stations of the per-turn state machine.
type Step string

const (
	StepReceived          Step = "received"
	StepModelConsulted    Step = "model-consulted"
	StepStateMerged       Step = "state-merged"
	StepCategoryRouted    Step = "category-routed"
	StepFinalizeAttempted Step = "finalize-attempted"
	StepResponded         Step = "responded"
)

// StepOutcome records what happened at one station. A nil Err means the
// step succeeded or was skipped cleanly.
type StepOutcome struct {
	Step Step
	Err  error
}

// Deps are the injected collaborators; tests substitute fakes.
type Deps struct {
	Sessions model.SessionStore
	Log      model.ConversationLog
	Catalog  model.CatalogProvider
	Gateway  model.ModelGateway
	Renderer model.DocumentRenderer
	Notifier model.Notifier
}

type Orchestrator struct {
	deps Deps
	cfg  model.ConversationConfig
}

func New(deps Deps, cfg model.ConversationConfig) *Orchestrator {
	return &Orchestrator{deps: deps, cfg: cfg}
}

// TurnRequest is one inbound user message.
type TurnRequest struct {
	SessionID   string
	Message     string
	PhoneNumber string
}

// TurnResult is the per-turn contract returned to the caller.
type TurnResult struct {
	SessionID       string
	Reply           string
	Category        model.Category
	ReadyForInvoice bool
	Update          model.StructuredUpdate
	Invoice         *model.Invoice
	Degraded        bool
	Outcomes        []StepOutcome
}

// ProcessTurn runs the full turn. It never returns an error or panics past
// its boundary; internal failures produce the fixed degraded reply.
func (o *Orchestrator) ProcessTurn(ctx context.Context, req TurnRequest) (res *TurnResult) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Str("session_id", req.SessionID).Msgf("turn panic recovered: %v", r)
			res = o.degrade(ctx, req)
		}
	}()

	res, err := o.runTurn(ctx, req)
	if err != nil {
		logx.Error().Err(err).Str("session_id", req.SessionID).Msg("turn failed")
		res = o.degrade(ctx, req)
	}
	return res
}

func (o *Orchestrator) runTurn(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	res := &TurnResult{SessionID: req.SessionID}
	track := func(step Step, err error) {
		if err != nil {
			logx.Warn().Err(err).Str("session_id", req.SessionID).Str("step", string(step)).Msg("step degraded")
		}
		res.Outcomes = append(res.Outcomes, StepOutcome{Step: step, Err: err})
	}

	// History is read before the inbound message is logged so the new
	// message is not replayed to the model twice.
	history, err := o.deps.Log.History(ctx, req.SessionID, o.cfg.HistoryTurns*2)
	if err != nil {
		history = nil
	}

	// received: user message logging is best-effort and never blocks the reply.
	track(StepReceived, o.deps.Log.Append(ctx, req.SessionID, model.ChatMessage{
		Role: model.RoleUser,
		Text: req.Message,
	}))

	sess := o.ensureSession(ctx, req)

	// model-consulted
	raw, err := o.deps.Gateway.Complete(ctx,
		prompts.SystemParts(sess.State, o.cfg.MaxStateKeys, o.cfg.MaxCatalogItems),
		history, req.Message)
	if err != nil {
		track(StepModelConsulted, err)
		return nil, fmt.Errorf("model gateway: %w", err)
	}
	reply, update := parser.Parse(raw)
	track(StepModelConsulted, nil)

	// state-merged: the store re-merges on write, so a failed write only
	// costs persistence for this turn, not correctness of the reply.
	sess.State, update = merge.Apply(sess.State, update)
	track(StepStateMerged, o.deps.Sessions.MergeWrite(ctx, sess.ID, sess.State))

	track(StepCategoryRouted, o.routeCategory(ctx, sess, update.Category))

	if update.ReadyForInvoice {
		reply = o.finalize(ctx, sess, reply, res, track)
	}

	// responded: assistant message carries the structured update as metadata.
	meta := update
	track(StepResponded, o.deps.Log.Append(ctx, req.SessionID, model.ChatMessage{
		Role:     model.RoleAssistant,
		Text:     reply,
		Metadata: &meta,
	}))

	res.Reply = reply
	res.Category = update.Category
	res.ReadyForInvoice = update.ReadyForInvoice
	res.Update = update
	return res, nil
}

// ensureSession loads the session, lazily creating it with a catalog preload
// on first contact. Store failures degrade to an in-memory session for the
// turn rather than failing it.
func (o *Orchestrator) ensureSession(ctx context.Context, req TurnRequest) *model.Session {
	sess, err := o.deps.Sessions.Get(ctx, req.SessionID)
	if err != nil {
		logx.Warn().Err(err).Str("session_id", req.SessionID).Msg("session load failed; continuing in-memory")
		return &model.Session{ID: req.SessionID, PhoneNumber: req.PhoneNumber}
	}
	if sess != nil {
		if sess.PhoneNumber == "" {
			sess.PhoneNumber = req.PhoneNumber
		}
		return sess
	}

	var initial model.SessionState
	initial.Cache.Catalog = o.loadCatalog(ctx)

	sess, err = o.deps.Sessions.Create(ctx, req.SessionID, req.PhoneNumber, initial)
	if err != nil {
		logx.Warn().Err(err).Str("session_id", req.SessionID).Msg("session create failed; continuing in-memory")
		return &model.Session{ID: req.SessionID, PhoneNumber: req.PhoneNumber, State: initial}
	}
	logx.Info().Str("session_id", req.SessionID).Int("catalog_items", len(initial.Cache.Catalog)).Msg("session created")
	return sess
}

// routeCategory triggers the only category side effect: catalog preload for
// the sourcing bucket, idempotent on the cached snapshot.
func (o *Orchestrator) routeCategory(ctx context.Context, sess *model.Session, category model.Category) error {
	if category != model.CategorySourcing || len(sess.State.Cache.Catalog) > 0 {
		return nil
	}
	items := o.loadCatalog(ctx)
	if len(items) == 0 {
		return nil
	}
	sess.State.Cache.Catalog = items
	if err := o.deps.Sessions.MergeWrite(ctx, sess.ID, sess.State); err != nil {
		return fmt.Errorf("persist catalog cache: %w", err)
	}
	logx.Info().Str("session_id", sess.ID).Int("count", len(items)).Msg("catalog cached for session")
	return nil
}

// loadCatalog fetches the catalog and projects it to the trimmed snapshot
// shape. Failures yield an empty snapshot; the turn continues without it.
func (o *Orchestrator) loadCatalog(ctx context.Context) []model.CatalogItem {
	products, err := o.deps.Catalog.List(ctx, o.cfg.CatalogPageSize)
	if err != nil {
		logx.Warn().Err(err).Msg("catalog fetch failed")
		return nil
	}
	items := make([]model.CatalogItem, 0, len(products))
	for _, p := range products {
		items = append(items, model.CatalogItem{Name: p.Name, Description: p.Description})
	}
	return items
}

// finalize attempts order construction and rendering. An incomplete order is
// reported internally and the flow continues without an invoice; a render
// failure appends a non-fatal notice to the reply.
func (o *Orchestrator) finalize(ctx context.Context, sess *model.Session, reply string, res *TurnResult, track func(Step, error)) string {
	order, ok := model.NewOrderRecord(sess.ID, sess.State.Order)
	if !ok {
		track(StepFinalizeAttempted, ErrOrderIncomplete)
		return reply
	}

	inv, err := o.deps.Renderer.Render(ctx, *order)
	if err != nil {
		track(StepFinalizeAttempted, err)
		return reply + "\n\n" + invoiceFailedNotice
	}

	res.Invoice = inv
	reply += "\n\n" + invoiceReadyNotice + inv.Reference

	if sess.PhoneNumber != "" {
		if err := o.deps.Notifier.Send(ctx, sess.PhoneNumber, invoiceReadyNotice+inv.Reference); err != nil {
			logx.Warn().Err(err).Str("session_id", sess.ID).Msg("invoice notification failed")
		}
	}
	track(StepFinalizeAttempted, nil)
	return reply
}

// degrade produces the fixed failure result and logs it to the conversation
// best-effort.
func (o *Orchestrator) degrade(ctx context.Context, req TurnRequest) *TurnResult {
	if err := o.deps.Log.Append(ctx, req.SessionID, model.ChatMessage{
		Role: model.RoleAssistant,
		Text: DegradedReply,
	}); err != nil {
		logx.Warn().Err(err).Str("session_id", req.SessionID).Msg("failed to log degraded reply")
	}
	return &TurnResult{
		SessionID: req.SessionID,
		Reply:     DegradedReply,
		Category:  model.DefaultCategory,
		Update:    model.DefaultUpdate(),
		Degraded:  true,
	}
}
