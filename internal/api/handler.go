// Package api exposes the HTTP surface of the assistant: a direct chat
// endpoint and the WhatsApp webhook.
package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/otrade-bot/server/internal/bot/model"
	"github.com/otrade-bot/server/internal/bot/orchestrator"
	"github.com/otrade-bot/server/internal/notify"
	logx "github.com/otrade-bot/server/pkg/logger"
)

// TurnProcessor runs one conversational turn.
type TurnProcessor interface {
	ProcessTurn(ctx context.Context, req orchestrator.TurnRequest) *orchestrator.TurnResult
}

// Handler handles HTTP requests.
type Handler struct {
	bot      TurnProcessor
	notifier model.Notifier
}

// NewHandler creates a new handler. The notifier relays webhook replies back
// over WhatsApp and may be nil when messaging is not configured.
func NewHandler(bot TurnProcessor, notifier model.Notifier) *Handler {
	return &Handler{bot: bot, notifier: notifier}
}

// RegisterRoutes registers routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Root)
	e.GET("/health", h.Health)
	e.POST("/chat", h.Chat)
	e.POST("/webhook/whatsapp", h.WhatsAppWebhook)
}

// ChatRequest is one inbound chat turn.
type ChatRequest struct {
	SessionID   string `json:"session_id"`
	Message     string `json:"message"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// ChatResponse is the reply for one turn.
type ChatResponse struct {
	SessionID   string                  `json:"session_id"`
	Response    string                  `json:"response"`
	Category    model.Category          `json:"category"`
	ReadyForPDF bool                    `json:"ready_for_pdf"`
	Metadata    *model.StructuredUpdate `json:"metadata,omitempty"`
	Invoice     *model.Invoice          `json:"invoice,omitempty"`
}

// Root reports service identity.
// GET /
func (h *Handler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "OTRADE Bot API is running",
		"version": "1.0.0",
	})
}

// Health returns health status.
// GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Chat runs a turn for an API client.
// POST /chat
func (h *Handler) Chat(c echo.Context) error {
	ctx := c.Request().Context()

	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if req.SessionID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "session_id is required"})
	}
	if req.Message == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "message is required"})
	}

	res := h.bot.ProcessTurn(ctx, orchestrator.TurnRequest{
		SessionID:   req.SessionID,
		Message:     req.Message,
		PhoneNumber: req.PhoneNumber,
	})

	meta := res.Update
	return c.JSON(http.StatusOK, ChatResponse{
		SessionID:   req.SessionID,
		Response:    res.Reply,
		Category:    res.Category,
		ReadyForPDF: res.ReadyForInvoice,
		Metadata:    &meta,
		Invoice:     res.Invoice,
	})
}

// WhatsAppWebhook handles inbound Twilio messages. The reply travels back
// over the messaging channel, so the webhook body stays empty; Twilio only
// cares about the status code.
// POST /webhook/whatsapp
func (h *Handler) WhatsAppWebhook(c echo.Context) error {
	ctx := c.Request().Context()

	from := c.FormValue("From")
	body := c.FormValue("Body")
	phone := notify.NormalizePhone(from)
	if phone == "" || body == "" {
		logx.Warn().Str("from", from).Msg("webhook message missing sender or body")
		return c.NoContent(http.StatusOK)
	}

	sessionID := "whatsapp_" + phone
	logx.Info().Str("session_id", sessionID).Msg("inbound whatsapp message")

	res := h.bot.ProcessTurn(ctx, orchestrator.TurnRequest{
		SessionID:   sessionID,
		Message:     body,
		PhoneNumber: phone,
	})

	if h.notifier != nil {
		if err := h.notifier.Send(ctx, phone, res.Reply); err != nil {
			logx.Error().Err(err).Str("session_id", sessionID).Msg("whatsapp reply failed")
		}
	}
	return c.NoContent(http.StatusOK)
}
