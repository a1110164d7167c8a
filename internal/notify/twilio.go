// Package notify relays outbound messages to WhatsApp through the Twilio
// Messages API.
package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	logx "github.com/otrade-bot/server/pkg/logger"
)

type Config struct {
	AccountSID     string `envconfig:"TWILIO_ACCOUNT_SID"`
	AuthToken      string `envconfig:"TWILIO_AUTH_TOKEN"`
	APIKeySID      string `envconfig:"TWILIO_API_KEY_SID"`
	APIKeySecret   string `envconfig:"TWILIO_API_KEY_SECRET"`
	WhatsAppNumber string `envconfig:"TWILIO_WHATSAPP_NUMBER"`
	BaseURL        string `envconfig:"TWILIO_BASE_URL" default:"https://api.twilio.com"`
	Timeout        int    `envconfig:"TWILIO_TIMEOUT" default:"10"`
}

// credentials prefers API-key auth (subaccount case) over the classic
// SID/auth-token pair.
func (c Config) credentials() (user, pass string, ok bool) {
	switch {
	case c.AccountSID != "" && c.APIKeySID != "" && c.APIKeySecret != "":
		return c.APIKeySID, c.APIKeySecret, true
	case c.AccountSID != "" && c.AuthToken != "":
		return c.AccountSID, c.AuthToken, true
	default:
		return "", "", false
	}
}

// WhatsApp implements model.Notifier. An unconfigured notifier reports send
// failures without treating them as errors worth surfacing to the turn.
type WhatsApp struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *WhatsApp {
	if _, _, ok := cfg.credentials(); !ok {
		logx.Warn().Msg("whatsapp notifier not configured: missing twilio credentials")
	}
	return &WhatsApp{
		cfg:  cfg,
		http: &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
	}
}

// Send posts one message to the recipient's WhatsApp number.
func (w *WhatsApp) Send(ctx context.Context, to, text string) error {
	user, pass, ok := w.cfg.credentials()
	if !ok {
		return fmt.Errorf("twilio not configured")
	}

	form := url.Values{
		"From": {whatsAppAddress(w.cfg.WhatsAppNumber)},
		"To":   {whatsAppAddress(to)},
		"Body": {text},
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json",
		strings.TrimRight(w.cfg.BaseURL, "/"), w.cfg.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build twilio request: %w", err)
	}
	req.SetBasicAuth(user, pass)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := w.http.Do(req)
	if err != nil {
		return fmt.Errorf("twilio request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("twilio request: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	logx.Info().Str("to", to).Msg("whatsapp message sent")
	return nil
}

// NormalizePhone strips the channel prefix from an inbound sender address.
func NormalizePhone(from string) string {
	return strings.TrimPrefix(strings.TrimSpace(from), "whatsapp:")
}

// whatsAppAddress ensures the channel prefix on an outbound address.
func whatsAppAddress(number string) string {
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}
