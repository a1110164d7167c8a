// Package gateway wraps the Gemini chat model behind the ModelGateway port.
package gateway

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/otrade-bot/server/internal/bot/model"
	logx "github.com/otrade-bot/server/pkg/logger"
)

type Config struct {
	APIKey      string  `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL     string  `envconfig:"GEMINI_BASE_URL"`
	Model       string  `envconfig:"GEMINI_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"GEMINI_MAX_TOKENS" default:"800"`
	Temperature float32 `envconfig:"GEMINI_TEMPERATURE" default:"0.3"`
}

// Gemini implements model.ModelGateway on the eino Gemini chat model.
type Gemini struct {
	chat      *gemini.ChatModel
	modelName string
}

func New(ctx context.Context, cfg Config) (*Gemini, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("error creating Gemini client")
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	chat, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       cfg.Model,
		Temperature: &cfg.Temperature,
		MaxTokens:   &cfg.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("error creating chat model")
		return nil, fmt.Errorf("create chat model: %w", err)
	}

	return &Gemini{chat: chat, modelName: cfg.Model}, nil
}

// Complete assembles the turn's messages and returns the raw model text.
// System parts come first, then replayed history, then the new user message.
func (g *Gemini) Complete(ctx context.Context, systemParts []string, history []model.ChatMessage, userMessage string) (string, error) {
	msgs := make([]*schema.Message, 0, len(systemParts)+len(history)+1)
	for _, p := range systemParts {
		msgs = append(msgs, schema.SystemMessage(p))
	}
	for _, h := range history {
		switch h.Role {
		case model.RoleUser:
			msgs = append(msgs, schema.UserMessage(h.Text))
		case model.RoleAssistant:
			msgs = append(msgs, schema.AssistantMessage(h.Text, nil))
		}
	}
	msgs = append(msgs, schema.UserMessage(userMessage))

	out, err := g.chat.Generate(ctx, msgs)
	if err != nil {
		logx.Error().Err(err).Str("model", g.modelName).Msg("model generation failed")
		return "", fmt.Errorf("generate: %w", err)
	}
	if out == nil {
		return "", nil
	}
	return out.Content, nil
}

var _ model.ModelGateway = (*Gemini)(nil)
