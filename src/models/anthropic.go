package models

import (
	"context"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicLLM calls the Messages API with a single user turn.
type AnthropicLLM struct {
	Client *anthropic.Client
	Model  string
	cfg    Config
}

func NewAnthropicLLM(cfg Config) (*AnthropicLLM, error) {
	if err := requireKey(cfg, "anthropic"); err != nil {
		return nil, err
	}
	opts := []anthropicopt.RequestOption{anthropicopt.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropicopt.WithBaseURL(cfg.BaseURL))
	}
	cl := anthropic.NewClient(opts...)
	return &AnthropicLLM{
		Client: &cl,
		Model:  modelOr(cfg.Model, "claude-3-5-haiku-latest"),
		cfg:    cfg,
	}, nil
}

func (a *AnthropicLLM) Generate(ctx context.Context, prompt string) (string, error) {
	maxTokens := int64(a.cfg.MaxOutputTokens)
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.Model),
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		Temperature:   anthropic.Float(float64(a.cfg.Temperature)),
		StopSequences: a.cfg.StopSequences,
	}
	if a.cfg.TopK > 0 {
		params.TopK = anthropic.Int(int64(a.cfg.TopK))
	}

	msg, err := a.Client.Messages.New(ctx, params)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, cb := range msg.Content {
		if tb, ok := cb.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(tb.Text)
		}
	}
	return strings.TrimSpace(b.String()), nil
}
