package models

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	ollama "github.com/ollama/ollama/api"
)

type OllamaLLM struct {
	Client *ollama.Client
	Model  string
	cfg    Config
}

// NewOllamaLLM targets cfg.BaseURL, then OLLAMA_HOST, then the local default.
func NewOllamaLLM(cfg Config) (*OllamaLLM, error) {
	host := cfg.BaseURL
	if host == "" {
		host = os.Getenv("OLLAMA_HOST")
	}
	if host == "" {
		host = "http://localhost:11434"
	}
	u, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("invalid OLLAMA_HOST %q: %w", host, err)
	}

	return &OllamaLLM{
		Client: ollama.NewClient(u, &http.Client{Timeout: 60 * time.Second}),
		Model:  modelOr(cfg.Model, "llama3.1"),
		cfg:    cfg,
	}, nil
}

func (o *OllamaLLM) Generate(ctx context.Context, prompt string) (string, error) {
	stream := false
	options := map[string]any{
		"temperature": o.cfg.Temperature,
	}
	if o.cfg.TopP > 0 {
		options["top_p"] = o.cfg.TopP
	}
	if o.cfg.TopK > 0 {
		options["top_k"] = o.cfg.TopK
	}
	if o.cfg.MaxOutputTokens > 0 {
		options["num_predict"] = o.cfg.MaxOutputTokens
	}
	if len(o.cfg.StopSequences) > 0 {
		options["stop"] = o.cfg.StopSequences
	}

	req := &ollama.GenerateRequest{
		Model:   o.Model,
		Prompt:  prompt,
		Stream:  &stream,
		Options: options,
	}
	if o.cfg.JSONMode {
		req.Format = json.RawMessage(`"json"`)
	}

	var text strings.Builder
	if err := o.Client.Generate(ctx, req, func(gr ollama.GenerateResponse) error {
		text.WriteString(gr.Response)
		return nil
	}); err != nil {
		return "", err
	}
	return strings.TrimSpace(text.String()), nil
}
