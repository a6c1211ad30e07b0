package models

import (
	"context"
	"errors"
	"fmt"
	"strings"

	genai "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiPreference is tried in order when the model is "auto".
var GeminiPreference = []string{
	"gemini-pro",
	"gemini-1.0-pro",
	"gemini-1.5-pro",
	"gemini-2.0-pro",
	"gemini-2.5-pro",
}

type GeminiLLM struct {
	Client *genai.Client
	Model  string
	cfg    Config
}

// NewGeminiLLM connects with cfg.APIKey. A model of "auto" is resolved
// against the account's model listing using GeminiPreference.
func NewGeminiLLM(ctx context.Context, cfg Config) (*GeminiLLM, error) {
	if err := requireKey(cfg, "gemini"); err != nil {
		return nil, err
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini init: %w", err)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" || model == "auto" {
		available, err := listGeminiModels(ctx, client)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("gemini list models: %w", err)
		}
		model, err = PickModel(GeminiPreference, available)
		if err != nil {
			client.Close()
			return nil, err
		}
	}
	return &GeminiLLM{Client: client, Model: model, cfg: cfg}, nil
}

func listGeminiModels(ctx context.Context, client *genai.Client) ([]string, error) {
	var names []string
	it := client.ListModels(ctx)
	for {
		info, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return names, nil
		}
		if err != nil {
			return nil, err
		}
		names = append(names, info.Name)
	}
}

// PickModel returns the first preferred name present in available, matching
// both bare and "models/"-prefixed listings.
func PickModel(preference, available []string) (string, error) {
	have := make(map[string]bool, len(available))
	for _, a := range available {
		have[a] = true
	}
	for _, name := range preference {
		if have[name] {
			return name, nil
		}
		if full := "models/" + name; have[full] {
			return full, nil
		}
	}
	return "", fmt.Errorf("no suitable Gemini model found; available: %s", strings.Join(available, ", "))
}

func (g *GeminiLLM) Generate(ctx context.Context, prompt string) (string, error) {
	model := g.Client.GenerativeModel(g.Model)
	model.SetTemperature(g.cfg.Temperature)
	model.SetCandidateCount(1)
	if g.cfg.TopP > 0 {
		model.SetTopP(g.cfg.TopP)
	}
	if g.cfg.TopK > 0 {
		model.SetTopK(g.cfg.TopK)
	}
	if g.cfg.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(g.cfg.MaxOutputTokens)
	}
	model.StopSequences = g.cfg.StopSequences
	if g.cfg.JSONMode {
		model.ResponseMIMEType = "application/json"
	}
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini: empty response")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return strings.TrimSpace(b.String()), nil
}
