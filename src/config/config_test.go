package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/Protocol-Lattice/boutique-agents/src/models"
)

func parse(t *testing.T, args ...string) Config {
	t.Helper()
	var cfg Config
	app := &cli.App{
		Name:  "test",
		Flags: Flags,
		Action: func(c *cli.Context) error {
			cfg = FromCLI(c)
			return nil
		},
	}
	if err := app.Run(append([]string{"test"}, args...)); err != nil {
		t.Fatalf("run: %v", err)
	}
	return cfg
}

func TestDefaults(t *testing.T) {
	t.Setenv("BOUTIQUE_API_URL", "")
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	cfg := parse(t)

	if cfg.OrderAgentURL != "http://localhost:8001" || cfg.PaymentBackendURL != "http://localhost:8002" ||
		cfg.PaymentAgentURL != "http://localhost:8003" {
		t.Fatalf("unexpected agent urls: %+v", cfg)
	}
	if cfg.CatalogTTL != 5*time.Minute {
		t.Fatalf("catalog ttl = %v", cfg.CatalogTTL)
	}
	if cfg.PaymentRetry.MaxAttempts != 3 || cfg.PaymentRetry.Delay != time.Second {
		t.Fatalf("retry = %+v", cfg.PaymentRetry)
	}
	if cfg.LLM.Temperature != 0.1 || cfg.LLM.MaxOutputTokens != 1000 {
		t.Fatalf("sampling = %+v", cfg.LLM)
	}
	if err := cfg.RequireBoutique(); !errors.Is(err, ErrMissingSetting) {
		t.Fatalf("expected missing boutique url, got %v", err)
	}
	if err := cfg.RequireLLM(); !errors.Is(err, ErrMissingSetting) {
		t.Fatalf("expected missing key, got %v", err)
	}
}

func TestEnvironmentBinding(t *testing.T) {
	t.Setenv("BOUTIQUE_API_URL", "http://shop.test")
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("PAYMENT_DERIVATION", "llm+fallback")
	cfg := parse(t, "--catalog-ttl", "30s")

	if cfg.BoutiqueURL != "http://shop.test" || cfg.RequireBoutique() != nil {
		t.Fatalf("boutique url not bound: %+v", cfg)
	}
	if cfg.LLM.APIKey != "sk-test" || cfg.RequireLLM() != nil {
		t.Fatalf("provider key not resolved: %+v", cfg.LLM)
	}
	if cfg.CatalogTTL != 30*time.Second {
		t.Fatalf("flag did not override: %v", cfg.CatalogTTL)
	}
	mode, usesLLM, err := cfg.Derivation()
	if err != nil || mode != DerivationFallback || !usesLLM {
		t.Fatalf("derivation = %q %v %v", mode, usesLLM, err)
	}
}

func ollamaConfig() models.Config {
	c := models.DefaultConfig()
	c.Provider = "ollama"
	return c
}

func TestOllamaNeedsNoKey(t *testing.T) {
	cfg := Config{LLM: ollamaConfig()}
	if err := cfg.RequireLLM(); err != nil {
		t.Fatalf("RequireLLM: %v", err)
	}
}

func TestDerivationModes(t *testing.T) {
	for mode, usesLLM := range map[string]bool{"": true, "llm": true, "deterministic": false} {
		_, got, err := Config{PaymentDerivation: mode}.Derivation()
		if err != nil || got != usesLLM {
			t.Fatalf("%q: usesLLM=%v err=%v", mode, got, err)
		}
	}
	if _, _, err := (Config{PaymentDerivation: "coinflip"}).Derivation(); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestLoadEnvIgnoresMissingFiles(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	if err := os.WriteFile(filepath.Join(dir, ".env.boutique"), []byte("BOUTIQUE_CONFIG_TEST=from-file\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("BOUTIQUE_CONFIG_TEST") })

	if err := LoadEnv(); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if got := os.Getenv("BOUTIQUE_CONFIG_TEST"); got != "from-file" {
		t.Fatalf("variable = %q", got)
	}
}

func TestNewLogger(t *testing.T) {
	log, err := Config{LogLevel: "debug", LogFormat: "text"}.NewLogger()
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if log.GetLevel() != logrus.DebugLevel {
		t.Fatalf("level = %v", log.GetLevel())
	}
	if _, err := (Config{LogLevel: "info", LogFormat: "xml"}).NewLogger(); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}
