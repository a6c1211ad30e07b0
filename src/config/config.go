// Package config binds command-line flags and environment variables to the
// settings every boutique process needs.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/Protocol-Lattice/boutique-agents/src/catalog"
	"github.com/Protocol-Lattice/boutique-agents/src/models"
	"github.com/Protocol-Lattice/boutique-agents/src/payment"
)

var ErrMissingSetting = errors.New("missing required setting")

// Derivation modes for the payment agent.
const (
	DerivationLLM           = "llm"
	DerivationDeterministic = "deterministic"
	DerivationFallback      = "llm+fallback"
)

// EnvFiles are loaded in order; variables already set win.
var EnvFiles = []string{".env.boutique", ".env"}

// LoadEnv reads EnvFiles, ignoring the ones that do not exist.
func LoadEnv() error {
	for _, f := range EnvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

const (
	loggingCategory = "LOGGING"
	modelCategory   = "MODEL"
	agentsCategory  = "AGENTS"
	storageCategory = "STORAGE"
)

var (
	LogLevelFlag = &cli.StringFlag{
		Name:     "log-level",
		Usage:    "panic, fatal, error, warn, info, debug or trace",
		Value:    "info",
		EnvVars:  []string{"LOG_LEVEL"},
		Category: loggingCategory,
	}
	LogFormatFlag = &cli.StringFlag{
		Name:     "log-format",
		Usage:    "json or text",
		Value:    "json",
		EnvVars:  []string{"LOG_FORMAT"},
		Category: loggingCategory,
	}

	ProviderFlag = &cli.StringFlag{
		Name:     "provider",
		Usage:    "LLM provider: gemini, openai, anthropic or ollama",
		Value:    "gemini",
		EnvVars:  []string{"LLM_PROVIDER"},
		Category: modelCategory,
	}
	ModelFlag = &cli.StringFlag{
		Name:     "model",
		Usage:    "model id; auto picks the first available preferred Gemini model",
		Value:    "auto",
		EnvVars:  []string{"LLM_MODEL"},
		Category: modelCategory,
	}
	APIKeyFlag = &cli.StringFlag{
		Name:     "api-key",
		Usage:    "provider API key; defaults to the provider's conventional variable",
		EnvVars:  []string{"LLM_API_KEY"},
		Category: modelCategory,
	}
	ModelURLFlag = &cli.StringFlag{
		Name:     "model-url",
		Usage:    "provider base URL override",
		EnvVars:  []string{"LLM_BASE_URL"},
		Category: modelCategory,
	}

	BoutiqueURLFlag = &cli.StringFlag{
		Name:     "boutique-url",
		Usage:    "storefront backend base URL",
		EnvVars:  []string{"BOUTIQUE_API_URL"},
		Category: agentsCategory,
	}
	OrderAgentURLFlag = &cli.StringFlag{
		Name:     "order-agent-url",
		Value:    "http://localhost:8001",
		EnvVars:  []string{"ORDER_AGENT_URL"},
		Category: agentsCategory,
	}
	PaymentBackendURLFlag = &cli.StringFlag{
		Name:     "payment-backend-url",
		Value:    "http://localhost:8002",
		EnvVars:  []string{"PAYMENT_SERVER_URL"},
		Category: agentsCategory,
	}
	PaymentAgentURLFlag = &cli.StringFlag{
		Name:     "payment-agent-url",
		Value:    "http://localhost:8003",
		EnvVars:  []string{"PAYMENT_AGENT_URL"},
		Category: agentsCategory,
	}
	CatalogTTLFlag = &cli.DurationFlag{
		Name:     "catalog-ttl",
		Value:    catalog.DefaultTTL,
		EnvVars:  []string{"CATALOG_TTL"},
		Category: agentsCategory,
	}
	PaymentRetriesFlag = &cli.IntFlag{
		Name:     "payment-retries",
		Value:    payment.DefaultRetry.MaxAttempts,
		EnvVars:  []string{"PAYMENT_RETRIES"},
		Category: agentsCategory,
	}
	PaymentRetryDelayFlag = &cli.DurationFlag{
		Name:     "payment-retry-delay",
		Value:    payment.DefaultRetry.Delay,
		EnvVars:  []string{"PAYMENT_RETRY_DELAY"},
		Category: agentsCategory,
	}
	PaymentDerivationFlag = &cli.StringFlag{
		Name:     "payment-derivation",
		Usage:    "llm, deterministic or llm+fallback",
		Value:    DerivationLLM,
		EnvVars:  []string{"PAYMENT_DERIVATION"},
		Category: agentsCategory,
	}

	CatalogDSNFlag = &cli.StringFlag{
		Name:     "catalog-dsn",
		Usage:    "read products from PostgreSQL instead of the storefront",
		EnvVars:  []string{"CATALOG_DSN"},
		Category: storageCategory,
	}
	CatalogTableFlag = &cli.StringFlag{
		Name:     "catalog-table",
		Value:    "products",
		EnvVars:  []string{"CATALOG_TABLE"},
		Category: storageCategory,
	}
	OrderLogFlag = &cli.StringFlag{
		Name:     "order-log",
		Usage:    "order log URL: memory://, redis://, postgres:// or mongodb://",
		EnvVars:  []string{"ORDER_LOG_URL"},
		Category: storageCategory,
	}
)

// Flags are the global flags shared by every command.
var Flags = []cli.Flag{
	LogLevelFlag, LogFormatFlag,
	ProviderFlag, ModelFlag, APIKeyFlag, ModelURLFlag,
	BoutiqueURLFlag, OrderAgentURLFlag, PaymentBackendURLFlag, PaymentAgentURLFlag,
	CatalogTTLFlag, PaymentRetriesFlag, PaymentRetryDelayFlag, PaymentDerivationFlag,
	CatalogDSNFlag, CatalogTableFlag, OrderLogFlag,
}

// Config is the resolved settings of one process.
type Config struct {
	LogLevel  string
	LogFormat string

	LLM models.Config

	BoutiqueURL       string
	OrderAgentURL     string
	PaymentBackendURL string
	PaymentAgentURL   string

	CatalogTTL        time.Duration
	PaymentRetry      payment.RetryPolicy
	PaymentDerivation string

	CatalogDSN   string
	CatalogTable string
	OrderLogURL  string
}

// FromCLI reads the global flags.
func FromCLI(c *cli.Context) Config {
	llm := models.DefaultConfig()
	llm.Provider = c.String(ProviderFlag.Name)
	llm.Model = c.String(ModelFlag.Name)
	llm.BaseURL = c.String(ModelURLFlag.Name)
	llm.APIKey = c.String(APIKeyFlag.Name)
	if llm.APIKey == "" {
		llm.APIKey = ProviderKey(llm.Provider)
	}
	return Config{
		LogLevel:          c.String(LogLevelFlag.Name),
		LogFormat:         c.String(LogFormatFlag.Name),
		LLM:               llm,
		BoutiqueURL:       strings.TrimSpace(c.String(BoutiqueURLFlag.Name)),
		OrderAgentURL:     c.String(OrderAgentURLFlag.Name),
		PaymentBackendURL: c.String(PaymentBackendURLFlag.Name),
		PaymentAgentURL:   c.String(PaymentAgentURLFlag.Name),
		CatalogTTL:        c.Duration(CatalogTTLFlag.Name),
		PaymentRetry: payment.RetryPolicy{
			MaxAttempts: c.Int(PaymentRetriesFlag.Name),
			Delay:       c.Duration(PaymentRetryDelayFlag.Name),
		},
		PaymentDerivation: strings.ToLower(strings.TrimSpace(c.String(PaymentDerivationFlag.Name))),
		CatalogDSN:        c.String(CatalogDSNFlag.Name),
		CatalogTable:      c.String(CatalogTableFlag.Name),
		OrderLogURL:       c.String(OrderLogFlag.Name),
	}
}

// ProviderKey returns the conventional API key variable for provider.
func ProviderKey(provider string) string {
	var names []string
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "gemini", "google":
		names = []string{"GOOGLE_API_KEY", "GEMINI_API_KEY"}
	case "openai":
		names = []string{"OPENAI_API_KEY"}
	case "anthropic", "claude":
		names = []string{"ANTHROPIC_API_KEY"}
	}
	for _, n := range names {
		if v := strings.TrimSpace(os.Getenv(n)); v != "" {
			return v
		}
	}
	return ""
}

// RequireBoutique fails when no storefront URL is configured.
func (c Config) RequireBoutique() error {
	if c.BoutiqueURL == "" {
		return fmt.Errorf("%w: BOUTIQUE_API_URL (--%s)", ErrMissingSetting, BoutiqueURLFlag.Name)
	}
	return nil
}

// RequireLLM fails when the selected hosted provider has no key. Ollama
// needs none.
func (c Config) RequireLLM() error {
	switch strings.ToLower(strings.TrimSpace(c.LLM.Provider)) {
	case "ollama":
		return nil
	case "gemini", "google", "openai", "anthropic", "claude":
		if strings.TrimSpace(c.LLM.APIKey) == "" {
			return fmt.Errorf("%w: API key for provider %s", ErrMissingSetting, c.LLM.Provider)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown provider %q", ErrMissingSetting, c.LLM.Provider)
	}
}

// Derivation validates the payment derivation mode and reports whether
// it calls a model.
func (c Config) Derivation() (mode string, usesLLM bool, err error) {
	switch c.PaymentDerivation {
	case "", DerivationLLM:
		return DerivationLLM, true, nil
	case DerivationFallback:
		return DerivationFallback, true, nil
	case DerivationDeterministic:
		return DerivationDeterministic, false, nil
	}
	return "", false, fmt.Errorf("unknown payment derivation %q", c.PaymentDerivation)
}

// NewLogger builds the process logger from the logging flags.
func (c Config) NewLogger() (*logrus.Logger, error) {
	log := logrus.New()
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	log.SetLevel(level)
	switch strings.ToLower(c.LogFormat) {
	case "", "json":
		log.SetFormatter(&logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "severity",
				logrus.FieldKeyMsg:   "message",
			},
			TimestampFormat: time.RFC3339Nano,
		})
	case "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	log.Out = os.Stderr
	return log, nil
}
