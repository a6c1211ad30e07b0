package main

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/Protocol-Lattice/boutique-agents/src/a2a"
	"github.com/Protocol-Lattice/boutique-agents/src/catalog"
	"github.com/Protocol-Lattice/boutique-agents/src/catalogagent"
	"github.com/Protocol-Lattice/boutique-agents/src/config"
	"github.com/Protocol-Lattice/boutique-agents/src/intent"
	"github.com/Protocol-Lattice/boutique-agents/src/models"
	"github.com/Protocol-Lattice/boutique-agents/src/orchestrator"
	"github.com/Protocol-Lattice/boutique-agents/src/order"
	"github.com/Protocol-Lattice/boutique-agents/src/orderlog"
	"github.com/Protocol-Lattice/boutique-agents/src/payment"
	"github.com/Protocol-Lattice/boutique-agents/src/paymentagent"
	"github.com/Protocol-Lattice/boutique-agents/src/registry"
)

const a2aTimeout = 30 * time.Second

func contextWithTimeout(c *cli.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(c.Context)
	}
	return context.WithTimeout(c.Context, d)
}

func newLLM(ctx context.Context, cfg config.Config) (models.LLM, error) {
	if err := cfg.RequireLLM(); err != nil {
		return nil, err
	}
	llm, err := models.NewLLMProvider(ctx, cfg.LLM)
	if err != nil {
		return nil, err
	}
	return models.TryCreateCachedLLM(llm), nil
}

// newCatalogAgent reads products from PostgreSQL when a DSN is set and from
// the storefront otherwise. Orders always go through the storefront.
func newCatalogAgent(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*catalogagent.Server, func(), error) {
	if err := cfg.RequireBoutique(); err != nil {
		return nil, nil, err
	}
	var (
		src     catalog.Source = catalog.HTTPSource{BaseURL: cfg.BoutiqueURL, Log: log}
		closers []func()
	)
	if cfg.CatalogDSN != "" {
		pg, err := catalog.NewPostgresSource(ctx, cfg.CatalogDSN, cfg.CatalogTable)
		if err != nil {
			return nil, nil, err
		}
		src = pg
		closers = append(closers, pg.Close)
	}
	sink, err := orderlog.Open(ctx, cfg.OrderLogURL)
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, nil, err
	}
	closers = append(closers, func() {
		if err := sink.Close(context.Background()); err != nil {
			log.WithError(err).Warn("closing order log")
		}
	})

	agent := catalogagent.NewServer(catalogagent.Config{
		Gateway: catalog.NewGateway(src, catalog.WithTTL(cfg.CatalogTTL), catalog.WithLogger(log)),
		Backend: order.StorefrontBackend{
			BaseURL: cfg.BoutiqueURL,
			Tool:    registry.Ordering.DefaultTool,
			Profile: order.DefaultCheckoutProfile(),
		},
		Orders: sink,
		Log:    log,
	})
	return agent, func() {
		for _, c := range closers {
			c()
		}
	}, nil
}

func newDeriver(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (payment.Deriver, error) {
	mode, usesLLM, err := cfg.Derivation()
	if err != nil {
		return nil, err
	}
	if !usesLLM {
		return payment.DeterministicDeriver{}, nil
	}
	llm, err := newLLM(ctx, cfg)
	if err != nil {
		return nil, err
	}
	primary := payment.LLMDeriver{LLM: llm, Retry: cfg.PaymentRetry, Log: log}
	if mode == config.DerivationFallback {
		return payment.FallbackDeriver{Primary: primary, Secondary: payment.DeterministicDeriver{}, Log: log}, nil
	}
	return primary, nil
}

func newPaymentAgent(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*paymentagent.Server, error) {
	d, err := newDeriver(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	n := payment.NewNegotiator(d, payment.BackendClient{BaseURL: cfg.PaymentBackendURL}, log)
	return paymentagent.NewServer(n, cfg.PaymentAgentURL, log), nil
}

// newOrchestrator discovers both agents, then wires resolver, executor and
// payer against what they published.
func newOrchestrator(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (*orchestrator.Orchestrator, error) {
	llm, err := newLLM(ctx, cfg)
	if err != nil {
		return nil, err
	}
	caps := orchestrator.Discover(ctx, registry.NewDiscoverer(nil, log), orchestrator.Endpoints{
		OrderAgent:   cfg.OrderAgentURL,
		PaymentAgent: cfg.PaymentAgentURL,
	}, log)

	listing := registry.Listing.DefaultTool
	if spec, ok := caps.Tools.Find(registry.Listing); ok {
		listing = spec.Name
	}
	gw := catalog.NewGateway(
		catalog.AgentSource{BaseURL: cfg.OrderAgentURL, Tool: listing},
		catalog.WithTTL(cfg.CatalogTTL),
		catalog.WithLogger(log),
	)
	return orchestrator.New(
		intent.NewResolver(llm, caps.Tools, gw, log),
		order.NewExecutor(caps.Tools, gw, order.AgentBackend{BaseURL: cfg.OrderAgentURL}, nil, log),
		orchestrator.RemotePayer{
			Client:     a2a.NewClient(a2aTimeout),
			BaseURL:    cfg.PaymentAgentURL,
			Capability: caps.PaymentCapability,
		},
		log,
	), nil
}
