package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Protocol-Lattice/boutique-agents/src/config"
	"github.com/Protocol-Lattice/boutique-agents/src/orchestrator"
	"github.com/Protocol-Lattice/boutique-agents/src/paymentbackend"
	"github.com/Protocol-Lattice/boutique-agents/src/server"
)

func addrFlag(name, value, env string) *cli.StringFlag {
	return &cli.StringFlag{Name: name, Usage: "listen address", Value: value, EnvVars: []string{env}}
}

var (
	catalogAddrFlag        = addrFlag("catalog-addr", ":8001", "ORDER_AGENT_ADDR")
	paymentBackendAddrFlag = addrFlag("payment-backend-addr", ":8002", "PAYMENT_SERVER_ADDR")
	paymentAgentAddrFlag   = addrFlag("payment-agent-addr", ":8003", "PAYMENT_AGENT_ADDR")

	jsonFlag = &cli.BoolFlag{
		Name:  "json",
		Usage: "print the full report as JSON",
	}
	timeoutFlag = &cli.DurationFlag{
		Name:  "timeout",
		Usage: "overall request timeout",
		Value: 90 * time.Second,
	}
)

var commandAsk = &cli.Command{
	Name:      "ask",
	Usage:     "run one shopping request through the agents",
	ArgsUsage: "<request>",
	Flags:     []cli.Flag{jsonFlag, timeoutFlag},
	Action: func(c *cli.Context) error {
		text := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
		if text == "" {
			return errors.New("no request given")
		}
		cfg, log, err := setup(c)
		if err != nil {
			return err
		}
		ctx, cancel := contextWithTimeout(c, c.Duration(timeoutFlag.Name))
		defer cancel()

		orch, err := newOrchestrator(ctx, cfg, log)
		if err != nil {
			return err
		}
		rep := orch.Run(ctx, text)
		if c.Bool(jsonFlag.Name) {
			enc := json.NewEncoder(c.App.Writer)
			enc.SetIndent("", "  ")
			return enc.Encode(rep)
		}
		printReport(c.App.Writer, rep)
		return nil
	},
}

var commandCatalogAgent = &cli.Command{
	Name:  "catalog-agent",
	Usage: "serve listProducts and placeOrder over HTTP, MCP and UTCP",
	Flags: []cli.Flag{catalogAddrFlag},
	Action: func(c *cli.Context) error {
		cfg, log, err := setup(c)
		if err != nil {
			return err
		}
		agent, closeAgent, err := newCatalogAgent(c.Context, cfg, log)
		if err != nil {
			return err
		}
		defer closeAgent()
		return server.Serve(c.Context, c.String(catalogAddrFlag.Name), agent.Handler(), log)
	},
}

var commandPaymentAgent = &cli.Command{
	Name:  "payment-agent",
	Usage: "serve the processPayment capability over A2A",
	Flags: []cli.Flag{paymentAgentAddrFlag},
	Action: func(c *cli.Context) error {
		cfg, log, err := setup(c)
		if err != nil {
			return err
		}
		agent, err := newPaymentAgent(c.Context, cfg, log)
		if err != nil {
			return err
		}
		return server.Serve(c.Context, c.String(paymentAgentAddrFlag.Name), agent.Handler(), log)
	},
}

var commandPaymentBackend = &cli.Command{
	Name:  "payment-backend",
	Usage: "serve the settlement backend",
	Flags: []cli.Flag{paymentBackendAddrFlag},
	Action: func(c *cli.Context) error {
		_, log, err := setup(c)
		if err != nil {
			return err
		}
		return server.Serve(c.Context, c.String(paymentBackendAddrFlag.Name), paymentbackend.NewLedger(log).Handler(), log)
	},
}

var commandServeAll = &cli.Command{
	Name:  "serve-all",
	Usage: "run the catalog agent, payment agent and payment backend in one process",
	Flags: []cli.Flag{catalogAddrFlag, paymentAgentAddrFlag, paymentBackendAddrFlag},
	Action: func(c *cli.Context) error {
		cfg, log, err := setup(c)
		if err != nil {
			return err
		}
		catalogAgent, closeAgent, err := newCatalogAgent(c.Context, cfg, log)
		if err != nil {
			return err
		}
		defer closeAgent()
		paymentAgent, err := newPaymentAgent(c.Context, cfg, log)
		if err != nil {
			return err
		}

		g, ctx := errgroup.WithContext(c.Context)
		g.Go(func() error {
			return server.Serve(ctx, c.String(catalogAddrFlag.Name), catalogAgent.Handler(), log.WithField("agent", "catalog"))
		})
		g.Go(func() error {
			return server.Serve(ctx, c.String(paymentBackendAddrFlag.Name), paymentbackend.NewLedger(log).Handler(), log.WithField("agent", "payment-backend"))
		})
		g.Go(func() error {
			return server.Serve(ctx, c.String(paymentAgentAddrFlag.Name), paymentAgent.Handler(), log.WithField("agent", "payment"))
		})
		return g.Wait()
	},
}

var commandMCP = &cli.Command{
	Name:  "mcp",
	Usage: "serve the catalog agent's tools over MCP stdio",
	Action: func(c *cli.Context) error {
		cfg, log, err := setup(c)
		if err != nil {
			return err
		}
		agent, closeAgent, err := newCatalogAgent(c.Context, cfg, log)
		if err != nil {
			return err
		}
		defer closeAgent()
		return agent.MCP().ServeStdio()
	},
}

func setup(c *cli.Context) (config.Config, *logrus.Logger, error) {
	cfg := config.FromCLI(c)
	log, err := cfg.NewLogger()
	if err != nil {
		return cfg, nil, err
	}
	return cfg, log, nil
}

func printReport(w io.Writer, rep orchestrator.Report) {
	fmt.Fprintf(w, "[%s] %s\n", rep.Outcome, rep.Summary())
	for _, p := range rep.Products {
		fmt.Fprintf(w, "  %-12s %-28s $%8.2f  %s\n", p.ID, p.Name, p.PriceUSD, p.Summary())
	}
	if o := rep.Order; o != nil {
		fmt.Fprintf(w, "  order %s  tracking %s  %d x %s  status %s\n", o.OrderID, o.TrackingID, o.Quantity, o.ProductID, o.Status)
	}
	if txn := rep.TransactionID(); txn != "" {
		fmt.Fprintf(w, "  payment %s  $%.2f\n", txn, rep.Total)
	}
}
