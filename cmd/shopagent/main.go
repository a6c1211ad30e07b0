// Command shopagent runs the boutique shopping agents: the catalog agent,
// the payment agent and its backend, and the orchestrator that ties them
// together.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/Protocol-Lattice/boutique-agents/src/config"
)

var version = "dev"

func newApp() *cli.App {
	return &cli.App{
		Name:    "shopagent",
		Usage:   "multi-agent shopping assistant for the boutique storefront",
		Version: version,
		Flags:   config.Flags,
		Commands: []*cli.Command{
			commandAsk,
			commandCatalogAgent,
			commandPaymentAgent,
			commandPaymentBackend,
			commandServeAll,
			commandMCP,
		},
	}
}

func main() {
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
