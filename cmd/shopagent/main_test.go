package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/Protocol-Lattice/boutique-agents/src/a2a"
	"github.com/Protocol-Lattice/boutique-agents/src/config"
	"github.com/Protocol-Lattice/boutique-agents/src/orchestrator"
	"github.com/Protocol-Lattice/boutique-agents/src/order"
)

func TestCommandsRegistered(t *testing.T) {
	app := newApp()
	for _, name := range []string{"ask", "catalog-agent", "payment-agent", "payment-backend", "serve-all", "mcp"} {
		if app.Command(name) == nil {
			t.Fatalf("command %q missing", name)
		}
	}
}

func TestAskRequiresText(t *testing.T) {
	app := newApp()
	app.Writer = &bytes.Buffer{}
	if err := app.Run([]string{"shopagent", "ask"}); err == nil || !strings.Contains(err.Error(), "no request") {
		t.Fatalf("expected missing request error, got %v", err)
	}
}

func TestCatalogAgentRequiresBoutiqueURL(t *testing.T) {
	t.Setenv("BOUTIQUE_API_URL", "")
	app := newApp()
	err := app.Run([]string{"shopagent", "catalog-agent"})
	if !errors.Is(err, config.ErrMissingSetting) {
		t.Fatalf("expected ErrMissingSetting, got %v", err)
	}
}

func TestPrintReport(t *testing.T) {
	var buf bytes.Buffer
	rep := orchestrator.Report{
		Outcome: orchestrator.OrderPaid,
		Order:   &order.Order{OrderID: "o-1", TrackingID: "T-1", ProductID: "A1", Quantity: 2, Status: order.StatusConfirmed},
		Total:   19.98,
		Payment: &a2a.Message{Payload: map[string]any{"transaction_id": "txn_1"}},
	}
	printReport(&buf, rep)
	out := buf.String()
	for _, want := range []string{"order_paid", "o-1", "txn_1", "19.98"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report %q lacks %q", out, want)
		}
	}
}
