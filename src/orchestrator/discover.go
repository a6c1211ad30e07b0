package orchestrator

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Protocol-Lattice/boutique-agents/src/registry"
)

// Endpoints are the base URLs of the collaborating agents.
type Endpoints struct {
	OrderAgent   string
	PaymentAgent string
}

// Capabilities is what discovery learned about the agents.
type Capabilities struct {
	Tools *registry.Registry
	// PaymentCapability is the payment agent's capability name.
	PaymentCapability string
}

// Discover reads both agents' registries. Unreachable agents degrade to the
// conventional defaults; the tool registry is then Reduced.
func Discover(ctx context.Context, d *registry.Discoverer, ep Endpoints, log logrus.FieldLogger) Capabilities {
	if log == nil {
		log = logrus.StandardLogger()
	}
	caps := Capabilities{
		Tools:             d.ToolsOrFallback(ctx, ep.OrderAgent),
		PaymentCapability: registry.Payment.DefaultTool,
	}
	reg, err := d.Agent(ctx, ep.PaymentAgent)
	if err != nil {
		log.WithError(err).Warn("payment agent discovery failed, assuming default capability")
		return caps
	}
	if spec, ok := reg.Find(registry.Payment); ok {
		caps.PaymentCapability = spec.Name
	}
	return caps
}
