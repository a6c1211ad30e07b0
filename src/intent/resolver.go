package intent

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"github.com/Protocol-Lattice/boutique-agents/src/catalog"
	"github.com/Protocol-Lattice/boutique-agents/src/metrics"
	"github.com/Protocol-Lattice/boutique-agents/src/models"
	"github.com/Protocol-Lattice/boutique-agents/src/registry"
	"github.com/Protocol-Lattice/boutique-agents/src/repair"
)

// Resolver asks a model to choose a tool for a request and validates the
// answer against the registry and a freshly fetched catalog.
type Resolver struct {
	llm     models.LLM
	reg     *registry.Registry
	catalog *catalog.Gateway
	log     logrus.FieldLogger
}

// NewResolver wires a resolver. A nil logger uses the standard logger.
func NewResolver(llm models.LLM, reg *registry.Registry, gw *catalog.Gateway, log logrus.FieldLogger) *Resolver {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Resolver{llm: llm, reg: reg, catalog: gw, log: log.WithField("component", "intent")}
}

// Registry returns the registry the resolver validates against.
func (r *Resolver) Registry() *registry.Registry { return r.reg }

// Resolve maps text to a validated Intent. It fails only when the model call
// fails (ErrModelUnavailable) or its output is unrecoverable
// (ErrIntentRejected); every validation problem downgrades to the listing tool.
func (r *Resolver) Resolve(ctx context.Context, text string) (Resolution, error) {
	snap := r.catalog.List(ctx)
	prompt := BuildPrompt(text, r.reg, snap)

	raw, err := r.llm.Generate(ctx, prompt)
	if err != nil {
		metrics.IntentResolutions.WithLabelValues("unavailable").Inc()
		return Resolution{}, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	obj, strategy, err := repair.Repair(raw)
	if err != nil {
		metrics.IntentResolutions.WithLabelValues("rejected").Inc()
		r.log.WithField("raw", raw).Warn("model output could not be repaired")
		return Resolution{}, fmt.Errorf("%w: %w", ErrIntentRejected, err)
	}
	metrics.RepairStrategy.WithLabelValues(strategy.String()).Inc()

	res := r.validate(ctx, obj)
	res.Strategy = strategy

	if res.Notice.Kind == NoNotice && r.reg.Is(res.Intent.Tool, registry.Listing) && IsPurchase(text) {
		if term := ProductTerm(text); term != "" {
			res.Notice = Notice{Kind: ProductUnavailable, Subject: term}
		}
	}

	metrics.IntentResolutions.WithLabelValues(res.Outcome.String()).Inc()
	r.log.WithFields(logrus.Fields{
		"tool":     res.Intent.Tool,
		"outcome":  res.Outcome.String(),
		"notice":   res.Notice.Kind.String(),
		"strategy": strategy.String(),
	}).Info("intent resolved")
	return res, nil
}

func (r *Resolver) validate(ctx context.Context, obj map[string]any) Resolution {
	name := strings.TrimSpace(cast.ToString(obj["tool"]))
	args, _ := obj["args"].(map[string]any)
	if args == nil {
		args = map[string]any{}
	}

	spec, ok := r.reg.Lookup(name)
	if !ok {
		return r.downgrade(Notice{Kind: UnknownTool, Subject: name})
	}
	if !r.reg.Reduced() {
		if missing := spec.Input.Missing(args); len(missing) > 0 {
			return r.downgrade(Notice{Kind: SchemaInvalid, Subject: strings.Join(missing, ", ")})
		}
	}

	if r.reg.Is(spec.Name, registry.Ordering) {
		idKey, qtyKey := ProductArg(spec), QuantityArg(spec)
		id := strings.TrimSpace(cast.ToString(args[idKey]))
		if _, found := r.catalog.Lookup(ctx, id); !found {
			r.log.WithField("product_id", id).Warn("model chose a product outside the catalog")
			return r.downgrade(Notice{Kind: IdentifierRejected, Subject: id})
		}
		args[idKey] = id
		if v, present := args[qtyKey]; present {
			if qty, err := ParseQuantity(v); err == nil {
				args[qtyKey] = qty
			}
		}
	}

	return Resolution{Intent: Intent{Tool: spec.Name, Args: args}, Outcome: Resolved}
}

func (r *Resolver) downgrade(n Notice) Resolution {
	return Resolution{
		Intent:  Intent{Tool: listingName(r.reg), Args: map[string]any{}},
		Outcome: Downgraded,
		Notice:  n,
	}
}
