// Package orchestrator runs one user request through intent resolution,
// order execution and, for confirmed orders, payment negotiation.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/Protocol-Lattice/boutique-agents/src/a2a"
	"github.com/Protocol-Lattice/boutique-agents/src/intent"
	"github.com/Protocol-Lattice/boutique-agents/src/metrics"
	"github.com/Protocol-Lattice/boutique-agents/src/order"
	"github.com/Protocol-Lattice/boutique-agents/src/payment"
	"github.com/Protocol-Lattice/boutique-agents/src/registry"
)

// Sender identifies the orchestrator in payment envelopes.
const Sender = "orchestrator_agent"

// Payer delivers a process_payment request to the payment agent.
type Payer interface {
	Pay(ctx context.Context, req a2a.Message) (a2a.Message, error)
}

// RemotePayer posts to a payment agent's /a2a/{Capability}.
type RemotePayer struct {
	Client     *a2a.Client
	BaseURL    string
	Capability string
}

func (p RemotePayer) Pay(ctx context.Context, req a2a.Message) (a2a.Message, error) {
	return p.Client.Send(ctx, p.BaseURL, p.Capability, req)
}

// LocalPayer negotiates in process.
type LocalPayer struct {
	Negotiator *payment.Negotiator
}

func (p LocalPayer) Pay(ctx context.Context, req a2a.Message) (a2a.Message, error) {
	return p.Negotiator.Negotiate(ctx, req), nil
}

// Orchestrator sequences resolve, execute and pay.
type Orchestrator struct {
	resolver *intent.Resolver
	executor *order.Executor
	payer    Payer
	log      logrus.FieldLogger
}

func New(resolver *intent.Resolver, executor *order.Executor, payer Payer, log logrus.FieldLogger) *Orchestrator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Orchestrator{resolver: resolver, executor: executor, payer: payer, log: log.WithField("component", "orchestrator")}
}

// Run handles one request. It never returns an error: every failure is a
// distinct Outcome in the report.
func (o *Orchestrator) Run(ctx context.Context, text string) Report {
	rep := o.run(ctx, text)
	metrics.PipelineOutcomes.WithLabelValues(rep.Outcome.String()).Inc()
	entry := o.log.WithFields(logrus.Fields{"outcome": rep.Outcome.String(), "tool": rep.Intent.Tool})
	if rep.Error != "" {
		entry = entry.WithField("error", rep.Error)
	}
	entry.Info("request handled")
	return rep
}

func (o *Orchestrator) run(ctx context.Context, text string) Report {
	rep := Report{Input: text}

	res, err := o.resolver.Resolve(ctx, text)
	if err != nil {
		rep.Error = err.Error()
		if errors.Is(err, intent.ErrIntentRejected) {
			rep.Outcome = IntentRejected
		} else {
			rep.Outcome = Unavailable
		}
		return rep
	}
	rep.Intent, rep.Notice = res.Intent, res.Notice

	ex, err := o.executor.Execute(ctx, res.Intent)
	if err != nil {
		rep.Error = err.Error()
		rep.Outcome = executionFailure(err, !o.resolver.Registry().Is(res.Intent.Tool, registry.Ordering))
		return rep
	}

	switch {
	case ex.Order != nil:
		return o.settle(ctx, rep, ex)
	case o.resolver.Registry().Is(ex.Tool, registry.Listing):
		rep.Products = ex.Products
		rep.Outcome = CatalogShown
		if res.Notice.Kind == intent.ProductUnavailable || res.Notice.Kind == intent.IdentifierRejected {
			rep.Outcome = ProductUnavailable
		}
		return rep
	default:
		rep.Outcome = ToolExecuted
		return rep
	}
}

func (o *Orchestrator) settle(ctx context.Context, rep Report, ex order.Execution) Report {
	ord := *ex.Order
	product := ex.Product
	rep.Order, rep.Product = &ord, &product
	if !ord.Confirmed() {
		rep.Outcome = OrderFailed
		rep.Error = "backend reported status " + string(ord.Status)
		return rep
	}

	rep.Total = Total(product.PriceUSD, ord.Quantity)
	pc := payment.Context{OrderID: ord.OrderID, Product: product.Name, Quantity: ord.Quantity, TotalAmount: rep.Total}
	req := a2a.NewRequest(Sender, payment.IntentProcess,
		pc.Payload(fmt.Sprintf("Process payment of $%.2f for order %s", rep.Total, ord.OrderID)),
		a2a.ConversationID(ord.OrderID))

	reply, err := o.payer.Pay(ctx, req)
	if err != nil {
		rep.Outcome = OrderPaymentFailed
		rep.Error = err.Error()
		return rep
	}
	rep.Payment = &reply
	if payment.Outcome(reply) != payment.Processed {
		rep.Outcome = OrderPaymentFailed
		rep.Error = reply.ErrorText()
		return rep
	}
	rep.Outcome = OrderPaid
	return rep
}

// Total is unit price times quantity rounded to cents.
func Total(unitPrice float64, qty int) float64 {
	return math.Round(unitPrice*float64(qty)*100) / 100
}

// executionFailure classifies an Execute error. Backend failures outside
// ordering mean the catalog could not be shown at all.
func executionFailure(err error, readOnly bool) Outcome {
	var ve *order.ValidationError
	if errors.As(err, &ve) {
		if ve.Reason == order.ReasonQuantity {
			return InvalidQuantity
		}
		return InvalidProduct
	}
	var be *order.BackendError
	if errors.As(err, &be) && (be.Status == 0 || readOnly) {
		return Unavailable
	}
	return OrderFailed
}
