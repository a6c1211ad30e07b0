package order

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"github.com/Protocol-Lattice/boutique-agents/src/catalog"
	"github.com/Protocol-Lattice/boutique-agents/src/intent"
	"github.com/Protocol-Lattice/boutique-agents/src/metrics"
	"github.com/Protocol-Lattice/boutique-agents/src/registry"
)

// Execution is the result of running one intent. Listing runs fill Products;
// ordering runs fill Product and Order; other tools leave the raw Reply.
type Execution struct {
	Tool     string
	Products []catalog.Product
	Product  catalog.Product
	Order    *Order
	Reply    Reply
}

// Executor runs intents against a Backend.
type Executor struct {
	reg     *registry.Registry
	catalog *catalog.Gateway
	backend Backend
	orders  Log
	log     logrus.FieldLogger
}

// NewExecutor wires an executor. A nil Log keeps orders in memory.
func NewExecutor(reg *registry.Registry, gw *catalog.Gateway, backend Backend, orders Log, log logrus.FieldLogger) *Executor {
	if orders == nil {
		orders = NewMemoryLog()
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Executor{reg: reg, catalog: gw, backend: backend, orders: orders, log: log.WithField("component", "order")}
}

// Orders returns the log placed orders are appended to.
func (e *Executor) Orders() Log { return e.orders }

// Execute invokes the intent's tool. Ordering intents are re-validated against
// a fresh catalog immediately before the remote call.
func (e *Executor) Execute(ctx context.Context, in intent.Intent) (Execution, error) {
	spec, ok := e.reg.Lookup(in.Tool)
	if !ok {
		return Execution{}, &ValidationError{Field: "tool", Value: in.Tool, Reason: ReasonUnknownTool}
	}
	switch {
	case e.reg.Is(spec.Name, registry.Ordering):
		return e.placeOrder(ctx, spec, in.Args)
	case e.reg.Is(spec.Name, registry.Listing):
		return e.list(ctx, spec, in.Args)
	}
	reply, err := e.invoke(ctx, spec.Name, in.Args)
	if err != nil {
		return Execution{}, err
	}
	return Execution{Tool: spec.Name, Reply: reply}, nil
}

func (e *Executor) list(ctx context.Context, spec registry.ToolSpec, args map[string]any) (Execution, error) {
	reply, err := e.invoke(ctx, spec.Name, args)
	if err != nil {
		return Execution{}, err
	}
	payload, err := catalog.Decode(reply.Body)
	if err != nil {
		return Execution{}, &BackendError{Detail: "listing reply", Err: err}
	}
	products := payload.Products()
	if payload.Shape == catalog.ShapeIDList {
		// Ids alone cannot be displayed; the gateway holds the details.
		products = e.catalog.List(ctx).Products
	}
	return Execution{Tool: spec.Name, Products: products, Reply: reply}, nil
}

func (e *Executor) placeOrder(ctx context.Context, spec registry.ToolSpec, args map[string]any) (Execution, error) {
	idKey, qtyKey := intent.ProductArg(spec), intent.QuantityArg(spec)
	id := strings.TrimSpace(cast.ToString(args[idKey]))

	qty, err := intent.ParseQuantity(args[qtyKey])
	if err != nil || qty <= 0 {
		return Execution{}, &ValidationError{Field: qtyKey, Value: fmt.Sprint(args[qtyKey]), Reason: ReasonQuantity}
	}
	product, found := e.catalog.Lookup(ctx, id)
	if !found {
		return Execution{}, &ValidationError{Field: idKey, Value: id, Reason: ReasonNotInCatalog}
	}

	call := make(map[string]any, len(args))
	for k, v := range args {
		call[k] = v
	}
	call[idKey], call[qtyKey] = id, qty

	reply, err := e.invoke(ctx, spec.Name, call)
	if err != nil {
		metrics.Orders.WithLabelValues("error").Inc()
		return Execution{}, err
	}

	o := Normalize(reply, id, qty)
	metrics.Orders.WithLabelValues(string(o.Status)).Inc()
	if err := e.orders.Append(ctx, o); err != nil {
		e.log.WithError(err).WithField("order_id", o.OrderID).Error("order placed but not recorded")
	}
	e.log.WithFields(logrus.Fields{
		"order_id": o.OrderID,
		"product":  id,
		"quantity": qty,
		"status":   o.Status,
	}).Info("order executed")
	return Execution{Tool: spec.Name, Product: product, Order: &o, Reply: reply}, nil
}

func (e *Executor) invoke(ctx context.Context, tool string, args map[string]any) (Reply, error) {
	reply, err := e.backend.Invoke(ctx, tool, args)
	if err == nil {
		return reply, nil
	}
	var be *BackendError
	var ve *ValidationError
	if errors.As(err, &be) || errors.As(err, &ve) {
		return Reply{}, err
	}
	return Reply{}, &BackendError{Detail: tool, Err: err}
}
