package orchestrator

import (
	"fmt"
	"strings"

	"github.com/Protocol-Lattice/boutique-agents/src/a2a"
	"github.com/Protocol-Lattice/boutique-agents/src/catalog"
	"github.com/Protocol-Lattice/boutique-agents/src/intent"
	"github.com/Protocol-Lattice/boutique-agents/src/order"
)

// Outcome is the terminal state of one run.
type Outcome int

const (
	CatalogShown Outcome = iota
	// ProductUnavailable: the request named a product the catalog lacks.
	ProductUnavailable
	// OrderPaid: order confirmed and payment processed.
	OrderPaid
	// OrderPaymentFailed: order confirmed, payment failed. The order stands.
	OrderPaymentFailed
	// OrderFailed: the backend rejected or failed the order.
	OrderFailed
	InvalidQuantity
	// InvalidProduct: the product left the catalog before execution.
	InvalidProduct
	// IntentRejected: the model output could not be recovered.
	IntentRejected
	// Unavailable: the model or the backend could not be reached.
	Unavailable
	// ToolExecuted: a declared tool other than listing or ordering ran.
	ToolExecuted
)

var outcomeNames = map[Outcome]string{
	CatalogShown:       "catalog_shown",
	ProductUnavailable: "product_unavailable",
	OrderPaid:          "order_paid",
	OrderPaymentFailed: "order_confirmed_payment_failed",
	OrderFailed:        "order_failed",
	InvalidQuantity:    "invalid_quantity",
	InvalidProduct:     "invalid_product",
	IntentRejected:     "intent_rejected",
	Unavailable:        "unavailable",
	ToolExecuted:       "tool_executed",
}

func (o Outcome) String() string {
	if s, ok := outcomeNames[o]; ok {
		return s
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// Report is what a run tells the caller.
type Report struct {
	Outcome  Outcome           `json:"outcome"`
	Input    string            `json:"input"`
	Intent   intent.Intent     `json:"intent"`
	Notice   intent.Notice     `json:"notice"`
	Products []catalog.Product `json:"products,omitempty"`
	Product  *catalog.Product  `json:"product,omitempty"`
	Order    *order.Order      `json:"order,omitempty"`
	Total    float64           `json:"total_amount,omitempty"`
	Payment  *a2a.Message      `json:"payment,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// TransactionID returns the payment backend's transaction id, if any.
func (r Report) TransactionID() string {
	if r.Payment == nil {
		return ""
	}
	s, _ := r.Payment.Payload["transaction_id"].(string)
	return s
}

// Summary is a one-line user-facing description of the outcome.
func (r Report) Summary() string {
	switch r.Outcome {
	case CatalogShown:
		if r.Notice.Kind != intent.NoNotice {
			return fmt.Sprintf("Showing %d products (%s: %s).", len(r.Products), r.Notice.Kind, r.Notice.Subject)
		}
		return fmt.Sprintf("Showing %d products.", len(r.Products))
	case ProductUnavailable:
		subject := r.Notice.Subject
		if subject == "" {
			subject = "the requested product"
		}
		return fmt.Sprintf("Sorry, %q is not available. Here is what we carry (%d products).", subject, len(r.Products))
	case OrderPaid:
		return fmt.Sprintf("Order %s confirmed and paid ($%.2f, transaction %s).", r.Order.OrderID, r.Total, r.TransactionID())
	case OrderPaymentFailed:
		return fmt.Sprintf("Order %s is confirmed but payment failed: %s. The order was not cancelled.", r.Order.OrderID, r.Error)
	case OrderFailed:
		return "The order could not be placed: " + r.Error
	case InvalidQuantity:
		return "The order was rejected: quantity must be a positive whole number."
	case InvalidProduct:
		return "The order was rejected: the product is no longer in the catalog."
	case IntentRejected:
		return "Sorry, I could not understand that request. Please rephrase it."
	case Unavailable:
		return "A required service is unreachable: " + r.Error
	case ToolExecuted:
		return fmt.Sprintf("Ran %s.", r.Intent.Tool)
	}
	return strings.TrimSpace(r.Error)
}
