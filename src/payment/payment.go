// Package payment negotiates payments between the orchestrator and a
// payment backend over agent-to-agent envelopes.
package payment

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/spf13/cast"
)

var (
	ErrDerivation     = errors.New("payment derivation failed")
	ErrInvalidRequest = errors.New("invalid payment request")
	ErrAmountMismatch = errors.New("payment amount mismatch")
	ErrPaymentBackend = errors.New("payment backend error")
)

// Envelope identifiers used on the wire.
const (
	AgentID         = "payment_ai_agent"
	Capability      = "processPayment"
	IntentProcess   = "process_payment"
	IntentProcessed = "payment_processed"
	IntentFailed    = "payment_failed"
)

// Tolerance is the largest accepted difference between a derived amount and
// the order total.
const Tolerance = 0.01

// Method is a payment method.
type Method string

const (
	CreditCard   Method = "credit_card"
	PayPal       Method = "paypal"
	BankTransfer Method = "bank_transfer"
)

// DefaultMethod is used when the caller does not name one.
const DefaultMethod = CreditCard

func (m Method) Valid() bool {
	switch m {
	case CreditCard, PayPal, BankTransfer:
		return true
	}
	return false
}

// State of one payment attempt. Processed and Failed are terminal.
type State int

const (
	Requested State = iota
	Processed
	Failed
)

func (s State) String() string {
	switch s {
	case Processed:
		return "processed"
	case Failed:
		return "failed"
	default:
		return "requested"
	}
}

// Request is the canonical payload sent to the payment backend.
type Request struct {
	OrderID string  `json:"order_id"`
	Amount  float64 `json:"amount"`
	Method  Method  `json:"method"`
}

// Context describes the order a payment settles.
type Context struct {
	OrderID     string  `json:"order_id"`
	Product     string  `json:"product,omitempty"`
	Quantity    int     `json:"quantity,omitempty"`
	TotalAmount float64 `json:"total_amount"`
}

// Payload renders the process_payment request body {message, context}.
func (c Context) Payload(message string) map[string]any {
	return map[string]any{
		"message": message,
		"context": map[string]any{
			"order_id":     c.OrderID,
			"product":      c.Product,
			"quantity":     c.Quantity,
			"total_amount": c.TotalAmount,
		},
	}
}

// ContextFrom reads the context member of a process_payment payload.
func ContextFrom(payload map[string]any) (Context, error) {
	raw, ok := payload["context"].(map[string]any)
	if !ok {
		return Context{}, fmt.Errorf("%w: payload has no context object", ErrInvalidRequest)
	}
	c := Context{
		OrderID:  strings.TrimSpace(cast.ToString(raw["order_id"])),
		Product:  cast.ToString(raw["product"]),
		Quantity: cast.ToInt(raw["quantity"]),
	}
	if c.OrderID == "" {
		return Context{}, fmt.Errorf("%w: context.order_id is required", ErrInvalidRequest)
	}
	total, err := cast.ToFloat64E(raw["total_amount"])
	if err != nil || raw["total_amount"] == nil || !finite(total) {
		return Context{}, fmt.Errorf("%w: context.total_amount must be a number", ErrInvalidRequest)
	}
	c.TotalAmount = total
	return c, nil
}

// Validate checks req against the order context.
func Validate(req Request, c Context) error {
	var missing []string
	if strings.TrimSpace(req.OrderID) == "" {
		missing = append(missing, "order_id")
	}
	if req.Method == "" {
		missing = append(missing, "method")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidRequest, strings.Join(missing, ", "))
	}
	if !req.Method.Valid() {
		return fmt.Errorf("%w: unsupported method %q", ErrInvalidRequest, req.Method)
	}
	if req.OrderID != c.OrderID {
		return fmt.Errorf("%w: order_id %q does not match order %q", ErrInvalidRequest, req.OrderID, c.OrderID)
	}
	if !finite(req.Amount) || !finite(c.TotalAmount) {
		return fmt.Errorf("%w: amount %v, order total %v", ErrAmountMismatch, req.Amount, c.TotalAmount)
	}
	if math.Abs(req.Amount-c.TotalAmount) > Tolerance+1e-9 {
		return fmt.Errorf("%w: amount %.2f, order total %.2f", ErrAmountMismatch, req.Amount, c.TotalAmount)
	}
	return nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
