package payment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"github.com/Protocol-Lattice/boutique-agents/src/models"
	"github.com/Protocol-Lattice/boutique-agents/src/repair"
)

// Deriver produces the canonical Request for an order context.
type Deriver interface {
	Derive(ctx context.Context, c Context) (Request, error)
}

// DeterministicDeriver copies the order id and total straight from context.
type DeterministicDeriver struct {
	Method Method
}

func (d DeterministicDeriver) Derive(_ context.Context, c Context) (Request, error) {
	m := d.Method
	if m == "" {
		m = DefaultMethod
	}
	return Request{OrderID: c.OrderID, Amount: c.TotalAmount, Method: m}, nil
}

// RetryPolicy bounds model attempts. Delay separates consecutive attempts.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetry makes three attempts one second apart.
var DefaultRetry = RetryPolicy{MaxAttempts: 3, Delay: time.Second}

const derivationPrompt = `Return ONLY a JSON object with payment details.
Keys: "order_id" (string), "amount" (number), "method" (string: "credit_card", "paypal", or "bank_transfer")
Example: {"order_id": "123", "amount": 99.99, "method": "credit_card"}

Input: %s`

// LLMDeriver asks a model to restate the order as a payment request. Each
// attempt starts from the same prompt.
type LLMDeriver struct {
	LLM    models.LLM
	Retry  RetryPolicy
	Method Method
	Log    logrus.FieldLogger
}

func (d LLMDeriver) Derive(ctx context.Context, c Context) (Request, error) {
	method := d.Method
	if method == "" {
		method = DefaultMethod
	}
	attempts := d.Retry.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	log := d.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	input := fmt.Sprintf("Order #%s with amount $%.2f. Use %s as payment method.", c.OrderID, c.TotalAmount, method)
	prompt := fmt.Sprintf(derivationPrompt, input)

	var last error
	for attempt := 1; attempt <= attempts; attempt++ {
		req, err := d.attempt(ctx, prompt)
		if err == nil {
			return req, nil
		}
		last = err
		log.WithError(err).WithField("attempt", attempt).Warn("payment derivation attempt failed")
		if attempt == attempts {
			break
		}
		if err := sleep(ctx, d.Retry.Delay); err != nil {
			return Request{}, fmt.Errorf("%w: %v", ErrDerivation, err)
		}
	}
	return Request{}, fmt.Errorf("%w: all %d attempts failed: %v", ErrDerivation, attempts, last)
}

func (d LLMDeriver) attempt(ctx context.Context, prompt string) (Request, error) {
	raw, err := d.LLM.Generate(ctx, prompt)
	if err != nil {
		return Request{}, err
	}
	obj, _, err := repair.Repair(StripFences(raw))
	if err != nil {
		return Request{}, err
	}
	amount, err := cast.ToFloat64E(obj["amount"])
	if err != nil {
		return Request{}, fmt.Errorf("amount: %w", err)
	}
	return Request{
		OrderID: strings.TrimSpace(cast.ToString(obj["order_id"])),
		Amount:  amount,
		Method:  Method(strings.TrimSpace(cast.ToString(obj["method"]))),
	}, nil
}

// StripFences removes markdown code fences around a model answer.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// FallbackDeriver tries Primary and, when it fails, Secondary.
type FallbackDeriver struct {
	Primary   Deriver
	Secondary Deriver
	Log       logrus.FieldLogger
}

func (d FallbackDeriver) Derive(ctx context.Context, c Context) (Request, error) {
	req, err := d.Primary.Derive(ctx, c)
	if err == nil {
		return req, nil
	}
	if d.Log != nil {
		d.Log.WithError(err).Warn("falling back to deterministic payment derivation")
	}
	return d.Secondary.Derive(ctx, c)
}
