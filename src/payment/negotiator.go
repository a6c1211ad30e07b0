package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Protocol-Lattice/boutique-agents/src/a2a"
	"github.com/Protocol-Lattice/boutique-agents/src/metrics"
)

// Negotiator runs one payment attempt per process_payment request.
type Negotiator struct {
	deriver Deriver
	backend Backend
	log     logrus.FieldLogger
}

func NewNegotiator(d Deriver, b Backend, log logrus.FieldLogger) *Negotiator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Negotiator{deriver: d, backend: b, log: log.WithField("component", "payment")}
}

// Negotiate never fails: every problem is answered with an error envelope
// whose intent is payment_failed. Success carries the backend reply verbatim.
func (n *Negotiator) Negotiate(ctx context.Context, msg a2a.Message) a2a.Message {
	log := n.log.WithField("conversation_id", msg.ConversationID)

	result, err := n.process(ctx, msg)
	if err != nil {
		metrics.Payments.WithLabelValues(failureLabel(err)).Inc()
		log.WithError(err).WithField("state", Failed.String()).Warn("payment failed")
		return msg.Fail(AgentID, IntentFailed, fmt.Sprintf("Payment processing error: %v", err))
	}
	metrics.Payments.WithLabelValues(Processed.String()).Inc()
	log.WithFields(logrus.Fields{"state": Processed.String(), "transaction_id": result["transaction_id"]}).Info("payment processed")
	return msg.Respond(AgentID, IntentProcessed, result)
}

func (n *Negotiator) process(ctx context.Context, msg a2a.Message) (map[string]any, error) {
	if msg.MessageType != a2a.Request {
		return nil, fmt.Errorf("%w: expected a request, got %q", ErrInvalidRequest, msg.MessageType)
	}
	c, err := ContextFrom(msg.Payload)
	if err != nil {
		return nil, err
	}
	req, err := n.deriver.Derive(ctx, c)
	if err != nil {
		return nil, err
	}
	if err := Validate(req, c); err != nil {
		return nil, err
	}
	return n.backend.CreatePayment(ctx, req)
}

func failureLabel(err error) string {
	switch {
	case errors.Is(err, ErrAmountMismatch):
		return "amount_mismatch"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrDerivation):
		return "derivation_failed"
	case errors.Is(err, ErrPaymentBackend):
		return "backend_error"
	default:
		return "failed"
	}
}

// Outcome maps a negotiation reply to its terminal state.
func Outcome(reply a2a.Message) State {
	if reply.MessageType == a2a.Response {
		return Processed
	}
	return Failed
}
