// Package paymentbackend is the settlement service behind the payment
// agent. It accepts canonical payment requests and issues transaction ids.
package paymentbackend

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"

	"github.com/Protocol-Lattice/boutique-agents/src/payment"
	"github.com/Protocol-Lattice/boutique-agents/src/server"
)

// Ledger settles payments in process. It satisfies payment.Backend.
type Ledger struct {
	// NewID issues transaction ids; defaults to "txn_" + a random UUID.
	NewID func() string
	log   logrus.FieldLogger
}

func NewLedger(log logrus.FieldLogger) *Ledger {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Ledger{log: log.WithField("component", "payment-backend")}
}

func (l *Ledger) CreatePayment(_ context.Context, req payment.Request) (map[string]any, error) {
	if err := check(req); err != nil {
		return nil, err
	}
	txn := "txn_" + uuid.NewString()
	if l.NewID != nil {
		txn = l.NewID()
	}
	l.log.WithFields(logrus.Fields{
		"order_id":       req.OrderID,
		"amount":         req.Amount,
		"method":         req.Method,
		"transaction_id": txn,
	}).Info("payment settled")
	return map[string]any{
		"status":         "success",
		"order_id":       req.OrderID,
		"amount":         req.Amount,
		"method":         req.Method,
		"transaction_id": txn,
	}, nil
}

func check(req payment.Request) error {
	switch {
	case strings.TrimSpace(req.OrderID) == "":
		return fmt.Errorf("%w: order_id is required", payment.ErrInvalidRequest)
	case req.Amount <= 0:
		return fmt.Errorf("%w: amount must be positive", payment.ErrInvalidRequest)
	case !req.Method.Valid():
		return fmt.Errorf("%w: unsupported method %q", payment.ErrInvalidRequest, req.Method)
	}
	return nil
}

// Handler serves POST /createPayment. order_id may arrive as a string or a
// number.
func (l *Ledger) Handler() http.Handler {
	r := server.NewRouter()
	r.HandleFunc("/createPayment", l.createHandler).Methods(http.MethodPost)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		server.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	return server.Wrap(r, l.log)
}

func (l *Ledger) createHandler(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if err := server.DecodeJSON(r, &body); err != nil {
		server.RenderError(r, w, err, http.StatusBadRequest)
		return
	}
	amount, err := cast.ToFloat64E(body["amount"])
	if err != nil {
		server.RenderError(r, w, fmt.Errorf("%w: amount must be a number", payment.ErrInvalidRequest), http.StatusUnprocessableEntity)
		return
	}
	req := payment.Request{
		OrderID: cast.ToString(body["order_id"]),
		Amount:  amount,
		Method:  payment.Method(cast.ToString(body["method"])),
	}
	out, err := l.CreatePayment(r.Context(), req)
	if err != nil {
		server.RenderError(r, w, err, http.StatusUnprocessableEntity)
		return
	}
	server.WriteJSON(w, http.StatusOK, out)
}
