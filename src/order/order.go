// Package order executes resolved intents against a catalog/ordering backend
// and normalizes whatever the backend answers into an Order record.
package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Sentinels for the two failure classes of Execute.
var (
	ErrValidation = errors.New("order validation failed")
	ErrBackend    = errors.New("backend error")
)

// Status of a normalized order.
type Status string

const (
	StatusConfirmed Status = "confirmed"
	StatusFailed    Status = "failed"
)

// Unknown is written to identifiers the backend reply did not carry.
const Unknown = "unknown"

// Order is the normalized record of one placed order.
type Order struct {
	OrderID    string  `json:"order_id"`
	TrackingID string  `json:"tracking_id"`
	ProductID  string  `json:"product_id"`
	Quantity   int     `json:"quantity"`
	TotalPaid  float64 `json:"total_paid"`
	Status     Status  `json:"status"`
}

// Confirmed reports whether the backend accepted the order.
func (o Order) Confirmed() bool { return o.Status == StatusConfirmed }

// ValidationError reasons.
const (
	ReasonQuantity     = "must be a positive integer"
	ReasonNotInCatalog = "not in the current catalog"
	ReasonUnknownTool  = "not declared by the agent"
)

// ValidationError rejects an intent before it reaches the backend.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// BackendError wraps a transport failure or a non-success status. Detail
// carries the backend's own message when it sent one.
type BackendError struct {
	Status int
	Detail string
	Err    error
}

func (e *BackendError) Error() string {
	switch {
	case e.Err != nil && e.Detail != "":
		return fmt.Sprintf("backend: %s: %v", e.Detail, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("backend: %v", e.Err)
	case e.Status != 0:
		return fmt.Sprintf("backend status %d: %s", e.Status, e.Detail)
	default:
		return "backend: " + e.Detail
	}
}

func (e *BackendError) Unwrap() error { return e.Err }

func (e *BackendError) Is(target error) bool { return target == ErrBackend }

// Log records placed orders.
type Log interface {
	Append(ctx context.Context, o Order) error
	All(ctx context.Context) ([]Order, error)
}

// MemoryLog is a process-lifetime Log.
type MemoryLog struct {
	mu     sync.RWMutex
	orders []Order
}

// NewMemoryLog returns an empty log.
func NewMemoryLog() *MemoryLog { return &MemoryLog{} }

func (l *MemoryLog) Append(_ context.Context, o Order) error {
	l.mu.Lock()
	l.orders = append(l.orders, o)
	l.mu.Unlock()
	return nil
}

func (l *MemoryLog) All(_ context.Context) ([]Order, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Order, len(l.orders))
	copy(out, l.orders)
	return out, nil
}
