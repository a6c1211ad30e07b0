// Package intent turns free-text shopping requests into validated tool calls.
package intent

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Protocol-Lattice/boutique-agents/src/registry"
	"github.com/Protocol-Lattice/boutique-agents/src/repair"
)

var (
	// ErrIntentRejected means the model output could not be recovered as an object.
	ErrIntentRejected = errors.New("intent rejected")
	// ErrModelUnavailable means the model call itself failed.
	ErrModelUnavailable = errors.New("model unavailable")
)

// Intent is a tool call chosen for a user request.
type Intent struct {
	Tool string         `json:"tool"`
	Args map[string]any `json:"args"`
}

// Outcome says whether the model's choice survived validation.
type Outcome int

const (
	Resolved Outcome = iota
	// Downgraded means the model's choice failed validation and was replaced
	// by the listing tool with empty arguments.
	Downgraded
)

func (o Outcome) String() string {
	if o == Downgraded {
		return "downgraded"
	}
	return "resolved"
}

// NoticeKind classifies what the user should be told about a resolution.
type NoticeKind int

const (
	NoNotice NoticeKind = iota
	// ProductUnavailable: the request named a product the catalog does not carry.
	ProductUnavailable
	// IdentifierRejected: the model picked a product id absent from the catalog.
	IdentifierRejected
	// UnknownTool: the model named a tool the registry does not declare.
	UnknownTool
	// SchemaInvalid: required arguments were missing.
	SchemaInvalid
)

func (k NoticeKind) String() string {
	switch k {
	case ProductUnavailable:
		return "product_unavailable"
	case IdentifierRejected:
		return "identifier_rejected"
	case UnknownTool:
		return "unknown_tool"
	case SchemaInvalid:
		return "schema_invalid"
	default:
		return "none"
	}
}

// Notice is a user-facing remark attached to a resolution. Subject is the
// product term, identifier, tool name or missing fields it refers to.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Subject string     `json:"subject,omitempty"`
}

// Resolution is the validated result of Resolve.
type Resolution struct {
	Intent   Intent
	Outcome  Outcome
	Notice   Notice
	Strategy repair.Strategy
}

// ProductArg returns the ordering tool's product identifier argument name.
func ProductArg(spec registry.ToolSpec) string {
	return argName(spec, "product_id", "product", "sku", "id")
}

// QuantityArg returns the ordering tool's quantity argument name.
func QuantityArg(spec registry.ToolSpec) string {
	return argName(spec, "quantity", "qty", "count")
}

// ParseQuantity accepts whole numbers only: integer kinds, integral floats
// and canonical base-10 strings. "2.5", "010" and "0x2" are errors.
func ParseQuantity(v any) (int, error) {
	switch q := v.(type) {
	case int:
		return q, nil
	case int32:
		return int(q), nil
	case int64:
		return int(q), nil
	case float64:
		if math.IsNaN(q) || math.IsInf(q, 0) || q != math.Trunc(q) || math.Abs(q) > math.MaxInt32 {
			return 0, fmt.Errorf("quantity %v is not a whole number", q)
		}
		return int(q), nil
	case string:
		s := strings.TrimSpace(q)
		n, err := strconv.Atoi(s)
		if err != nil || strconv.Itoa(n) != strings.TrimPrefix(s, "+") {
			return 0, fmt.Errorf("quantity %q is not a decimal integer", q)
		}
		return n, nil
	}
	return 0, fmt.Errorf("quantity has type %T", v)
}

func argName(spec registry.ToolSpec, exact string, fragments ...string) string {
	if spec.Input.Has(exact) || len(spec.Input) == 0 {
		return exact
	}
	for _, frag := range fragments {
		for _, f := range spec.Input {
			if strings.Contains(strings.ToLower(f.Name), frag) {
				return f.Name
			}
		}
	}
	return exact
}
