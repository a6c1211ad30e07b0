package registry

import (
	"encoding/json"
	"strings"
)

// ToolSpec describes one operation an agent publishes.
type ToolSpec struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Input       Schema `json:"input_schema"`
	Output      Schema `json:"output_schema"`
}

func (t *ToolSpec) UnmarshalJSON(data []byte) error {
	// Agents in the wild publish schemas under several keys.
	var wire struct {
		Name         string  `json:"name"`
		Description  string  `json:"description"`
		InputSchema  *Schema `json:"input_schema"`
		OutputSchema *Schema `json:"output_schema"`
		Input        *Schema `json:"input"`
		Output       *Schema `json:"output"`
		Inputs       *Schema `json:"inputs"`
		Outputs      *Schema `json:"outputs"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	t.Name = strings.TrimSpace(wire.Name)
	t.Description = wire.Description
	t.Input = firstSchema(wire.InputSchema, wire.Input, wire.Inputs)
	t.Output = firstSchema(wire.OutputSchema, wire.Output, wire.Outputs)
	return nil
}

func firstSchema(candidates ...*Schema) Schema {
	for _, c := range candidates {
		if c != nil {
			return *c
		}
	}
	return nil
}

// ExampleArgs synthesises a plausible argument object from the input schema.
func (t ToolSpec) ExampleArgs() map[string]any {
	args := make(map[string]any, len(t.Input))
	for _, f := range t.Input {
		switch f.Type {
		case TypeInteger:
			args[f.Name] = 1
		case TypeNumber:
			args[f.Name] = 1.0
		case TypeObject:
			args[f.Name] = map[string]any{}
		case TypeArray:
			args[f.Name] = []any{}
		default:
			args[f.Name] = "<" + f.Name + ">"
		}
	}
	return args
}

// ExampleCall renders {"tool": ..., "args": ...} for prompts.
func (t ToolSpec) ExampleCall() string {
	b, _ := json.Marshal(map[string]any{"tool": t.Name, "args": t.ExampleArgs()})
	return string(b)
}

// Role identifies a tool by what it returns rather than by its name.
type Role struct {
	Name string
	// DefaultTool is assumed when no declared registry is reachable.
	DefaultTool string
	Match       func(ToolSpec) bool
}

// OutputHas matches tools whose output schema declares one of the named fields
// with the given type. An empty tag matches any type.
func OutputHas(tag TypeTag, names ...string) func(ToolSpec) bool {
	return func(t ToolSpec) bool {
		for _, n := range names {
			if f, ok := t.Output.Field(n); ok && (tag == "" || f.Type == tag) {
				return true
			}
		}
		return false
	}
}

var (
	// Listing is the tool that returns the product list.
	Listing = Role{Name: "listing", DefaultTool: "listProducts", Match: OutputHas(TypeArray, "products", "items")}
	// Ordering is the tool that places an order.
	Ordering = Role{Name: "ordering", DefaultTool: "placeOrder", Match: OutputHas(TypeObject, "order")}
	// Payment is the capability that settles a payment.
	Payment = Role{Name: "payment", DefaultTool: "processPayment", Match: OutputHas("", "transaction_id")}
)
