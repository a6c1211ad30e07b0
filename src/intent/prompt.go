package intent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Protocol-Lattice/boutique-agents/src/catalog"
	"github.com/Protocol-Lattice/boutique-agents/src/registry"
)

// BuildPrompt renders the instruction sent to the model: the tool registry,
// the catalog and the output rules.
func BuildPrompt(text string, reg *registry.Registry, snap catalog.Snapshot) string {
	listing := listingName(reg)
	specs := reg.Specs()

	names := make([]string, 0, len(specs))
	for _, s := range specs {
		names = append(names, s.Name)
	}

	var b strings.Builder
	b.WriteString("You are a JSON-focused API orchestrator for an online boutique. ")
	b.WriteString("Your response must be pure JSON with no markdown and no extra text.\n\n")

	b.WriteString("AVAILABLE TOOLS:\n")
	for _, s := range specs {
		fmt.Fprintf(&b, "- %s: %s\n", s.Name, strings.TrimSpace(s.Description))
		fmt.Fprintf(&b, "  input_schema: %s\n", mustJSON(s.Input))
		fmt.Fprintf(&b, "  output_schema: %s\n", mustJSON(s.Output))
		fmt.Fprintf(&b, "  example: %s\n", s.ExampleCall())
	}

	b.WriteString("\nRULES:\n")
	fmt.Fprintf(&b, "1. Respond with a single JSON object with exactly two top-level fields: \"tool\" and \"args\".\n")
	fmt.Fprintf(&b, "2. No text before or after the JSON, no comments, no markdown.\n")
	fmt.Fprintf(&b, "3. \"tool\" must be one of: %s.\n", strings.Join(names, ", "))
	fmt.Fprintf(&b, "4. Valid product ids: %s\n", strings.Join(snap.IDs(), ", "))
	fmt.Fprintf(&b, "5. Quantities must be positive integers.\n")
	fmt.Fprintf(&b, "6. If the user asks for a product that is not in the catalog, or the product reference is ambiguous, use %s with empty args. Never guess or substitute a different product.\n", listing)
	fmt.Fprintf(&b, "   Example: \"order a cooker\" -> {\"tool\": %q, \"args\": {}} because cooker is not in the catalog.\n", listing)
	fmt.Fprintf(&b, "7. Use %s with empty args when the user wants to browse or the intent is unclear.\n", listing)

	b.WriteString("\nAVAILABLE PRODUCTS:\n")
	if snap.Empty() {
		b.WriteString("(catalog unavailable)\n")
	}
	for _, p := range snap.Products {
		fmt.Fprintf(&b, "- %s: $%.2f\n", p.Name, p.PriceUSD)
		fmt.Fprintf(&b, "  ID: %s\n", p.ID)
		if summary := p.Summary(); summary != "" {
			fmt.Fprintf(&b, "  Description: %s\n", summary)
		}
	}

	fmt.Fprintf(&b, "\nUSER INPUT: %q\n\nRESPOND WITH JSON ONLY:\n", text)
	return b.String()
}

func listingName(reg *registry.Registry) string {
	if spec, ok := reg.Find(registry.Listing); ok {
		return spec.Name
	}
	return registry.Listing.DefaultTool
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
