// Package catalog keeps the current product list of a remote backend and
// exposes it as immutable snapshots.
package catalog

import (
	"strings"
	"time"
	"unicode"
)

// Product is one catalog entry.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	PriceUSD    float64 `json:"priceUsd"`
	Description string  `json:"description"`
}

// SummaryLimit bounds Summary in runes.
const SummaryLimit = 160

// Summary returns the first sentence of the description, cut at a period
// followed by whitespace so decimals such as "1.5" stay whole. Summaries
// longer than SummaryLimit runes are truncated with an ellipsis.
func (p Product) Summary() string {
	d := strings.TrimSpace(p.Description)
	for i := 0; i < len(d)-1; i++ {
		if d[i] == '.' && unicode.IsSpace(rune(d[i+1])) {
			d = d[:i+1]
			break
		}
	}
	if r := []rune(d); len(r) > SummaryLimit {
		return strings.TrimSpace(string(r[:SummaryLimit])) + "…"
	}
	return d
}

// Snapshot is a point-in-time copy of the catalog. Snapshots are never
// mutated after publication.
type Snapshot struct {
	Products  []Product `json:"products"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// clone copies the product slice so callers cannot reach the cached one.
func (s Snapshot) clone() Snapshot {
	if s.Products != nil {
		s.Products = append([]Product(nil), s.Products...)
	}
	return s
}

// Empty reports whether the snapshot has no products.
func (s Snapshot) Empty() bool { return len(s.Products) == 0 }

// Find returns the product with the given id.
func (s Snapshot) Find(id string) (Product, bool) {
	id = strings.TrimSpace(id)
	for _, p := range s.Products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// IDs returns product ids in catalog order.
func (s Snapshot) IDs() []string {
	ids := make([]string, len(s.Products))
	for i, p := range s.Products {
		ids[i] = p.ID
	}
	return ids
}
