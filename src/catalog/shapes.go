package catalog

import (
	"errors"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// ErrUnsupportedFormat is returned for payloads that are not JSON product data.
var ErrUnsupportedFormat = errors.New("unsupported catalog format")

// Shape tags the layout of a backend's product payload.
type Shape int

const (
	ShapeUnknown Shape = iota
	// ShapeList is a bare array of product records.
	ShapeList
	// ShapeEnvelope is an object whose "products" or "items" member holds records.
	ShapeEnvelope
	// ShapeIDList is a list of product ids whose details must be fetched separately.
	ShapeIDList
	// ShapeSingle is one product record.
	ShapeSingle
)

// Payload is a decoded backend response. Records is set for record-bearing
// shapes and IDs for ShapeIDList.
type Payload struct {
	Shape   Shape
	Records []gjson.Result
	IDs     []string
}

// Decode classifies a backend response body.
func Decode(body []byte) (Payload, error) {
	if !gjson.ValidBytes(body) {
		return Payload{}, ErrUnsupportedFormat
	}
	root := gjson.ParseBytes(body)

	switch {
	case root.IsArray():
		return fromArray(root, ShapeList), nil
	case root.IsObject():
		for _, key := range []string{"products", "items"} {
			if v := root.Get(key); v.IsArray() {
				return fromArray(v, ShapeEnvelope), nil
			}
		}
		for _, key := range []string{"product_ids", "productIds", "ids"} {
			if v := root.Get(key); v.IsArray() {
				return fromArray(v, ShapeIDList), nil
			}
		}
		if recordID(root) != "" {
			return Payload{Shape: ShapeSingle, Records: []gjson.Result{root}}, nil
		}
	}
	return Payload{}, ErrUnsupportedFormat
}

func fromArray(arr gjson.Result, shape Shape) Payload {
	elems := arr.Array()
	allStrings := len(elems) > 0
	for _, e := range elems {
		if e.Type != gjson.String {
			allStrings = false
			break
		}
	}
	if allStrings {
		ids := make([]string, 0, len(elems))
		for _, e := range elems {
			if id := strings.TrimSpace(e.String()); id != "" {
				ids = append(ids, id)
			}
		}
		return Payload{Shape: ShapeIDList, IDs: ids}
	}
	return Payload{Shape: shape, Records: elems}
}

// Products converts the record-bearing payload into products, skipping
// records without an id.
func (p Payload) Products() []Product {
	out := make([]Product, 0, len(p.Records))
	for _, r := range p.Records {
		if prod, ok := ProductFromRecord(r); ok {
			out = append(out, prod)
		}
	}
	return out
}

// ProductFromRecord adapts one JSON product record, tolerating the field
// names and price encodings seen across storefront backends.
func ProductFromRecord(r gjson.Result) (Product, bool) {
	id := recordID(r)
	if id == "" {
		return Product{}, false
	}
	return Product{
		ID:          id,
		Name:        firstString(r, "name", "title"),
		PriceUSD:    ParseAmount(firstOf(r, "priceUsd", "price_usd", "priceUSD", "price")),
		Description: firstString(r, "description", "desc"),
	}, true
}

func recordID(r gjson.Result) string {
	return firstString(r, "id", "product_id", "productId", "sku")
}

func firstOf(r gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := r.Get(k); v.Exists() {
			return v
		}
	}
	return gjson.Result{}
}

func firstString(r gjson.Result, keys ...string) string {
	return strings.TrimSpace(firstOf(r, keys...).String())
}

// ParseAmount reads a monetary value encoded as a number, a "$1,234.50"
// style string, or a {units, nanos} / {amount} object. Anything else is 0.
func ParseAmount(v gjson.Result) float64 {
	switch v.Type {
	case gjson.Number:
		return v.Float()
	case gjson.String:
		s := strings.TrimSpace(v.String())
		s = strings.TrimPrefix(s, "USD")
		s = strings.TrimSpace(strings.TrimPrefix(s, "$"))
		s = strings.ReplaceAll(s, ",", "")
		f, _ := strconv.ParseFloat(s, 64)
		return f
	case gjson.JSON:
		if amount := firstOf(v, "amount", "value"); amount.Exists() {
			return ParseAmount(amount)
		}
		return v.Get("units").Float() + v.Get("nanos").Float()/1e9
	}
	return 0
}
