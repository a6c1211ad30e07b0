package order

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/Protocol-Lattice/boutique-agents/src/catalog"
)

var (
	orderIDKeys  = []string{"order_id", "orderId", "id", "confirmation_id", "confirmationId", "confirmation"}
	trackingKeys = []string{"tracking_id", "trackingId", "shipping_tracking_id", "tracking"}
	totalKeys    = []string{"total_paid", "totalPaid", "total", "total_amount", "amount"}
	failedWords  = map[string]bool{"failed": true, "failure": true, "error": true, "declined": true, "rejected": true}

	// Storefront confirmation pages render "Label #</div><div ...>value".
	cell        = `\s*:?\s*(?:</[a-z0-9]+>\s*<[a-z0-9]+[^>]*>\s*)?`
	confirmRe   = regexp.MustCompile(`(?i)confirmation\s*(?:#|id\b|number\b|:)` + cell + `([a-z0-9][a-z0-9-]*)`)
	trackingRe  = regexp.MustCompile(`(?i)tracking\s*(?:#|id\b|number\b|:)` + cell + `([a-z0-9][a-z0-9-]*)`)
	totalPaidRe = regexp.MustCompile(`(?i)total\s*paid` + cell + `\$?\s*([0-9][0-9,]*(?:\.[0-9]+)?)`)
)

// Normalize maps a backend reply to an Order. Fields the reply does not carry
// fall back to productID/qty or to the Unknown / zero sentinels.
func Normalize(r Reply, productID string, qty int) Order {
	o := Order{
		OrderID:    Unknown,
		TrackingID: Unknown,
		ProductID:  productID,
		Quantity:   qty,
		Status:     StatusConfirmed,
	}
	if r.Kind == ReplyJSON {
		root := gjson.ParseBytes(r.Body)
		if root.IsObject() {
			normalizeJSON(&o, root)
			if o.OrderID != Unknown && o.TrackingID != Unknown && o.TotalPaid > 0 {
				return o
			}
		}
	}
	normalizeText(&o, string(r.Body))
	return o
}

func normalizeJSON(o *Order, root gjson.Result) {
	obj := root
	if nested := root.Get("order"); nested.IsObject() {
		obj = nested
	}
	if v := first(obj, orderIDKeys...); v.Exists() && v.String() != "" {
		o.OrderID = v.String()
	}
	if v := first(obj, trackingKeys...); v.Exists() && v.String() != "" {
		o.TrackingID = v.String()
	}
	if v := first(obj, totalKeys...); v.Exists() {
		if amt := catalog.ParseAmount(v); amt > 0 {
			o.TotalPaid = amt
		}
	}
	if v := first(obj, "product_id", "productId"); v.Exists() && v.String() != "" {
		o.ProductID = v.String()
	}
	if v := first(obj, "quantity", "qty"); v.Exists() && v.Int() > 0 {
		o.Quantity = int(v.Int())
	}
	status := first(obj, "status", "state")
	if !status.Exists() {
		status = root.Get("status")
	}
	if failedWords[strings.ToLower(status.String())] {
		o.Status = StatusFailed
	}
	if errv := root.Get("error"); errv.Exists() && errv.String() != "" && o.OrderID == Unknown {
		o.Status = StatusFailed
	}
	if ok := root.Get("success"); ok.Exists() && ok.Type == gjson.False {
		o.Status = StatusFailed
	}
}

func normalizeText(o *Order, text string) {
	if o.OrderID == Unknown {
		if m := confirmRe.FindStringSubmatch(text); m != nil {
			o.OrderID = m[1]
		}
	}
	if o.TrackingID == Unknown {
		if m := trackingRe.FindStringSubmatch(text); m != nil {
			o.TrackingID = m[1]
		}
	}
	if o.TotalPaid == 0 {
		if m := totalPaidRe.FindStringSubmatch(text); m != nil {
			o.TotalPaid = catalog.ParseAmount(gjson.Parse(`"` + m[1] + `"`))
		}
	}
}

func first(r gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := r.Get(k); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}
