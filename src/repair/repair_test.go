package repair

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func TestRepairValidInputMatchesDirectParse(t *testing.T) {
	inputs := []string{
		`{"tool":"listProducts","args":{}}`,
		`{"tool":"placeOrder","args":{"product_id":"A1","quantity":2}}`,
		`{"nested":{"list":[1,2,{"x":"}"}]},"s":"{not a brace"}`,
		`  {"padded": true}  `,
	}
	for _, in := range inputs {
		var want map[string]any
		if err := json.Unmarshal([]byte(in), &want); err != nil {
			t.Fatalf("fixture %q is not valid json: %v", in, err)
		}
		got, strategy, err := Repair(in)
		if err != nil {
			t.Fatalf("Repair(%q) error: %v", in, err)
		}
		if strategy != Verbatim {
			t.Fatalf("Repair(%q) strategy = %s, want verbatim", in, strategy)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("Repair(%q) = %#v, want %#v", in, got, want)
		}
	}
}

func TestRepairStripsSurroundingProse(t *testing.T) {
	raw := "Here is the call:\n```json\n{\"tool\":\"listProducts\",\"args\":{}}\n```\nLet me know!"
	obj, strategy, err := Repair(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strategy != OuterBraces {
		t.Fatalf("strategy = %s, want outer_braces", strategy)
	}
	if obj["tool"] != "listProducts" {
		t.Fatalf("tool = %v", obj["tool"])
	}
}

func TestRepairClosesTruncatedObject(t *testing.T) {
	raw := `{"tool":"placeOrder","args":{"product_id":"A1","quantity":2`
	obj, strategy, err := Repair(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strategy != BalanceBraces {
		t.Fatalf("strategy = %s, want balance_braces", strategy)
	}
	args, ok := obj["args"].(map[string]any)
	if !ok {
		t.Fatalf("args missing: %#v", obj)
	}
	if args["product_id"] != "A1" || args["quantity"] != float64(2) {
		t.Fatalf("args = %#v", args)
	}
}

func TestRepairTruncatedAfterComma(t *testing.T) {
	obj, strategy, err := Repair(`{"tool":"listProducts","args":{},`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strategy != BalanceBraces || obj["tool"] != "listProducts" {
		t.Fatalf("got %#v via %s", obj, strategy)
	}
}

func TestRepairPicksLargestBalancedObject(t *testing.T) {
	raw := `Try {"tool":"listProducts","args":{}} or maybe {oops}`
	obj, strategy, err := Repair(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strategy != LargestObject {
		t.Fatalf("strategy = %s, want largest_object", strategy)
	}
	if obj["tool"] != "listProducts" {
		t.Fatalf("tool = %v", obj["tool"])
	}
}

func TestRepairEarlierStrategiesFailBeforeLaterOnesRun(t *testing.T) {
	raw := `{"tool":"placeOrder","args":{"quantity":1`
	for _, c := range outerBraces(raw) {
		if _, ok := decodeObject(c); ok {
			t.Fatalf("outer braces unexpectedly succeeded on %q", c)
		}
	}
	if _, ok := decodeObject(raw); ok {
		t.Fatal("verbatim unexpectedly succeeded")
	}
	if _, strategy, err := Repair(raw); err != nil || strategy != BalanceBraces {
		t.Fatalf("strategy = %s err = %v", strategy, err)
	}
}

func TestRepairFailsWithoutObject(t *testing.T) {
	for _, raw := range []string{"", "no json here", "[1,2,3]", "{{{", "null"} {
		_, strategy, err := Repair(raw)
		if !errors.Is(err, ErrUnparsableOutput) {
			t.Fatalf("Repair(%q) err = %v, want ErrUnparsableOutput", raw, err)
		}
		if strategy != None {
			t.Fatalf("Repair(%q) strategy = %s, want none", raw, strategy)
		}
	}
}

func TestInto(t *testing.T) {
	var v struct {
		OrderID string  `json:"order_id"`
		Amount  float64 `json:"amount"`
		Method  string  `json:"method"`
	}
	strategy, err := Into("```json\n{\"order_id\":\"o-1\",\"amount\":19.98,\"method\":\"credit_card\"}\n```", &v)
	if err != nil {
		t.Fatalf("Into error: %v", err)
	}
	if strategy != OuterBraces {
		t.Fatalf("strategy = %s", strategy)
	}
	if v.OrderID != "o-1" || v.Amount != 19.98 || v.Method != "credit_card" {
		t.Fatalf("decoded %+v", v)
	}
}
