package catalogagent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Protocol-Lattice/boutique-agents/src/catalog"
	"github.com/Protocol-Lattice/boutique-agents/src/order"
	"github.com/Protocol-Lattice/boutique-agents/src/registry"
)

type backendFunc func(ctx context.Context, tool string, args map[string]any) (order.Reply, error)

func (f backendFunc) Invoke(ctx context.Context, tool string, args map[string]any) (order.Reply, error) {
	return f(ctx, tool, args)
}

func confirmed(context.Context, string, map[string]any) (order.Reply, error) {
	return order.NewReply("application/json", []byte(`{"order_id":"o-1","tracking_id":"T-1","total_paid":19.98}`)), nil
}

func newAgent(t *testing.T, products []catalog.Product, b order.Backend) *httptest.Server {
	t.Helper()
	logger, _ := test.NewNullLogger()
	gw := catalog.NewGateway(catalog.SourceFunc(func(context.Context) ([]catalog.Product, error) {
		return products, nil
	}), catalog.WithLogger(logger))
	srv := httptest.NewServer(NewServer(Config{Gateway: gw, Backend: b, Log: logger}).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func post(t *testing.T, url, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

var catalogue = []catalog.Product{{ID: "A1", Name: "Candle", PriceUSD: 9.99}}

func TestToolsDiscoverable(t *testing.T) {
	srv := newAgent(t, catalogue, backendFunc(confirmed))
	logger, _ := test.NewNullLogger()

	reg, err := registry.NewDiscoverer(nil, logger).Tools(context.Background(), srv.URL)
	require.NoError(t, err)
	list, ok := reg.Find(registry.Listing)
	require.True(t, ok)
	assert.Equal(t, "listProducts", list.Name)
	place, ok := reg.Find(registry.Ordering)
	require.True(t, ok)
	assert.Equal(t, []string{"product_id", "quantity"}, place.Input.Required())
	assert.False(t, reg.Reduced())
}

func TestInvokeListProducts(t *testing.T) {
	srv := newAgent(t, catalogue, backendFunc(confirmed))

	code, out := post(t, srv.URL+"/invoke/listProducts", "")
	require.Equal(t, http.StatusOK, code)
	products, ok := out["products"].([]any)
	require.True(t, ok)
	require.Len(t, products, 1)
	assert.Equal(t, "A1", products[0].(map[string]any)["id"])
}

func TestInvokeListProductsEmptyCatalog(t *testing.T) {
	srv := newAgent(t, nil, backendFunc(confirmed))

	code, out := post(t, srv.URL+"/invoke/listProducts", "{}")
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "catalog unavailable", out["detail"])
}

func TestInvokePlaceOrder(t *testing.T) {
	srv := newAgent(t, catalogue, backendFunc(confirmed))

	code, out := post(t, srv.URL+"/invoke/placeOrder", `{"product_id":"A1","quantity":2}`)
	require.Equal(t, http.StatusOK, code)
	o := out["order"].(map[string]any)
	assert.Equal(t, "o-1", o["order_id"])
	assert.Equal(t, "confirmed", o["status"])

	resp, err := http.Get(srv.URL + "/orders")
	require.NoError(t, err)
	defer resp.Body.Close()
	var logged struct {
		Orders []order.Order `json:"orders"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&logged))
	require.Len(t, logged.Orders, 1)
	assert.Equal(t, 2, logged.Orders[0].Quantity)
}

func TestInvokePlaceOrderErrors(t *testing.T) {
	failing := backendFunc(func(context.Context, string, map[string]any) (order.Reply, error) {
		return order.Reply{}, &order.BackendError{Status: http.StatusInternalServerError, Detail: "checkout exploded"}
	})
	cases := []struct {
		name    string
		backend order.Backend
		tool    string
		body    string
		status  int
		detail  string
	}{
		{"unknown tool", backendFunc(confirmed), "refund", `{}`, http.StatusNotFound, "Tool not found"},
		{"unknown product", backendFunc(confirmed), "placeOrder", `{"product_id":"ZZ","quantity":1}`, http.StatusNotFound, "Product not found"},
		{"bad quantity", backendFunc(confirmed), "placeOrder", `{"product_id":"A1","quantity":0}`, http.StatusBadRequest, ""},
		{"malformed body", backendFunc(confirmed), "placeOrder", `{"product_id":`, http.StatusBadRequest, ""},
		{"backend failure", failing, "placeOrder", `{"product_id":"A1","quantity":1}`, http.StatusBadGateway, "Failed to create order"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newAgent(t, catalogue, tc.backend)
			code, out := post(t, srv.URL+"/invoke/"+tc.tool, tc.body)
			assert.Equal(t, tc.status, code)
			assert.Contains(t, out["detail"], tc.detail)
		})
	}
}

func TestUTCPManual(t *testing.T) {
	srv := newAgent(t, catalogue, backendFunc(confirmed))

	resp, err := http.Get(srv.URL + "/utcp")
	require.NoError(t, err)
	defer resp.Body.Close()
	var manual registry.UTCPManual
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&manual))
	assert.Equal(t, Version, manual.Version)
	assert.Len(t, manual.Tools, 2)
}

func TestHealthz(t *testing.T) {
	srv := newAgent(t, catalogue, backendFunc(errorBackend))
	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func errorBackend(context.Context, string, map[string]any) (order.Reply, error) {
	return order.Reply{}, errors.New("unused")
}
