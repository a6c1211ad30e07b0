package order

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Protocol-Lattice/boutique-agents/src/catalog"
	"github.com/Protocol-Lattice/boutique-agents/src/intent"
	"github.com/Protocol-Lattice/boutique-agents/src/registry"
)

var candle = catalog.Product{ID: "A1", Name: "Candle", PriceUSD: 9.99}

type backendFunc func(ctx context.Context, tool string, args map[string]any) (Reply, error)

func (f backendFunc) Invoke(ctx context.Context, tool string, args map[string]any) (Reply, error) {
	return f(ctx, tool, args)
}

func gatewayOf(products ...catalog.Product) *catalog.Gateway {
	logger, _ := test.NewNullLogger()
	return catalog.NewGateway(catalog.SourceFunc(func(context.Context) ([]catalog.Product, error) {
		return products, nil
	}), catalog.WithLogger(logger))
}

func newExecutor(gw *catalog.Gateway, b Backend) *Executor {
	logger, _ := test.NewNullLogger()
	reg := registry.New(
		registry.ToolSpec{Name: "listProducts", Output: registry.Schema{{Name: "products", Type: registry.TypeArray}}},
		registry.ToolSpec{
			Name:   "placeOrder",
			Input:  registry.Schema{{Name: "product_id", Type: registry.TypeString}, {Name: "quantity", Type: registry.TypeInteger}},
			Output: registry.Schema{{Name: "order", Type: registry.TypeObject}},
		},
	)
	return NewExecutor(reg, gw, b, NewMemoryLog(), logger)
}

func TestExecuteListing(t *testing.T) {
	b := backendFunc(func(_ context.Context, tool string, _ map[string]any) (Reply, error) {
		require.Equal(t, "listProducts", tool)
		return NewReply("application/json", []byte(`{"products":[{"id":"A1","name":"Candle","priceUsd":9.99}]}`)), nil
	})
	ex, err := newExecutor(gatewayOf(candle), b).Execute(context.Background(), intent.Intent{Tool: "listProducts", Args: map[string]any{}})
	require.NoError(t, err)
	require.Len(t, ex.Products, 1)
	assert.Equal(t, "Candle", ex.Products[0].Name)
	assert.Nil(t, ex.Order)
}

func TestExecuteOrderAppendsToLog(t *testing.T) {
	b := backendFunc(func(_ context.Context, tool string, args map[string]any) (Reply, error) {
		assert.Equal(t, "placeOrder", tool)
		assert.Equal(t, 2, args["quantity"])
		return NewReply("application/json", []byte(`{"order":{"order_id":"o-1","tracking_id":"T-1","total_paid":19.98}}`)), nil
	})
	e := newExecutor(gatewayOf(candle), b)

	ex, err := e.Execute(context.Background(), intent.Intent{Tool: "placeOrder", Args: map[string]any{"product_id": "A1", "quantity": 2}})
	require.NoError(t, err)
	require.NotNil(t, ex.Order)
	assert.Equal(t, 2, ex.Order.Quantity)
	assert.Equal(t, StatusConfirmed, ex.Order.Status)
	assert.Equal(t, candle, ex.Product)

	logged, err := e.Orders().All(context.Background())
	require.NoError(t, err)
	require.Len(t, logged, 1)
	assert.Equal(t, "o-1", logged[0].OrderID)
}

func TestExecuteRejectsNonPositiveQuantity(t *testing.T) {
	var called int32
	b := backendFunc(func(context.Context, string, map[string]any) (Reply, error) {
		atomic.AddInt32(&called, 1)
		return Reply{}, nil
	})
	e := newExecutor(gatewayOf(candle), b)

	for _, qty := range []any{0, -1, "two", nil, 1.5, 2.5, "010", "0x2", " 3x"} {
		_, err := e.Execute(context.Background(), intent.Intent{Tool: "placeOrder", Args: map[string]any{"product_id": "A1", "quantity": qty}})
		require.ErrorIs(t, err, ErrValidation, "quantity %v", qty)
	}
	assert.Zero(t, atomic.LoadInt32(&called))
}

func TestExecuteRechecksCatalog(t *testing.T) {
	var fetches int32
	logger, _ := test.NewNullLogger()
	gw := catalog.NewGateway(catalog.SourceFunc(func(context.Context) ([]catalog.Product, error) {
		if atomic.AddInt32(&fetches, 1) == 1 {
			return []catalog.Product{candle}, nil
		}
		return []catalog.Product{{ID: "B2", Name: "Mug", PriceUSD: 8}}, nil
	}), catalog.WithLogger(logger))
	gw.List(context.Background())

	b := backendFunc(func(context.Context, string, map[string]any) (Reply, error) {
		t.Fatal("backend must not be called for a withdrawn product")
		return Reply{}, nil
	})
	_, err := newExecutor(gw, b).Execute(context.Background(), intent.Intent{Tool: "placeOrder", Args: map[string]any{"product_id": "A1", "quantity": 1}})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "product_id", ve.Field)
}

func TestExecuteBackendFailure(t *testing.T) {
	b := backendFunc(func(context.Context, string, map[string]any) (Reply, error) {
		return Reply{}, errors.New("connection refused")
	})
	e := newExecutor(gatewayOf(candle), b)

	_, err := e.Execute(context.Background(), intent.Intent{Tool: "placeOrder", Args: map[string]any{"product_id": "A1", "quantity": 1}})
	require.ErrorIs(t, err, ErrBackend)

	logged, _ := e.Orders().All(context.Background())
	assert.Empty(t, logged)
}

func TestExecuteUnknownTool(t *testing.T) {
	_, err := newExecutor(gatewayOf(candle), nil).Execute(context.Background(), intent.Intent{Tool: "refund"})
	require.ErrorIs(t, err, ErrValidation)
}

func TestMemoryLogReturnsCopy(t *testing.T) {
	l := NewMemoryLog()
	require.NoError(t, l.Append(context.Background(), Order{OrderID: "o-1"}))
	all, _ := l.All(context.Background())
	all[0].OrderID = "mutated"
	again, _ := l.All(context.Background())
	assert.Equal(t, "o-1", again[0].OrderID)
}
