package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type scriptedSource struct {
	calls   int32
	results []func() ([]Product, error)
}

func (s *scriptedSource) Fetch(context.Context) ([]Product, error) {
	i := int(atomic.AddInt32(&s.calls, 1)) - 1
	if i >= len(s.results) {
		i = len(s.results) - 1
	}
	return s.results[i]()
}

func ok(products ...Product) func() ([]Product, error) {
	return func() ([]Product, error) { return products, nil }
}

func fail() func() ([]Product, error) {
	return func() ([]Product, error) { return nil, errors.New("backend down") }
}

var candle = Product{ID: "A1", Name: "Candle", PriceUSD: 9.99, Description: "Scented. Burns long."}

func newTestGateway(src Source, clk *fakeClock) *Gateway {
	logger, _ := test.NewNullLogger()
	return NewGateway(src, WithClock(clk.Now), WithLogger(logger))
}

func TestGatewayServesCacheWithinTTL(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	src := &scriptedSource{results: []func() ([]Product, error){ok(candle), ok(candle, Product{ID: "B2"})}}
	g := newTestGateway(src, clk)

	first := g.List(context.Background())
	require.Len(t, first.Products, 1)

	clk.Advance(DefaultTTL - time.Second)
	again := g.List(context.Background())
	assert.Len(t, again.Products, 1)
	assert.EqualValues(t, 1, atomic.LoadInt32(&src.calls))

	clk.Advance(time.Second)
	expired := g.List(context.Background())
	assert.Len(t, expired.Products, 2)
	assert.EqualValues(t, 2, atomic.LoadInt32(&src.calls))
	assert.Equal(t, clk.Now(), expired.FetchedAt)
}

func TestGatewayKeepsStaleSnapshotOnFailure(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	src := &scriptedSource{results: []func() ([]Product, error){ok(candle), fail()}}
	g := newTestGateway(src, clk)

	g.List(context.Background())
	clk.Advance(DefaultTTL)

	snap := g.List(context.Background())
	require.Len(t, snap.Products, 1)
	assert.Equal(t, "A1", snap.Products[0].ID)
}

func TestGatewayKeepsPreviousSnapshotOnEmptyFetch(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	src := &scriptedSource{results: []func() ([]Product, error){ok(candle), ok()}}
	g := newTestGateway(src, clk)

	g.Refresh(context.Background())
	snap := g.Refresh(context.Background())
	assert.Len(t, snap.Products, 1)
}

func TestGatewayEmptyWithoutPriorSnapshot(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	g := newTestGateway(&scriptedSource{results: []func() ([]Product, error){fail()}}, clk)

	snap := g.List(context.Background())
	assert.True(t, snap.Empty())
	assert.True(t, g.Current().Empty())
}

func TestGatewayLookupRefreshes(t *testing.T) {
	clk := &fakeClock{t: time.Unix(0, 0)}
	src := &scriptedSource{results: []func() ([]Product, error){ok(candle), ok(Product{ID: "B2"})}}
	g := newTestGateway(src, clk)

	g.List(context.Background())
	_, found := g.Lookup(context.Background(), "A1")
	assert.False(t, found, "lookup must see the catalog as of now, not the cached one")
	_, found = g.Lookup(context.Background(), "B2")
	assert.True(t, found)
}

func generation(n, size int) []Product {
	out := make([]Product, size)
	for i := range out {
		out[i] = Product{ID: fmt.Sprintf("g%d-%d", n, i), Name: fmt.Sprintf("gen%d", n)}
	}
	return out
}

func TestGatewaySnapshotsAreNeverTorn(t *testing.T) {
	var gen int32
	src := SourceFunc(func(context.Context) ([]Product, error) {
		n := int(atomic.AddInt32(&gen, 1))
		return generation(n, 1+n%7), nil
	})
	clk := &fakeClock{t: time.Unix(0, 0)}
	g := newTestGateway(src, clk)
	g.Refresh(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ctx.Err() == nil {
			g.Refresh(context.Background())
		}
	}()

	errs := make(chan string, 8)
	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				snap := g.Current()
				if len(snap.Products) == 0 {
					errs <- "observed empty snapshot"
					return
				}
				var n int
				fmt.Sscanf(snap.Products[0].Name, "gen%d", &n)
				if len(snap.Products) != 1+n%7 {
					errs <- fmt.Sprintf("generation %d has %d products", n, len(snap.Products))
					return
				}
				for _, p := range snap.Products {
					if p.Name != snap.Products[0].Name {
						errs <- "mixed generations in one snapshot"
						return
					}
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Fatal(e)
	}
}

func TestProductSummary(t *testing.T) {
	assert.Equal(t, "Scented.", candle.Summary())
	assert.Equal(t, "no period", Product{Description: " no period "}.Summary())
	assert.Equal(t, "Holds 1.5 litres.", Product{Description: "Holds 1.5 litres. Dishwasher safe."}.Summary())
	assert.Equal(t, "Version 2.0", Product{Description: "Version 2.0"}.Summary())

	long := Product{Description: strings.Repeat("é", SummaryLimit+20)}.Summary()
	assert.Equal(t, SummaryLimit+1, utf8.RuneCountInString(long))
	assert.True(t, strings.HasSuffix(long, "…"))
}

func TestGatewaySnapshotsAreCopies(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	g := newTestGateway(&scriptedSource{results: []func() ([]Product, error){ok(candle)}}, clk)

	listed := g.List(context.Background())
	require.Len(t, listed.Products, 1)
	listed.Products[0].Name = "Mutated"

	assert.Equal(t, "Candle", g.Current().Products[0].Name)
	assert.Equal(t, "Candle", g.List(context.Background()).Products[0].Name)

	current := g.Current()
	current.Products[0].PriceUSD = 0
	assert.Equal(t, 9.99, g.Current().Products[0].PriceUSD)
}
