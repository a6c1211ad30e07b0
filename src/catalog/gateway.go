package catalog

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/Protocol-Lattice/boutique-agents/src/cache"
	"github.com/Protocol-Lattice/boutique-agents/src/metrics"
)

// DefaultTTL is how long a snapshot is served before the next refresh.
const DefaultTTL = 5 * time.Minute

// Source fetches the full product list from a backend.
type Source interface {
	Fetch(ctx context.Context) ([]Product, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]Product, error)

func (f SourceFunc) Fetch(ctx context.Context) ([]Product, error) { return f(ctx) }

// Gateway caches the catalog of one Source. The current snapshot is swapped
// atomically, so readers see either the old or the new list in full.
type Gateway struct {
	src   Source
	ttl   time.Duration
	now   cache.Clock
	log   logrus.FieldLogger
	snap  atomic.Pointer[Snapshot]
	group singleflight.Group
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option { return func(g *Gateway) { g.ttl = ttl } }

// WithClock injects the time source used for expiry.
func WithClock(now cache.Clock) Option { return func(g *Gateway) { g.now = now } }

// WithLogger sets the logger used for refresh failures.
func WithLogger(log logrus.FieldLogger) Option { return func(g *Gateway) { g.log = log } }

// NewGateway returns a Gateway over src.
func NewGateway(src Source, opts ...Option) *Gateway {
	g := &Gateway{
		src: src,
		ttl: DefaultTTL,
		now: time.Now,
		log: logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log = g.log.WithField("component", "catalog")
	return g
}

// Current returns the last published snapshot without refreshing.
func (g *Gateway) Current() Snapshot {
	if s := g.snap.Load(); s != nil {
		return s.clone()
	}
	return Snapshot{}
}

// List returns a copy of the cached snapshot, refreshing it first when it has expired.
func (g *Gateway) List(ctx context.Context) Snapshot {
	if s := g.snap.Load(); s != nil && g.now().Sub(s.FetchedAt) < g.ttl {
		return s.clone()
	}
	return g.Refresh(ctx)
}

// Refresh fetches the catalog regardless of age. Failures and empty results
// are logged and the previous snapshot, or an empty one, is returned.
func (g *Gateway) Refresh(ctx context.Context) Snapshot {
	v, _, _ := g.group.Do("refresh", func() (any, error) {
		return g.refresh(ctx), nil
	})
	return v.(Snapshot).clone()
}

// Lookup refreshes the catalog and reports whether id is currently listed.
func (g *Gateway) Lookup(ctx context.Context, id string) (Product, bool) {
	return g.Refresh(ctx).Find(id)
}

func (g *Gateway) refresh(ctx context.Context) Snapshot {
	products, err := g.src.Fetch(ctx)
	switch {
	case err != nil:
		metrics.CatalogRefresh.WithLabelValues("error").Inc()
		g.log.WithError(err).Warn("catalog refresh failed, serving previous snapshot")
		return g.Current()
	case len(products) == 0:
		metrics.CatalogRefresh.WithLabelValues("empty").Inc()
		g.log.Warn("catalog refresh returned no products, serving previous snapshot")
		return g.Current()
	}

	next := &Snapshot{
		Products:  append([]Product(nil), products...),
		FetchedAt: g.now(),
	}
	g.snap.Store(next)
	metrics.CatalogRefresh.WithLabelValues("ok").Inc()
	g.log.WithField("products", len(products)).Debug("catalog refreshed")
	return *next
}
