package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Protocol-Lattice/boutique-agents/src/concurrent"
)

const maxBody = 4 << 20

func defaultClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: 15 * time.Second}
}

// AgentSource reads the catalog by invoking a tool agent's listing tool.
type AgentSource struct {
	BaseURL string
	Tool    string
	Client  *http.Client
}

// Fetch posts an empty argument object to /invoke/{Tool}.
func (s AgentSource) Fetch(ctx context.Context) ([]Product, error) {
	endpoint := strings.TrimRight(s.BaseURL, "/") + "/invoke/" + url.PathEscape(s.Tool)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader([]byte("{}")))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := do(defaultClient(s.Client), req)
	if err != nil {
		return nil, err
	}
	payload, err := Decode(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	if payload.Shape == ShapeIDList {
		return nil, fmt.Errorf("%s: listing tool returned ids without details: %w", endpoint, ErrUnsupportedFormat)
	}
	return payload.Products(), nil
}

// HTTPSource reads a storefront backend that answers JSON. Responses listing
// only product ids are expanded through GET {BaseURL}/product/{id}.
type HTTPSource struct {
	BaseURL string
	// Path is the listing endpoint, "/" when empty.
	Path string
	// Concurrency bounds parallel detail fetches.
	Concurrency int
	Client      *http.Client
	Log         logrus.FieldLogger
}

func (s HTTPSource) Fetch(ctx context.Context) ([]Product, error) {
	path := s.Path
	if path == "" {
		path = "/"
	}
	body, err := s.get(ctx, path)
	if err != nil {
		return nil, err
	}
	payload, err := Decode(body)
	if err != nil {
		return nil, err
	}
	if payload.Shape != ShapeIDList {
		return payload.Products(), nil
	}
	return s.details(ctx, dedupe(payload.IDs))
}

func (s HTTPSource) details(ctx context.Context, ids []string) ([]Product, error) {
	log := s.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return concurrent.Gather(ctx, ids, s.Concurrency, func(ctx context.Context, id string) (Product, error) {
		body, err := s.get(ctx, "/product/"+url.PathEscape(id))
		if err != nil {
			return Product{}, err
		}
		payload, err := Decode(body)
		if err != nil {
			return Product{}, err
		}
		if len(payload.Records) == 0 {
			return Product{}, ErrUnsupportedFormat
		}
		p, ok := ProductFromRecord(payload.Records[0])
		if !ok {
			return Product{}, fmt.Errorf("%w: record has no id", ErrUnsupportedFormat)
		}
		return p, nil
	}, func(id string, err error) {
		log.WithError(err).WithField("product_id", id).Warn("skipping product detail")
	})
}

func (s HTTPSource) get(ctx context.Context, path string) ([]byte, error) {
	endpoint := strings.TrimRight(s.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	return do(defaultClient(s.Client), req)
}

func do(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", req.URL, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s %s: %s", req.Method, req.URL, resp.Status)
	}
	return body, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
