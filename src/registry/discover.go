package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrDiscoveryUnavailable means no registry could be read from an agent.
var ErrDiscoveryUnavailable = errors.New("discovery unavailable")

// Well-known discovery paths.
const (
	ToolsPath        = "/.well-known/mcp"
	AgentCardPath    = "/.well-known/agent-card"
	CapabilitiesPath = "/.well-known/agent-capabilities"
)

// Discoverer reads registries from agents' well-known endpoints.
type Discoverer struct {
	client *http.Client
	log    logrus.FieldLogger
}

// NewDiscoverer returns a Discoverer. A nil client gets a 10s timeout.
func NewDiscoverer(client *http.Client, log logrus.FieldLogger) *Discoverer {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Discoverer{client: client, log: log}
}

// Tools reads {tools: [...]} from a tool-style agent.
func (d *Discoverer) Tools(ctx context.Context, baseURL string) (*Registry, error) {
	var doc struct {
		Tools []ToolSpec `json:"tools"`
	}
	if err := d.get(ctx, baseURL, ToolsPath, &doc); err != nil {
		return nil, err
	}
	return build(baseURL, doc.Tools)
}

// Agent reads the capabilities of a message-passing agent, preferring the
// agent card and falling back to the plain capabilities document.
func (d *Discoverer) Agent(ctx context.Context, baseURL string) (*Registry, error) {
	var errs []error
	for _, path := range []string{AgentCardPath, CapabilitiesPath} {
		var doc struct {
			Capabilities []ToolSpec `json:"capabilities"`
		}
		if err := d.get(ctx, baseURL, path, &doc); err != nil {
			errs = append(errs, err)
			continue
		}
		reg, err := build(baseURL, doc.Capabilities)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		return reg, nil
	}
	return nil, errors.Join(errs...)
}

// ToolsOrFallback discovers tools, degrading to Fallback when the agent cannot be read.
func (d *Discoverer) ToolsOrFallback(ctx context.Context, baseURL string) *Registry {
	reg, err := d.Tools(ctx, baseURL)
	if err != nil {
		d.log.WithError(err).WithField("agent", baseURL).Warn("tool discovery failed, using default tools")
		return Fallback()
	}
	return reg
}

func (d *Discoverer) get(ctx context.Context, baseURL, path string, v any) error {
	url := strings.TrimRight(baseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDiscoveryUnavailable, err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDiscoveryUnavailable, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("%w: %s returned %s", ErrDiscoveryUnavailable, url, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrDiscoveryUnavailable, url, err)
	}
	return nil
}

func build(baseURL string, specs []ToolSpec) (*Registry, error) {
	reg := New(specs...)
	if reg.Len() == 0 {
		return nil, fmt.Errorf("%w: %s published no tools", ErrDiscoveryUnavailable, baseURL)
	}
	return reg, nil
}
