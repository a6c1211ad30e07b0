// Package catalogagent is the tool-style agent in front of the storefront:
// it publishes listProducts and placeOrder and executes them.
package catalogagent

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	pkgerrors "github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Protocol-Lattice/boutique-agents/src/catalog"
	"github.com/Protocol-Lattice/boutique-agents/src/intent"
	"github.com/Protocol-Lattice/boutique-agents/src/mcpserver"
	"github.com/Protocol-Lattice/boutique-agents/src/order"
	"github.com/Protocol-Lattice/boutique-agents/src/registry"
	"github.com/Protocol-Lattice/boutique-agents/src/server"
)

// Name and Version identify the agent in MCP and UTCP documents.
const (
	Name    = "boutique-order-agent"
	Version = "1.0.0"
)

// Tools is the tool set the agent publishes.
func Tools() *registry.Registry {
	return registry.New(
		registry.ToolSpec{
			Name:        registry.Listing.DefaultTool,
			Description: "List all available products",
			Output:      registry.Schema{{Name: "products", Type: registry.TypeArray}},
		},
		registry.ToolSpec{
			Name:        registry.Ordering.DefaultTool,
			Description: "Place a new order by product_id and quantity",
			Input: registry.Schema{
				{Name: "product_id", Type: registry.TypeString},
				{Name: "quantity", Type: registry.TypeInteger},
			},
			Output: registry.Schema{{Name: "order", Type: registry.TypeObject}},
		},
	)
}

// Config wires a Server.
type Config struct {
	Gateway *catalog.Gateway
	// Backend places orders; usually an order.StorefrontBackend.
	Backend order.Backend
	// Orders defaults to an in-memory log.
	Orders order.Log
	Log    logrus.FieldLogger
}

// Server serves the agent's HTTP surface.
type Server struct {
	reg      *registry.Registry
	catalog  *catalog.Gateway
	executor *order.Executor
	mcp      *mcpserver.Server
	log      logrus.FieldLogger
}

func NewServer(cfg Config) *Server {
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	reg := Tools()
	ex := order.NewExecutor(reg, cfg.Gateway, cfg.Backend, cfg.Orders, log)
	return &Server{
		reg:      reg,
		catalog:  cfg.Gateway,
		executor: ex,
		mcp:      mcpserver.New(Name, Version, reg, cfg.Gateway, ex),
		log:      log.WithField("component", "catalog-agent"),
	}
}

// MCP returns the agent's MCP adapter, for stdio serving.
func (s *Server) MCP() *mcpserver.Server { return s.mcp }

// Handler returns the routed, wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	r := server.NewRouter()
	r.HandleFunc(registry.ToolsPath, s.discoverHandler).Methods(http.MethodGet)
	r.HandleFunc("/invoke/{toolName}", s.invokeHandler).Methods(http.MethodPost)
	r.HandleFunc("/utcp", s.utcpHandler).Methods(http.MethodGet)
	r.HandleFunc("/orders", s.ordersHandler).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		server.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.Handle("/mcp", s.mcp.HTTPHandler("/mcp"))
	return server.Wrap(r, s.log)
}

func (s *Server) discoverHandler(w http.ResponseWriter, _ *http.Request) {
	server.WriteJSON(w, http.StatusOK, map[string]any{"tools": s.reg.Specs()})
}

func (s *Server) utcpHandler(w http.ResponseWriter, _ *http.Request) {
	server.WriteJSON(w, http.StatusOK, s.reg.Manual(Version))
}

func (s *Server) ordersHandler(w http.ResponseWriter, r *http.Request) {
	orders, err := s.executor.Orders().All(r.Context())
	if err != nil {
		server.RenderError(r, w, pkgerrors.Wrap(err, "could not read order log"), http.StatusInternalServerError)
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}
	server.WriteJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (s *Server) invokeHandler(w http.ResponseWriter, r *http.Request) {
	spec, ok := s.reg.Lookup(mux.Vars(r)["toolName"])
	if !ok {
		server.RenderError(r, w, errors.New("Tool not found"), http.StatusNotFound)
		return
	}
	args := map[string]any{}
	if err := server.DecodeJSON(r, &args); err != nil && !errors.Is(err, io.EOF) {
		server.RenderError(r, w, err, http.StatusBadRequest)
		return
	}

	if s.reg.Is(spec.Name, registry.Listing) {
		snap := s.catalog.List(r.Context())
		if snap.Empty() {
			server.RenderError(r, w, errors.New("catalog unavailable"), http.StatusBadGateway)
			return
		}
		server.WriteJSON(w, http.StatusOK, map[string]any{"products": snap.Products})
		return
	}

	ex, err := s.executor.Execute(r.Context(), intent.Intent{Tool: spec.Name, Args: args})
	var (
		ve *order.ValidationError
		be *order.BackendError
	)
	switch {
	case errors.As(err, &ve) && ve.Reason == order.ReasonNotInCatalog:
		server.RenderError(r, w, errors.New("Product not found"), http.StatusNotFound)
	case errors.As(err, &ve):
		server.RenderError(r, w, err, http.StatusBadRequest)
	case errors.As(err, &be):
		server.RenderError(r, w, pkgerrors.Wrap(err, "Failed to create order"), http.StatusBadGateway)
	case err != nil:
		server.RenderError(r, w, err, http.StatusInternalServerError)
	case ex.Order != nil:
		server.WriteJSON(w, http.StatusOK, map[string]any{"order": ex.Order})
	default:
		server.WriteJSON(w, http.StatusOK, map[string]any{"result": string(ex.Reply.Body)})
	}
}
