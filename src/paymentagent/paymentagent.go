// Package paymentagent serves the payment negotiator as an A2A agent.
package paymentagent

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Protocol-Lattice/boutique-agents/src/a2a"
	"github.com/Protocol-Lattice/boutique-agents/src/payment"
	"github.com/Protocol-Lattice/boutique-agents/src/registry"
	"github.com/Protocol-Lattice/boutique-agents/src/server"
)

const (
	Name         = "Payment AI Agent"
	Version      = "1.0.0"
	legacySender = "legacy_client"
)

// Capabilities lists what the agent advertises.
func Capabilities() []registry.ToolSpec {
	return []registry.ToolSpec{{
		Name:        payment.Capability,
		Description: "Process payment for an order using natural language understanding",
		Input: registry.Schema{
			{Name: "message", Type: registry.TypeString},
			{Name: "context", Type: registry.TypeObject},
		},
		Output: registry.Schema{
			{Name: "status", Type: registry.TypeString},
			{Name: "transaction_id", Type: registry.TypeString},
			{Name: "details", Type: registry.TypeObject, Optional: true},
		},
	}}
}

type Server struct {
	negotiator *payment.Negotiator
	card       a2a.AgentCard
	log        logrus.FieldLogger
}

// NewServer serves n. publicURL is advertised in the agent card.
func NewServer(n *payment.Negotiator, publicURL string, log logrus.FieldLogger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		negotiator: n,
		card: a2a.NewAgentCard(payment.AgentID, Name,
			"Derives and settles payment requests for confirmed orders",
			publicURL, Version, Capabilities()),
		log: log.WithField("component", "payment-agent"),
	}
}

func (s *Server) Handler() http.Handler {
	r := server.NewRouter()
	r.HandleFunc(registry.CapabilitiesPath, s.capabilitiesHandler).Methods(http.MethodGet)
	r.HandleFunc(registry.AgentCardPath, s.cardHandler).Methods(http.MethodGet)
	r.HandleFunc("/a2a/{capability}", s.a2aHandler).Methods(http.MethodPost)
	r.HandleFunc("/handlePayment", s.legacyHandler).Methods(http.MethodPost)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		server.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	return server.Wrap(r, s.log)
}

func (s *Server) capabilitiesHandler(w http.ResponseWriter, _ *http.Request) {
	server.WriteJSON(w, http.StatusOK, a2a.Capabilities{AgentID: payment.AgentID, Capabilities: s.card.Capabilities})
}

func (s *Server) cardHandler(w http.ResponseWriter, _ *http.Request) {
	server.WriteJSON(w, http.StatusOK, s.card)
}

func (s *Server) a2aHandler(w http.ResponseWriter, r *http.Request) {
	if !strings.EqualFold(mux.Vars(r)["capability"], payment.Capability) {
		server.RenderError(r, w, errors.New("capability not found"), http.StatusNotFound)
		return
	}
	var msg a2a.Message
	if err := server.DecodeJSON(r, &msg); err != nil {
		server.RenderError(r, w, err, http.StatusBadRequest)
		return
	}
	server.WriteJSON(w, http.StatusOK, s.negotiator.Negotiate(r.Context(), msg))
}

// legacyHandler accepts a bare process_payment payload.
func (s *Server) legacyHandler(w http.ResponseWriter, r *http.Request) {
	var payload map[string]any
	if err := server.DecodeJSON(r, &payload); err != nil {
		server.RenderError(r, w, err, http.StatusBadRequest)
		return
	}
	msg := a2a.NewRequest(legacySender, payment.IntentProcess, payload, "")
	server.WriteJSON(w, http.StatusOK, s.negotiator.Negotiate(r.Context(), msg))
}
