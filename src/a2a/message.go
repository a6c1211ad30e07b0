// Package a2a implements the agent-to-agent message envelope, the agent
// card, and a client for POST /a2a/{intent}.
package a2a

import (
	"github.com/Protocol-Lattice/boutique-agents/src/registry"
)

// MessageType is the envelope kind.
type MessageType string

const (
	Request  MessageType = "request"
	Response MessageType = "response"
	Error    MessageType = "error"
)

// Message is the envelope for all agent-to-agent traffic.
type Message struct {
	MessageType    MessageType    `json:"message_type"`
	Sender         string         `json:"sender"`
	Intent         string         `json:"intent"`
	Payload        map[string]any `json:"payload"`
	ConversationID string         `json:"conversation_id,omitempty"`
}

// NewRequest builds a request envelope.
func NewRequest(sender, intent string, payload map[string]any, conversationID string) Message {
	if payload == nil {
		payload = map[string]any{}
	}
	return Message{MessageType: Request, Sender: sender, Intent: intent, Payload: payload, ConversationID: conversationID}
}

// Respond answers m, keeping its conversation id.
func (m Message) Respond(sender, intent string, payload map[string]any) Message {
	if payload == nil {
		payload = map[string]any{}
	}
	return Message{MessageType: Response, Sender: sender, Intent: intent, Payload: payload, ConversationID: m.ConversationID}
}

// Fail answers m with an error envelope carrying {error: reason}.
func (m Message) Fail(sender, intent, reason string) Message {
	return Message{
		MessageType:    Error,
		Sender:         sender,
		Intent:         intent,
		Payload:        map[string]any{"error": reason},
		ConversationID: m.ConversationID,
	}
}

// ErrorText returns the error reason of an error envelope.
func (m Message) ErrorText() string {
	if s, ok := m.Payload["error"].(string); ok {
		return s
	}
	return ""
}

// ConversationID correlates a payment with the order that triggered it.
func ConversationID(orderID string) string { return "order_" + orderID }

// AgentCard is published at /.well-known/agent-card.
type AgentCard struct {
	AgentID         string              `json:"agent_id"`
	Name            string              `json:"name"`
	Description     string              `json:"description"`
	URL             string              `json:"url"`
	Version         string              `json:"version"`
	Capabilities    []registry.ToolSpec `json:"capabilities"`
	RequestSchema   map[string]any      `json:"requestSchema"`
	ResponseSchema  map[string]any      `json:"responseSchema"`
	SecuritySchemes map[string]any      `json:"securitySchemes"`
}

// Capabilities is the /.well-known/agent-capabilities document.
type Capabilities struct {
	AgentID      string              `json:"agent_id"`
	Capabilities []registry.ToolSpec `json:"capabilities"`
}

// NewAgentCard describes an agent whose traffic uses Message envelopes.
// SecuritySchemes is empty: the agent does not authenticate callers.
func NewAgentCard(id, name, description, url, version string, caps []registry.ToolSpec) AgentCard {
	return AgentCard{
		AgentID:         id,
		Name:            name,
		Description:     description,
		URL:             url,
		Version:         version,
		Capabilities:    caps,
		RequestSchema:   MessageSchema(Request),
		ResponseSchema:  MessageSchema(Response, Error),
		SecuritySchemes: map[string]any{},
	}
}

// MessageSchema is the JSON schema of a Message restricted to types.
func MessageSchema(types ...MessageType) map[string]any {
	enum := make([]string, len(types))
	for i, t := range types {
		enum[i] = string(t)
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message_type":    map[string]any{"type": "string", "enum": enum},
			"sender":          map[string]any{"type": "string"},
			"intent":          map[string]any{"type": "string"},
			"payload":         map[string]any{"type": "object"},
			"conversation_id": map[string]any{"type": "string"},
		},
		"required": []string{"message_type", "sender", "intent", "payload"},
	}
}
