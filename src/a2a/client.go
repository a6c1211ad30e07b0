package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxMessage = 1 << 20

// Client posts envelopes to message-passing agents.
type Client struct {
	HTTP *http.Client
}

// NewClient returns a client with a request timeout.
func NewClient(timeout time.Duration) *Client {
	return &Client{HTTP: &http.Client{Timeout: timeout}}
}

// Send posts msg to {baseURL}/a2a/{intent}. Transport failures, non-200
// statuses and malformed envelopes are errors; a well-formed error envelope
// is returned as a Message.
func (c *Client) Send(ctx context.Context, baseURL, intent string, msg Message) (Message, error) {
	body, err := json.Marshal(msg)
	if err != nil {
		return Message{}, err
	}
	endpoint := strings.TrimRight(baseURL, "/") + "/a2a/" + url.PathEscape(intent)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Message{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Message{}, fmt.Errorf("a2a %s: %w", intent, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxMessage))
	if err != nil {
		return Message{}, fmt.Errorf("a2a %s: read: %w", intent, err)
	}
	if resp.StatusCode != http.StatusOK {
		return Message{}, fmt.Errorf("a2a %s: %s: %s", intent, resp.Status, strings.TrimSpace(string(data)))
	}
	var out Message
	if err := json.Unmarshal(data, &out); err != nil {
		return Message{}, fmt.Errorf("a2a %s: decode envelope: %w", intent, err)
	}
	switch out.MessageType {
	case Response, Error:
		return out, nil
	default:
		return Message{}, fmt.Errorf("a2a %s: unexpected message_type %q", intent, out.MessageType)
	}
}
