package paymentagent

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Protocol-Lattice/boutique-agents/src/a2a"
	"github.com/Protocol-Lattice/boutique-agents/src/payment"
	"github.com/Protocol-Lattice/boutique-agents/src/paymentbackend"
	"github.com/Protocol-Lattice/boutique-agents/src/registry"
)

func newAgent(t *testing.T) *httptest.Server {
	t.Helper()
	logger, _ := test.NewNullLogger()
	ledger := paymentbackend.NewLedger(logger)
	ledger.NewID = func() string { return "txn_1" }
	n := payment.NewNegotiator(payment.DeterministicDeriver{}, ledger, logger)
	srv := httptest.NewServer(NewServer(n, "http://payments.test", logger).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func orderRequest(total float64) a2a.Message {
	c := payment.Context{OrderID: "o-1", Product: "Candle", Quantity: 2, TotalAmount: total}
	return a2a.NewRequest("orchestrator_agent", payment.IntentProcess, c.Payload("Process payment of $19.98 for order o-1"), a2a.ConversationID("o-1"))
}

func TestCapabilityDiscovery(t *testing.T) {
	srv := newAgent(t)
	logger, _ := test.NewNullLogger()

	reg, err := registry.NewDiscoverer(nil, logger).Agent(context.Background(), srv.URL)
	require.NoError(t, err)
	spec, ok := reg.Find(registry.Payment)
	require.True(t, ok)
	assert.Equal(t, payment.Capability, spec.Name)

	resp, err := http.Get(srv.URL + registry.CapabilitiesPath)
	require.NoError(t, err)
	defer resp.Body.Close()
	var caps a2a.Capabilities
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&caps))
	assert.Equal(t, payment.AgentID, caps.AgentID)
	require.Len(t, caps.Capabilities, 1)
}

func TestProcessPayment(t *testing.T) {
	srv := newAgent(t)

	reply, err := a2a.NewClient(0).Send(context.Background(), srv.URL, payment.Capability, orderRequest(19.98))
	require.NoError(t, err)
	assert.Equal(t, a2a.Response, reply.MessageType)
	assert.Equal(t, payment.IntentProcessed, reply.Intent)
	assert.Equal(t, "order_o-1", reply.ConversationID)
	assert.Equal(t, "txn_1", reply.Payload["transaction_id"])
	assert.Equal(t, payment.Processed, payment.Outcome(reply))
}

func TestProcessPaymentFailureIsEnvelope(t *testing.T) {
	srv := newAgent(t)
	msg := orderRequest(19.98)
	msg.Payload = map[string]any{"message": "pay"}

	reply, err := a2a.NewClient(0).Send(context.Background(), srv.URL, payment.Capability, msg)
	require.NoError(t, err)
	assert.Equal(t, a2a.Error, reply.MessageType)
	assert.Equal(t, payment.IntentFailed, reply.Intent)
	assert.Contains(t, reply.ErrorText(), "Payment processing error")
}

func TestLegacyHandlePayment(t *testing.T) {
	srv := newAgent(t)
	body, err := json.Marshal(orderRequest(5).Payload)
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/handlePayment", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reply a2a.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	assert.Equal(t, payment.IntentProcessed, reply.Intent)
}

func TestUnknownCapabilityAndBadBody(t *testing.T) {
	srv := newAgent(t)

	resp, err := http.Post(srv.URL+"/a2a/refund", "application/json", bytes.NewReader([]byte(`{}`)))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/a2a/processPayment", "application/json", bytes.NewReader([]byte(`{"message_type":`)))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
