package order

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAgentBackendInvoke(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/invoke/placeOrder" {
			http.NotFound(w, r)
			return
		}
		var args map[string]any
		if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
			t.Errorf("decode: %v", err)
		}
		if args["product_id"] != "A1" || args["quantity"] != float64(2) {
			t.Errorf("unexpected args: %v", args)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"order":{"order_id":"o-1"}}`))
	}))
	defer srv.Close()

	reply, err := AgentBackend{BaseURL: srv.URL}.Invoke(context.Background(), "placeOrder", map[string]any{"product_id": "A1", "quantity": 2})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if reply.Kind != ReplyJSON {
		t.Fatalf("expected JSON reply")
	}
}

func TestAgentBackendErrorDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Product not found"}`))
	}))
	defer srv.Close()

	_, err := AgentBackend{BaseURL: srv.URL}.Invoke(context.Background(), "placeOrder", nil)
	if !errors.Is(err, ErrBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
	var be *BackendError
	if !errors.As(err, &be) || be.Status != http.StatusNotFound || be.Detail != "Product not found" {
		t.Fatalf("unexpected error: %#v", err)
	}
}

func TestAgentBackendUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := AgentBackend{BaseURL: url}.Invoke(context.Background(), "listProducts", nil)
	if !errors.Is(err, ErrBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestStorefrontBackendCheckout(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/cart", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("product_id") != "A1" || r.PostForm.Get("quantity") != "2" {
			http.Error(w, "bad cart form", http.StatusBadRequest)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "sess-42"})
		http.Redirect(w, r, "/cart", http.StatusFound)
	})
	mux.HandleFunc("/cart/checkout", func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(SessionCookie)
		if err != nil || c.Value != "sess-42" {
			http.Error(w, "no session", http.StatusUnauthorized)
			return
		}
		if err := r.ParseForm(); err != nil || r.PostForm.Get("email") != "test@example.com" || r.PostForm.Get("zip_code") != "94043" {
			http.Error(w, "bad checkout form", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(confirmationPage))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	b := StorefrontBackend{BaseURL: srv.URL, Tool: "placeOrder", Profile: DefaultCheckoutProfile()}
	reply, err := b.Invoke(context.Background(), "placeOrder", map[string]any{"product_id": "A1", "quantity": 2})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	o := Normalize(reply, "A1", 2)
	if o.TrackingID != "KQ-78123-AZ" || o.TotalPaid != 19.98 {
		t.Fatalf("unexpected order: %+v", o)
	}
}

func TestStorefrontBackendMissingCookie(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b := StorefrontBackend{BaseURL: srv.URL, Tool: "placeOrder", Profile: DefaultCheckoutProfile()}
	_, err := b.Invoke(context.Background(), "placeOrder", map[string]any{"product_id": "A1", "quantity": 1})
	if !errors.Is(err, ErrBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
}

func TestStorefrontBackendRejectsOtherTools(t *testing.T) {
	b := StorefrontBackend{BaseURL: "http://127.0.0.1:0", Tool: "placeOrder"}
	if _, err := b.Invoke(context.Background(), "listProducts", nil); !errors.Is(err, ErrBackend) {
		t.Fatalf("expected backend error, got %v", err)
	}
}
