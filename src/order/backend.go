package order

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

const maxReply = 4 << 20

// ReplyKind tags how a backend encoded its answer.
type ReplyKind int

const (
	ReplyJSON ReplyKind = iota
	ReplyText
)

// Reply is a successful backend answer. JSON replies carry a structured
// document; Text replies carry free text or HTML from a storefront page.
type Reply struct {
	Kind ReplyKind
	Body []byte
}

// NewReply tags body by its content type, sniffing when the header is absent.
func NewReply(contentType string, body []byte) Reply {
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		if mt == "application/json" || strings.HasSuffix(mt, "+json") {
			return Reply{Kind: ReplyJSON, Body: body}
		}
		if mt != "text/plain" && mt != "application/octet-stream" {
			return Reply{Kind: ReplyText, Body: body}
		}
	}
	if gjson.ValidBytes(body) && len(bytes.TrimSpace(body)) > 0 {
		return Reply{Kind: ReplyJSON, Body: body}
	}
	return Reply{Kind: ReplyText, Body: body}
}

// Backend invokes a named tool on the remote catalog/ordering service.
type Backend interface {
	Invoke(ctx context.Context, tool string, args map[string]any) (Reply, error)
}

func defaultClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// AgentBackend calls a tool agent over POST /invoke/{tool}.
type AgentBackend struct {
	BaseURL string
	Client  *http.Client
}

func (b AgentBackend) Invoke(ctx context.Context, tool string, args map[string]any) (Reply, error) {
	if args == nil {
		args = map[string]any{}
	}
	body, err := json.Marshal(args)
	if err != nil {
		return Reply{}, &ValidationError{Field: "args", Value: tool, Reason: err.Error()}
	}
	endpoint := strings.TrimRight(b.BaseURL, "/") + "/invoke/" + url.PathEscape(tool)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Reply{}, &BackendError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := defaultClient(b.Client).Do(req)
	if err != nil {
		return Reply{}, &BackendError{Detail: "invoke " + tool, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReply))
	if err != nil {
		return Reply{}, &BackendError{Status: resp.StatusCode, Detail: "read reply", Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return Reply{}, &BackendError{Status: resp.StatusCode, Detail: errorDetail(data, resp.Status)}
	}
	return NewReply(resp.Header.Get("Content-Type"), data), nil
}

// errorDetail extracts {detail} (or {error}) from an error body.
func errorDetail(body []byte, fallback string) string {
	if gjson.ValidBytes(body) {
		for _, key := range []string{"detail", "error", "message"} {
			if v := gjson.GetBytes(body, key); v.Exists() && v.String() != "" {
				return v.String()
			}
		}
	}
	if s := strings.TrimSpace(string(body)); s != "" && len(s) < 512 {
		return s
	}
	return fallback
}

// SessionCookie is the storefront's cart session cookie.
const SessionCookie = "shop_session-id"

// CheckoutProfile is the shipping and card data submitted at checkout.
type CheckoutProfile struct {
	Email           string
	StreetAddress   string
	ZipCode         string
	City            string
	State           string
	Country         string
	CardNumber      string
	ExpirationMonth string
	ExpirationYear  string
	CVV             string
}

// DefaultCheckoutProfile is the demo storefront's test shopper.
func DefaultCheckoutProfile() CheckoutProfile {
	return CheckoutProfile{
		Email:           "test@example.com",
		StreetAddress:   "1600 Amphitheatre Parkway",
		ZipCode:         "94043",
		City:            "Mountain View",
		State:           "CA",
		Country:         "United States",
		CardNumber:      "4432801561520454",
		ExpirationMonth: "01",
		ExpirationYear:  "2026",
		CVV:             "123",
	}
}

func (p CheckoutProfile) form() url.Values {
	return url.Values{
		"email":                        {p.Email},
		"street_address":               {p.StreetAddress},
		"zip_code":                     {p.ZipCode},
		"city":                         {p.City},
		"state":                        {p.State},
		"country":                      {p.Country},
		"credit_card_number":           {p.CardNumber},
		"credit_card_expiration_month": {p.ExpirationMonth},
		"credit_card_expiration_year":  {p.ExpirationYear},
		"credit_card_cvv":              {p.CVV},
	}
}

// StorefrontBackend places orders through a web storefront's cart and
// checkout forms. It serves only its ordering tool.
type StorefrontBackend struct {
	BaseURL string
	// Tool is the ordering tool name this backend answers to.
	Tool    string
	Profile CheckoutProfile
	Client  *http.Client
}

func (b StorefrontBackend) Invoke(ctx context.Context, tool string, args map[string]any) (Reply, error) {
	if !strings.EqualFold(tool, b.Tool) {
		return Reply{}, &BackendError{Status: http.StatusNotFound, Detail: "unsupported tool " + tool}
	}
	productID, _ := args["product_id"].(string)
	qty := fmt.Sprint(args["quantity"])

	client := b.noRedirect()
	session, err := b.addToCart(ctx, client, productID, qty)
	if err != nil {
		return Reply{}, err
	}
	return b.checkout(ctx, client, session)
}

// noRedirect keeps Set-Cookie headers on the storefront's 302 answers visible.
func (b StorefrontBackend) noRedirect() *http.Client {
	c := *defaultClient(b.Client)
	c.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }
	return &c
}

func (b StorefrontBackend) addToCart(ctx context.Context, client *http.Client, productID, qty string) (*http.Cookie, error) {
	form := url.Values{"product_id": {productID}, "quantity": {qty}}
	resp, _, err := b.postForm(ctx, client, "/cart", form, nil)
	if err != nil {
		return nil, &BackendError{Detail: "add to cart", Err: err}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, &BackendError{Status: resp.StatusCode, Detail: "failed to add to cart"}
	}
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie {
			return c, nil
		}
	}
	return nil, &BackendError{Status: resp.StatusCode, Detail: "storefront did not return a session cookie"}
}

func (b StorefrontBackend) checkout(ctx context.Context, client *http.Client, session *http.Cookie) (Reply, error) {
	resp, body, err := b.postForm(ctx, client, "/cart/checkout", b.Profile.form(), session)
	if err != nil {
		return Reply{}, &BackendError{Detail: "checkout", Err: err}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return Reply{}, &BackendError{Status: resp.StatusCode, Detail: errorDetail(body, "checkout failed")}
	}
	return NewReply(resp.Header.Get("Content-Type"), body), nil
}

func (b StorefrontBackend) postForm(ctx context.Context, client *http.Client, path string, form url.Values, cookie *http.Cookie) (*http.Response, []byte, error) {
	endpoint := strings.TrimRight(b.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(&http.Cookie{Name: cookie.Name, Value: cookie.Value})
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxReply))
	if err != nil {
		return nil, nil, err
	}
	return resp, body, nil
}
