package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// StatusError reports an unexpected HTTP status returned by the gateway.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("payment gateway %s: unexpected status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("payment gateway %s: unexpected status %d: %s", e.Op, e.StatusCode, e.Body)
}

// Gateway implements Provider against a JSON payment gateway.
type Gateway struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewGateway returns a gateway client with an instrumented transport.
func NewGateway(baseURL, apiKey string, timeout time.Duration) *Gateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Gateway{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		APIKey:  strings.TrimSpace(apiKey),
		Client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type authorizeRequest struct {
	CustomerID string `json:"customer_id"`
	Amount     string `json:"amount"`
}

type authorizeResponse struct {
	Authorized    bool   `json:"authorized"`
	TransactionID string `json:"transaction_id"`
}

type cancelRequest struct {
	CustomerID string `json:"customer_id"`
}

// Authorize requests an authorization hold for amount. A 402 response is a
// decline, not an error.
func (g *Gateway) Authorize(ctx context.Context, customerID string, amount decimal.Decimal) (Authorization, error) {
	if strings.TrimSpace(customerID) == "" {
		return Authorization{}, errors.New("payment: customer id is required")
	}
	body := authorizeRequest{CustomerID: customerID, Amount: amount.StringFixed(2)}
	resp, err := g.post(ctx, "/v1/authorizations", body)
	if err != nil {
		return Authorization{}, fmt.Errorf("payment: authorize: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusPaymentRequired:
		return Authorization{Authorized: false}, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Authorization{}, statusError("authorize", resp)
	}

	var out authorizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Authorization{}, fmt.Errorf("payment: decode authorization: %w", err)
	}
	if out.Authorized && strings.TrimSpace(out.TransactionID) == "" {
		return Authorization{}, errors.New("payment: authorized response without transaction id")
	}
	return Authorization{Authorized: out.Authorized, TransactionID: out.TransactionID}, nil
}

// Cancel voids a previous authorization.
func (g *Gateway) Cancel(ctx context.Context, customerID, transactionID string) error {
	if strings.TrimSpace(transactionID) == "" {
		return errors.New("payment: transaction id is required")
	}
	path := "/v1/authorizations/" + url.PathEscape(transactionID) + "/cancel"
	resp, err := g.post(ctx, path, cancelRequest{CustomerID: customerID})
	if err != nil {
		return fmt.Errorf("payment: cancel: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError("cancel", resp)
	}
	return nil
}

func (g *Gateway) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	if g == nil || g.BaseURL == "" {
		return nil, errors.New("gateway base url not configured")
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if g.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.APIKey)
	}
	client := g.Client
	if client == nil {
		client = http.DefaultClient
	}
	return client.Do(req)
}

func statusError(op string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return &StatusError{Op: op, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
}
