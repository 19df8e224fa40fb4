/*
Package ledger is the client for the remote credit ledger.

PURPOSE:
  A stateless HTTP wrapper over the ledger service's three RPCs:

    RedeemSignedTransactions  POST /v1/redeem/signed
    RedeemReceipt             POST /v1/redeem/receipt
    FetchServerBalance        GET  /v1/balance

  The ledger is the source of truth for balances. Nothing here is
  cached or persisted locally; every call hits the server.

IDEMPOTENCY CONTRACT:
  Redemption is idempotent per transaction identifier on the server
  side. Resubmitting an already-processed transaction returns a
  success-shaped response with granted=0 and the current balance.
  The client therefore always resubmits the full transaction on retry
  instead of second-guessing server state.

ERRORS:
  Transport failures are wrapped with %w so callers can reach the
  net errors underneath. Server rejections surface as *ledger.Error
  carrying the HTTP status and the server's message.

SEE ALSO:
  - redeem/coordinator.go: the only caller of the redemption RPCs
  - api/: the reference server implementation of these routes
*/
package ledger

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

// =============================================================================
// TYPES
// =============================================================================

// Outcome is the ledger's answer to a successful redemption.
type Outcome struct {
	// Granted is the number of credits added by this call. Zero when the
	// transaction had already been processed.
	Granted int64 `json:"granted"`

	// Balance is the device's balance after the call.
	Balance int64 `json:"balance"`
}

// Error is a ledger rejection: the server answered, and said no.
type Error struct {
	Op      string // "redeem_signed", "redeem_receipt", "balance"
	Status  int    // HTTP status code
	Message string // server-provided message, if any
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("ledger %s: status %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("ledger %s: status %d", e.Op, e.Status)
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to one ledger service. Safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client (custom transport,
// timeouts, test doubles).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a client for the ledger at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// =============================================================================
// RPCS
// =============================================================================

type redeemSignedRequest struct {
	DeviceID           string   `json:"device_id"`
	SignedTransactions []string `json:"signed_transactions"`
}

type redeemReceiptRequest struct {
	DeviceID      string `json:"device_id"`
	ReceiptBase64 string `json:"receipt"`
}

type balanceResponse struct {
	Balance int64 `json:"balance"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// RedeemSignedTransactions submits signed transaction tokens for redemption.
func (c *Client) RedeemSignedTransactions(ctx context.Context, deviceID string, signed []string) (Outcome, error) {
	var out Outcome
	err := c.post(ctx, "redeem_signed", "/v1/redeem/signed", redeemSignedRequest{
		DeviceID:           deviceID,
		SignedTransactions: signed,
	}, &out)
	return out, err
}

// RedeemReceipt submits a base64 receipt blob for legacy redemption.
func (c *Client) RedeemReceipt(ctx context.Context, deviceID, receiptBase64 string) (Outcome, error) {
	var out Outcome
	err := c.post(ctx, "redeem_receipt", "/v1/redeem/receipt", redeemReceiptRequest{
		DeviceID:      deviceID,
		ReceiptBase64: receiptBase64,
	}, &out)
	return out, err
}

// FetchServerBalance returns the device's current balance. Read-only.
func (c *Client) FetchServerBalance(ctx context.Context, deviceID string) (int64, error) {
	u := fmt.Sprintf("%s/v1/balance?device_id=%s", c.baseURL, url.QueryEscape(deviceID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("build balance request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetch balance: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, newStatusError("balance", resp)
	}

	var body balanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode balance response: %w", err)
	}
	return body.Balance, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (c *Client) post(ctx context.Context, op, path string, payload any, out *Outcome) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return newStatusError(op, resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

// newStatusError drains the error body (bounded) into a *Error.
func newStatusError(op string, resp *http.Response) *Error {
	e := &Error{Op: op, Status: resp.StatusCode}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err == nil && len(raw) > 0 {
		var body errorResponse
		if json.Unmarshal(raw, &body) == nil && body.Error != "" {
			e.Message = body.Error
		} else {
			e.Message = strings.TrimSpace(string(raw))
		}
	}
	return e
}
