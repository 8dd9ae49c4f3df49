// Package momo implements the HTTP client for the mobile-money payment gateway.
package momo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cinewave/momoflow/internal/models"
)

const (
	initiatePath   = "/api/v1/payments/momo"
	statusPath     = "/api/v1/payments/momo/status/"
	deviceIDHeader = "X-Device-Id"
)

// InitiateInput carries everything needed to start one purchase attempt
type InitiateInput struct {
	ItemRef    string
	Kind       models.PurchaseKind
	Currency   string
	PayerPhone string
	PayerID    string
	Amount     int64
}

// InitiateOutcome is the gateway's answer to an initiation call. Status is
// either PENDING (payer must approve on their handset) or SUCCESSFUL
// (confirmed synchronously).
type InitiateOutcome struct {
	ID      string
	Status  models.Status
	Message string
}

// StatusOutcome is the gateway's answer to a single status query
type StatusOutcome struct {
	Status models.Status
	Reason string
}

type initiateRequest struct {
	ItemRef  string              `json:"itemRef"`
	Kind     models.PurchaseKind `json:"kind"`
	Amount   int64               `json:"amount"`
	Currency string              `json:"currency"`
	Phone    string              `json:"phone"`
	PayerID  string              `json:"payerId"`
}

type initiateResponse struct {
	Success bool          `json:"success"`
	ID      string        `json:"id"`
	Status  models.Status `json:"status"`
	Message string        `json:"message,omitempty"`
}

type statusResponse struct {
	Status models.Status `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Client talks to the mobile-money gateway. It keeps no state between calls
// beyond connection reuse, so a retry is simply another Initiate.
type Client struct {
	httpClient *http.Client
	baseURL    string
	deviceID   string
	token      string
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sets the bearer token attached to every request
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// NewClient creates a gateway client. The device identifier is opaque and
// case-sensitive; it is sent on both initiation and status calls so the
// backend can correlate device-linked limits.
func NewClient(baseURL, deviceID string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		deviceID:   deviceID,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Initiate validates the purchase input and submits it to the gateway.
// Validation failures return *models.ValidationError without any network
// call; transport or backend failures return *models.InitiationError.
func (c *Client) Initiate(ctx context.Context, in InitiateInput) (*InitiateOutcome, error) {
	if err := ValidatePhone(in.PayerPhone); err != nil {
		return nil, err
	}
	if err := ValidateAmount(in.Amount); err != nil {
		return nil, err
	}
	if err := ValidateKind(in.Kind); err != nil {
		return nil, err
	}

	body, err := json.Marshal(initiateRequest{
		ItemRef:  in.ItemRef,
		Kind:     in.Kind,
		Amount:   in.Amount,
		Currency: in.Currency,
		Phone:    NormalizePhone(in.PayerPhone),
		PayerID:  in.PayerID,
	})
	if err != nil {
		return nil, &models.InitiationError{Message: "failed to encode payment request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+initiatePath, bytes.NewReader(body))
	if err != nil {
		return nil, &models.InitiationError{Message: "failed to build payment request", Err: err}
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &models.InitiationError{Message: "payment request could not reach the gateway", Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck // response body close error is not actionable

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &models.InitiationError{Message: readErrorMessage(resp, "payment was rejected")}
	}

	var out initiateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &models.InitiationError{Message: "unexpected response from the gateway", Err: err}
	}

	if !out.Success || out.ID == "" {
		msg := out.Message
		if msg == "" {
			msg = "payment could not be initiated"
		}
		return nil, &models.InitiationError{Message: msg}
	}

	return &InitiateOutcome{ID: out.ID, Status: out.Status, Message: out.Message}, nil
}

// Status performs a single status query for a transaction. Errors here are
// transient from the caller's point of view; the poller decides when they
// become fatal.
func (c *Client) Status(ctx context.Context, id string) (*StatusOutcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+statusPath+id, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build status request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("status query failed: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // response body close error is not actionable

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("status query returned %d: %s", resp.StatusCode, readErrorMessage(resp, "unexpected status"))
	}

	var out statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}
	if out.Status == "" {
		return nil, fmt.Errorf("status response missing status field")
	}

	return &StatusOutcome{Status: out.Status, Reason: out.Reason}, nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.deviceID != "" {
		req.Header.Set(deviceIDHeader, c.deviceID)
	}
}

func readErrorMessage(resp *http.Response, fallback string) string {
	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Message != "" {
		return body.Message
	}
	return fallback
}
