package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"stayhub/internal/domain"
	"stayhub/internal/utils"
)

// Adapter is the outbound surface of the payment provider: initiate a
// collection (deposit), create a payout (withdrawal), poll status.
type Adapter interface {
	Collect(ctx context.Context, req CollectionRequest) (CollectionResponse, error)
	Payout(ctx context.Context, req PayoutRequest) (PayoutResponse, error)
	Status(ctx context.Context, refID string) (StatusResponse, error)
}

// CollectionRequest initiates a deposit. Amount is minor units; the wire
// carries whole units (the provider rejects fractional subunits).
type CollectionRequest struct {
	Reference string
	Amount    int64
	Payer     string
	Narration string
}

type CollectionResponse struct {
	RefID  string
	Status Status
}

type PayoutRequest struct {
	Reference   string
	Amount      int64
	Destination string
	Narration   string
}

type PayoutResponse struct {
	RefID  string
	Status Status
}

type StatusResponse struct {
	RefID     string
	Status    Status
	RawStatus string
	Amount    int64
}

// WholeUnits converts a minor-unit amount to the provider's whole-unit
// transmission format, rejecting amounts that cannot be represented.
func WholeUnits(minor int64) (int64, error) {
	if minor <= 0 {
		return 0, domain.ValidationError{Field: "amount", Msg: "amount must be positive"}
	}
	if minor%100 != 0 {
		return 0, domain.ValidationError{
			Field: "amount",
			Msg:   fmt.Sprintf("amount %s has fractional subunits, provider requires whole units", utils.FormatMinor(minor)),
		}
	}
	return minor / 100, nil
}

// Client talks HTTP to the payment provider. Calls are retried with
// doubling backoff before surfacing a ProviderError.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTP       *http.Client
	MaxRetries int
	RequestID  string
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTP:       &http.Client{Timeout: 15 * time.Second},
		MaxRetries: 3,
	}
}

func (c *Client) Collect(ctx context.Context, req CollectionRequest) (CollectionResponse, error) {
	whole, err := WholeUnits(req.Amount)
	if err != nil {
		return CollectionResponse{}, err
	}
	payload := map[string]any{
		"reference": req.Reference,
		"amount":    whole,
		"payer":     req.Payer,
		"narration": req.Narration,
	}
	var out struct {
		RefID  string `json:"refid"`
		Status string `json:"status"`
	}
	if err := c.call(ctx, http.MethodPost, "/collections", payload, &out); err != nil {
		return CollectionResponse{}, err
	}
	refID := out.RefID
	if refID == "" {
		refID = req.Reference
	}
	return CollectionResponse{RefID: refID, Status: MapStatus(out.Status)}, nil
}

func (c *Client) Payout(ctx context.Context, req PayoutRequest) (PayoutResponse, error) {
	whole, err := WholeUnits(req.Amount)
	if err != nil {
		return PayoutResponse{}, err
	}
	payload := map[string]any{
		"reference":   req.Reference,
		"amount":      whole,
		"destination": req.Destination,
		"narration":   req.Narration,
	}
	var out struct {
		RefID  string `json:"refid"`
		Status string `json:"status"`
	}
	if err := c.call(ctx, http.MethodPost, "/payouts", payload, &out); err != nil {
		return PayoutResponse{}, err
	}
	refID := out.RefID
	if refID == "" {
		refID = req.Reference
	}
	return PayoutResponse{RefID: refID, Status: MapStatus(out.Status)}, nil
}

func (c *Client) Status(ctx context.Context, refID string) (StatusResponse, error) {
	var out struct {
		RefID  string      `json:"refid"`
		Status string      `json:"status"`
		Amount json.Number `json:"amount"`
	}
	if err := c.call(ctx, http.MethodGet, "/transactions/"+refID, nil, &out); err != nil {
		return StatusResponse{}, err
	}
	resp := StatusResponse{
		RefID:     refID,
		Status:    MapStatus(out.Status),
		RawStatus: out.Status,
	}
	if out.Amount != "" {
		if whole, err := out.Amount.Int64(); err == nil {
			resp.Amount = whole * 100
		}
	}
	return resp, nil
}

func (c *Client) call(ctx context.Context, method, path string, payload any, out any) error {
	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return domain.ProviderError{Op: method + " " + path, Err: err}
		}
		body = b
	}

	retries := c.MaxRetries
	if retries <= 0 {
		retries = 1
	}

	backoff := 500 * time.Millisecond
	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return domain.ProviderError{Op: method + " " + path, Err: ctx.Err()}
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		lastErr = c.doOnce(ctx, method, path, body, out)
		if lastErr == nil {
			return nil
		}
		if domain.IsProvider(lastErr) {
			// 4xx rejection, retrying will not change the answer
			return lastErr
		}
		utils.LogEvent(c.RequestID, "provider", "retry",
			fmt.Sprintf("attempt=%d path=%s err=%v", attempt, path, lastErr))
	}
	return domain.ProviderError{Op: method + " " + path, Err: lastErr}
}

func (c *Client) doOnce(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("provider returned %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		// 4xx is not retryable; surface it directly
		return domain.ProviderError{Op: method + " " + path, Err: fmt.Errorf("provider rejected request: %d %s", resp.StatusCode, string(raw))}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode provider response: %w", err)
		}
	}
	return nil
}
