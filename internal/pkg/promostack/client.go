package promostack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/fxpiphub/signalhub/internal/pkg/env"
)

const defaultAPIBaseURL = "https://api.promostack.io/v1"

// Client talks to the PromoStack access-control API, which manages membership
// of the private Telegram signals channel. Both operations absorb their own
// failures: access provisioning is recoverable out-of-band and must never
// block recording billing state, so callers get a zero value instead of an
// error.
type Client struct {
	APIBaseURL string
	APIToken   string

	HTTPClient *http.Client
}

type grantRequest struct {
	Email      string            `json:"email"`
	PlanType   string            `json:"plan_type"`
	AmountPaid float64           `json:"amount_paid"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type revokeRequest struct {
	Email  string `json:"email"`
	Reason string `json:"reason"`
}

type apiResponse struct {
	Success    bool   `json:"success"`
	InviteLink string `json:"invite_link"`
	Message    string `json:"message"`
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		APIBaseURL: strings.TrimRight(baseURL, "/"),
		APIToken:   strings.TrimSpace(token),
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func NewClientFromEnv() *Client {
	return NewClient(
		env.GetEnv("PROMOSTACK_API_URL", defaultAPIBaseURL),
		env.GetEnv("PROMOSTACK_API_TOKEN", ""),
	)
}

// GrantAccess asks PromoStack to invite the subscriber into the Telegram
// channel. Metadata is passed through untouched for attribution on the
// PromoStack side. Returns the invite link, or "" on any failure.
func (c *Client) GrantAccess(ctx context.Context, email, planType string, amountPaid float64, metadata map[string]string) string {
	resp, err := c.post(ctx, "/grant-access", grantRequest{
		Email:      email,
		PlanType:   planType,
		AmountPaid: amountPaid,
		Metadata:   metadata,
	})
	if err != nil {
		log.Printf("[promostack] grant-access for %s failed: %v", email, err)
		return ""
	}
	if !resp.Success {
		log.Printf("[promostack] grant-access for %s rejected: %s", email, resp.Message)
		return ""
	}
	return strings.TrimSpace(resp.InviteLink)
}

// RevokeAccess removes the subscriber from the Telegram channel. Returns
// false on any failure.
func (c *Client) RevokeAccess(ctx context.Context, email, reason string) bool {
	resp, err := c.post(ctx, "/revoke-access", revokeRequest{
		Email:  email,
		Reason: reason,
	})
	if err != nil {
		log.Printf("[promostack] revoke-access for %s failed: %v", email, err)
		return false
	}
	if !resp.Success {
		log.Printf("[promostack] revoke-access for %s rejected: %s", email, resp.Message)
	}
	return resp.Success
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) (*apiResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIToken)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("promostack %s failed: status=%d body=%s", path, resp.StatusCode, string(raw))
	}

	var out apiResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("promostack %s returned invalid JSON: %w", path, err)
	}
	return &out, nil
}
