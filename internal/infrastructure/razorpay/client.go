package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the production API host
const DefaultBaseURL = "https://api.razorpay.com"

// Config holds Razorpay API configuration
type Config struct {
	KeyID     string // Public key id, also handed to the checkout widget
	KeySecret string // Secret used for Basic auth and payment signatures
	BaseURL   string
}

// Client is the Razorpay API client
type Client struct {
	config     Config
	httpClient *http.Client
}

// Subscription is the subset of the subscription entity the service uses
type Subscription struct {
	ID     string `json:"id"`
	PlanID string `json:"plan_id"`
	Status string `json:"status"`
}

// Refund is the subset of the refund entity the service uses
type Refund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}

// APIError is returned for any non-2xx response
type APIError struct {
	StatusCode  int
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("razorpay API error: status %d, %s: %s", e.StatusCode, e.Code, e.Description)
}

// IsAlreadyCancelled reports whether err is the gateway refusing to cancel a
// subscription that is already in cancelled status
func IsAlreadyCancelled(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadRequest {
		return false
	}
	return strings.Contains(strings.ToLower(apiErr.Description), "cancelled status")
}

type createSubscriptionRequest struct {
	PlanID         string `json:"plan_id"`
	CustomerNotify int    `json:"customer_notify"`
	TotalCount     int    `json:"total_count"`
}

// NewClient creates a new Razorpay client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CreateSubscription starts a subscription on a plan
func (c *Client) CreateSubscription(ctx context.Context, planID string, customerNotify, totalCount int) (*Subscription, error) {
	body := createSubscriptionRequest{
		PlanID:         planID,
		CustomerNotify: customerNotify,
		TotalCount:     totalCount,
	}

	var sub Subscription
	if err := c.post(ctx, "/v1/subscriptions", body, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// CancelSubscription cancels a subscription immediately
func (c *Client) CancelSubscription(ctx context.Context, subscriptionID string) (*Subscription, error) {
	var sub Subscription
	if err := c.post(ctx, "/v1/subscriptions/"+subscriptionID+"/cancel", struct{}{}, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// RefundPayment refunds the full captured amount of a payment
func (c *Client) RefundPayment(ctx context.Context, paymentID string) (*Refund, error) {
	var refund Refund
	if err := c.post(ctx, "/v1/payments/"+paymentID+"/refund", struct{}{}, &refund); err != nil {
		return nil, err
	}
	return &refund, nil
}

func (c *Client) post(ctx context.Context, endpoint string, reqBody interface{}, out interface{}) error {
	url := c.config.BaseURL + endpoint

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.config.KeyID, c.config.KeySecret)

	log.Printf("[Razorpay] Calling POST %s", endpoint)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var envelope struct {
			Error *APIError `json:"error"`
		}
		if json.Unmarshal(respBody, &envelope) == nil && envelope.Error != nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Description = envelope.Error.Description
		} else {
			apiErr.Description = string(respBody)
		}
		log.Printf("[Razorpay] %s failed: %v", endpoint, apiErr)
		return apiErr
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// SignSubscriptionPayment computes the checkout signature for a subscription payment
// Formula: hex(hmac_sha256(secret, payment_id + "|" + subscription_id))
func SignSubscriptionPayment(secret, paymentID, subscriptionID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(paymentID + "|" + subscriptionID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySubscriptionPayment checks a checkout signature in constant time
func VerifySubscriptionPayment(secret, paymentID, subscriptionID, signature string) bool {
	if signature == "" {
		return false
	}
	expected := SignSubscriptionPayment(secret, paymentID, subscriptionID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
