package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/mansoorceksport/learnify/internal/config"
	"github.com/mansoorceksport/learnify/internal/infrastructure/razorpay"
	"github.com/oklog/ulid/v2"
)

// ErrSubscriptionCancelled is returned by CancelSubscription when the gateway
// already holds the subscription in cancelled status
var ErrSubscriptionCancelled = errors.New("subscription already cancelled")

// GatewaySubscription is a subscription as reported by the payment gateway
type GatewaySubscription struct {
	ID     string
	Status string
}

// PaymentGateway defines the subscription billing operations of the gateway
type PaymentGateway interface {
	CreateSubscription(ctx context.Context, planID string, customerNotify, totalCount int) (*GatewaySubscription, error)
	CancelSubscription(ctx context.Context, subscriptionID string) error
	RefundPayment(ctx context.Context, paymentID string) error
}

// RazorpayClientAdapter adapts the razorpay.Client to PaymentGateway interface
type RazorpayClientAdapter struct {
	client *razorpay.Client
}

// NewPaymentGateway returns the appropriate PaymentGateway based on config.
// Without a key id it returns a mock gateway for development.
func NewPaymentGateway(cfg config.RazorpayConfig) PaymentGateway {
	if cfg.KeyID == "" {
		log.Println("[Payment] Using mock Razorpay gateway (no key id configured)")
		return NewMockPaymentGateway()
	}

	log.Printf("[Payment] Using Razorpay gateway (base: %s)", cfg.BaseURL)
	client := razorpay.NewClient(razorpay.Config{
		KeyID:     cfg.KeyID,
		KeySecret: cfg.KeySecret,
		BaseURL:   cfg.BaseURL,
	})
	return &RazorpayClientAdapter{client: client}
}

func (a *RazorpayClientAdapter) CreateSubscription(ctx context.Context, planID string, customerNotify, totalCount int) (*GatewaySubscription, error) {
	sub, err := a.client.CreateSubscription(ctx, planID, customerNotify, totalCount)
	if err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	return &GatewaySubscription{ID: sub.ID, Status: sub.Status}, nil
}

func (a *RazorpayClientAdapter) CancelSubscription(ctx context.Context, subscriptionID string) error {
	if _, err := a.client.CancelSubscription(ctx, subscriptionID); err != nil {
		if razorpay.IsAlreadyCancelled(err) {
			return fmt.Errorf("cancel subscription %s: %w", subscriptionID, ErrSubscriptionCancelled)
		}
		return fmt.Errorf("cancel subscription %s: %w", subscriptionID, err)
	}
	return nil
}

func (a *RazorpayClientAdapter) RefundPayment(ctx context.Context, paymentID string) error {
	if _, err := a.client.RefundPayment(ctx, paymentID); err != nil {
		return fmt.Errorf("refund payment %s: %w", paymentID, err)
	}
	return nil
}

// MockPaymentGateway is an in-memory PaymentGateway for development and tests
type MockPaymentGateway struct {
	mu        sync.Mutex
	Created   []string
	Cancelled []string
	Refunded  []string
	// Fail makes every call return this error when set
	Fail error
	// FailRefund makes only RefundPayment return this error when set
	FailRefund error
	cancelled  map[string]bool
}

// NewMockPaymentGateway creates an empty mock gateway
func NewMockPaymentGateway() *MockPaymentGateway {
	return &MockPaymentGateway{}
}

// CreateSubscription generates a mock subscription id using ULID
func (m *MockPaymentGateway) CreateSubscription(ctx context.Context, planID string, customerNotify, totalCount int) (*GatewaySubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return nil, m.Fail
	}
	id := "sub_MOCK" + ulid.Make().String()
	m.Created = append(m.Created, id)
	return &GatewaySubscription{ID: id, Status: "created"}, nil
}

func (m *MockPaymentGateway) CancelSubscription(ctx context.Context, subscriptionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	if m.cancelled[subscriptionID] {
		return fmt.Errorf("cancel subscription %s: %w", subscriptionID, ErrSubscriptionCancelled)
	}
	if m.cancelled == nil {
		m.cancelled = make(map[string]bool)
	}
	m.cancelled[subscriptionID] = true
	m.Cancelled = append(m.Cancelled, subscriptionID)
	return nil
}

func (m *MockPaymentGateway) RefundPayment(ctx context.Context, paymentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	if m.FailRefund != nil {
		return m.FailRefund
	}
	m.Refunded = append(m.Refunded, paymentID)
	return nil
}

// Calls returns copies of the recorded calls
func (m *MockPaymentGateway) Calls() (created, cancelled, refunded []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Created...), append([]string(nil), m.Cancelled...), append([]string(nil), m.Refunded...)
}
