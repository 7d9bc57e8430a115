package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/mansoorceksport/learnify/internal/domain"
	"github.com/mansoorceksport/learnify/internal/infrastructure/razorpay"
)

// SubscriptionConfig holds the billing parameters of the subscription manager
type SubscriptionConfig struct {
	PlanID       string
	TotalCount   int
	KeyID        string
	KeySecret    string
	FrontendURL  string
	RefundWindow time.Duration
}

// VerifyPaymentInput is the checkout callback payload
type VerifyPaymentInput struct {
	PaymentID      string
	SubscriptionID string
	Signature      string
}

// CancelResult describes the outcome of a cancellation
type CancelResult struct {
	Refunded bool
	Message  string
}

// SubscriptionService drives the subscription lifecycle against the payment gateway
type SubscriptionService struct {
	userRepo    domain.UserRepository
	paymentRepo domain.PaymentRepository
	gateway     PaymentGateway
	cfg         SubscriptionConfig
	metrics     *billingMetrics
	now         func() time.Time
}

// NewSubscriptionService creates a new SubscriptionService instance
func NewSubscriptionService(
	userRepo domain.UserRepository,
	paymentRepo domain.PaymentRepository,
	gateway PaymentGateway,
	cfg SubscriptionConfig,
) *SubscriptionService {
	return &SubscriptionService{
		userRepo:    userRepo,
		paymentRepo: paymentRepo,
		gateway:     gateway,
		cfg:         cfg,
		metrics:     newBillingMetrics(),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// GatewayKey returns the public key id for the checkout widget
func (s *SubscriptionService) GatewayKey() string {
	return s.cfg.KeyID
}

// CreateSubscription starts a gateway subscription for the user and returns its id.
// A pending subscription is returned as is so an abandoned checkout can resume.
func (s *SubscriptionService) CreateSubscription(ctx context.Context, userID string) (string, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to get user: %w", err)
	}

	if user.IsAdmin() {
		return "", fmt.Errorf("%w: admin can't buy subscription", domain.ErrForbidden)
	}

	switch user.Subscription.Status {
	case domain.SubscriptionActive:
		return "", domain.ErrAlreadySubscribed
	case domain.SubscriptionCreated:
		if user.Subscription.ID != "" {
			log.Printf("[Subscription] Reusing pending subscription %s for user %s", user.Subscription.ID, user.ID)
			return user.Subscription.ID, nil
		}
	}

	sub, err := s.gateway.CreateSubscription(ctx, s.cfg.PlanID, 1, s.cfg.TotalCount)
	if err != nil {
		log.Printf("[Subscription] Gateway rejected subscription for user %s: %v", user.ID, err)
		return "", fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}

	if err := s.userRepo.SetSubscription(ctx, user.ID, domain.Subscription{ID: sub.ID, Status: domain.SubscriptionCreated}); err != nil {
		return "", fmt.Errorf("failed to store subscription: %w", err)
	}

	inc(ctx, s.metrics.created)
	log.Printf("[Subscription] Created %s for user %s", sub.ID, user.ID)
	return sub.ID, nil
}

// VerifyPayment checks the checkout signature against the user's stored
// subscription and activates it. It always returns the frontend redirect URL;
// on a mismatch the error is ErrSignatureMismatch and nothing is written.
func (s *SubscriptionService) VerifyPayment(ctx context.Context, userID string, in VerifyPaymentInput) (string, error) {
	failURL := s.frontendURL("/paymentfail")

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return failURL, fmt.Errorf("failed to get user: %w", err)
	}

	stored := user.Subscription.ID
	if stored == "" || !razorpay.VerifySubscriptionPayment(s.cfg.KeySecret, in.PaymentID, stored, in.Signature) {
		log.Printf("[Subscription] Signature verification failed for user %s", user.ID)
		return failURL, domain.ErrSignatureMismatch
	}

	successURL := s.frontendURL("/paymentsuccess?reference=" + url.QueryEscape(in.PaymentID))

	// a replayed callback for an already active subscription changes nothing
	if user.Subscription.Status == domain.SubscriptionActive {
		return successURL, nil
	}

	payment := &domain.Payment{
		PaymentID:      in.PaymentID,
		SubscriptionID: stored,
		Signature:      in.Signature,
		CreatedAt:      s.now(),
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return failURL, fmt.Errorf("failed to record payment: %w", err)
	}

	if err := s.userRepo.SetSubscription(ctx, user.ID, domain.Subscription{ID: stored, Status: domain.SubscriptionActive}); err != nil {
		// keep Payment iff active
		if delErr := s.paymentRepo.Delete(ctx, payment.ID); delErr != nil {
			log.Printf("[Subscription] Failed to roll back payment %s: %v", payment.ID, delErr)
		}
		return failURL, fmt.Errorf("failed to activate subscription: %w", err)
	}

	inc(ctx, s.metrics.activated)
	log.Printf("[Subscription] Activated %s for user %s (payment %s)", stored, user.ID, in.PaymentID)
	return successURL, nil
}

// CancelSubscription cancels the user's subscription at the gateway, refunds
// the payment inside the refund window, and clears the local state
func (s *SubscriptionService) CancelSubscription(ctx context.Context, userID string) (*CancelResult, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	subID := user.Subscription.ID
	if subID == "" {
		return nil, fmt.Errorf("no subscription to cancel: %w", domain.ErrNotFound)
	}

	payment, err := s.paymentRepo.GetBySubscriptionID(ctx, subID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("no payment for subscription %s: %w", subID, domain.ErrNotFound)
		}
		return nil, err
	}

	// a retry after a failed refund finds the gateway side already cancelled
	if err := s.gateway.CancelSubscription(ctx, subID); err != nil {
		if !errors.Is(err, ErrSubscriptionCancelled) {
			log.Printf("[Subscription] Gateway cancel failed for %s: %v", subID, err)
			return nil, fmt.Errorf("%w: %v", domain.ErrGateway, err)
		}
		log.Printf("[Subscription] %s already cancelled at gateway, finishing local cancel", subID)
	}

	refunded := false
	if payment.WithinRefundWindow(s.now(), s.cfg.RefundWindow) {
		if err := s.gateway.RefundPayment(ctx, payment.PaymentID); err != nil {
			log.Printf("[Subscription] Gateway refund failed for payment %s: %v", payment.PaymentID, err)
			return nil, fmt.Errorf("%w: %v", domain.ErrGateway, err)
		}
		refunded = true
		inc(ctx, s.metrics.refunded)
	}

	if err := s.paymentRepo.Delete(ctx, payment.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to delete payment: %w", err)
	}
	if err := s.userRepo.ClearSubscription(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to clear subscription: %w", err)
	}

	inc(ctx, s.metrics.cancelled)
	log.Printf("[Subscription] Cancelled %s for user %s (refunded=%t)", subID, user.ID, refunded)

	days := int(s.cfg.RefundWindow.Hours() / 24)
	result := &CancelResult{Refunded: refunded}
	if refunded {
		result.Message = fmt.Sprintf("Subscription cancelled successfully , You will get refund within %d days", days)
	} else {
		result.Message = fmt.Sprintf("Subscription cancelled successfully , No refund initiated as subscription is cancelled after %d days", days)
	}
	return result, nil
}

func (s *SubscriptionService) frontendURL(path string) string {
	return strings.TrimRight(s.cfg.FrontendURL, "/") + path
}
