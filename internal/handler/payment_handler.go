package handler

import (
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/learnify/internal/domain"
	"github.com/mansoorceksport/learnify/internal/middleware"
	"github.com/mansoorceksport/learnify/internal/service"
)

// PaymentHandler handles the subscription checkout endpoints
type PaymentHandler struct {
	subscriptions *service.SubscriptionService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(subscriptions *service.SubscriptionService) *PaymentHandler {
	return &PaymentHandler{subscriptions: subscriptions}
}

// PaymentVerificationRequest is the checkout callback body posted by the gateway widget
type PaymentVerificationRequest struct {
	PaymentID      string `json:"razorpay_payment_id" form:"razorpay_payment_id"`
	SubscriptionID string `json:"razorpay_subscription_id" form:"razorpay_subscription_id"`
	Signature      string `json:"razorpay_signature" form:"razorpay_signature"`
}

// Subscribe handles GET /api/v1/subscribe
func (h *PaymentHandler) Subscribe(c *fiber.Ctx) error {
	subID, err := h.subscriptions.CreateSubscription(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success":        true,
		"subscriptionId": subID,
		"message":        "Subscription created, complete the payment to activate it",
	})
}

// PaymentVerification handles POST /api/v1/paymentverification.
// The browser always lands on the frontend, success or failure.
func (h *PaymentHandler) PaymentVerification(c *fiber.Ctx) error {
	var req PaymentVerificationRequest
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrValidation)
	}

	redirectURL, err := h.subscriptions.VerifyPayment(c.UserContext(), middleware.GetUserID(c), service.VerifyPaymentInput{
		PaymentID:      req.PaymentID,
		SubscriptionID: req.SubscriptionID,
		Signature:      req.Signature,
	})
	if err != nil && !errors.Is(err, domain.ErrSignatureMismatch) {
		log.Printf("[Payment] Verification failed: %v", err)
	}
	return c.Redirect(redirectURL, fiber.StatusFound)
}

// CancelSubscription handles DELETE /api/v1/subscribe/cancel
func (h *PaymentHandler) CancelSubscription(c *fiber.Ctx) error {
	res, err := h.subscriptions.CancelSubscription(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"refunded": res.Refunded,
		"message":  res.Message,
	})
}

// GetRazorpayKey handles GET /api/v1/razorpaykey
func (h *PaymentHandler) GetRazorpayKey(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"success": true,
		"key":     h.subscriptions.GatewayKey(),
	})
}
