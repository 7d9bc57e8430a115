package domain

import (
	"context"
	"time"
)

// Payment is the record of a verified first payment for a gateway subscription.
// It exists exactly while the subscription is active.
type Payment struct {
	ID             string    `bson:"_id,omitempty" json:"id"`
	PaymentID      string    `bson:"razorpay_payment_id" json:"razorpay_payment_id"`
	SubscriptionID string    `bson:"razorpay_subscription_id" json:"razorpay_subscription_id"`
	Signature      string    `bson:"razorpay_signature" json:"razorpay_signature"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
}

// WithinRefundWindow reports whether a cancellation at now still qualifies for a refund
func (p *Payment) WithinRefundWindow(now time.Time, window time.Duration) bool {
	return now.Sub(p.CreatedAt) < window
}

// PaymentRepository defines operations for managing payment records
type PaymentRepository interface {
	Create(ctx context.Context, payment *Payment) error
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*Payment, error)
	Delete(ctx context.Context, id string) error
}
