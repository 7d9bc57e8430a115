package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/mansoorceksport/learnify/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoPaymentRepository implements domain.PaymentRepository
type MongoPaymentRepository struct {
	collection *mongo.Collection
}

// NewMongoPaymentRepository creates a new payment repository
func NewMongoPaymentRepository(db *mongo.Database) *MongoPaymentRepository {
	coll := db.Collection("payments")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// at most one payment per gateway subscription
	_, _ = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "razorpay_subscription_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})

	return &MongoPaymentRepository{
		collection: coll,
	}
}

func (r *MongoPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	if payment.CreatedAt.IsZero() {
		payment.CreatedAt = time.Now().UTC()
	}

	objID := primitive.NewObjectID()
	payment.ID = objID.Hex()

	doc := bson.M{
		"_id":                      objID,
		"razorpay_payment_id":      payment.PaymentID,
		"razorpay_subscription_id": payment.SubscriptionID,
		"razorpay_signature":       payment.Signature,
		"created_at":               payment.CreatedAt,
	}

	_, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("payment for subscription %s: %w", payment.SubscriptionID, domain.ErrConflict)
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *MongoPaymentRepository) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*domain.Payment, error) {
	var raw bson.M
	if err := r.collection.FindOne(ctx, bson.M{"razorpay_subscription_id": subscriptionID}).Decode(&raw); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return mapBsonToPayment(raw), nil
}

func (r *MongoPaymentRepository) Delete(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func mapBsonToPayment(raw bson.M) *domain.Payment {
	payment := &domain.Payment{}

	if oid, ok := raw["_id"].(primitive.ObjectID); ok {
		payment.ID = oid.Hex()
	}
	if paymentID, ok := raw["razorpay_payment_id"].(string); ok {
		payment.PaymentID = paymentID
	}
	if subID, ok := raw["razorpay_subscription_id"].(string); ok {
		payment.SubscriptionID = subID
	}
	if sig, ok := raw["razorpay_signature"].(string); ok {
		payment.Signature = sig
	}
	if created, ok := raw["created_at"].(primitive.DateTime); ok {
		payment.CreatedAt = created.Time()
	}

	return payment
}
