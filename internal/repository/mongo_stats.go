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

// newestFirst orders snapshots so the current one comes first
var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

// MongoStatsRepository implements domain.StatsRepository
type MongoStatsRepository struct {
	collection *mongo.Collection
}

func NewMongoStatsRepository(db *mongo.Database) *MongoStatsRepository {
	coll := db.Collection("stats")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}},
	})

	return &MongoStatsRepository{
		collection: coll,
	}
}

func (r *MongoStatsRepository) Latest(ctx context.Context, n int) ([]*domain.StatsSnapshot, error) {
	opts := options.Find().SetSort(newestFirst).SetLimit(int64(n))
	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list stats: %w", err)
	}
	defer cursor.Close(ctx)

	snapshots := []*domain.StatsSnapshot{}
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, mapBsonToStats(raw))
	}
	return snapshots, cursor.Err()
}

func (r *MongoStatsRepository) Current(ctx context.Context) (*domain.StatsSnapshot, error) {
	var raw bson.M
	err := r.collection.FindOne(ctx, bson.M{}, options.FindOne().SetSort(newestFirst)).Decode(&raw)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrStatsNotBootstrapped
		}
		return nil, fmt.Errorf("failed to get current stats: %w", err)
	}
	return mapBsonToStats(raw), nil
}

func (r *MongoStatsRepository) Insert(ctx context.Context, snapshot *domain.StatsSnapshot) error {
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now().UTC()
	}
	snapshot.UpdatedAt = snapshot.CreatedAt
	objID := primitive.NewObjectID()
	snapshot.ID = objID.Hex()

	doc := bson.M{
		"_id":          objID,
		"users":        snapshot.Users,
		"subscription": snapshot.Subscription,
		"views":        snapshot.Views,
		"created_at":   snapshot.CreatedAt,
		"updated_at":   snapshot.UpdatedAt,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to insert stats: %w", err)
	}
	return nil
}

func (r *MongoStatsRepository) SetViews(ctx context.Context, views int64) error {
	return r.updateCurrent(ctx, bson.M{"views": views})
}

func (r *MongoStatsRepository) SetUserCounts(ctx context.Context, users, subscriptions int64) error {
	return r.updateCurrent(ctx, bson.M{"users": users, "subscription": subscriptions})
}

// updateCurrent applies a single $set to the newest snapshot so concurrent
// writers of disjoint fields never overwrite each other
func (r *MongoStatsRepository) updateCurrent(ctx context.Context, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	opts := options.FindOneAndUpdate().SetSort(newestFirst)

	err := r.collection.FindOneAndUpdate(ctx, bson.M{}, bson.M{"$set": fields}, opts).Err()
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return domain.ErrStatsNotBootstrapped
		}
		return fmt.Errorf("failed to update current stats: %w", err)
	}
	return nil
}

func (r *MongoStatsRepository) Rotate(ctx context.Context, now time.Time) (*domain.StatsSnapshot, error) {
	opts := options.FindOneAndUpdate().SetSort(newestFirst)
	seal := bson.M{"$set": bson.M{"sealed_at": now, "updated_at": now}}

	err := r.collection.FindOneAndUpdate(ctx, bson.M{"sealed_at": bson.M{"$exists": false}}, seal, opts).Err()
	if err != nil && err != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("failed to seal current stats: %w", err)
	}

	next := &domain.StatsSnapshot{CreatedAt: now}
	if err := r.Insert(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

func mapBsonToStats(raw bson.M) *domain.StatsSnapshot {
	snap := &domain.StatsSnapshot{}
	if oid, ok := raw["_id"].(primitive.ObjectID); ok {
		snap.ID = oid.Hex()
	}
	snap.Users = toInt64(raw["users"])
	snap.Subscription = toInt64(raw["subscription"])
	snap.Views = toInt64(raw["views"])
	if created, ok := raw["created_at"].(primitive.DateTime); ok {
		snap.CreatedAt = created.Time()
	}
	if updated, ok := raw["updated_at"].(primitive.DateTime); ok {
		snap.UpdatedAt = updated.Time()
	}
	if sealed, ok := raw["sealed_at"].(primitive.DateTime); ok {
		t := sealed.Time()
		snap.SealedAt = &t
	}
	return snap
}
