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

// MongoUserRepository implements domain.UserRepository
type MongoUserRepository struct {
	collection *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	coll := db.Collection("users")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// subscription.status backs the active subscriber count
	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "subscription.status", Value: 1}}},
		{
			Keys:    bson.D{{Key: "reset_password_token", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
	})

	return &MongoUserRepository{
		collection: coll,
	}
}

func (r *MongoUserRepository) Create(ctx context.Context, user *domain.User) error {
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	objID := primitive.NewObjectID()
	user.ID = objID.Hex()

	if user.Role == "" {
		user.Role = domain.RoleUser
	}

	doc := bson.M{
		"_id":          objID,
		"name":         user.Name,
		"email":        user.Email,
		"password":     user.PasswordHash,
		"role":         user.Role,
		"subscription": bson.M{},
		"avatar":       mediaToBson(user.Avatar),
		"playlist":     playlistToBson(user.Playlist),
		"created_at":   user.CreatedAt,
		"updated_at":   user.UpdatedAt,
	}

	_, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("user with email %s: %w", user.Email, domain.ErrConflict)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	var raw bson.M
	if err := r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&raw); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return mapBsonToUser(raw), nil
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var raw bson.M
	if err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&raw); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return mapBsonToUser(raw), nil
}

func (r *MongoUserRepository) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*domain.User, error) {
	filter := bson.M{
		"reset_password_token":  tokenHash,
		"reset_password_expire": bson.M{"$gt": now},
	}

	var raw bson.M
	if err := r.collection.FindOne(ctx, filter).Decode(&raw); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by reset token: %w", err)
	}
	return mapBsonToUser(raw), nil
}

func (r *MongoUserRepository) GetAll(ctx context.Context) ([]*domain.User, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer cursor.Close(ctx)

	users := []*domain.User{}
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}
		users = append(users, mapBsonToUser(raw))
	}
	return users, cursor.Err()
}

func (r *MongoUserRepository) Update(ctx context.Context, user *domain.User) error {
	objID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		return domain.ErrNotFound
	}

	user.UpdatedAt = time.Now().UTC()
	set := bson.M{
		"name":       user.Name,
		"email":      user.Email,
		"password":   user.PasswordHash,
		"role":       user.Role,
		"avatar":     mediaToBson(user.Avatar),
		"playlist":   playlistToBson(user.Playlist),
		"updated_at": user.UpdatedAt,
	}
	update := bson.M{"$set": set}

	if user.ResetPasswordToken != "" && user.ResetPasswordExpire != nil {
		set["reset_password_token"] = user.ResetPasswordToken
		set["reset_password_expire"] = *user.ResetPasswordExpire
	} else {
		update["$unset"] = bson.M{"reset_password_token": "", "reset_password_expire": ""}
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("user with email %s: %w", user.Email, domain.ErrConflict)
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MongoUserRepository) Delete(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MongoUserRepository) SetSubscription(ctx context.Context, userID string, sub domain.Subscription) error {
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return domain.ErrNotFound
	}

	update := bson.M{
		"$set": bson.M{
			"subscription.id":     sub.ID,
			"subscription.status": string(sub.Status),
			"updated_at":          time.Now().UTC(),
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		return fmt.Errorf("failed to set subscription: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MongoUserRepository) ClearSubscription(ctx context.Context, userID string) error {
	objID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return domain.ErrNotFound
	}

	update := bson.M{
		"$unset": bson.M{"subscription.id": "", "subscription.status": ""},
		"$set":   bson.M{"updated_at": time.Now().UTC()},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		return fmt.Errorf("failed to clear subscription: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MongoUserRepository) CountAll(ctx context.Context) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func (r *MongoUserRepository) CountActiveSubscriptions(ctx context.Context) (int64, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{"subscription.status": string(domain.SubscriptionActive)})
	if err != nil {
		return 0, fmt.Errorf("failed to count active subscriptions: %w", err)
	}
	return n, nil
}

func mapBsonToUser(raw bson.M) *domain.User {
	user := &domain.User{}
	if oid, ok := raw["_id"].(primitive.ObjectID); ok {
		user.ID = oid.Hex()
	}
	if name, ok := raw["name"].(string); ok {
		user.Name = name
	}
	if email, ok := raw["email"].(string); ok {
		user.Email = email
	}
	if password, ok := raw["password"].(string); ok {
		user.PasswordHash = password
	}
	if role, ok := raw["role"].(string); ok {
		user.Role = role
	}
	if sub := asM(raw["subscription"]); sub != nil {
		user.Subscription.ID, _ = sub["id"].(string)
		if status, ok := sub["status"].(string); ok {
			user.Subscription.Status = domain.SubscriptionStatus(status)
		}
	}
	user.Avatar = mapBsonToMedia(raw["avatar"])

	user.Playlist = []domain.PlaylistItem{}
	if items, ok := raw["playlist"].(primitive.A); ok {
		for _, it := range items {
			m := asM(it)
			if m == nil {
				continue
			}
			item := domain.PlaylistItem{}
			item.CourseID, _ = m["course"].(string)
			item.Poster, _ = m["poster"].(string)
			user.Playlist = append(user.Playlist, item)
		}
	}

	if token, ok := raw["reset_password_token"].(string); ok {
		user.ResetPasswordToken = token
	}
	if expire, ok := raw["reset_password_expire"].(primitive.DateTime); ok {
		t := expire.Time()
		user.ResetPasswordExpire = &t
	}
	if created, ok := raw["created_at"].(primitive.DateTime); ok {
		user.CreatedAt = created.Time()
	}
	if updated, ok := raw["updated_at"].(primitive.DateTime); ok {
		user.UpdatedAt = updated.Time()
	}
	return user
}

func playlistToBson(items []domain.PlaylistItem) primitive.A {
	out := primitive.A{}
	for _, item := range items {
		out = append(out, bson.M{"course": item.CourseID, "poster": item.Poster})
	}
	return out
}

func mediaToBson(m domain.Media) bson.M {
	return bson.M{"public_id": m.PublicID, "url": m.URL}
}

func mapBsonToMedia(v interface{}) domain.Media {
	media := domain.Media{}
	if m := asM(v); m != nil {
		media.PublicID, _ = m["public_id"].(string)
		media.URL, _ = m["url"].(string)
	}
	return media
}

// asM normalizes an embedded document decoded into an interface{}
func asM(v interface{}) bson.M {
	switch doc := v.(type) {
	case bson.M:
		return doc
	case bson.D:
		m := bson.M{}
		for _, e := range doc {
			m[e.Key] = e.Value
		}
		return m
	}
	return nil
}
