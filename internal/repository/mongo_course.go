package repository

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/mansoorceksport/learnify/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCourseRepository implements domain.CourseRepository
type MongoCourseRepository struct {
	collection *mongo.Collection
}

func NewMongoCourseRepository(db *mongo.Database) *MongoCourseRepository {
	coll := db.Collection("courses")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})

	return &MongoCourseRepository{
		collection: coll,
	}
}

func (r *MongoCourseRepository) Create(ctx context.Context, course *domain.Course) error {
	course.CreatedAt = time.Now().UTC()
	course.UpdatedAt = course.CreatedAt
	objID := primitive.NewObjectID()
	course.ID = objID.Hex()
	if course.Lectures == nil {
		course.Lectures = []domain.Lecture{}
	}
	course.NumOfVideos = len(course.Lectures)

	lectures := primitive.A{}
	for _, l := range course.Lectures {
		doc, err := lectureToBson(l)
		if err != nil {
			return err
		}
		lectures = append(lectures, doc)
	}

	doc := bson.M{
		"_id":           objID,
		"title":         course.Title,
		"description":   course.Description,
		"category":      course.Category,
		"created_by":    course.CreatedBy,
		"poster":        mediaToBson(course.Poster),
		"lectures":      lectures,
		"views":         course.Views,
		"num_of_videos": course.NumOfVideos,
		"created_at":    course.CreatedAt,
		"updated_at":    course.UpdatedAt,
	}

	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("failed to create course: %w", err)
	}
	return nil
}

func (r *MongoCourseRepository) GetByID(ctx context.Context, id string) (*domain.Course, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	var raw bson.M
	if err := r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&raw); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get course: %w", err)
	}
	return mapBsonToCourse(raw), nil
}

func (r *MongoCourseRepository) GetAll(ctx context.Context, filter domain.CourseFilter) ([]*domain.Course, error) {
	query := bson.M{}
	if filter.Keyword != "" {
		query["title"] = bson.M{"$regex": regexp.QuoteMeta(filter.Keyword), "$options": "i"}
	}
	if filter.Category != "" {
		query["category"] = bson.M{"$regex": regexp.QuoteMeta(filter.Category), "$options": "i"}
	}

	opts := options.Find().
		SetProjection(bson.M{"lectures": 0}).
		SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}
	defer cursor.Close(ctx)

	courses := []*domain.Course{}
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}
		c := mapBsonToCourse(raw)
		c.Lectures = nil
		courses = append(courses, c)
	}
	return courses, cursor.Err()
}

func (r *MongoCourseRepository) Delete(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MongoCourseRepository) IncrementViews(ctx context.Context, id string) (*domain.Course, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	update := bson.M{"$inc": bson.M{"views": 1}}

	var raw bson.M
	if err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objID}, update, opts).Decode(&raw); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to increment views: %w", err)
	}
	return mapBsonToCourse(raw), nil
}

func (r *MongoCourseRepository) AddLecture(ctx context.Context, courseID string, lecture domain.Lecture) error {
	objID, err := primitive.ObjectIDFromHex(courseID)
	if err != nil {
		return domain.ErrNotFound
	}
	doc, err := lectureToBson(lecture)
	if err != nil {
		return err
	}

	update := bson.M{
		"$push": bson.M{"lectures": doc},
		"$inc":  bson.M{"num_of_videos": 1},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, update)
	if err != nil {
		return fmt.Errorf("failed to add lecture: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MongoCourseRepository) RemoveLecture(ctx context.Context, courseID, lectureID string) (*domain.Lecture, error) {
	objID, err := primitive.ObjectIDFromHex(courseID)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	lecOID, err := primitive.ObjectIDFromHex(lectureID)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	filter := bson.M{"_id": objID, "lectures._id": lecOID}
	update := bson.M{
		"$pull": bson.M{"lectures": bson.M{"_id": lecOID}},
		"$inc":  bson.M{"num_of_videos": -1},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var raw bson.M
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&raw); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to remove lecture: %w", err)
	}

	for _, l := range mapBsonToCourse(raw).Lectures {
		if l.ID == lectureID {
			removed := l
			return &removed, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MongoCourseRepository) SumViews(ctx context.Context) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$views"}}},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to sum views: %w", err)
	}
	defer cursor.Close(ctx)

	// no documents means no courses
	if !cursor.Next(ctx) {
		return 0, cursor.Err()
	}
	var raw bson.M
	if err := cursor.Decode(&raw); err != nil {
		return 0, fmt.Errorf("failed to decode views sum: %w", err)
	}
	return toInt64(raw["total"]), nil
}

func lectureToBson(l domain.Lecture) (bson.M, error) {
	oid, err := primitive.ObjectIDFromHex(l.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid lecture id %q: %w", l.ID, domain.ErrValidation)
	}
	return bson.M{
		"_id":         oid,
		"title":       l.Title,
		"description": l.Description,
		"video":       mediaToBson(l.Video),
	}, nil
}

func mapBsonToCourse(raw bson.M) *domain.Course {
	course := &domain.Course{}
	if oid, ok := raw["_id"].(primitive.ObjectID); ok {
		course.ID = oid.Hex()
	}
	course.Title, _ = raw["title"].(string)
	course.Description, _ = raw["description"].(string)
	course.Category, _ = raw["category"].(string)
	course.CreatedBy, _ = raw["created_by"].(string)
	course.Poster = mapBsonToMedia(raw["poster"])
	course.Views = toInt64(raw["views"])
	course.NumOfVideos = int(toInt64(raw["num_of_videos"]))

	course.Lectures = []domain.Lecture{}
	if items, ok := raw["lectures"].(primitive.A); ok {
		for _, it := range items {
			m := asM(it)
			if m == nil {
				continue
			}
			lecture := domain.Lecture{}
			if oid, ok := m["_id"].(primitive.ObjectID); ok {
				lecture.ID = oid.Hex()
			}
			lecture.Title, _ = m["title"].(string)
			lecture.Description, _ = m["description"].(string)
			lecture.Video = mapBsonToMedia(m["video"])
			course.Lectures = append(course.Lectures, lecture)
		}
	}

	if created, ok := raw["created_at"].(primitive.DateTime); ok {
		course.CreatedAt = created.Time()
	}
	if updated, ok := raw["updated_at"].(primitive.DateTime); ok {
		course.UpdatedAt = updated.Time()
	}
	return course
}

// toInt64 handles the numeric widths Mongo may return for counters
func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int32:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	}
	return 0
}
