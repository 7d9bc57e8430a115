package domain

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"
)

// Course is a catalog entry with an ordered list of lectures
type Course struct {
	ID          string    `bson:"_id,omitempty" json:"id"`
	Title       string    `bson:"title" json:"title"`
	Description string    `bson:"description" json:"description"`
	Category    string    `bson:"category" json:"category"`
	CreatedBy   string    `bson:"created_by" json:"createdBy"`
	Poster      Media     `bson:"poster" json:"poster"`
	Lectures    []Lecture `bson:"lectures" json:"lectures,omitempty"`
	Views       int64     `bson:"views" json:"views"`
	NumOfVideos int       `bson:"num_of_videos" json:"numOfVideos"`
	CreatedAt   time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updatedAt"`
}

// Lecture is a single video inside a course
type Lecture struct {
	ID          string `bson:"_id" json:"id"`
	Title       string `bson:"title" json:"title"`
	Description string `bson:"description" json:"description"`
	Video       Media  `bson:"video" json:"video"`
}

// CourseFilter narrows the catalog listing. Empty fields match everything.
type CourseFilter struct {
	Keyword  string
	Category string
}

// Validate checks the catalog constraints for a new course
func (c *Course) Validate() error {
	titleLen := utf8.RuneCountInString(c.Title)
	switch {
	case titleLen < 4:
		return fmt.Errorf("%w: title must be at least 4 characters", ErrValidation)
	case titleLen > 80:
		return fmt.Errorf("%w: title can't exceed 80 characters", ErrValidation)
	case utf8.RuneCountInString(c.Description) < 20:
		return fmt.Errorf("%w: description must be at least 20 characters", ErrValidation)
	case c.Category == "":
		return fmt.Errorf("%w: category is required", ErrValidation)
	case c.CreatedBy == "":
		return fmt.Errorf("%w: creator name is required", ErrValidation)
	}
	return nil
}

// Validate checks the required lecture fields
func (l *Lecture) Validate() error {
	if l.Title == "" || l.Description == "" {
		return fmt.Errorf("%w: lecture title and description are required", ErrValidation)
	}
	return nil
}

// CourseRepository defines operations for managing courses
type CourseRepository interface {
	Create(ctx context.Context, course *Course) error
	GetByID(ctx context.Context, id string) (*Course, error)
	// GetAll lists courses without their lectures
	GetAll(ctx context.Context, filter CourseFilter) ([]*Course, error)
	Delete(ctx context.Context, id string) error

	// IncrementViews atomically bumps the view counter and returns the updated course
	IncrementViews(ctx context.Context, id string) (*Course, error)
	// AddLecture appends at the tail and keeps num_of_videos in sync
	AddLecture(ctx context.Context, courseID string, lecture Lecture) error
	// RemoveLecture removes by id, preserves order, and returns the removed lecture
	RemoveLecture(ctx context.Context, courseID, lectureID string) (*Lecture, error)

	SumViews(ctx context.Context) (int64, error)
}
