package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mansoorceksport/learnify/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// CourseService handles the course catalog and lectures
type CourseService struct {
	courseRepo domain.CourseRepository
	files      domain.FileRepository
}

// NewCourseService creates a new CourseService instance
func NewCourseService(courseRepo domain.CourseRepository, files domain.FileRepository) *CourseService {
	return &CourseService{
		courseRepo: courseRepo,
		files:      files,
	}
}

// CreateCourseRequest contains the course form
type CreateCourseRequest struct {
	Title       string
	Description string
	Category    string
	CreatedBy   string
	Poster      *Upload
}

// AddLectureRequest contains the lecture form
type AddLectureRequest struct {
	Title       string
	Description string
	Video       *Upload
}

// ListCourses returns the catalog without lectures
func (s *CourseService) ListCourses(ctx context.Context, filter domain.CourseFilter) ([]*domain.Course, error) {
	return s.courseRepo.GetAll(ctx, filter)
}

// CreateCourse validates the form, uploads the poster and stores the course
func (s *CourseService) CreateCourse(ctx context.Context, req CreateCourseRequest) (*domain.Course, error) {
	if req.Title == "" || req.Description == "" || req.Category == "" || req.CreatedBy == "" {
		return nil, fmt.Errorf("%w: please fill all the fields", domain.ErrValidation)
	}

	now := time.Now().UTC()
	course := &domain.Course{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		CreatedBy:   req.CreatedBy,
		Lectures:    []domain.Lecture{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := course.Validate(); err != nil {
		return nil, err
	}

	poster, err := storeMedia(ctx, s.files, posterFolder, req.Poster)
	if err != nil {
		return nil, err
	}
	course.Poster = poster

	if err := s.courseRepo.Create(ctx, course); err != nil {
		s.deleteMedia(ctx, poster.PublicID)
		return nil, fmt.Errorf("failed to create course: %w", err)
	}

	log.Printf("[Course] Created %s (%s)", course.ID, course.Title)
	return course, nil
}

// GetLectures returns the lectures of a course and counts a view. Only admins
// and users with an active subscription may watch.
func (s *CourseService) GetLectures(ctx context.Context, viewer *domain.User, courseID string) ([]domain.Lecture, error) {
	if viewer == nil {
		return nil, domain.ErrUnauthorized
	}
	if !viewer.IsAdmin() && !viewer.HasActiveSubscription() {
		return nil, fmt.Errorf("%w: only subscribers can access this resource", domain.ErrForbidden)
	}

	course, err := s.courseRepo.IncrementViews(ctx, courseID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("course not found: %w", err)
		}
		return nil, err
	}
	if course.Lectures == nil {
		return []domain.Lecture{}, nil
	}
	return course.Lectures, nil
}

// AddLecture uploads the video and appends the lecture to the course
func (s *CourseService) AddLecture(ctx context.Context, courseID string, req AddLectureRequest) (*domain.Lecture, error) {
	lecture := domain.Lecture{
		ID:          primitive.NewObjectID().Hex(),
		Title:       req.Title,
		Description: req.Description,
	}
	if err := lecture.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.courseRepo.GetByID(ctx, courseID); err != nil {
		return nil, err
	}

	video, err := storeMedia(ctx, s.files, videoFolder, req.Video)
	if err != nil {
		return nil, err
	}
	lecture.Video = video

	if err := s.courseRepo.AddLecture(ctx, courseID, lecture); err != nil {
		s.deleteMedia(ctx, video.PublicID)
		return nil, fmt.Errorf("failed to add lecture: %w", err)
	}
	return &lecture, nil
}

// DeleteCourse removes the course and all of its media
func (s *CourseService) DeleteCourse(ctx context.Context, courseID string) error {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(course.Lectures)+1)
	if course.Poster.PublicID != "" {
		keys = append(keys, course.Poster.PublicID)
	}
	for _, l := range course.Lectures {
		if l.Video.PublicID != "" {
			keys = append(keys, l.Video.PublicID)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, key := range keys {
		key := key
		g.Go(func() error {
			return s.files.Delete(gctx, key)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to delete course media: %w", err)
	}

	if err := s.courseRepo.Delete(ctx, course.ID); err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}
	log.Printf("[Course] Deleted %s with %d media objects", course.ID, len(keys))
	return nil
}

// DeleteLecture removes one lecture and its video
func (s *CourseService) DeleteLecture(ctx context.Context, courseID, lectureID string) error {
	if courseID == "" || lectureID == "" {
		return fmt.Errorf("%w: courseId and lectureId are required", domain.ErrValidation)
	}

	lecture, err := s.courseRepo.RemoveLecture(ctx, courseID, lectureID)
	if err != nil {
		return err
	}
	s.deleteMedia(ctx, lecture.Video.PublicID)
	return nil
}

func (s *CourseService) deleteMedia(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.files.Delete(ctx, key); err != nil {
		log.Printf("[Course] Failed to delete media %s: %v", key, err)
	}
}
