package repository

import (
	"context"
	"log"
	"time"

	"github.com/mansoorceksport/learnify/internal/domain"
)

// NotifyingUserRepository wraps a UserRepository and publishes a change
// event after every committed mutation
type NotifyingUserRepository struct {
	domain.UserRepository
	publisher domain.ChangePublisher
}

// NewNotifyingUserRepository creates a new change-emitting user repository
func NewNotifyingUserRepository(inner domain.UserRepository, publisher domain.ChangePublisher) *NotifyingUserRepository {
	return &NotifyingUserRepository{
		UserRepository: inner,
		publisher:      publisher,
	}
}

func (r *NotifyingUserRepository) Create(ctx context.Context, user *domain.User) error {
	if err := r.UserRepository.Create(ctx, user); err != nil {
		return err
	}
	notify(ctx, r.publisher, domain.EntityUser, domain.OpCreate, user.ID)
	return nil
}

func (r *NotifyingUserRepository) Update(ctx context.Context, user *domain.User) error {
	if err := r.UserRepository.Update(ctx, user); err != nil {
		return err
	}
	notify(ctx, r.publisher, domain.EntityUser, domain.OpUpdate, user.ID)
	return nil
}

func (r *NotifyingUserRepository) Delete(ctx context.Context, id string) error {
	if err := r.UserRepository.Delete(ctx, id); err != nil {
		return err
	}
	notify(ctx, r.publisher, domain.EntityUser, domain.OpDelete, id)
	return nil
}

func (r *NotifyingUserRepository) SetSubscription(ctx context.Context, userID string, sub domain.Subscription) error {
	if err := r.UserRepository.SetSubscription(ctx, userID, sub); err != nil {
		return err
	}
	notify(ctx, r.publisher, domain.EntityUser, domain.OpUpdate, userID)
	return nil
}

func (r *NotifyingUserRepository) ClearSubscription(ctx context.Context, userID string) error {
	if err := r.UserRepository.ClearSubscription(ctx, userID); err != nil {
		return err
	}
	notify(ctx, r.publisher, domain.EntityUser, domain.OpUpdate, userID)
	return nil
}

// NotifyingCourseRepository wraps a CourseRepository and publishes a change
// event after every committed mutation
type NotifyingCourseRepository struct {
	domain.CourseRepository
	publisher domain.ChangePublisher
}

// NewNotifyingCourseRepository creates a new change-emitting course repository
func NewNotifyingCourseRepository(inner domain.CourseRepository, publisher domain.ChangePublisher) *NotifyingCourseRepository {
	return &NotifyingCourseRepository{
		CourseRepository: inner,
		publisher:        publisher,
	}
}

func (r *NotifyingCourseRepository) Create(ctx context.Context, course *domain.Course) error {
	if err := r.CourseRepository.Create(ctx, course); err != nil {
		return err
	}
	notify(ctx, r.publisher, domain.EntityCourse, domain.OpCreate, course.ID)
	return nil
}

func (r *NotifyingCourseRepository) Delete(ctx context.Context, id string) error {
	if err := r.CourseRepository.Delete(ctx, id); err != nil {
		return err
	}
	notify(ctx, r.publisher, domain.EntityCourse, domain.OpDelete, id)
	return nil
}

func (r *NotifyingCourseRepository) IncrementViews(ctx context.Context, id string) (*domain.Course, error) {
	course, err := r.CourseRepository.IncrementViews(ctx, id)
	if err != nil {
		return nil, err
	}
	notify(ctx, r.publisher, domain.EntityCourse, domain.OpUpdate, id)
	return course, nil
}

func (r *NotifyingCourseRepository) AddLecture(ctx context.Context, courseID string, lecture domain.Lecture) error {
	if err := r.CourseRepository.AddLecture(ctx, courseID, lecture); err != nil {
		return err
	}
	notify(ctx, r.publisher, domain.EntityCourse, domain.OpUpdate, courseID)
	return nil
}

func (r *NotifyingCourseRepository) RemoveLecture(ctx context.Context, courseID, lectureID string) (*domain.Lecture, error) {
	lecture, err := r.CourseRepository.RemoveLecture(ctx, courseID, lectureID)
	if err != nil {
		return nil, err
	}
	notify(ctx, r.publisher, domain.EntityCourse, domain.OpUpdate, courseID)
	return lecture, nil
}

// notify publishes after the write has committed; a delivery failure is logged
// and never rolls back the mutation
func notify(ctx context.Context, publisher domain.ChangePublisher, kind domain.EntityKind, op domain.ChangeOp, id string) {
	event := domain.ChangeEvent{Kind: kind, Op: op, ID: id, At: time.Now().UTC()}
	if err := publisher.Publish(ctx, event); err != nil {
		log.Printf("[Events] Failed to publish %s %s for %s: %v", kind, op, id, err)
	}
}
