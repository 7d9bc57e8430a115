package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/mansoorceksport/learnify/internal/domain"
)

// UserService handles profile, playlist and user administration
type UserService struct {
	userRepo   domain.UserRepository
	courseRepo domain.CourseRepository
	files      domain.FileRepository
}

// NewUserService creates a new UserService instance
func NewUserService(
	userRepo domain.UserRepository,
	courseRepo domain.CourseRepository,
	files domain.FileRepository,
) *UserService {
	return &UserService{
		userRepo:   userRepo,
		courseRepo: courseRepo,
		files:      files,
	}
}

// GetProfile returns the user
func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, userID)
}

// UpdateProfile changes name and email; empty values keep the current ones
func (s *UserService) UpdateProfile(ctx context.Context, userID, name, email string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if name != "" {
		user.Name = name
	}
	if email = normalizeEmail(email); email != "" && email != user.Email {
		if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
			return nil, fmt.Errorf("%w: email already in use", domain.ErrConflict)
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		user.Email = email
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

// UpdateAvatar uploads a new avatar and removes the previous object
func (s *UserService) UpdateAvatar(ctx context.Context, userID string, up *Upload) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	avatar, err := storeMedia(ctx, s.files, avatarFolder, up)
	if err != nil {
		return nil, err
	}

	previous := user.Avatar.PublicID
	user.Avatar = avatar
	if err := s.userRepo.Update(ctx, user); err != nil {
		_ = s.files.Delete(ctx, avatar.PublicID)
		return nil, fmt.Errorf("failed to update avatar: %w", err)
	}

	s.deleteMedia(ctx, previous)
	return user, nil
}

// DeleteMe removes the caller's account. An active subscription must be
// cancelled first so its payment record is settled.
func (s *UserService) DeleteMe(ctx context.Context, userID string) error {
	return s.deleteUser(ctx, userID)
}

// AddToPlaylist bookmarks a course at the end of the user's playlist
func (s *UserService) AddToPlaylist(ctx context.Context, userID, courseID string) error {
	course, err := s.courseRepo.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("invalid course id: %w", domain.ErrNotFound)
		}
		return err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := user.AddToPlaylist(domain.PlaylistItem{CourseID: course.ID, Poster: course.Poster.URL}); err != nil {
		return fmt.Errorf("course already in playlist: %w", err)
	}
	return s.userRepo.Update(ctx, user)
}

// RemoveFromPlaylist drops a course from the user's playlist
func (s *UserService) RemoveFromPlaylist(ctx context.Context, userID, courseID string) error {
	if _, err := s.courseRepo.GetByID(ctx, courseID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("invalid course id: %w", domain.ErrNotFound)
		}
		return err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := user.RemoveFromPlaylist(courseID); err != nil {
		return fmt.Errorf("course not in playlist: %w", err)
	}
	return s.userRepo.Update(ctx, user)
}

// ListUsers returns every user (admin)
func (s *UserService) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return s.userRepo.GetAll(ctx)
}

// ToggleRole flips a user between user and admin (admin)
func (s *UserService) ToggleRole(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.ToggleRole()
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}
	log.Printf("[User] Role of %s set to %s", user.ID, user.Role)
	return user, nil
}

// DeleteUser removes a user account (admin)
func (s *UserService) DeleteUser(ctx context.Context, userID string) error {
	return s.deleteUser(ctx, userID)
}

func (s *UserService) deleteUser(ctx context.Context, userID string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.HasActiveSubscription() {
		return fmt.Errorf("%w: cancel the active subscription before deleting the account", domain.ErrConflict)
	}

	if err := s.userRepo.Delete(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	s.deleteMedia(ctx, user.Avatar.PublicID)
	return nil
}

// deleteMedia removes an object; failures leave an orphan and are only logged
func (s *UserService) deleteMedia(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.files.Delete(ctx, key); err != nil {
		log.Printf("[User] Failed to delete media %s: %v", key, err)
	}
}
