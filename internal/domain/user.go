package domain

import (
	"context"
	"time"
)

// Role constants
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// SubscriptionStatus is the lifecycle state of a user's gateway subscription.
// The zero value means the user never subscribed or has cancelled.
type SubscriptionStatus string

const (
	SubscriptionNone    SubscriptionStatus = ""
	SubscriptionCreated SubscriptionStatus = "created"
	SubscriptionActive  SubscriptionStatus = "active"
)

// Subscription is the gateway subscription embedded in a user document
type Subscription struct {
	ID     string             `bson:"id,omitempty" json:"id,omitempty"`
	Status SubscriptionStatus `bson:"status,omitempty" json:"status,omitempty"`
}

// Media references an object held by the media store
type Media struct {
	PublicID string `bson:"public_id" json:"public_id"`
	URL      string `bson:"url" json:"url"`
}

// PlaylistItem is a course bookmarked by a user
type PlaylistItem struct {
	CourseID string `bson:"course" json:"course"`
	Poster   string `bson:"poster" json:"poster"`
}

// User represents a learner or an administrator
type User struct {
	ID                  string         `bson:"_id,omitempty" json:"id"`
	Name                string         `bson:"name" json:"name"`
	Email               string         `bson:"email" json:"email"`
	PasswordHash        string         `bson:"password" json:"-"`
	Role                string         `bson:"role" json:"role"`
	Subscription        Subscription   `bson:"subscription" json:"subscription"`
	Avatar              Media          `bson:"avatar" json:"avatar"`
	Playlist            []PlaylistItem `bson:"playlist" json:"playlist"`
	ResetPasswordToken  string         `bson:"reset_password_token,omitempty" json:"-"`
	ResetPasswordExpire *time.Time     `bson:"reset_password_expire,omitempty" json:"-"`
	CreatedAt           time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt           time.Time      `bson:"updated_at" json:"updated_at"`
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// HasActiveSubscription reports whether the user has a paid subscription
func (u *User) HasActiveSubscription() bool {
	return u.Subscription.Status == SubscriptionActive
}

// AddToPlaylist appends a course to the end of the playlist.
// Returns ErrConflict if the course is already present.
func (u *User) AddToPlaylist(item PlaylistItem) error {
	for _, existing := range u.Playlist {
		if existing.CourseID == item.CourseID {
			return ErrConflict
		}
	}
	u.Playlist = append(u.Playlist, item)
	return nil
}

// RemoveFromPlaylist drops a course and keeps the order of the remaining items.
// Returns ErrNotFound if the course is not in the playlist.
func (u *User) RemoveFromPlaylist(courseID string) error {
	kept := make([]PlaylistItem, 0, len(u.Playlist))
	for _, item := range u.Playlist {
		if item.CourseID != courseID {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(u.Playlist) {
		return ErrNotFound
	}
	u.Playlist = kept
	return nil
}

// ToggleRole flips the user between the user and admin roles
func (u *User) ToggleRole() {
	if u.Role == RoleAdmin {
		u.Role = RoleUser
		return
	}
	u.Role = RoleAdmin
}

// UserRepository defines operations for managing users
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*User, error)
	GetAll(ctx context.Context) ([]*User, error)

	// Update writes profile fields, role, avatar, playlist and password state.
	// It never touches the subscription sub-document.
	Update(ctx context.Context, user *User) error
	Delete(ctx context.Context, id string) error

	// Subscription state is only written through these two calls
	SetSubscription(ctx context.Context, userID string, sub Subscription) error
	ClearSubscription(ctx context.Context, userID string) error

	CountAll(ctx context.Context) (int64, error)
	CountActiveSubscriptions(ctx context.Context) (int64, error)
}
