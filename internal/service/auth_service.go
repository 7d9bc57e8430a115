package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mansoorceksport/learnify/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

// ResetTokenTTL is how long a password reset link stays valid
const ResetTokenTTL = 15 * time.Minute

// Mailer sends plain text email
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// AuthService handles registration, login and password management
type AuthService struct {
	userRepo    domain.UserRepository
	files       domain.FileRepository
	tokens      *TokenService
	mailer      Mailer
	frontendURL string
	now         func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo domain.UserRepository,
	files domain.FileRepository,
	tokens *TokenService,
	mailer Mailer,
	frontendURL string,
) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		files:       files,
		tokens:      tokens,
		mailer:      mailer,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// RegisterRequest contains the registration form
type RegisterRequest struct {
	Name     string
	Email    string
	Password string
	Avatar   *Upload
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	User  *domain.User
	Token string
}

// Register creates a user account with an avatar and signs a session token
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if req.Name == "" || email == "" || req.Password == "" || req.Avatar == nil {
		return nil, fmt.Errorf("%w: please fill all the fields", domain.ErrValidation)
	}

	if _, err := s.userRepo.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: user already exists", domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	avatar, err := storeMedia(ctx, s.files, avatarFolder, req.Avatar)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Name:         req.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Avatar:       avatar,
		Playlist:     []domain.PlaylistItem{},
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if delErr := s.files.Delete(ctx, avatar.PublicID); delErr != nil {
			log.Printf("[Auth] Failed to remove orphaned avatar %s: %v", avatar.PublicID, delErr)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, err
	}

	log.Printf("[Auth] Registered user %s", user.ID)
	return &AuthResponse{User: user, Token: token}, nil
}

// Login checks the credentials and signs a session token
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: please fill all the fields", domain.ErrValidation)
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: incorrect email or password", domain.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, fmt.Errorf("%w: incorrect email or password", domain.ErrUnauthorized)
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return nil, err
	}
	return &AuthResponse{User: user, Token: token}, nil
}

// ChangePassword replaces the password after checking the old one
func (s *AuthService) ChangePassword(ctx context.Context, userID, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return fmt.Errorf("%w: please fill all the fields", domain.ErrValidation)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
		return fmt.Errorf("%w: incorrect old password", domain.ErrValidation)
	}

	hash, err := hashPassword(newPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	return s.userRepo.Update(ctx, user)
}

// ForgetPassword stores a hashed reset token on the user and mails the link
func (s *AuthService) ForgetPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%w: email is required", domain.ErrValidation)
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("user not found with this email: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	raw, hash, err := newResetToken()
	if err != nil {
		return err
	}
	expire := s.now().Add(ResetTokenTTL)
	user.ResetPasswordToken = hash
	user.ResetPasswordExpire = &expire
	if err := s.userRepo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	link := fmt.Sprintf("%s/resetpassword/%s", s.frontendURL, raw)
	body := fmt.Sprintf("Click on the link below to reset your password %s. If you have not requested this email, then ignore it.", link)
	if err := s.mailer.Send(ctx, user.Email, "Learnify Reset Password", body); err != nil {
		return fmt.Errorf("failed to send reset email: %w", err)
	}
	return nil
}

// ResetPassword sets a new password using an unexpired reset token
func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	if token == "" || password == "" {
		return fmt.Errorf("%w: please fill all the fields", domain.ErrValidation)
	}

	user, err := s.userRepo.GetByResetToken(ctx, hashToken(token), s.now())
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%w: invalid reset password token or token is expired", domain.ErrValidation)
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	user.PasswordHash = hash
	user.ResetPasswordToken = ""
	user.ResetPasswordExpire = nil
	return s.userRepo.Update(ctx, user)
}

func hashPassword(password string) (string, error) {
	if len(password) < 6 {
		return "", fmt.Errorf("%w: password must be at least 6 characters", domain.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
