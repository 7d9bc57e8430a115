package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mansoorceksport/learnify/internal/config"
	"github.com/mansoorceksport/learnify/internal/domain"
)

// TokenService issues and validates the session JWT carried in the auth cookie
type TokenService struct {
	jwtConfig config.JWTConfig
}

// NewTokenService creates a new token service
func NewTokenService(jwtConfig config.JWTConfig) *TokenService {
	return &TokenService{jwtConfig: jwtConfig}
}

// Expiry returns the lifetime of issued tokens
func (s *TokenService) Expiry() time.Duration {
	return s.jwtConfig.Expiry
}

// CookieName returns the name of the auth cookie
func (s *TokenService) CookieName() string {
	return s.jwtConfig.CookieName
}

// Generate signs a session token for the user
func (s *TokenService) Generate(user *domain.User) (string, error) {
	now := time.Now()
	claims := domain.LearnifyClaims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwtConfig.Expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.jwtConfig.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Parse validates a session token and returns its claims
func (s *TokenService) Parse(tokenString string) (*domain.LearnifyClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &domain.LearnifyClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(s.jwtConfig.Secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: invalid or expired token", domain.ErrUnauthorized)
	}

	claims, ok := token.Claims.(*domain.LearnifyClaims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("%w: invalid token claims", domain.ErrUnauthorized)
	}
	return claims, nil
}

// newResetToken returns a random token for the reset link and the hash stored
// on the user
func newResetToken() (raw, hash string, err error) {
	tokenBytes := make([]byte, 20)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	raw = hex.EncodeToString(tokenBytes)
	return raw, hashToken(raw), nil
}

// hashToken creates a SHA256 hash of the token
func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}
