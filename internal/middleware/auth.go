package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/learnify/internal/domain"
	"github.com/mansoorceksport/learnify/internal/telemetry"
)

// Context keys for storing user info
const (
	userIDKey = "userID"
	roleKey   = "role"
	userKey   = "user"
)

// TokenParser validates session tokens
type TokenParser interface {
	Parse(token string) (*domain.LearnifyClaims, error)
	CookieName() string
}

// Authenticate validates the session token from the auth cookie, falling back
// to an Authorization: Bearer header, and loads the current user
func Authenticate(tokens TokenParser, users domain.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := c.Cookies(tokens.CookieName())
		if tokenString == "" {
			authHeader := c.Get(fiber.HeaderAuthorization)
			if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
				tokenString = authHeader[7:]
			}
		}
		if tokenString == "" {
			return fmt.Errorf("%w: please login to access this resource", domain.ErrUnauthorized)
		}

		claims, err := tokens.Parse(tokenString)
		if err != nil {
			return err
		}

		// Role changes and deletions take effect without a new login
		user, err := users.GetByID(c.UserContext(), claims.UserID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("%w: account no longer exists", domain.ErrUnauthorized)
			}
			return err
		}

		c.Locals(userIDKey, user.ID)
		c.Locals(roleKey, user.Role)
		c.Locals(userKey, user)
		telemetry.SetSpanAttribute(c, "user.id", user.ID)
		telemetry.SetSpanAttribute(c, "user.role", user.Role)

		return c.Next()
	}
}

// AuthorizeRole checks that the user has one of the allowed roles
func AuthorizeRole(allowedRoles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(roleKey).(string)
		if role == "" {
			return fmt.Errorf("%w: no role in session", domain.ErrUnauthorized)
		}
		for _, allowed := range allowedRoles {
			if role == allowed {
				return c.Next()
			}
		}
		return fmt.Errorf("%w: %s is not allowed to access this resource", domain.ErrForbidden, role)
	}
}

// AuthorizeSubscribers lets admins and users with an active subscription through
func AuthorizeSubscribers() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := GetUser(c)
		if user == nil {
			return fmt.Errorf("%w: please login to access this resource", domain.ErrUnauthorized)
		}
		if !user.IsAdmin() && !user.HasActiveSubscription() {
			return fmt.Errorf("%w: only subscribers can access this resource", domain.ErrForbidden)
		}
		return c.Next()
	}
}

// GetUserID extracts the authenticated user id from the Fiber context
func GetUserID(c *fiber.Ctx) string {
	userID, ok := c.Locals(userIDKey).(string)
	if !ok {
		return ""
	}
	return userID
}

// GetUser returns the user loaded by Authenticate, or nil
func GetUser(c *fiber.Ctx) *domain.User {
	user, _ := c.Locals(userKey).(*domain.User)
	return user
}
