package handler

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/learnify/internal/domain"
	"github.com/mansoorceksport/learnify/internal/middleware"
	"github.com/mansoorceksport/learnify/internal/service"
)

// AuthHandler handles account and session endpoints
type AuthHandler struct {
	authService *service.AuthService
	tokens      *service.TokenService
	maxUploadMB int64
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(authService *service.AuthService, tokens *service.TokenService, maxUploadMB int64) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		tokens:      tokens,
		maxUploadMB: maxUploadMB,
	}
}

// LoginRequest represents the login body
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// ChangePasswordRequest represents the change password body
type ChangePasswordRequest struct {
	OldPassword string `json:"oldPassword" form:"oldPassword"`
	NewPassword string `json:"newPassword" form:"newPassword"`
}

// Register handles POST /api/v1/register (multipart: name, email, password, file)
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	avatar, err := readUpload(c, "file", h.maxUploadMB, "image/")
	if err != nil {
		return err
	}

	res, err := h.authService.Register(c.UserContext(), service.RegisterRequest{
		Name:     c.FormValue("name"),
		Email:    c.FormValue("email"),
		Password: c.FormValue("password"),
		Avatar:   avatar,
	})
	if err != nil {
		return err
	}

	h.setSessionCookie(c, res.Token)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "User registered successfully",
		"user":    res.User,
	})
}

// Login handles POST /api/v1/login
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrValidation)
	}

	res, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	h.setSessionCookie(c, res.Token)
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Welcome back, " + res.User.Name,
		"user":    res.User,
	})
}

// Logout handles GET /api/v1/logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.clearSessionCookie(c)
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Logged out successfully",
	})
}

// ChangePassword handles PUT /api/v1/changepassword
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrValidation)
	}

	if err := h.authService.ChangePassword(c.UserContext(), middleware.GetUserID(c), req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Password changed successfully",
	})
}

// ForgetPassword handles POST /api/v1/forgetpassword
func (h *AuthHandler) ForgetPassword(c *fiber.Ctx) error {
	var req struct {
		Email string `json:"email" form:"email"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrValidation)
	}

	if err := h.authService.ForgetPassword(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Reset password token sent to " + req.Email,
	})
}

// ResetPassword handles PUT /api/v1/resetpassword/:token
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var req struct {
		Password string `json:"password" form:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrValidation)
	}

	if err := h.authService.ResetPassword(c.UserContext(), c.Params("token"), req.Password); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Password reset successfully",
	})
}

func (h *AuthHandler) setSessionCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     h.tokens.CookieName(),
		Value:    token,
		Expires:  time.Now().Add(h.tokens.Expiry()),
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteNoneMode,
	})
}

func (h *AuthHandler) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     h.tokens.CookieName(),
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteNoneMode,
	})
}
