package handler

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/learnify/internal/domain"
	"github.com/mansoorceksport/learnify/internal/middleware"
	"github.com/mansoorceksport/learnify/internal/service"
)

// UserHandler handles profile, playlist and user administration endpoints
type UserHandler struct {
	userService *service.UserService
	tokens      *service.TokenService
	maxUploadMB int64
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(userService *service.UserService, tokens *service.TokenService, maxUploadMB int64) *UserHandler {
	return &UserHandler{
		userService: userService,
		tokens:      tokens,
		maxUploadMB: maxUploadMB,
	}
}

// UpdateProfileRequest represents the profile update body
type UpdateProfileRequest struct {
	Name  string `json:"name" form:"name"`
	Email string `json:"email" form:"email"`
}

// GetMe handles GET /api/v1/me
func (h *UserHandler) GetMe(c *fiber.Ctx) error {
	user, err := h.userService.GetProfile(c.UserContext(), middleware.GetUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

// DeleteMe handles DELETE /api/v1/me
func (h *UserHandler) DeleteMe(c *fiber.Ctx) error {
	if err := h.userService.DeleteMe(c.UserContext(), middleware.GetUserID(c)); err != nil {
		return err
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.tokens.CookieName(),
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   true,
		SameSite: fiber.CookieSameSiteNoneMode,
	})
	return c.JSON(fiber.Map{
		"success": true,
		"message": "User deleted successfully",
	})
}

// UpdateProfile handles PUT /api/v1/updateprofile
func (h *UserHandler) UpdateProfile(c *fiber.Ctx) error {
	var req UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrValidation)
	}

	if _, err := h.userService.UpdateProfile(c.UserContext(), middleware.GetUserID(c), req.Name, req.Email); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Profile updated successfully",
	})
}

// UpdateProfilePicture handles PUT /api/v1/updateprofilepicture (multipart: file)
func (h *UserHandler) UpdateProfilePicture(c *fiber.Ctx) error {
	avatar, err := readUpload(c, "file", h.maxUploadMB, "image/")
	if err != nil {
		return err
	}

	if _, err := h.userService.UpdateAvatar(c.UserContext(), middleware.GetUserID(c), avatar); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Profile picture updated successfully",
	})
}

// AddToPlaylist handles POST /api/v1/addtoplaylist
func (h *UserHandler) AddToPlaylist(c *fiber.Ctx) error {
	var req struct {
		ID string `json:"id" form:"id"`
	}
	if err := c.BodyParser(&req); err != nil || req.ID == "" {
		return fmt.Errorf("%w: course id is required", domain.ErrValidation)
	}

	if err := h.userService.AddToPlaylist(c.UserContext(), middleware.GetUserID(c), req.ID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Added to playlist",
	})
}

// RemoveFromPlaylist handles DELETE /api/v1/removefromplaylist?id=
func (h *UserHandler) RemoveFromPlaylist(c *fiber.Ctx) error {
	courseID := c.Query("id")
	if courseID == "" {
		return fmt.Errorf("%w: course id is required", domain.ErrValidation)
	}

	if err := h.userService.RemoveFromPlaylist(c.UserContext(), middleware.GetUserID(c), courseID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Removed from playlist",
	})
}

// ListUsers handles GET /api/v1/admin/users
func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.userService.ListUsers(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"users":   users,
	})
}

// UpdateUserRole handles PUT /api/v1/admin/user/:id
func (h *UserHandler) UpdateUserRole(c *fiber.Ctx) error {
	user, err := h.userService.ToggleRole(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Role updated to " + user.Role,
	})
}

// DeleteUser handles DELETE /api/v1/admin/user/:id
func (h *UserHandler) DeleteUser(c *fiber.Ctx) error {
	if err := h.userService.DeleteUser(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "User deleted successfully",
	})
}
