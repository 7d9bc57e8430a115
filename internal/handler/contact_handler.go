package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/learnify/internal/domain"
	"github.com/mansoorceksport/learnify/internal/service"
)

// ContactHandler relays public forms to the team mailbox
type ContactHandler struct {
	contact *service.ContactService
}

// NewContactHandler creates a new ContactHandler
func NewContactHandler(contact *service.ContactService) *ContactHandler {
	return &ContactHandler{contact: contact}
}

// ContactRequest represents the contact and course request forms
type ContactRequest struct {
	Name    string `json:"name" form:"name"`
	Email   string `json:"email" form:"email"`
	Message string `json:"message" form:"message"`
	Course  string `json:"course" form:"course"`
}

// Contact handles POST /api/v1/contact
func (h *ContactHandler) Contact(c *fiber.Ctx) error {
	var req ContactRequest
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrValidation)
	}

	if err := h.contact.Contact(c.UserContext(), req.Name, req.Email, req.Message); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Your message has been sent",
	})
}

// RequestCourse handles POST /api/v1/courserequest
func (h *ContactHandler) RequestCourse(c *fiber.Ctx) error {
	var req ContactRequest
	if err := c.BodyParser(&req); err != nil {
		return fmt.Errorf("%w: invalid request body", domain.ErrValidation)
	}

	if err := h.contact.RequestCourse(c.UserContext(), req.Name, req.Email, req.Course); err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Your request has been sent",
	})
}
