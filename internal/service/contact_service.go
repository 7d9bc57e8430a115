package service

import (
	"context"
	"fmt"

	"github.com/mansoorceksport/learnify/internal/domain"
)

// ContactService relays contact and course request forms to the team mailbox
type ContactService struct {
	mailer  Mailer
	mailbox string
}

// NewContactService creates a new ContactService instance
func NewContactService(mailer Mailer, mailbox string) *ContactService {
	return &ContactService{mailer: mailer, mailbox: mailbox}
}

// Contact forwards a contact form message
func (s *ContactService) Contact(ctx context.Context, name, email, message string) error {
	if name == "" || email == "" || message == "" {
		return fmt.Errorf("%w: please fill all fields", domain.ErrValidation)
	}
	body := fmt.Sprintf("I am %s and my email is %s.\n%s", name, email, message)
	if err := s.mailer.Send(ctx, s.mailbox, "Contact From Learnify", body); err != nil {
		return fmt.Errorf("failed to send contact email: %w", err)
	}
	return nil
}

// RequestCourse forwards a course request
func (s *ContactService) RequestCourse(ctx context.Context, name, email, course string) error {
	if name == "" || email == "" || course == "" {
		return fmt.Errorf("%w: please fill all fields", domain.ErrValidation)
	}
	body := fmt.Sprintf("I am %s and my email is %s.\nRequested course:\n%s", name, email, course)
	if err := s.mailer.Send(ctx, s.mailbox, "Requesting For a Course on Learnify", body); err != nil {
		return fmt.Errorf("failed to send course request: %w", err)
	}
	return nil
}
