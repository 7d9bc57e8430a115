package service

import (
	"context"
	"testing"

	"github.com/mansoorceksport/learnify/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactService(t *testing.T) {
	ctx := context.Background()
	mailer := &recordingMailer{}
	svc := NewContactService(mailer, "team@learnify.test")

	assert.ErrorIs(t, svc.Contact(ctx, "Ada", "", "hi"), domain.ErrValidation)
	assert.ErrorIs(t, svc.RequestCourse(ctx, "Ada", "ada@x.io", ""), domain.ErrValidation)

	require.NoError(t, svc.Contact(ctx, "Ada", "ada@x.io", "Great platform"))
	msg := mailer.last()
	assert.Equal(t, "team@learnify.test", msg.to)
	assert.Equal(t, "Contact From Learnify", msg.subject)
	assert.Contains(t, msg.body, "Great platform")

	require.NoError(t, svc.RequestCourse(ctx, "Ada", "ada@x.io", "Distributed systems"))
	msg = mailer.last()
	assert.Equal(t, "Requesting For a Course on Learnify", msg.subject)
	assert.Contains(t, msg.body, "Distributed systems")
}
