package domain

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrNotFound     = errors.New("record not found")
	ErrForbidden    = errors.New("access forbidden")
	ErrUnauthorized = errors.New("authentication required")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("resource already exists")
	ErrGateway      = errors.New("payment gateway error")
)

// Billing and stats errors
var (
	ErrAlreadySubscribed    = fmt.Errorf("user already has an active subscription: %w", ErrConflict)
	ErrSignatureMismatch    = errors.New("payment signature mismatch")
	ErrStatsNotBootstrapped = errors.New("no stats snapshot exists yet")
)
