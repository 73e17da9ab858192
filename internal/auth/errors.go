package auth

import "errors"

var (
	// ErrInvalidEmail indicates the address failed validation.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrInvalidCode is returned when verification fails.
	ErrInvalidCode = errors.New("invalid verification code")
	// ErrCodeExpired signals the code outlived its validity window.
	ErrCodeExpired = errors.New("verification code expired")
	// ErrUnauthorized represents missing or invalid authentication tokens.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrMailDelivery signals the code email could not be sent.
	ErrMailDelivery = errors.New("could not deliver verification code")
)
