package services

import "errors"

// Common service errors
var (
	ErrNotFound            = errors.New("record not found")
	ErrInvalidPassword     = errors.New("invalid password")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidState        = errors.New("invalid state transition")
	ErrDuplicate           = errors.New("duplicate record")
	ErrInvalidRecoveryCode = errors.New("recovery code invalid or expired")
	ErrTooManyAttempts     = errors.New("too many failed attempts, try again later")
)
