package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrTokenAlreadyRevoked = errors.New("token already revoked")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	ErrProjectNotFound = errors.New("project not found")
	ErrLabelNotFound   = errors.New("label not found")
	ErrImageNotFound   = errors.New("image not found")

	ErrJobNotFound       = errors.New("scheduler job not found")
	ErrJobAlreadyExists  = errors.New("scheduler job already exists")
	ErrJobAlreadyRunning = errors.New("scheduler job is already running")

	ErrAssistNotConfigured = errors.New("ai assist is not configured")
)
