package services

import "errors"

var (
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidStatus          = errors.New("invalid status")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrUserNotFound           = errors.New("user not found")
	ErrCarNotFound            = errors.New("car not found")
)
