package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrDuplicate           = errors.New("already exists")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrPermission          = errors.New("permission denied")
	ErrTournamentFull      = errors.New("tournament is full")
	ErrInvalidState        = errors.New("invalid state")
)

// ValidationError is returned for user input that fails a rule
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ExternalError wraps a failure of a collaborator such as the payment gateway
type ExternalError struct {
	Service string
	Err     error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalError) Unwrap() error { return e.Err }
