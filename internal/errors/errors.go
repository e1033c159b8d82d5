// Package errors defines the error taxonomy shared by the auto-responder,
// its rule store and the owner command layer.
package errors

import (
	"errors"
	"fmt"
)

// Standard error codes for the application.
const (
	CodeUnknown      = "UNKNOWN"
	CodeValidation   = "VALIDATION"
	CodeUnauthorized = "UNAUTHORIZED"
	CodeCollaborator = "COLLABORATOR"
	CodeNotFound     = "NOT_FOUND"
	CodeConfig       = "CONFIG"
)

// ApplicationError is the interface that all our custom errors implement.
type ApplicationError interface {
	error
	Code() string
	Unwrap() error
}

// Error represents a basic application error.
type Error struct {
	code    string
	message string
	err     error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.message, e.err)
	}

	return e.message
}

func (e *Error) Code() string {
	return e.code
}

// Message returns the human readable part without the wrapped cause.
func (e *Error) Message() string {
	return e.message
}

func (e *Error) Unwrap() error {
	return e.err
}

// Code returns the code of the first ApplicationError in err's chain,
// or CodeUnknown if it doesn't carry one.
func Code(err error) string {
	var appErr ApplicationError
	if errors.As(err, &appErr) {
		return appErr.Code()
	}

	return CodeUnknown
}

// ValidationError reports malformed owner input. State is left unchanged.
type ValidationError struct {
	base Error
}

func (e *ValidationError) Error() string {
	return e.base.Error()
}

func (e *ValidationError) Code() string {
	return e.base.Code()
}

func (e *ValidationError) Unwrap() error {
	return e.base.Unwrap()
}

// Reason is the message shown to the owner.
func (e *ValidationError) Reason() string {
	return e.base.Message()
}

func NewValidationError(message string, cause error) error {
	return &ValidationError{
		base: Error{
			code:    CodeValidation,
			message: message,
			err:     cause,
		},
	}
}

// AuthorizationError marks a command issued by someone other than the owner.
// Callers drop it without replying.
type AuthorizationError struct {
	base Error
}

func (e *AuthorizationError) Error() string {
	return e.base.Error()
}

func (e *AuthorizationError) Code() string {
	return e.base.Code()
}

func (e *AuthorizationError) Unwrap() error {
	return e.base.Unwrap()
}

func NewAuthorizationError(message string) error {
	return &AuthorizationError{
		base: Error{
			code:    CodeUnauthorized,
			message: message,
		},
	}
}

// CollaboratorError wraps a failure of the messaging gateway or rule store.
type CollaboratorError struct {
	base Error
}

func (e *CollaboratorError) Error() string {
	return e.base.Error()
}

func (e *CollaboratorError) Code() string {
	return e.base.Code()
}

func (e *CollaboratorError) Unwrap() error {
	return e.base.Unwrap()
}

func NewCollaboratorError(message string, cause error) error {
	return &CollaboratorError{
		base: Error{
			code:    CodeCollaborator,
			message: message,
			err:     cause,
		},
	}
}

// NotFoundError is informational: there was nothing to remove or clear.
type NotFoundError struct {
	base Error
}

func (e *NotFoundError) Error() string {
	return e.base.Error()
}

func (e *NotFoundError) Code() string {
	return e.base.Code()
}

func (e *NotFoundError) Unwrap() error {
	return e.base.Unwrap()
}

// Message returns the text without a wrapped cause.
func (e *NotFoundError) Message() string {
	return e.base.Message()
}

func NewNotFoundError(message string) error {
	return &NotFoundError{
		base: Error{
			code:    CodeNotFound,
			message: message,
		},
	}
}

type ConfigError struct {
	base Error
}

func (e *ConfigError) Error() string {
	return e.base.Error()
}

func (e *ConfigError) Code() string {
	return e.base.Code()
}

func (e *ConfigError) Unwrap() error {
	return e.base.Unwrap()
}

func NewConfigError(message string, cause error) error {
	return &ConfigError{
		base: Error{
			code:    CodeConfig,
			message: message,
			err:     cause,
		},
	}
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsAuthorization(err error) bool {
	var target *AuthorizationError
	return errors.As(err, &target)
}

func IsCollaborator(err error) bool {
	var target *CollaboratorError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}
