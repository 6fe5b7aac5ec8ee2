// Package apperror defines the failure taxonomy shared by every client component.
// Each failure carries a human-readable Message that is safe to show to the user,
// plus an optional underlying error for logs. Components return *AppError values
// for expected failures (no session, invalid input, server rejections) instead of
// panicking, and callers branch on the type with the Is* helpers.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType is an enumeration (using `iota`) for the categories of client errors.
type ErrorType int

const (
	// UnknownError is for anything the other types do not describe.
	UnknownError ErrorType = iota
	// AuthRequiredError means the action needs a session and there is none.
	// It is raised locally, before any request is sent.
	AuthRequiredError
	// ValidationError represents a failed client-side input check, or a 400/422
	// answer from the server.
	ValidationError
	// AuthError represents rejected login or registration credentials.
	AuthError
	// UnauthorizedError means the server rejected the bearer credential
	// (expired or invalid). Seeing it tears the session down.
	UnauthorizedError
	// NotFoundError represents a 404, e.g. a post deleted by another actor.
	NotFoundError
	// NetworkError represents a transport failure: no response was received.
	NetworkError
	// ServerError represents a 5xx answer.
	ServerError
	// ConfigError represents an error related to application configuration.
	ConfigError
	// StorageError represents a failure of the local durable storage.
	StorageError
)

// String returns a short name for the type, used in log lines.
func (t ErrorType) String() string {
	switch t {
	case AuthRequiredError:
		return "auth_required"
	case ValidationError:
		return "validation"
	case AuthError:
		return "auth"
	case UnauthorizedError:
		return "unauthorized"
	case NotFoundError:
		return "not_found"
	case NetworkError:
		return "network"
	case ServerError:
		return "server"
	case ConfigError:
		return "config"
	case StorageError:
		return "storage"
	default:
		return "unknown"
	}
}

// AppError is the custom error type for the application.
// Message is user-facing; Err is the underlying cause and is never shown.
type AppError struct {
	Type    ErrorType
	Message string
	// Status is the HTTP status that produced the error, 0 when none did.
	Status int
	Err    error // Underlying error
}

// Error returns the string representation of the error, satisfying the `error` interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error so that `errors.Is` and `errors.As` can
// inspect the chain.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError. This is the generic constructor used when
// the type is determined dynamically.
func NewAppError(errType ErrorType, message string, underlyingError error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     underlyingError,
	}
}

// NewAuthRequiredError creates a new AuthRequiredError
func NewAuthRequiredError(message string) *AppError {
	return NewAppError(AuthRequiredError, message, nil)
}

// NewValidationError creates a new ValidationError
func NewValidationError(message string, underlyingError error) *AppError {
	return NewAppError(ValidationError, message, underlyingError)
}

// NewAuthError creates a new AuthError (rejected credentials)
func NewAuthError(message string, underlyingError error) *AppError {
	return NewAppError(AuthError, message, underlyingError)
}

// NewUnauthorizedError creates a new UnauthorizedError (rejected bearer token)
func NewUnauthorizedError(message string, underlyingError error) *AppError {
	return NewAppError(UnauthorizedError, message, underlyingError)
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(message string, underlyingError error) *AppError {
	return NewAppError(NotFoundError, message, underlyingError)
}

// NewNetworkError creates a new NetworkError
func NewNetworkError(message string, underlyingError error) *AppError {
	return NewAppError(NetworkError, message, underlyingError)
}

// NewServerError creates a new ServerError
func NewServerError(message string, underlyingError error) *AppError {
	return NewAppError(ServerError, message, underlyingError)
}

// NewConfigError creates a new ConfigError
func NewConfigError(message string, underlyingError error) *AppError {
	return NewAppError(ConfigError, message, underlyingError)
}

// NewStorageError creates a new StorageError
func NewStorageError(message string, underlyingError error) *AppError {
	return NewAppError(StorageError, message, underlyingError)
}

// FromStatus maps a non-2xx HTTP answer to an AppError. `message` is the
// server-supplied text and may be empty, in which case a generic one is used.
// credentialsEndpoint marks /auth/login and /auth/register, where a 401 means
// "wrong email or password" rather than "your token expired".
func FromStatus(status int, message string, credentialsEndpoint bool) *AppError {
	var errType ErrorType
	switch {
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		errType = ValidationError
	case (status == http.StatusUnauthorized || status == http.StatusForbidden) && credentialsEndpoint:
		errType = AuthError
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		errType = UnauthorizedError
	case status == http.StatusNotFound:
		errType = NotFoundError
	case status >= 500:
		errType = ServerError
	default:
		errType = UnknownError
	}
	if message == "" {
		message = defaultMessage(errType)
	}
	return &AppError{
		Type:    errType,
		Message: message,
		Status:  status,
		Err:     fmt.Errorf("unexpected status %d", status),
	}
}

func defaultMessage(t ErrorType) string {
	switch t {
	case ValidationError:
		return "The request was rejected as invalid"
	case AuthError:
		return "Invalid credentials"
	case UnauthorizedError:
		return "Session expired. Please login again"
	case NotFoundError:
		return "Not found"
	case ServerError:
		return "The server encountered an error"
	default:
		return "Something went wrong"
	}
}

// UserMessage returns the text to show the user for err: the AppError message
// when there is one, otherwise fallback.
func UserMessage(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}

// FromError attempts to convert a generic error to an *AppError.
// It returns the *AppError and true if successful, otherwise nil and false.
func FromError(err error) (*AppError, bool) {
	if err == nil {
		return nil, false
	}
	var ae *AppError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// TypeOf returns the ErrorType of err, UnknownError for foreign errors.
func TypeOf(err error) ErrorType {
	if ae, ok := FromError(err); ok {
		return ae.Type
	}
	return UnknownError
}

// Helper functions to check error types

// IsAuthRequired checks if an error is an AuthRequired error
func IsAuthRequired(err error) bool {
	return is(err, AuthRequiredError)
}

// IsValidationError checks if an error is a Validation error
func IsValidationError(err error) bool {
	return is(err, ValidationError)
}

// IsAuthError checks if an error is an AuthError (rejected credentials)
func IsAuthError(err error) bool {
	return is(err, AuthError)
}

// IsUnauthorizedError checks if an error is an UnauthorizedError (rejected token)
func IsUnauthorizedError(err error) bool {
	return is(err, UnauthorizedError)
}

// IsNotFound checks if an error is a NotFound error
func IsNotFound(err error) bool {
	return is(err, NotFoundError)
}

// IsNetworkError checks if an error is a Network error
func IsNetworkError(err error) bool {
	return is(err, NetworkError)
}

// IsServerError checks if an error is a Server error
func IsServerError(err error) bool {
	return is(err, ServerError)
}

func is(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}
