package errx

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/redis/go-redis/v9"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
	// GenerationFailedMessage is shown when listing copy could not be produced.
	GenerationFailedMessage = "SEO generation failed"
	// EmptyDescriptionMessage is shown when the optimizer input is blank.
	EmptyDescriptionMessage = "product description is required"
	// ActionInFlightMessage is shown when the same action is already running.
	ActionInFlightMessage = "request already in progress"
)

var (
	// ErrGenerationFailed signals that the model could not produce a usable listing.
	ErrGenerationFailed = New(nil, http.StatusBadGateway, GenerationFailedMessage)
	// ErrEmptyDescription signals a blank optimizer input. No remote call is made.
	ErrEmptyDescription = New(nil, http.StatusBadRequest, EmptyDescriptionMessage)
	// ErrActionInFlight signals a re-entrant trigger of an outstanding action.
	ErrActionInFlight = New(nil, http.StatusConflict, ActionInFlightMessage)
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches AppErrors by status and message so a wrapped sentinel still
// compares equal to the bare one.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Status == t.Status && e.Message == t.Message
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// Wrap attaches a cause to a sentinel AppError, keeping its status and message.
func Wrap(sentinel *AppError, cause error) *AppError {
	return New(cause, sentinel.Status, sentinel.Message)
}

// WrapRedis maps Redis errors to AppError with appropriate status codes.
func WrapRedis(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return New(err, http.StatusNotFound, RedisNotFoundMessage)
	}
	return New(err, http.StatusBadGateway, RedisErrorMessage)
}

// StatusOf returns the HTTP status and safe message carried by err.
// Errors that are not AppErrors are reported as internal errors.
func StatusOf(err error) (int, string) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status, appErr.Message
	}
	return http.StatusInternalServerError, SystemErrorMessage
}
