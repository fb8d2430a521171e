package analysis

import (
	"errors"
	"fmt"
)

// Failure kinds of a summarization call. Both are retryable and neither
// touches scoring state.
var (
	ErrTimeout = errors.New("analysis timed out")
	ErrService = errors.New("analysis service error")
)

// GenericFailure is reported when the service gives no message.
const GenericFailure = "analysis failed"

// ServiceError carries the upstream status and message.
type ServiceError struct {
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("analysis service error (%d): %s", e.Status, e.Message)
	}
	return "analysis service error: " + e.Message
}

// Unwrap lets errors.Is match ErrService.
func (e *ServiceError) Unwrap() error { return ErrService }

// NewServiceError builds a ServiceError, falling back to GenericFailure.
func NewServiceError(status int, message string) *ServiceError {
	if message == "" {
		message = GenericFailure
	}
	return &ServiceError{Status: status, Message: message}
}
