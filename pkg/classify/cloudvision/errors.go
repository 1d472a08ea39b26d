package cloudvision

import "fmt"

// APIError is a per-image error reported inside a successful batch response.
type APIError struct {
	Code    int64
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("cloudvision: API error %d: %s", e.Code, e.Message)
}

// IsRetryable reports whether the status code is transient
// (UNAVAILABLE, RESOURCE_EXHAUSTED, DEADLINE_EXCEEDED).
func (e *APIError) IsRetryable() bool {
	switch e.Code {
	case 4, 8, 14:
		return true
	}
	return false
}
