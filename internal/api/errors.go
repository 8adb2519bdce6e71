package api

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrSessionExpired is returned for every HTTP 401. By the time it is
	// returned the token has been removed and the expiry handlers have run.
	ErrSessionExpired = errors.New("session expired")

	// ErrRequestFailed matches any *RequestError.
	ErrRequestFailed = errors.New("request failed")

	// ErrMalformedResponse matches any *MalformedResponseError.
	ErrMalformedResponse = errors.New("malformed response")
)

// RequestError is a non-2xx response (other than 401) or a transport
// failure. StatusCode is 0 for transport failures.
type RequestError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("request failed: %v", e.Err)
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

func (e *RequestError) Unwrap() error { return e.Err }

func (e *RequestError) Is(target error) bool { return target == ErrRequestFailed }

// NotFound reports whether the server answered 404.
func (e *RequestError) NotFound() bool { return e.StatusCode == http.StatusNotFound }

// MalformedResponseError is a 2xx response whose body did not match the
// expected schema.
type MalformedResponseError struct {
	Path string
	Err  error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response from %s: %v", e.Path, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

func (e *MalformedResponseError) Is(target error) bool { return target == ErrMalformedResponse }

// IsNotFound reports whether err is a 404 RequestError.
func IsNotFound(err error) bool {
	var reqErr *RequestError
	return errors.As(err, &reqErr) && reqErr.NotFound()
}

// Validatable is implemented by every decoded resource.
type Validatable interface {
	Validate() error
}

// ValidateAll checks each decoded item, reporting the first violation as a
// MalformedResponseError for path.
func ValidateAll[T Validatable](path string, items []T) error {
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return &MalformedResponseError{Path: path, Err: err}
		}
	}
	return nil
}

// ValidateOne checks a single decoded item.
func ValidateOne(path string, item Validatable) error {
	if err := item.Validate(); err != nil {
		return &MalformedResponseError{Path: path, Err: err}
	}
	return nil
}
