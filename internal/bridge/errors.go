package bridge

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error (connection refused, timeout, etc.)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeAuth indicates an authentication failure (invalid or missing API key)
	ErrTypeAuth
	// ErrTypeAPI indicates an upstream API error (non-2xx status code)
	ErrTypeAPI
	// ErrTypeParse indicates a parsing error (malformed JSON, invalid response)
	ErrTypeParse
	// ErrTypeInput indicates bad user input (invalid command syntax or filter value)
	ErrTypeInput
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the bridge refused the connection
	ErrTypeConnectionRefused
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeAuth:
		return "Authentication Error"
	case ErrTypeAPI:
		return "API Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeInput:
		return "Input Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// BridgeError represents an error that occurred talking to the bridge
type BridgeError struct {
	Type       ErrorType // Category of error
	Message    string    // Human-readable error message
	StatusCode int       // HTTP status code (if applicable)
	Body       string    // Response body (for API errors)
	Err        error     // Underlying error (if any)
	Retryable  bool      // Whether the error is retryable
}

// Error implements the error interface
func (e *BridgeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *BridgeError) Unwrap() error {
	return e.Err
}

// classifyNetworkError analyzes an error and returns a more specific error type
func classifyNetworkError(err error) *BridgeError {
	if err == nil {
		return nil
	}

	if os.IsTimeout(err) {
		return &BridgeError{
			Type:      ErrTypeTimeout,
			Message:   "request timed out",
			Err:       err,
			Retryable: true,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return &BridgeError{
				Type:      ErrTypeConnectionRefused,
				Message:   "bridge refused connection",
				Err:       err,
				Retryable: true,
			}
		}
	}

	// Unwrap URL errors and classify the cause
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		classified := classifyNetworkError(urlErr.Err)
		if classified != nil {
			return classified
		}
	}

	return &BridgeError{
		Type:      ErrTypeNetwork,
		Message:   "network error occurred",
		Err:       err,
		Retryable: true,
	}
}

// NewNetworkError creates a network-level error with automatic classification
func NewNetworkError(message string, err error) *BridgeError {
	classified := classifyNetworkError(err)
	if classified != nil {
		classified.Message = message
		return classified
	}
	return &BridgeError{
		Type:      ErrTypeNetwork,
		Message:   message,
		Err:       err,
		Retryable: true,
	}
}

// NewAuthError creates an authentication error
func NewAuthError(message string) *BridgeError {
	return &BridgeError{
		Type:       ErrTypeAuth,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
		Retryable:  false,
	}
}

// NewAPIError creates an upstream API error carrying the response body
func NewAPIError(statusCode int, body string) *BridgeError {
	return &BridgeError{
		Type:       ErrTypeAPI,
		Message:    fmt.Sprintf("bridge returned HTTP %d", statusCode),
		StatusCode: statusCode,
		Body:       body,
		Retryable:  statusCode >= 500, // Server errors are retryable
	}
}

// NewParseError creates a parsing error
func NewParseError(message string, err error) *BridgeError {
	return &BridgeError{
		Type:      ErrTypeParse,
		Message:   message,
		Err:       err,
		Retryable: false,
	}
}

// NewInputError creates a user input error
func NewInputError(message string) *BridgeError {
	return &BridgeError{
		Type:      ErrTypeInput,
		Message:   message,
		Retryable: false,
	}
}

// IsNetworkError checks if an error is a network error (including timeout and connection refused)
func IsNetworkError(err error) bool {
	var bridgeErr *BridgeError
	if errors.As(err, &bridgeErr) {
		return bridgeErr.Type == ErrTypeNetwork ||
			bridgeErr.Type == ErrTypeTimeout ||
			bridgeErr.Type == ErrTypeConnectionRefused
	}
	return false
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	var bridgeErr *BridgeError
	if errors.As(err, &bridgeErr) {
		return bridgeErr.Type == ErrTypeAuth
	}
	return false
}

// IsAPIError checks if an error is an upstream API error
func IsAPIError(err error) bool {
	var bridgeErr *BridgeError
	if errors.As(err, &bridgeErr) {
		return bridgeErr.Type == ErrTypeAPI
	}
	return false
}

// IsInputError checks if an error is a user input error
func IsInputError(err error) bool {
	var bridgeErr *BridgeError
	if errors.As(err, &bridgeErr) {
		return bridgeErr.Type == ErrTypeInput
	}
	return false
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var bridgeErr *BridgeError
	if errors.As(err, &bridgeErr) {
		return bridgeErr.Retryable
	}
	// Unknown errors are not retryable by default
	return false
}

// ShortMessage returns a concise, user-friendly error message suitable for
// a single output line or the toolbar.
func ShortMessage(err error) string {
	var bridgeErr *BridgeError
	if !errors.As(err, &bridgeErr) {
		return err.Error()
	}

	switch bridgeErr.Type {
	case ErrTypeTimeout:
		return "Bridge not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Connection refused - is the bridge running?"
	case ErrTypeAuth:
		return "Authentication failed - check API key"
	case ErrTypeNetwork:
		return "Network error - check connection"
	case ErrTypeAPI:
		if bridgeErr.Body != "" {
			return fmt.Sprintf("Bridge error (HTTP %d): %s", bridgeErr.StatusCode, bridgeErr.Body)
		}
		return fmt.Sprintf("Bridge error (HTTP %d)", bridgeErr.StatusCode)
	case ErrTypeParse:
		return "Failed to parse bridge response"
	default:
		return bridgeErr.Message
	}
}
