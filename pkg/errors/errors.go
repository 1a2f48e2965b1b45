package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNetwork represents transport-level failures
	ErrorTypeNetwork ErrorType = "network"
	// ErrorTypeTimeout represents request timeouts
	ErrorTypeTimeout ErrorType = "timeout"
	// ErrorTypeServer represents 5xx responses
	ErrorTypeServer ErrorType = "server"
	// ErrorTypeClient represents 4xx responses other than rate limiting
	ErrorTypeClient ErrorType = "client"
	// ErrorTypeParsing represents malformed or unexpected response bodies
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeSoftThrottle represents an HTTP 200 whose body reports a business failure
	ErrorTypeSoftThrottle ErrorType = "soft_throttle"
	// ErrorTypeRateLimit represents rate limiting errors
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeBrowser represents browser automation errors
	ErrorTypeBrowser ErrorType = "browser"
	// ErrorTypeSink represents output errors
	ErrorTypeSink ErrorType = "sink"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// CrawlerError represents a vendor-specific crawl error
type CrawlerError struct {
	Type       ErrorType
	Provider   string
	Message    string
	StatusCode int
	Err        error
	Time       time.Time
}

// Error implements the error interface
func (e *CrawlerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Provider, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Provider, e.Message)
}

// Unwrap returns the underlying error
func (e *CrawlerError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the error is worth another attempt
func (e *CrawlerError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeNetwork, ErrorTypeTimeout, ErrorTypeServer, ErrorTypeSoftThrottle, ErrorTypeRateLimit:
		return true
	default:
		return false
	}
}

// New creates a new CrawlerError
func New(errType ErrorType, provider, message string, err error) *CrawlerError {
	return &CrawlerError{
		Type:     errType,
		Provider: provider,
		Message:  message,
		Err:      err,
		Time:     time.Now(),
	}
}

// NewNetwork creates a new network error
func NewNetwork(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeNetwork, provider, message, err)
}

// NewTimeout creates a new timeout error
func NewTimeout(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeTimeout, provider, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeParsing, provider, message, err)
}

// NewSoftThrottle creates an error for a 200 response carrying a failure flag
func NewSoftThrottle(provider, message string) *CrawlerError {
	return New(ErrorTypeSoftThrottle, provider, message, nil)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(provider string, duration time.Duration) *CrawlerError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, provider, message, nil)
}

// NewBrowser creates a new browser automation error
func NewBrowser(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeBrowser, provider, message, err)
}

// NewSink creates a new output error
func NewSink(provider, message string, err error) *CrawlerError {
	return New(ErrorTypeSink, provider, message, err)
}

// NewValidation creates a new validation error
func NewValidation(provider, message string) *CrawlerError {
	return New(ErrorTypeValidation, provider, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *CrawlerError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// NewHTTPStatus classifies a non-2xx status code.
func NewHTTPStatus(provider string, statusCode int, url string) *CrawlerError {
	var e *CrawlerError
	message := fmt.Sprintf("%s unexpected status code: %d", url, statusCode)
	switch {
	case statusCode == http.StatusTooManyRequests || statusCode == 430:
		e = New(ErrorTypeRateLimit, provider, message, nil)
	case statusCode >= 500:
		e = New(ErrorTypeServer, provider, message, nil)
	default:
		e = New(ErrorTypeClient, provider, message, nil)
	}
	e.StatusCode = statusCode
	return e
}

// IsRetryable reports whether err (or anything it wraps) is a retryable CrawlerError.
// Unclassified errors are treated as terminal.
func IsRetryable(err error) bool {
	var ce *CrawlerError
	if stderrors.As(err, &ce) {
		return ce.IsRetryable()
	}
	return false
}

// TypeOf returns the ErrorType of err, or "" when err is not a CrawlerError.
func TypeOf(err error) ErrorType {
	var ce *CrawlerError
	if stderrors.As(err, &ce) {
		return ce.Type
	}
	return ""
}

// Is reports whether err carries the given ErrorType.
func Is(err error, errType ErrorType) bool {
	return TypeOf(err) == errType
}
