package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorType represents the type of error
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeValidation
	ErrorTypeInput
	ErrorTypeNetwork
	ErrorTypeFileSystem
	ErrorTypeParsing
	ErrorTypeConfiguration
	ErrorTypeTimeout
	ErrorTypeNotFound
)

// String returns the string representation of the error type
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeValidation:
		return "VALIDATION"
	case ErrorTypeInput:
		return "INPUT"
	case ErrorTypeNetwork:
		return "NETWORK"
	case ErrorTypeFileSystem:
		return "FILESYSTEM"
	case ErrorTypeParsing:
		return "PARSING"
	case ErrorTypeConfiguration:
		return "CONFIGURATION"
	case ErrorTypeTimeout:
		return "TIMEOUT"
	case ErrorTypeNotFound:
		return "NOT_FOUND"
	default:
		return "UNKNOWN"
	}
}

// CrawlerError is an error with a code, context and hints for the user.
type CrawlerError struct {
	Type        ErrorType         `json:"type"`
	Code        string            `json:"code"`
	Message     string            `json:"message"`
	Cause       error             `json:"-"`
	Context     map[string]string `json:"context,omitempty"`
	Suggestions []string          `json:"suggestions,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
	Retryable   bool              `json:"retryable"`
	ExitCode    int               `json:"exit_code"`
}

// Error implements the error interface
func (e *CrawlerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *CrawlerError) Unwrap() error {
	return e.Cause
}

// Is matches another CrawlerError by type and code.
func (e *CrawlerError) Is(target error) bool {
	if t, ok := target.(*CrawlerError); ok {
		return e.Type == t.Type && e.Code == t.Code
	}
	return false
}

// WithContext adds context to the error
func (e *CrawlerError) WithContext(key, value string) *CrawlerError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion to the error
func (e *CrawlerError) WithSuggestion(suggestion string) *CrawlerError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

func (e *CrawlerError) WithSuggestions(suggestions []string) *CrawlerError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

func (e *CrawlerError) SetRetryable(retryable bool) *CrawlerError {
	e.Retryable = retryable
	return e
}

// FormatDetailed returns the message followed by context, cause and
// suggestions, one per line.
func (e *CrawlerError) FormatDetailed() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s error [%s]: %s\n", e.Type, e.Code, e.Message)

	if len(e.Context) > 0 {
		b.WriteString("\nContext:\n")
		for _, key := range sortedKeys(e.Context) {
			fmt.Fprintf(&b, "   %s: %s\n", key, e.Context[key])
		}
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, "\nCause: %v\n", e.Cause)
	}
	if len(e.Suggestions) > 0 {
		b.WriteString("\nSuggestions:\n")
		for _, s := range e.Suggestions {
			fmt.Fprintf(&b, "   - %s\n", s)
		}
	}
	if e.Retryable {
		b.WriteString("\nThis operation can be retried\n")
	}
	return b.String()
}

// NewError creates a new CrawlerError
func NewError(errorType ErrorType, code, message string) *CrawlerError {
	return &CrawlerError{
		Type:      errorType,
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Context:   make(map[string]string),
		ExitCode:  1,
	}
}

// WrapError wraps an existing error
func WrapError(err error, errorType ErrorType, code, message string) *CrawlerError {
	e := NewError(errorType, code, message)
	e.Cause = err
	return e
}

// As returns err as a CrawlerError, wrapping it as UNKNOWN if needed.
func As(err error) *CrawlerError {
	var ce *CrawlerError
	if errors.As(err, &ce) {
		return ce
	}
	return WrapError(err, ErrorTypeUnknown, "UNKNOWN", "command failed")
}

// NewInputError is used when the report input is missing or empty.
func NewInputError(code, message string) *CrawlerError {
	return NewError(ErrorTypeInput, code, message).
		WithSuggestions([]string{
			"Pass the report file produced by report_sources.sh as the only argument",
			"Or pipe the report into standard input",
		})
}

// NewValidationError creates a validation error
func NewValidationError(code, message string) *CrawlerError {
	return NewError(ErrorTypeValidation, code, message).
		WithSuggestion("Check the input parameters and try again")
}

// NewNetworkError creates a network error
func NewNetworkError(code, message string) *CrawlerError {
	return NewError(ErrorTypeNetwork, code, message).
		SetRetryable(true).
		WithSuggestions([]string{
			"Check your internet connection",
			"Run 'apkcrawler doctor' to see which sites answer",
			"Try again in a few moments",
		})
}

// NewFileSystemError creates a filesystem error
func NewFileSystemError(code, message string) *CrawlerError {
	return NewError(ErrorTypeFileSystem, code, message).
		WithSuggestions([]string{
			"Check file permissions",
			"Ensure the path exists",
			"Verify disk space availability",
		})
}

// NewParsingError creates a parsing error
func NewParsingError(code, message string) *CrawlerError {
	return NewError(ErrorTypeParsing, code, message).
		WithSuggestion("Check the line format: package|arch|sdk|dpi|version|code")
}

// NewConfigurationError creates a configuration error
func NewConfigurationError(code, message string) *CrawlerError {
	return NewError(ErrorTypeConfiguration, code, message).
		WithSuggestions([]string{
			"Check the configuration file syntax",
			"Run 'apkcrawler init' to write a fresh template",
		})
}

// NewNotFoundError creates a not found error
func NewNotFoundError(code, message string) *CrawlerError {
	return NewError(ErrorTypeNotFound, code, message).
		WithSuggestion("Check the name or path")
}

// ErrorHandler logs errors and counts them by type and code.
type ErrorHandler struct {
	logger Logger
	stats  *ErrorStats
}

// Logger interface for error logging
type Logger interface {
	Error(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// ErrorStats tracks error statistics
type ErrorStats struct {
	TotalErrors   int               `json:"total_errors"`
	ErrorsByType  map[ErrorType]int `json:"errors_by_type"`
	ErrorsByCode  map[string]int    `json:"errors_by_code"`
	LastError     *CrawlerError     `json:"last_error,omitempty"`
	LastErrorTime time.Time         `json:"last_error_time"`
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger,
		stats: &ErrorStats{
			ErrorsByType: make(map[ErrorType]int),
			ErrorsByCode: make(map[string]int),
		},
	}
}

// Handle logs err and updates the statistics. It returns the error as a
// CrawlerError with recovery hints added.
func (eh *ErrorHandler) Handle(err error) *CrawlerError {
	if err == nil {
		return nil
	}
	ce := As(err)
	eh.addRecoverySuggestions(ce)

	eh.stats.TotalErrors++
	eh.stats.ErrorsByType[ce.Type]++
	eh.stats.ErrorsByCode[ce.Code]++
	eh.stats.LastError = ce
	eh.stats.LastErrorTime = time.Now()

	if eh.logger != nil {
		eh.logger.Error("%s [%s] %s", ce.Type, ce.Code, ce.Error())
		for _, key := range sortedKeys(ce.Context) {
			eh.logger.Debug("error context: %s = %s", key, ce.Context[key])
		}
	}
	return ce
}

func (eh *ErrorHandler) addRecoverySuggestions(err *CrawlerError) {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline exceeded"):
		err.WithSuggestion("Consider increasing crawler.timeout")
	case strings.Contains(msg, "connection refused"):
		err.WithSuggestion("The site may be down; disable it under sites in the config")
	case strings.Contains(msg, "permission denied"):
		err.WithSuggestion("Check write access to download.output_dir")
	case strings.Contains(msg, "no space left"):
		err.WithSuggestion("Free up disk space and try again")
	}
}

// GetStats returns error statistics
func (eh *ErrorHandler) GetStats() *ErrorStats {
	return eh.stats
}

var globalErrorHandler *ErrorHandler

// InitGlobalErrorHandler initializes the global error handler
func InitGlobalErrorHandler(logger Logger) {
	globalErrorHandler = NewErrorHandler(logger)
}

// GetGlobalErrorHandler returns the global error handler
func GetGlobalErrorHandler() *ErrorHandler {
	if globalErrorHandler == nil {
		globalErrorHandler = NewErrorHandler(nil)
	}
	return globalErrorHandler
}

// Handle handles an error using the global error handler
func Handle(err error) *CrawlerError {
	return GetGlobalErrorHandler().Handle(err)
}
