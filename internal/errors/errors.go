// Package errors defines the application error taxonomy and the
// structured logger the rest of the module logs through.
package errors

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// ErrorType groups errors by the subsystem that produced them.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeEngine     ErrorType = "engine"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// Error codes carried by AppError.Code.
const (
	ErrCodeFileNotFound    = "FILE_NOT_FOUND"
	ErrCodeFileNotReadable = "FILE_NOT_READABLE"
	ErrCodeInvalidFormat   = "INVALID_FORMAT"
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeInvalidProfile  = "INVALID_PROFILE"
	ErrCodeEmptyVocabulary = "EMPTY_VOCABULARY"
	ErrCodeFetchFailed     = "FETCH_FAILED"
	ErrCodeInvalidRequest  = "INVALID_REQUEST"
	ErrCodeNetworkTimeout  = "NETWORK_TIMEOUT"
	ErrCodeInvalidConfig   = "INVALID_CONFIG"
)

// AppError is a classified error with a stable code and optional
// key/value context for logging.
type AppError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Cause   error          `json:"cause,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error { return e.Cause }

// WithContext attaches a key/value pair that LogError will emit.
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = map[string]any{}
	}
	e.Context[key] = value
	return e
}

func NewValidationError(code, message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeValidation, Code: code, Message: message, Cause: cause}
}

func NewIOError(code, message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeIO, Code: code, Message: message, Cause: cause}
}

func NewEngineError(code, message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeEngine, Code: code, Message: message, Cause: cause}
}

func NewNetworkError(code, message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeNetwork, Code: code, Message: message, Cause: cause}
}

func NewConfigError(code, message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeConfig, Code: code, Message: message, Cause: cause}
}

func NewInternalError(code, message string, cause error) *AppError {
	return &AppError{Type: ErrorTypeInternal, Code: code, Message: message, Cause: cause}
}

// Logger is a thin wrapper over slog that knows how to flatten AppError
// classification and context into log attributes.
type Logger struct {
	logger *slog.Logger
}

// NewLogger writes JSON log lines to stdout at the given level.
func NewLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return &Logger{logger: slog.New(handler)}
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// New builds a logger from a level name as it appears in config.
func New(level string) (*Logger, error) {
	slogLevel, ok := logLevels[level]
	if !ok {
		return nil, fmt.Errorf("invalid log level: %s", level)
	}
	return NewLogger(slogLevel), nil
}

// LogError logs err at error level. AppErrors contribute their type,
// code, message and context as attributes.
func (l *Logger) LogError(err error, message string, args ...any) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		l.logger.Error(message, append([]any{"error", err.Error()}, args...)...)
		return
	}

	attrs := []any{
		"error_type", appErr.Type,
		"error_code", appErr.Code,
		"error_message", appErr.Message,
	}
	for key, value := range appErr.Context {
		attrs = append(attrs, key, value)
	}
	l.logger.Error(message, append(attrs, args...)...)
}

func (l *Logger) Info(message string, args ...any)  { l.logger.Info(message, args...) }
func (l *Logger) Debug(message string, args ...any) { l.logger.Debug(message, args...) }
func (l *Logger) Warn(message string, args ...any)  { l.logger.Warn(message, args...) }
