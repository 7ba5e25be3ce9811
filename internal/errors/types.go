// Package errors defines the typed errors raised by the build pipeline and the
// handler that decides how each of them is reported.
//
// Errors fall into two groups. Fatal errors (configuration, load-bearing I/O,
// render and compile failures) abort the sequence that raised them. Recoverable
// errors (a malformed per-template data document, a failed archive) are logged
// and the item is skipped.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeConfig    ErrorType = "config"
	ErrorTypeIO        ErrorType = "io"
	ErrorTypeParse     ErrorType = "parse"
	ErrorTypeRender    ErrorType = "render"
	ErrorTypeCompile   ErrorType = "compile"
	ErrorTypeTransport ErrorType = "transport"
	ErrorTypeInternal  ErrorType = "internal"
)

// Error is a structured pipeline error with context.
type Error struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Stage       string
	Path        string
	Recoverable bool
}

// Error implements the error interface.
func (e *Error) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Stage != "" {
		parts = append(parts, "stage:"+e.Stage)
	}

	if e.Path != "" {
		parts = append(parts, e.Path)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same type and code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithPath attaches the file or directory the error is about.
func (e *Error) WithPath(path string) *Error {
	e.Path = path

	return e
}

// WithStage attaches the pipeline stage that raised the error.
func (e *Error) WithStage(stage string) *Error {
	e.Stage = stage

	return e
}

// NewConfigError creates a configuration error. Configuration errors are
// raised before any stage runs.
func NewConfigError(code, message string) *Error {
	return &Error{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *Error {
	return &Error{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewParseError creates a document parse or schema error.
func NewParseError(code, message string, cause error) *Error {
	return &Error{
		Type:        ErrorTypeParse,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewRenderError creates a template render error.
func NewRenderError(code, message string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeRender,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewCompileError creates an MJML compile error.
func NewCompileError(code, message string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeCompile,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewTransportError creates a mail transport error.
func NewTransportError(code, message string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeTransport,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *Error {
	return &Error{
		Type:    ErrorTypeInternal,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Recoverable marks err as a per-item error that must not abort a sequence.
func Recoverable(err *Error) *Error {
	err.Recoverable = true

	return err
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Recoverable
	}

	return false
}

// IsConfigError checks if an error is a configuration error.
func IsConfigError(err error) bool {
	return hasType(err, ErrorTypeConfig)
}

// IsTransportError checks if an error came from a mail transport.
func IsTransportError(err error) bool {
	return hasType(err, ErrorTypeTransport)
}

// StageOf returns the stage recorded on err, if any.
func StageOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Stage
	}

	return ""
}

func hasType(err error, t ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}

	return false
}

// ErrorHandler provides centralized error handling.
type ErrorHandler struct {
	logger   Logger
	notifier Notifier
}

// Logger interface for error logging.
type Logger interface {
	Error(ctx context.Context, err error, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// Notifier forwards fatal errors to an external reporting service.
type Notifier interface {
	NotifyError(ctx context.Context, err error) error
}

// NewErrorHandler creates a new error handler. Either argument may be nil.
func NewErrorHandler(logger Logger, notifier Notifier) *ErrorHandler {
	return &ErrorHandler{
		logger:   logger,
		notifier: notifier,
	}
}

// Handle logs err according to its type. Recoverable errors are logged as
// warnings; everything else is logged as an error and forwarded to the
// notifier.
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil {
		return
	}

	var e *Error
	if !errors.As(err, &e) {
		if h.logger != nil {
			h.logger.Error(ctx, err, "Unhandled error occurred")
		}
		h.notify(ctx, err)
		return
	}

	if e.Recoverable {
		if h.logger != nil {
			h.logger.Warn(ctx, err, "Skipped item after recoverable error",
				"type", e.Type,
				"code", e.Code,
				"path", e.Path)
		}
		return
	}

	if h.logger != nil {
		h.logger.Error(ctx, err, "Build error occurred",
			"type", e.Type,
			"code", e.Code,
			"stage", e.Stage,
			"path", e.Path)
	}
	h.notify(ctx, err)
}

func (h *ErrorHandler) notify(ctx context.Context, err error) {
	if h.notifier == nil {
		return
	}
	if nerr := h.notifier.NotifyError(ctx, err); nerr != nil && h.logger != nil {
		h.logger.Warn(ctx, nerr, "Failed to report error")
	}
}

// Common error codes.
const (
	ErrCodeStructureMissing = "ERR_STRUCTURE_MISSING"
	ErrCodeStructureInvalid = "ERR_STRUCTURE_INVALID"
	ErrCodeEnvInvalid       = "ERR_ENV_INVALID"
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeFileNotFound     = "ERR_FILE_NOT_FOUND"
	ErrCodeReadFailed       = "ERR_READ_FAILED"
	ErrCodeWriteFailed      = "ERR_WRITE_FAILED"
	ErrCodeGlobFailed       = "ERR_GLOB_FAILED"
	ErrCodeDocumentInvalid  = "ERR_DOCUMENT_INVALID"
	ErrCodeTemplateInvalid  = "ERR_TEMPLATE_INVALID"
	ErrCodeRenderFailed     = "ERR_RENDER_FAILED"
	ErrCodeCompileFailed    = "ERR_COMPILE_FAILED"
	ErrCodeImageFailed      = "ERR_IMAGE_FAILED"
	ErrCodeArchiveFailed    = "ERR_ARCHIVE_FAILED"
	ErrCodeVerifyFailed     = "ERR_TRANSPORT_VERIFY"
	ErrCodeSendFailed       = "ERR_TRANSPORT_SEND"
	ErrCodeInternalError    = "ERR_INTERNAL"
)
