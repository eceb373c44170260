package errors

import (
	"fmt"
	"time"
)

// ErrorCode mirrors the error_code values exposed in API responses.
type ErrorCode string

const (
	// Общие ошибки
	ErrCodeInternal      ErrorCode = "INTERNAL_ERROR"
	ErrCodeBadRequest    ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeValidation    ErrorCode = "VALIDATION_FAILED"
	ErrCodeDatabase      ErrorCode = "DATABASE_ERROR"
	ErrCodeRateLimit     ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Ошибки жизненного цикла гива
	ErrCodeGiveawayNotFound    ErrorCode = "GIVEAWAY_NOT_FOUND"
	ErrCodeNoActiveGiveaway    ErrorCode = "NO_ACTIVE_GIVEAWAY"
	ErrCodeActiveLimitExceeded ErrorCode = "SINGLE_ACTIVE_LIMIT_EXCEEDED"
	ErrCodeCannotPublish       ErrorCode = "CANNOT_PUBLISH"
	ErrCodeCannotFinish        ErrorCode = "CANNOT_FINISH"
	ErrCodeCannotUpdateFinish  ErrorCode = "CANNOT_UPDATE_FINISH_MESSAGES"
	ErrCodeStaleTransition     ErrorCode = "STALE_TRANSITION"
	ErrCodeInvalidTokenFormat  ErrorCode = "INVALID_TOKEN_FORMAT"
	ErrCodeTokenGeneration     ErrorCode = "TOKEN_GENERATION_FAILED"

	// Ошибки коллаборирующих сервисов
	ErrCodeAccountValidation  ErrorCode = "ACCOUNT_VALIDATION_FAILED"
	ErrCodeChannelValidation  ErrorCode = "CHANNEL_VALIDATION_FAILED"
	ErrCodeMediaValidation    ErrorCode = "MEDIA_VALIDATION_FAILED"
	ErrCodeMessagePosting     ErrorCode = "MESSAGE_POSTING_FAILED"
	ErrCodeWinnerSelection    ErrorCode = "WINNER_SELECTION_FAILED"
	ErrCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
)

// AppError is the typed application error carried from services up to the
// HTTP error handler.
type AppError struct {
	Code      ErrorCode              `json:"error_code"`
	Message   string                 `json:"error"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetail attaches a structured detail to the error.
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithRequestID tags the error with the originating request id.
func (e *AppError) WithRequestID(requestID string) *AppError {
	e.RequestID = requestID
	return e
}

// New creates a new application error.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// Newf creates a new application error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an underlying error into an AppError.
func Wrap(err error, code ErrorCode, message string) *AppError {
	appErr := New(code, message)
	appErr.Cause = err
	return appErr
}

// Wrapf wraps an underlying error with a formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// IsCode reports whether err is an AppError with the given code.
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// AsAppError extracts an AppError from err.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if err != nil {
		appErr, _ = err.(*AppError)
	}
	return appErr, appErr != nil
}

// NewValidationError builds a VALIDATION_FAILED error carrying per-field
// validation messages.
func NewValidationError(validationErrors []string) *AppError {
	return New(ErrCodeValidation, "Validation failed").
		WithDetail("validation_errors", validationErrors)
}

// NewGiveawayNotFoundError builds a GIVEAWAY_NOT_FOUND error.
func NewGiveawayNotFoundError(giveawayID int64) *AppError {
	return New(ErrCodeGiveawayNotFound, "Giveaway not found").
		WithDetail("giveaway_id", giveawayID)
}

// NewActiveLimitError builds the 409 conflict carrying the id of the
// already-active giveaway.
func NewActiveLimitError(accountID, activeGiveawayID int64) *AppError {
	return Newf(ErrCodeActiveLimitExceeded, "Account %d already has an active giveaway", accountID).
		WithDetail("account_id", accountID).
		WithDetail("active_giveaway_id", activeGiveawayID)
}

// NewDatabaseError wraps a storage failure.
func NewDatabaseError(operation string, err error) *AppError {
	return Wrapf(err, ErrCodeDatabase, "Database operation failed: %s", operation).
		WithDetail("operation", operation)
}

// NewServiceUnavailableError marks a collaborator as unreachable.
func NewServiceUnavailableError(service string, err error) *AppError {
	return Wrapf(err, ErrCodeServiceUnavailable, "%s service unavailable", service).
		WithDetail("service", service)
}
