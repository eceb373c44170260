package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/azatarm-prog/telegive-giveaway/internal/common/errors"
	"github.com/azatarm-prog/telegive-giveaway/internal/common/logger"
)

// ErrorHandler middleware для обработки паник
func ErrorHandler() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		requestID := GetRequestID(c)

		logger.Error().
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Interface("panic", recovered).
			Str("stack", string(debug.Stack())).
			Msg("Panic recovered")

		sentry.CurrentHub().Recover(recovered)

		appErr := errors.New(errors.ErrCodeInternal, "Internal server error").
			WithRequestID(requestID).
			WithDetail("panic", fmt.Sprintf("%v", recovered))

		AbortWithError(c, appErr)
	})
}

// RequestID middleware для добавления ID запроса
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}

		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// GetRequestID returns the request id set by the RequestID middleware.
func GetRequestID(c *gin.Context) string {
	if id, ok := c.Get("request_id"); ok {
		if s, ok := id.(string); ok {
			return s
		}
	}
	return ""
}

// AbortWithError writes the error envelope and stops the handler chain.
// Any non-AppError is reported to Sentry and masked as INTERNAL_ERROR.
func AbortWithError(c *gin.Context, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		sentry.CaptureException(err)
		logger.Error().
			Err(err).
			Str("request_id", GetRequestID(c)).
			Str("path", c.Request.URL.Path).
			Msg("Unhandled error")
		appErr = errors.Wrap(err, errors.ErrCodeInternal, "Internal server error")
	}
	if appErr.RequestID == "" {
		appErr.WithRequestID(GetRequestID(c))
	}

	c.AbortWithStatusJSON(httpStatus(appErr.Code), gin.H{
		"success":    false,
		"error":      appErr.Message,
		"error_code": appErr.Code,
		"details":    appErr.Details,
		"request_id": appErr.RequestID,
	})
}

func httpStatus(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeValidation, errors.ErrCodeBadRequest, errors.ErrCodeInvalidTokenFormat:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeGiveawayNotFound, errors.ErrCodeNoActiveGiveaway:
		return http.StatusNotFound
	case errors.ErrCodeActiveLimitExceeded, errors.ErrCodeStaleTransition:
		return http.StatusConflict
	case errors.ErrCodeCannotPublish, errors.ErrCodeCannotFinish, errors.ErrCodeCannotUpdateFinish:
		return http.StatusBadRequest
	case errors.ErrCodeAccountValidation, errors.ErrCodeChannelValidation, errors.ErrCodeMediaValidation:
		return http.StatusBadRequest
	case errors.ErrCodeMessagePosting, errors.ErrCodeWinnerSelection:
		return http.StatusBadGateway
	case errors.ErrCodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case errors.ErrCodeRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
