package handler

import (
	"net/http"

	"commissioning-backend/internal/apperr"
	"commissioning-backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindInvalidInput, apperr.KindInvalidFileType:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err in the error envelope. Server-side failures are
// logged; their details stay out of the response.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	utils.ErrorResponse(c, status, string(kind), apperr.Message(err))
}

func badRequest(c *gin.Context, message string) {
	utils.ErrorResponse(c, http.StatusBadRequest, string(apperr.KindInvalidInput), message)
}
