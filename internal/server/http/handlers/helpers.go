package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/pixstore/internal/domain/errors"
	pkgAuth "github.com/polkiloo/pixstore/internal/pkg/auth"
	"github.com/polkiloo/pixstore/internal/server/http/dto"
)

type errorMapping struct {
	err    error
	status int
	kind   string
}

// errorMappings is checked in order; the first match wins.
var errorMappings = []errorMapping{
	{domainErrors.ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
	{domainErrors.ErrInvalidToken, http.StatusBadRequest, "invalid_token"},
	{domainErrors.ErrProductNotFound, http.StatusUnprocessableEntity, "product_not_found"},
	{domainErrors.ErrAmountMismatch, http.StatusUnprocessableEntity, "amount_mismatch"},
	{domainErrors.ErrNotFound, http.StatusNotFound, "not_found"},
	{domainErrors.ErrExpired, http.StatusGone, "expired"},
	{domainErrors.ErrLimitExceeded, http.StatusTooManyRequests, "limit_exceeded"},
	{domainErrors.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domainErrors.ErrOrderNotApproved, http.StatusForbidden, "order_not_approved"},
	{domainErrors.ErrAlreadyExists, http.StatusConflict, "conflict"},
	{domainErrors.ErrNotReconciled, http.StatusServiceUnavailable, "not_reconciled"},
	{domainErrors.ErrPaymentGateway, http.StatusBadGateway, "payment_gateway"},
	{pkgAuth.ErrInvalidSignature, http.StatusUnauthorized, "invalid_signature"},
	{pkgAuth.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
}

// ErrorStatus maps a use case error onto an HTTP status and a stable kind.
func ErrorStatus(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.kind
		}
	}
	return http.StatusInternalServerError, "internal"
}

// RespondError aborts the request with the mapped status. The detailed error
// stays in the log.
func RespondError(c *gin.Context, logger *slog.Logger, err error) {
	status, kind := ErrorStatus(err)
	attrs := []any{
		slog.String("method", c.Request.Method),
		slog.String("path", c.FullPath()),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	}
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(c.Request.Context(), "request failed", attrs...)
	} else {
		logger.DebugContext(c.Request.Context(), "request rejected", attrs...)
	}
	c.AbortWithStatusJSON(status, dto.ErrorResponse{Error: kind})
}
