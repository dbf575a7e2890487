package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/pixstore/internal/domain/errors"
	"github.com/polkiloo/pixstore/internal/server/http/dto"
)

// AdminHandler exposes operator endpoints.
type AdminHandler struct {
	facade AdminFacade
	logger *slog.Logger
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(facade AdminFacade, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{facade: facade, logger: logger}
}

// Reconcile handles POST /admin/reconcile/:paymentId.
func (h *AdminHandler) Reconcile(c *gin.Context) {
	ack, err := h.facade.ReconcilePayment(c.Request.Context(), c.Param("paymentId"))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dto.AckResponse{
		Ignored: ack.Ignored,
		Reason:  ack.Reason,
		OrderID: ack.OrderID,
		Status:  string(ack.Status),
		Changed: ack.Changed,
	})
}

// InvalidateCatalog handles POST /admin/catalog/invalidate. Without product_id
// every cached product is dropped.
func (h *AdminHandler) InvalidateCatalog(c *gin.Context) {
	raw := c.QueryArray("product_id")
	ids := make([]int64, 0, len(raw))
	for _, v := range raw {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			RespondError(c, h.logger, fmt.Errorf("product_id %q: %w", v, domainErrors.ErrInvalidRequest))
			return
		}
		ids = append(ids, id)
	}

	if err := h.facade.InvalidateCatalog(c.Request.Context(), ids...); err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
