package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/pixstore/internal/domain/errors"
	"github.com/polkiloo/pixstore/internal/server/http/dto"
	"github.com/polkiloo/pixstore/internal/usecase"
)

// IdempotencyHeader carries the storefront's checkout attempt id.
const IdempotencyHeader = "X-Idempotency-Key"

// PaymentHandler manages checkout and polling endpoints.
type PaymentHandler struct {
	checkout CheckoutFacade
	payments PaymentFacade
	logger   *slog.Logger
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(checkout CheckoutFacade, payments PaymentFacade, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{checkout: checkout, payments: payments, logger: logger}
}

// Create handles POST /payments/criar-pagamento.
func (h *PaymentHandler) Create(c *gin.Context) {
	var req dto.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, h.logger, fmt.Errorf("decode checkout: %v: %w", err, domainErrors.ErrInvalidRequest))
		return
	}

	requestID := strings.TrimSpace(c.GetHeader(IdempotencyHeader))
	if requestID == "" {
		requestID = req.RequestID
	}
	items := make([]usecase.CheckoutItem, 0, len(req.Items))
	for _, item := range req.Items {
		qty := item.Quantity
		// Carts without explicit quantities hold one unit per line.
		if qty == 0 {
			qty = 1
		}
		items = append(items, usecase.CheckoutItem{ProductID: item.ProductID, Quantity: qty})
	}

	result, err := h.checkout.CreateOrder(c.Request.Context(), usecase.CheckoutRequest{
		RequestID:     requestID,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Items:         items,
		TotalAmount:   req.Total,
	})
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	status := http.StatusCreated
	if result.Resumed {
		status = http.StatusOK
	}
	c.JSON(status, toCreatePaymentResponse(result))
}

// Status handles GET /payments/status-pagamento/:paymentId.
func (h *PaymentHandler) Status(c *gin.Context) {
	status, err := h.payments.PaymentStatus(c.Request.Context(), c.Param("paymentId"))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	response := dto.PaymentStatusResponse{
		PaymentID:     status.PaymentID,
		OrderID:       status.OrderID,
		Status:        string(status.Status),
		GatewayStatus: string(status.GatewayStatus),
		TotalAmount:   status.TotalAmount.StringFixed(2),
		Terminal:      status.Terminal,
		UpdatedAt:     status.UpdatedAt,
		Source:        status.Source,
	}
	if status.PollInterval > 0 {
		seconds := int(status.PollInterval.Seconds())
		response.PollIntervalSeconds = seconds
		c.Header("Retry-After", strconv.Itoa(seconds))
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, response)
}

// Downloads handles GET /payments/link-download/:paymentId.
func (h *PaymentHandler) Downloads(c *gin.Context) {
	paymentID := c.Param("paymentId")
	listing, err := h.payments.ListGrants(c.Request.Context(), paymentID)
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}

	downloads := make([]dto.DownloadResponse, 0, len(listing.Downloads))
	for _, d := range listing.Downloads {
		downloads = append(downloads, dto.DownloadResponse{
			ProductID:   d.ProductID,
			ProductName: d.ProductName,
			Format:      d.Format,
			URL:         d.URL,
			Remaining:   d.Remaining,
			ExpiresAt:   d.ExpiresAt,
		})
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, dto.DownloadsResponse{
		PaymentID: paymentID,
		OrderID:   listing.Order.ID,
		Downloads: downloads,
	})
}

func toCreatePaymentResponse(result *usecase.CheckoutResult) dto.CreatePaymentResponse {
	response := dto.CreatePaymentResponse{
		OrderID:     result.Order.ID,
		Status:      string(result.Order.Status),
		TotalAmount: result.Order.TotalAmount.StringFixed(2),
	}
	if intent := result.Intent; intent != nil {
		response.PaymentID = intent.ID
		response.QRCode = intent.QRCode
		response.QRCodeBase64 = intent.QRCodeBase64
		response.TicketURL = intent.TicketURL
		response.ExpiresAt = intent.ExpiresAt
		if len(intent.Raw) > 0 {
			response.Payment = intent.Raw
		}
	}
	return response
}
