package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/pixstore/internal/domain/errors"
	pkgAuth "github.com/polkiloo/pixstore/internal/pkg/auth"
	"github.com/polkiloo/pixstore/internal/server/http/dto"
	"github.com/polkiloo/pixstore/internal/usecase"
)

const maxWebhookBody = 64 << 10

// SignatureVerifier validates gateway webhook signatures.
type SignatureVerifier interface {
	Enabled() bool
	Verify(header, requestID, dataID string) error
}

// WebhookHandler receives gateway notifications.
type WebhookHandler struct {
	facade   WebhookFacade
	verifier SignatureVerifier
	logger   *slog.Logger
}

// NewWebhookHandler constructs WebhookHandler.
func NewWebhookHandler(facade WebhookFacade, verifier SignatureVerifier, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{facade: facade, verifier: verifier, logger: logger}
}

// Receive handles POST /webhook-mercadopago. Both the JSON envelope and the
// legacy query string form (topic, id) are accepted.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		RespondError(c, h.logger, fmt.Errorf("read notification: %v: %w", err, domainErrors.ErrInvalidRequest))
		return
	}

	var envelope dto.WebhookNotification
	if len(strings.TrimSpace(string(body))) > 0 {
		if err := json.Unmarshal(body, &envelope); err != nil {
			RespondError(c, h.logger, fmt.Errorf("decode notification: %v: %w", err, domainErrors.ErrInvalidRequest))
			return
		}
	}

	kind := firstNonEmpty(envelope.Type, envelope.Topic, c.Query("type"), c.Query("topic"))
	paymentID := firstNonEmpty(string(envelope.Data.ID), c.Query("data.id"), c.Query("id"))

	if h.verifier != nil && h.verifier.Enabled() {
		// The signed id must be the one processed.
		if signed := strings.TrimSpace(c.Query("data.id")); signed != "" && signed != paymentID {
			h.logger.WarnContext(c.Request.Context(), "webhook id differs from signed id",
				slog.String("payment_id", paymentID),
				slog.String("signed_id", signed),
			)
			RespondError(c, h.logger, fmt.Errorf("signed id %q, body id %q: %w", signed, paymentID, pkgAuth.ErrInvalidSignature))
			return
		}
		if err := h.verifier.Verify(c.GetHeader("x-signature"), c.GetHeader("x-request-id"), paymentID); err != nil {
			h.logger.WarnContext(c.Request.Context(), "webhook signature rejected", slog.String("payment_id", paymentID))
			RespondError(c, h.logger, err)
			return
		}
	}

	ack, err := h.facade.HandleNotification(c.Request.Context(), usecase.Notification{Kind: kind, PaymentID: paymentID})
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

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
