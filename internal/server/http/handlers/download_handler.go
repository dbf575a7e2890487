package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

// DownloadHandler redeems download tokens.
type DownloadHandler struct {
	facade DownloadFacade
	logger *slog.Logger
}

// NewDownloadHandler constructs DownloadHandler.
func NewDownloadHandler(facade DownloadFacade, logger *slog.Logger) *DownloadHandler {
	return &DownloadHandler{facade: facade, logger: logger}
}

// Redeem handles GET /download-file?token=.
func (h *DownloadHandler) Redeem(c *gin.Context) {
	redemption, err := h.facade.Redeem(c.Request.Context(), c.Query("token"))
	if err != nil {
		RespondError(c, h.logger, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Redirect(http.StatusFound, redemption.Location)
}
