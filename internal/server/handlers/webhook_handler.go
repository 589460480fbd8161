package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anmoldairy/dairy/internal/domain/models"
	service "github.com/anmoldairy/dairy/internal/service/whatsapp"
)

// WebhookHandler handles inbound and outbound WhatsApp HTTP events.
type WebhookHandler struct {
	svc    service.MessagingService
	logger *zap.Logger
}

// NewWebhookHandler constructs the HTTP handler adapter.
func NewWebhookHandler(svc service.MessagingService, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{svc: svc, logger: logger}
}

// Verify answers Meta's subscription challenge.
func (h *WebhookHandler) Verify(c *gin.Context) {
	resp, err := h.svc.VerifyWebhookToken(c.Query("hub.mode"), c.Query("hub.verify_token"), c.Query("hub.challenge"))
	if err != nil {
		h.logger.Warn("webhook verification failed", zap.Error(err))
		c.String(http.StatusForbidden, "verification failed")
		return
	}
	c.String(http.StatusOK, resp)
}

// Receive ingests farmer messages delivered by Meta.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var payload models.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.logger.Warn("invalid webhook payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	// Meta retries non-2xx deliveries, so reply failures are logged and acknowledged.
	if err := h.svc.HandleWebhook(c.Request.Context(), payload); err != nil {
		h.logger.Error("failed processing webhook", zap.Error(err))
	}
	c.Status(http.StatusOK)
}

// SendMessage sends a manual text to a phone number.
func (h *WebhookHandler) SendMessage(c *gin.Context) {
	var req models.OutboundMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid outbound payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.svc.SendOutbound(c.Request.Context(), req); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusAccepted)
}
