package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Movelgroup/movel-RestAPI/internal/apperr"
)

const webhookSecretMismatch = "Invalid webhook secret"

// ReceiveWebhook classifies a pushed payload and ingests it. The secret is
// checked before the body is read.
func (h *Handler) ReceiveWebhook(c *gin.Context) {
	c.Set(ctxActivity, true)

	ok, err := h.Webhook.Verify(c.Request.Context(), c.GetHeader("Authorization"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !ok {
		_ = c.Error(apperr.Authentication(webhookSecretMismatch))
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		_ = c.Error(apperr.Validation("read body: %v", err))
		return
	}

	rec, err := h.Ingest.IngestRaw(c.Request.Context(), body)
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.Logger.Info("Webhook processed",
		zap.String("activity_id", traceIDOf(c)),
		zap.String("charger_id", rec.Charger()),
		zap.String("message_type", rec.Type()))

	success(c, "Webhook processed", gin.H{
		"activityId":  traceIDOf(c),
		"messageType": rec.Type(),
	})
}

// VerifyWebhook configuration probe of the webhook source; no side effects
func (h *Handler) VerifyWebhook(c *gin.Context) {
	c.Set(ctxActivity, true)

	ok, err := h.Webhook.Verify(c.Request.Context(), c.GetHeader("Authorization"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !ok {
		_ = c.Error(apperr.Authentication(webhookSecretMismatch))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "Success",
		"message":    "Webhook verified",
		"activityId": traceIDOf(c),
	})
}
