package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"

	"shop_backoffice/internal/logger"
	"shop_backoffice/internal/service"

	"github.com/gin-gonic/gin"
)

const signatureHeader = "crypto-pay-api-signature"

// WebhookHandler accepts payment-provider callbacks. The signature is
// HMAC-SHA256 over the raw body; the HMAC key is the SHA-256 digest of the
// bot token.
type WebhookHandler struct {
	repl    *service.ReplenishmentService
	hmacKey []byte
}

func NewWebhookHandler(repl *service.ReplenishmentService, botToken string) *WebhookHandler {
	key := sha256.Sum256([]byte(botToken))
	return &WebhookHandler{repl: repl, hmacKey: key[:]}
}

type webhookUpdate struct {
	UpdateType string `json:"update_type"`
	Payload    struct {
		Status  string `json:"status"`
		Payload string `json:"payload"` // our external replenishment id
	} `json:"payload"`
}

// CryptoWebhook verifies the provider signature and confirms the referenced
// replenishment. Replays and unknown ids still answer 200 so the provider
// stops retrying.
func (h *WebhookHandler) CryptoWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	if !h.verify(body, c.GetHeader(signatureHeader)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "bad signature"})
		return
	}

	var upd webhookUpdate
	if err := json.Unmarshal(body, &upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed update"})
		return
	}

	if upd.UpdateType != "invoice_paid" || upd.Payload.Payload == "" {
		c.JSON(http.StatusOK, gin.H{"result": "ok"})
		return
	}

	rp, err := h.repl.ConfirmPayment(c.Request.Context(), upd.Payload.Payload)
	if err != nil {
		logger.Error("webhook confirm failed", "external_id", upd.Payload.Payload, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "confirm failed"})
		return
	}
	if rp == nil {
		// already confirmed or unknown; acknowledge either way
		c.JSON(http.StatusOK, gin.H{"result": "ok"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": "ok"})
}

func (h *WebhookHandler) verify(body []byte, signature string) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, h.hmacKey)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
