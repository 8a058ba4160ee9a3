package handlers

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

const testBotToken = "123456:test-token"

func sign(body []byte) string {
	key := sha256.Sum256([]byte(testBotToken))
	mac := hmac.New(sha256.New, key[:])
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func newWebhookRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewWebhookHandler(nil, testBotToken)
	r.POST("/crypto/webhook", h.CryptoWebhook)
	return r
}

func postWebhook(t *testing.T, r *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/crypto/webhook", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set(signatureHeader, signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	r := newWebhookRouter()
	w := postWebhook(t, r, []byte(`{}`), "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	r := newWebhookRouter()
	body := []byte(`{"update_type":"invoice_paid","payload":{"payload":"ext-1"}}`)
	w := postWebhook(t, r, body, "deadbeef")
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestWebhookRejectsTamperedBody(t *testing.T) {
	r := newWebhookRouter()
	body := []byte(`{"update_type":"invoice_paid","payload":{"payload":"ext-1"}}`)
	sig := sign(body)
	tampered := bytes.Replace(body, []byte("ext-1"), []byte("ext-2"), 1)
	w := postWebhook(t, r, tampered, sig)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestWebhookRejectsMalformedUpdate(t *testing.T) {
	r := newWebhookRouter()
	body := []byte(`not json`)
	w := postWebhook(t, r, body, sign(body))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestWebhookIgnoresOtherUpdateTypes(t *testing.T) {
	r := newWebhookRouter()
	body := []byte(`{"update_type":"invoice_expired","payload":{"payload":"ext-1"}}`)
	w := postWebhook(t, r, body, sign(body))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}
