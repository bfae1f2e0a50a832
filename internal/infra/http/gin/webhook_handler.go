package ginserver

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"adspace/internal/app/commands"
	PaymentApp "adspace/internal/app/handlers/payment"
	domainpayment "adspace/internal/domain/payment"
	"adspace/internal/domain/shared/money"
	"adspace/internal/infra/provider"
)

// WebhookHandler terminates provider settlement callbacks. Status vocabulary
// is normalized per provider before the reconcile command runs; replays of an
// already settled transaction return 200 without mutating anything.
type WebhookHandler struct {
	Commands commands.Bus
	Secret   string
}

type webhookPayload struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
}

func (h WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	if h.Secret != "" && !h.verifySignature(c.GetHeader("X-Webhook-Signature"), body) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	var payload webhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if payload.TransactionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "transaction_id required"})
		return
	}
	providerName := c.Param("provider")
	cmd := PaymentApp.ReconcilePaymentCommand{
		TransactionID:  payload.TransactionID,
		ReportedStatus: normalizeStatus(providerName, payload.Status),
		ReportedAmount: money.Money{Amount: payload.Amount, Currency: payload.Currency},
		Provider:       providerName,
	}
	result, err := commands.Dispatch[PaymentApp.ReconcilePaymentCommand, *PaymentApp.ReconcilePaymentResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h WebhookHandler) verifySignature(signature string, body []byte) bool {
	if signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.Secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func normalizeStatus(providerName, raw string) domainpayment.Status {
	switch providerName {
	case "mtn_momo":
		return provider.NormalizeMTNStatus(raw)
	case "orange_money":
		return provider.NormalizeOrangeStatus(raw)
	default:
		switch domainpayment.Status(raw) {
		case domainpayment.StatusSuccess, domainpayment.StatusFailed:
			return domainpayment.Status(raw)
		default:
			return domainpayment.StatusPending
		}
	}
}
