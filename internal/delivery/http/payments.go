package http

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/vogiaan1904/ticketbottle-inventory/internal/service"
	"github.com/vogiaan1904/ticketbottle-inventory/pkg/response"
)

const signatureHeader = "X-Payment-Signature"

// PaymentWebhook receives payment results from the provider. Duplicate
// deliveries are acknowledged; a 5xx asks the provider to retry.
func (h *Handler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		response.Error(w, errInvalidBody)
		return
	}

	if !validSignature(h.cfg.WebhookSecret, body, r.Header.Get(signatureHeader)) {
		h.l.Warnf(r.Context(), "Rejected payment webhook with bad signature remote=%s", r.RemoteAddr)
		response.Error(w, errBadSignature)
		return
	}

	var req webhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		response.Error(w, errInvalidBody)
		return
	}
	if !h.validate(w, &req) {
		return
	}

	ctx := h.l.WithFields(r.Context(), "reservation_id", req.ReservationID, "payment_event", req.Event)

	switch req.Event {
	case paymentEventSucceeded:
		err = h.payment.OnPaymentConfirmed(ctx, service.PaymentConfirmedInput{
			ReservationID: req.ReservationID,
			TxRef:         req.TxRef,
		})
	case paymentEventFailed:
		err = h.payment.OnPaymentFailed(ctx, service.PaymentFailedInput{
			ReservationID: req.ReservationID,
			TxRef:         req.TxRef,
			Reason:        req.Reason,
		})
	default:
		response.Error(w, errUnknownEventType)
		return
	}
	if err != nil {
		h.fail(w, r.WithContext(ctx), "PaymentWebhook", err)
		return
	}

	response.OK(w, map[string]bool{"received": true})
}

// validSignature checks a hex HMAC-SHA256 of body, optionally prefixed "sha256=".
func validSignature(secret string, body []byte, header string) bool {
	got, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(header), "sha256="))
	if err != nil || len(got) == 0 {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

// Sign returns the signature header value for body. Used by the load test and
// by tests acting as the provider.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
