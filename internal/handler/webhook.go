package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pzklab/dietetics-api/internal/payment"
)

// WebhookHandler receives the payment gateway's asynchronous
// notifications.  The gateway mandates a plain-text body: "TRUE" tells
// it the notification was accepted, anything else makes it retry.
type WebhookHandler struct {
	Orchestrator *payment.Orchestrator
}

// NewWebhookHandler constructs a WebhookHandler.
func NewWebhookHandler(o *payment.Orchestrator) *WebhookHandler {
	if o == nil {
		panic("nil orchestrator passed to NewWebhookHandler")
	}
	return &WebhookHandler{Orchestrator: o}
}

// TpayNotify handles POST /v1/payments/tpay/notify.
//
// "TRUE" is returned for accepted notifications, duplicates included:
// a duplicate is a successful no-op, and answering anything else would
// make the gateway hammer us with redeliveries of an already-settled
// payment.  "FALSE" is returned both for signature failures (permanent;
// retrying yields the same rejection, and the body never says which
// check failed) and for storage errors (transient; the row is still
// PENDING and the gateway's retry is exactly what we want).
func (h *WebhookHandler) TpayNotify(c echo.Context) error {
	form, err := c.FormParams()
	if err != nil {
		return c.String(http.StatusBadRequest, "FALSE")
	}
	n := payment.ParseNotification(form)

	err = h.Orchestrator.ProcessNotification(c.Request().Context(), n)
	if err != nil {
		if errors.Is(err, payment.ErrBadSignature) {
			log.Printf("webhook: rejected notification for crc=%q", n.TrCRC)
			return c.String(http.StatusOK, "FALSE")
		}
		log.Printf("webhook: processing crc=%q failed: %v", n.TrCRC, err)
		return c.String(http.StatusInternalServerError, "FALSE")
	}
	return c.String(http.StatusOK, "TRUE")
}
