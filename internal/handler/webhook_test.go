package handler

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pzklab/dietetics-api/internal/access"
	"github.com/pzklab/dietetics-api/internal/model"
	"github.com/pzklab/dietetics-api/internal/payment"
)

type stubPurchaseStore struct {
	txns       map[string]model.PurchaseTransaction
	resolveErr error
}

func (s *stubPurchaseStore) Create(_ context.Context, txn *model.PurchaseTransaction) error {
	s.txns[txn.ID] = *txn
	return nil
}

func (s *stubPurchaseStore) Resolve(_ context.Context, txnID string, success bool, paidGrosz int64, tpayTxnID string, entitlement time.Duration, now time.Time) (model.PurchaseResolution, error) {
	if s.resolveErr != nil {
		return model.PurchaseResolution{}, s.resolveErr
	}
	txn, ok := s.txns[txnID]
	if !ok || txn.Terminal() {
		return model.PurchaseResolution{}, nil
	}
	if success && txn.AmountGrosz != paidGrosz {
		success = false
	}
	txn.Status = model.PurchaseFailed
	if success {
		txn.Status = model.PurchaseSuccess
	}
	txn.TpayTransactionID = &tpayTxnID
	txn.ResolvedAt = &now
	s.txns[txnID] = txn
	return model.PurchaseResolution{Applied: true, Txn: txn}, nil
}

type noGrants struct{}

func (noGrants) ListByUserModule(_ context.Context, _ uint64, _ model.Module) ([]model.AccessGrant, error) {
	return nil, nil
}

func webhookFixture(t *testing.T, store *stubPurchaseStore) (*WebhookHandler, payment.Gateway) {
	t.Helper()
	gw := payment.Gateway{MerchantID: "1010", SecurityCode: "s3cr3t", BaseURL: "https://secure.tpay.com"}
	o := payment.NewOrchestrator(store, access.NewEvaluator(noGrants{}), gw, 365*24*time.Hour, nil)
	return NewWebhookHandler(o), gw
}

func notifyForm(gw payment.Gateway, crc, status, amount string) url.Values {
	form := url.Values{}
	form.Set("id", gw.MerchantID)
	form.Set("tr_id", "TR-1")
	form.Set("tr_amount", amount)
	form.Set("tr_crc", crc)
	form.Set("tr_status", status)
	form.Set("tr_error", "none")
	sum := md5.Sum([]byte(gw.MerchantID + "TR-1" + amount + crc + gw.SecurityCode))
	form.Set("md5sum", hex.EncodeToString(sum[:]))
	return form
}

func postNotify(t *testing.T, h *WebhookHandler, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/payments/tpay/notify", strings.NewReader(form.Encode()))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	if err := h.TpayNotify(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func TestTpayNotifyAcceptsValidPayment(t *testing.T) {
	store := &stubPurchaseStore{txns: map[string]model.PurchaseTransaction{
		"txn-1": {ID: "txn-1", UserID: 1, Item: model.ItemModule1, AmountGrosz: 14900, Status: model.PurchasePending},
	}}
	h, gw := webhookFixture(t, store)

	rec := postNotify(t, h, notifyForm(gw, "txn-1", "TRUE", "149.00"))
	if rec.Code != http.StatusOK || rec.Body.String() != "TRUE" {
		t.Fatalf("got %d %q, want 200 TRUE", rec.Code, rec.Body.String())
	}
	if store.txns["txn-1"].Status != model.PurchaseSuccess {
		t.Fatalf("transaction status = %s, want SUCCESS", store.txns["txn-1"].Status)
	}
}

func TestTpayNotifyDuplicateDeliveryStillTrue(t *testing.T) {
	store := &stubPurchaseStore{txns: map[string]model.PurchaseTransaction{
		"txn-1": {ID: "txn-1", UserID: 1, Item: model.ItemModule1, AmountGrosz: 14900, Status: model.PurchaseSuccess},
	}}
	h, gw := webhookFixture(t, store)

	rec := postNotify(t, h, notifyForm(gw, "txn-1", "TRUE", "149.00"))
	if rec.Code != http.StatusOK || rec.Body.String() != "TRUE" {
		t.Fatalf("duplicate delivery got %d %q, want 200 TRUE", rec.Code, rec.Body.String())
	}
}

func TestTpayNotifyRejectsBadChecksum(t *testing.T) {
	store := &stubPurchaseStore{txns: map[string]model.PurchaseTransaction{
		"txn-1": {ID: "txn-1", UserID: 1, Item: model.ItemModule1, AmountGrosz: 14900, Status: model.PurchasePending},
	}}
	h, gw := webhookFixture(t, store)

	form := notifyForm(gw, "txn-1", "TRUE", "149.00")
	form.Set("md5sum", strings.Repeat("0", 32))
	rec := postNotify(t, h, form)
	if rec.Body.String() != "FALSE" {
		t.Fatalf("bad checksum got %q, want FALSE", rec.Body.String())
	}
	if store.txns["txn-1"].Status != model.PurchasePending {
		t.Fatal("bad checksum mutated the transaction")
	}
}

// A correctly signed notification carrying less than the quoted price
// settles the transaction as FAILED; the delivery itself is accepted
// with TRUE since a redelivery would carry the same amount.
func TestTpayNotifyUnderpaidSettlesFailed(t *testing.T) {
	store := &stubPurchaseStore{txns: map[string]model.PurchaseTransaction{
		"txn-1": {ID: "txn-1", UserID: 1, Item: model.ItemModule1, AmountGrosz: 14900, Status: model.PurchasePending},
	}}
	h, gw := webhookFixture(t, store)

	rec := postNotify(t, h, notifyForm(gw, "txn-1", "TRUE", "0.01"))
	if rec.Code != http.StatusOK || rec.Body.String() != "TRUE" {
		t.Fatalf("got %d %q, want 200 TRUE", rec.Code, rec.Body.String())
	}
	if store.txns["txn-1"].Status != model.PurchaseFailed {
		t.Fatalf("transaction status = %s, want FAILED", store.txns["txn-1"].Status)
	}
}

func TestTpayNotifyStorageErrorAnswersFalse(t *testing.T) {
	store := &stubPurchaseStore{
		txns:       map[string]model.PurchaseTransaction{},
		resolveErr: errors.New("db down"),
	}
	h, gw := webhookFixture(t, store)

	rec := postNotify(t, h, notifyForm(gw, "whatever", "TRUE", "149.00"))
	if rec.Body.String() != "FALSE" {
		t.Fatalf("storage error got %q, want FALSE so the gateway retries", rec.Body.String())
	}
}
