package payment

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pzklab/dietetics-api/internal/access"
	"github.com/pzklab/dietetics-api/internal/model"
)

// fakeStore keeps transactions in a map and mimics the repository's
// resolve semantics: missing and terminal rows no-op, pending rows flip
// and produce grants.
type fakeStore struct {
	txns       map[string]model.PurchaseTransaction
	created    []model.PurchaseTransaction
	resolveErr error
	createErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{txns: make(map[string]model.PurchaseTransaction)}
}

func (f *fakeStore) Create(_ context.Context, txn *model.PurchaseTransaction) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.txns[txn.ID] = *txn
	f.created = append(f.created, *txn)
	return nil
}

func (f *fakeStore) Resolve(_ context.Context, txnID string, success bool, paidGrosz int64, tpayTxnID string, entitlement time.Duration, now time.Time) (model.PurchaseResolution, error) {
	if f.resolveErr != nil {
		return model.PurchaseResolution{}, f.resolveErr
	}
	txn, ok := f.txns[txnID]
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
	f.txns[txnID] = txn

	var grants []model.AccessGrant
	if success {
		for _, m := range model.ItemModules(txn.Item) {
			grants = append(grants, model.AccessGrant{
				UserID:    txn.UserID,
				Module:    m,
				StartAt:   now,
				ExpiresAt: now.Add(entitlement),
			})
		}
	}
	return model.PurchaseResolution{Applied: true, Txn: txn, Grants: grants}, nil
}

// grantMap adapts a plain map to access.GrantSource.
type grantMap map[uint64]map[model.Module][]model.AccessGrant

func (g grantMap) ListByUserModule(_ context.Context, userID uint64, module model.Module) ([]model.AccessGrant, error) {
	return g[userID][module], nil
}

type recordingNotifier struct {
	calls int
	last  model.PurchaseTransaction
	err   error
}

func (n *recordingNotifier) PurchaseConfirmed(_ context.Context, txn model.PurchaseTransaction, _ []model.Module) error {
	n.calls++
	n.last = txn
	return n.err
}

var testNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func newTestOrchestrator(store *fakeStore, grants grantMap, notifier Notifier) *Orchestrator {
	o := NewOrchestrator(store, access.NewEvaluator(grants), testGateway(), 365*24*time.Hour, notifier)
	o.now = func() time.Time { return testNow }
	return o
}

func activeGrant(userID uint64, m model.Module) model.AccessGrant {
	return model.AccessGrant{
		UserID:    userID,
		Module:    m,
		StartAt:   testNow.Add(-time.Hour),
		ExpiresAt: testNow.Add(time.Hour),
	}
}

func TestInitiatePurchase(t *testing.T) {
	store := newFakeStore()
	o := newTestOrchestrator(store, grantMap{}, nil)

	res, err := o.InitiatePurchase(context.Background(), 1, model.ItemModule1, "a@b.pl")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TransactionID == "" {
		t.Fatal("no transaction id returned")
	}
	if !strings.Contains(res.RedirectURL, "crc="+res.TransactionID) {
		t.Fatalf("redirect %q does not carry the transaction id as crc", res.RedirectURL)
	}
	if len(store.created) != 1 {
		t.Fatalf("created %d transactions, want 1", len(store.created))
	}
	txn := store.created[0]
	if txn.Status != model.PurchasePending || txn.AmountGrosz != 14900 || txn.Item != model.ItemModule1 {
		t.Fatalf("stored transaction %+v", txn)
	}
}

func TestInitiatePurchaseUnknownItem(t *testing.T) {
	store := newFakeStore()
	o := newTestOrchestrator(store, grantMap{}, nil)

	_, err := o.InitiatePurchase(context.Background(), 1, "MODULE_4", "a@b.pl")
	if !errors.Is(err, ErrUnknownItem) {
		t.Fatalf("error = %v, want ErrUnknownItem", err)
	}
	if len(store.created) != 0 {
		t.Fatal("unknown item must create nothing")
	}
}

func TestInitiatePurchaseAlreadyEntitled(t *testing.T) {
	store := newFakeStore()
	grants := grantMap{1: {model.Module1: {activeGrant(1, model.Module1)}}}
	o := newTestOrchestrator(store, grants, nil)

	_, err := o.InitiatePurchase(context.Background(), 1, model.ItemModule1, "a@b.pl")
	if !errors.Is(err, ErrAlreadyEntitled) {
		t.Fatalf("error = %v, want ErrAlreadyEntitled", err)
	}
	if len(store.created) != 0 {
		t.Fatal("conflicting purchase must create nothing")
	}
}

// A bundle that overlaps some owned modules stays purchasable; only
// full coverage is a conflict.
func TestInitiatePurchaseBundleWithPartialOverlap(t *testing.T) {
	store := newFakeStore()
	grants := grantMap{1: {model.Module1: {activeGrant(1, model.Module1)}}}
	o := newTestOrchestrator(store, grants, nil)

	if _, err := o.InitiatePurchase(context.Background(), 1, model.ItemAll, "a@b.pl"); err != nil {
		t.Fatalf("partially owned bundle rejected: %v", err)
	}
	if len(store.created) != 1 {
		t.Fatalf("created %d transactions, want 1", len(store.created))
	}
	if store.created[0].AmountGrosz != 39900 {
		t.Fatalf("bundle amount = %d, want 39900", store.created[0].AmountGrosz)
	}
}

func TestProcessNotificationBadSignature(t *testing.T) {
	store := newFakeStore()
	notifier := &recordingNotifier{}
	o := newTestOrchestrator(store, grantMap{}, notifier)

	n := signedNotification(testGateway())
	n.MD5Sum = strings.Repeat("f", 32)
	if err := o.ProcessNotification(context.Background(), n); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("error = %v, want ErrBadSignature", err)
	}
	if notifier.calls != 0 {
		t.Fatal("rejected notification must not notify")
	}
}

func TestProcessNotificationSuccess(t *testing.T) {
	store := newFakeStore()
	notifier := &recordingNotifier{}
	o := newTestOrchestrator(store, grantMap{}, notifier)

	res, err := o.InitiatePurchase(context.Background(), 1, model.ItemAll, "a@b.pl")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	g := testGateway()
	n := signedNotification(g)
	n.TrCRC = res.TransactionID
	n.TrAmount = "399.00"
	n.MD5Sum = checksum(g, n)

	if err := o.ProcessNotification(context.Background(), n); err != nil {
		t.Fatalf("process: %v", err)
	}
	txn := store.txns[res.TransactionID]
	if txn.Status != model.PurchaseSuccess {
		t.Fatalf("status = %s, want SUCCESS", txn.Status)
	}
	if notifier.calls != 1 {
		t.Fatalf("notifier called %d times, want 1", notifier.calls)
	}
}

// A notification whose checksum verifies but whose amount is not the
// quoted price must settle the transaction as FAILED: the checksum only
// proves what the gateway collected, and a buyer can edit the amount in
// the redirect URL before paying.
func TestProcessNotificationAmountMismatch(t *testing.T) {
	store := newFakeStore()
	notifier := &recordingNotifier{}
	o := newTestOrchestrator(store, grantMap{}, notifier)

	res, err := o.InitiatePurchase(context.Background(), 1, model.ItemModule1, "a@b.pl")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	g := testGateway()
	n := signedNotification(g)
	n.TrCRC = res.TransactionID
	n.TrAmount = "0.01"
	n.MD5Sum = checksum(g, n) // re-signed, so verification passes

	if err := o.ProcessNotification(context.Background(), n); err != nil {
		t.Fatalf("process: %v", err)
	}
	if store.txns[res.TransactionID].Status != model.PurchaseFailed {
		t.Fatalf("status = %s, want FAILED", store.txns[res.TransactionID].Status)
	}
	if notifier.calls != 0 {
		t.Fatal("underpaid transaction must not notify")
	}
}

// An amount the gateway should never send (unparsable) cannot settle a
// payment as SUCCESS either.
func TestProcessNotificationUnparsableAmount(t *testing.T) {
	store := newFakeStore()
	o := newTestOrchestrator(store, grantMap{}, nil)

	res, err := o.InitiatePurchase(context.Background(), 1, model.ItemModule1, "a@b.pl")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	g := testGateway()
	n := signedNotification(g)
	n.TrCRC = res.TransactionID
	n.TrAmount = "149,00"
	n.MD5Sum = checksum(g, n)

	if err := o.ProcessNotification(context.Background(), n); err != nil {
		t.Fatalf("process: %v", err)
	}
	if store.txns[res.TransactionID].Status != model.PurchaseFailed {
		t.Fatalf("status = %s, want FAILED", store.txns[res.TransactionID].Status)
	}
}

// Duplicate deliveries of the same notification must be no-ops: the
// status stays terminal and no second confirmation goes out.
func TestProcessNotificationIdempotent(t *testing.T) {
	store := newFakeStore()
	notifier := &recordingNotifier{}
	o := newTestOrchestrator(store, grantMap{}, notifier)

	res, err := o.InitiatePurchase(context.Background(), 1, model.ItemModule2, "a@b.pl")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	g := testGateway()
	n := signedNotification(g)
	n.TrCRC = res.TransactionID
	n.MD5Sum = checksum(g, n)

	for i := 0; i < 3; i++ {
		if err := o.ProcessNotification(context.Background(), n); err != nil {
			t.Fatalf("delivery %d: %v", i+1, err)
		}
	}
	if store.txns[res.TransactionID].Status != model.PurchaseSuccess {
		t.Fatal("transaction lost its terminal status")
	}
	if notifier.calls != 1 {
		t.Fatalf("notifier called %d times across duplicate deliveries, want 1", notifier.calls)
	}
}

func TestProcessNotificationFailedPayment(t *testing.T) {
	store := newFakeStore()
	notifier := &recordingNotifier{}
	o := newTestOrchestrator(store, grantMap{}, notifier)

	res, err := o.InitiatePurchase(context.Background(), 1, model.ItemModule3, "a@b.pl")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	g := testGateway()
	n := signedNotification(g)
	n.TrCRC = res.TransactionID
	n.TrStatus = "FALSE"
	n.MD5Sum = checksum(g, n)

	if err := o.ProcessNotification(context.Background(), n); err != nil {
		t.Fatalf("process: %v", err)
	}
	if store.txns[res.TransactionID].Status != model.PurchaseFailed {
		t.Fatalf("status = %s, want FAILED", store.txns[res.TransactionID].Status)
	}
	if notifier.calls != 0 {
		t.Fatal("failed payment must not notify")
	}
}

func TestProcessNotificationUnknownTransaction(t *testing.T) {
	store := newFakeStore()
	notifier := &recordingNotifier{}
	o := newTestOrchestrator(store, grantMap{}, notifier)

	g := testGateway()
	n := signedNotification(g)
	n.TrCRC = "never-issued"
	n.MD5Sum = checksum(g, n)

	if err := o.ProcessNotification(context.Background(), n); err != nil {
		t.Fatalf("unknown transaction should be a safe no-op, got %v", err)
	}
	if notifier.calls != 0 {
		t.Fatal("unknown transaction must not notify")
	}
}

func TestProcessNotificationStorageError(t *testing.T) {
	store := newFakeStore()
	store.resolveErr = errors.New("deadlock")
	o := newTestOrchestrator(store, grantMap{}, nil)

	g := testGateway()
	n := signedNotification(g)
	n.MD5Sum = checksum(g, n)

	if err := o.ProcessNotification(context.Background(), n); err == nil {
		t.Fatal("storage error must surface so the gateway retries")
	}
}

// A notifier failure must not fail the reconciliation: the payment is
// already settled, only the confirmation was lost.
func TestProcessNotificationNotifierFailureSwallowed(t *testing.T) {
	store := newFakeStore()
	notifier := &recordingNotifier{err: errors.New("broker down")}
	o := newTestOrchestrator(store, grantMap{}, notifier)

	res, err := o.InitiatePurchase(context.Background(), 1, model.ItemModule1, "a@b.pl")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	g := testGateway()
	n := signedNotification(g)
	n.TrCRC = res.TransactionID
	n.MD5Sum = checksum(g, n)

	if err := o.ProcessNotification(context.Background(), n); err != nil {
		t.Fatalf("notifier failure leaked out: %v", err)
	}
	if store.txns[res.TransactionID].Status != model.PurchaseSuccess {
		t.Fatal("transaction not resolved")
	}
}
