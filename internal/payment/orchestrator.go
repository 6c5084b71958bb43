// Package payment initiates module purchases and reconciles the payment
// gateway's asynchronous notifications into access grants, exactly once
// per transaction.
package payment

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/pzklab/dietetics-api/internal/access"
	"github.com/pzklab/dietetics-api/internal/model"
)

// Domain outcomes of the purchase flow.  Handlers translate these into
// HTTP statuses; anything else bubbling out of the orchestrator is an
// internal error.
var (
	// ErrAlreadyEntitled means the buyer already holds active access to
	// everything the item would unlock.  A conflict, not a failure: the
	// client recovers by navigating to the content catalog.
	ErrAlreadyEntitled = errors.New("already has access")
	// ErrUnknownItem means the requested item is not purchasable.
	ErrUnknownItem = errors.New("unknown purchase item")
	// ErrBadSignature means a notification failed checksum verification.
	// Deliberately generic; the response must not reveal which check failed.
	ErrBadSignature = errors.New("notification rejected")
)

// PurchaseStore persists purchase transactions.  Resolve must perform
// the whole read-modify-write as one atomic unit: check the row is
// still PENDING, flip it to its terminal status, and on success insert
// the grants.  All of it commits together or not at all.  paidGrosz is
// the amount the gateway reports having collected; a settled payment
// whose amount differs from the stored row must resolve as FAILED,
// never SUCCESS.
type PurchaseStore interface {
	Create(ctx context.Context, txn *model.PurchaseTransaction) error
	Resolve(ctx context.Context, txnID string, success bool, paidGrosz int64, tpayTxnID string, entitlement time.Duration, now time.Time) (model.PurchaseResolution, error)
}

// Notifier delivers best-effort purchase confirmations (buyer email,
// internal notification).  Failures are logged and swallowed; they are
// not part of the reconciliation's atomic unit.
type Notifier interface {
	PurchaseConfirmed(ctx context.Context, txn model.PurchaseTransaction, modules []model.Module) error
}

// InitiateResult is handed back to the client after a purchase is
// initiated: where to send the buyer, and which transaction to expect.
type InitiateResult struct {
	RedirectURL   string
	TransactionID string
}

// Orchestrator wires the purchase flow together.
type Orchestrator struct {
	purchases   PurchaseStore
	evaluator   *access.Evaluator
	gateway     Gateway
	entitlement time.Duration
	notifier    Notifier
	now         func() time.Time // injectable clock for tests
}

// NewOrchestrator constructs an Orchestrator.  notifier may be nil when
// no broker is configured; confirmations are then skipped.
func NewOrchestrator(purchases PurchaseStore, evaluator *access.Evaluator, gateway Gateway, entitlement time.Duration, notifier Notifier) *Orchestrator {
	if purchases == nil || evaluator == nil {
		panic("nil dependency passed to NewOrchestrator")
	}
	return &Orchestrator{
		purchases:   purchases,
		evaluator:   evaluator,
		gateway:     gateway,
		entitlement: entitlement,
		notifier:    notifier,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// InitiatePurchase creates a PENDING transaction for the requested item
// and returns the hosted-form redirect URL.  When the buyer already
// holds active access to every module the item would unlock it returns
// ErrAlreadyEntitled and writes nothing.
func (o *Orchestrator) InitiatePurchase(ctx context.Context, userID uint64, item, buyerEmail string) (InitiateResult, error) {
	modules := model.ItemModules(item)
	if modules == nil {
		return InitiateResult{}, ErrUnknownItem
	}
	now := o.now()
	// Conflict only when nothing in the item is still locked; a bundle
	// overlapping some already-owned modules remains purchasable.
	missing := false
	for _, m := range modules {
		ok, err := o.evaluator.HasActiveAccess(ctx, userID, m, now)
		if err != nil {
			return InitiateResult{}, err
		}
		if !ok {
			missing = true
			break
		}
	}
	if !missing {
		return InitiateResult{}, ErrAlreadyEntitled
	}
	price, ok := PriceGrosz(item)
	if !ok {
		return InitiateResult{}, ErrUnknownItem
	}
	txn := model.PurchaseTransaction{
		ID:          uuid.NewString(),
		UserID:      userID,
		Item:        item,
		AmountGrosz: price,
		Status:      model.PurchasePending,
		CreatedAt:   now,
	}
	if err := o.purchases.Create(ctx, &txn); err != nil {
		return InitiateResult{}, err
	}
	return InitiateResult{
		RedirectURL:   o.gateway.PaymentURL(txn.ID, price, Description(item), buyerEmail),
		TransactionID: txn.ID,
	}, nil
}

// ProcessNotification reconciles one gateway notification.  The
// checksum is verified before anything is touched; a bad checksum is a
// permanent rejection with no side effects.  A notification for a
// missing or already-resolved transaction is a safe no-op, which is
// what makes duplicate webhook deliveries harmless.  Storage errors
// abort the whole unit of work and leave the row PENDING, so the
// gateway's retry can try again.
func (o *Orchestrator) ProcessNotification(ctx context.Context, n Notification) error {
	if !o.gateway.VerifyNotification(n) {
		return ErrBadSignature
	}
	// The checksum only proves the gateway processed this amount, not
	// that it matches what we quoted.  The store compares the two under
	// the row lock; -1 never matches, so an unparsable amount can only
	// settle as FAILED.
	paidGrosz := int64(-1)
	if g, err := ParseAmount(n.TrAmount); err == nil {
		paidGrosz = g
	}
	res, err := o.purchases.Resolve(ctx, n.TrCRC, n.Paid(), paidGrosz, n.TrID, o.entitlement, o.now())
	if err != nil {
		return err
	}
	if !res.Applied || res.Txn.Status != model.PurchaseSuccess {
		return nil
	}
	// Confirmations are fire-and-forget: the payment is already
	// reconciled, a lost email must not look like a lost payment.
	if o.notifier != nil {
		if err := o.notifier.PurchaseConfirmed(ctx, res.Txn, model.ItemModules(res.Txn.Item)); err != nil {
			log.Printf("payment: purchase confirmation for %s not delivered: %v", res.Txn.ID, err)
		}
	}
	return nil
}
