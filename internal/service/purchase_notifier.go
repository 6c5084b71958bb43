package queue_publisher

import (
	"context"
	"log"
	"time"

	"github.com/pzklab/dietetics-api/internal/model"
	q "github.com/pzklab/dietetics-api/internal/queue"
	"github.com/pzklab/dietetics-api/internal/repository"
)

// PurchaseNotifier adapts the queue publisher to the payment
// orchestrator's Notifier interface.  The buyer email lookup is
// best-effort: if it fails the event still goes out and the consumer
// addresses the confirmation by user id.
type PurchaseNotifier struct {
	Users *repository.UserRepo
}

// NewPurchaseNotifier returns a notifier that resolves buyer emails
// through the given user repository.
func NewPurchaseNotifier(users *repository.UserRepo) *PurchaseNotifier {
	return &PurchaseNotifier{Users: users}
}

// PurchaseConfirmed publishes a purchase.confirmed event for a
// successfully resolved transaction.
func (n *PurchaseNotifier) PurchaseConfirmed(ctx context.Context, txn model.PurchaseTransaction, modules []model.Module) error {
	email := ""
	if n.Users != nil {
		if u, err := n.Users.GetByID(ctx, txn.UserID); err == nil {
			email = u.Email
		} else {
			log.Printf("purchase-notifier: email lookup for user %d failed: %v", txn.UserID, err)
		}
	}
	mods := make([]uint8, 0, len(modules))
	for _, m := range modules {
		mods = append(mods, uint8(m))
	}
	confirmedAt := time.Now().UTC()
	if txn.ResolvedAt != nil {
		confirmedAt = *txn.ResolvedAt
	}
	return PublishPurchaseConfirmed(ctx, q.PurchaseConfirmedEvent{
		TransactionID: txn.ID,
		UserID:        txn.UserID,
		BuyerEmail:    email,
		Item:          txn.Item,
		Modules:       mods,
		AmountGrosz:   txn.AmountGrosz,
		ConfirmedAt:   confirmedAt.Format(time.RFC3339),
	})
}
