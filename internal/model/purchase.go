package model

import "time"

// Purchase item identifiers accepted by the purchase endpoint and
// stored in purchase_transactions.item.  ItemAll is the full-program
// bundle and resolves to one grant per module.
const (
	ItemModule1 = "MODULE_1"
	ItemModule2 = "MODULE_2"
	ItemModule3 = "MODULE_3"
	ItemAll     = "ALL"
)

// Purchase transaction statuses.  A transaction starts PENDING and is
// resolved exactly once to SUCCESS or FAILED by the payment gateway
// callback; both of those states are terminal.  A transaction that is
// never resolved stays PENDING forever, which is acceptable (the buyer
// abandoned the hosted payment form).
const (
	PurchasePending = "PENDING"
	PurchaseSuccess = "SUCCESS"
	PurchaseFailed  = "FAILED"
)

// ItemModules resolves a purchase item to the set of modules it
// unlocks.  It returns nil for an unknown item.
func ItemModules(item string) []Module {
	switch item {
	case ItemModule1:
		return []Module{Module1}
	case ItemModule2:
		return []Module{Module2}
	case ItemModule3:
		return []Module{Module3}
	case ItemAll:
		return AllModules
	}
	return nil
}

// PurchaseTransaction records one attempt to buy a module or bundle,
// mirroring the `purchase_transactions` table.  Its ID is a UUID that
// doubles as the correlation token (tr_crc) handed to the payment
// gateway, so a webhook delivery can be matched back to the row.
//
// Fields:
//  ID          – UUID primary key; gateway correlation token.
//  UserID      – buyer.
//  Item        – purchased item (MODULE_1..MODULE_3 or ALL).
//  AmountGrosz – price in grosze (integer cents, no floats).
//  Status      – PENDING, SUCCESS or FAILED.
//  TpayTransactionID – gateway-side transaction id, set on resolution.
//  CreatedAt   – when the purchase was initiated.
//  ResolvedAt  – when the gateway callback resolved it (null while pending).
type PurchaseTransaction struct {
	ID                string     // purchase_transactions.id
	UserID            uint64     // purchase_transactions.user_id
	Item              string     // purchase_transactions.item
	AmountGrosz       int64      // purchase_transactions.amount_grosz
	Status            string     // purchase_transactions.status
	TpayTransactionID *string    // purchase_transactions.tpay_transaction_id (nullable)
	CreatedAt         time.Time  // purchase_transactions.created_at
	ResolvedAt        *time.Time // purchase_transactions.resolved_at (nullable)
}

// Terminal reports whether the transaction has been resolved.  A
// terminal transaction must never be re-processed by a duplicate
// webhook delivery.
func (p PurchaseTransaction) Terminal() bool {
	return p.Status == PurchaseSuccess || p.Status == PurchaseFailed
}

// PurchaseResolution reports what a resolve attempt did.  Applied is
// false when the transaction was missing or already terminal; the
// remaining fields are only meaningful when Applied is true.
type PurchaseResolution struct {
	Applied bool
	Txn     PurchaseTransaction
	Grants  []AccessGrant
}
