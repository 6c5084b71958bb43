package queue

// PurchaseConfirmedEvent is published when a payment notification
// resolves a purchase transaction as successful.  It carries enough
// information for downstream consumers to send the buyer confirmation
// and the internal notification without querying the primary database.
type PurchaseConfirmedEvent struct {
	TransactionID string  `json:"transaction_id"`
	UserID        uint64  `json:"user_id"`
	BuyerEmail    string  `json:"buyer_email"`
	Item          string  `json:"item"`
	Modules       []uint8 `json:"modules"`
	AmountGrosz   int64   `json:"amount_grosz"`
	ConfirmedAt   string  `json:"confirmed_at"`
}
