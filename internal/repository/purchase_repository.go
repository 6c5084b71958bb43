package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/pzklab/dietetics-api/internal/model"
)

// PurchaseRepo provides CRUD operations for purchase transactions.  The
// id column is a client-generated UUID that doubles as the payment
// gateway's correlation token, so lookups by id serve the webhook path.
type PurchaseRepo struct {
	db     *sql.DB
	grants *GrantRepo
}

// NewPurchaseRepo returns a PurchaseRepo bound to the given database.
// The grant repository is used inside Resolve so that grant insertion
// shares the resolving transaction.
func NewPurchaseRepo(db *sql.DB, grants *GrantRepo) *PurchaseRepo {
	return &PurchaseRepo{db: db, grants: grants}
}

// Create inserts a new PENDING purchase transaction.
func (r *PurchaseRepo) Create(ctx context.Context, txn *model.PurchaseTransaction) error {
	const q = `INSERT INTO purchase_transactions (id, user_id, item, amount_grosz, status)
			   VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q, txn.ID, txn.UserID, txn.Item, txn.AmountGrosz, txn.Status)
	return err
}

// GetByID fetches a purchase transaction.  Returns ErrNotFound when no
// row exists.
func (r *PurchaseRepo) GetByID(ctx context.Context, id string) (model.PurchaseTransaction, error) {
	const q = `SELECT id, user_id, item, amount_grosz, status, tpay_transaction_id, created_at, resolved_at
			   FROM purchase_transactions WHERE id = ?`
	txn, err := scanPurchase(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return model.PurchaseTransaction{}, ErrNotFound
	}
	return txn, err
}

func scanPurchase(row interface{ Scan(...any) error }) (model.PurchaseTransaction, error) {
	var t model.PurchaseTransaction
	var tpayID sql.NullString
	var resolvedAt sql.NullTime
	err := row.Scan(&t.ID, &t.UserID, &t.Item, &t.AmountGrosz, &t.Status, &tpayID, &t.CreatedAt, &resolvedAt)
	if err != nil {
		return model.PurchaseTransaction{}, err
	}
	if tpayID.Valid {
		s := tpayID.String
		t.TpayTransactionID = &s
	}
	if resolvedAt.Valid {
		ts := resolvedAt.Time
		t.ResolvedAt = &ts
	}
	return t, nil
}

// Resolve converts a PENDING transaction into its terminal state and,
// on success, creates the corresponding access grants atomically.
//
// The row is read with FOR UPDATE so two concurrent webhook deliveries
// for the same transaction serialize on the row lock: the loser of the
// race re-reads a terminal status after the winner commits and no-ops.
// A missing row or an already-terminal row is reported as Applied=false
// with no error; duplicate deliveries are expected, not exceptional.
// Any storage error rolls the whole unit back, leaving the row PENDING
// so the gateway's redelivery can retry.
//
// A notification that reports success but carries an amount other than
// the row's amount_grosz settles the transaction as FAILED: the gateway
// collected a different sum than the one this purchase was priced at,
// so no grants may be issued for it.
func (r *PurchaseRepo) Resolve(ctx context.Context, txnID string, success bool, paidGrosz int64, tpayTxnID string, entitlement time.Duration, now time.Time) (model.PurchaseResolution, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.PurchaseResolution{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const sel = `SELECT id, user_id, item, amount_grosz, status, tpay_transaction_id, created_at, resolved_at
				 FROM purchase_transactions WHERE id = ? FOR UPDATE`
	txn, err := scanPurchase(tx.QueryRowContext(ctx, sel, txnID))
	if err == sql.ErrNoRows {
		return model.PurchaseResolution{}, nil
	}
	if err != nil {
		return model.PurchaseResolution{}, err
	}
	if txn.Terminal() {
		// Duplicate delivery: the first processing already settled this
		// transaction.  Commit the empty read and report a no-op.
		if err := tx.Commit(); err != nil {
			return model.PurchaseResolution{}, err
		}
		committed = true
		return model.PurchaseResolution{}, nil
	}

	if success && txn.AmountGrosz != paidGrosz {
		success = false
	}
	status := model.PurchaseFailed
	if success {
		status = model.PurchaseSuccess
	}
	const upd = `UPDATE purchase_transactions
				 SET status = ?, tpay_transaction_id = ?, resolved_at = ?
				 WHERE id = ?`
	if _, err := tx.ExecContext(ctx, upd, status, tpayTxnID, now, txnID); err != nil {
		return model.PurchaseResolution{}, err
	}
	txn.Status = status
	txn.TpayTransactionID = &tpayTxnID
	txn.ResolvedAt = &now

	var grants []model.AccessGrant
	if success {
		for _, m := range model.ItemModules(txn.Item) {
			id := txn.ID
			grants = append(grants, model.AccessGrant{
				UserID:     txn.UserID,
				Module:     m,
				StartAt:    now,
				ExpiresAt:  now.Add(entitlement),
				PurchaseID: &id,
			})
		}
		if err := r.grants.CreateBulkTx(ctx, tx, grants); err != nil {
			return model.PurchaseResolution{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return model.PurchaseResolution{}, err
	}
	committed = true
	return model.PurchaseResolution{Applied: true, Txn: txn, Grants: grants}, nil
}
