package repository

import (
	"context"
	"database/sql"

	"github.com/pzklab/dietetics-api/internal/model"
)

// GrantRepo provides read access to the access_grants table and insert
// helpers used inside the purchase resolution transaction.  Grants are
// append-only: nothing here updates or deletes rows (administrative
// revocation flips revoked_at through a separate tool).
type GrantRepo struct {
	db *sql.DB
}

// NewGrantRepo returns a GrantRepo bound to the given database.
func NewGrantRepo(db *sql.DB) *GrantRepo { return &GrantRepo{db: db} }

const grantColumns = `id, user_id, module, start_at, expires_at, revoked_at, purchase_id, created_at`

func scanGrant(row interface{ Scan(...any) error }) (model.AccessGrant, error) {
	var g model.AccessGrant
	var revokedAt sql.NullTime
	var purchaseID sql.NullString
	err := row.Scan(&g.ID, &g.UserID, &g.Module, &g.StartAt, &g.ExpiresAt, &revokedAt, &purchaseID, &g.CreatedAt)
	if err != nil {
		return model.AccessGrant{}, err
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		g.RevokedAt = &t
	}
	if purchaseID.Valid {
		p := purchaseID.String
		g.PurchaseID = &p
	}
	return g, nil
}

// ListByUserModule returns every grant ever recorded for the (user,
// module) pair, newest first.  The caller decides which ones are active;
// the repository does not bake the evaluation instant into SQL so access
// checks stay deterministic under a caller-supplied clock.
func (r *GrantRepo) ListByUserModule(ctx context.Context, userID uint64, module model.Module) ([]model.AccessGrant, error) {
	const q = `SELECT ` + grantColumns + ` FROM access_grants
			   WHERE user_id = ? AND module = ?
			   ORDER BY start_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID, module)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	grants := make([]model.AccessGrant, 0)
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, g)
	}
	return grants, rows.Err()
}

// CreateBulkTx inserts the given grants within an existing transaction.
// Used by the purchase resolution unit of work so the grants commit
// together with the transaction's terminal status.  Passing an empty
// slice has no effect and returns nil.
func (r *GrantRepo) CreateBulkTx(ctx context.Context, tx *sql.Tx, grants []model.AccessGrant) error {
	if len(grants) == 0 {
		return nil
	}
	query := `INSERT INTO access_grants (user_id, module, start_at, expires_at, purchase_id) VALUES `
	args := make([]interface{}, 0, len(grants)*5)
	for i, g := range grants {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?)"
		args = append(args, g.UserID, g.Module, g.StartAt, g.ExpiresAt, g.PurchaseID)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}
