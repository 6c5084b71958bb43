package repository

import (
	"context"
	"database/sql"

	"github.com/pzklab/dietetics-api/internal/model"
	"github.com/pzklab/dietetics-api/internal/pagination"
)

// WeightRepo stores patients' weight log entries.
type WeightRepo struct {
	db *sql.DB
}

// NewWeightRepo returns a WeightRepo bound to the given database.
func NewWeightRepo(db *sql.DB) *WeightRepo { return &WeightRepo{db: db} }

// Create inserts a weight entry and populates its generated ID and
// creation timestamp.
func (r *WeightRepo) Create(ctx context.Context, e *model.WeightEntry) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO weight_entries (user_id, weight_grams, measured_at) VALUES (?, ?, ?)`,
		e.UserID, e.WeightGrams, e.MeasuredAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = uint64(id)
	return r.db.QueryRowContext(ctx,
		`SELECT created_at FROM weight_entries WHERE id = ?`, e.ID).Scan(&e.CreatedAt)
}

// ListPageByUser fetches one keyset page of a user's weight entries,
// newest measurement first, following the same limit+1 contract as the
// reviews listing.  Entries are ordered by measured_at with id as the
// tie-break, so two measurements taken at the same instant still page
// deterministically.
func (r *WeightRepo) ListPageByUser(ctx context.Context, userID uint64, limit int, cur *pagination.Cursor) ([]model.WeightEntry, *pagination.Cursor, error) {
	q := `SELECT id, user_id, weight_grams, measured_at, created_at
		  FROM weight_entries WHERE user_id = ?`
	args := []interface{}{userID}
	if cur != nil {
		q += ` AND (measured_at < ? OR (measured_at = ? AND id < ?))`
		args = append(args, cur.Ts, cur.Ts, cur.ID)
	}
	q += ` ORDER BY measured_at DESC, id DESC LIMIT ?`
	args = append(args, limit+1)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	items := make([]model.WeightEntry, 0, limit+1)
	for rows.Next() {
		var e model.WeightEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.WeightGrams, &e.MeasuredAt, &e.CreatedAt); err != nil {
			return nil, nil, err
		}
		items = append(items, e)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	items, next := pagination.Page(items, limit, func(e model.WeightEntry) pagination.Cursor {
		return pagination.Cursor{Ts: e.MeasuredAt, ID: e.ID}
	})
	return items, next, nil
}

// LatestForUser returns the most recent measurement for a patient, or
// ErrNotFound when the log is empty.  Used by the dietitian's patient
// overview.
func (r *WeightRepo) LatestForUser(ctx context.Context, userID uint64) (model.WeightEntry, error) {
	var e model.WeightEntry
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, weight_grams, measured_at, created_at
		 FROM weight_entries WHERE user_id = ?
		 ORDER BY measured_at DESC, id DESC LIMIT 1`,
		userID).Scan(&e.ID, &e.UserID, &e.WeightGrams, &e.MeasuredAt, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return model.WeightEntry{}, ErrNotFound
	}
	return e, err
}
