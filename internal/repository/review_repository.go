package repository

import (
	"context"
	"database/sql"

	"github.com/pzklab/dietetics-api/internal/model"
	"github.com/pzklab/dietetics-api/internal/pagination"
)

// ReviewRepo stores program reviews.  The user_id column carries a
// unique index, so each user has at most one review and a write is an
// upsert keyed by user.
type ReviewRepo struct {
	db *sql.DB
}

// NewReviewRepo returns a ReviewRepo bound to the given database.
func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{db: db} }

const reviewColumns = `id, user_id, rating, content, created_at, updated_at`

func scanReview(row interface{ Scan(...any) error }) (model.Review, error) {
	var v model.Review
	err := row.Scan(&v.ID, &v.UserID, &v.Rating, &v.Content, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

// GetByUser returns the caller's review, or ErrNotFound.
func (r *ReviewRepo) GetByUser(ctx context.Context, userID uint64) (model.Review, error) {
	const q = `SELECT ` + reviewColumns + ` FROM reviews WHERE user_id = ?`
	v, err := scanReview(r.db.QueryRowContext(ctx, q, userID))
	if err == sql.ErrNoRows {
		return model.Review{}, ErrNotFound
	}
	return v, err
}

// Upsert creates or replaces the caller's review and returns the stored
// row.  Two upserts by the same user leave exactly one row, reflecting
// the latest rating and content.
func (r *ReviewRepo) Upsert(ctx context.Context, userID uint64, rating uint8, content string) (model.Review, error) {
	const q = `INSERT INTO reviews (user_id, rating, content)
			   VALUES (?, ?, ?)
			   ON DUPLICATE KEY UPDATE rating = VALUES(rating), content = VALUES(content)`
	if _, err := r.db.ExecContext(ctx, q, userID, rating, content); err != nil {
		return model.Review{}, err
	}
	return r.GetByUser(ctx, userID)
}

// DeleteByUser removes the caller's review.  ErrNotFound when the user
// never wrote one.
func (r *ReviewRepo) DeleteByUser(ctx context.Context, userID uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE user_id = ?`, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPage fetches one keyset page of reviews ordered by the sort field
// descending with id descending as tie-break.  It reads limit+1 rows:
// when the extra row comes back a next page exists and the returned
// cursor points at the last row actually returned.  A nil cursor means
// the first page.
func (r *ReviewRepo) ListPage(ctx context.Context, sort pagination.SortField, limit int, cur *pagination.Cursor) ([]model.Review, *pagination.Cursor, error) {
	// sort comes from pagination.ParseSort, never from raw client input,
	// so interpolating the column name is safe.
	col := string(sort)
	q := `SELECT ` + reviewColumns + ` FROM reviews`
	args := make([]interface{}, 0, 3)
	if cur != nil {
		q += ` WHERE ` + col + ` < ? OR (` + col + ` = ? AND id < ?)`
		args = append(args, cur.Ts, cur.Ts, cur.ID)
	}
	q += ` ORDER BY ` + col + ` DESC, id DESC LIMIT ?`
	args = append(args, limit+1)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()
	items := make([]model.Review, 0, limit+1)
	for rows.Next() {
		v, err := scanReview(rows)
		if err != nil {
			return nil, nil, err
		}
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	items, next := pagination.Page(items, limit, func(v model.Review) pagination.Cursor {
		ts := v.CreatedAt
		if sort == pagination.SortUpdatedAt {
			ts = v.UpdatedAt
		}
		return pagination.Cursor{Ts: ts, ID: v.ID}
	})
	return items, next, nil
}
