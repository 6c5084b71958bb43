package repository

import (
	"context"
	"database/sql"

	"github.com/pzklab/dietetics-api/internal/model"
)

// NoteRepo stores private per-(user, material) notes.  The pair is the
// primary key, so a write is an upsert and each user sees only their
// own note for a material.
type NoteRepo struct {
	db *sql.DB
}

// NewNoteRepo returns a NoteRepo bound to the given database.
func NewNoteRepo(db *sql.DB) *NoteRepo { return &NoteRepo{db: db} }

// Get returns the caller's note for a material.  ErrNotFound when the
// user has not written one.
func (r *NoteRepo) Get(ctx context.Context, userID uint64, materialID string) (model.MaterialNote, error) {
	const q = `SELECT user_id, material_id, body, updated_at
			   FROM material_notes WHERE user_id = ? AND material_id = ?`
	var n model.MaterialNote
	err := r.db.QueryRowContext(ctx, q, userID, materialID).Scan(&n.UserID, &n.MaterialID, &n.Body, &n.UpdatedAt)
	if err == sql.ErrNoRows {
		return model.MaterialNote{}, ErrNotFound
	}
	return n, err
}

// Upsert creates or replaces the caller's note for a material.
func (r *NoteRepo) Upsert(ctx context.Context, userID uint64, materialID, body string) error {
	const q = `INSERT INTO material_notes (user_id, material_id, body)
			   VALUES (?, ?, ?)
			   ON DUPLICATE KEY UPDATE body = VALUES(body)`
	_, err := r.db.ExecContext(ctx, q, userID, materialID, body)
	return err
}

// Delete removes the caller's note for a material.  Deleting a note
// that does not exist returns ErrNotFound.
func (r *NoteRepo) Delete(ctx context.Context, userID uint64, materialID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM material_notes WHERE user_id = ? AND material_id = ?`,
		userID, materialID)
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
