package repository

import (
	"context"
	"database/sql"

	"github.com/pzklab/dietetics-api/internal/model"
)

// MaterialRepo provides read access to the materials table.  Content
// management (creating and editing materials) happens through a
// separate back-office tool; this service only serves them.
type MaterialRepo struct {
	db *sql.DB
}

// NewMaterialRepo returns a MaterialRepo bound to the given database.
func NewMaterialRepo(db *sql.DB) *MaterialRepo { return &MaterialRepo{db: db} }

const materialColumns = `id, module, category, kind, title, status, display_order,
						 content_md, pdf_url, video_url, created_at, updated_at`

func scanMaterial(row interface{ Scan(...any) error }) (model.Material, error) {
	var m model.Material
	var contentMd, pdfURL, videoURL sql.NullString
	err := row.Scan(&m.ID, &m.Module, &m.Category, &m.Kind, &m.Title, &m.Status, &m.DisplayOrder,
		&contentMd, &pdfURL, &videoURL, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return model.Material{}, err
	}
	if contentMd.Valid {
		s := contentMd.String
		m.ContentMd = &s
	}
	if pdfURL.Valid {
		s := pdfURL.String
		m.PDFURL = &s
	}
	if videoURL.Valid {
		s := videoURL.String
		m.VideoURL = &s
	}
	return m, nil
}

// GetByID fetches one material by UUID, whatever its status.  Status
// filtering is the access evaluator's job, not the repository's: the
// evaluator needs the row to decide that a draft must look missing.
// Returns ErrNotFound when no row exists.
func (r *MaterialRepo) GetByID(ctx context.Context, id string) (model.Material, error) {
	const q = `SELECT ` + materialColumns + ` FROM materials WHERE id = ?`
	m, err := scanMaterial(r.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return model.Material{}, ErrNotFound
	}
	return m, err
}

// ListVisibleByModule returns the materials of one module that are
// allowed to appear in listings: PUBLISHED and PUBLISH_SOON rows,
// ordered by category then display order.  DRAFT and ARCHIVED rows are
// filtered in SQL so their titles never leave the database.
func (r *MaterialRepo) ListVisibleByModule(ctx context.Context, module model.Module) ([]model.Material, error) {
	const q = `SELECT ` + materialColumns + ` FROM materials
			   WHERE module = ? AND status IN (?, ?)
			   ORDER BY category, display_order, id`
	rows, err := r.db.QueryContext(ctx, q, module, model.MaterialPublished, model.MaterialPublishSoon)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Material, 0)
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
