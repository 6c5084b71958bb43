package model

import "time"

// Material publication statuses.  DRAFT and ARCHIVED materials are
// hidden entirely (indistinguishable from nonexistent ones);
// PUBLISH_SOON materials are visible but never unlockable; only
// PUBLISHED materials are gated by module access.
const (
	MaterialDraft       = "DRAFT"
	MaterialPublishSoon = "PUBLISH_SOON"
	MaterialPublished   = "PUBLISHED"
	MaterialArchived    = "ARCHIVED"
)

// Material content kinds stored in materials.kind.
const (
	KindArticle = "ARTICLE"
	KindPDF     = "PDF"
	KindVideo   = "VIDEO"
)

// Material is one piece of educational content scoped to a module and
// category, mirroring the `materials` table.  Exactly one of the
// content fields is expected to be populated depending on Kind, but
// the repository does not enforce that.
//
// Fields:
//  ID           – UUID primary key.
//  Module       – content module the material belongs to.
//  Category     – free-form grouping label within the module.
//  Kind         – ARTICLE, PDF or VIDEO.
//  Title        – display title.
//  Status       – publication status (see constants above).
//  DisplayOrder – ordering weight within the category.
//  ContentMd    – markdown body for articles (nullable).
//  PDFURL       – storage URL for PDF materials (nullable).
//  VideoURL     – streaming URL for video materials (nullable).
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type Material struct {
	ID           string    // materials.id
	Module       Module    // materials.module
	Category     string    // materials.category
	Kind         string    // materials.kind
	Title        string    // materials.title
	Status       string    // materials.status
	DisplayOrder uint32    // materials.display_order
	ContentMd    *string   // materials.content_md (nullable)
	PDFURL       *string   // materials.pdf_url (nullable)
	VideoURL     *string   // materials.video_url (nullable)
	CreatedAt    time.Time // materials.created_at
	UpdatedAt    time.Time // materials.updated_at
}

// MaterialNote is a private per-(user, material) text blob, mirroring
// the `material_notes` table.  The pair (UserID, MaterialID) is the
// primary key; writing a note is an upsert.
//
// Fields:
//  UserID     – note owner.
//  MaterialID – material the note is attached to.
//  Body       – note text.
//  UpdatedAt  – timestamp of the last write.
type MaterialNote struct {
	UserID     uint64    // material_notes.user_id
	MaterialID string    // material_notes.material_id
	Body       string    // material_notes.body
	UpdatedAt  time.Time // material_notes.updated_at
}
