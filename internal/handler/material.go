package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pzklab/dietetics-api/internal/access"
	"github.com/pzklab/dietetics-api/internal/model"
	"github.com/pzklab/dietetics-api/internal/repository"
)

// MaterialHandler serves educational materials gated by module access.
type MaterialHandler struct {
	Materials *repository.MaterialRepo
	Evaluator *access.Evaluator
}

// NewMaterialHandler constructs a MaterialHandler.
func NewMaterialHandler(materials *repository.MaterialRepo, evaluator *access.Evaluator) *MaterialHandler {
	return &MaterialHandler{Materials: materials, Evaluator: evaluator}
}

// materialResp is the full material payload.  The content fields are
// nulled out when the material is locked: a locked response carries
// metadata only, never the body the lock is protecting.
type materialResp struct {
	ID           string  `json:"id"`
	Module       uint8   `json:"module"`
	Category     string  `json:"category"`
	Kind         string  `json:"kind"`
	Title        string  `json:"title"`
	DisplayOrder uint32  `json:"displayOrder"`
	IsLocked     bool    `json:"isLocked"`
	LockReason   *string `json:"lockReason"`
	ContentMd    *string `json:"contentMd"`
	PDFURL       *string `json:"pdfUrl"`
	VideoURL     *string `json:"videoUrl"`
	UpdatedAt    string  `json:"updatedAt"`
}

// materialListItem is the listing payload: metadata plus the lock
// state, no content at all.
type materialListItem struct {
	ID           string  `json:"id"`
	Category     string  `json:"category"`
	Kind         string  `json:"kind"`
	Title        string  `json:"title"`
	DisplayOrder uint32  `json:"displayOrder"`
	IsLocked     bool    `json:"isLocked"`
	LockReason   *string `json:"lockReason"`
}

func lockReasonPtr(r access.Reason) *string {
	if r == "" {
		return nil
	}
	s := string(r)
	return &s
}

// Get handles GET /v1/materials/:id.  Drafts, archived materials and
// unknown ids all produce the same 404, so probing ids leaks nothing
// about unpublished content.
func (h *MaterialHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondErr(c, http.StatusUnauthorized, codeUnauthorized, "authentication required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	m, err := h.Materials.GetByID(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return respondErr(c, http.StatusNotFound, codeNotFound, "material not found")
		}
		return respondErr(c, http.StatusInternalServerError, codeInternal, "could not load material")
	}

	res, err := h.Evaluator.EvaluateMaterial(ctx, userID, m, time.Now().UTC())
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, codeInternal, "could not evaluate access")
	}
	if res.State == access.StateNotFound {
		return respondErr(c, http.StatusNotFound, codeNotFound, "material not found")
	}

	out := materialResp{
		ID:           m.ID,
		Module:       uint8(m.Module),
		Category:     m.Category,
		Kind:         m.Kind,
		Title:        m.Title,
		DisplayOrder: m.DisplayOrder,
		IsLocked:     res.State == access.StateLocked,
		LockReason:   lockReasonPtr(res.Reason),
		UpdatedAt:    m.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if res.State == access.StateUnlocked {
		out.ContentMd = m.ContentMd
		out.PDFURL = m.PDFURL
		out.VideoURL = m.VideoURL
	}
	return respond(c, http.StatusOK, out)
}

// ListByModule handles GET /v1/modules/:module/materials.  The listing
// is visible to everyone authenticated, locked entries included, so the
// client can render the module's table of contents with lock badges.
func (h *MaterialHandler) ListByModule(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondErr(c, http.StatusUnauthorized, codeUnauthorized, "authentication required")
	}
	module, ok := parseModule(c.Param("module"))
	if !ok {
		return respondErr(c, http.StatusNotFound, codeNotFound, "module not found")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	materials, err := h.Materials.ListVisibleByModule(ctx, module)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, codeInternal, "could not load materials")
	}

	now := time.Now().UTC()
	// One access check covers the whole module; only coming-soon rows
	// need a per-item decision on top of it.
	hasAccess, err := h.Evaluator.HasActiveAccess(ctx, userID, module, now)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, codeInternal, "could not evaluate access")
	}

	items := make([]materialListItem, 0, len(materials))
	for _, m := range materials {
		it := materialListItem{
			ID:           m.ID,
			Category:     m.Category,
			Kind:         m.Kind,
			Title:        m.Title,
			DisplayOrder: m.DisplayOrder,
		}
		switch {
		case m.Status == model.MaterialPublishSoon:
			it.IsLocked = true
			it.LockReason = lockReasonPtr(access.ReasonPublishSoon)
		case !hasAccess:
			it.IsLocked = true
			it.LockReason = lockReasonPtr(access.ReasonNoModuleAccess)
		}
		items = append(items, it)
	}
	return respond(c, http.StatusOK, echo.Map{"module": uint8(module), "items": items})
}

// parseModule converts a path segment into a valid content module.
func parseModule(s string) (model.Module, bool) {
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, false
	}
	m := model.Module(n)
	return m, model.ValidModule(m)
}
