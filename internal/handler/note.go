package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pzklab/dietetics-api/internal/access"
	"github.com/pzklab/dietetics-api/internal/repository"
)

// noteBodyLimit caps a private note's length.
const noteBodyLimit = 20000

// NoteHandler serves private per-(user, material) notes.  A note is
// only reachable through its material: whatever the evaluator says
// about the material applies to the note too.
type NoteHandler struct {
	Notes     *repository.NoteRepo
	Materials *repository.MaterialRepo
	Evaluator *access.Evaluator
}

// NewNoteHandler constructs a NoteHandler.
func NewNoteHandler(notes *repository.NoteRepo, materials *repository.MaterialRepo, evaluator *access.Evaluator) *NoteHandler {
	return &NoteHandler{Notes: notes, Materials: materials, Evaluator: evaluator}
}

type noteResp struct {
	MaterialID string `json:"materialId"`
	Body       string `json:"body"`
	UpdatedAt  string `json:"updatedAt"`
}

type putNoteReq struct {
	Body string `json:"body"`
}

// requireUnlocked resolves the material and checks the caller may use
// it.  It writes the error response itself and reports success through
// the bool.
func (h *NoteHandler) requireUnlocked(ctx context.Context, c echo.Context, userID uint64, materialID string) bool {
	m, err := h.Materials.GetByID(ctx, materialID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = respondErr(c, http.StatusNotFound, codeNotFound, "material not found")
		} else {
			_ = respondErr(c, http.StatusInternalServerError, codeInternal, "could not load material")
		}
		return false
	}
	res, err := h.Evaluator.EvaluateMaterial(ctx, userID, m, time.Now().UTC())
	if err != nil {
		_ = respondErr(c, http.StatusInternalServerError, codeInternal, "could not evaluate access")
		return false
	}
	switch res.State {
	case access.StateNotFound:
		_ = respondErr(c, http.StatusNotFound, codeNotFound, "material not found")
		return false
	case access.StateLocked:
		_ = respondErr(c, http.StatusForbidden, codeForbidden, "material is locked")
		return false
	}
	return true
}

// Get handles GET /v1/materials/:id/note.
func (h *NoteHandler) Get(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondErr(c, http.StatusUnauthorized, codeUnauthorized, "authentication required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	materialID := c.Param("id")
	if !h.requireUnlocked(ctx, c, userID, materialID) {
		return nil
	}
	n, err := h.Notes.Get(ctx, userID, materialID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return respondErr(c, http.StatusNotFound, codeNotFound, "no note for this material")
		}
		return respondErr(c, http.StatusInternalServerError, codeInternal, "could not load note")
	}
	return respond(c, http.StatusOK, noteResp{
		MaterialID: n.MaterialID,
		Body:       n.Body,
		UpdatedAt:  n.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

// Put handles PUT /v1/materials/:id/note: create or replace the
// caller's note for the material.
func (h *NoteHandler) Put(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondErr(c, http.StatusUnauthorized, codeUnauthorized, "authentication required")
	}
	var req putNoteReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, codeValidation, "invalid request body")
	}
	if strings.TrimSpace(req.Body) == "" {
		return respondErr(c, http.StatusUnprocessableEntity, codeValidation, "body is required")
	}
	if len(req.Body) > noteBodyLimit {
		return respondErr(c, http.StatusUnprocessableEntity, codeValidation, "body is too long")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	materialID := c.Param("id")
	if !h.requireUnlocked(ctx, c, userID, materialID) {
		return nil
	}
	if err := h.Notes.Upsert(ctx, userID, materialID, req.Body); err != nil {
		return respondErr(c, http.StatusInternalServerError, codeInternal, "could not save note")
	}
	n, err := h.Notes.Get(ctx, userID, materialID)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, codeInternal, "could not load note")
	}
	return respond(c, http.StatusOK, noteResp{
		MaterialID: n.MaterialID,
		Body:       n.Body,
		UpdatedAt:  n.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

// Delete handles DELETE /v1/materials/:id/note.
func (h *NoteHandler) Delete(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondErr(c, http.StatusUnauthorized, codeUnauthorized, "authentication required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	materialID := c.Param("id")
	if !h.requireUnlocked(ctx, c, userID, materialID) {
		return nil
	}
	if err := h.Notes.Delete(ctx, userID, materialID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return respondErr(c, http.StatusNotFound, codeNotFound, "no note for this material")
		}
		return respondErr(c, http.StatusInternalServerError, codeInternal, "could not delete note")
	}
	return c.NoContent(http.StatusNoContent)
}
