package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pzklab/dietetics-api/internal/model"
	"github.com/pzklab/dietetics-api/internal/pagination"
	"github.com/pzklab/dietetics-api/internal/repository"
)

// Sanity bounds for logged weights, in grams (20 kg .. 400 kg).
const (
	weightMinGrams = 20000
	weightMaxGrams = 400000
)

// WeightHandler serves the patients' weight log.
type WeightHandler struct {
	Weights *repository.WeightRepo
	Users   *repository.UserRepo
}

// NewWeightHandler constructs a WeightHandler.
func NewWeightHandler(weights *repository.WeightRepo, users *repository.UserRepo) *WeightHandler {
	return &WeightHandler{Weights: weights, Users: users}
}

type weightResp struct {
	ID          uint64 `json:"id"`
	WeightGrams uint32 `json:"weightGrams"`
	MeasuredAt  string `json:"measuredAt"`
	CreatedAt   string `json:"createdAt"`
}

type createWeightReq struct {
	WeightGrams uint32 `json:"weightGrams"`
	MeasuredAt  string `json:"measuredAt"` // RFC 3339; empty means now
}

func toWeightResp(e model.WeightEntry) weightResp {
	return weightResp{
		ID:          e.ID,
		WeightGrams: e.WeightGrams,
		MeasuredAt:  e.MeasuredAt.UTC().Format(time.RFC3339),
		CreatedAt:   e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Create handles POST /v1/weights.
func (h *WeightHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondErr(c, http.StatusUnauthorized, codeUnauthorized, "authentication required")
	}
	var req createWeightReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, codeValidation, "invalid request body")
	}
	if req.WeightGrams < weightMinGrams || req.WeightGrams > weightMaxGrams {
		return respondErr(c, http.StatusUnprocessableEntity, codeValidation, "weightGrams is out of range")
	}
	measuredAt := time.Now().UTC()
	if req.MeasuredAt != "" {
		t, err := time.Parse(time.RFC3339, req.MeasuredAt)
		if err != nil {
			return respondErr(c, http.StatusUnprocessableEntity, codeValidation, "measuredAt must be an RFC 3339 timestamp")
		}
		if t.After(time.Now().UTC()) {
			return respondErr(c, http.StatusUnprocessableEntity, codeValidation, "measuredAt may not be in the future")
		}
		measuredAt = t.UTC()
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	entry := model.WeightEntry{UserID: userID, WeightGrams: req.WeightGrams, MeasuredAt: measuredAt}
	if err := h.Weights.Create(ctx, &entry); err != nil {
		return respondErr(c, http.StatusInternalServerError, codeInternal, "could not save weight entry")
	}
	return respond(c, http.StatusCreated, toWeightResp(entry))
}

// ListMine handles GET /v1/weights: the caller's own log, newest
// measurement first, cursor paginated.
func (h *WeightHandler) ListMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondErr(c, http.StatusUnauthorized, codeUnauthorized, "authentication required")
	}
	return h.listFor(c, userID)
}

// ListForPatient handles GET /v1/patients/:id/weights for dietitians.
// The target must exist and be a patient; a dietitian's own id is not a
// valid target.
func (h *WeightHandler) ListForPatient(c echo.Context) error {
	patientID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return respondErr(c, http.StatusNotFound, codeNotFound, "patient not found")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, patientID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return respondErr(c, http.StatusNotFound, codeNotFound, "patient not found")
		}
		return respondErr(c, http.StatusInternalServerError, codeInternal, "could not load patient")
	}
	if u.Role != model.RolePatient {
		return respondErr(c, http.StatusNotFound, codeNotFound, "patient not found")
	}
	return h.listFor(c, patientID)
}

func (h *WeightHandler) listFor(c echo.Context, userID uint64) error {
	limit := pagination.DefaultLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return respondErr(c, http.StatusUnprocessableEntity, codeValidation, "limit must be a number")
		}
		limit = pagination.ClampLimit(n)
	}
	cur := pagination.DecodeOrFirstPage(c.QueryParam("cursor"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	items, next, err := h.Weights.ListPageByUser(ctx, userID, limit, cur)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, codeInternal, "could not load weight entries")
	}
	out := make([]weightResp, 0, len(items))
	for _, e := range items {
		out = append(out, toWeightResp(e))
	}
	var nextCursor *string
	if next != nil {
		s := pagination.Encode(*next)
		nextCursor = &s
	}
	return respond(c, http.StatusOK, echo.Map{"items": out, "nextCursor": nextCursor})
}
