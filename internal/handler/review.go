package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pzklab/dietetics-api/internal/model"
	"github.com/pzklab/dietetics-api/internal/pagination"
	"github.com/pzklab/dietetics-api/internal/repository"
)

// ReviewHandler serves program reviews: a public paginated listing and
// the caller's own review (one per user, write is an upsert).
type ReviewHandler struct {
	Reviews *repository.ReviewRepo
}

// NewReviewHandler constructs a ReviewHandler.
func NewReviewHandler(reviews *repository.ReviewRepo) *ReviewHandler {
	return &ReviewHandler{Reviews: reviews}
}

type reviewResp struct {
	ID        uint64 `json:"id"`
	Rating    uint8  `json:"rating"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

type putReviewReq struct {
	Rating  uint8  `json:"rating"`
	Content string `json:"content"`
}

func toReviewResp(v model.Review) reviewResp {
	return reviewResp{
		ID:        v.ID,
		Rating:    v.Rating,
		Content:   v.Content,
		CreatedAt: v.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: v.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// List handles GET /v1/reviews: a public keyset-paginated listing.
// Query parameters: sort (created_at|updated_at), limit, cursor.  A
// malformed cursor silently restarts from the first page.
func (h *ReviewHandler) List(c echo.Context) error {
	sort := pagination.ParseSort(c.QueryParam("sort"))
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

	items, next, err := h.Reviews.ListPage(ctx, sort, limit, cur)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, codeInternal, "could not load reviews")
	}

	out := make([]reviewResp, 0, len(items))
	for _, v := range items {
		out = append(out, toReviewResp(v))
	}
	var nextCursor *string
	if next != nil {
		s := pagination.Encode(*next)
		nextCursor = &s
	}
	return respond(c, http.StatusOK, echo.Map{"items": out, "nextCursor": nextCursor})
}

// GetMine handles GET /v1/reviews/me.
func (h *ReviewHandler) GetMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondErr(c, http.StatusUnauthorized, codeUnauthorized, "authentication required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	v, err := h.Reviews.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return respondErr(c, http.StatusNotFound, codeNotFound, "you have not written a review")
		}
		return respondErr(c, http.StatusInternalServerError, codeInternal, "could not load review")
	}
	return respond(c, http.StatusOK, toReviewResp(v))
}

// PutMine handles PUT /v1/reviews/me: create or replace the caller's
// review.  Rating must be within the 1..6 scale, content within the
// length limit; a second write by the same user replaces the first.
func (h *ReviewHandler) PutMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondErr(c, http.StatusUnauthorized, codeUnauthorized, "authentication required")
	}
	var req putReviewReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, codeValidation, "invalid request body")
	}
	if req.Rating < model.ReviewRatingMin || req.Rating > model.ReviewRatingMax {
		return respondErr(c, http.StatusUnprocessableEntity, codeValidation, "rating must be between 1 and 6")
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		return respondErr(c, http.StatusUnprocessableEntity, codeValidation, "content is required")
	}
	if len(req.Content) > model.ReviewContentLimit {
		return respondErr(c, http.StatusUnprocessableEntity, codeValidation, "content is too long")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	v, err := h.Reviews.Upsert(ctx, userID, req.Rating, req.Content)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, codeInternal, "could not save review")
	}
	return respond(c, http.StatusOK, toReviewResp(v))
}

// DeleteMine handles DELETE /v1/reviews/me.
func (h *ReviewHandler) DeleteMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return respondErr(c, http.StatusUnauthorized, codeUnauthorized, "authentication required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Reviews.DeleteByUser(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return respondErr(c, http.StatusNotFound, codeNotFound, "you have not written a review")
		}
		return respondErr(c, http.StatusInternalServerError, codeInternal, "could not delete review")
	}
	return c.NoContent(http.StatusNoContent)
}
