package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/pzklab/dietetics-api/internal/repository"
)

// PatientHandler serves the dietitian's patient overview.
type PatientHandler struct {
	Users   *repository.UserRepo
	Weights *repository.WeightRepo
}

// NewPatientHandler constructs a PatientHandler.
func NewPatientHandler(users *repository.UserRepo, weights *repository.WeightRepo) *PatientHandler {
	return &PatientHandler{Users: users, Weights: weights}
}

type patientResp struct {
	ID           uint64        `json:"id"`
	Email        string        `json:"email"`
	RegisteredAt string        `json:"registeredAt"`
	LatestWeight *weightResp   `json:"latestWeight"`
}

// List handles GET /v1/patients: every active patient account with its
// most recent weight measurement, when one exists.
func (h *PatientHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	patients, err := h.Users.ListPatients(ctx)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, codeInternal, "could not load patients")
	}

	out := make([]patientResp, 0, len(patients))
	for _, u := range patients {
		p := patientResp{
			ID:           u.ID,
			Email:        u.Email,
			RegisteredAt: u.CreatedAt.UTC().Format(time.RFC3339),
		}
		latest, err := h.Weights.LatestForUser(ctx, u.ID)
		switch {
		case err == nil:
			w := toWeightResp(latest)
			p.LatestWeight = &w
		case errors.Is(err, repository.ErrNotFound):
			// patient has not logged anything yet
		default:
			return respondErr(c, http.StatusInternalServerError, codeInternal, "could not load weight entries")
		}
		out = append(out, p)
	}
	return respond(c, http.StatusOK, echo.Map{"items": out})
}
