package router

import (
	"github.com/labstack/echo/v4"

	"github.com/pzklab/dietetics-api/internal/handler"
	"github.com/pzklab/dietetics-api/internal/middleware"
)

// RegisterDietitian registers dietitian-scoped endpoints under /v1.
// Dietitians review their patients' progress; they do not purchase
// content or log their own weights.
func RegisterDietitian(e *echo.Echo, patients *handler.PatientHandler, weights *handler.WeightHandler, jwtSecret string, rl echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		rl,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("DIETITIAN"),
	)

	g.GET("/patients", patients.List)
	g.GET("/patients/:id/weights", weights.ListForPatient)
}
