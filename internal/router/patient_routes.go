package router

import (
	"github.com/labstack/echo/v4"

	"github.com/pzklab/dietetics-api/internal/handler"
	"github.com/pzklab/dietetics-api/internal/middleware"
)

// PatientHandlers bundles the handlers mounted on the patient group so
// RegisterPatient does not take a parameter per endpoint.
type PatientHandlers struct {
	Purchases *handler.PurchaseHandler
	Materials *handler.MaterialHandler
	Notes     *handler.NoteHandler
	Reviews   *handler.ReviewHandler
	Weights   *handler.WeightHandler
}

// RegisterPatient registers patient-scoped endpoints under /v1.  Every
// route requires a valid JWT with the PATIENT role: purchases,
// materials, private notes, the caller's own review and the weight log.
func RegisterPatient(e *echo.Echo, h PatientHandlers, jwtSecret string, rl echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		rl,
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("PATIENT"),
	)

	g.POST("/purchases", h.Purchases.Initiate)
	g.GET("/purchases/:id", h.Purchases.Get)

	g.GET("/materials/:id", h.Materials.Get)
	g.GET("/modules/:module/materials", h.Materials.ListByModule)

	g.GET("/materials/:id/note", h.Notes.Get)
	g.PUT("/materials/:id/note", h.Notes.Put)
	g.DELETE("/materials/:id/note", h.Notes.Delete)

	// Note: GET /v1/reviews is registered on the public router; only
	// the caller's own review lives here.
	g.GET("/reviews/me", h.Reviews.GetMine)
	g.PUT("/reviews/me", h.Reviews.PutMine)
	g.DELETE("/reviews/me", h.Reviews.DeleteMine)

	g.POST("/weights", h.Weights.Create)
	g.GET("/weights", h.Weights.ListMine)
}
