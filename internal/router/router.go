// Package router wires HTTP routes to their handlers and middleware.
// Routes are grouped by audience: public, authenticated, patient-only
// and dietitian-only.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/pzklab/dietetics-api/internal/handler"
	"github.com/pzklab/dietetics-api/internal/middleware"
)

// RegisterRoutes registers routes that require no authentication and no
// throttling.  Currently that is only the health check used by load
// balancers and monitoring.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints.  Register, login,
// refresh and logout live under /v1/auth and need no session; /v1/me
// requires a valid access token but no particular role.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, rl echo.MiddlewareFunc) {
	g := e.Group("/v1/auth", rl)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Rotates the refresh token: the presented token is revoked and a
	// new pair is issued.
	g.POST("/refresh", a.Refresh)
	// Logout takes the refresh token in the body, not a JWT: an expired
	// access token must not prevent ending the session.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1", rl, middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterPublic registers unauthenticated endpoints under /v1.  The
// reviews listing is cached in Redis; the payment notification endpoint
// is neither throttled nor cached, because a dropped gateway callback
// delays somebody's paid access.
func RegisterPublic(e *echo.Echo, reviews *handler.ReviewHandler, webhook *handler.WebhookHandler, rl, cache echo.MiddlewareFunc) {
	e.GET("/v1/reviews", reviews.List, rl, cache)
	e.POST("/v1/payments/tpay/notify", webhook.TpayNotify)
}
