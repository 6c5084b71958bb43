package handler

import (
	"context"      // provides context with cancellation for DB calls
	"database/sql" // SQL sentinel errors
	"net/http"     // HTTP status codes and primitives
	"strings"      // string manipulation utilities
	"time"         // timeouts for DB calls

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/pzklab/dietetics-api/internal/config"     // app configuration
	"github.com/pzklab/dietetics-api/internal/model"      // domain types
	"github.com/pzklab/dietetics-api/internal/repository" // DB repositories
	"github.com/pzklab/dietetics-api/internal/utils"      // helper functions (hashing, token issuing)
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"` // PATIENT | DIETITIAN
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

// Register: create user and return tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, codeValidation, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return respondErr(c, http.StatusBadRequest, codeValidation, "email/password required")
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	if role != model.RoleDietitian && role != model.RolePatient {
		role = model.RolePatient
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Email, req.Password, role, h.Cfg.BcryptCost)
	if err != nil {
		if err == repository.ErrEmailExists {
			return respondErr(c, http.StatusConflict, codeConflict, "email already exists")
		}
		if err == utils.ErrPasswordTooLong {
			return respondErr(c, http.StatusBadRequest, codeValidation, "password too long")
		}
		return respondErr(c, http.StatusInternalServerError, codeInternal, "create user failed")
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, uid, role, h.Cfg.AccessTTLMin)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, codeInternal, "issue access failed")
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, codeInternal, "issue refresh failed")
	}
	if err := h.Tokens.StoreRefresh(ctx, uid, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return respondErr(c, http.StatusInternalServerError, codeInternal, "save refresh failed")
	}

	return respond(c, http.StatusCreated, authResp{
		User:    userPart{ID: uid, Email: req.Email, Role: role},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	})
}

// Login: verify and return new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return respondErr(c, http.StatusBadRequest, codeValidation, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return respondErr(c, http.StatusBadRequest, codeValidation, "email/password required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return respondErr(c, http.StatusUnauthorized, codeUnauthorized, "invalid credentials")
		}
		return respondErr(c, http.StatusInternalServerError, codeInternal, "lookup failed")
	}
	if !u.IsActive || !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return respondErr(c, http.StatusUnauthorized, codeUnauthorized, "invalid credentials")
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, codeInternal, "issue access failed")
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, codeInternal, "issue refresh failed")
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return respondErr(c, http.StatusInternalServerError, codeInternal, "save refresh failed")
	}

	return respond(c, http.StatusOK, authResp{
		User:    userPart{ID: u.ID, Email: u.Email, Role: u.Role},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	})
}

// Refresh: rotate the refresh token and issue a new access token.  The
// presented token is revoked so each refresh token works exactly once.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return respondErr(c, http.StatusBadRequest, codeValidation, "refresh_token required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))
	uid, err := h.Tokens.ValidateRefresh(ctx, hash)
	if err != nil {
		if err == sql.ErrNoRows {
			return respondErr(c, http.StatusUnauthorized, codeUnauthorized, "invalid refresh token")
		}
		return respondErr(c, http.StatusInternalServerError, codeInternal, "lookup failed")
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, codeInternal, "lookup failed")
	}

	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return respondErr(c, http.StatusInternalServerError, codeInternal, "revoke failed")
	}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, codeInternal, "issue access failed")
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return respondErr(c, http.StatusInternalServerError, codeInternal, "issue refresh failed")
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return respondErr(c, http.StatusInternalServerError, codeInternal, "save refresh failed")
	}

	return respond(c, http.StatusOK, authResp{
		User:    userPart{ID: u.ID, Email: u.Email, Role: u.Role},
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp},
	})
}

// Logout: invalidate the presented refresh token.  Does not require a
// JWT; a valid refresh token in the body is proof enough of the session.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return respondErr(c, http.StatusBadRequest, codeValidation, "refresh_token required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))
	if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
		if err == sql.ErrNoRows {
			return respondErr(c, http.StatusUnauthorized, codeUnauthorized, "invalid refresh token")
		}
		return respondErr(c, http.StatusInternalServerError, codeInternal, "lookup failed")
	}
	if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
		return respondErr(c, http.StatusInternalServerError, codeInternal, "revoke failed")
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return respondErr(c, http.StatusUnauthorized, codeUnauthorized, "unauthorized")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if err == sql.ErrNoRows {
			return respondErr(c, http.StatusNotFound, codeNotFound, "user not found")
		}
		return respondErr(c, http.StatusInternalServerError, codeInternal, "lookup failed")
	}
	return respond(c, http.StatusOK, userPart{ID: u.ID, Email: u.Email, Role: u.Role})
}
