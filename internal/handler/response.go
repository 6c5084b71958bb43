package handler

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
)

// Error codes shared by every endpoint.  Clients dispatch on these, so
// they are part of the API contract and must stay stable.
const (
	codeValidation   = "validation"
	codeUnauthorized = "unauthorized"
	codeForbidden    = "forbidden"
	codeNotFound     = "not_found"
	codeConflict     = "conflict"
	codeInternal     = "internal"
)

// respond writes the uniform success envelope: data set, error null.
func respond(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, echo.Map{"data": data, "error": nil})
}

// respondErr writes the uniform error envelope: data null, error set.
// extra keys (e.g. a redirect target on conflicts) are merged into the
// error object.
func respondErr(c echo.Context, status int, code, message string, extra ...echo.Map) error {
	e := echo.Map{"code": code, "message": message}
	for _, m := range extra {
		for k, v := range m {
			e[k] = v
		}
	}
	return c.JSON(status, echo.Map{"data": nil, "error": e})
}

// getUserID extracts the authenticated user's id from the context where
// JWTAuth stored it.  The claim travels through JSON, so it may arrive
// as any numeric type or a string.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}
