package handler

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"
)

// errUnauthenticated is returned by getUserID when no usable identity is
// present in the context. Handlers translate it into a 401 response.
var errUnauthenticated = errors.New("unauthenticated")

// getUserID extracts the authenticated user's ID stored by the JWTAuth
// middleware. It fails when the middleware did not run or stored an
// unexpected type.
func getUserID(c echo.Context) (uint64, error) {
	v, ok := c.Get("user_id").(uint64)
	if !ok || v == 0 {
		return 0, errUnauthenticated
	}
	return v, nil
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid " + name)
	}
	return id, nil
}
