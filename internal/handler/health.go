package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is the liveness probe used by load balancers.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Root answers GET / with a plain banner.
func Root(c echo.Context) error {
	return c.String(http.StatusOK, "Back End Up and Running!")
}
