package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/water-network-api/internal/model"
	"github.com/iliyamo/water-network-api/internal/token"
)

// UserID returns the authenticated caller's id, or "" for anonymous
// requests.
func UserID(c echo.Context) string {
	s, _ := c.Get(ctxUserID).(string)
	return s
}

// Role returns the authenticated caller's role, or "" for anonymous
// requests.
func Role(c echo.Context) model.Role {
	s, _ := c.Get(ctxRole).(string)
	return model.Role(s)
}

// Claims returns the verified token claims stored by Authenticate.
func Claims(c echo.Context) (*token.Claims, bool) {
	cl, ok := c.Get(ctxClaims).(*token.Claims)
	return cl, ok && cl != nil
}
