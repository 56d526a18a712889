package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// HTTPErrorHandler returns an echo.HTTPErrorHandler rendering *Error values
// as {"message": ..., <fields>}. Internal errors are logged and rendered with
// a generic message; when debug is true the cause text is added under
// "error".
func HTTPErrorHandler(log *zap.Logger, debug bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := render(err, debug)
		if status >= http.StatusInternalServerError {
			log.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			log.Warn("write error response", zap.Error(werr))
		}
	}
}

func render(err error, debug bool) (int, map[string]any) {
	var ae *Error
	if errors.As(err, &ae) {
		status := ae.Kind.Status()
		body := make(map[string]any, len(ae.Fields)+2)
		for k, v := range ae.Fields {
			body[k] = v
		}
		if ae.Kind == KindInternal {
			body["message"] = "Internal server error"
			if debug && ae.Cause != nil {
				body["error"] = ae.Error()
			}
			return status, body
		}
		body["message"] = ae.Message
		return status, body
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if s, ok := he.Message.(string); ok && s != "" {
			msg = s
		}
		return he.Code, map[string]any{"message": msg}
	}

	body := map[string]any{"message": "Internal server error"}
	if debug {
		body["error"] = err.Error()
	}
	return http.StatusInternalServerError, body
}
