package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/water-network-api/internal/apperr"
	"github.com/iliyamo/water-network-api/internal/middleware"
	"github.com/iliyamo/water-network-api/internal/queue"
	"github.com/iliyamo/water-network-api/internal/repository"
)

// storeTimeout bounds every store call made while serving a request.
const storeTimeout = 5 * time.Second

func storeCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), storeTimeout)
}

// pathID returns the :id parameter, which must be a UUID.
func pathID(c echo.Context) (string, error) {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return "", apperr.BadRequest("Invalid id format")
	}
	return id, nil
}

func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return apperr.BadRequest("Invalid request body")
	}
	return nil
}

// queryFloat parses an optional numeric query parameter. Absent or blank
// values yield nil.
func queryFloat(c echo.Context, name string) (*float64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, apperr.BadRequest("Invalid value for " + name)
	}
	return &v, nil
}

// queryList splits a comma-separated query parameter, dropping blanks.
func queryList(c echo.Context, name string) []string {
	var out []string
	for _, p := range strings.Split(c.QueryParam(name), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// storeErr maps repository errors to application errors. Errors that are
// already *apperr.Error pass through.
func storeErr(err error, notFoundMsg, op string) error {
	var ae *apperr.Error
	switch {
	case errors.As(err, &ae):
		return ae
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(notFoundMsg)
	default:
		return apperr.Internal(op, err)
	}
}

// notifier publishes change events. Failures are logged and never reach
// the client.
type notifier struct {
	pub queue.Publisher
	log *zap.Logger
}

func (n notifier) emit(c echo.Context, entity queue.Entity, action queue.Action, id string, payload any) {
	if n.pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	ev := queue.NewEvent(entity, action, id, middleware.UserID(c), payload)
	if err := n.pub.Publish(ctx, ev); err != nil && n.log != nil {
		n.log.Warn("publish network event failed",
			zap.String("entity", string(entity)),
			zap.String("action", string(action)),
			zap.String("id", id),
			zap.Error(err),
		)
	}
}
