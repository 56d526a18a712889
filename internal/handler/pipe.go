package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/water-network-api/internal/apperr"
	"github.com/iliyamo/water-network-api/internal/model"
	"github.com/iliyamo/water-network-api/internal/queue"
	"github.com/iliyamo/water-network-api/internal/repository"
	"github.com/iliyamo/water-network-api/internal/validation"
)

const msgPipeNotFound = "Pipe not found"

func pipeFilter(c echo.Context) (repository.PipeFilter, error) {
	f := repository.PipeFilter{
		Status: c.QueryParam("status"),
		Kind:   c.QueryParam("kind"),
	}
	var err error
	if f.MinFlow, err = queryFloat(c, "minFlow"); err != nil {
		return f, err
	}
	if f.MaxFlow, err = queryFloat(c, "maxFlow"); err != nil {
		return f, err
	}
	if f.MinLength, err = queryFloat(c, "minLength"); err != nil {
		return f, err
	}
	if f.MaxLength, err = queryFloat(c, "maxLength"); err != nil {
		return f, err
	}
	return f, nil
}

// requireNodes checks that every referenced node exists, one lookup per
// endpoint.
func (h *NetworkHandler) requireNodes(ctx context.Context, refs ...nodeRef) error {
	for _, r := range refs {
		ok, err := h.Nodes.Exists(ctx, r.id)
		if err != nil {
			return apperr.Internal("check node", err)
		}
		if !ok {
			return apperr.ValidationFailed(r.label + " node not found")
		}
	}
	return nil
}

type nodeRef struct {
	label string
	id    string
}

func (h *NetworkHandler) ListPipes(c echo.Context) error {
	ctx, cancel := storeCtx(c)
	defer cancel()

	pipes, err := h.Pipes.Search(ctx, repository.PipeFilter{})
	if err != nil {
		return apperr.Internal("list pipes", err)
	}
	return c.JSON(http.StatusOK, pipes)
}

func (h *NetworkHandler) SearchPipes(c echo.Context) error {
	f, err := pipeFilter(c)
	if err != nil {
		return err
	}
	ctx, cancel := storeCtx(c)
	defer cancel()

	pipes, err := h.Pipes.Search(ctx, f)
	if err != nil {
		return apperr.Internal("search pipes", err)
	}
	return c.JSON(http.StatusOK, pipes)
}

func (h *NetworkHandler) GetPipe(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	ctx, cancel := storeCtx(c)
	defer cancel()

	p, err := h.Pipes.GetByID(ctx, id)
	if err != nil {
		return storeErr(err, msgPipeNotFound, "load pipe")
	}
	return c.JSON(http.StatusOK, p)
}

// CreatePipe stores a referential pipe (startNode/endNode) or a geometric
// one (coordinates), depending on which the body supplies.
func (h *NetworkHandler) CreatePipe(c echo.Context) error {
	var in validation.PipeInput
	if err := bind(c, &in); err != nil {
		return err
	}
	p, err := validation.NewPipe(in)
	if err != nil {
		return err
	}

	ctx, cancel := storeCtx(c)
	defer cancel()

	if p.Kind == model.PipeReferential {
		if err := h.requireNodes(ctx, nodeRef{"Start", *p.StartNodeID}, nodeRef{"End", *p.EndNodeID}); err != nil {
			return err
		}
	}
	if err := h.Pipes.Create(ctx, &p); err != nil {
		return apperr.Internal("create pipe", err)
	}
	h.events.emit(c, queue.EntityPipe, queue.ActionCreated, p.ID, p)
	return c.JSON(http.StatusCreated, p)
}

func (h *NetworkHandler) UpdatePipe(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in validation.PipeInput
	if err := bind(c, &in); err != nil {
		return err
	}

	ctx, cancel := storeCtx(c)
	defer cancel()

	cur, err := h.Pipes.GetByID(ctx, id)
	if err != nil {
		return storeErr(err, msgPipeNotFound, "load pipe")
	}
	changes, err := validation.PipeChanges(*cur, in)
	if err != nil {
		return err
	}
	var refs []nodeRef
	if v, ok := changes["start_node"].(string); ok {
		refs = append(refs, nodeRef{"Start", v})
	}
	if v, ok := changes["end_node"].(string); ok {
		refs = append(refs, nodeRef{"End", v})
	}
	if err := h.requireNodes(ctx, refs...); err != nil {
		return err
	}

	p, err := h.Pipes.Update(ctx, id, changes)
	if err != nil {
		return storeErr(err, msgPipeNotFound, "update pipe")
	}
	if len(changes) > 0 {
		h.events.emit(c, queue.EntityPipe, queue.ActionUpdated, p.ID, p)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *NetworkHandler) DeletePipe(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	ctx, cancel := storeCtx(c)
	defer cancel()

	p, err := h.Pipes.Delete(ctx, id)
	if err != nil {
		return storeErr(err, msgPipeNotFound, "delete pipe")
	}
	h.events.emit(c, queue.EntityPipe, queue.ActionDeleted, id, p)
	return c.JSON(http.StatusOK, echo.Map{"message": "Pipe deleted successfully", "deletedPipe": p})
}
