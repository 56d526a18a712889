package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/water-network-api/internal/apperr"
	"github.com/iliyamo/water-network-api/internal/queue"
	"github.com/iliyamo/water-network-api/internal/repository"
	"github.com/iliyamo/water-network-api/internal/validation"
)

// NetworkHandler serves the node and pipe routes under /api/network.
type NetworkHandler struct {
	Nodes  *repository.NodeRepo
	Pipes  *repository.PipeRepo
	events notifier
}

// NewNetworkHandler panics on missing stores. pub may be nil to disable
// change events.
func NewNetworkHandler(nodes *repository.NodeRepo, pipes *repository.PipeRepo, pub queue.Publisher, log *zap.Logger) *NetworkHandler {
	if nodes == nil || pipes == nil {
		panic("nil repository passed to NewNetworkHandler")
	}
	return &NetworkHandler{Nodes: nodes, Pipes: pipes, events: notifier{pub: pub, log: log}}
}

const msgNodeNotFound = "Node not found"

func nodeFilter(c echo.Context) (repository.NodeFilter, error) {
	f := repository.NodeFilter{
		Types:  queryList(c, "type"),
		Status: c.QueryParam("status"),
		Name:   c.QueryParam("name"),
	}
	for _, q := range []struct {
		name string
		dst  **float64
	}{
		{"minLatitude", &f.MinLatitude},
		{"maxLatitude", &f.MaxLatitude},
		{"minLongitude", &f.MinLongitude},
		{"maxLongitude", &f.MaxLongitude},
		{"minCapacity", &f.MinCapacity},
		{"maxCapacity", &f.MaxCapacity},
	} {
		v, err := queryFloat(c, q.name)
		if err != nil {
			return f, err
		}
		*q.dst = v
	}
	return f, nil
}

// ListNodes returns every node.
func (h *NetworkHandler) ListNodes(c echo.Context) error {
	ctx, cancel := storeCtx(c)
	defer cancel()

	nodes, err := h.Nodes.Search(ctx, repository.NodeFilter{})
	if err != nil {
		return apperr.Internal("list nodes", err)
	}
	return c.JSON(http.StatusOK, nodes)
}

// SearchNodes narrows the node list by every supplied query parameter.
func (h *NetworkHandler) SearchNodes(c echo.Context) error {
	f, err := nodeFilter(c)
	if err != nil {
		return err
	}
	ctx, cancel := storeCtx(c)
	defer cancel()

	nodes, err := h.Nodes.Search(ctx, f)
	if err != nil {
		return apperr.Internal("search nodes", err)
	}
	return c.JSON(http.StatusOK, nodes)
}

func (h *NetworkHandler) GetNode(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	ctx, cancel := storeCtx(c)
	defer cancel()

	n, err := h.Nodes.GetByID(ctx, id)
	if err != nil {
		return storeErr(err, msgNodeNotFound, "load node")
	}
	return c.JSON(http.StatusOK, n)
}

func (h *NetworkHandler) CreateNode(c echo.Context) error {
	var in validation.NodeInput
	if err := bind(c, &in); err != nil {
		return err
	}
	n, err := validation.NewNode(in)
	if err != nil {
		return err
	}

	ctx, cancel := storeCtx(c)
	defer cancel()

	if err := h.Nodes.Create(ctx, &n); err != nil {
		return apperr.Internal("create node", err)
	}
	h.events.emit(c, queue.EntityNode, queue.ActionCreated, n.ID, n)
	return c.JSON(http.StatusCreated, n)
}

// UpdateNode applies a partial update. The id in the path is authoritative;
// an id in the body is ignored.
func (h *NetworkHandler) UpdateNode(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in validation.NodeInput
	if err := bind(c, &in); err != nil {
		return err
	}

	ctx, cancel := storeCtx(c)
	defer cancel()

	cur, err := h.Nodes.GetByID(ctx, id)
	if err != nil {
		return storeErr(err, msgNodeNotFound, "load node")
	}
	changes, err := validation.NodeChanges(*cur, in)
	if err != nil {
		return err
	}
	n, err := h.Nodes.Update(ctx, id, changes)
	if err != nil {
		return storeErr(err, msgNodeNotFound, "update node")
	}
	if len(changes) > 0 {
		h.events.emit(c, queue.EntityNode, queue.ActionUpdated, n.ID, n)
	}
	return c.JSON(http.StatusOK, n)
}

// DeleteNode refuses to remove a node while pipes still reference it and
// lists those pipes in the response.
func (h *NetworkHandler) DeleteNode(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	ctx, cancel := storeCtx(c)
	defer cancel()

	n, err := h.Nodes.GetByID(ctx, id)
	if err != nil {
		return storeErr(err, msgNodeNotFound, "load node")
	}
	pipes, err := h.Pipes.ReferencingNode(ctx, id)
	if err != nil {
		return apperr.Internal("find connected pipes", err)
	}
	if len(pipes) > 0 {
		return apperr.Conflict("Cannot delete node. It is connected to existing pipes.").
			With("connectedPipes", pipes)
	}
	if err := h.Nodes.Delete(ctx, id); err != nil {
		return storeErr(err, msgNodeNotFound, "delete node")
	}
	h.events.emit(c, queue.EntityNode, queue.ActionDeleted, id, n)
	return c.JSON(http.StatusOK, echo.Map{"message": "Node deleted successfully"})
}
