package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/water-network-api/internal/apperr"
	"github.com/iliyamo/water-network-api/internal/queue"
	"github.com/iliyamo/water-network-api/internal/repository"
)

func ctxFor(target string) echo.Context {
	return echo.New().NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
}

func TestPathID(t *testing.T) {
	c := ctxFor("/")
	c.SetParamNames("id")
	c.SetParamValues("5d8f0b3e-6c1a-4f2e-9b7d-2a4c6e8f0a1b")
	id, err := pathID(c)
	require.NoError(t, err)
	assert.Equal(t, "5d8f0b3e-6c1a-4f2e-9b7d-2a4c6e8f0a1b", id)

	c.SetParamValues("42")
	_, err = pathID(c)
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
}

func TestNodeFilterFromQuery(t *testing.T) {
	f, err := nodeFilter(ctxFor("/?type=source,%20junction,&minLatitude=39.1&maxCapacity=10&name=tank&status=active"))
	require.NoError(t, err)
	assert.Equal(t, []string{"source", "junction"}, f.Types)
	require.NotNil(t, f.MinLatitude)
	assert.Equal(t, 39.1, *f.MinLatitude)
	assert.Nil(t, f.MaxLatitude)
	require.NotNil(t, f.MaxCapacity)
	assert.Equal(t, 10.0, *f.MaxCapacity)
	assert.Equal(t, "tank", f.Name)
	assert.Equal(t, "active", f.Status)

	_, err = nodeFilter(ctxFor("/?maxLongitude=east"))
	assert.Equal(t, apperr.KindBadRequest, apperr.KindOf(err))
}

func TestPipeFilterFromQuery(t *testing.T) {
	f, err := pipeFilter(ctxFor("/?status=high&minFlow=0.5&maxLength=300&kind=referential"))
	require.NoError(t, err)
	assert.Equal(t, "high", f.Status)
	assert.Equal(t, "referential", f.Kind)
	assert.Equal(t, 0.5, *f.MinFlow)
	assert.Equal(t, 300.0, *f.MaxLength)
	assert.Nil(t, f.MaxFlow)

	_, err = pipeFilter(ctxFor("/?minLength=1e"))
	assert.Error(t, err)
}

func TestStoreErr(t *testing.T) {
	err := storeErr(repository.ErrNotFound, "Node not found", "load node")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
	assert.EqualError(t, err, "Node not found")

	err = storeErr(errors.New("connection reset"), "x", "load node")
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

	orig := apperr.ValidationFailed("bad")
	assert.Same(t, orig, storeErr(orig, "x", "y"))
}

type failingPublisher struct{ calls int }

func (p *failingPublisher) Publish(context.Context, queue.NetworkChangedEvent) error {
	p.calls++
	return errors.New("broker down")
}

func TestNotifierLogsPublishFailure(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	pub := &failingPublisher{}
	n := notifier{pub: pub, log: zap.New(core)}

	n.emit(ctxFor("/"), queue.EntityNode, queue.ActionCreated, "n1", nil)
	assert.Equal(t, 1, pub.calls)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "publish network event failed", logs.All()[0].Message)

	assert.NotPanics(t, func() { notifier{}.emit(ctxFor("/"), queue.EntityPipe, queue.ActionDeleted, "p1", nil) })
}
