package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/water-network-api/internal/apperr"
	"github.com/iliyamo/water-network-api/internal/config"
	"github.com/iliyamo/water-network-api/internal/model"
	"github.com/iliyamo/water-network-api/internal/token"
)

type fixture struct {
	e     *echo.Echo
	svc   *token.Service
	now   time.Time
	admin string
	user  string
}

const (
	adminID = "00000000-0000-4000-8000-00000000000a"
	userID  = "00000000-0000-4000-8000-00000000000b"
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fx := &fixture{now: time.Now()}
	fx.svc = token.NewService(token.Config{
		AccessSecret:  "access",
		RefreshSecret: "refresh",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
	}, nil, token.WithClock(func() time.Time { return fx.now }))

	var err error
	fx.admin, err = fx.svc.IssueAccessToken(token.Subject{ID: adminID, Role: model.RoleAdmin})
	require.NoError(t, err)
	fx.user, err = fx.svc.IssueAccessToken(token.Subject{ID: userID, Role: model.RoleUser})
	require.NoError(t, err)

	e := echo.New()
	e.HTTPErrorHandler = apperr.HTTPErrorHandler(zap.NewNop(), false)
	whoami := func(c echo.Context) error {
		cl, ok := Claims(c)
		return c.JSON(http.StatusOK, map[string]any{"id": UserID(c), "role": Role(c), "claims": ok && cl.UserID == UserID(c)})
	}
	e.GET("/me", whoami, Authenticate(fx.svc))
	e.GET("/admin", whoami, Admin(fx.svc)...)
	e.GET("/users/:id", whoami, SelfOrAdmin(fx.svc)...)
	fx.e = e
	return fx
}

func (fx *fixture) do(t *testing.T, path, auth string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	fx.e.ServeHTTP(rec, req)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestAuthenticate(t *testing.T) {
	fx := newFixture(t)

	code, body := fx.do(t, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, msgNoToken, body["message"])

	code, body = fx.do(t, "/me", "Bearer ")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, msgNoToken, body["message"])

	code, body = fx.do(t, "/me", "Bearer not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, msgTokenInvalid, body["message"])

	code, body = fx.do(t, "/me", "Bearer "+fx.user)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, userID, body["id"])
	assert.Equal(t, "user", body["role"])
	assert.Equal(t, true, body["claims"])

	fx.now = fx.now.Add(2 * time.Hour)
	code, body = fx.do(t, "/me", "Bearer "+fx.user)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, msgTokenExpired, body["message"])
}

func TestAdminChain(t *testing.T) {
	fx := newFixture(t)

	code, body := fx.do(t, "/admin", "")
	assert.Equal(t, http.StatusUnauthorized, code, "role gate never runs without a token")
	assert.Equal(t, msgNoToken, body["message"])

	code, body = fx.do(t, "/admin", "Bearer "+fx.user)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, msgAdminOnly, body["message"])

	code, _ = fx.do(t, "/admin", "Bearer "+fx.admin)
	assert.Equal(t, http.StatusOK, code)
}

func TestSelfOrAdmin(t *testing.T) {
	fx := newFixture(t)

	code, _ := fx.do(t, "/users/"+userID, "Bearer "+fx.user)
	assert.Equal(t, http.StatusOK, code)

	code, _ = fx.do(t, "/users/"+adminID, "Bearer "+fx.user)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = fx.do(t, "/users/"+userID, "Bearer "+fx.admin)
	assert.Equal(t, http.StatusOK, code)

	code, _ = fx.do(t, "/users/"+userID, "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestCachePassThroughWithoutRedis(t *testing.T) {
	rc := NewResponseCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, Prefix: "cache:network"}, nil, nil)
	e := echo.New()
	calls := 0
	h := func(c echo.Context) error {
		calls++
		return c.String(http.StatusOK, "fresh")
	}
	e.GET("/nodes", h, rc.Middleware())
	e.POST("/nodes", h, rc.Purge())

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nodes", nil))
		assert.Equal(t, "fresh", rec.Body.String())
		assert.Empty(t, rec.Header().Get("X-Cache"))
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/nodes", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, calls)
}

func TestCacheKeyStrategy(t *testing.T) {
	e := echo.New()
	keyFor := func(strategy, target string) string {
		rc := NewResponseCache(config.CacheConfig{KeyStrategy: strategy, Prefix: "cache:network"}, nil, nil)
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/api/network/nodes/search")
		return rc.key(c)
	}

	a := keyFor("route_query", "/api/network/nodes/search?type=source")
	b := keyFor("route_query", "/api/network/nodes/search?type=junction")
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "cache:network:")

	assert.Equal(t,
		keyFor("route", "/api/network/nodes/search?type=source"),
		keyFor("route", "/api/network/nodes/search?type=junction"))
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`[]`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `[]`, string(body))

	_, _, _, ok = decodePayload([]byte{0, 0, 0})
	assert.False(t, ok)
	_, _, _, ok = decodePayload([]byte{0, 0, 0, 200, 0, 0, 1, 0})
	assert.False(t, ok)
}

func TestReplayHeadersKeepsCurrentRequestID(t *testing.T) {
	dst := http.Header{}
	dst.Set(echo.HeaderXRequestID, "current")
	cached := http.Header{
		echo.HeaderXRequestID:    {"stale"},
		echo.HeaderContentLength: {"2"},
		echo.HeaderContentType:   {"application/json"},
		"X-Cache":                {"MISS"},
	}

	replayHeaders(dst, cached)
	assert.Equal(t, []string{"current"}, dst.Values(echo.HeaderXRequestID))
	assert.Equal(t, "application/json", dst.Get(echo.HeaderContentType))
	assert.Empty(t, dst.Get(echo.HeaderContentLength))
	assert.Empty(t, dst.Get("X-Cache"))
}

func TestRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "10.0.0.7:4242"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/auth/login")

	cfg := config.RateLimitConfig{Prefix: "rl", KeyStrategy: "ip_route"}
	assert.Equal(t, "rl:ip:10.0.0.7:route:POST /api/auth/login", rateKey(cfg, c))

	cfg.KeyStrategy = "user"
	assert.Equal(t, "rl:user:anon", rateKey(cfg, c))
	c.Set(ctxUserID, userID)
	assert.Equal(t, "rl:user:"+userID, rateKey(cfg, c))
}

func TestRateLimitDisabled(t *testing.T) {
	e := echo.New()
	e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		RateLimit(config.RateLimitConfig{Enabled: true}, nil, nil))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
