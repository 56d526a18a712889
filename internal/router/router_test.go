package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/water-network-api/internal/database/dbtest"
	"github.com/iliyamo/water-network-api/internal/handler"
	"github.com/iliyamo/water-network-api/internal/metrics"
	"github.com/iliyamo/water-network-api/internal/queue"
	"github.com/iliyamo/water-network-api/internal/repository"
	"github.com/iliyamo/water-network-api/internal/token"
)

type api struct {
	t *testing.T
	e *echo.Echo
}

func newAPI(t *testing.T) *api {
	t.Helper()
	db := dbtest.Open(t)
	users := repository.NewUserRepo(db)
	tokens := token.NewService(token.Config{
		AccessSecret:  "access-secret",
		RefreshSecret: "refresh-secret",
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
	}, token.NewMemorySet())
	m := metrics.New("network", prometheus.NewRegistry())

	e := New(Deps{
		Verifier: tokens,
		Auth:     handler.NewAuthHandler(users, tokens, bcrypt.MinCost, m),
		Users:    handler.NewUserHandler(users, bcrypt.MinCost),
		Network:  handler.NewNetworkHandler(repository.NewNodeRepo(db), repository.NewPipeRepo(db), queue.NopPublisher{}, nil),
		Metrics:  m,
	})
	return &api{t: t, e: e}
}

func (a *api) call(method, path, bearer string, body any) (int, map[string]any, []byte) {
	a.t.Helper()
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(a.t, err)
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	var obj map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &obj)
	return rec.Code, obj, rec.Body.Bytes()
}

func (a *api) login(name, email, role string) (access, refresh string) {
	a.t.Helper()
	code, body, _ := a.call(http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": name, "email": email, "password": "pw-" + name, "role": role,
	})
	require.Equal(a.t, http.StatusCreated, code, body)
	assert.Equal(a.t, "User registered successfully!", body["message"])

	code, body, _ = a.call(http.MethodPost, "/api/auth/login", "", map[string]any{"email": email, "password": "pw-" + name})
	require.Equal(a.t, http.StatusOK, code, body)
	return body["accessToken"].(string), body["refreshToken"].(string)
}

func TestServiceEndpoints(t *testing.T) {
	a := newAPI(t)

	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "Back End Up and Running!", rec.Body.String())

	rec = httptest.NewRecorder()
	a.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	a.e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "network_http_requests_total")

	code, body, _ := a.call(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.NotEmpty(t, body["message"])
}

func TestAuthFlow(t *testing.T) {
	a := newAPI(t)
	access, refresh := a.login("Maria", "maria@example.com", "")

	code, body, _ := a.call(http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Again", "email": "MARIA@example.com", "password": "x",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Email already exists", body["message"])

	code, body, _ = a.call(http.MethodPost, "/api/auth/register", "", map[string]any{"name": "NoMail", "password": "x"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body, _ = a.call(http.MethodPost, "/api/auth/login", "", map[string]any{"email": "ghost@example.com", "password": "x"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "User not found", body["message"])

	code, body, _ = a.call(http.MethodPost, "/api/auth/login", "", map[string]any{"email": "maria@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid credentials", body["message"])

	code, body, _ = a.call(http.MethodGet, "/api/auth/me", access, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "user", body["role"])

	code, body, _ = a.call(http.MethodPost, "/api/auth/refresh", "", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "Refresh token not provided", body["message"])

	code, body, _ = a.call(http.MethodPost, "/api/auth/refresh", "", map[string]any{"refreshToken": access})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Invalid refresh token", body["message"])

	for i := 0; i < 2; i++ {
		code, body, _ = a.call(http.MethodPost, "/api/auth/refresh", "", map[string]any{"refreshToken": refresh})
		require.Equal(t, http.StatusOK, code, "refresh token is reusable")
		assert.NotEmpty(t, body["accessToken"])
	}

	code, body, _ = a.call(http.MethodPost, "/api/auth/logout", "", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Refresh token not provided", body["message"])

	for i := 0; i < 2; i++ {
		code, body, _ = a.call(http.MethodPost, "/api/auth/logout", "", map[string]any{"refreshToken": refresh})
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, "Logged out successfully", body["message"])
	}

	code, body, _ = a.call(http.MethodPost, "/api/auth/refresh", "", map[string]any{"refreshToken": refresh})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Refresh token has been revoked", body["message"])
}

func TestUserRoutes(t *testing.T) {
	a := newAPI(t)
	adminTok, _ := a.login("Admin", "admin@example.com", "admin")
	userTok, _ := a.login("Petros", "petros@example.com", "user")
	a.login("Sofia", "sofia@example.com", "user")

	code, _, _ := a.call(http.MethodGet, "/api/user/users", userTok, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _, raw := a.call(http.MethodGet, "/api/user/users", adminTok, nil)
	require.Equal(t, http.StatusOK, code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list, 3)
	ids := map[string]string{}
	for _, u := range list {
		assert.NotContains(t, u, "password")
		ids[u["email"].(string)] = u["id"].(string)
	}

	code, _, _ = a.call(http.MethodGet, "/api/user/"+ids["sofia@example.com"], userTok, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, body, _ := a.call(http.MethodGet, "/api/user/not-a-uuid", adminTok, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid id format", body["message"])

	petros := ids["petros@example.com"]
	code, body, _ = a.call(http.MethodPut, "/api/user/"+petros, userTok, map[string]any{
		"name": "Petros K.", "password": "new-pw", "role": "admin",
	})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "User updated successfully", body["message"])
	user := body["user"].(map[string]any)
	assert.Equal(t, "Petros K.", user["name"])
	assert.Equal(t, "user", user["role"], "role cannot be changed through profile update")

	code, _, _ = a.call(http.MethodPost, "/api/auth/login", "", map[string]any{"email": "petros@example.com", "password": "new-pw"})
	assert.Equal(t, http.StatusOK, code)

	code, body, _ = a.call(http.MethodPut, "/api/user/"+petros, userTok, map[string]any{"email": "sofia@example.com"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Email already exists", body["message"])

	code, _, _ = a.call(http.MethodDelete, "/api/user/"+petros, userTok, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, body, _ = a.call(http.MethodDelete, "/api/user/"+petros, adminTok, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "User deleted successfully", body["message"])
	code, body, _ = a.call(http.MethodGet, "/api/user/"+petros, adminTok, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "User not found", body["message"])
}

func TestOverlongPasswordRejected(t *testing.T) {
	a := newAPI(t)
	long := strings.Repeat("p", 73)

	code, body, _ := a.call(http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Nikos", "email": "nikos@example.com", "password": long,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Password must be at most 72 bytes", body["message"])

	adminTok, _ := a.login("Admin", "admin@example.com", "admin")
	code, _, raw := a.call(http.MethodGet, "/api/user/users", adminTok, nil)
	require.Equal(t, http.StatusOK, code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(raw, &list))
	require.Len(t, list, 1)

	code, body, _ = a.call(http.MethodPut, "/api/user/"+list[0]["id"].(string), adminTok, map[string]any{"password": long})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Password must be at most 72 bytes", body["message"])
}

func TestNetworkLifecycle(t *testing.T) {
	a := newAPI(t)
	admin, _ := a.login("Admin", "admin@example.com", "admin")
	user, _ := a.login("Viewer", "viewer@example.com", "user")

	nodeA := map[string]any{"name": "A", "type": "source", "location": map[string]any{"latitude": 39.6, "longitude": 19.9}}
	code, _, _ := a.call(http.MethodPost, "/api/network/node", "", nodeA)
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _, _ = a.call(http.MethodPost, "/api/network/node", user, nodeA)
	assert.Equal(t, http.StatusForbidden, code)

	code, a1, _ := a.call(http.MethodPost, "/api/network/node", admin, nodeA)
	require.Equal(t, http.StatusCreated, code, a1)
	aID := a1["id"].(string)
	assert.Equal(t, "active", a1["status"])

	code, b1, _ := a.call(http.MethodPost, "/api/network/node", admin, map[string]any{
		"name": "B", "type": "junction", "location": map[string]any{"latitude": 39.61, "longitude": 19.91},
	})
	require.Equal(t, http.StatusCreated, code)
	bID := b1["id"].(string)

	code, body, _ := a.call(http.MethodPost, "/api/network/node", admin, map[string]any{
		"name": "Out", "type": "source", "location": map[string]any{"latitude": 40.0, "longitude": 19.9},
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Node location must be within Corfu Island bounds", body["message"])

	code, _, raw := a.call(http.MethodGet, "/api/network/nodes/search?type=source,junction", "", nil)
	require.Equal(t, http.StatusOK, code)
	var found []map[string]any
	require.NoError(t, json.Unmarshal(raw, &found))
	assert.Len(t, found, 2)

	code, _, _ = a.call(http.MethodGet, "/api/network/nodes/search?minLatitude=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, body, _ = a.call(http.MethodPost, "/api/network/pipe", admin, map[string]any{
		"startNode": aID, "endNode": "7f1c0a52-3d4e-4b7a-9a51-000000000000",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "End node not found", body["message"])

	code, pipe, _ := a.call(http.MethodPost, "/api/network/pipe", admin, map[string]any{"startNode": aID, "endNode": bID, "flow": 3})
	require.Equal(t, http.StatusCreated, code, pipe)
	pipeID := pipe["id"].(string)
	assert.Equal(t, "referential", pipe["kind"])

	code, body, _ = a.call(http.MethodDelete, "/api/network/node/"+aID, admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Cannot delete node. It is connected to existing pipes.", body["message"])
	assert.Equal(t, []any{pipeID}, body["connectedPipes"])

	code, body, _ = a.call(http.MethodDelete, "/api/network/pipe/"+pipeID, admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Pipe deleted successfully", body["message"])
	assert.Equal(t, pipeID, body["deletedPipe"].(map[string]any)["id"])

	code, body, _ = a.call(http.MethodDelete, "/api/network/node/"+aID, admin, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Node deleted successfully", body["message"])

	code, _, _ = a.call(http.MethodGet, "/api/network/node/"+aID, "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _, _ = a.call(http.MethodDelete, "/api/network/pipe/"+pipeID, admin, nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _, _ = a.call(http.MethodDelete, "/api/network/pipe/123", admin, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestPartialUpdates(t *testing.T) {
	a := newAPI(t)
	admin, _ := a.login("Admin", "admin@example.com", "admin")

	code, n, _ := a.call(http.MethodPost, "/api/network/node", admin, map[string]any{
		"name": "Tank", "type": "reservoir", "capacity": 900, "location": map[string]any{"latitude": 39.5, "longitude": 19.9},
	})
	require.Equal(t, http.StatusCreated, code)
	id := n["id"].(string)

	code, stored, _ := a.call(http.MethodGet, "/api/network/node/"+id, "", nil)
	require.Equal(t, http.StatusOK, code)

	code, same, _ := a.call(http.MethodPut, "/api/network/node/"+id, admin, map[string]any{"id": "other", "name": "Tank"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, id, same["id"])
	assert.Equal(t, stored["updatedAt"], same["updatedAt"], "no-op update keeps the timestamp")

	code, upd, _ := a.call(http.MethodPut, "/api/network/node/"+id, admin, map[string]any{"status": "maintenance"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "maintenance", upd["status"])
	assert.Equal(t, "Tank", upd["name"])
	assert.Equal(t, 900.0, upd["capacity"])

	code, upd, _ = a.call(http.MethodPut, "/api/network/node/"+id, admin, map[string]any{"capacity": nil})
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, upd, "capacity")
	assert.Nil(t, upd["capacity"], "explicit null clears the capacity")

	code, _, _ = a.call(http.MethodPut, "/api/network/node/"+id, admin, map[string]any{"location": map[string]any{"latitude": 38.0, "longitude": 19.9}})
	assert.Equal(t, http.StatusBadRequest, code)

	code, geo, _ := a.call(http.MethodPost, "/api/network/pipe", admin, map[string]any{
		"coordinates": []map[string]float64{{"latitude": 39.5, "longitude": 19.9}, {"latitude": 39.51, "longitude": 19.91}},
		"flow":        1,
	})
	require.Equal(t, http.StatusCreated, code, geo)
	assert.Equal(t, "geometric", geo["kind"])
	gid := geo["id"].(string)

	code, body, _ := a.call(http.MethodPost, "/api/network/pipe", admin, map[string]any{
		"coordinates": []map[string]float64{{"latitude": 39.5, "longitude": 19.9}}, "flow": 0,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "At least two coordinates are required.", body["message"])

	code, body, _ = a.call(http.MethodPut, "/api/network/pipe/"+gid, admin, map[string]any{"flow": 2})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid flow direction. Must be 0 or 1.", body["message"])

	code, upd, _ = a.call(http.MethodPut, "/api/network/pipe/"+gid, admin, map[string]any{"status": "maintenance", "flow": 0})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "maintenance", upd["status"])
	assert.Equal(t, 0.0, upd["flow"])

	code, upd, _ = a.call(http.MethodPut, "/api/network/pipe/"+gid, admin, map[string]any{"length": 120, "material": "PVC"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 120.0, upd["length"])

	code, upd, _ = a.call(http.MethodPut, "/api/network/pipe/"+gid, admin, map[string]any{"length": nil})
	require.Equal(t, http.StatusOK, code)
	assert.Nil(t, upd["length"])
	assert.Equal(t, "PVC", upd["material"])

	code, _, raw := a.call(http.MethodGet, "/api/network/pipes/search?status=maintenance&kind=geometric&maxFlow=0", "", nil)
	require.Equal(t, http.StatusOK, code)
	var pipes []map[string]any
	require.NoError(t, json.Unmarshal(raw, &pipes))
	require.Len(t, pipes, 1)
	assert.Equal(t, gid, pipes[0]["id"])
}
