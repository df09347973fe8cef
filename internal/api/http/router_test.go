package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/release-queue/internal/api/http"
	"github.com/spec-kit/release-queue/internal/api/http/handlers"
	"github.com/spec-kit/release-queue/internal/auth"
	"github.com/spec-kit/release-queue/internal/observability"
	"github.com/spec-kit/release-queue/internal/repository/memory"
	"github.com/spec-kit/release-queue/internal/service"
)

const password = "correct-horse"

type testServer struct {
	app    *fiber.App
	auth   *service.AuthService
	queues *service.QueueService
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func newTestServer(t *testing.T, limiter *httptransport.RateLimiter, deps map[string]handlers.Pinger) *testServer {
	t.Helper()
	store := memory.NewStore()
	hasher, err := auth.NewCredentialHasher([]string{"pepper"})
	require.NoError(t, err)
	ids := auth.NewIDGenerator(store, 8)
	metrics := observability.NewMetrics()

	authService := service.NewAuthService(service.AuthDependencies{
		UserRepo:       store,
		Hasher:         hasher,
		IDs:            ids,
		AllowedDomains: []string{"company-domain"},
	})
	queueService := service.NewQueueService(service.QueueDependencies{
		QueueRepo: store,
		Auth:      authService,
		IDs:       ids,
		Metrics:   metrics,
	})
	freezeService := service.NewFreezeService(service.FreezeDependencies{
		FreezeRepo: store.Freezes(),
		Auth:       authService,
		IDs:        ids,
		Metrics:    metrics,
	})

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, zap.NewNop(), metrics, 5*time.Second)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:      handlers.NewHealthHandler("release-queue", "test", deps),
		Users:       handlers.NewUsersHandler(authService),
		Queues:      handlers.NewQueueHandler(queueService),
		Ledger:      handlers.NewLedgerHandler(service.NewLedgerService(store.Ledger(), nil)),
		Freezes:     handlers.NewFreezeHandler(freezeService),
		RateLimiter: limiter,
		Metrics:     metrics,
	})
	return &testServer{app: app, auth: authService, queues: queueService}
}

func (s *testServer) do(t *testing.T, method, target string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func (s *testServer) register(t *testing.T, first, email string) {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/register", map[string]any{
		"firstName": first, "lastName": "Tester", "email": email, "password": password, "team": "Billing",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	return payload.Error.Code
}

func TestRegister(t *testing.T) {
	s := newTestServer(t, nil, nil)

	status, body := s.do(t, http.MethodPost, "/register", map[string]any{
		"firstName": "Alice", "lastName": "Smith", "email": "alice@company-domain", "password": password, "team": "billing",
	})
	assert.Equal(t, http.StatusCreated, status)
	assert.JSONEq(t, `{"message":"User Created"}`, string(body))

	status, body = s.do(t, http.MethodPost, "/register", map[string]any{
		"firstName": "Alice", "lastName": "Smith", "email": "alice@company-domain", "password": password, "team": "billing",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", errorCode(t, body))

	status, body = s.do(t, http.MethodPost, "/register", map[string]any{
		"firstName": "Eve", "lastName": "Smith", "email": "eve@elsewhere.org", "password": password, "team": "billing",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, body))
}

func TestQueueLifecycle(t *testing.T) {
	s := newTestServer(t, nil, nil)
	require.NoError(t, s.queues.CreateQueue(context.Background(), "billing"))
	s.register(t, "Alice", "alice@company-domain")
	s.register(t, "Bob", "bob@company-domain")

	status, body := s.do(t, http.MethodGet, "/getQueueNames", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `["billing"]`, string(body))

	status, body = s.do(t, http.MethodGet, "/checkQueue?componant=billing", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"message":"billing is empty"}`, string(body))

	status, body = s.do(t, http.MethodPost, "/enterQueue", map[string]any{
		"email": "alice@company-domain", "password": password, "componant": "billing", "ticket": "abc123", "description": "first",
	})
	require.Equal(t, http.StatusOK, status, string(body))
	assert.JSONEq(t, `{"message":"Successfully in queue. your position is 1","position":1}`, string(body))

	status, _ = s.do(t, http.MethodPost, "/enterQueue", map[string]any{
		"email": "bob@company-domain", "password": password, "componant": "billing", "ticket": "XYZ999",
	})
	require.Equal(t, http.StatusOK, status)

	status, body = s.do(t, http.MethodGet, "/checkQueue", map[string]any{"componant": "billing", "simple": true})
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `[
		{"ticket":"ABC123","email":"alice@company-domain","position":"Releasing"},
		{"ticket":"XYZ999","email":"bob@company-domain","position":2}
	]`, string(body))

	status, body = s.do(t, http.MethodDelete, "/exitQueue", map[string]any{
		"email": "alice@company-domain", "password": password, "componant": "billing", "ticket": "ABC123",
	})
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"message":"Queue exited"}`, string(body))

	status, body = s.do(t, http.MethodGet, "/checkQueue?componant=billing&simple=false", nil)
	assert.Equal(t, http.StatusOK, status)
	var full []map[string]any
	require.NoError(t, json.Unmarshal(body, &full))
	require.Len(t, full, 1)
	assert.Equal(t, "XYZ999", full[0]["ticket"])
	assert.Equal(t, "Releasing", full[0]["position"])
	assert.Equal(t, "billing", full[0]["teamName"])

	status, body = s.do(t, http.MethodGet, "/checkMasterQueue?simple=true&byComponant=true", nil)
	assert.Equal(t, http.StatusOK, status)
	var ledger []map[string]any
	require.NoError(t, json.Unmarshal(body, &ledger))
	require.Len(t, ledger, 2)
	assert.Equal(t, false, ledger[0]["active"])
	assert.Contains(t, ledger[0], "closed")
	assert.NotContains(t, ledger[1], "closed")
}

func TestQueueErrors(t *testing.T) {
	s := newTestServer(t, nil, nil)
	require.NoError(t, s.queues.CreateQueue(context.Background(), "billing"))
	s.register(t, "Alice", "alice@company-domain")

	status, body := s.do(t, http.MethodPost, "/enterQueue", map[string]any{
		"email": "alice@company-domain", "password": "wrong", "componant": "billing", "ticket": "T1",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, body))

	status, body = s.do(t, http.MethodGet, "/checkQueue", map[string]any{"componant": "payroll"})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(t, body))

	status, body = s.do(t, http.MethodDelete, "/exitQueue", map[string]any{
		"email": "alice@company-domain", "password": password, "componant": "billing", "ticket": "NOPE",
	})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(t, body))

	status, body = s.do(t, http.MethodGet, "/checkQueue", map[string]any{"componant": "billing", "simple": "true"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, body))
}

func TestCheckMasterQueue(t *testing.T) {
	s := newTestServer(t, nil, nil)

	status, body := s.do(t, http.MethodGet, "/checkMasterQueue", map[string]any{"simple": false, "byComponant": false})
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"message":"Master queue is empty"}`, string(body))

	status, body = s.do(t, http.MethodGet, "/checkMasterQueue?daysBack=abc", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, body))

	status, body = s.do(t, http.MethodGet, "/checkMasterQueue", map[string]any{"daysBack": -1})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", errorCode(t, body))
}

func TestCodeFreezes(t *testing.T) {
	s := newTestServer(t, nil, nil)
	s.register(t, "Admin", "root@company-domain")
	s.register(t, "Alice", "alice@company-domain")
	require.NoError(t, s.auth.PromoteAdmin(context.Background(), "root@company-domain"))

	status, body := s.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"freezeActive":false,"light":"GREEN LIGHT"}`, string(body))

	status, body = s.do(t, http.MethodPost, "/startCodeFreeze", map[string]any{
		"email": "alice@company-domain", "password": password, "startIn": 0, "duration": 2,
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, body))

	status, body = s.do(t, http.MethodPost, "/startCodeFreeze", map[string]any{
		"email": "root@company-domain", "password": password, "startIn": 0, "duration": 2,
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var created struct {
		ID       string `json:"UUID"`
		InEffect bool   `json:"inEffect"`
	}
	require.NoError(t, json.Unmarshal(body, &created))
	assert.True(t, created.InEffect)

	status, body = s.do(t, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"freezeActive":true,"light":"RED LIGHT"}`, string(body))

	status, body = s.do(t, http.MethodGet, "/checkFreezes", nil)
	assert.Equal(t, http.StatusOK, status)
	var freezes []map[string]any
	require.NoError(t, json.Unmarshal(body, &freezes))
	assert.Len(t, freezes, 1)

	status, body = s.do(t, http.MethodDelete, "/endActiveCodeFreeze", map[string]any{
		"email": "root@company-domain", "password": password,
	})
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"message":"Done","ended":1}`, string(body))

	status, _ = s.do(t, http.MethodDelete, "/endCodeFreeze", map[string]any{
		"email": "root@company-domain", "password": password, "codeFreezeUUID": created.ID,
	})
	assert.Equal(t, http.StatusOK, status)

	status, body = s.do(t, http.MethodDelete, "/endCodeFreeze", map[string]any{
		"email": "root@company-domain", "password": password, "codeFreezeUUID": created.ID,
	})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(t, body))
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t, nil, nil)

	status, body := s.do(t, http.MethodGet, "/nowhere", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", errorCode(t, body))
}

func TestRateLimiter(t *testing.T) {
	client, mock := redismock.NewClientMock()
	limiter := httptransport.NewRateLimiter(client, 1, zap.NewNop())
	s := newTestServer(t, limiter, nil)
	key := "ratelimit:0.0.0.0"
	reg := map[string]any{"firstName": "Alice", "lastName": "Smith", "email": "alice@company-domain", "password": password, "team": "ops"}

	hit := func(count int64, ttlSet bool) {
		mock.ExpectTxPipeline()
		mock.ExpectIncr(key).SetVal(count)
		mock.ExpectExpireNX(key, time.Minute).SetVal(ttlSet)
		mock.ExpectTxPipelineExec()
	}

	hit(1, true)
	status, _ := s.do(t, http.MethodPost, "/register", reg)
	assert.Equal(t, http.StatusCreated, status)

	// a key that lost its TTL gets one again on the next hit
	hit(2, true)
	status, body := s.do(t, http.MethodPost, "/register", reg)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "TOO_MANY_REQUESTS", errorCode(t, body))

	hit(3, false)
	status, _ = s.do(t, http.MethodPost, "/register", reg)
	assert.Equal(t, http.StatusTooManyRequests, status)

	mock.ExpectTxPipeline()
	mock.ExpectIncr(key).SetErr(errors.New("redis down"))
	status, _ = s.do(t, http.MethodPost, "/register", reg)
	assert.Equal(t, http.StatusConflict, status, "limiter fails open")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, nil, map[string]handlers.Pinger{"postgres": failingPinger{}})

	status, _ := s.do(t, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, status)

	status, body := s.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "DEPENDENCY_UNAVAILABLE", errorCode(t, body))

	status, body = s.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), "http_requests_total")
}
