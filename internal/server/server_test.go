package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockshock-backend/internal/common/config"
	apperrors "stockshock-backend/internal/common/errors"
	"stockshock-backend/internal/common/logger"
	"stockshock-backend/internal/common/observability"
	"stockshock-backend/internal/models"
	"stockshock-backend/internal/orchestrator"
	"stockshock-backend/internal/sqlguard"
)

type stubPlanner struct {
	plan *models.QueryPlan
	err  error
}

func (s *stubPlanner) Plan(ctx context.Context, message string, currentChaos map[string]interface{}) (*models.QueryPlan, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.plan, nil
}

type stubExecutor struct {
	rows map[string][]models.Row
}

func (s *stubExecutor) Query(ctx context.Context, sqlText string) ([]models.Row, error) {
	return s.rows[sqlText], nil
}

type stubChaosStore struct {
	mu     sync.Mutex
	states map[string]map[string]interface{}
}

func newStubChaosStore() *stubChaosStore {
	return &stubChaosStore{states: make(map[string]map[string]interface{})}
}

func (s *stubChaosStore) Get(ctx context.Context, userID string) (map[string]interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[userID], nil
}

func (s *stubChaosStore) Set(ctx context.Context, userID string, state map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[userID] = state
	return nil
}

type stubPinger struct {
	err error
}

func (s *stubPinger) Ping(ctx context.Context) error {
	return s.err
}

func newTestServer(planner orchestrator.Planner, executor orchestrator.QueryExecutor, chaosStore orchestrator.ChaosStore, db Pinger) *Server {
	obs := &observability.Observability{}
	orch := orchestrator.New(planner, sqlguard.New(sqlguard.DefaultConfig()), executor, chaosStore, obs, logger.NewNoOpLogger())
	cfg := &config.ServerConfig{
		Address:     ":0",
		CORSOrigins: []string{"http://localhost:5173"},
	}
	return New(orch, chaosStore, db, obs, cfg, logger.NewNoOpLogger())
}

func postJSON(t *testing.T, handler http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHandleQuery_FullResponse(t *testing.T) {
	query := "SELECT date, close AS AAPL FROM stock_prices WHERE ticker = 'AAPL'"
	planner := &stubPlanner{plan: &models.QueryPlan{
		Intent:           "performance",
		AssistantMessage: "ok",
		SQLQueries:       []string{query},
		DashboardSpec: map[string]interface{}{
			"blocks": []interface{}{
				map[string]interface{}{
					"type": "line-chart",
					"props": map[string]interface{}{
						"title": "Test",
						"data":  "QUERY_RESULT_0",
						"xKey":  "date",
						"yKeys": []interface{}{"AAPL"},
					},
				},
			},
		},
	}}
	executor := &stubExecutor{rows: map[string][]models.Row{
		query: {{"date": "2024-01-01", "AAPL": 100}},
	}}

	srv := newTestServer(planner, executor, newStubChaosStore(), &stubPinger{})

	rec := postJSON(t, srv.Handler(), "/api/query", map[string]interface{}{
		"message":      "Show me AAPL",
		"currentChaos": map[string]interface{}{"rotation": 180, "theme": "matrix"},
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))

	assert.Equal(t, "performance", payload["intent"])

	spec := payload["dashboardSpec"].(map[string]interface{})
	blocks := spec["blocks"].([]interface{})
	props := blocks[0].(map[string]interface{})["props"].(map[string]interface{})
	data := props["data"].([]interface{})
	require.Len(t, data, 1)
	assert.Equal(t, float64(100), data[0].(map[string]interface{})["AAPL"])

	theming := spec["theming"].(map[string]interface{})
	assert.Equal(t, float64(180), theming["rotation"])
}

func TestHandleQuery_EmptyMessageRejected(t *testing.T) {
	srv := newTestServer(&stubPlanner{}, &stubExecutor{}, newStubChaosStore(), &stubPinger{})

	for _, message := range []string{"", "   "} {
		rec := postJSON(t, srv.Handler(), "/api/query", map[string]interface{}{"message": message})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestHandleQuery_MalformedBodyRejected(t *testing.T) {
	srv := newTestServer(&stubPlanner{}, &stubExecutor{}, newStubChaosStore(), &stubPinger{})

	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleQuery_PlanningFailureIsGenericError(t *testing.T) {
	planner := &stubPlanner{err: apperrors.NewPlanningFailedError(errors.New("model unavailable"))}
	srv := newTestServer(planner, &stubExecutor{}, newStubChaosStore(), &stubPinger{})

	rec := postJSON(t, srv.Handler(), "/api/query", map[string]interface{}{"message": "hi"})

	assert.Equal(t, http.StatusBadGateway, rec.Code)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, "failed to process query", payload["error"])
	assert.NotContains(t, rec.Body.String(), "model unavailable")
}

func TestChaosEndpoints_RoundTrip(t *testing.T) {
	store := newStubChaosStore()
	srv := newTestServer(&stubPlanner{}, &stubExecutor{}, store, &stubPinger{})
	handler := srv.Handler()

	putBody, _ := json.Marshal(models.ChaosStateRequest{
		UserID: "user-1",
		Chaos:  map[string]interface{}{"theme": "matrix", "rotation": 180},
	})
	putReq := httptest.NewRequest(http.MethodPut, "/api/chaos", bytes.NewReader(putBody))
	putRec := httptest.NewRecorder()
	handler.ServeHTTP(putRec, putReq)
	require.Equal(t, http.StatusOK, putRec.Code)

	getReq := httptest.NewRequest(http.MethodGet, "/api/chaos?userId=user-1", nil)
	getRec := httptest.NewRecorder()
	handler.ServeHTTP(getRec, getReq)
	require.Equal(t, http.StatusOK, getRec.Code)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &payload))
	chaos := payload["chaos"].(map[string]interface{})
	assert.Equal(t, "matrix", chaos["theme"])
}

func TestChaosEndpoints_MissingUserID(t *testing.T) {
	srv := newTestServer(&stubPlanner{}, &stubExecutor{}, newStubChaosStore(), &stubPinger{})
	handler := srv.Handler()

	getReq := httptest.NewRequest(http.MethodGet, "/api/chaos", nil)
	getRec := httptest.NewRecorder()
	handler.ServeHTTP(getRec, getReq)
	assert.Equal(t, http.StatusBadRequest, getRec.Code)

	putBody, _ := json.Marshal(models.ChaosStateRequest{Chaos: map[string]interface{}{"theme": "matrix"}})
	putReq := httptest.NewRequest(http.MethodPut, "/api/chaos", bytes.NewReader(putBody))
	putRec := httptest.NewRecorder()
	handler.ServeHTTP(putRec, putReq)
	assert.Equal(t, http.StatusBadRequest, putRec.Code)
}

func TestGetChaos_UnknownUserReturnsNull(t *testing.T) {
	srv := newTestServer(&stubPlanner{}, &stubExecutor{}, newStubChaosStore(), &stubPinger{})

	req := httptest.NewRequest(http.MethodGet, "/api/chaos?userId=nobody", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Nil(t, payload["chaos"])
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(&stubPlanner{}, &stubExecutor{}, newStubChaosStore(), &stubPinger{})
	handler := srv.Handler()

	healthRec := httptest.NewRecorder()
	handler.ServeHTTP(healthRec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, healthRec.Code)

	readyRec := httptest.NewRecorder()
	handler.ServeHTTP(readyRec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, readyRec.Code)
}

func TestReady_DatabaseDown(t *testing.T) {
	srv := newTestServer(&stubPlanner{}, &stubExecutor{}, newStubChaosStore(), &stubPinger{err: errors.New("connection refused")})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCORS_PreflightAndHeaders(t *testing.T) {
	srv := newTestServer(&stubPlanner{}, &stubExecutor{}, newStubChaosStore(), &stubPinger{})
	handler := srv.Handler()

	preflight := httptest.NewRequest(http.MethodOptions, "/api/query", nil)
	preflight.Header.Set("Origin", "http://localhost:5173")
	preflightRec := httptest.NewRecorder()
	handler.ServeHTTP(preflightRec, preflight)

	assert.Equal(t, http.StatusNoContent, preflightRec.Code)
	assert.Equal(t, "http://localhost:5173", preflightRec.Header().Get("Access-Control-Allow-Origin"))

	denied := httptest.NewRequest(http.MethodGet, "/health", nil)
	denied.Header.Set("Origin", "http://evil.example.com")
	deniedRec := httptest.NewRecorder()
	handler.ServeHTTP(deniedRec, denied)

	assert.Empty(t, deniedRec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestID_AssignedAndEchoed(t *testing.T) {
	srv := newTestServer(&stubPlanner{}, &stubExecutor{}, newStubChaosStore(), &stubPinger{})
	handler := srv.Handler()

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	echoRec := httptest.NewRecorder()
	handler.ServeHTTP(echoRec, req)
	assert.Equal(t, "fixed-id", echoRec.Header().Get("X-Request-ID"))
}
