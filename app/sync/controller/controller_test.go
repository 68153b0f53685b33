package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/consultia/bonusx/app/sync/types"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestController(t *testing.T) (*Controller, http.Handler) {
	t.Helper()
	app := &types.App{
		Running: xsync.NewMap[string, time.Time](),
		Logger:  zap.NewNop(),
	}
	ctler := NewController(app)
	router, err := ctler.NewRouter()
	require.NoError(t, err)
	return ctler, router
}

func TestSyncTriggerRequiresAuth(t *testing.T) {
	_, router := newTestController(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/sync/crm", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "unauthorized", body["error"])
}

func TestSyncTriggerWithAPIToken(t *testing.T) {
	ctler, router := newTestController(t)

	req := httptest.NewRequest(http.MethodPost, "/api/sync/mainframe", nil)
	req.Header.Set("Authorization", "Bearer "+ctler.APIToken)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	// Authenticated, but no adapter claims the source.
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSyncStatusListsRunningSources(t *testing.T) {
	ctler, router := newTestController(t)
	ctler.App.Running.Store("crm", time.Now().UTC())

	req := httptest.NewRequest(http.MethodGet, "/api/sync/status", nil)
	req.Header.Set("Authorization", "Bearer "+ctler.APIToken)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Running map[string]time.Time `json:"running"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.Running, "crm")
}

func TestLoginIssuesSessionCookie(t *testing.T) {
	t.Setenv("AUTH_PASSWORD", "hunter2")
	app := &types.App{Running: xsync.NewMap[string, time.Time](), Logger: zap.NewNop()}
	router, err := NewController(app).NewRouter()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"admin","password":"hunter2"}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, sessionCookie, cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	t.Setenv("AUTH_PASSWORD", "hunter2")
	app := &types.App{Running: xsync.NewMap[string, time.Time](), Logger: zap.NewNop()}
	router, err := NewController(app).NewRouter()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"username":"admin","password":"wrong"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWithCORSPreflight(t *testing.T) {
	_, router := newTestController(t)
	handler := WithCORS(router)

	req := httptest.NewRequest(http.MethodOptions, "/api/sync/crm", nil)
	req.Header.Set("Origin", "http://localhost:5173")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
