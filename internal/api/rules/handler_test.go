package rules

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivewatch/alerts/internal/api/middleware"
	"github.com/hivewatch/alerts/internal/models"
	"github.com/hivewatch/alerts/internal/storage"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func setup(t *testing.T) http.Handler {
	t.Helper()
	store := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "rules.db"), nil)
	require.NoError(t, store.Open(context.Background()))
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(context.Background()))

	h := NewHandler(store.Rules(), nil)
	r := chi.NewRouter()
	r.Use(middleware.RequireUser)
	r.Get("/rules", h.List)
	r.Post("/rules", h.Create)
	r.Put("/rules/{id}", h.Update)
	r.Delete("/rules/{id}", h.Delete)
	return r
}

func do(t *testing.T, h http.Handler, method, path string, user int64, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(middleware.UserIDHeader, strconv.FormatInt(user, 10))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func create(t *testing.T, h http.Handler, user int64, body string) *models.AlertRule {
	t.Helper()
	rec, env := do(t, h, "POST", "/rules", user, body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var rule models.AlertRule
	require.NoError(t, json.Unmarshal(env.Data, &rule))
	return &rule
}

func TestCreateAndList(t *testing.T) {
	router := setup(t)

	rule := create(t, router, 1, `{"hive_id":"h1","metric_type":"temperature","condition_type":"GT","threshold_value":38.5,"duration_minutes":15}`)
	assert.NotZero(t, rule.ID)
	assert.Equal(t, models.ConditionGreaterThan, rule.Condition)
	assert.Equal(t, 38.5, rule.Threshold)
	assert.True(t, rule.Enabled)

	create(t, router, 1, `{"hive_id":"h2","metric_type":"weight","condition_type":"lt","threshold_value":10,"enabled":false}`)
	create(t, router, 2, `{"metric_type":"temperature","condition_type":"eq","threshold_value":1}`)

	list := func(query string) []*models.AlertRule {
		rec, env := do(t, router, "GET", "/rules"+query, 1, "")
		require.Equal(t, http.StatusOK, rec.Code)
		var rules []*models.AlertRule
		require.NoError(t, json.Unmarshal(env.Data, &rules))
		return rules
	}

	assert.Len(t, list(""), 2)
	assert.Len(t, list("?hive_id=h1"), 1)
	assert.Len(t, list("?metric_type=weight"), 1)
	assert.Empty(t, list("?hive_id=h1&metric_type=weight"))
}

func TestCreateValidation(t *testing.T) {
	router := setup(t)

	tests := []struct {
		name string
		body string
	}{
		{"missing metric", `{"condition_type":"gt","threshold_value":1}`},
		{"bad condition", `{"metric_type":"t","condition_type":"between","threshold_value":1}`},
		{"negative duration", `{"metric_type":"t","condition_type":"gt","duration_minutes":-1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, router, "POST", "/rules", 1, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
		})
	}
}

func TestUpdate(t *testing.T) {
	router := setup(t)
	rule := create(t, router, 1, `{"metric_type":"temperature","condition_type":"gt","threshold_value":38}`)
	path := "/rules/" + strconv.FormatInt(rule.ID, 10)

	rec, env := do(t, router, "PUT", path, 1, `{"threshold_value":40,"enabled":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated models.AlertRule
	require.NoError(t, json.Unmarshal(env.Data, &updated))
	assert.Equal(t, 40.0, updated.Threshold)
	assert.False(t, updated.Enabled)
	assert.Equal(t, "temperature", updated.MetricType)
	assert.Equal(t, models.ConditionGreaterThan, updated.Condition)

	rec, _ = do(t, router, "PUT", path, 2, `{"threshold_value":1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, env = do(t, router, "PUT", path, 1, `{"condition_type":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)

	rec, _ = do(t, router, "PUT", "/rules/x", 1, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDelete(t *testing.T) {
	router := setup(t)
	rule := create(t, router, 1, `{"metric_type":"temperature","condition_type":"gt","threshold_value":38}`)
	path := "/rules/" + strconv.FormatInt(rule.ID, 10)

	rec, _ := do(t, router, "DELETE", path, 2, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, router, "DELETE", path, 1, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, _ = do(t, router, "DELETE", path, 1, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
