package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadinessHandler(t *testing.T) {
	ok := CheckFunc(func(context.Context) error { return nil })
	down := CheckFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name     string
		checkers map[string]HealthChecker
		want     int
		status   string
	}{
		{"no checkers", nil, http.StatusOK, "ready"},
		{"all healthy", map[string]HealthChecker{"database": ok, "storage": ok}, http.StatusOK, "ready"},
		{"one down", map[string]HealthChecker{"database": ok, "storage": down}, http.StatusServiceUnavailable, "unavailable"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			ReadinessHandler(tc.checkers)(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
			assert.Equal(t, tc.want, rec.Code)

			var got HealthStatus
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
			assert.Equal(t, tc.status, got.Status)
			assert.Len(t, got.Checks, len(tc.checkers))
			if tc.status == "unavailable" {
				assert.Equal(t, "connection refused", got.Checks["storage"].Message)
				assert.Equal(t, "healthy", got.Checks["database"].Status)
			}
		})
	}
}

func TestLivenessHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
