package pprof

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStats(t *testing.T) {
	handler := NewHandler("/debug/pprof", func() map[string]any {
		return map[string]any{"version": 3}
	})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/debug/pprof/stats", nil))

	require.Equal(t, http.StatusOK, res.Code)

	var stats map[string]any
	require.NoError(t, json.NewDecoder(res.Body).Decode(&stats))
	require.Equal(t, float64(3), stats["version"])
}
