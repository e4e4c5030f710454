package healthprobe

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHealth_AlwaysOK(t *testing.T) {
	h := New(nil)

	rr := httptest.NewRecorder()
	h.Health()(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rr.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "healthy", resp.Status)
}

func TestReady_NotReadyUntilSet(t *testing.T) {
	h := New(func() (string, int) { return "scanning", 3 })

	rr := httptest.NewRecorder()
	h.Ready()(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)

	h.SetReady(true)

	rr = httptest.NewRecorder()
	h.Ready()(rr, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Equal(t, "ready", resp.Status)
	require.Equal(t, "scanning", resp.Scheduler)
	require.Equal(t, 3, resp.ArmedAccounts)
}
