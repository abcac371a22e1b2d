package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServeDashboard(t *testing.T) {
	rec := httptest.NewRecorder()
	ServeDashboard(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Cache-Control"), "no-store")

	body := rec.Body.String()
	assert.Contains(t, body, "const DEMO_ZH")
	assert.Contains(t, body, "const DEMO_EN")
	assert.Contains(t, body, "/api/rewrite")
	assert.Contains(t, body, "/ws")
	assert.Contains(t, body, `id="copy"`)
	assert.Contains(t, body, "navigator.clipboard.writeText")
}

func TestServeDashboard_Head(t *testing.T) {
	rec := httptest.NewRecorder()
	ServeDashboard(rec, httptest.NewRequest(http.MethodHead, "/dashboard", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, rec.Body.Len())
}
