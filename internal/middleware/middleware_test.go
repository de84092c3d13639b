package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/pilotsim/internal/auth"
	"github.com/annel0/pilotsim/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestJWTAndAdmin(t *testing.T) {
	issuer, err := auth.NewIssuer(config.AuthConfig{})
	require.NoError(t, err)
	admin, err := issuer.Issue("root", true)
	require.NoError(t, err)
	viewer, err := issuer.Issue("viewer", false)
	require.NoError(t, err)

	r := gin.New()
	g := r.Group("/", JWT(issuer))
	g.GET("/read", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(OperatorKey)) })
	g.POST("/write", Admin(), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	cases := []struct {
		name   string
		method string
		path   string
		header string
		want   int
	}{
		{"без токена", http.MethodGet, "/read", "", http.StatusUnauthorized},
		{"не Bearer", http.MethodGet, "/read", "Token " + viewer, http.StatusUnauthorized},
		{"мусор", http.MethodGet, "/read", "Bearer abc", http.StatusUnauthorized},
		{"чтение", http.MethodGet, "/read", "Bearer " + viewer, http.StatusOK},
		{"запись без прав", http.MethodPost, "/write", "Bearer " + viewer, http.StatusForbidden},
		{"запись администратором", http.MethodPost, "/write", "Bearer " + admin, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestAPIMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAPIMetrics(reg)

	r := gin.New()
	r.Use(NewRequestLogger().Handler(), m.Handler())
	r.GET("/api/pilots/:id", func(c *gin.Context) {
		if c.Param("id") == "999" {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusOK)
	})
	r.POST("/api/pilots/:id/damage", func(c *gin.Context) { c.Status(http.StatusServiceUnavailable) })
	r.POST("/api/player", func(c *gin.Context) { c.Status(http.StatusOK) })
	RegisterMetricsEndpoint(r, reg)

	requests := []struct{ method, path string }{
		{http.MethodGet, "/api/pilots/1"},
		{http.MethodGet, "/api/pilots/999"},
		{http.MethodPost, "/api/pilots/2/damage"},
		{http.MethodPost, "/api/player"},
		{http.MethodGet, "/nowhere"},
	}
	for _, rq := range requests {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(rq.method, rq.path, nil))
		assert.NotEmpty(t, rec.Header().Get("X-Trace-ID"))
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejections.WithLabelValues("/api/pilots/:id", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejections.WithLabelValues("/api/pilots/:id/damage", "busy")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejections.WithLabelValues("unmatched", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("/api/pilots/:id/damage", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commands.WithLabelValues("/api/player", "applied")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inflight))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "pilotsim_api_request_duration_seconds"))
}

func TestRejectionReason(t *testing.T) {
	cases := map[int]string{
		http.StatusOK:                  "",
		http.StatusCreated:             "",
		http.StatusBadRequest:          "invalid",
		http.StatusForbidden:           "denied",
		http.StatusConflict:            "conflict",
		http.StatusGatewayTimeout:      "timeout",
		http.StatusInternalServerError: "error",
	}
	for status, want := range cases {
		assert.Equal(t, want, rejectionReason(status), "код %d", status)
	}
}
