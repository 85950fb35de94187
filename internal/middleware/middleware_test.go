package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"commissioning-backend/internal/auth"
	"commissioning-backend/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T) (*gin.Engine, *auth.TokenManager) {
	t.Helper()
	tokens, err := auth.NewTokenManager("secret", time.Hour)
	require.NoError(t, err)

	r := gin.New()
	r.Use(SecurityHeaders(), RequestLogger(zap.NewNop()))
	r.GET("/open", func(c *gin.Context) { c.String(http.StatusOK, Actor(c)) })
	r.GET("/closed", AuthMiddleware(tokens), func(c *gin.Context) { c.String(http.StatusOK, Actor(c)) })
	return r, tokens
}

func TestAuthMiddleware(t *testing.T) {
	r, tokens := newRouter(t)
	good, _, err := tokens.Issue("admin")
	require.NoError(t, err)
	other, err := auth.NewTokenManager("other", time.Hour)
	require.NoError(t, err)
	forged, _, err := other.Issue("admin")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing", "", http.StatusUnauthorized, `"code":"unauthorized"`},
		{"malformed", "Token " + good, http.StatusUnauthorized, `"code":"unauthorized"`},
		{"bad token", "Bearer nonsense", http.StatusForbidden, `"code":"forbidden"`},
		{"wrong key", "Bearer " + forged, http.StatusForbidden, `"code":"forbidden"`},
		{"valid", "Bearer " + good, http.StatusOK, "admin"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/closed", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
			assert.Contains(t, w.Body.String(), tc.body)
		})
	}
}

func TestSecurityHeadersAndActor(t *testing.T) {
	r, _ := newRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/open", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "anonymous", w.Body.String())
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	cfg := &config.Config{CORS: config.CORSConfig{AllowedOrigins: []string{"https://app.example"}}}
	r := gin.New()
	r.Use(CORS(cfg))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}
