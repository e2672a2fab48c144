package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ticketgate/gate-api/internal/pkg/jwthelper"
)

const signingKey = "test-signing-key"

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter() *gin.Engine {
	r := gin.New()
	r.GET("/whoami", NewAuthenticator(signingKey).VerifyJWT(), func(ctx *gin.Context) {
		ctx.String(http.StatusOK, Operator(ctx)+"/"+OperatorRole(ctx))
	})
	return r
}

func TestVerifyJWT(t *testing.T) {
	token, err := jwthelper.GenerateToken([]byte(signingKey), "north-gate", "scanner", time.Hour)
	require.NoError(t, err)

	t.Run("header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		newAuthRouter().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "north-gate/scanner", rec.Body.String())
	})

	t.Run("query parameter", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami?access_token="+token, nil)
		rec := httptest.NewRecorder()
		newAuthRouter().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		newAuthRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "missing bearer token")
	})

	t.Run("wrong key", func(t *testing.T) {
		other, err := jwthelper.GenerateToken([]byte("other"), "north-gate", "", time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+other)
		rec := httptest.NewRecorder()
		newAuthRouter().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestTimeout(t *testing.T) {
	r := gin.New()
	r.GET("/", Timeout(time.Minute), func(ctx *gin.Context) {
		_, ok := ctx.Request.Context().Deadline()
		assert.True(t, ok)
		ctx.Status(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestConfigCORS(t *testing.T) {
	r := gin.New()
	r.Use(ConfigCORS([]string{"http://gate.local"}))
	r.GET("/", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://gate.local")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "http://gate.local", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://elsewhere.local")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	assert.NotPanics(t, func() { ConfigCORS(nil) })
}
