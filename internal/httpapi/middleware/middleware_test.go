package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestServiceAuth(t *testing.T) {
	r := gin.New()
	r.Use(ServiceAuth("s3cret"))
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(ServiceSubjectKey)) })

	do := func(auth string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusUnauthorized, do("").Code)
	assert.Equal(t, http.StatusUnauthorized, do("Bearer garbage").Code)

	bad, err := SignServiceToken("other", "feed", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do("Bearer "+bad).Code)

	good, err := SignServiceToken("s3cret", "feed", time.Minute)
	require.NoError(t, err)
	w := do("Bearer " + good)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "feed", w.Body.String())
}

func TestRecoveryAndRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery(zap.NewNop()))
	r.GET("/boom", func(c *gin.Context) { panic("kaboom") })

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "req-1", w.Header().Get(RequestIDHeader))
	assert.JSONEq(t, `{"code":50000,"error":"internal error"}`, w.Body.String())
}
