package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tournament_bot/internal/utils"

	"github.com/gin-gonic/gin"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

type fakeAdmins map[int64]bool

func (f fakeAdmins) IsAdmin(_ context.Context, id int64) (bool, error) {
	if id == 666 {
		return false, errors.New("db down")
	}
	return f[id], nil
}

func router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", JWTAuthMiddleware(secret), AdminOnlyMiddleware(fakeAdmins{7: true}, []int64{42}), func(c *gin.Context) {
		id, _ := TelegramID(c)
		c.JSON(http.StatusOK, gin.H{"telegram_id": id})
	})
	return r
}

func get(t *testing.T, r http.Handler, auth string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func bearer(t *testing.T, id int64, ttl time.Duration) string {
	t.Helper()
	tok, err := utils.GenerateJWT(id, secret, ttl)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestAdminAccess(t *testing.T) {
	r := router()

	assert.Equal(t, http.StatusUnauthorized, get(t, r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, r, "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, r, "Bearer not-a-jwt").Code)
	assert.Equal(t, http.StatusUnauthorized, get(t, r, bearer(t, 7, -time.Minute)).Code)

	w := get(t, r, bearer(t, 7, time.Hour))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"telegram_id":7}`, w.Body.String())

	assert.Equal(t, http.StatusOK, get(t, r, bearer(t, 42, time.Hour)).Code)
	assert.Equal(t, http.StatusForbidden, get(t, r, bearer(t, 8, time.Hour)).Code)
	assert.Equal(t, http.StatusInternalServerError, get(t, r, bearer(t, 666, time.Hour)).Code)
}

func TestAdminLookupFailureUsesRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log, hook := logtest.NewNullLogger()
	r := gin.New()
	r.Use(WithLogger(log))
	r.GET("/admin", JWTAuthMiddleware(secret), AdminOnlyMiddleware(fakeAdmins{}, nil), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	assert.Equal(t, http.StatusInternalServerError, get(t, r, bearer(t, 666, time.Hour)).Code)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Admin lookup failed", hook.LastEntry().Message)
	assert.Equal(t, int64(666), hook.LastEntry().Data["telegram_id"])
}

func TestLoggerFallsBackToStandardLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.NotNil(t, Logger(c))
}
