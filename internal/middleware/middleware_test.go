package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cinematch/cinematch/pkg/apperror"
	"github.com/cinematch/cinematch/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	UseJSONFieldNames()
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestErrorHandlerRendersAppError(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(logger.Discard()))
	r.GET("/", func(c *gin.Context) {
		_ = c.Error(apperror.NotFound("Log not found"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Log not found", decodeError(t, w))
}

func TestErrorHandlerHidesInternalCause(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler(logger.Discard()))
	r.GET("/", func(c *gin.Context) {
		_ = c.Error(errors.New("pq: relation \"logs\" does not exist"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "pq:")
}

type signupBody struct {
	Username string `json:"username" binding:"required"`
	Age      int    `json:"age" binding:"omitempty,min=13"`
}

func bindStatus(t *testing.T, payload string) (int, string) {
	t.Helper()
	r := gin.New()
	r.Use(ErrorHandler(logger.Discard()))
	r.POST("/", func(c *gin.Context) {
		var body signupBody
		if err := c.ShouldBindJSON(&body); err != nil {
			_ = c.Error(BindingError(err))
			return
		}
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code == http.StatusNoContent {
		return w.Code, ""
	}
	return w.Code, decodeError(t, w)
}

func TestBindingErrorMessages(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		status  int
		message string
	}{
		{"valid", `{"username":"ana"}`, http.StatusNoContent, ""},
		{"missing key", `{}`, http.StatusBadRequest, "Missing key in body: username"},
		{"failed rule", `{"username":"ana","age":5}`, http.StatusBadRequest, "Invalid value for age"},
		{"wrong type", `{"username":"ana","age":"old"}`, http.StatusBadRequest, "Invalid value for age"},
		{"malformed", `{"username":`, http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, message := bindStatus(t, tt.payload)
			assert.Equal(t, tt.status, status)
			if tt.message != "" {
				assert.Equal(t, tt.message, message)
			}
		})
	}
}

type memoryCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	err    error
}

func (m *memoryCounter) IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if m.err != nil {
		return 0, 0, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counts == nil {
		m.counts = make(map[string]int64)
	}
	m.counts[key]++
	return m.counts[key], window, nil
}

func limitedRouter(counter WindowCounter, limit int) *gin.Engine {
	r := gin.New()
	r.Use(ErrorHandler(logger.Discard()))
	r.Use(RateLimit(counter, "test", limit, time.Minute, logger.Discard()))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimitBlocksAfterLimit(t *testing.T) {
	r := limitedRouter(&memoryCounter{}, 2)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestRateLimitFailsOpen(t *testing.T) {
	r := limitedRouter(&memoryCounter{err: errors.New("redis down")}, 1)

	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func authRouter(config *JWTConfig) *gin.Engine {
	r := gin.New()
	r.Use(ErrorHandler(logger.Discard()))
	r.GET("/me", NewJWTAuth(config), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": GetUserID(c), "username": GetUsername(c)})
	})
	return r
}

func TestJWTAuth(t *testing.T) {
	config := &JWTConfig{Secret: "access", RefreshSecret: "refresh", AccessTTL: time.Minute, RememberTTL: time.Hour}
	r := authRouter(config)

	valid, err := config.IssueAccess(7, "ana", false)
	require.NoError(t, err)
	expired, err := GenerateToken(7, "ana", "access", -time.Minute)
	require.NoError(t, err)
	refresh, err := config.IssueRefresh(7, "ana", false)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"empty bearer", "Bearer ", http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusOK},
		{"expired", "Bearer " + expired, http.StatusForbidden},
		{"refresh token is not an access token", "Bearer " + refresh, http.StatusForbidden},
		{"garbage", "Bearer not-a-jwt", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestJWTAuthSetsIdentity(t *testing.T) {
	config := &JWTConfig{Secret: "access", AccessTTL: time.Minute}
	token, err := config.IssueAccess(42, "neo", false)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	authRouter(config).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":42,"username":"neo"}`, w.Body.String())
}

func TestRefreshTokensAreUniqueAndVerifiable(t *testing.T) {
	config := &JWTConfig{Secret: "access", RefreshSecret: "refresh", AccessTTL: time.Minute, RememberTTL: time.Hour}

	first, err := config.IssueRefresh(3, "trinity", true)
	require.NoError(t, err)
	second, err := config.IssueRefresh(3, "trinity", true)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	id, username, err := config.VerifyRefresh(first)
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
	assert.Equal(t, "trinity", username)

	_, _, err = config.VerifyRefresh("tampered" + first)
	assert.Error(t, err)
}

func TestRequestIDEchoesHeader(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, w.Header().Get("X-Request-ID"), 36)
}
