package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"

	"learn-and-earn/internal/models"
	"learn-and-earn/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeValidator struct {
	tokens map[string]string
	err    error
}

func (f *fakeValidator) ValidateToken(token string) (*services.Claims, error) {
	if f.err != nil {
		return nil, f.err
	}
	email, ok := f.tokens[token]
	if !ok {
		return nil, services.ErrInvalidToken
	}
	return &services.Claims{Email: email}, nil
}

type fakeRoles map[string]models.Role

func (f fakeRoles) Role(_ context.Context, email, _ string) (models.Role, error) {
	role, ok := f[email]
	if !ok {
		return "", services.ErrUserNotFound
	}
	return role, nil
}

type fakeLimiter struct {
	counts map[string]int
	err    error
}

func (f *fakeLimiter) CheckRateLimit(_ context.Context, subject, action string, limit int, _ time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.counts[subject+action]++
	return f.counts[subject+action] <= limit, nil
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"email": c.GetString(ContextEmail)})
	})
	r.GET("/guarded", handlers...)
	r.POST("/lottery/play-free", handlers...)
	return r
}

func do(r http.Handler, method, target, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware(t *testing.T) {
	v := &fakeValidator{tokens: map[string]string{"good": "alice@example.com"}}
	r := newRouter(AuthMiddleware(v))

	w := do(r, http.MethodGet, "/guarded", "Bearer good")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice@example.com")

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/guarded?token=good", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/guarded", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/guarded", "Token good").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/guarded", "Bearer bad").Code)
}

func TestAuthMiddlewareExpired(t *testing.T) {
	r := newRouter(AuthMiddleware(&fakeValidator{err: services.ErrExpiredToken}))

	w := do(r, http.MethodGet, "/guarded", "Bearer whatever")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Token expired")
}

func TestRequireRole(t *testing.T) {
	v := &fakeValidator{tokens: map[string]string{"admin": "boss@example.com", "user": "alice@example.com", "ghost": "ghost@example.com"}}
	roles := fakeRoles{"boss@example.com": models.RoleAdmin, "alice@example.com": models.RoleUser}
	r := newRouter(AuthMiddleware(v), RequireRole(roles, models.RoleAdmin))

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/guarded", "Bearer admin").Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/guarded", "Bearer user").Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/guarded", "Bearer ghost").Code)

	unauthenticated := newRouter(RequireRole(roles, models.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, do(unauthenticated, http.MethodGet, "/guarded", "").Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	v := &fakeValidator{tokens: map[string]string{"good": "alice@example.com"}}
	limiter := &fakeLimiter{counts: map[string]int{}}
	r := newRouter(AuthMiddleware(v), RateLimitMiddleware(limiter))

	for i := 0; i < 30; i++ {
		assert.Equal(t, http.StatusOK, do(r, http.MethodPost, "/lottery/play-free", "Bearer good").Code)
	}
	w := do(r, http.MethodPost, "/lottery/play-free", "Bearer good")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/guarded", "Bearer good").Code, "unlisted paths are not limited")

	failing := newRouter(AuthMiddleware(v), RateLimitMiddleware(&fakeLimiter{err: errors.New("redis down")}))
	assert.Equal(t, http.StatusTooManyRequests, do(failing, http.MethodPost, "/lottery/play-free", "Bearer good").Code)
}

func TestIPRateLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Every(time.Hour), 2)
	r := newRouter(limiter.Middleware())

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/guarded", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/guarded", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, http.MethodGet, "/guarded", "").Code)

	assert.Same(t, limiter.GetLimiter("10.0.0.1"), limiter.GetLimiter("10.0.0.1"))
	assert.NotSame(t, limiter.GetLimiter("10.0.0.1"), limiter.GetLimiter("10.0.0.2"))
}

func TestCORS(t *testing.T) {
	r := newRouter(CORS([]string{"https://app.example.com"}))
	r.OPTIONS("/guarded", CORS([]string{"https://app.example.com"}))

	req := httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://app.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/guarded", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
