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
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	limiter_memory "github.com/open-apime/zapdash/internal/pkg/ratelimiter/memory"
	"github.com/open-apime/zapdash/internal/service/auth"
	"github.com/open-apime/zapdash/internal/storage"
	"github.com/open-apime/zapdash/internal/storage/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeParser map[string]auth.Session

func (f fakeParser) ParseToken(token string) (auth.Session, error) {
	s, ok := f[token]
	if !ok {
		return auth.Session{}, auth.ErrInvalidToken
	}
	return s, nil
}

type fakeRoles map[string]model.Role

func (f fakeRoles) Get(_ context.Context, userID string) (model.Profile, error) {
	if userID == "quebrado" {
		return model.Profile{}, errors.New("conexão recusada")
	}
	role, ok := f[userID]
	if !ok {
		return model.Profile{}, storage.Wrap("profiles.get", storage.ErrNotFound)
	}
	return model.Profile{ID: userID, Role: role}, nil
}

var testSession = auth.Session{UserID: "u1", Email: "ana@example.com", Role: model.RoleUser, SessionID: "s1"}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/x", func(c *gin.Context) {
		s, _ := Session(c)
		c.JSON(http.StatusOK, gin.H{"user": s.UserID, "email": s.Email, "session": s.SessionID, "role": c.GetString(keyUserRole)})
	})
	return r
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth(t *testing.T) {
	r := newEngine(Auth(fakeParser{"bom": testSession}))

	t.Run("bearer", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Authorization", "Bearer bom")
		w := do(r, req)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"user":"u1","email":"ana@example.com","session":"s1","role":"user"}`, w.Body.String())
	})

	t.Run("cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.AddCookie(&http.Cookie{Name: CookieName, Value: "bom"})
		assert.Equal(t, http.StatusOK, do(r, req).Code)
	})

	t.Run("ausente", func(t *testing.T) {
		w := do(r, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.JSONEq(t, `{"success":false,"error":{"type":"unauthorized","message":"token ausente"}}`, w.Body.String())
	})

	t.Run("inválido", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Authorization", "Bearer ruim")
		assert.Equal(t, http.StatusUnauthorized, do(r, req).Code)
	})

	t.Run("esquema errado", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Authorization", "Basic bom")
		assert.Equal(t, http.StatusUnauthorized, do(r, req).Code)
	})
}

func TestSessionCookie(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

	SetSessionCookie(c, "tok", time.Hour, false)
	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.Equal(t, "tok", cookies[0].Value)
	assert.Equal(t, 3600, cookies[0].MaxAge)
	assert.True(t, cookies[0].HttpOnly)
}

func TestRequireAdmin(t *testing.T) {
	roles := fakeRoles{"admin1": model.RoleAdmin, "u1": model.RoleUser}
	parser := fakeParser{
		"admin": {UserID: "admin1", Role: model.RoleUser},
		"user":  testSession,
		"orfao": {UserID: "sumiu"},
		"erro":  {UserID: "quebrado"},
	}
	r := newEngine(Auth(parser), RequireAdmin(roles))

	tests := []struct {
		token string
		want  int
	}{
		{"admin", http.StatusOK},
		{"user", http.StatusForbidden},
		{"orfao", http.StatusUnauthorized},
		{"erro", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			req.Header.Set("Authorization", "Bearer "+tt.token)
			w := do(r, req)
			assert.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusOK {
				assert.Contains(t, w.Body.String(), `"role":"admin"`)
			}
		})
	}
}

func TestRateLimit_PerUser(t *testing.T) {
	limiter := limiter_memory.NewLimiter()
	t.Cleanup(limiter.Stop)

	parser := fakeParser{"a": testSession, "b": {UserID: "u2"}}
	r := newEngine(Auth(parser), RateLimit(RateLimitOption{
		Enabled:  true,
		Requests: 2,
		Window:   time.Minute,
		Limiter:  limiter,
		Logger:   zap.NewNop(),
	}))

	call := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		return do(r, req)
	}

	assert.Equal(t, http.StatusOK, call("a").Code)
	w := call("a")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = call("a")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, call("b").Code)
}

func TestRateLimit_Disabled(t *testing.T) {
	r := newEngine(RateLimit(RateLimitOption{Enabled: false}))
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, do(r, httptest.NewRequest(http.MethodGet, "/x", nil)).Code)
	}
}

func TestIPRateLimit(t *testing.T) {
	limiter := limiter_memory.NewLimiter()
	t.Cleanup(limiter.Stop)

	r := newEngine(IPRateLimit(IPRateLimitOption{
		Enabled:        true,
		Requests:       1,
		Window:         time.Minute,
		Limiter:        limiter,
		Logger:         zap.NewNop(),
		SkipPrivateIPs: true,
	}))

	public := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
		return do(r, req)
	}
	assert.Equal(t, http.StatusOK, public().Code)
	w := public()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate_limited")

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("X-Real-IP", "192.168.0.10")
		assert.Equal(t, http.StatusOK, do(r, req).Code)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"cloudflare", map[string]string{"CF-Connecting-IP": "198.51.100.1", "X-Forwarded-For": "203.0.113.1"}, "198.51.100.1"},
		{"forwarded ignora lixo", map[string]string{"X-Forwarded-For": "lixo, 203.0.113.1"}, "203.0.113.1"},
		{"com porta", map[string]string{"X-Real-IP": "203.0.113.9:443"}, "203.0.113.9"},
		{"ipv6 com porta", map[string]string{"X-Real-IP": "[2001:db8::1]:443"}, "2001:db8::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, GetClientIP(c))
		})
	}
}

func TestIsPrivateIP(t *testing.T) {
	assert.True(t, IsPrivateIP("10.1.2.3"))
	assert.True(t, IsPrivateIP("172.20.0.1"))
	assert.True(t, IsPrivateIP("127.0.0.1"))
	assert.True(t, IsPrivateIP("::1"))
	assert.True(t, IsPrivateIP("fd00::1"))
	assert.False(t, IsPrivateIP("8.8.8.8"))
	assert.False(t, IsPrivateIP("nada"))
}

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, GetRequestID(c)) })

	w := do(r, httptest.NewRequest(http.MethodGet, "/x", nil))
	generated := w.Header().Get(HeaderRequestID)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	w = do(r, req)
	assert.Equal(t, "abc-123", w.Header().Get(HeaderRequestID))
}

func TestAccessLogAndMetrics_PassThrough(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), AccessLog(zap.NewNop(), "/healthz"), Metrics())
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/falha", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	assert.Equal(t, http.StatusOK, do(r, httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
	assert.Equal(t, http.StatusInternalServerError, do(r, httptest.NewRequest(http.MethodGet, "/falha", nil)).Code)
	assert.Equal(t, http.StatusNotFound, do(r, httptest.NewRequest(http.MethodGet, "/nada", nil)).Code)
}
