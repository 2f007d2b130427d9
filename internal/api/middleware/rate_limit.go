package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/open-apime/zapdash/internal/pkg/ratelimiter"
	"github.com/open-apime/zapdash/internal/pkg/response"
)

// RateLimitOption parametriza o limite por usuário das rotas protegidas.
type RateLimitOption struct {
	Enabled  bool
	Requests int
	Window   time.Duration
	Prefix   string
	Limiter  ratelimiter.Limiter
	Logger   *zap.Logger
}

// RateLimit conta requisições por usuário autenticado. Deve rodar depois de Auth.
func RateLimit(opts RateLimitOption) gin.HandlerFunc {
	if !opts.Enabled || opts.Limiter == nil || opts.Requests <= 0 || opts.Window <= 0 {
		return passthrough
	}

	policy := ratelimiter.Policy{Limit: opts.Requests, Window: opts.Window}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "ratelimit:api"
	}

	return func(c *gin.Context) {
		userID := c.GetString(keyUserID)
		if userID == "" {
			c.Next()
			return
		}

		key := fmt.Sprintf("%s:%s", prefix, userID)
		if !allow(c, opts.Limiter, key, policy, opts.Logger) {
			response.ErrorWithMessage(c, http.StatusTooManyRequests, "limite de requisições excedido")
			return
		}
		c.Next()
	}
}

// allow consulta o limiter e escreve os headers X-RateLimit-*. Falhas do
// limiter liberam a requisição.
func allow(c *gin.Context, limiter ratelimiter.Limiter, key string, policy ratelimiter.Policy, log *zap.Logger) bool {
	res, err := limiter.Allow(c.Request.Context(), key, policy)
	if err != nil {
		if log != nil {
			log.Warn("rate limit: erro ao consultar limiter", zap.Error(err))
		}
		return true
	}

	c.Header("X-RateLimit-Limit", strconv.Itoa(policy.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(res.Reset.Unix(), 10))
	if !res.Allowed {
		retry := int(res.RetryAfter.Round(time.Second).Seconds())
		if retry < 1 {
			retry = 1
		}
		c.Header("Retry-After", strconv.Itoa(retry))
	}
	return res.Allowed
}
