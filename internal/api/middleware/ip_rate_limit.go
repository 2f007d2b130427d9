package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/open-apime/zapdash/internal/pkg/ratelimiter"
	"github.com/open-apime/zapdash/internal/pkg/response"
)

const ipKeyPrefix = "ratelimit:ip:"

// IPRateLimitOption limita as rotas públicas de /auth por endereço de origem.
type IPRateLimitOption struct {
	Enabled        bool
	Requests       int
	Window         time.Duration
	Limiter        ratelimiter.Limiter
	Logger         *zap.Logger
	SkipPrivateIPs bool
}

// IPRateLimit segura tentativas de senha em massa em /auth/login e
// /auth/register. O IP entra na chave só como hash.
func IPRateLimit(o IPRateLimitOption) gin.HandlerFunc {
	if !o.Enabled || o.Limiter == nil || o.Requests <= 0 || o.Window <= 0 {
		return passthrough
	}
	policy := ratelimiter.Policy{Limit: o.Requests, Window: o.Window}

	return func(c *gin.Context) {
		ip := GetClientIP(c)
		if o.SkipPrivateIPs && IsPrivateIP(ip) {
			c.Next()
			return
		}
		if allow(c, o.Limiter, ipKey(ip), policy, o.Logger) {
			c.Next()
			return
		}
		if o.Logger != nil {
			o.Logger.Warn("muitas tentativas de autenticação", zap.String("ip", ip), zap.String("path", c.FullPath()))
		}
		response.ErrorWithMessage(c, http.StatusTooManyRequests, "muitas tentativas. tente novamente mais tarde")
	}
}

func ipKey(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return ipKeyPrefix + hex.EncodeToString(sum[:16])
}

func passthrough(c *gin.Context) { c.Next() }
