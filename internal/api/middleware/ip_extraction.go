package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// GetClientIP segue a ordem dos proxies usuais (Cloudflare, X-Forwarded-For,
// X-Real-IP) antes de cair no endereço da conexão.
func GetClientIP(c *gin.Context) string {
	if ip := validateIP(c.GetHeader("CF-Connecting-IP")); ip != "" {
		return ip
	}
	for _, part := range strings.Split(c.GetHeader("X-Forwarded-For"), ",") {
		if ip := validateIP(part); ip != "" {
			return ip
		}
	}
	if ip := validateIP(c.GetHeader("X-Real-IP")); ip != "" {
		return ip
	}
	return c.ClientIP()
}

// validateIP aceita IPv4/IPv6, com ou sem porta, e devolve só o endereço.
func validateIP(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(raw); err == nil {
		raw = host
	}
	ip := net.ParseIP(strings.Trim(raw, "[]"))
	if ip == nil {
		return ""
	}
	return ip.String()
}

func IsPrivateIP(raw string) bool {
	ip := net.ParseIP(raw)
	if ip == nil {
		return false
	}
	return ip.IsPrivate() || ip.IsLoopback()
}
