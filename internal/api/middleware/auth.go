package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/open-apime/zapdash/internal/pkg/response"
	"github.com/open-apime/zapdash/internal/service/auth"
	"github.com/open-apime/zapdash/internal/storage/model"
)

// CookieName é o cookie httpOnly com o token de sessão do painel.
const CookieName = "zapdash_token"

const (
	keyUserID    = "userID"
	keyUserEmail = "userEmail"
	keyUserRole  = "userRole"
	keySessionID = "sessionID"
)

type TokenParser interface {
	ParseToken(token string) (auth.Session, error)
}

// Auth aceita o token no header Authorization (Bearer) ou no cookie de sessão.
func Auth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c)
		if token == "" {
			response.ErrorWithMessage(c, http.StatusUnauthorized, "token ausente")
			return
		}

		session, err := parser.ParseToken(token)
		if err != nil {
			response.ErrorWithMessage(c, http.StatusUnauthorized, "token inválido")
			return
		}

		c.Set(keyUserID, session.UserID)
		c.Set(keyUserEmail, session.Email)
		c.Set(keyUserRole, string(session.Role))
		c.Set(keySessionID, session.SessionID)
		c.Next()
	}
}

// Session devolve a sessão gravada por Auth.
func Session(c *gin.Context) (auth.Session, bool) {
	userID := c.GetString(keyUserID)
	if userID == "" {
		return auth.Session{}, false
	}
	return auth.Session{
		UserID:    userID,
		Email:     c.GetString(keyUserEmail),
		Role:      model.Role(c.GetString(keyUserRole)),
		SessionID: c.GetString(keySessionID),
	}, true
}

func SetSessionCookie(c *gin.Context, token string, ttl time.Duration, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, token, int(ttl.Seconds()), "/", "", secure, true)
}

func ClearSessionCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieName, "", -1, "/", "", secure, true)
}

// TokenFromRequest devolve o token do header Authorization ou, na falta
// dele, do cookie de sessão.
func TokenFromRequest(c *gin.Context) string {
	if token := extractBearerToken(c.GetHeader("Authorization")); token != "" {
		return token
	}
	token, _ := c.Cookie(CookieName)
	return token
}

func extractBearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
