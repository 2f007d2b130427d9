package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/open-apime/zapdash/internal/pkg/response"
	"github.com/open-apime/zapdash/internal/storage"
	"github.com/open-apime/zapdash/internal/storage/model"
)

type RoleReader interface {
	Get(ctx context.Context, userID string) (model.Profile, error)
}

// RequireAdmin relê o papel no banco; o papel do token pode estar desatualizado.
func RequireAdmin(profiles RoleReader) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(keyUserID)
		if userID == "" {
			response.ErrorWithMessage(c, http.StatusUnauthorized, "usuário não autenticado")
			return
		}

		profile, err := profiles.Get(c.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				response.ErrorWithMessage(c, http.StatusUnauthorized, "usuário não encontrado")
				return
			}
			response.ErrorWithMessage(c, http.StatusInternalServerError, "erro ao verificar permissões")
			return
		}

		if profile.Role != model.RoleAdmin {
			response.ErrorWithMessage(c, http.StatusForbidden, "acesso negado: apenas administradores")
			return
		}

		c.Set(keyUserRole, string(profile.Role))
		c.Next()
	}
}
