package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/open-apime/zapdash/internal/notify"
	"github.com/open-apime/zapdash/internal/pkg/response"
	"github.com/open-apime/zapdash/internal/service/auth"
	"github.com/open-apime/zapdash/internal/service/profile"
)

type Bootstrapper interface {
	Bootstrap(ctx context.Context, session auth.Session) (profile.Dashboard, error)
}

type NotificationDrainer interface {
	Drain(userID string) []notify.Notification
}

// MeHandler atende a carga inicial do painel e o feed de notificações.
type MeHandler struct {
	profiles      Bootstrapper
	notifications NotificationDrainer
}

func NewMeHandler(profiles Bootstrapper, notifications NotificationDrainer) *MeHandler {
	return &MeHandler{profiles: profiles, notifications: notifications}
}

func (h *MeHandler) Register(r *gin.RouterGroup) {
	r.GET("/me", h.me)
	r.GET("/notifications", h.drain)
}

func (h *MeHandler) me(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	dash, err := h.profiles.Bootstrap(c.Request.Context(), session)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, dash)
}

func (h *MeHandler) drain(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, h.notifications.Drain(session.UserID))
}
