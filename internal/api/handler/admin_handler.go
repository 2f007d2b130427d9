package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/open-apime/zapdash/internal/pkg/response"
	"github.com/open-apime/zapdash/internal/service/admin"
	"github.com/open-apime/zapdash/internal/storage/model"
)

type AdminService interface {
	Overview(ctx context.Context) (admin.Overview, error)
	RestartInstance(ctx context.Context, name string) (admin.Overview, error)
	DeleteInstance(ctx context.Context, name string) (admin.Overview, error)
	UpdateRole(ctx context.Context, userID string, role model.Role) (admin.Overview, error)
	DeleteUser(ctx context.Context, userID string) (admin.Overview, error)
}

// AdminHandler espera um grupo já protegido por RequireAdmin.
type AdminHandler struct {
	service AdminService
}

func NewAdminHandler(service AdminService) *AdminHandler {
	return &AdminHandler{service: service}
}

func (h *AdminHandler) Register(r *gin.RouterGroup) {
	r.GET("/overview", h.overview)
	r.POST("/instances/:name/restart", h.restartInstance)
	r.DELETE("/instances/:name", h.deleteInstance)
	r.PATCH("/users/:id/role", h.updateRole)
	r.DELETE("/users/:id", h.deleteUser)
}

type updateRoleRequest struct {
	Role model.Role `json:"role" binding:"required"`
}

func (h *AdminHandler) overview(c *gin.Context) {
	h.reply(c)(h.service.Overview(c.Request.Context()))
}

func (h *AdminHandler) restartInstance(c *gin.Context) {
	h.reply(c)(h.service.RestartInstance(c.Request.Context(), c.Param("name")))
}

func (h *AdminHandler) deleteInstance(c *gin.Context) {
	h.reply(c)(h.service.DeleteInstance(c.Request.Context(), c.Param("name")))
}

func (h *AdminHandler) updateRole(c *gin.Context) {
	var req updateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMessage(c, http.StatusBadRequest, "informe o papel")
		return
	}
	h.reply(c)(h.service.UpdateRole(c.Request.Context(), c.Param("id"), req.Role))
}

func (h *AdminHandler) deleteUser(c *gin.Context) {
	h.reply(c)(h.service.DeleteUser(c.Request.Context(), c.Param("id")))
}

func (h *AdminHandler) reply(c *gin.Context) func(admin.Overview, error) {
	return func(ov admin.Overview, err error) {
		if err != nil {
			writeError(c, err)
			return
		}
		response.Success(c, http.StatusOK, ov)
	}
}
