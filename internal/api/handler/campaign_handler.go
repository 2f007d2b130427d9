package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/open-apime/zapdash/internal/pkg/response"
	"github.com/open-apime/zapdash/internal/service/campaign"
)

type CampaignService interface {
	Snapshot(userID string) campaign.Snapshot
	Start(ctx context.Context, userID string, in campaign.Input) (campaign.Snapshot, error)
	Cancel(userID string) error
	Reset(userID string) error
}

type CampaignHandler struct {
	service CampaignService
}

func NewCampaignHandler(service CampaignService) *CampaignHandler {
	return &CampaignHandler{service: service}
}

func (h *CampaignHandler) Register(r *gin.RouterGroup) {
	g := r.Group("/campaign")
	g.GET("", h.snapshot)
	g.POST("", h.start)
	g.POST("/cancel", h.cancel)
	g.DELETE("", h.reset)
}

func (h *CampaignHandler) snapshot(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, h.service.Snapshot(session.UserID))
}

func (h *CampaignHandler) start(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	var in campaign.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		response.Error(c, http.StatusBadRequest, err)
		return
	}
	snap, err := h.service.Start(c.Request.Context(), session.UserID, in)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusAccepted, snap)
}

func (h *CampaignHandler) cancel(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	if err := h.service.Cancel(session.UserID); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.service.Snapshot(session.UserID))
}

func (h *CampaignHandler) reset(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	if err := h.service.Reset(session.UserID); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, h.service.Snapshot(session.UserID))
}
