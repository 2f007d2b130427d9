package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/open-apime/zapdash/internal/gateway"
	"github.com/open-apime/zapdash/internal/pkg/response"
	"github.com/open-apime/zapdash/internal/service/instance"
)

const (
	defaultQRSize = 300
	minQRSize     = 128
	maxQRSize     = 1024

	// tempo máximo da criação manual depois que o cliente desiste da requisição
	createTimeout = 2 * time.Minute
)

type InstanceService interface {
	View(userID string) instance.View
	Create(ctx context.Context, owner instance.Owner) (*gateway.InstanceDetails, error)
	Connect(ctx context.Context, userID string) (instance.PairingState, error)
	Pairing(userID string) instance.PairingState
	QRCodePNG(userID string, size int) ([]byte, error)
	ClosePairing(userID string)
	Restart(ctx context.Context, userID string) (instance.PairingState, error)
}

type InstanceHandler struct {
	service InstanceService
}

func NewInstanceHandler(service InstanceService) *InstanceHandler {
	return &InstanceHandler{service: service}
}

func (h *InstanceHandler) Register(r *gin.RouterGroup) {
	g := r.Group("/instance")
	g.GET("", h.view)
	g.POST("", h.create)
	g.POST("/connect", h.connect)
	g.GET("/qr", h.pairing)
	g.GET("/qr.png", h.qrPNG)
	g.DELETE("/qr", h.closePairing)
	g.POST("/restart", h.restart)
}

func (h *InstanceHandler) view(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, h.service.View(session.UserID))
}

// create é o "tentar novamente" manual quando o provisionamento automático falha.
func (h *InstanceHandler) create(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	// desistir da requisição não pode apagar a instância recém-criada
	ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), createTimeout)
	defer cancel()

	owner := instance.Owner{ID: session.UserID, Email: session.Email}
	if _, err := h.service.Create(ctx, owner); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, h.service.View(session.UserID))
}

func (h *InstanceHandler) connect(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	state, err := h.service.Connect(c.Request.Context(), session.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, state)
}

func (h *InstanceHandler) pairing(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, h.service.Pairing(session.UserID))
}

func (h *InstanceHandler) qrPNG(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	size := defaultQRSize
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < minQRSize || n > maxQRSize {
			response.ErrorWithMessage(c, http.StatusBadRequest, "tamanho inválido: use entre 128 e 1024")
			return
		}
		size = n
	}

	png, err := h.service.QRCodePNG(session.UserID, size)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}

func (h *InstanceHandler) closePairing(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	h.service.ClosePairing(session.UserID)
	response.Success(c, http.StatusOK, h.service.Pairing(session.UserID))
}

func (h *InstanceHandler) restart(c *gin.Context) {
	session, ok := requireSession(c)
	if !ok {
		return
	}
	state, err := h.service.Restart(c.Request.Context(), session.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, state)
}
