package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/open-apime/zapdash/internal/api/middleware"
	"github.com/open-apime/zapdash/internal/pkg/response"
	"github.com/open-apime/zapdash/internal/service/auth"
	"github.com/open-apime/zapdash/internal/storage/model"
)

type Authenticator interface {
	Register(ctx context.Context, email, password, confirm string) (model.User, error)
	Login(ctx context.Context, email, password string) (string, auth.Session, error)
	TTL() time.Duration
	ParseToken(token string) (auth.Session, error)
}

// PairingCloser encerra o fluxo de QR code do usuário que sai.
type PairingCloser interface {
	ClosePairing(userID string)
}

type AuthHandler struct {
	service      Authenticator
	pairings     PairingCloser
	secureCookie bool
}

// NewAuthHandler aceita pairings nil.
func NewAuthHandler(service Authenticator, pairings PairingCloser, secureCookie bool) *AuthHandler {
	return &AuthHandler{service: service, pairings: pairings, secureCookie: secureCookie}
}

// Register monta /auth; limit roda antes de cadastro e login.
func (h *AuthHandler) Register(r *gin.RouterGroup, limit ...gin.HandlerFunc) {
	g := r.Group("/auth")
	g.POST("/register", append(limit, h.signUp)...)
	g.POST("/login", append(limit, h.login)...)
	g.POST("/logout", h.logout)
}

type signUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Confirm  string `json:"confirmPassword"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expiresAt"`
	UserID    string     `json:"userId"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
}

func (h *AuthHandler) signUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err)
		return
	}
	user, err := h.service.Register(c.Request.Context(), req.Email, req.Password, req.Confirm)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, user)
}

func (h *AuthHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithMessage(c, http.StatusBadRequest, "informe e-mail e senha")
		return
	}
	token, session, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	ttl := h.service.TTL()
	middleware.SetSessionCookie(c, token, ttl, h.secureCookie)
	response.Success(c, http.StatusOK, loginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(ttl).UTC(),
		UserID:    session.UserID,
		Email:     session.Email,
		Role:      session.Role,
	})
}

// logout é público: um token expirado ainda limpa o cookie. O QR code só é
// fechado quando o token é válido.
func (h *AuthHandler) logout(c *gin.Context) {
	if token := middleware.TokenFromRequest(c); token != "" && h.pairings != nil {
		if session, err := h.service.ParseToken(token); err == nil {
			h.pairings.ClosePairing(session.UserID)
		}
	}
	middleware.ClearSessionCookie(c, h.secureCookie)
	response.Success(c, http.StatusOK, gin.H{"loggedOut": true})
}
