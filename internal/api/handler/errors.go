package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/open-apime/zapdash/internal/api/middleware"
	"github.com/open-apime/zapdash/internal/gateway"
	"github.com/open-apime/zapdash/internal/pkg/response"
	"github.com/open-apime/zapdash/internal/service/admin"
	"github.com/open-apime/zapdash/internal/service/auth"
	"github.com/open-apime/zapdash/internal/service/campaign"
	"github.com/open-apime/zapdash/internal/service/instance"
	"github.com/open-apime/zapdash/internal/storage"
)

const msgInternal = "erro interno do servidor"

func statusFor(err error) int {
	var (
		campaignErr *campaign.ValidationError
		authErr     *auth.ValidationError
		adminErr    *admin.ValidationError
		gwErr       *gateway.Error
	)

	switch {
	case errors.As(err, &campaignErr), errors.As(err, &authErr), errors.As(err, &adminErr):
		return http.StatusBadRequest
	case gateway.IsNotFound(err),
		errors.Is(err, storage.ErrNotFound),
		errors.Is(err, instance.ErrNoInstance),
		errors.Is(err, instance.ErrNoPairing):
		return http.StatusNotFound
	case errors.Is(err, campaign.ErrAlreadyRunning),
		errors.Is(err, campaign.ErrNotRunning),
		errors.Is(err, campaign.ErrInstanceNotConnected),
		errors.Is(err, instance.ErrCreationInProgress),
		errors.Is(err, instance.ErrInstanceExists),
		errors.Is(err, auth.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.As(err, &gwErr), errors.Is(err, gateway.ErrNoCode):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError responde com o status do erro. Falhas internas não expõem a
// mensagem original; ela vai para o log de acesso via c.Error.
func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		response.ErrorWithMessage(c, status, msgInternal)
		return
	}
	response.Error(c, status, err)
}

func requireSession(c *gin.Context) (auth.Session, bool) {
	session, ok := middleware.Session(c)
	if !ok {
		response.ErrorWithMessage(c, http.StatusUnauthorized, "usuário não autenticado")
	}
	return session, ok
}
