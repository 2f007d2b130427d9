package profile

import (
	"context"

	"go.uber.org/zap"

	"github.com/open-apime/zapdash/internal/gateway"
	"github.com/open-apime/zapdash/internal/service/admin"
	"github.com/open-apime/zapdash/internal/service/auth"
	"github.com/open-apime/zapdash/internal/service/instance"
	"github.com/open-apime/zapdash/internal/storage/model"
)

type ProfileReader interface {
	Get(ctx context.Context, userID string) (model.Profile, error)
}

type InstanceController interface {
	Load(ctx context.Context, userID, storedName string) (*gateway.InstanceDetails, error)
	AutoProvision(ctx context.Context, owner instance.Owner, sessionID string) bool
	View(userID string) instance.View
}

type AdminOverview interface {
	Overview(ctx context.Context) (admin.Overview, error)
}

// Dashboard é a primeira carga do painel: o perfil e, conforme o papel, a
// instância do usuário ou a visão geral do admin.
type Dashboard struct {
	Email    string          `json:"email"`
	Profile  model.Profile   `json:"profile"`
	Instance *instance.View  `json:"instance,omitempty"`
	Admin    *admin.Overview `json:"admin,omitempty"`
}

type Service struct {
	profiles  ProfileReader
	instances InstanceController
	admin     AdminOverview
	log       *zap.Logger
}

func NewService(profiles ProfileReader, instances InstanceController, adminSvc AdminOverview, log *zap.Logger) *Service {
	return &Service{profiles: profiles, instances: instances, admin: adminSvc, log: log.Named("profile")}
}

func (s *Service) Bootstrap(ctx context.Context, session auth.Session) (Dashboard, error) {
	p, err := s.profiles.Get(ctx, session.UserID)
	if err != nil {
		return Dashboard{}, err
	}
	dash := Dashboard{Email: session.Email, Profile: p}

	if p.Role == model.RoleAdmin {
		ov, err := s.admin.Overview(ctx)
		if err != nil {
			return Dashboard{}, err
		}
		dash.Admin = &ov
		return dash, nil
	}

	details, err := s.instances.Load(ctx, session.UserID, p.Instance())
	if err != nil {
		return Dashboard{}, err
	}
	if details == nil {
		owner := instance.Owner{ID: session.UserID, Email: session.Email}
		if s.instances.AutoProvision(ctx, owner, session.SessionID) {
			s.log.Debug("provisionamento automático disparado", zap.String("user", session.UserID))
		}
	}

	view := s.instances.View(session.UserID)
	dash.Instance = &view
	return dash, nil
}
