package admin

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/open-apime/zapdash/internal/gateway"
	"github.com/open-apime/zapdash/internal/storage/model"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type Gateway interface {
	FetchAllInstances(ctx context.Context) ([]gateway.InstanceDetails, error)
	RestartInstance(ctx context.Context, name string) error
	DeleteInstance(ctx context.Context, name string) error
}

// Profiles são os procedimentos administrativos do repositório de perfis.
type Profiles interface {
	ListUsersWithProfiles(ctx context.Context) ([]model.UserProfile, error)
	UpdateRole(ctx context.Context, userID string, role model.Role) error
	DeleteUserByAdmin(ctx context.Context, userID string) error
	AdminClearInstanceName(ctx context.Context, userID string) error
}

type Overview struct {
	Instances       []gateway.InstanceDetails `json:"instances"`
	Users           []model.UserProfile       `json:"users"`
	ActiveInstances int                       `json:"activeInstances"`
	ConnectionRate  int                       `json:"connectionRate"`
}

type Service struct {
	gw           Gateway
	profiles     Profiles
	log          *zap.Logger
	restartDelay time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
}

func NewService(gw Gateway, profiles Profiles, restartDelay time.Duration, log *zap.Logger) *Service {
	return &Service{
		gw:           gw,
		profiles:     profiles,
		log:          log.Named("admin"),
		restartDelay: restartDelay,
		sleep:        sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ConnectionRate é o percentual arredondado de instâncias abertas.
func ConnectionRate(active, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(active) / float64(total) * 100))
}

func (s *Service) Overview(ctx context.Context) (Overview, error) {
	instances, err := s.gw.FetchAllInstances(ctx)
	if err != nil {
		return Overview{}, err
	}
	users, err := s.profiles.ListUsersWithProfiles(ctx)
	if err != nil {
		return Overview{}, err
	}

	active := 0
	for _, inst := range instances {
		if inst.Status == gateway.StatusOpen {
			active++
		}
	}
	if instances == nil {
		instances = []gateway.InstanceDetails{}
	}
	return Overview{
		Instances:       instances,
		Users:           users,
		ActiveInstances: active,
		ConnectionRate:  ConnectionRate(active, len(instances)),
	}, nil
}

// RestartInstance reinicia a instância e espera o gateway assentar antes de
// recarregar a visão geral.
func (s *Service) RestartInstance(ctx context.Context, name string) (Overview, error) {
	if err := s.gw.RestartInstance(ctx, name); err != nil {
		return Overview{}, err
	}
	s.log.Info("instância reiniciada pelo admin", zap.String("instance", name))

	if err := s.sleep(ctx, s.restartDelay); err != nil {
		return Overview{}, err
	}
	return s.Overview(ctx)
}

func (s *Service) DeleteInstance(ctx context.Context, name string) (Overview, error) {
	users, err := s.profiles.ListUsersWithProfiles(ctx)
	if err != nil {
		return Overview{}, err
	}
	var ownerID string
	for _, u := range users {
		if u.Instance() == name {
			ownerID = u.ID
			break
		}
	}

	if err := s.gw.DeleteInstance(ctx, name); err != nil {
		return Overview{}, err
	}
	s.log.Info("instância deletada pelo admin", zap.String("instance", name), zap.String("owner", ownerID))

	if ownerID != "" {
		if err := s.profiles.AdminClearInstanceName(ctx, ownerID); err != nil {
			return Overview{}, fmt.Errorf("instância deletada da API, mas falhou ao atualizar o perfil: %w", err)
		}
	}
	return s.Overview(ctx)
}

func (s *Service) UpdateRole(ctx context.Context, userID string, role model.Role) (Overview, error) {
	if !role.Valid() {
		return Overview{}, &ValidationError{Field: "role", Message: "papel inválido: use admin ou user"}
	}
	if err := s.profiles.UpdateRole(ctx, userID, role); err != nil {
		return Overview{}, err
	}
	s.log.Info("papel atualizado", zap.String("user", userID), zap.String("role", string(role)))
	return s.Overview(ctx)
}

func (s *Service) DeleteUser(ctx context.Context, userID string) (Overview, error) {
	if err := s.profiles.DeleteUserByAdmin(ctx, userID); err != nil {
		return Overview{}, err
	}
	s.log.Info("usuário removido", zap.String("user", userID))
	return s.Overview(ctx)
}
