package storage

import (
	"context"
	"errors"

	"github.com/open-apime/zapdash/internal/storage/model"
)

var (
	ErrNotFound  = errors.New("registro não encontrado")
	ErrDuplicate = errors.New("registro duplicado")
)

// Error embrulha qualquer falha do repositório de perfis com a operação que falhou.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return "storage: " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap devolve nil para err nil e *Error caso contrário.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Op: op, Err: err}
}

type UserRepository interface {
	Create(ctx context.Context, user model.User) (model.User, error)
	GetByID(ctx context.Context, id string) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
}

type ProfileRepository interface {
	Create(ctx context.Context, profile model.Profile) (model.Profile, error)
	Get(ctx context.Context, userID string) (model.Profile, error)
	SetInstanceName(ctx context.Context, userID, instanceName string) (model.Profile, error)
	ClearInstanceName(ctx context.Context, userID string) error
	UpdateRole(ctx context.Context, userID string, role model.Role) error

	// Procedimentos administrativos.
	ListUsersWithProfiles(ctx context.Context) ([]model.UserProfile, error)
	DeleteUserByAdmin(ctx context.Context, userID string) error
	AdminClearInstanceName(ctx context.Context, userID string) error
}
