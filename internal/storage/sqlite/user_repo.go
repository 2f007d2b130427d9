package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/open-apime/zapdash/internal/storage"
	"github.com/open-apime/zapdash/internal/storage/model"
)

type userRepo struct {
	db *DB
}

// NewUserRepository cria um novo repositório de usuários.
func NewUserRepository(db *DB) storage.UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user model.User) (model.User, error) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = time.Now().UTC()

	_, err := r.db.Conn.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, created_at)
		VALUES (?, ?, ?, ?)
	`, user.ID, user.Email, user.PasswordHash, user.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return model.User{}, storage.Wrap("users.create", mapError(err))
	}
	return user, nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	return r.getOne(ctx, "users.get", `WHERE id = ?`, id)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getOne(ctx, "users.get_by_email", `WHERE email = ?`, strings.ToLower(strings.TrimSpace(email)))
}

func (r *userRepo) getOne(ctx context.Context, op, where string, arg any) (model.User, error) {
	var user model.User
	var createdAt string

	err := r.db.Conn.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at
		FROM users `+where, arg).Scan(&user.ID, &user.Email, &user.PasswordHash, &createdAt)
	if err != nil {
		return model.User{}, storage.Wrap(op, mapError(err))
	}

	user.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return user, nil
}
