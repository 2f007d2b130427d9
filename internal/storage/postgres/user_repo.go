package postgres

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/open-apime/zapdash/internal/storage"
	"github.com/open-apime/zapdash/internal/storage/model"
)

type userRepo struct {
	db *DB
}

func NewUserRepository(db *DB) storage.UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) Create(ctx context.Context, user model.User) (model.User, error) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO users (id, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, user.ID, user.Email, user.PasswordHash).Scan(&user.CreatedAt)
	if err != nil {
		return model.User{}, storage.Wrap("users.create", mapError(err))
	}
	return user, nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	if err := checkID(id); err != nil {
		return model.User{}, storage.Wrap("users.get", err)
	}
	return r.getOne(ctx, "users.get", `WHERE id = $1`, id)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	return r.getOne(ctx, "users.get_by_email", `WHERE email = $1`, strings.ToLower(strings.TrimSpace(email)))
}

func (r *userRepo) getOne(ctx context.Context, op, where string, arg any) (model.User, error) {
	var user model.User
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id::text, email, password_hash, created_at
		FROM users `+where, arg).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return model.User{}, storage.Wrap(op, mapError(err))
	}
	return user, nil
}
