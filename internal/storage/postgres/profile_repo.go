package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/open-apime/zapdash/internal/storage"
	"github.com/open-apime/zapdash/internal/storage/model"
)

type profileRepo struct {
	db *DB
}

func NewProfileRepository(db *DB) storage.ProfileRepository {
	return &profileRepo{db: db}
}

const profileColumns = `id::text, role, instance_name, created_at, updated_at`

func (r *profileRepo) Create(ctx context.Context, profile model.Profile) (model.Profile, error) {
	if profile.Role == "" {
		profile.Role = model.RoleUser
	}
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO profiles (id, role, instance_name)
		VALUES ($1, $2, $3)
		RETURNING `+profileColumns,
		profile.ID, string(profile.Role), profile.InstanceName,
	).Scan(&profile.ID, (*string)(&profile.Role), &profile.InstanceName, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		return model.Profile{}, storage.Wrap("profiles.create", mapError(err))
	}
	return profile, nil
}

func (r *profileRepo) Get(ctx context.Context, userID string) (model.Profile, error) {
	if err := checkID(userID); err != nil {
		return model.Profile{}, storage.Wrap("profiles.get", err)
	}
	var profile model.Profile
	err := r.db.Pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, userID).
		Scan(&profile.ID, (*string)(&profile.Role), &profile.InstanceName, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		return model.Profile{}, storage.Wrap("profiles.get", mapError(err))
	}
	return profile, nil
}

func (r *profileRepo) SetInstanceName(ctx context.Context, userID, instanceName string) (model.Profile, error) {
	if err := checkID(userID); err != nil {
		return model.Profile{}, storage.Wrap("profiles.set_instance", err)
	}
	var profile model.Profile
	err := r.db.Pool.QueryRow(ctx, `
		UPDATE profiles
		SET instance_name = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+profileColumns,
		userID, instanceName,
	).Scan(&profile.ID, (*string)(&profile.Role), &profile.InstanceName, &profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		return model.Profile{}, storage.Wrap("profiles.set_instance", mapError(err))
	}
	return profile, nil
}

func (r *profileRepo) ClearInstanceName(ctx context.Context, userID string) error {
	if err := checkID(userID); err != nil {
		return storage.Wrap("profiles.clear_instance", err)
	}
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE profiles
		SET instance_name = NULL, updated_at = NOW()
		WHERE id = $1
	`, userID)
	return storage.Wrap("profiles.clear_instance", affected(tag, err))
}

func (r *profileRepo) UpdateRole(ctx context.Context, userID string, role model.Role) error {
	if err := checkID(userID); err != nil {
		return storage.Wrap("profiles.update_role", err)
	}
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE profiles
		SET role = $2, updated_at = NOW()
		WHERE id = $1
	`, userID, string(role))
	return storage.Wrap("profiles.update_role", affected(tag, err))
}

func (r *profileRepo) ListUsersWithProfiles(ctx context.Context) ([]model.UserProfile, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id::text, email, role, instance_name, created_at
		FROM get_all_users_with_profiles()
	`)
	if err != nil {
		return nil, storage.Wrap("get_all_users_with_profiles", mapError(err))
	}
	defer rows.Close()

	users := []model.UserProfile{}
	for rows.Next() {
		var u model.UserProfile
		if err := rows.Scan(&u.ID, &u.Email, (*string)(&u.Role), &u.InstanceName, &u.CreatedAt); err != nil {
			return nil, storage.Wrap("get_all_users_with_profiles", err)
		}
		users = append(users, u)
	}
	return users, storage.Wrap("get_all_users_with_profiles", rows.Err())
}

func (r *profileRepo) DeleteUserByAdmin(ctx context.Context, userID string) error {
	return r.callCount(ctx, "delete_user_by_admin", `SELECT delete_user_by_admin($1)`, userID)
}

func (r *profileRepo) AdminClearInstanceName(ctx context.Context, userID string) error {
	return r.callCount(ctx, "admin_clear_instance_name", `SELECT admin_clear_instance_name($1)`, userID)
}

// callCount executa uma função que devolve quantas linhas alterou.
func (r *profileRepo) callCount(ctx context.Context, op, query, userID string) error {
	if err := checkID(userID); err != nil {
		return storage.Wrap(op, err)
	}
	var count int64
	if err := r.db.Pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return storage.Wrap(op, mapError(err))
	}
	if count == 0 {
		return storage.Wrap(op, storage.ErrNotFound)
	}
	return nil
}

func affected(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}
