package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/open-apime/zapdash/internal/storage"
	"github.com/open-apime/zapdash/internal/storage/model"
)

type profileRepo struct {
	db *DB
}

func NewProfileRepository(db *DB) storage.ProfileRepository {
	return &profileRepo{db: db}
}

func (r *profileRepo) Create(ctx context.Context, profile model.Profile) (model.Profile, error) {
	if profile.Role == "" {
		profile.Role = model.RoleUser
	}
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	_, err := r.db.Conn.ExecContext(ctx, `
		INSERT INTO profiles (id, role, instance_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, profile.ID, string(profile.Role), profile.InstanceName, now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return model.Profile{}, storage.Wrap("profiles.create", mapError(err))
	}
	return profile, nil
}

func (r *profileRepo) Get(ctx context.Context, userID string) (model.Profile, error) {
	var (
		profile              model.Profile
		instance             sql.NullString
		createdAt, updatedAt string
	)
	err := r.db.Conn.QueryRowContext(ctx, `
		SELECT id, role, instance_name, created_at, updated_at
		FROM profiles
		WHERE id = ?
	`, userID).Scan(&profile.ID, &profile.Role, &instance, &createdAt, &updatedAt)
	if err != nil {
		return model.Profile{}, storage.Wrap("profiles.get", mapError(err))
	}

	if instance.Valid {
		profile.InstanceName = &instance.String
	}
	profile.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	profile.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return profile, nil
}

func (r *profileRepo) SetInstanceName(ctx context.Context, userID, instanceName string) (model.Profile, error) {
	if err := r.setInstance(ctx, "profiles.set_instance", userID, &instanceName); err != nil {
		return model.Profile{}, err
	}
	return r.Get(ctx, userID)
}

func (r *profileRepo) ClearInstanceName(ctx context.Context, userID string) error {
	return r.setInstance(ctx, "profiles.clear_instance", userID, nil)
}

func (r *profileRepo) AdminClearInstanceName(ctx context.Context, userID string) error {
	return r.setInstance(ctx, "admin_clear_instance_name", userID, nil)
}

func (r *profileRepo) setInstance(ctx context.Context, op, userID string, name *string) error {
	res, err := r.db.Conn.ExecContext(ctx, `
		UPDATE profiles
		SET instance_name = ?, updated_at = ?
		WHERE id = ?
	`, name, time.Now().UTC().Format(time.RFC3339), userID)
	if err != nil {
		return storage.Wrap(op, mapError(err))
	}
	return storage.Wrap(op, requireAffected(res))
}

func (r *profileRepo) UpdateRole(ctx context.Context, userID string, role model.Role) error {
	res, err := r.db.Conn.ExecContext(ctx, `
		UPDATE profiles
		SET role = ?, updated_at = ?
		WHERE id = ?
	`, string(role), time.Now().UTC().Format(time.RFC3339), userID)
	if err != nil {
		return storage.Wrap("profiles.update_role", mapError(err))
	}
	return storage.Wrap("profiles.update_role", requireAffected(res))
}

func (r *profileRepo) ListUsersWithProfiles(ctx context.Context) ([]model.UserProfile, error) {
	rows, err := r.db.Conn.QueryContext(ctx, `
		SELECT u.id, u.email, p.role, p.instance_name, u.created_at
		FROM users u
		JOIN profiles p ON p.id = u.id
		ORDER BY u.created_at, u.email
	`)
	if err != nil {
		return nil, storage.Wrap("get_all_users_with_profiles", err)
	}
	defer rows.Close()

	users := []model.UserProfile{}
	for rows.Next() {
		var (
			u         model.UserProfile
			instance  sql.NullString
			createdAt string
		)
		if err := rows.Scan(&u.ID, &u.Email, &u.Role, &instance, &createdAt); err != nil {
			return nil, storage.Wrap("get_all_users_with_profiles", err)
		}
		if instance.Valid {
			name := instance.String
			u.InstanceName = &name
		}
		u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		users = append(users, u)
	}
	return users, storage.Wrap("get_all_users_with_profiles", rows.Err())
}

// DeleteUserByAdmin remove o usuário; o perfil cai junto pelo ON DELETE CASCADE.
func (r *profileRepo) DeleteUserByAdmin(ctx context.Context, userID string) error {
	tx, err := r.db.Conn.BeginTx(ctx, nil)
	if err != nil {
		return storage.Wrap("delete_user_by_admin", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, userID); err != nil {
		return storage.Wrap("delete_user_by_admin", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return storage.Wrap("delete_user_by_admin", err)
	}
	if err := requireAffected(res); err != nil {
		return storage.Wrap("delete_user_by_admin", err)
	}
	return storage.Wrap("delete_user_by_admin", tx.Commit())
}
