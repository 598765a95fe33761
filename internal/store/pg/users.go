package pg

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/kovacsdavid/obvia/internal/domain/repository"
)

type userRepo struct{ q querier }

const userColumns = `id::text, email, password_hash, first_name, last_name, phone, status,
	profile_picture, mfa_enabled, mfa_secret, last_login_at, created_at, updated_at, deleted_at`

func scanUser(row pgx.Row) (*repository.User, error) {
	var u repository.User
	var status string
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone, &status,
		&u.ProfilePicture, &u.MFAEnabled, &u.MFASecret, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt, &u.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	u.Status = repository.UserStatus(status)
	return &u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND deleted_at IS NULL`
	u, err := scanUser(r.q.QueryRow(ctx, q, email))
	if err != nil {
		return nil, mapErr("get user by email", err)
	}
	return u, nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*repository.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	u, err := scanUser(r.q.QueryRow(ctx, q, id))
	if err != nil {
		return nil, mapErr("get user by id", err)
	}
	return u, nil
}

func (r *userRepo) Create(ctx context.Context, in repository.CreateUserInput) (*repository.User, error) {
	status := in.Status
	if status == "" {
		status = repository.UserStatusUncheckedEmail
	}
	const q = `
		INSERT INTO users (email, password_hash, first_name, last_name, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + userColumns
	u, err := scanUser(r.q.QueryRow(ctx, q, in.Email, in.PasswordHash, in.FirstName, in.LastName, string(status)))
	if err != nil {
		return nil, mapErr("create user", err)
	}
	return u, nil
}

func (r *userRepo) TouchLastLogin(ctx context.Context, id string) error {
	const q = `UPDATE users SET last_login_at = NOW(), updated_at = NOW() WHERE id = $1`
	_, err := r.q.Exec(ctx, q, id)
	return mapErr("touch last login", err)
}
