package db

import (
	"context"
	"errors"
	"fmt"

	"ridehail/internal/auth-service/core/domain/model"
	"ridehail/internal/auth-service/core/myerrors"
	"ridehail/internal/auth-service/core/ports"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const uniqueViolation = "23505"

type UsersRepo struct {
	db *DB
}

func NewUsersRepo(db *DB) ports.IUsersRepo {
	return &UsersRepo{db: db}
}

func (ur *UsersRepo) Create(ctx context.Context, user model.User) (string, error) {
	q := `
		INSERT INTO users (username, email, password_hash, role, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING user_id`

	var id string
	err := ur.db.pool.QueryRow(ctx, q,
		user.Username, user.Email, user.PasswordHash, user.Role, model.StatusActive,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return "", myerrors.ErrEmailRegistered
		}
		return "", fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

func (ur *UsersRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	q := `
		SELECT user_id, username, email, password_hash, role, status, created_at, updated_at
		FROM users
		WHERE email = $1`

	var u model.User
	err := ur.db.pool.QueryRow(ctx, q, email).Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.Status, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, myerrors.ErrUnknownEmail
		}
		return model.User{}, fmt.Errorf("select user by email: %w", err)
	}
	return u, nil
}
