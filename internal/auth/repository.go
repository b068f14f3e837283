package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/UjraaTech/Ujraa-API/internal/models"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new user and returns it.
func (r *Repository) Create(ctx context.Context, email, passwordHash, name, role string) (*models.User, error) {
	u := &models.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: passwordHash,
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, name, role, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, u.ID, u.Email, u.Name, u.Role, u.PasswordHash).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetByEmail returns the user for login, or nil when the email is unknown.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, name, role, password_hash, created_at, updated_at
		FROM users WHERE email = $1
	`, email).Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID resolves the authenticated user for request middleware.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, name, role, password_hash, created_at, updated_at
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Email, &u.Name, &u.Role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
