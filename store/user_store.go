package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"campaignForgeAPI/internal/apperr"
	"campaignForgeAPI/internal/user"
)

func (s *Store) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	query := `
	SELECT id, clerk_id, email, username, image_url, role, created_at, updated_at
	FROM users
	WHERE clerk_id = $1
	`

	u := &user.User{}
	err := s.db.QueryRow(ctx, query, clerkID).Scan(
		&u.ID,
		&u.ClerkID,
		&u.Email,
		&u.Username,
		&u.ImageURL,
		&u.Role,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFoundf("user %s", clerkID)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	query := `
	INSERT INTO users (id, clerk_id, email, username, image_url, role, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
	ON CONFLICT (clerk_id) DO UPDATE SET
		email = EXCLUDED.email,
		username = EXCLUDED.username,
		image_url = EXCLUDED.image_url,
		updated_at = NOW()
	`

	_, err := s.db.Exec(ctx, query, u.ID, u.ClerkID, u.Email, u.Username, u.ImageURL, u.Role)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}
