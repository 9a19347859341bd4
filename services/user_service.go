package services

import (
	"context"

	"campaignForgeAPI/internal/user"
)

// UserStore is the slice of the persistence port the profile reads use.
type UserStore interface {
	GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error)
	CreateUser(ctx context.Context, u *user.User) error
}

type UserService struct {
	store UserStore
}

func NewUserService(store UserStore) *UserService {
	return &UserService{store: store}
}

func (s *UserService) GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error) {
	return s.store.GetUserByClerkID(ctx, clerkID)
}

// EnsureUser upserts the identity-provider record into the local users table.
func (s *UserService) EnsureUser(ctx context.Context, u *user.User) error {
	return s.store.CreateUser(ctx, u)
}
