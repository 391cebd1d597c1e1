package services

import (
	"context"
	"database/sql"
	"time"

	"ripple-chat/internal/domain/user"
	"ripple-chat/internal/repository"
	ripple_errors "ripple-chat/pkg/errors"

	"github.com/google/uuid"
)

type UserService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) Get(ctx context.Context, id uuid.UUID) (user.User, error) {
	return s.users.GetByID(ctx, id)
}

type ProfileUpdate struct {
	DisplayName *string
	PhotoURL    *string
	Bio         *string
}

func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, upd ProfileUpdate) (user.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return user.User{}, err
	}
	if upd.DisplayName != nil {
		u.DisplayName = sql.NullString{String: *upd.DisplayName, Valid: *upd.DisplayName != ""}
	}
	if upd.PhotoURL != nil {
		u.PhotoURL = sql.NullString{String: *upd.PhotoURL, Valid: *upd.PhotoURL != ""}
	}
	if upd.Bio != nil {
		u.Bio = sql.NullString{String: *upd.Bio, Valid: *upd.Bio != ""}
	}
	u.UpdatedAt = time.Now()
	if err := s.users.Update(ctx, u); err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context, limit, offset int) ([]user.User, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.users.List(ctx, limit, offset)
}

func (s *UserService) RegisterPushToken(ctx context.Context, userID uuid.UUID, token, platform string) error {
	if token == "" {
		return ripple_errors.ErrInvalidInput
	}
	return s.users.AddPushToken(ctx, &user.PushToken{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     token,
		Platform:  platform,
		CreatedAt: time.Now(),
	})
}
