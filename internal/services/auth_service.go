package services

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"ripple-chat/internal/domain/user"
	"ripple-chat/internal/repository"
	ripple_errors "ripple-chat/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	users     repository.UserRepository
	jwtSecret []byte
	expiry    time.Duration
}

type Claims struct {
	UserID string `json:"uid"`
	jwt.RegisteredClaims
}

func NewAuthService(users repository.UserRepository, jwtSecret string, expiryMinutes int) *AuthService {
	return &AuthService{
		users:     users,
		jwtSecret: []byte(jwtSecret),
		expiry:    time.Duration(expiryMinutes) * time.Minute,
	}
}

func (s *AuthService) Register(ctx context.Context, username, password, displayName string) (user.User, string, error) {
	username = strings.TrimSpace(strings.ToLower(username))
	if username == "" || len(password) < 8 {
		return user.User{}, "", ripple_errors.ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return user.User{}, "", err
	}

	u := user.User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if displayName != "" {
		u.DisplayName = sql.NullString{String: displayName, Valid: true}
	}

	if err := s.users.Create(ctx, &u); err != nil {
		return user.User{}, "", err
	}

	token, err := s.issueToken(u.ID)
	if err != nil {
		return user.User{}, "", err
	}
	return u, token, nil
}

func (s *AuthService) Login(ctx context.Context, username, password string) (user.User, string, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(strings.ToLower(username)))
	if err != nil {
		return user.User{}, "", ripple_errors.ErrUnauthorized
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return user.User{}, "", ripple_errors.ErrUnauthorized
	}
	token, err := s.issueToken(u.ID)
	if err != nil {
		return user.User{}, "", err
	}
	return u, token, nil
}

func (s *AuthService) ParseAccessToken(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ripple_errors.ErrUnauthorized
	}
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ripple_errors.ErrUnauthorized
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, ripple_errors.ErrUnauthorized
	}
	return claims, nil
}

func (s *AuthService) issueToken(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			Subject:   userID.String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
