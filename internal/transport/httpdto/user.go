package httpdto

import (
	"time"

	"ripple-chat/internal/domain/user"
)

type UserDTO struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	DisplayName string     `json:"displayName,omitempty"`
	PhotoURL    string     `json:"photoUrl,omitempty"`
	Bio         string     `json:"bio,omitempty"`
	IsOnline    bool       `json:"isOnline"`
	LastSeen    *time.Time `json:"lastSeen,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func NewUserDTO(u user.User) UserDTO {
	dto := UserDTO{
		ID:        u.ID.String(),
		Username:  u.Username,
		IsOnline:  u.IsOnline,
		CreatedAt: u.CreatedAt,
	}
	if u.DisplayName.Valid {
		dto.DisplayName = u.DisplayName.String
	}
	if u.PhotoURL.Valid {
		dto.PhotoURL = u.PhotoURL.String
	}
	if u.Bio.Valid {
		dto.Bio = u.Bio.String
	}
	if u.LastSeen.Valid {
		t := u.LastSeen.Time
		dto.LastSeen = &t
	}
	return dto
}

func NewUserDTOs(users []user.User) []UserDTO {
	out := make([]UserDTO, len(users))
	for i, u := range users {
		out[i] = NewUserDTO(u)
	}
	return out
}

type UpdateProfileRequest struct {
	DisplayName *string `json:"displayName"`
	PhotoURL    *string `json:"photoUrl"`
	Bio         *string `json:"bio"`
}

type RegisterPushTokenRequest struct {
	Token    string `json:"token"`
	Platform string `json:"platform"`
}
