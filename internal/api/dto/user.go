package dto

import "time"

// UserDTO 用户
type UserDTO struct {
	UserID    *uint64    `json:"user_id,omitempty"`
	Username  *string    `json:"username,omitempty"`
	Nickname  *string    `json:"nickname,omitempty"`
	AvatarURL *string    `json:"avatar_url,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// RegisterDTO 注册
type RegisterDTO struct {
	Username string `json:"username" binding:"required" validate:"min=3,max=20"`
	Password string `json:"password" binding:"required" validate:"min=6,max=20"`
	Nickname string `json:"nickname" validate:"omitempty,min=1,max=15"`
}

// CredentialDTO 登录凭证
type CredentialDTO struct {
	Username *string `json:"username" binding:"required"`
	Password *string `json:"password" binding:"required"`
}

// LoginResultDTO 登录结果
type LoginResultDTO struct {
	Token string   `json:"token"`
	User  *UserDTO `json:"user"`
}
