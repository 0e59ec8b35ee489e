package auth

import (
	"time"
)

// User is an organizer account.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Name         string `gorm:"type:varchar(100);not null" json:"name"`
	Email        string `gorm:"type:varchar(160);not null;uniqueIndex" json:"email"`
	PasswordHash string `gorm:"type:varchar(200);not null" json:"-"`

	SpotifyAccessToken  *string    `gorm:"type:text" json:"-"`
	SpotifyRefreshToken *string    `gorm:"type:text" json:"-"`
	SpotifyTokenExpiry  *time.Time `json:"-"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// SpotifyConnected reports whether the organizer has linked Spotify.
func (u *User) SpotifyConnected() bool {
	return u.SpotifyRefreshToken != nil && *u.SpotifyRefreshToken != ""
}

// UserResponse is the public shape of an organizer.
type UserResponse struct {
	ID               uint      `json:"id"`
	Name             string    `json:"name"`
	Email            string    `json:"email"`
	SpotifyConnected bool      `json:"spotify_connected"`
	CreatedAt        time.Time `json:"created_at"`
}

func (u *User) Response() UserResponse {
	return UserResponse{
		ID:               u.ID,
		Name:             u.Name,
		Email:            u.Email,
		SpotifyConnected: u.SpotifyConnected(),
		CreatedAt:        u.CreatedAt,
	}
}

type RegisterInput struct {
	Name     string `json:"name" binding:"required,min=2,max=100" example:"Priya Raman"`
	Email    string `json:"email" binding:"required,email,max=160" example:"priya@example.com"`
	Password string `json:"password" binding:"required,min=8,max=128" example:"correct-horse"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email" example:"priya@example.com"`
	Password string `json:"password" binding:"required" example:"correct-horse"`
}

type TokenResponse struct {
	AccessToken string       `json:"accessToken"`
	ExpiresAt   time.Time    `json:"expiresAt"`
	User        UserResponse `json:"user"`
}
