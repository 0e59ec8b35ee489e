package auth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id uint) (*User, error)

	// SpotifyToken returns nil when the organizer never linked Spotify.
	SpotifyToken(ctx context.Context, userID uint) (*oauth2.Token, error)
	SaveSpotifyToken(ctx context.Context, userID uint, token *oauth2.Token) error
	ClearSpotifyToken(ctx context.Context, userID uint) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, user *User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := r.db.WithContext(ctx).
		Where("email = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) FindByID(ctx context.Context, id uint) (*User, error) {
	var user User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ===========================
// 🎵 Spotify credentials
func (r *repository) SpotifyToken(ctx context.Context, userID uint) (*oauth2.Token, error) {
	user, err := r.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if user.SpotifyAccessToken == nil && user.SpotifyRefreshToken == nil {
		return nil, nil
	}

	token := &oauth2.Token{TokenType: "Bearer"}
	if user.SpotifyAccessToken != nil {
		token.AccessToken = *user.SpotifyAccessToken
	}
	if user.SpotifyRefreshToken != nil {
		token.RefreshToken = *user.SpotifyRefreshToken
	}
	if user.SpotifyTokenExpiry != nil {
		token.Expiry = *user.SpotifyTokenExpiry
	}
	return token, nil
}

// SaveSpotifyToken stores a token. A token without a refresh token keeps the
// stored one, since refresh responses may omit it.
func (r *repository) SaveSpotifyToken(ctx context.Context, userID uint, token *oauth2.Token) error {
	updates := map[string]interface{}{
		"spotify_access_token": token.AccessToken,
	}
	if token.RefreshToken != "" {
		updates["spotify_refresh_token"] = token.RefreshToken
	}
	if token.Expiry.IsZero() {
		updates["spotify_token_expiry"] = nil
	} else {
		updates["spotify_token_expiry"] = token.Expiry
	}
	return r.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Updates(updates).Error
}

func (r *repository) ClearSpotifyToken(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Model(&User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"spotify_access_token":  nil,
		"spotify_refresh_token": nil,
		"spotify_token_expiry":  nil,
	}).Error
}
