package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/echomatch/echomatch/internal/db"
)

// TokenRepository reads the now-playing credentials written by the
// upstream OAuth service. The engine never refreshes or exchanges tokens;
// an expired or missing token is a normal "no sample" condition.
type TokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(database *gorm.DB) *TokenRepository {
	return &TokenRepository{db: database}
}

// AccessToken returns a currently valid access token for the user, or
// ("", nil) when the user has no usable credential.
func (r *TokenRepository) AccessToken(ctx context.Context, userID string) (string, error) {
	var token db.SpotifyToken
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	// leave a small margin so a token does not expire mid-request
	if token.ExpiresAt > 0 && token.ExpiresAt < time.Now().Unix()+30 {
		return "", nil
	}
	return token.AccessToken, nil
}
