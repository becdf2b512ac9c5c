package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/echomatch/echomatch/internal/db"
)

// Defaults substituted at the read boundary when a profile is missing a
// field (or missing entirely). Kept here so business logic never carries
// fallback branches.
const (
	DefaultDisplayName = "Guest"
	DefaultAvatarURL   = "https://cdn.echomatch.app/avatars/default.png"
)

// ProfileRepository reads user display data owned by the identity service.
type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

// Get returns the user's profile with defaults filled in. A missing row
// yields a Guest profile, not an error.
func (r *ProfileRepository) Get(ctx context.Context, userID string) (db.Profile, error) {
	var profile db.Profile
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return withDefaults(db.Profile{UserID: userID}), nil
	}
	if err != nil {
		return db.Profile{}, err
	}
	return withDefaults(profile), nil
}

// GetMany batch-fetches profiles in one IN query. Every requested id is
// present in the result, defaulted when the row is missing.
func (r *ProfileRepository) GetMany(ctx context.Context, userIDs []string) (map[string]db.Profile, error) {
	out := make(map[string]db.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	var profiles []db.Profile
	err := r.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Find(&profiles).Error
	if err != nil {
		return nil, err
	}

	for _, p := range profiles {
		out[p.UserID] = withDefaults(p)
	}
	for _, id := range userIDs {
		if _, ok := out[id]; !ok {
			out[id] = withDefaults(db.Profile{UserID: id})
		}
	}
	return out, nil
}

func withDefaults(p db.Profile) db.Profile {
	if p.DisplayName == "" {
		p.DisplayName = DefaultDisplayName
	}
	if p.AvatarURL == "" {
		p.AvatarURL = DefaultAvatarURL
	}
	return p
}
