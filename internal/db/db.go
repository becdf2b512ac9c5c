package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/echomatch/echomatch/internal/config"
)

// NewDB initializes the database connection using DSN from config.
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DB.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate ensures the schema is in sync with the models. Shared by the
// server boot path and the test helpers.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&Profile{},
		&Swipe{},
		&Match{},
		&PreferenceVector{},
		&TopTrack{},
		&TopArtist{},
		&FavoriteTrack{},
		&TrackFeature{},
		&ArtistFeature{},
		&SpotifyToken{},
		&ListeningEvent{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
