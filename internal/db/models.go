package db

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// FloatVector stores a numeric vector as a JSON column so the same model
// works on MySQL and SQLite.
type FloatVector []float64

func (v FloatVector) Value() (driver.Value, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal([]float64(v))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (v *FloatVector) Scan(src any) error {
	if src == nil {
		*v = nil
		return nil
	}
	var b []byte
	switch s := src.(type) {
	case []byte:
		b = s
	case string:
		b = []byte(s)
	default:
		return fmt.Errorf("unsupported vector column type %T", src)
	}
	return json.Unmarshal(b, (*[]float64)(v))
}

// StringList stores a list of tags (genres, languages) as a JSON column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *StringList) Scan(src any) error {
	if src == nil {
		*l = nil
		return nil
	}
	var b []byte
	switch s := src.(type) {
	case []byte:
		b = s
	case string:
		b = []byte(s)
	default:
		return fmt.Errorf("unsupported list column type %T", src)
	}
	return json.Unmarshal(b, (*[]string)(l))
}

// Profile holds the display fields the matching engine needs for a user.
// Identity itself (sessions, credentials) lives in an upstream service;
// the engine only trusts the resolved user id.
type Profile struct {
	UserID      string    `gorm:"primaryKey;size:64"`
	DisplayName string    `gorm:"size:128"`
	AvatarURL   string    `gorm:"size:512"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// Swipe actions.
const (
	ActionLike = "LIKE"
	ActionPass = "PASS"
)

// Swipe is a directional like/pass decision.
//
// Composite PK: (FromUserID, ToUserID)
//   - Ensures a single row per ordered pair (overwrite guarantee).
//
// Indexes:
//   - idx_to_action_updated(to_user_id, action, updated_at DESC)
//     Optimizes "who liked me" lists.
type Swipe struct {
	FromUserID string    `gorm:"primaryKey;size:64"`
	ToUserID   string    `gorm:"primaryKey;size:64;index:idx_to_action_updated,priority:1"`
	Action     string    `gorm:"size:8;not null;index:idx_to_action_updated,priority:2"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime;index:idx_to_action_updated,priority:3,sort:desc"`
}

// Match is the durable record for a mutually-liking pair.
//
// MatchID is the lexicographically sorted pair joined by "_", so the id is
// identical regardless of which side triggered the match. UserA < UserB.
// Conversation fields are mutated by the messaging subsystem, never here.
type Match struct {
	MatchID         string `gorm:"primaryKey;size:130"`
	UserA           string `gorm:"size:64;index"`
	UserB           string `gorm:"size:64;index"`
	IsActive        bool   `gorm:"default:true"`
	LastMessage     string `gorm:"size:1024"`
	LastMessageTime *time.Time
	CreatedAt       time.Time `gorm:"autoCreateTime"`
}

// PreferenceVector is a user's recomputed listening profile. Absence means
// "not enough data", which is distinct from a zero vector.
type PreferenceVector struct {
	UserID            string      `gorm:"primaryKey;size:64"`
	StyleVector       FloatVector `gorm:"type:text"`
	GenreVector       FloatVector `gorm:"type:text"`
	LanguageVector    FloatVector `gorm:"type:text"`
	TotalInteractions float64
	LastUpdate        time.Time `gorm:"autoUpdateTime"`
}

// Listening-history periods, weighted by recency when building vectors.
const (
	PeriodShortTerm  = "short_term"
	PeriodMediumTerm = "medium_term"
	PeriodLongTerm   = "long_term"
)

// TopTrack is one entry of a user's ranked listening history for a period.
type TopTrack struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	UserID     string `gorm:"size:64;index:idx_top_tracks_user"`
	TrackID    string `gorm:"size:64;index"`
	TrackName  string `gorm:"size:256"`
	ArtistID   string `gorm:"size:64"`
	ArtistName string `gorm:"size:256"`
	AlbumImage string `gorm:"size:512"`
	Popularity int
	Rank       int
	Period     string    `gorm:"size:16"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

// TopArtist is one entry of a user's ranked artist history for a period.
type TopArtist struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	UserID     string `gorm:"size:64;index:idx_top_artists_user"`
	ArtistID   string `gorm:"size:64;index"`
	ArtistName string `gorm:"size:256"`
	Popularity int
	Rank       int
	Period     string    `gorm:"size:16"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

// FavoriteTrack is a track the user explicitly saved.
type FavoriteTrack struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	UserID     string    `gorm:"size:64;index:idx_favorites_user"`
	TrackID    string    `gorm:"size:64;index"`
	TrackName  string    `gorm:"size:256"`
	ArtistID   string    `gorm:"size:64"`
	ArtistName string    `gorm:"size:256"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}

// TrackFeature carries the precomputed embedding and tags for one track.
type TrackFeature struct {
	TrackID     string      `gorm:"primaryKey;size:64"`
	TrackName   string      `gorm:"size:256"`
	ArtistID    string      `gorm:"size:64"`
	ArtistName  string      `gorm:"size:256"`
	StyleVector FloatVector `gorm:"type:text"`
	Genres      StringList  `gorm:"type:text"`
	Languages   StringList  `gorm:"type:text"`
	Popularity  int
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// ArtistFeature carries the precomputed embedding and tags for one artist.
type ArtistFeature struct {
	ArtistID    string      `gorm:"primaryKey;size:64"`
	ArtistName  string      `gorm:"size:256"`
	StyleVector FloatVector `gorm:"type:text"`
	Genres      StringList  `gorm:"type:text"`
	Languages   StringList  `gorm:"type:text"`
	Popularity  int
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// SpotifyToken holds the linked now-playing credential for a user. Token
// exchange and refresh happen upstream; the engine only reads it.
type SpotifyToken struct {
	UserID      string `gorm:"primaryKey;size:64"`
	AccessToken string `gorm:"size:512"`
	ExpiresAt   int64
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// ListeningEvent is the analytics append-log fed by the presence fan-out
// queue. Write-only from the engine's point of view.
type ListeningEvent struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	UserID     string `gorm:"size:64;index"`
	TrackID    string `gorm:"size:64"`
	TrackName  string `gorm:"size:256"`
	ArtistID   string `gorm:"size:64"`
	ArtistName string `gorm:"size:256"`
	Popularity int
	Latitude   float64
	Longitude  float64
	CapturedAt int64
	CreatedAt  time.Time `gorm:"autoCreateTime"`
}
