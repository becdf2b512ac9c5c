// Package presence owns the ephemeral "who is live right now" state: one
// TTL-bounded sample per user, stored in Redis. TTL expiry is the only
// deletion mechanism; a new put simply overwrites the previous sample.
package presence

import (
	"fmt"

	"github.com/echomatch/echomatch/internal/geo"
)

// Sample is a user's latest (location, listening-state) snapshot. TrackID
// and ArtistID are empty when nothing is playing.
type Sample struct {
	UserID      string  `json:"user_id"`
	TrackID     string  `json:"track_id,omitempty"`
	TrackName   string  `json:"track_name,omitempty"`
	ArtistID    string  `json:"artist_id,omitempty"`
	ArtistName  string  `json:"artist_name,omitempty"`
	AlbumImage  string  `json:"album_image,omitempty"`
	Popularity  int     `json:"popularity,omitempty"`
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lng"`
	CapturedAt  int64   `json:"timestamp"`
	DisplayName string  `json:"display_name,omitempty"`
	AvatarURL   string  `json:"avatar_url,omitempty"`
}

// Validate rejects malformed samples at the boundary, before they can
// reach the store or the grouping logic.
func (s *Sample) Validate() error {
	if s.UserID == "" {
		return fmt.Errorf("sample missing user_id")
	}
	if !geo.ValidCoordinates(s.Latitude, s.Longitude) {
		return fmt.Errorf("sample has out-of-range coordinates (%f, %f)", s.Latitude, s.Longitude)
	}
	if s.CapturedAt <= 0 {
		return fmt.Errorf("sample missing capture timestamp")
	}
	return nil
}

// IsPlaying reports whether the sample carries a listening state.
func (s *Sample) IsPlaying() bool { return s.TrackID != "" || s.ArtistID != "" }
