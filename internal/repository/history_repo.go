package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/echomatch/echomatch/internal/db"
)

// HistoryRepository reads the durable listening history and the
// precomputed track/artist features the vector builder consumes, and
// appends the analytics event log fed by the presence fan-out.
type HistoryRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(database *gorm.DB) *HistoryRepository {
	return &HistoryRepository{db: database}
}

// DistinctActiveUsers returns every user id that appears anywhere in the
// listening history. UNION dedupes across the three tables.
func (r *HistoryRepository) DistinctActiveUsers(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Raw(`
		SELECT user_id FROM top_tracks
		UNION
		SELECT user_id FROM top_artists
		UNION
		SELECT user_id FROM favorite_tracks
	`).Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// TopTracks returns the user's ranked track history across all periods.
func (r *HistoryRepository) TopTracks(ctx context.Context, userID string) ([]db.TopTrack, error) {
	var tracks []db.TopTrack
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("`rank` ASC").
		Find(&tracks).Error
	return tracks, err
}

// TopArtists returns the user's ranked artist history across all periods.
func (r *HistoryRepository) TopArtists(ctx context.Context, userID string) ([]db.TopArtist, error) {
	var artists []db.TopArtist
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("`rank` ASC").
		Find(&artists).Error
	return artists, err
}

// Favorites returns the user's explicitly saved tracks.
func (r *HistoryRepository) Favorites(ctx context.Context, userID string) ([]db.FavoriteTrack, error) {
	var favs []db.FavoriteTrack
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&favs).Error
	return favs, err
}

// AllTopTracks loads the whole ranked track history. The ranking engine
// builds its shared-signal maps from a single pass rather than one query
// per candidate pair.
func (r *HistoryRepository) AllTopTracks(ctx context.Context) ([]db.TopTrack, error) {
	var tracks []db.TopTrack
	err := r.db.WithContext(ctx).
		Order("`rank` ASC").
		Find(&tracks).Error
	return tracks, err
}

// AllTopArtists loads the whole ranked artist history.
func (r *HistoryRepository) AllTopArtists(ctx context.Context) ([]db.TopArtist, error) {
	var artists []db.TopArtist
	err := r.db.WithContext(ctx).
		Order("`rank` ASC").
		Find(&artists).Error
	return artists, err
}

// TrackFeatures batch-fetches features for a set of track ids.
func (r *HistoryRepository) TrackFeatures(ctx context.Context, trackIDs []string) (map[string]db.TrackFeature, error) {
	out := make(map[string]db.TrackFeature, len(trackIDs))
	if len(trackIDs) == 0 {
		return out, nil
	}
	var features []db.TrackFeature
	err := r.db.WithContext(ctx).
		Where("track_id IN ?", trackIDs).
		Find(&features).Error
	if err != nil {
		return nil, err
	}
	for _, f := range features {
		out[f.TrackID] = f
	}
	return out, nil
}

// ArtistFeatures batch-fetches features for a set of artist ids.
func (r *HistoryRepository) ArtistFeatures(ctx context.Context, artistIDs []string) (map[string]db.ArtistFeature, error) {
	out := make(map[string]db.ArtistFeature, len(artistIDs))
	if len(artistIDs) == 0 {
		return out, nil
	}
	var features []db.ArtistFeature
	err := r.db.WithContext(ctx).
		Where("artist_id IN ?", artistIDs).
		Find(&features).Error
	if err != nil {
		return nil, err
	}
	for _, f := range features {
		out[f.ArtistID] = f
	}
	return out, nil
}

// AppendListeningEvent writes one row to the analytics event log.
func (r *HistoryRepository) AppendListeningEvent(ctx context.Context, event *db.ListeningEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}
