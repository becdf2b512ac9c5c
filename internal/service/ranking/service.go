// Package ranking builds per-user preference vectors from listening
// history and scores candidate pairs by taste similarity.
package ranking

import (
	"context"
	"sort"

	"github.com/echomatch/echomatch/internal/app"
	"github.com/echomatch/echomatch/internal/db"
	svcErr "github.com/echomatch/echomatch/internal/errors"
	"github.com/echomatch/echomatch/internal/metrics"
	"github.com/echomatch/echomatch/internal/repository"
	"github.com/echomatch/echomatch/internal/vector"
)

// Recency weights applied when folding history into a vector. Short-term
// listening dominates, long-term tails off, explicit favorites count full.
const (
	weightShortTerm  = 1.3
	weightMediumTerm = 1.0
	weightLongTerm   = 0.7
	weightFavorite   = 1.0
)

const (
	maxSharedSignals = 5
	maxTopSongs      = 10
	DefaultTopK      = 20
)

type Service struct {
	appCtx   *app.AppContext
	history  *repository.HistoryRepository
	vectors  *repository.VectorRepository
	profiles *repository.ProfileRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		history:  repository.NewHistoryRepository(appCtx.DB),
		vectors:  repository.NewVectorRepository(appCtx.DB),
		profiles: repository.NewProfileRepository(appCtx.DB),
	}
}

// RebuildResult reports one rebuild sweep. Skipped users had no usable
// history and keep whatever vector they already had.
type RebuildResult struct {
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
}

// RebuildVectors recomputes the preference vector of every user with any
// listening history. The sweep is idempotent; rerunning it with unchanged
// history produces identical vectors.
func (s *Service) RebuildVectors(ctx context.Context) (*RebuildResult, error) {
	users, err := s.history.DistinctActiveUsers(ctx)
	if err != nil {
		return nil, svcErr.Internal("listing active users", err)
	}

	res := &RebuildResult{}
	for _, userID := range users {
		updated, err := s.rebuildUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		if updated {
			res.Updated++
		} else {
			res.Skipped++
		}
	}

	metrics.VectorRebuilds.Inc()
	s.appCtx.Logger.Info("vector rebuild finished", "updated", res.Updated, "skipped", res.Skipped)
	return res, nil
}

func periodWeight(period string) float64 {
	switch period {
	case db.PeriodShortTerm:
		return weightShortTerm
	case db.PeriodLongTerm:
		return weightLongTerm
	default:
		return weightMediumTerm
	}
}

func (s *Service) rebuildUser(ctx context.Context, userID string) (bool, error) {
	tracks, err := s.history.TopTracks(ctx, userID)
	if err != nil {
		return false, svcErr.Internal("loading top tracks", err)
	}
	artists, err := s.history.TopArtists(ctx, userID)
	if err != nil {
		return false, svcErr.Internal("loading top artists", err)
	}
	favorites, err := s.history.Favorites(ctx, userID)
	if err != nil {
		return false, svcErr.Internal("loading favorites", err)
	}

	trackIDs := make([]string, 0, len(tracks)+len(favorites))
	for _, t := range tracks {
		trackIDs = append(trackIDs, t.TrackID)
	}
	for _, f := range favorites {
		trackIDs = append(trackIDs, f.TrackID)
	}
	artistIDs := make([]string, 0, len(artists))
	for _, a := range artists {
		artistIDs = append(artistIDs, a.ArtistID)
	}

	trackFeatures, err := s.history.TrackFeatures(ctx, trackIDs)
	if err != nil {
		return false, svcErr.Internal("loading track features", err)
	}
	artistFeatures, err := s.history.ArtistFeatures(ctx, artistIDs)
	if err != nil {
		return false, svcErr.Internal("loading artist features", err)
	}

	acc := vector.NewAccumulator()
	for _, t := range tracks {
		if f, ok := trackFeatures[t.TrackID]; ok {
			acc.Add(f.StyleVector, f.Genres, f.Languages, periodWeight(t.Period))
		}
	}
	for _, a := range artists {
		if f, ok := artistFeatures[a.ArtistID]; ok {
			acc.Add(f.StyleVector, f.Genres, f.Languages, periodWeight(a.Period))
		}
	}
	for _, fav := range favorites {
		if f, ok := trackFeatures[fav.TrackID]; ok {
			acc.Add(f.StyleVector, f.Genres, f.Languages, weightFavorite)
		}
	}

	style, genre, language, ok := acc.Normalize()
	if !ok {
		return false, nil
	}

	err = s.vectors.Upsert(ctx, &db.PreferenceVector{
		UserID:            userID,
		StyleVector:       style,
		GenreVector:       genre,
		LanguageVector:    language,
		TotalInteractions: acc.Weight(),
	})
	if err != nil {
		return false, svcErr.Internal("storing preference vector", err)
	}
	return true, nil
}

// Song is a compact track reference shown on a candidate card.
type Song struct {
	TrackID    string `json:"track_id"`
	TrackName  string `json:"track_name"`
	ArtistName string `json:"artist_name"`
	AlbumImage string `json:"album_image,omitempty"`
}

// Candidate is one scored user in a ranking response.
type Candidate struct {
	UserID        string   `json:"user_id"`
	DisplayName   string   `json:"display_name"`
	AvatarURL     string   `json:"avatar_url"`
	Score         int      `json:"score"`
	SharedArtists []string `json:"shared_artists"`
	SharedTracks  []string `json:"shared_tracks"`
	TopSongs      []Song   `json:"top_songs"`
}

// RankCandidates scores every other user with a preference vector against
// the target and returns the top topK, best first. Users without a vector
// are invisible to ranking until the next rebuild.
func (s *Service) RankCandidates(ctx context.Context, userID string, topK int) ([]Candidate, error) {
	if userID == "" {
		return nil, svcErr.InvalidArgument("user id is required")
	}
	if topK <= 0 {
		topK = DefaultTopK
	}

	target, err := s.vectors.Get(ctx, userID)
	if err != nil {
		return nil, svcErr.Internal("loading target vector", err)
	}
	if target == nil {
		return nil, svcErr.NotFound("no preference vector for user " + userID)
	}

	all, err := s.vectors.GetAll(ctx)
	if err != nil {
		return nil, svcErr.Internal("loading candidate vectors", err)
	}

	topTracks, err := s.history.AllTopTracks(ctx)
	if err != nil {
		return nil, svcErr.Internal("loading top tracks", err)
	}
	topArtists, err := s.history.AllTopArtists(ctx)
	if err != nil {
		return nil, svcErr.Internal("loading top artists", err)
	}
	tracksByUser := groupTracks(topTracks)
	artistsByUser := groupArtists(topArtists)

	candidates := make([]Candidate, 0, len(all))
	for id, vec := range all {
		if id == userID {
			continue
		}
		score := vector.Score(
			target.StyleVector, vec.StyleVector,
			target.GenreVector, vec.GenreVector,
			target.LanguageVector, vec.LanguageVector,
		)
		candidates = append(candidates, Candidate{
			UserID:        id,
			Score:         score,
			SharedArtists: sharedArtists(artistsByUser[userID], artistsByUser[id]),
			SharedTracks:  sharedTracks(tracksByUser[userID], tracksByUser[id]),
			TopSongs:      topSongs(tracksByUser[id]),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].UserID < candidates[j].UserID
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}

	ids := make([]string, len(candidates))
	for i, c := range candidates {
		ids[i] = c.UserID
	}
	profiles, err := s.profiles.GetMany(ctx, ids)
	if err != nil {
		return nil, svcErr.Internal("loading candidate profiles", err)
	}
	for i := range candidates {
		p := profiles[candidates[i].UserID]
		candidates[i].DisplayName = p.DisplayName
		candidates[i].AvatarURL = p.AvatarURL
	}

	return candidates, nil
}

func groupTracks(rows []db.TopTrack) map[string][]db.TopTrack {
	out := make(map[string][]db.TopTrack)
	for _, r := range rows {
		out[r.UserID] = append(out[r.UserID], r)
	}
	return out
}

func groupArtists(rows []db.TopArtist) map[string][]db.TopArtist {
	out := make(map[string][]db.TopArtist)
	for _, r := range rows {
		out[r.UserID] = append(out[r.UserID], r)
	}
	return out
}

// sharedArtists returns up to maxSharedSignals artist names both users
// rank, following the target's ordering.
func sharedArtists(mine, theirs []db.TopArtist) []string {
	have := make(map[string]bool, len(theirs))
	for _, a := range theirs {
		have[a.ArtistID] = true
	}
	shared := []string{}
	seen := make(map[string]bool)
	for _, a := range mine {
		if have[a.ArtistID] && !seen[a.ArtistID] {
			seen[a.ArtistID] = true
			shared = append(shared, a.ArtistName)
			if len(shared) == maxSharedSignals {
				break
			}
		}
	}
	return shared
}

func sharedTracks(mine, theirs []db.TopTrack) []string {
	have := make(map[string]bool, len(theirs))
	for _, t := range theirs {
		have[t.TrackID] = true
	}
	shared := []string{}
	seen := make(map[string]bool)
	for _, t := range mine {
		if have[t.TrackID] && !seen[t.TrackID] {
			seen[t.TrackID] = true
			shared = append(shared, t.TrackName)
			if len(shared) == maxSharedSignals {
				break
			}
		}
	}
	return shared
}

// topSongs trims the candidate's ranked tracks to a card-sized sample,
// deduplicated across periods.
func topSongs(tracks []db.TopTrack) []Song {
	songs := []Song{}
	seen := make(map[string]bool)
	for _, t := range tracks {
		if seen[t.TrackID] {
			continue
		}
		seen[t.TrackID] = true
		songs = append(songs, Song{
			TrackID:    t.TrackID,
			TrackName:  t.TrackName,
			ArtistName: t.ArtistName,
			AlbumImage: t.AlbumImage,
		})
		if len(songs) == maxTopSongs {
			break
		}
	}
	return songs
}
