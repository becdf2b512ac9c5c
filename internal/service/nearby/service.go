// Package nearby implements the real-time presence workflow: capture the
// user's now-playing state, write it into the TTL presence store, fan the
// update out for analytics, and return the grouped neighbors.
package nearby

import (
	"context"
	"time"

	"github.com/echomatch/echomatch/internal/app"
	svcErr "github.com/echomatch/echomatch/internal/errors"
	"github.com/echomatch/echomatch/internal/geo"
	"github.com/echomatch/echomatch/internal/grouping"
	"github.com/echomatch/echomatch/internal/metrics"
	"github.com/echomatch/echomatch/internal/presence"
	"github.com/echomatch/echomatch/internal/repository"
	"github.com/echomatch/echomatch/internal/spotify"
)

// NowPlayingSource abstracts the third-party player endpoint so tests can
// substitute a fake.
type NowPlayingSource interface {
	CurrentlyPlaying(ctx context.Context, accessToken string) (*spotify.NowPlaying, error)
}

// TokenSource resolves a user's now-playing credential. An empty token
// means the user has no usable credential right now.
type TokenSource interface {
	AccessToken(ctx context.Context, userID string) (string, error)
}

type Service struct {
	appCtx     *app.AppContext
	store      *presence.Store
	nowPlaying NowPlayingSource
	tokens     TokenSource
	profiles   *repository.ProfileRepository
}

func NewService(appCtx *app.AppContext, store *presence.Store, nowPlaying NowPlayingSource, tokens TokenSource) *Service {
	return &Service{
		appCtx:     appCtx,
		store:      store,
		nowPlaying: nowPlaying,
		tokens:     tokens,
		profiles:   repository.NewProfileRepository(appCtx.DB),
	}
}

// UpdateRequest carries one presence poll from the client. Only the
// location comes from the caller; the listening state is fetched upstream.
type UpdateRequest struct {
	UserID  string
	Lat     float64
	Lng     float64
	Mode    string
	RadiusM float64
}

// UpdatePresence writes the user's current sample and returns the tiered
// neighbor groups computed from the store snapshot. The whole call runs
// under a short timeout: a slow answer is worse than a stale "try again".
func (s *Service) UpdatePresence(ctx context.Context, req UpdateRequest) (*grouping.Result, error) {
	if req.UserID == "" {
		return nil, svcErr.InvalidArgument("user id is required")
	}
	if !geo.ValidCoordinates(req.Lat, req.Lng) {
		return nil, svcErr.InvalidArgument("lat/lng out of range")
	}

	cfg := s.appCtx.Config
	opts := grouping.Options{
		Mode:      req.Mode,
		RadiusM:   req.RadiusM,
		WindowSec: int64(cfg.Presence.TimeWindow / time.Second),
	}
	if opts.Mode == "" {
		opts.Mode = grouping.ModeTrack
	}
	if opts.RadiusM <= 0 {
		opts.RadiusM = cfg.Presence.RadiusM
	}
	if err := opts.Validate(); err != nil {
		return nil, svcErr.InvalidArgument(err.Error())
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Presence.Timeout)
	defer cancel()

	sample := &presence.Sample{
		UserID:     req.UserID,
		Latitude:   req.Lat,
		Longitude:  req.Lng,
		CapturedAt: time.Now().Unix(),
	}
	s.attachListeningState(ctx, sample)
	s.attachDisplayData(ctx, sample)

	if err := s.store.Put(ctx, sample); err != nil {
		return nil, svcErr.Unavailable("presence store write failed", err)
	}
	metrics.PresenceUpdates.Inc()

	// fan out for downstream analytics; never blocks the response
	if s.appCtx.Publisher != nil {
		if err := s.appCtx.Publisher.PublishPresence(sample); err != nil {
			metrics.PublishFailures.Inc()
			s.appCtx.Logger.Warn("presence publish failed", "user_id", req.UserID, "err", err)
		}
	}

	snapshot, err := s.store.ScanActive(ctx)
	if err != nil {
		return nil, svcErr.Unavailable("presence store scan failed", err)
	}

	return grouping.Group(sample, snapshot, opts), nil
}

// attachListeningState asks the upstream player what the user is hearing.
// A missing credential or an upstream failure leaves the sample without a
// track: presence still counts, the user just cannot tier-match.
func (s *Service) attachListeningState(ctx context.Context, sample *presence.Sample) {
	token, err := s.tokens.AccessToken(ctx, sample.UserID)
	if err != nil {
		s.appCtx.Logger.Warn("token lookup failed", "user_id", sample.UserID, "err", err)
		return
	}
	if token == "" {
		return
	}

	np, err := s.nowPlaying.CurrentlyPlaying(ctx, token)
	if err != nil {
		s.appCtx.Logger.Warn("now-playing fetch failed", "user_id", sample.UserID, "err", err)
		return
	}
	if np == nil {
		return // nothing playing
	}

	sample.TrackID = np.TrackID
	sample.TrackName = np.TrackName
	sample.ArtistID = np.ArtistID
	sample.ArtistName = np.ArtistName
	sample.AlbumImage = np.AlbumImage
	sample.Popularity = np.Popularity
}

func (s *Service) attachDisplayData(ctx context.Context, sample *presence.Sample) {
	profile, err := s.profiles.Get(ctx, sample.UserID)
	if err != nil {
		s.appCtx.Logger.Warn("profile lookup failed", "user_id", sample.UserID, "err", err)
		return
	}
	sample.DisplayName = profile.DisplayName
	sample.AvatarURL = profile.AvatarURL
}
