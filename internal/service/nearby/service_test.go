package nearby_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/echomatch/echomatch/internal/app"
	"github.com/echomatch/echomatch/internal/cache"
	"github.com/echomatch/echomatch/internal/config"
	"github.com/echomatch/echomatch/internal/db"
	"github.com/echomatch/echomatch/internal/presence"
	"github.com/echomatch/echomatch/internal/service/nearby"
	"github.com/echomatch/echomatch/internal/spotify"
)

type fakeTokens struct {
	tokens map[string]string
	err    error
}

func (f *fakeTokens) AccessToken(_ context.Context, userID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.tokens[userID], nil
}

type fakePlayer struct {
	playing map[string]*spotify.NowPlaying // keyed by access token
	err     error
}

func (f *fakePlayer) CurrentlyPlaying(_ context.Context, token string) (*spotify.NowPlaying, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.playing[token], nil
}

type fixture struct {
	svc    *nearby.Service
	store  *presence.Store
	db     *gorm.DB
	tokens *fakeTokens
	player *fakePlayer
}

func setupService(t *testing.T) *fixture {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(dbase))

	rdb := cache.NewRedisCache(cfg)
	store := presence.NewStore(rdb, cfg.Presence.TTL)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := app.New(cfg, dbase, rdb, nil, log)

	tokens := &fakeTokens{tokens: map[string]string{}}
	player := &fakePlayer{playing: map[string]*spotify.NowPlaying{}}
	return &fixture{
		svc:    nearby.NewService(appCtx, store, player, tokens),
		store:  store,
		db:     dbase,
		tokens: tokens,
		player: player,
	}
}

func (f *fixture) grantPlayback(userID, trackID, artistID string) {
	token := "tok-" + userID
	f.tokens.tokens[userID] = token
	f.player.playing[token] = &spotify.NowPlaying{
		TrackID:    trackID,
		TrackName:  "Track " + trackID,
		ArtistID:   artistID,
		ArtistName: "Artist " + artistID,
	}
}

func seedNeighbor(t *testing.T, f *fixture, userID, trackID, artistID string, lat, lng float64) {
	t.Helper()
	require.NoError(t, f.store.Put(context.Background(), &presence.Sample{
		UserID:     userID,
		TrackID:    trackID,
		ArtistID:   artistID,
		Latitude:   lat,
		Longitude:  lng,
		CapturedAt: time.Now().Unix(),
	}))
}

func TestUpdatePresenceGroupsNeighbors(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	f.grantPlayback("alice", "T1", "A1")

	seedNeighbor(t, f, "bob", "T1", "A1", 25.03391, 121.56541)   // same track, ~1m away
	seedNeighbor(t, f, "carol", "T2", "A1", 25.03395, 121.56548) // same artist
	seedNeighbor(t, f, "dave", "T9", "A9", 25.03400, 121.56560)  // just near
	seedNeighbor(t, f, "erin", "T1", "A1", 25.05, 121.60)        // well outside radius

	res, err := f.svc.UpdatePresence(ctx, nearby.UpdateRequest{
		UserID: "alice", Lat: 25.0339, Lng: 121.5654,
	})
	require.NoError(t, err)

	require.Len(t, res.SameTrack, 1)
	assert.Equal(t, "bob", res.SameTrack[0].UserID)
	require.Len(t, res.SameArtist, 1)
	assert.Equal(t, "carol", res.SameArtist[0].UserID)
	require.Len(t, res.JustNear, 1)
	assert.Equal(t, "dave", res.JustNear[0].UserID)
}

func TestUpdatePresenceStoresOwnSample(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	f.grantPlayback("alice", "T1", "A1")

	_, err := f.svc.UpdatePresence(ctx, nearby.UpdateRequest{
		UserID: "alice", Lat: 25.0339, Lng: 121.5654,
	})
	require.NoError(t, err)

	got, err := f.store.Get(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "T1", got.TrackID)
	assert.Equal(t, "A1", got.ArtistID)
}

func TestUpdatePresenceWithoutTokenStillCounts(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	res, err := f.svc.UpdatePresence(ctx, nearby.UpdateRequest{
		UserID: "alice", Lat: 25.0339, Lng: 121.5654,
	})
	require.NoError(t, err)
	assert.False(t, res.NoSelfStatus)

	got, err := f.store.Get(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.IsPlaying())
}

func TestUpdatePresenceUpstreamFailureDegradesToNoTrack(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	f.tokens.tokens["alice"] = "tok-alice"
	f.player.err = errors.New("upstream down")

	seedNeighbor(t, f, "bob", "T1", "A1", 25.03391, 121.56541)

	res, err := f.svc.UpdatePresence(ctx, nearby.UpdateRequest{
		UserID: "alice", Lat: 25.0339, Lng: 121.5654,
	})
	require.NoError(t, err)

	// nothing playing for alice, so bob lands in just_near
	assert.Empty(t, res.SameTrack)
	assert.Empty(t, res.SameArtist)
	require.Len(t, res.JustNear, 1)
	assert.Equal(t, "bob", res.JustNear[0].UserID)
}

func TestUpdatePresenceAttachesProfileData(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	require.NoError(t, f.db.Create(&db.Profile{
		UserID:      "alice",
		DisplayName: "Alice Chen",
		AvatarURL:   "https://cdn.echomatch.app/avatars/alice.png",
	}).Error)

	_, err := f.svc.UpdatePresence(ctx, nearby.UpdateRequest{
		UserID: "alice", Lat: 25.0339, Lng: 121.5654,
	})
	require.NoError(t, err)

	got, err := f.store.Get(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Alice Chen", got.DisplayName)
}

func TestUpdatePresenceRejectsBadCoordinates(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	_, err := f.svc.UpdatePresence(ctx, nearby.UpdateRequest{
		UserID: "alice", Lat: 95, Lng: 121.5654,
	})
	require.Error(t, err)
}

func TestUpdatePresenceRejectsUnknownMode(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)

	_, err := f.svc.UpdatePresence(ctx, nearby.UpdateRequest{
		UserID: "alice", Lat: 25.0339, Lng: 121.5654, Mode: "album",
	})
	require.Error(t, err)
}

func TestUpdatePresenceExpiredNeighborExcluded(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	f.grantPlayback("alice", "T1", "A1")

	require.NoError(t, f.store.Put(ctx, &presence.Sample{
		UserID:     "bob",
		TrackID:    "T1",
		ArtistID:   "A1",
		Latitude:   25.03391,
		Longitude:  121.56541,
		CapturedAt: time.Now().Add(-10 * time.Minute).Unix(),
	}))

	res, err := f.svc.UpdatePresence(ctx, nearby.UpdateRequest{
		UserID: "alice", Lat: 25.0339, Lng: 121.5654,
	})
	require.NoError(t, err)
	assert.Empty(t, res.SameTrack)
}
