package ranking_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/echomatch/echomatch/internal/app"
	"github.com/echomatch/echomatch/internal/config"
	"github.com/echomatch/echomatch/internal/db"
	"github.com/echomatch/echomatch/internal/service/ranking"
)

func setupService(t *testing.T) (*ranking.Service, *gorm.DB) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	dbase, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	sqlDB, err := dbase.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Migrate(dbase))

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	appCtx := app.New(config.New(), dbase, nil, nil, log)
	return ranking.NewService(appCtx), dbase
}

// seedListener gives userID a one-track short_term history backed by a
// track feature with the given style vector and tags.
func seedListener(t *testing.T, dbase *gorm.DB, userID, trackID string, style []float64, genres, languages []string) {
	t.Helper()

	require.NoError(t, dbase.Create(&db.TopTrack{
		UserID:    userID,
		TrackID:   trackID,
		TrackName: "Track " + trackID,
		Rank:      1,
		Period:    db.PeriodShortTerm,
	}).Error)

	feature := db.TrackFeature{
		TrackID:     trackID,
		TrackName:   "Track " + trackID,
		StyleVector: style,
		Genres:      genres,
		Languages:   languages,
	}
	// features are shared across users; ignore duplicate track ids
	require.NoError(t, dbase.Where("track_id = ?", trackID).FirstOrCreate(&feature).Error)
}

func TestRebuildVectorsBuildsAndSkips(t *testing.T) {
	ctx := context.Background()
	svc, dbase := setupService(t)

	seedListener(t, dbase, "alice", "T1", []float64{1, 0, 0, 0, 0, 0, 0, 0}, []string{"pop"}, []string{"english"})
	// bob has history but no feature row, so nothing accumulates
	require.NoError(t, dbase.Create(&db.TopTrack{
		UserID: "bob", TrackID: "T-unknown", Rank: 1, Period: db.PeriodShortTerm,
	}).Error)

	res, err := svc.RebuildVectors(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Updated)
	assert.Equal(t, 1, res.Skipped)

	var vec db.PreferenceVector
	require.NoError(t, dbase.Where("user_id = ?", "alice").First(&vec).Error)
	require.Len(t, vec.StyleVector, 8)
	assert.InDelta(t, 1.0, vec.StyleVector[0], 1e-9)
}

func TestRebuildVectorsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, dbase := setupService(t)

	seedListener(t, dbase, "alice", "T1", []float64{0.5, 0.5, 0, 0, 0, 0, 0, 0}, []string{"rock"}, []string{"english"})

	_, err := svc.RebuildVectors(ctx)
	require.NoError(t, err)
	var first db.PreferenceVector
	require.NoError(t, dbase.Where("user_id = ?", "alice").First(&first).Error)

	_, err = svc.RebuildVectors(ctx)
	require.NoError(t, err)
	var second db.PreferenceVector
	require.NoError(t, dbase.Where("user_id = ?", "alice").First(&second).Error)

	assert.Equal(t, first.StyleVector, second.StyleVector)
	assert.Equal(t, first.GenreVector, second.GenreVector)
	assert.Equal(t, first.TotalInteractions, second.TotalInteractions)
}

func TestPeriodWeightsFavorRecentListening(t *testing.T) {
	ctx := context.Background()
	svc, dbase := setupService(t)

	// alice splits listening between a short-term pop track and a
	// long-term metal track; the pop side should carry more mass
	seedListener(t, dbase, "alice", "T-pop", []float64{1, 0, 0, 0, 0, 0, 0, 0}, []string{"pop"}, []string{"english"})
	require.NoError(t, dbase.Create(&db.TopTrack{
		UserID: "alice", TrackID: "T-metal", TrackName: "Track T-metal", Rank: 1, Period: db.PeriodLongTerm,
	}).Error)
	require.NoError(t, dbase.Create(&db.TrackFeature{
		TrackID:     "T-metal",
		StyleVector: []float64{0, 1, 0, 0, 0, 0, 0, 0},
		Genres:      []string{"metal"},
		Languages:   []string{"english"},
	}).Error)

	_, err := svc.RebuildVectors(ctx)
	require.NoError(t, err)

	var vec db.PreferenceVector
	require.NoError(t, dbase.Where("user_id = ?", "alice").First(&vec).Error)
	assert.Greater(t, vec.StyleVector[0], vec.StyleVector[1])
	assert.InDelta(t, 2.0, vec.TotalInteractions, 1e-9) // 1.3 + 0.7
}

func TestRankCandidatesOrdersByScore(t *testing.T) {
	ctx := context.Background()
	svc, dbase := setupService(t)

	seedListener(t, dbase, "alice", "T1", []float64{1, 0, 0, 0, 0, 0, 0, 0}, []string{"pop"}, []string{"english"})
	seedListener(t, dbase, "bob", "T1", []float64{1, 0, 0, 0, 0, 0, 0, 0}, []string{"pop"}, []string{"english"})
	seedListener(t, dbase, "carol", "T2", []float64{0, 0, 0, 1, 0, 0, 0, 0}, []string{"metal"}, []string{"japanese"})

	_, err := svc.RebuildVectors(ctx)
	require.NoError(t, err)

	candidates, err := svc.RankCandidates(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	assert.Equal(t, "bob", candidates[0].UserID)
	assert.Equal(t, 100, candidates[0].Score)
	assert.Equal(t, "carol", candidates[1].UserID)
	assert.Equal(t, 0, candidates[1].Score)
}

func TestRankCandidatesSharedSignalsAndSongs(t *testing.T) {
	ctx := context.Background()
	svc, dbase := setupService(t)

	seedListener(t, dbase, "alice", "T1", []float64{1, 0, 0, 0, 0, 0, 0, 0}, []string{"pop"}, []string{"english"})
	seedListener(t, dbase, "bob", "T1", []float64{1, 0, 0, 0, 0, 0, 0, 0}, []string{"pop"}, []string{"english"})
	for _, u := range []string{"alice", "bob"} {
		require.NoError(t, dbase.Create(&db.TopArtist{
			UserID: u, ArtistID: "A1", ArtistName: "Shared Artist", Rank: 1, Period: db.PeriodShortTerm,
		}).Error)
	}

	_, err := svc.RebuildVectors(ctx)
	require.NoError(t, err)

	candidates, err := svc.RankCandidates(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	assert.Equal(t, []string{"Shared Artist"}, candidates[0].SharedArtists)
	assert.Equal(t, []string{"Track T1"}, candidates[0].SharedTracks)
	require.Len(t, candidates[0].TopSongs, 1)
	assert.Equal(t, "T1", candidates[0].TopSongs[0].TrackID)
}

func TestRankCandidatesMissingTargetVector(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	_, err := svc.RankCandidates(ctx, "ghost", 0)
	require.Error(t, err)
}

func TestRankCandidatesTopKAndTieBreak(t *testing.T) {
	ctx := context.Background()
	svc, dbase := setupService(t)

	style := []float64{1, 0, 0, 0, 0, 0, 0, 0}
	seedListener(t, dbase, "alice", "T1", style, []string{"pop"}, []string{"english"})
	for _, u := range []string{"zed", "bob", "carol"} {
		seedListener(t, dbase, u, "T1", style, []string{"pop"}, []string{"english"})
	}

	_, err := svc.RebuildVectors(ctx)
	require.NoError(t, err)

	candidates, err := svc.RankCandidates(ctx, "alice", 2)
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	// all three score 100; the tie breaks on user id ascending
	assert.Equal(t, "bob", candidates[0].UserID)
	assert.Equal(t, "carol", candidates[1].UserID)
}

func TestRankCandidatesUsesProfileDefaults(t *testing.T) {
	ctx := context.Background()
	svc, dbase := setupService(t)

	style := []float64{1, 0, 0, 0, 0, 0, 0, 0}
	seedListener(t, dbase, "alice", "T1", style, []string{"pop"}, []string{"english"})
	seedListener(t, dbase, "bob", "T1", style, []string{"pop"}, []string{"english"})
	require.NoError(t, dbase.Create(&db.Profile{
		UserID: "bob", DisplayName: "Bobby", AvatarURL: "https://cdn.echomatch.app/avatars/bob.png",
	}).Error)

	_, err := svc.RebuildVectors(ctx)
	require.NoError(t, err)

	candidates, err := svc.RankCandidates(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "Bobby", candidates[0].DisplayName)
}
