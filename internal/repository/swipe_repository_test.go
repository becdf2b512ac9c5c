package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/echomatch/echomatch/internal/db"
	"github.com/echomatch/echomatch/internal/repository"
)

// setup in-memory DB
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

func TestUpsertOverwritesAction(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewSwipeRepository(dbase)

	require.NoError(t, repo.Upsert(ctx, "alice", "bob", db.ActionLike))
	require.NoError(t, repo.Upsert(ctx, "alice", "bob", db.ActionPass))

	var swipes []db.Swipe
	require.NoError(t, dbase.Find(&swipes).Error)
	require.Len(t, swipes, 1)
	assert.Equal(t, db.ActionPass, swipes[0].Action)
}

func TestGetForUpdateAbsent(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewSwipeRepository(setupTestDB(t))

	swipe, err := repo.GetForUpdate(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Nil(t, swipe)
}

func TestListPendingIncoming(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewSwipeRepository(dbase)

	// dave and erin liked carol; carol already passed on erin
	require.NoError(t, repo.Upsert(ctx, "dave", "carol", db.ActionLike))
	require.NoError(t, repo.Upsert(ctx, "erin", "carol", db.ActionLike))
	require.NoError(t, repo.Upsert(ctx, "carol", "erin", db.ActionPass))

	pending, err := repo.ListPendingIncoming(ctx, "carol")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "dave", pending[0].FromUserID)

	// once carol swipes on dave (either way), dave disappears
	require.NoError(t, repo.Upsert(ctx, "carol", "dave", db.ActionLike))
	pending, err = repo.ListPendingIncoming(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestListPendingIncomingExcludesPasses(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewSwipeRepository(setupTestDB(t))

	require.NoError(t, repo.Upsert(ctx, "dave", "carol", db.ActionPass))

	pending, err := repo.ListPendingIncoming(ctx, "carol")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestListOutgoingLikes(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewSwipeRepository(setupTestDB(t))

	require.NoError(t, repo.Upsert(ctx, "alice", "bob", db.ActionLike))
	require.NoError(t, repo.Upsert(ctx, "alice", "carol", db.ActionPass))

	likes, err := repo.ListOutgoingLikes(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, likes, 1)
	assert.Equal(t, "bob", likes[0].ToUserID)
}

func TestMatchID(t *testing.T) {
	assert.Equal(t, "alice_bob", repository.MatchID("alice", "bob"))
	assert.Equal(t, "alice_bob", repository.MatchID("bob", "alice"))
	assert.Equal(t, repository.MatchID("u1", "u2"), repository.MatchID("u2", "u1"))
}

func TestCreateIfAbsentIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewMatchRepository(dbase)

	id, created, err := repo.CreateIfAbsent(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "alice_bob", id)

	// simulate the messaging subsystem writing conversation metadata
	now := time.Now().UTC()
	require.NoError(t, dbase.Model(&db.Match{}).
		Where("match_id = ?", id).
		Updates(map[string]any{"last_message": "hey", "last_message_time": now}).Error)

	id2, created2, err := repo.CreateIfAbsent(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.False(t, created2)
	assert.Equal(t, id, id2)

	// existing conversation fields must survive re-evaluation
	match, err := repo.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, "hey", match.LastMessage)

	var count int64
	require.NoError(t, dbase.Model(&db.Match{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestMatchedPartners(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMatchRepository(setupTestDB(t))

	_, _, err := repo.CreateIfAbsent(ctx, "alice", "bob")
	require.NoError(t, err)
	_, _, err = repo.CreateIfAbsent(ctx, "carol", "alice")
	require.NoError(t, err)

	partners, err := repo.MatchedPartners(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, partners, 2)
	assert.Contains(t, partners, "bob")
	assert.Contains(t, partners, "carol")
}

func TestProfileDefaults(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewProfileRepository(dbase)

	require.NoError(t, dbase.Create(&db.Profile{UserID: "alice", DisplayName: "Alice"}).Error)

	profiles, err := repo.GetMany(ctx, []string{"alice", "ghost"})
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	assert.Equal(t, "Alice", profiles["alice"].DisplayName)
	assert.Equal(t, repository.DefaultAvatarURL, profiles["alice"].AvatarURL)
	assert.Equal(t, repository.DefaultDisplayName, profiles["ghost"].DisplayName)
}

func TestVectorRoundTripAndAbsent(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewVectorRepository(setupTestDB(t))

	vec, err := repo.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Nil(t, vec)

	require.NoError(t, repo.Upsert(ctx, &db.PreferenceVector{
		UserID:            "alice",
		StyleVector:       db.FloatVector{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8},
		GenreVector:       db.FloatVector{1, 0, 0},
		LanguageVector:    db.FloatVector{0, 1},
		TotalInteractions: 12.5,
	}))

	vec, err = repo.Get(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, vec)
	assert.InDelta(t, 0.3, vec.StyleVector[2], 1e-9)
	assert.InDelta(t, 12.5, vec.TotalInteractions, 1e-9)
}

func TestDistinctActiveUsers(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewHistoryRepository(dbase)

	require.NoError(t, dbase.Create(&db.TopTrack{UserID: "alice", TrackID: "T1", Period: db.PeriodShortTerm}).Error)
	require.NoError(t, dbase.Create(&db.TopArtist{UserID: "alice", ArtistID: "A1", Period: db.PeriodShortTerm}).Error)
	require.NoError(t, dbase.Create(&db.TopArtist{UserID: "bob", ArtistID: "A1", Period: db.PeriodLongTerm}).Error)
	require.NoError(t, dbase.Create(&db.FavoriteTrack{UserID: "carol", TrackID: "T2"}).Error)

	users, err := repo.DistinctActiveUsers(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob", "carol"}, users)
}

func TestAccessTokenExpiry(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewTokenRepository(dbase)

	// absent
	token, err := repo.AccessToken(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, token)

	// valid
	require.NoError(t, dbase.Create(&db.SpotifyToken{
		UserID:      "alice",
		AccessToken: "tok",
		ExpiresAt:   time.Now().Add(time.Hour).Unix(),
	}).Error)
	token, err = repo.AccessToken(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	// expired
	require.NoError(t, dbase.Create(&db.SpotifyToken{
		UserID:      "bob",
		AccessToken: "old",
		ExpiresAt:   time.Now().Add(-time.Hour).Unix(),
	}).Error)
	token, err = repo.AccessToken(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, token)
}
