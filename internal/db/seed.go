package db

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedDemoData resets the database and populates it with demo users,
// listening history, and a few swipes.
//
// Behavior:
//  1. Clears all engine tables.
//  2. Creates 12 profiles with linked playback tokens.
//  3. Seeds a small track/artist catalog with style vectors and tags.
//  4. Gives every user history across the three periods plus favorites.
//  5. Generates swipes with ~70% likes and one guaranteed mutual pair.
//
// Compatible with both MySQL and SQLite.
func SeedDemoData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	tables := []string{
		"listening_events", "matches", "swipes", "preference_vectors",
		"favorite_tracks", "top_artists", "top_tracks",
		"track_features", "artist_features", "spotify_tokens", "profiles",
	}
	for _, table := range tables {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	switch db.Dialector.Name() {
	case "mysql":
		for _, table := range []string{"top_tracks", "top_artists", "favorite_tracks", "listening_events"} {
			db.Exec("ALTER TABLE " + table + " AUTO_INCREMENT = 1")
		}
	case "sqlite":
		db.Exec("DELETE FROM sqlite_sequence")
	}

	log.Println("Cleared existing data")

	catalog := demoCatalog()
	for i := range catalog.artists {
		if err := db.Create(&catalog.artists[i]).Error; err != nil {
			return fmt.Errorf("failed to seed artist feature: %w", err)
		}
	}
	for i := range catalog.tracks {
		if err := db.Create(&catalog.tracks[i]).Error; err != nil {
			return fmt.Errorf("failed to seed track feature: %w", err)
		}
	}
	log.Printf("Seeded %d tracks, %d artists.", len(catalog.tracks), len(catalog.artists))

	names := []string{
		"Alice", "Bob", "Carol", "Dave", "Erin", "Frank",
		"Grace", "Heidi", "Ivan", "Judy", "Mallory", "Niaj",
	}
	users := make([]string, len(names))
	for i, name := range names {
		userID := fmt.Sprintf("user%d", i+1)
		users[i] = userID

		profile := Profile{
			UserID:      userID,
			DisplayName: name,
			AvatarURL:   fmt.Sprintf("https://cdn.echomatch.app/avatars/%s.png", userID),
		}
		if err := db.Create(&profile).Error; err != nil {
			return fmt.Errorf("failed to seed profile: %w", err)
		}

		token := SpotifyToken{
			UserID:      userID,
			AccessToken: fmt.Sprintf("demo-token-%s", userID),
			ExpiresAt:   time.Now().Add(24 * time.Hour).Unix(),
		}
		if err := db.Create(&token).Error; err != nil {
			return fmt.Errorf("failed to seed token: %w", err)
		}

		if err := seedHistory(db, r, userID, catalog); err != nil {
			return err
		}
	}
	log.Printf("Seeded %d users with listening history.", len(users))

	if err := seedSwipes(db, r, users); err != nil {
		return err
	}

	return nil
}

type catalog struct {
	tracks  []TrackFeature
	artists []ArtistFeature
}

// demoCatalog returns a fixed catalog spanning a few taste clusters so
// seeded vectors spread out instead of collapsing to one point.
func demoCatalog() catalog {
	artists := []ArtistFeature{
		{ArtistID: "A1", ArtistName: "Neon Harbor", StyleVector: FloatVector{0.9, 0.1, 0.2, 0.1, 0.0, 0.3, 0.1, 0.2}, Genres: StringList{"pop", "edm"}, Languages: StringList{"english"}, Popularity: 88},
		{ArtistID: "A2", ArtistName: "Stone Garden", StyleVector: FloatVector{0.2, 0.9, 0.1, 0.3, 0.1, 0.0, 0.2, 0.1}, Genres: StringList{"rock", "indie"}, Languages: StringList{"english"}, Popularity: 74},
		{ArtistID: "A3", ArtistName: "午夜電台", StyleVector: FloatVector{0.3, 0.1, 0.8, 0.2, 0.1, 0.2, 0.0, 0.1}, Genres: StringList{"c-pop", "r&b"}, Languages: StringList{"mandarin"}, Popularity: 81},
		{ArtistID: "A4", ArtistName: "Seoul Static", StyleVector: FloatVector{0.7, 0.2, 0.1, 0.8, 0.2, 0.1, 0.1, 0.0}, Genres: StringList{"k-pop"}, Languages: StringList{"korean"}, Popularity: 92},
		{ArtistID: "A5", ArtistName: "Low Tide Collective", StyleVector: FloatVector{0.1, 0.2, 0.3, 0.1, 0.9, 0.1, 0.2, 0.3}, Genres: StringList{"lo-fi", "jazz"}, Languages: StringList{"others"}, Popularity: 65},
		{ArtistID: "A6", ArtistName: "Vortex Mara", StyleVector: FloatVector{0.2, 0.3, 0.1, 0.1, 0.1, 0.9, 0.3, 0.1}, Genres: StringList{"melodic-rap", "trap-rap"}, Languages: StringList{"english"}, Popularity: 79},
	}

	tracks := []TrackFeature{
		{TrackID: "T1", TrackName: "Glasslight", ArtistID: "A1", ArtistName: "Neon Harbor", StyleVector: FloatVector{0.9, 0.1, 0.2, 0.1, 0.0, 0.3, 0.1, 0.2}, Genres: StringList{"pop"}, Languages: StringList{"english"}, Popularity: 90},
		{TrackID: "T2", TrackName: "Afterglow Run", ArtistID: "A1", ArtistName: "Neon Harbor", StyleVector: FloatVector{0.8, 0.2, 0.1, 0.2, 0.1, 0.2, 0.1, 0.1}, Genres: StringList{"pop", "edm"}, Languages: StringList{"english"}, Popularity: 84},
		{TrackID: "T3", TrackName: "Granite Sky", ArtistID: "A2", ArtistName: "Stone Garden", StyleVector: FloatVector{0.2, 0.9, 0.1, 0.3, 0.1, 0.0, 0.2, 0.1}, Genres: StringList{"rock"}, Languages: StringList{"english"}, Popularity: 71},
		{TrackID: "T4", TrackName: "雨後的街", ArtistID: "A3", ArtistName: "午夜電台", StyleVector: FloatVector{0.3, 0.1, 0.8, 0.2, 0.1, 0.2, 0.0, 0.1}, Genres: StringList{"c-pop"}, Languages: StringList{"mandarin"}, Popularity: 78},
		{TrackID: "T5", TrackName: "Hologram Heart", ArtistID: "A4", ArtistName: "Seoul Static", StyleVector: FloatVector{0.7, 0.2, 0.1, 0.8, 0.2, 0.1, 0.1, 0.0}, Genres: StringList{"k-pop"}, Languages: StringList{"korean"}, Popularity: 93},
		{TrackID: "T6", TrackName: "Driftwood Keys", ArtistID: "A5", ArtistName: "Low Tide Collective", StyleVector: FloatVector{0.1, 0.2, 0.3, 0.1, 0.9, 0.1, 0.2, 0.3}, Genres: StringList{"lo-fi"}, Languages: StringList{"others"}, Popularity: 62},
		{TrackID: "T7", TrackName: "Mirror Talk", ArtistID: "A6", ArtistName: "Vortex Mara", StyleVector: FloatVector{0.2, 0.3, 0.1, 0.1, 0.1, 0.9, 0.3, 0.1}, Genres: StringList{"melodic-rap"}, Languages: StringList{"english"}, Popularity: 80},
		{TrackID: "T8", TrackName: "Static Bloom", ArtistID: "A4", ArtistName: "Seoul Static", StyleVector: FloatVector{0.6, 0.3, 0.1, 0.7, 0.2, 0.2, 0.1, 0.1}, Genres: StringList{"k-pop", "edm"}, Languages: StringList{"korean"}, Popularity: 87},
	}

	return catalog{tracks: tracks, artists: artists}
}

func seedHistory(db *gorm.DB, r *rand.Rand, userID string, c catalog) error {
	periods := []string{PeriodShortTerm, PeriodMediumTerm, PeriodLongTerm}
	for _, period := range periods {
		perm := r.Perm(len(c.tracks))
		for rank := 1; rank <= 3; rank++ {
			t := c.tracks[perm[rank-1]]
			row := TopTrack{
				UserID:     userID,
				TrackID:    t.TrackID,
				TrackName:  t.TrackName,
				ArtistID:   t.ArtistID,
				ArtistName: t.ArtistName,
				Popularity: t.Popularity,
				Rank:       rank,
				Period:     period,
			}
			if err := db.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to seed top track: %w", err)
			}
		}

		perm = r.Perm(len(c.artists))
		for rank := 1; rank <= 2; rank++ {
			a := c.artists[perm[rank-1]]
			row := TopArtist{
				UserID:     userID,
				ArtistID:   a.ArtistID,
				ArtistName: a.ArtistName,
				Popularity: a.Popularity,
				Rank:       rank,
				Period:     period,
			}
			if err := db.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to seed top artist: %w", err)
			}
		}
	}

	fav := c.tracks[r.Intn(len(c.tracks))]
	row := FavoriteTrack{
		UserID:     userID,
		TrackID:    fav.TrackID,
		TrackName:  fav.TrackName,
		ArtistID:   fav.ArtistID,
		ArtistName: fav.ArtistName,
	}
	if err := db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to seed favorite: %w", err)
	}
	return nil
}

func seedSwipes(db *gorm.DB, r *rand.Rand, users []string) error {
	upsert := clause.OnConflict{
		Columns:   []clause.Column{{Name: "from_user_id"}, {Name: "to_user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"action", "updated_at"}),
	}

	count := 0
	for _, from := range users {
		for j := 0; j < 4; j++ {
			to := users[r.Intn(len(users))]
			if to == from {
				continue
			}

			action := ActionPass
			if r.Intn(100) < 70 {
				action = ActionLike
			}
			swipe := Swipe{FromUserID: from, ToUserID: to, Action: action}
			if err := db.Clauses(upsert).Create(&swipe).Error; err != nil {
				return fmt.Errorf("failed to seed swipe: %w", err)
			}
			count++
		}
	}

	// one guaranteed mutual pair so demo clients always see a match
	a, b := users[0], users[1]
	if a > b {
		a, b = b, a
	}
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		swipe := Swipe{FromUserID: pair[0], ToUserID: pair[1], Action: ActionLike}
		if err := db.Clauses(upsert).Create(&swipe).Error; err != nil {
			return fmt.Errorf("failed to seed mutual like: %w", err)
		}
	}
	matchID := a + "_" + b
	match := Match{MatchID: matchID, UserA: a, UserB: b, IsActive: true}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&match).Error; err != nil {
		return fmt.Errorf("failed to seed match: %w", err)
	}

	log.Printf("Seeded %d swipes and 1 mutual match (%s).", count, matchID)
	return nil
}
