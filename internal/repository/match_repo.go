package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/echomatch/echomatch/internal/db"
)

// MatchID computes the deterministic match id for a pair: the two ids
// sorted lexicographically, joined by "_". The id is identical regardless
// of which user triggered the match.
func MatchID(a, b string) string {
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return a + "_" + b
}

// MatchRepository provides data access for durable match records.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a repository bound to the given DB or tx.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// CreateIfAbsent inserts the match record for the pair unless one already
// exists, and reports whether this call created it. An existing record is
// left untouched, so conversation metadata written by the messaging
// subsystem survives re-evaluation of an already-matched pair.
func (r *MatchRepository) CreateIfAbsent(ctx context.Context, userA, userB string) (string, bool, error) {
	if strings.Compare(userA, userB) > 0 {
		userA, userB = userB, userA
	}
	match := db.Match{
		MatchID:  MatchID(userA, userB),
		UserA:    userA,
		UserB:    userB,
		IsActive: true,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "match_id"}},
			DoNothing: true,
		}).
		Create(&match)
	if res.Error != nil {
		return "", false, res.Error
	}
	return match.MatchID, res.RowsAffected == 1, nil
}

// Get returns a match by id, or (nil, nil) when absent.
func (r *MatchRepository) Get(ctx context.Context, matchID string) (*db.Match, error) {
	var match db.Match
	err := r.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		First(&match).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &match, nil
}

// ListForUser returns every match the user participates in, newest first.
func (r *MatchRepository) ListForUser(ctx context.Context, userID string) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("user_a = ? OR user_b = ?", userID, userID).
		Order("created_at DESC").
		Find(&matches).Error
	if err != nil {
		return nil, err
	}
	return matches, nil
}

// MatchedPartners returns the set of user ids the user is matched with.
// One query, used to subtract matches from outgoing-like listings.
func (r *MatchRepository) MatchedPartners(ctx context.Context, userID string) (map[string]struct{}, error) {
	matches, err := r.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	partners := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		if m.UserA == userID {
			partners[m.UserB] = struct{}{}
		} else {
			partners[m.UserA] = struct{}{}
		}
	}
	return partners, nil
}
