package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/echomatch/echomatch/internal/db"
)

// SwipeRepository provides data access for directional like/pass records.
// It is safe to construct over a transaction handle; the swipe/match
// coordinator does exactly that.
type SwipeRepository struct {
	db *gorm.DB
}

// NewSwipeRepository creates a repository bound to the given DB or tx.
func NewSwipeRepository(database *gorm.DB) *SwipeRepository {
	return &SwipeRepository{db: database}
}

// Upsert inserts or overwrites the decision for the ordered pair
// (from -> to). The composite PK guarantees one row per ordered pair; a
// later swipe replaces the action, so only the latest decision counts.
func (r *SwipeRepository) Upsert(ctx context.Context, from, to, action string) error {
	swipe := db.Swipe{
		FromUserID: from,
		ToUserID:   to,
		Action:     action,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "from_user_id"}, {Name: "to_user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"action", "updated_at"}),
		}).
		Create(&swipe).Error
}

// GetForUpdate reads the directional record (from -> to), taking a row
// lock on MySQL so a concurrent mutual swipe serializes against this
// transaction. SQLite serializes writers globally, and rejects FOR UPDATE
// syntax, so the lock clause is dialect-gated.
func (r *SwipeRepository) GetForUpdate(ctx context.Context, from, to string) (*db.Swipe, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "mysql" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var swipe db.Swipe
	err := query.
		Where("from_user_id = ? AND to_user_id = ?", from, to).
		First(&swipe).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &swipe, nil
}

// ListPendingIncoming returns likes aimed at the user from people the user
// has not yet swiped on in either direction, newest first.
func (r *SwipeRepository) ListPendingIncoming(ctx context.Context, userID string) ([]db.Swipe, error) {
	var swipes []db.Swipe
	err := r.db.WithContext(ctx).
		Table("swipes s").
		Where("s.to_user_id = ? AND s.action = ?", userID, db.ActionLike).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM swipes s2
				WHERE s2.from_user_id = ?
				  AND s2.to_user_id = s.from_user_id
			)`, userID).
		Order("s.updated_at DESC, s.from_user_id DESC").
		Find(&swipes).Error
	if err != nil {
		return nil, err
	}
	return swipes, nil
}

// ListOutgoingLikes returns the user's own likes, newest first. The caller
// subtracts matched partners.
func (r *SwipeRepository) ListOutgoingLikes(ctx context.Context, userID string) ([]db.Swipe, error) {
	var swipes []db.Swipe
	err := r.db.WithContext(ctx).
		Where("from_user_id = ? AND action = ?", userID, db.ActionLike).
		Order("updated_at DESC, to_user_id DESC").
		Find(&swipes).Error
	if err != nil {
		return nil, err
	}
	return swipes, nil
}
