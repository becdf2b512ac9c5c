package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/echomatch/echomatch/internal/db"
)

// VectorRepository stores the periodically recomputed preference vectors.
type VectorRepository struct {
	db *gorm.DB
}

func NewVectorRepository(database *gorm.DB) *VectorRepository {
	return &VectorRepository{db: database}
}

// Upsert writes the user's recomputed vector, replacing any previous one.
func (r *VectorRepository) Upsert(ctx context.Context, vec *db.PreferenceVector) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"style_vector", "genre_vector", "language_vector",
				"total_interactions", "last_update",
			}),
		}).
		Create(vec).Error
}

// Get returns the user's vector, or (nil, nil) when none has been built
// yet. Absence means "not enough data", a valid state.
func (r *VectorRepository) Get(ctx context.Context, userID string) (*db.PreferenceVector, error) {
	var vec db.PreferenceVector
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&vec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &vec, nil
}

// GetAll loads every stored vector keyed by user id. The ranking engine
// scores against the full set in one pass.
func (r *VectorRepository) GetAll(ctx context.Context) (map[string]db.PreferenceVector, error) {
	var vecs []db.PreferenceVector
	if err := r.db.WithContext(ctx).Find(&vecs).Error; err != nil {
		return nil, err
	}
	out := make(map[string]db.PreferenceVector, len(vecs))
	for _, v := range vecs {
		out[v.UserID] = v
	}
	return out, nil
}
