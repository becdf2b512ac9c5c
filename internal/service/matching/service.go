// Package matching implements the swipe/match state machine: directional
// like/pass records, exactly-once promotion of mutual likes into a durable
// match, and the pending/outgoing like listings.
package matching

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/echomatch/echomatch/internal/app"
	"github.com/echomatch/echomatch/internal/db"
	svcErr "github.com/echomatch/echomatch/internal/errors"
	"github.com/echomatch/echomatch/internal/metrics"
	"github.com/echomatch/echomatch/internal/repository"
)

// maxSwipeRetries bounds the internal retry on write conflicts before the
// error is surfaced as retryable to the caller.
const maxSwipeRetries = 3

// Service coordinates swipe writes and match promotion on top of the
// durable store's transaction primitive.
type Service struct {
	appCtx   *app.AppContext
	db       *gorm.DB
	profiles *repository.ProfileRepository
}

func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		db:       appCtx.DB,
		profiles: repository.NewProfileRepository(appCtx.DB),
	}
}

// SwipeResult reports whether the swipe completed a match. IsMatch stays
// true on idempotent re-likes of an already-matched pair.
type SwipeResult struct {
	IsMatch bool   `json:"is_match"`
	MatchID string `json:"match_id,omitempty"`
}

// Swipe upserts the directional record (from -> to) and, on a LIKE,
// checks the reverse direction inside the same transaction. When both
// directions are LIKE, the match record is created exactly once no matter
// how the two swipes interleave: concurrent mutual likes either serialize
// on the row lock or deadlock, and the retried transaction then observes
// the committed reverse like.
func (s *Service) Swipe(ctx context.Context, from, to, action string) (*SwipeResult, error) {
	if from == "" || to == "" {
		return nil, svcErr.InvalidArgument("both user ids are required")
	}
	if from == to {
		return nil, svcErr.InvalidArgument("cannot swipe on yourself")
	}
	if action != db.ActionLike && action != db.ActionPass {
		return nil, svcErr.InvalidArgument("action must be LIKE or PASS")
	}

	var (
		result  SwipeResult
		created bool
		lastErr error
	)

	for attempt := 0; attempt < maxSwipeRetries; attempt++ {
		result = SwipeResult{}
		created = false

		lastErr = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			swipes := repository.NewSwipeRepository(tx)
			if err := swipes.Upsert(ctx, from, to, action); err != nil {
				return err
			}

			if action != db.ActionLike {
				return nil
			}

			reverse, err := swipes.GetForUpdate(ctx, to, from)
			if err != nil {
				return err
			}
			if reverse == nil || reverse.Action != db.ActionLike {
				return nil
			}

			matchID, didCreate, err := repository.NewMatchRepository(tx).CreateIfAbsent(ctx, from, to)
			if err != nil {
				return err
			}
			result = SwipeResult{IsMatch: true, MatchID: matchID}
			created = didCreate
			return nil
		})

		if lastErr == nil {
			break
		}
		if !isWriteConflict(lastErr) {
			return nil, svcErr.Internal("swipe transaction failed", lastErr)
		}

		metrics.SwipeConflictRetries.Inc()
		s.appCtx.Logger.Warn("retrying swipe after write conflict",
			"from", from, "to", to, "attempt", attempt+1, "err", lastErr)
		time.Sleep(time.Duration(attempt+1) * 10 * time.Millisecond)
	}
	if lastErr != nil {
		return nil, svcErr.Conflict("swipe conflicted with a concurrent write", lastErr)
	}

	metrics.Swipes.WithLabelValues(action).Inc()
	if created {
		metrics.MatchesCreated.Inc()
		s.appCtx.Logger.Info("match created", "match_id", result.MatchID)
	}
	return &result, nil
}

// isWriteConflict recognizes the backing store's conflict signals:
// InnoDB deadlocks and lock timeouts, and SQLite's single-writer lock.
func isWriteConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "deadlock") ||
		strings.Contains(msg, "lock wait timeout") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

// LikeEntry is one row of a like listing, with display data resolved.
type LikeEntry struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url"`
	LikedAtUnix int64  `json:"liked_at"`
}

// ListPendingIncomingLikes returns people who liked the user and whom the
// user has not swiped on yet, newest like first.
func (s *Service) ListPendingIncomingLikes(ctx context.Context, userID string) ([]LikeEntry, error) {
	if userID == "" {
		return nil, svcErr.InvalidArgument("user id is required")
	}

	swipes, err := repository.NewSwipeRepository(s.db).ListPendingIncoming(ctx, userID)
	if err != nil {
		return nil, svcErr.Internal("list pending likes", err)
	}

	ids := make([]string, 0, len(swipes))
	for _, sw := range swipes {
		ids = append(ids, sw.FromUserID)
	}
	profiles, err := s.profiles.GetMany(ctx, ids)
	if err != nil {
		return nil, svcErr.Internal("load profiles", err)
	}

	entries := make([]LikeEntry, 0, len(swipes))
	for _, sw := range swipes {
		p := profiles[sw.FromUserID]
		entries = append(entries, LikeEntry{
			UserID:      sw.FromUserID,
			DisplayName: p.DisplayName,
			AvatarURL:   p.AvatarURL,
			LikedAtUnix: sw.UpdatedAt.Unix(),
		})
	}
	return entries, nil
}

// ListOutgoingUnmatchedLikes returns people the user liked who have not
// (yet) reciprocated, newest like first.
func (s *Service) ListOutgoingUnmatchedLikes(ctx context.Context, userID string) ([]LikeEntry, error) {
	if userID == "" {
		return nil, svcErr.InvalidArgument("user id is required")
	}

	likes, err := repository.NewSwipeRepository(s.db).ListOutgoingLikes(ctx, userID)
	if err != nil {
		return nil, svcErr.Internal("list outgoing likes", err)
	}
	partners, err := repository.NewMatchRepository(s.db).MatchedPartners(ctx, userID)
	if err != nil {
		return nil, svcErr.Internal("load matched partners", err)
	}

	unmatched := make([]db.Swipe, 0, len(likes))
	ids := make([]string, 0, len(likes))
	for _, sw := range likes {
		if _, matched := partners[sw.ToUserID]; matched {
			continue
		}
		unmatched = append(unmatched, sw)
		ids = append(ids, sw.ToUserID)
	}

	profiles, err := s.profiles.GetMany(ctx, ids)
	if err != nil {
		return nil, svcErr.Internal("load profiles", err)
	}

	entries := make([]LikeEntry, 0, len(unmatched))
	for _, sw := range unmatched {
		p := profiles[sw.ToUserID]
		entries = append(entries, LikeEntry{
			UserID:      sw.ToUserID,
			DisplayName: p.DisplayName,
			AvatarURL:   p.AvatarURL,
			LikedAtUnix: sw.UpdatedAt.Unix(),
		})
	}
	return entries, nil
}

// MatchEntry is one row of the match list, with the other participant's
// display data resolved.
type MatchEntry struct {
	MatchID         string     `json:"match_id"`
	OtherUserID     string     `json:"other_user_id"`
	DisplayName     string     `json:"display_name"`
	AvatarURL       string     `json:"avatar_url"`
	IsActive        bool       `json:"is_active"`
	LastMessage     string     `json:"last_message"`
	LastMessageTime *time.Time `json:"last_message_time,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ListMatches returns the user's matches with conversation metadata,
// newest first.
func (s *Service) ListMatches(ctx context.Context, userID string) ([]MatchEntry, error) {
	if userID == "" {
		return nil, svcErr.InvalidArgument("user id is required")
	}

	matches, err := repository.NewMatchRepository(s.db).ListForUser(ctx, userID)
	if err != nil {
		return nil, svcErr.Internal("list matches", err)
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.UserA == userID {
			ids = append(ids, m.UserB)
		} else {
			ids = append(ids, m.UserA)
		}
	}
	profiles, err := s.profiles.GetMany(ctx, ids)
	if err != nil {
		return nil, svcErr.Internal("load profiles", err)
	}

	entries := make([]MatchEntry, 0, len(matches))
	for _, m := range matches {
		other := m.UserB
		if m.UserB == userID {
			other = m.UserA
		}
		p := profiles[other]
		entries = append(entries, MatchEntry{
			MatchID:         m.MatchID,
			OtherUserID:     other,
			DisplayName:     p.DisplayName,
			AvatarURL:       p.AvatarURL,
			IsActive:        m.IsActive,
			LastMessage:     m.LastMessage,
			LastMessageTime: m.LastMessageTime,
			CreatedAt:       m.CreatedAt,
		})
	}
	return entries, nil
}
