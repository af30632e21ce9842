package services

import (
	"context"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"progress-engine/models"
)

// ProfileSummary is the read model behind GET /user/progress.
type ProfileSummary struct {
	UserID         string     `json:"user_id"`
	TotalXP        int64      `json:"xp"`
	Level          int        `json:"level"`
	XPIntoLevel    int64      `json:"xp_into_level"`
	XPToNext       int64      `json:"xp_to_next"`
	LevelProgress  float64    `json:"level_progress"`
	Rank           string     `json:"rank"`
	Streak         int        `json:"streak"`
	Points         int64      `json:"points"`
	LastActiveOn   *time.Time `json:"last_active_on,omitempty"`
	LastLevelUpAt  *time.Time `json:"last_level_up_at,omitempty"`
	CompletedCount int64      `json:"completed_count"`
	BadgeCount     int        `json:"badge_count"`
}

// EnsureProfile creates the caller's profile on first sight (sign-in hook).
func (s *ProgressionService) EnsureProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	return s.store.EnsureProfile(ctx, userID)
}

// Summary returns the caller's profile, creating it if needed. Level fields are
// derived from XP here rather than trusted from the cached column.
func (s *ProgressionService) Summary(ctx context.Context, userID string) (*ProfileSummary, error) {
	prof, err := s.EnsureProfile(ctx, userID)
	if err != nil {
		return nil, err
	}

	var (
		completed int64
		badges    []models.Badge
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		completed, err = s.store.CountCompleted(gctx, prof.ExternalUserID)
		return err
	})
	g.Go(func() error {
		var err error
		badges, err = s.store.ListBadges(gctx, prof.ExternalUserID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	lvl := LevelFor(prof.TotalXP)
	return &ProfileSummary{
		UserID:         prof.ExternalUserID,
		TotalXP:        prof.TotalXP,
		Level:          lvl.Level,
		XPIntoLevel:    lvl.XPIntoLevel,
		XPToNext:       lvl.XPToNext,
		LevelProgress:  lvl.Progress(),
		Rank:           RankFor(lvl.Level),
		Streak:         prof.Streak,
		Points:         prof.Points,
		LastActiveOn:   prof.LastActiveOn,
		LastLevelUpAt:  prof.LastLevelUpAt,
		CompletedCount: completed,
		BadgeCount:     len(badges),
	}, nil
}

// Badges lists the caller's badges in award order.
func (s *ProgressionService) Badges(ctx context.Context, userID string) ([]models.Badge, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUnauthenticated
	}
	return s.store.ListBadges(ctx, userID)
}
