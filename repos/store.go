package repos

import (
	"context"
	"errors"
	"time"

	"progress-engine/models"
)

var (
	// ErrDuplicateRecord is returned when a uniqueness key is already taken.
	ErrDuplicateRecord = errors.New("duplicate record")
	// ErrNotFound is returned for a missing profile or progress row.
	ErrNotFound = errors.New("not found")
)

// ProfileUpdate lists the profile fields to write; nil fields are left untouched.
type ProfileUpdate struct {
	TotalXP       *int64
	Level         *int
	Points        *int64
	Streak        *int
	LastActiveOn  *time.Time
	LastLevelUpAt *time.Time
}

func (u ProfileUpdate) empty() bool {
	return u.TotalXP == nil && u.Level == nil && u.Points == nil &&
		u.Streak == nil && u.LastActiveOn == nil && u.LastLevelUpAt == nil
}

// Store is the persistence surface of the progress engine.
type Store interface {
	// FindProgress returns nil, nil when the activity was never completed.
	FindProgress(ctx context.Context, userID, activityType, ref string) (*models.ProgressRecord, error)
	// CreateProgress fails with ErrDuplicateRecord on a (user, type, ref) collision.
	CreateProgress(ctx context.Context, rec *models.ProgressRecord) (*models.ProgressRecord, error)
	UpdateProgressScore(ctx context.Context, id string, score int) error
	ListCompleted(ctx context.Context, userID string) ([]models.ProgressRecord, error)
	CountCompleted(ctx context.Context, userID string) (int64, error)

	// FindBadge returns nil, nil when the user does not hold the badge.
	FindBadge(ctx context.Context, userID, name string) (*models.Badge, error)
	ListBadges(ctx context.Context, userID string) ([]models.Badge, error)
	// CreateBadge fails with ErrDuplicateRecord on a (user, name) collision.
	CreateBadge(ctx context.Context, b *models.Badge) (*models.Badge, error)

	// GetProfile fails with ErrNotFound when the user has no profile.
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	// EnsureProfile creates an empty level 1 profile if none exists (idempotent).
	EnsureProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	UpdateProfile(ctx context.Context, userID string, fields ProfileUpdate) error
	// ListProfiles pages through profiles ordered by id, starting after afterID.
	ListProfiles(ctx context.Context, afterID string, limit int) ([]models.UserProfile, error)
}

// TxStore can apply a group of writes for one user as a single atomic unit.
type TxStore interface {
	Store
	// InUserTx runs fn inside a transaction holding the user's profile row exclusively.
	// Any error from fn, or a cancelled ctx, rolls back every write made through tx.
	InUserTx(ctx context.Context, userID string, fn func(tx Store) error) error
}
