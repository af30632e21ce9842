package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProgressStatus is the lifecycle state of a ProgressRecord.
type ProgressStatus string

const (
	ProgressStatusCompleted ProgressStatus = "completed"
)

// ProgressRecord marks one completed activity. The (user, type, ref) triple is unique:
// a second completion of the same activity never creates a second row.
type ProgressRecord struct {
	ID             string         `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string         `gorm:"not null;uniqueIndex:idx_progress_user_activity,priority:1" json:"external_user_id"`
	ActivityType   string         `gorm:"type:varchar(32);not null;uniqueIndex:idx_progress_user_activity,priority:2" json:"activity_type"`
	ActivityRef    string         `gorm:"type:varchar(255);not null;uniqueIndex:idx_progress_user_activity,priority:3" json:"activity_ref"`
	Status         ProgressStatus `gorm:"type:varchar(16);not null;default:'completed'" json:"status"`

	Score *int `json:"score,omitempty"` // 0-100 when the activity is scored

	// Rewards granted when the record was created (pre-calculated to avoid recomputation)
	PointsGranted int64 `json:"points_granted" gorm:"not null;default:0"`
	XPGranted     int64 `json:"xp_granted" gorm:"not null;default:0"`

	Timestamps
}

func (r *ProgressRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = ProgressStatusCompleted
	}
	return nil
}

// ActivityKey identifies an activity independently of any user.
type ActivityKey struct {
	Type string `json:"activity_type"`
	Ref  string `json:"activity_ref"`
}

func (r ProgressRecord) Key() ActivityKey {
	return ActivityKey{Type: r.ActivityType, Ref: r.ActivityRef}
}
