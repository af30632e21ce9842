package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BadgeCategory groups badges for display.
type BadgeCategory string

const (
	BadgeCategoryAchievement BadgeCategory = "achievement"
	BadgeCategoryMilestone   BadgeCategory = "milestone"
	BadgeCategoryTrack       BadgeCategory = "track"
	BadgeCategorySpecial     BadgeCategory = "special"
)

// Badge: awarded instance. Each named badge exists at most once per user and is never mutated.
type Badge struct {
	ID             string         `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string         `gorm:"not null;uniqueIndex:idx_badge_user_name,priority:1" json:"external_user_id"`
	Name           string         `gorm:"not null;uniqueIndex:idx_badge_user_name,priority:2" json:"name"` // "First Steps", "Lab Explorer"
	Description    string         `json:"description"`
	Icon           string         `gorm:"type:text" json:"icon"`
	Category       BadgeCategory  `gorm:"type:varchar(16);not null" json:"category"`
	AwardedAt      time.Time      `gorm:"autoCreateTime" json:"awarded_at"`
	Metadata       datatypes.JSON `json:"metadata,omitempty"` // e.g., {"activity_type": "quiz", "activity_ref": "caching-basics"}
}

func (b *Badge) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}
