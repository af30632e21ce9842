package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UserProfile is the per-learner reward aggregate (denormalized for reads).
// Level is a cached value derived from TotalXP and is only written together with it.
type UserProfile struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"external_user_id"` // links to auth provider

	// Core progression
	TotalXP int64 `json:"total_xp" gorm:"not null;default:0"`
	Level   int   `json:"level" gorm:"not null;default:1"`
	Points  int64 `json:"points" gorm:"not null;default:0"` // separate currency from XP

	// Consistency
	Streak       int        `json:"streak" gorm:"not null;default:0"`
	LastActiveOn *time.Time `json:"last_active_on,omitempty"` // UTC midnight of the last credited day

	// Milestones
	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`

	Timestamps
}

func (p *UserProfile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Level < 1 {
		p.Level = 1
	}
	return nil
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
