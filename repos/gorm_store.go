package repos

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"progress-engine/models"
	"progress-engine/utils"
)

// GormStore implements TxStore on any GORM dialect with ON CONFLICT support
// (postgres in production, sqlite in tests).
type GormStore struct {
	db  *gorm.DB
	log *utils.Logger
}

func NewGormStore(db *gorm.DB, baseLog *utils.Logger) *GormStore {
	return &GormStore{db: db, log: baseLog.With("repo", "GormStore")}
}

// AutoMigrate creates the tables and unique indexes the store relies on.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.UserProfile{},
		&models.ProgressRecord{},
		&models.Badge{},
	)
}

func (s *GormStore) InUserTx(ctx context.Context, userID string, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Row lock on the profile serializes writers for this user across instances.
		var locked models.UserProfile
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Where("external_user_id = ?", userID).
			Take(&locked).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("lock profile %s: %w", userID, err)
		}
		return fn(&GormStore{db: tx, log: s.log})
	})
}

func (s *GormStore) FindProgress(ctx context.Context, userID, activityType, ref string) (*models.ProgressRecord, error) {
	var rec models.ProgressRecord
	err := s.db.WithContext(ctx).
		Where("external_user_id = ? AND activity_type = ? AND activity_ref = ?", userID, activityType, ref).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *GormStore) CreateProgress(ctx context.Context, rec *models.ProgressRecord) (*models.ProgressRecord, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(rec)
	if err := translate(res.Error); err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		s.log.Warn("progress insert lost uniqueness race", "user_id", rec.ExternalUserID, "activity_type", rec.ActivityType, "activity_ref", rec.ActivityRef)
		return nil, fmt.Errorf("progress %s/%s for %s: %w", rec.ActivityType, rec.ActivityRef, rec.ExternalUserID, ErrDuplicateRecord)
	}
	return rec, nil
}

func (s *GormStore) UpdateProgressScore(ctx context.Context, id string, score int) error {
	res := s.db.WithContext(ctx).
		Model(&models.ProgressRecord{}).
		Where("id = ?", id).
		Update("score", score)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("progress %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *GormStore) ListCompleted(ctx context.Context, userID string) ([]models.ProgressRecord, error) {
	var out []models.ProgressRecord
	err := s.db.WithContext(ctx).
		Where("external_user_id = ? AND status = ?", userID, models.ProgressStatusCompleted).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

func (s *GormStore) CountCompleted(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.ProgressRecord{}).
		Where("external_user_id = ? AND status = ?", userID, models.ProgressStatusCompleted).
		Count(&n).Error
	return n, err
}

func (s *GormStore) FindBadge(ctx context.Context, userID, name string) (*models.Badge, error) {
	var b models.Badge
	err := s.db.WithContext(ctx).
		Where("external_user_id = ? AND name = ?", userID, name).
		Take(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *GormStore) ListBadges(ctx context.Context, userID string) ([]models.Badge, error) {
	var out []models.Badge
	err := s.db.WithContext(ctx).
		Where("external_user_id = ?", userID).
		Order("awarded_at ASC, name ASC").
		Find(&out).Error
	return out, err
}

func (s *GormStore) CreateBadge(ctx context.Context, b *models.Badge) (*models.Badge, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(b)
	if err := translate(res.Error); err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		s.log.Warn("badge insert lost uniqueness race", "user_id", b.ExternalUserID, "badge", b.Name)
		return nil, fmt.Errorf("badge %q for %s: %w", b.Name, b.ExternalUserID, ErrDuplicateRecord)
	}
	return b, nil
}

func (s *GormStore) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var p models.UserProfile
	err := s.db.WithContext(ctx).Where("external_user_id = ?", userID).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("profile %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *GormStore) EnsureProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	prog := models.UserProfile{ExternalUserID: userID, Level: 1}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&prog).Error
	if err := translate(err); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, userID)
}

func (s *GormStore) UpdateProfile(ctx context.Context, userID string, fields ProfileUpdate) error {
	if fields.empty() {
		return nil
	}
	updates := map[string]interface{}{}
	if fields.TotalXP != nil {
		updates["total_xp"] = *fields.TotalXP
	}
	if fields.Level != nil {
		updates["level"] = *fields.Level
	}
	if fields.Points != nil {
		updates["points"] = *fields.Points
	}
	if fields.Streak != nil {
		updates["streak"] = *fields.Streak
	}
	if fields.LastActiveOn != nil {
		updates["last_active_on"] = *fields.LastActiveOn
	}
	if fields.LastLevelUpAt != nil {
		updates["last_level_up_at"] = *fields.LastLevelUpAt
	}
	res := s.db.WithContext(ctx).
		Model(&models.UserProfile{}).
		Where("external_user_id = ?", userID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("profile %s: %w", userID, ErrNotFound)
	}
	return nil
}

func (s *GormStore) ListProfiles(ctx context.Context, afterID string, limit int) ([]models.UserProfile, error) {
	if limit < 1 || limit > 1000 {
		limit = 500
	}
	q := s.db.WithContext(ctx).Order("id ASC").Limit(limit)
	if afterID != "" {
		q = q.Where("id > ?", afterID)
	}
	var out []models.UserProfile
	err := q.Find(&out).Error
	return out, err
}

// translate folds driver unique violations (when TranslateError is on) into ErrDuplicateRecord.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicateRecord, err)
	}
	return err
}
