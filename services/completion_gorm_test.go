package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"progress-engine/catalog"
	"progress-engine/models"
	"progress-engine/repos"
	"progress-engine/utils"
)

func newGormStore(t *testing.T) *repos.GormStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, repos.AutoMigrate(db))
	return repos.NewGormStore(db, utils.NopLogger())
}

// staleStore hands fn a transaction whose reads miss rows that already exist,
// the view of a writer that checked before a concurrent insert committed.
type staleStore struct {
	*repos.GormStore
	hideProgress bool
	hideBadges   bool
}

func (s staleStore) InUserTx(ctx context.Context, userID string, fn func(tx repos.Store) error) error {
	return s.GormStore.InUserTx(ctx, userID, func(tx repos.Store) error {
		return fn(staleTx{Store: tx, hideProgress: s.hideProgress, hideBadges: s.hideBadges})
	})
}

type staleTx struct {
	repos.Store
	hideProgress bool
	hideBadges   bool
}

func (t staleTx) FindProgress(ctx context.Context, userID, activityType, ref string) (*models.ProgressRecord, error) {
	if t.hideProgress {
		return nil, nil
	}
	return t.Store.FindProgress(ctx, userID, activityType, ref)
}

func (t staleTx) ListBadges(ctx context.Context, userID string) ([]models.Badge, error) {
	if t.hideBadges {
		return nil, nil
	}
	return t.Store.ListBadges(ctx, userID)
}

func TestRecordCompletionOnGormStore(t *testing.T) {
	ctx := context.Background()
	store := newGormStore(t)
	seedProfile(t, store, "u1")
	svc := newTestService(t, store)

	res, err := svc.RecordCompletion(ctx, CompletionInput{UserID: "u1", ActivityType: "quiz", ActivityRef: "caching-basics", Score: intPtr(90)})
	require.NoError(t, err)
	assert.False(t, res.AlreadyCompleted)
	assert.Equal(t, int64(10), res.PointsGranted)
	assert.Equal(t, int64(50), res.XPGranted)
	assert.Equal(t, 1, res.Streak)
	assert.ElementsMatch(t, []string{
		catalog.BadgeQuizMaster, "Caching Expert", "Quiz Explorer", catalog.BadgeFirstSteps,
	}, badgeNamesOf(res))

	prof, err := store.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), prof.TotalXP)
	assert.Equal(t, int64(10), prof.Points)
	assert.Equal(t, 1, prof.Streak)
	require.NotNil(t, prof.LastActiveOn)
	assert.True(t, day(0).Equal(*prof.LastActiveOn))

	again, err := svc.RecordCompletion(ctx, CompletionInput{UserID: "u1", ActivityType: "quiz", ActivityRef: "caching-basics", Score: intPtr(70)})
	require.NoError(t, err)
	assert.True(t, again.AlreadyCompleted)
	assert.True(t, again.ScoreUpdated)
	assert.Zero(t, again.XPGranted)

	rec, err := store.FindProgress(ctx, "u1", "quiz", "caching-basics")
	require.NoError(t, err)
	require.NotNil(t, rec.Score)
	assert.Equal(t, 70, *rec.Score)

	badges, err := store.ListBadges(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, badges, 4)
}

func TestRecordCompletionLostRaceIsNoop(t *testing.T) {
	ctx := context.Background()
	store := newGormStore(t)
	seedProfile(t, store, "u1")

	in := CompletionInput{UserID: "u1", ActivityType: "lab", ActivityRef: "redis-lab"}
	first, err := newTestService(t, store).RecordCompletion(ctx, in)
	require.NoError(t, err)
	require.False(t, first.AlreadyCompleted)

	// the insert hits the unique index and the whole unit of work is discarded
	racer := newTestService(t, staleStore{GormStore: store, hideProgress: true})
	res, err := racer.RecordCompletion(ctx, in)
	require.NoError(t, err)
	assert.True(t, res.AlreadyCompleted)
	assert.Zero(t, res.PointsGranted)
	assert.Zero(t, res.XPGranted)
	assert.Empty(t, res.NewBadges)
	assert.Equal(t, int64(100), res.TotalXP)
	assert.Equal(t, int64(20), res.Points)
	assert.Equal(t, 2, res.Level)

	prof, err := store.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), prof.TotalXP)
	assert.Equal(t, int64(20), prof.Points)

	n, err := store.CountCompleted(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	badges, err := store.ListBadges(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, badges, 2)
}

func TestRecordCompletionSkipsBadgeAlreadyInserted(t *testing.T) {
	ctx := context.Background()
	store := newGormStore(t)
	seedProfile(t, store, "u1")

	_, err := store.CreateBadge(ctx, &models.Badge{
		ExternalUserID: "u1",
		Name:           "Lab Explorer",
		Category:       models.BadgeCategoryAchievement,
	})
	require.NoError(t, err)

	svc := newTestService(t, staleStore{GormStore: store, hideBadges: true})
	res, err := svc.RecordCompletion(ctx, CompletionInput{UserID: "u1", ActivityType: "lab", ActivityRef: "redis-lab"})
	require.NoError(t, err)
	assert.False(t, res.AlreadyCompleted)
	assert.Equal(t, int64(100), res.XPGranted)
	assert.Equal(t, int64(20), res.PointsGranted)
	assert.Equal(t, []string{catalog.BadgeFirstSteps}, badgeNamesOf(res))

	rec, err := store.FindProgress(ctx, "u1", "lab", "redis-lab")
	require.NoError(t, err)
	assert.NotNil(t, rec)

	prof, err := store.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), prof.TotalXP)
	assert.Equal(t, 2, prof.Level)

	badges, err := store.ListBadges(ctx, "u1")
	require.NoError(t, err)
	var got []string
	for _, b := range badges {
		got = append(got, b.Name)
	}
	assert.ElementsMatch(t, []string{"Lab Explorer", catalog.BadgeFirstSteps}, got)
}
