package repos

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"progress-engine/models"
)

// runStoreContract exercises behaviour every TxStore must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) TxStore) {
	ctx := context.Background()

	t.Run("profiles", func(t *testing.T) {
		s := newStore(t)

		_, err := s.GetProfile(ctx, "u1")
		require.ErrorIs(t, err, ErrNotFound)

		p, err := s.EnsureProfile(ctx, "u1")
		require.NoError(t, err)
		assert.NotEmpty(t, p.ID)
		assert.Equal(t, 1, p.Level)
		assert.Zero(t, p.TotalXP)

		again, err := s.EnsureProfile(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, p.ID, again.ID)

		xp, streak := int64(250), 4
		day := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
		require.NoError(t, s.UpdateProfile(ctx, "u1", ProfileUpdate{TotalXP: &xp, Streak: &streak, LastActiveOn: &day}))

		got, err := s.GetProfile(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(250), got.TotalXP)
		assert.Equal(t, 4, got.Streak)
		assert.Equal(t, 1, got.Level)
		assert.Zero(t, got.Points)
		require.NotNil(t, got.LastActiveOn)
		assert.True(t, day.Equal(*got.LastActiveOn))

		err = s.UpdateProfile(ctx, "ghost", ProfileUpdate{TotalXP: &xp})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("progress", func(t *testing.T) {
		s := newStore(t)
		_, err := s.EnsureProfile(ctx, "u1")
		require.NoError(t, err)

		rec, err := s.FindProgress(ctx, "u1", "lab", "l1")
		require.NoError(t, err)
		assert.Nil(t, rec)

		score := 70
		created, err := s.CreateProgress(ctx, &models.ProgressRecord{
			ExternalUserID: "u1", ActivityType: "lab", ActivityRef: "l1", Score: &score, XPGranted: 100,
		})
		require.NoError(t, err)
		assert.NotEmpty(t, created.ID)
		assert.Equal(t, models.ProgressStatusCompleted, created.Status)

		_, err = s.CreateProgress(ctx, &models.ProgressRecord{ExternalUserID: "u1", ActivityType: "lab", ActivityRef: "l1"})
		assert.ErrorIs(t, err, ErrDuplicateRecord)

		// same ref under a different type is a different activity
		_, err = s.CreateProgress(ctx, &models.ProgressRecord{ExternalUserID: "u1", ActivityType: "quiz", ActivityRef: "l1"})
		require.NoError(t, err)

		require.NoError(t, s.UpdateProgressScore(ctx, created.ID, 95))
		rec, err = s.FindProgress(ctx, "u1", "lab", "l1")
		require.NoError(t, err)
		require.NotNil(t, rec.Score)
		assert.Equal(t, 95, *rec.Score)
		assert.Equal(t, int64(100), rec.XPGranted)

		assert.ErrorIs(t, s.UpdateProgressScore(ctx, "00000000-0000-0000-0000-000000000000", 1), ErrNotFound)

		n, err := s.CountCompleted(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		list, err := s.ListCompleted(ctx, "u1")
		require.NoError(t, err)
		assert.Len(t, list, 2)

		n, err = s.CountCompleted(ctx, "u2")
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("badges", func(t *testing.T) {
		s := newStore(t)

		b, err := s.FindBadge(ctx, "u1", "First Steps")
		require.NoError(t, err)
		assert.Nil(t, b)

		_, err = s.CreateBadge(ctx, &models.Badge{ExternalUserID: "u1", Name: "First Steps", Category: models.BadgeCategoryMilestone})
		require.NoError(t, err)
		_, err = s.CreateBadge(ctx, &models.Badge{ExternalUserID: "u1", Name: "First Steps", Category: models.BadgeCategoryMilestone})
		assert.ErrorIs(t, err, ErrDuplicateRecord)

		// another user may hold the same badge
		_, err = s.CreateBadge(ctx, &models.Badge{ExternalUserID: "u2", Name: "First Steps", Category: models.BadgeCategoryMilestone})
		require.NoError(t, err)

		b, err = s.FindBadge(ctx, "u1", "First Steps")
		require.NoError(t, err)
		require.NotNil(t, b)
		assert.False(t, b.AwardedAt.IsZero())

		list, err := s.ListBadges(ctx, "u1")
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("transaction rollback", func(t *testing.T) {
		s := newStore(t)
		_, err := s.EnsureProfile(ctx, "u1")
		require.NoError(t, err)

		boom := errors.New("boom")
		err = s.InUserTx(ctx, "u1", func(tx Store) error {
			if _, err := tx.CreateProgress(ctx, &models.ProgressRecord{ExternalUserID: "u1", ActivityType: "lab", ActivityRef: "l1"}); err != nil {
				return err
			}
			xp := int64(100)
			if err := tx.UpdateProfile(ctx, "u1", ProfileUpdate{TotalXP: &xp}); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		rec, err := s.FindProgress(ctx, "u1", "lab", "l1")
		require.NoError(t, err)
		assert.Nil(t, rec)
		p, err := s.GetProfile(ctx, "u1")
		require.NoError(t, err)
		assert.Zero(t, p.TotalXP)
	})

	t.Run("transaction commit", func(t *testing.T) {
		s := newStore(t)
		_, err := s.EnsureProfile(ctx, "u1")
		require.NoError(t, err)

		err = s.InUserTx(ctx, "u1", func(tx Store) error {
			_, err := tx.CreateProgress(ctx, &models.ProgressRecord{ExternalUserID: "u1", ActivityType: "lab", ActivityRef: "l1"})
			return err
		})
		require.NoError(t, err)

		rec, err := s.FindProgress(ctx, "u1", "lab", "l1")
		require.NoError(t, err)
		assert.NotNil(t, rec)
	})

	t.Run("list profiles pages by id", func(t *testing.T) {
		s := newStore(t)
		for i := 0; i < 7; i++ {
			_, err := s.EnsureProfile(ctx, fmt.Sprintf("user-%d", i))
			require.NoError(t, err)
		}

		seen := map[string]bool{}
		after := ""
		pages := 0
		for {
			page, err := s.ListProfiles(ctx, after, 3)
			require.NoError(t, err)
			for _, p := range page {
				assert.False(t, seen[p.ExternalUserID])
				seen[p.ExternalUserID] = true
				assert.Greater(t, p.ID, after)
			}
			pages++
			if len(page) < 3 {
				break
			}
			after = page[len(page)-1].ID
		}
		assert.Len(t, seen, 7)
		assert.Equal(t, 3, pages)
	})
}
