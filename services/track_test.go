package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"progress-engine/catalog"
	"progress-engine/models"
	"progress-engine/repos"
)

func TestTrackStatusPercent(t *testing.T) {
	cat := catalog.Default()
	agg := NewTrackAggregator(cat)
	tr, err := cat.Track("system-design-fundamentals")
	require.NoError(t, err)

	st := agg.Status(tr, history(tr.Items[:3]...))
	assert.Equal(t, 75, st.PercentComplete)
	assert.Equal(t, 3, st.CompletedCount)
	assert.Equal(t, 4, st.TotalItems)
	assert.False(t, st.IsFullyComplete)
	assert.Equal(t, ModuleLocked, st.Modules[3].Status)

	st = agg.Status(tr, history(tr.Items...))
	assert.Equal(t, 100, st.PercentComplete)
	assert.True(t, st.IsFullyComplete)
}

func TestTrackStatusRounds(t *testing.T) {
	cat := catalog.Default()
	agg := NewTrackAggregator(cat)
	tr, err := cat.Track("distributed-systems")
	require.NoError(t, err)

	// 1/5 -> 20, 2/3 of a three item track would be 67
	assert.Equal(t, 20, agg.Status(tr, history(tr.Items[0])).PercentComplete)

	three := catalog.Track{Slug: "three", Items: tr.Items[:3]}
	assert.Equal(t, 67, agg.Status(three, history(tr.Items[:2]...)).PercentComplete)
}

func TestTrackStatusMatchesTypeAndRef(t *testing.T) {
	cat := catalog.Default()
	agg := NewTrackAggregator(cat)
	tr, err := cat.Track("interview-prep")
	require.NoError(t, err)

	// same ref, wrong type
	wrong := history(models.ActivityKey{Type: catalog.TypeQuiz, Ref: "ip-framework"})
	st := agg.Status(tr, wrong)
	assert.Zero(t, st.CompletedCount)
	assert.Zero(t, st.PercentComplete)
}

func TestTrackStatusFromStore(t *testing.T) {
	ctx := context.Background()
	cat := catalog.Default()
	agg := NewTrackAggregator(cat)
	store := repos.NewMemoryStore()

	_, err := store.EnsureProfile(ctx, "u1")
	require.NoError(t, err)
	_, err = store.CreateProgress(ctx, &models.ProgressRecord{
		ExternalUserID: "u1", ActivityType: catalog.TypeTrackModule, ActivityRef: "ds-replication",
	})
	require.NoError(t, err)

	st, err := agg.TrackStatus(ctx, store, "u1", "distributed-systems")
	require.NoError(t, err)
	assert.Equal(t, 1, st.CompletedCount)
	assert.Equal(t, ModuleCompleted, st.Modules[1].Status)

	_, err = agg.TrackStatus(ctx, store, "u1", "underwater-basket-weaving")
	assert.ErrorIs(t, err, ErrTrackNotFound)
	assert.ErrorIs(t, err, ErrNotFound)

	all, err := agg.AllTracks(ctx, store, "u1")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
