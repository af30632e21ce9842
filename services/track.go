package services

import (
	"context"
	"errors"
	"math"

	"progress-engine/catalog"
	"progress-engine/models"
	"progress-engine/repos"
)

// ModuleStatus tags one track item for display.
type ModuleStatus string

const (
	ModuleCompleted ModuleStatus = "completed"
	ModuleLocked    ModuleStatus = "locked"
)

type TrackModule struct {
	ActivityType string       `json:"activity_type"`
	ActivityRef  string       `json:"activity_ref"`
	Status       ModuleStatus `json:"status"`
}

type TrackStatus struct {
	Slug            string        `json:"slug"`
	Title           string        `json:"title"`
	PercentComplete int           `json:"percent_complete"`
	CompletedCount  int           `json:"completed_count"`
	TotalItems      int           `json:"total_items"`
	IsFullyComplete bool          `json:"is_fully_complete"`
	Modules         []TrackModule `json:"modules"`
	Badge           string        `json:"badge"`
}

// TrackAggregator matches a track's static items against completed progress.
type TrackAggregator struct {
	catalog *catalog.Catalog
}

func NewTrackAggregator(cat *catalog.Catalog) *TrackAggregator {
	return &TrackAggregator{catalog: cat}
}

// Status is the pure comparison of track items against completed records,
// matching strictly on (activity type, activity ref).
func (a *TrackAggregator) Status(track catalog.Track, completed []models.ProgressRecord) TrackStatus {
	done := make(map[models.ActivityKey]bool, len(completed))
	for _, r := range completed {
		if r.Status == models.ProgressStatusCompleted {
			done[r.Key()] = true
		}
	}

	st := TrackStatus{
		Slug:       track.Slug,
		Title:      track.Title,
		TotalItems: len(track.Items),
		Modules:    make([]TrackModule, 0, len(track.Items)),
		Badge:      track.Badge.Name,
	}
	for _, item := range track.Items {
		m := TrackModule{ActivityType: item.Type, ActivityRef: item.Ref, Status: ModuleLocked}
		if done[item] {
			m.Status = ModuleCompleted
			st.CompletedCount++
		}
		st.Modules = append(st.Modules, m)
	}
	if st.TotalItems > 0 {
		st.PercentComplete = int(math.Round(100 * float64(st.CompletedCount) / float64(st.TotalItems)))
	}
	st.IsFullyComplete = st.TotalItems > 0 && st.CompletedCount == st.TotalItems
	return st
}

// TrackStatus loads the user's completed progress and reports on trackSlug.
// Unknown slugs fail with ErrTrackNotFound.
func (a *TrackAggregator) TrackStatus(ctx context.Context, store repos.Store, userID, trackSlug string) (TrackStatus, error) {
	track, err := a.catalog.Track(trackSlug)
	if err != nil {
		if errors.Is(err, catalog.ErrTrackNotFound) {
			return TrackStatus{}, trackNotFound(trackSlug)
		}
		return TrackStatus{}, err
	}
	completed, err := store.ListCompleted(ctx, userID)
	if err != nil {
		return TrackStatus{}, err
	}
	return a.Status(track, completed), nil
}

// AllTracks reports on every catalog track with one progress read.
func (a *TrackAggregator) AllTracks(ctx context.Context, store repos.Store, userID string) ([]TrackStatus, error) {
	completed, err := store.ListCompleted(ctx, userID)
	if err != nil {
		return nil, err
	}
	tracks := a.catalog.Tracks()
	out := make([]TrackStatus, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, a.Status(t, completed))
	}
	return out, nil
}
