package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"

	"progress-engine/catalog"
	"progress-engine/models"
	"progress-engine/repos"
	"progress-engine/utils"
)

// CompletionInput is one completion event as reported by a route handler.
type CompletionInput struct {
	UserID       string
	ActivityType string
	ActivityRef  string
	Score        *int // optional, 0-100
}

// CompletionResult is what a single RecordCompletion call changed.
type CompletionResult struct {
	PointsGranted    int64          `json:"points_granted"`
	XPGranted        int64          `json:"xp_granted"`
	AlreadyCompleted bool           `json:"already_completed"`
	ScoreUpdated     bool           `json:"score_updated"`
	NewBadges        []models.Badge `json:"new_badges"`
	StreakBonus      bool           `json:"streak_bonus"`

	// State after the call.
	TotalXP   int64        `json:"total_xp"`
	Level     int          `json:"level"`
	LeveledUp bool         `json:"leveled_up"`
	Streak    int          `json:"streak"`
	Points    int64        `json:"points"`
	Track     *TrackStatus `json:"track,omitempty"`
}

// errLostRace aborts the unit of work when another writer created the record first.
var errLostRace = errors.New("progress already recorded concurrently")

// ProgressionService records activity completions and answers progress queries.
type ProgressionService struct {
	store   repos.TxStore
	catalog *catalog.Catalog
	engine  *BadgeEngine
	tracks  *TrackAggregator
	locker  utils.Locker
	log     *utils.Logger

	// Now is the clock used for streak days. Defaults to time.Now.
	Now func() time.Time
	// Timeout bounds one completion, lock wait included.
	Timeout time.Duration
}

func NewProgressionService(store repos.TxStore, cat *catalog.Catalog, locker utils.Locker, baseLog *utils.Logger) *ProgressionService {
	if locker == nil {
		locker = utils.NewMemoryLocker()
	}
	return &ProgressionService{
		store:   store,
		catalog: cat,
		engine:  NewBadgeEngine(cat),
		tracks:  NewTrackAggregator(cat),
		locker:  locker,
		log:     baseLog.With("service", "ProgressionService"),
		Now:     time.Now,
		Timeout: 5 * time.Second,
	}
}

func (s *ProgressionService) Catalog() *catalog.Catalog { return s.catalog }

// typeLabel keeps metric label cardinality bounded to catalog types.
func (s *ProgressionService) typeLabel(activityType string) string {
	if s.catalog.IsKnownType(activityType) {
		return activityType
	}
	return "unknown"
}

func (s *ProgressionService) validate(in *CompletionInput) error {
	in.UserID = strings.TrimSpace(in.UserID)
	in.ActivityType = strings.TrimSpace(in.ActivityType)
	in.ActivityRef = strings.TrimSpace(in.ActivityRef)

	if in.UserID == "" {
		return ErrUnauthenticated
	}
	if in.ActivityType == "" {
		return &ValidationError{Field: "activity_type", Reason: "required"}
	}
	if !s.catalog.IsKnownType(in.ActivityType) {
		return &ValidationError{Field: "activity_type", Reason: fmt.Sprintf("unknown type %q", in.ActivityType)}
	}
	if in.ActivityRef == "" {
		return &ValidationError{Field: "activity_ref", Reason: "required"}
	}
	if len(in.ActivityRef) > 255 {
		return &ValidationError{Field: "activity_ref", Reason: "longer than 255 characters"}
	}
	if in.Score != nil && (*in.Score < 0 || *in.Score > 100) {
		return &ValidationError{Field: "score", Reason: "must be between 0 and 100"}
	}
	return nil
}

// RecordCompletion applies one completion event exactly once. Repeating a call is safe:
// the second call reports AlreadyCompleted and grants nothing. All writes for a new
// completion commit together or not at all.
func (s *ProgressionService) RecordCompletion(ctx context.Context, in CompletionInput) (*CompletionResult, error) {
	start := time.Now()
	defer func() { completionDuration.Observe(time.Since(start).Seconds()) }()

	if err := s.validate(&in); err != nil {
		completionsTotal.WithLabelValues(s.typeLabel(in.ActivityType), outcomeInvalid).Inc()
		return nil, err
	}

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	unlock, err := s.locker.Lock(ctx, in.UserID)
	if err != nil {
		completionsTotal.WithLabelValues(s.typeLabel(in.ActivityType), outcomeFailed).Inc()
		return nil, &TransactionError{Err: fmt.Errorf("acquire user lock: %w", err)}
	}
	defer unlock()

	var res *CompletionResult
	err = s.store.InUserTx(ctx, in.UserID, func(tx repos.Store) error {
		var err error
		res, err = s.apply(ctx, tx, in)
		return err
	})

	switch {
	case errors.Is(err, errLostRace):
		s.log.Warn("completion lost uniqueness race, treating as already completed",
			"user_id", in.UserID, "activity_type", in.ActivityType, "activity_ref", in.ActivityRef)
		completionsTotal.WithLabelValues(s.typeLabel(in.ActivityType), outcomeNoop).Inc()
		return s.noopResult(ctx, in.UserID)
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrValidation):
		completionsTotal.WithLabelValues(s.typeLabel(in.ActivityType), outcomeInvalid).Inc()
		return nil, err
	case err != nil:
		s.log.Error("completion rolled back",
			"user_id", in.UserID, "activity_type", in.ActivityType, "activity_ref", in.ActivityRef, "error", err)
		completionsTotal.WithLabelValues(s.typeLabel(in.ActivityType), outcomeFailed).Inc()
		return nil, &TransactionError{Err: err}
	}

	switch {
	case res.ScoreUpdated:
		completionsTotal.WithLabelValues(s.typeLabel(in.ActivityType), outcomeRescored).Inc()
	case res.AlreadyCompleted:
		completionsTotal.WithLabelValues(s.typeLabel(in.ActivityType), outcomeNoop).Inc()
	default:
		completionsTotal.WithLabelValues(s.typeLabel(in.ActivityType), outcomeRecorded).Inc()
		for _, b := range res.NewBadges {
			badgesAwardedTotal.WithLabelValues(b.Name).Inc()
		}
		s.log.Info("activity completed",
			"user_id", in.UserID,
			"activity_type", in.ActivityType,
			"activity_ref", in.ActivityRef,
			"xp", res.XPGranted,
			"points", res.PointsGranted,
			"level", res.Level,
			"streak", res.Streak,
			"badges", badgeNames(res.NewBadges),
		)
	}
	return res, nil
}

// apply is the body of the per-user unit of work.
func (s *ProgressionService) apply(ctx context.Context, tx repos.Store, in CompletionInput) (*CompletionResult, error) {
	prof, err := tx.GetProfile(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	res := &CompletionResult{
		NewBadges: []models.Badge{},
		TotalXP:   prof.TotalXP,
		Level:     prof.Level,
		Streak:    prof.Streak,
		Points:    prof.Points,
	}

	// 1. Idempotency: an existing record grants nothing; only a score revision may apply.
	existing, err := tx.FindProgress(ctx, in.UserID, in.ActivityType, in.ActivityRef)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		res.AlreadyCompleted = true
		if in.Score != nil && s.catalog.Rescorable(in.ActivityType) &&
			(existing.Score == nil || *existing.Score != *in.Score) {
			if err := tx.UpdateProgressScore(ctx, existing.ID, *in.Score); err != nil {
				return nil, err
			}
			res.ScoreUpdated = true
		}
		return res, nil
	}

	// 2. Record and reward.
	reward, ok := s.catalog.RewardFor(in.ActivityType)
	if !ok {
		return nil, &ValidationError{Field: "activity_type", Reason: fmt.Sprintf("no reward for type %q", in.ActivityType)}
	}
	rec := &models.ProgressRecord{
		ExternalUserID: in.UserID,
		ActivityType:   in.ActivityType,
		ActivityRef:    in.ActivityRef,
		Status:         models.ProgressStatusCompleted,
		Score:          in.Score,
		PointsGranted:  reward.Points,
		XPGranted:      reward.XP,
	}
	if _, err := tx.CreateProgress(ctx, rec); err != nil {
		if errors.Is(err, repos.ErrDuplicateRecord) {
			return nil, errLostRace
		}
		return nil, err
	}

	now := s.Now()
	today := DayOf(now)
	newXP := prof.TotalXP + reward.XP
	lvl := LevelFor(newXP)

	// 3. Streak.
	streak, bonus := UpdateStreak(prof.Streak, prof.LastActiveOn, today)
	activeDay := ActiveDay(prof.LastActiveOn, today)
	points := reward.Points
	if bonus {
		points += s.catalog.StreakBonusPoints()
	}
	newPoints := prof.Points + points

	update := repos.ProfileUpdate{
		TotalXP:      &newXP,
		Points:       &newPoints,
		Streak:       &streak,
		LastActiveOn: &activeDay,
	}
	if lvl.Level != prof.Level {
		update.Level = &lvl.Level
		if lvl.Level > prof.Level {
			update.LastLevelUpAt = &now
			res.LeveledUp = true
		}
	}
	if err := tx.UpdateProfile(ctx, in.UserID, update); err != nil {
		return nil, err
	}

	res.PointsGranted = points
	res.XPGranted = reward.XP
	res.StreakBonus = bonus
	res.TotalXP = newXP
	res.Level = lvl.Level
	res.Streak = streak
	res.Points = newPoints

	history, err := tx.ListCompleted(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	total, err := tx.CountCompleted(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	// 4. Track aggregation for the owning track, if any.
	var fact *TrackFact
	if trackSlug, ok := s.catalog.TrackFor(in.ActivityType, in.ActivityRef); ok {
		track, err := s.catalog.Track(trackSlug)
		if err != nil {
			return nil, err
		}
		st := s.tracks.Status(track, history)
		res.Track = &st
		fact = &TrackFact{Slug: track.Slug, Complete: st.IsFullyComplete, Badge: track.Badge}
	}

	// 5. Badges.
	held, err := tx.ListBadges(ctx, in.UserID)
	if err != nil {
		return nil, err
	}
	heldNames := make(map[string]bool, len(held))
	for _, b := range held {
		heldNames[b.Name] = true
	}

	earned := s.engine.Evaluate(EvalContext{
		ActivityType:   in.ActivityType,
		ActivityRef:    in.ActivityRef,
		Score:          in.Score,
		History:        history,
		TotalCompleted: total,
		HeldBadges:     heldNames,
		Streak:         streak,
		StreakBonus:    bonus,
		Track:          fact,
	})
	for _, def := range earned {
		badge := &models.Badge{
			ExternalUserID: in.UserID,
			Name:           def.Name,
			Description:    def.Description,
			Icon:           def.Icon,
			Category:       def.Category,
			Metadata:       badgeMetadata(in, fact),
		}
		if _, err := tx.CreateBadge(ctx, badge); err != nil {
			if errors.Is(err, repos.ErrDuplicateRecord) {
				continue
			}
			return nil, err
		}
		res.NewBadges = append(res.NewBadges, *badge)
	}
	return res, nil
}

// noopResult reports current state for a call that changed nothing.
func (s *ProgressionService) noopResult(ctx context.Context, userID string) (*CompletionResult, error) {
	prof, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &CompletionResult{
		AlreadyCompleted: true,
		NewBadges:        []models.Badge{},
		TotalXP:          prof.TotalXP,
		Level:            prof.Level,
		Streak:           prof.Streak,
		Points:           prof.Points,
	}, nil
}

// TrackStatus is the read-only track query exposed to route handlers.
func (s *ProgressionService) TrackStatus(ctx context.Context, userID, trackSlug string) (TrackStatus, error) {
	return s.tracks.TrackStatus(ctx, s.store, userID, trackSlug)
}

// AllTrackStatuses reports on every catalog track for userID.
func (s *ProgressionService) AllTrackStatuses(ctx context.Context, userID string) ([]TrackStatus, error) {
	return s.tracks.AllTracks(ctx, s.store, userID)
}

func badgeMetadata(in CompletionInput, fact *TrackFact) datatypes.JSON {
	meta := map[string]interface{}{
		"activity_type": in.ActivityType,
		"activity_ref":  in.ActivityRef,
	}
	if in.Score != nil {
		meta["score"] = *in.Score
	}
	if fact != nil {
		meta["track"] = fact.Slug
	}
	raw, _ := json.Marshal(meta)
	return datatypes.JSON(raw)
}

func badgeNames(badges []models.Badge) []string {
	out := make([]string, len(badges))
	for i, b := range badges {
		out[i] = b.Name
	}
	return out
}
