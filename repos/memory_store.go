package repos

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"progress-engine/models"
)

type memState struct {
	profiles map[string]models.UserProfile
	progress map[string][]models.ProgressRecord // by user, insertion order
	badges   map[string][]models.Badge          // by user, award order
}

func newMemState() *memState {
	return &memState{
		profiles: make(map[string]models.UserProfile),
		progress: make(map[string][]models.ProgressRecord),
		badges:   make(map[string][]models.Badge),
	}
}

// cloneUser copies the rows owned by userID.
func (s *memState) cloneUser(userID string) *memState {
	out := newMemState()
	if p, ok := s.profiles[userID]; ok {
		out.profiles[userID] = p
	}
	if rows, ok := s.progress[userID]; ok {
		out.progress[userID] = append([]models.ProgressRecord(nil), rows...)
	}
	if rows, ok := s.badges[userID]; ok {
		out.badges[userID] = append([]models.Badge(nil), rows...)
	}
	return out
}

// commitUser replaces the rows owned by userID with those in from.
func (s *memState) commitUser(userID string, from *memState) {
	if p, ok := from.profiles[userID]; ok {
		s.profiles[userID] = p
	}
	if rows, ok := from.progress[userID]; ok {
		s.progress[userID] = rows
	}
	if rows, ok := from.badges[userID]; ok {
		s.badges[userID] = rows
	}
}

// MemoryStore is an in-process TxStore. A transaction holds a per-user lock and
// works on a copy of that user's rows, which replaces the live rows only when fn
// succeeds and ctx is still live. Transactions for different users run in parallel;
// a transaction only sees and writes the rows of its own user.
type MemoryStore struct {
	mu    sync.Mutex
	state *memState
	users map[string]*sync.Mutex
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState(), users: make(map[string]*sync.Mutex), now: time.Now}
}

func (m *MemoryStore) userLock(userID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.users[userID]
	if !ok {
		l = &sync.Mutex{}
		m.users[userID] = l
	}
	return l
}

func (m *MemoryStore) InUserTx(ctx context.Context, userID string, fn func(tx Store) error) error {
	l := m.userLock(userID)
	l.Lock()
	defer l.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	work := &memTx{s: m.state.cloneUser(userID), now: m.now}
	m.mu.Unlock()

	if err := fn(work); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.state.commitUser(userID, work.s)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) live() *memTx { return &memTx{s: m.state, now: m.now} }

func (m *MemoryStore) FindProgress(ctx context.Context, userID, activityType, ref string) (*models.ProgressRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live().FindProgress(ctx, userID, activityType, ref)
}

func (m *MemoryStore) CreateProgress(ctx context.Context, rec *models.ProgressRecord) (*models.ProgressRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live().CreateProgress(ctx, rec)
}

func (m *MemoryStore) UpdateProgressScore(ctx context.Context, id string, score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live().UpdateProgressScore(ctx, id, score)
}

func (m *MemoryStore) ListCompleted(ctx context.Context, userID string) ([]models.ProgressRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live().ListCompleted(ctx, userID)
}

func (m *MemoryStore) CountCompleted(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live().CountCompleted(ctx, userID)
}

func (m *MemoryStore) FindBadge(ctx context.Context, userID, name string) (*models.Badge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live().FindBadge(ctx, userID, name)
}

func (m *MemoryStore) ListBadges(ctx context.Context, userID string) ([]models.Badge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live().ListBadges(ctx, userID)
}

func (m *MemoryStore) CreateBadge(ctx context.Context, b *models.Badge) (*models.Badge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live().CreateBadge(ctx, b)
}

func (m *MemoryStore) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live().GetProfile(ctx, userID)
}

func (m *MemoryStore) EnsureProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live().EnsureProfile(ctx, userID)
}

func (m *MemoryStore) UpdateProfile(ctx context.Context, userID string, fields ProfileUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live().UpdateProfile(ctx, userID, fields)
}

func (m *MemoryStore) ListProfiles(ctx context.Context, afterID string, limit int) ([]models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.live().ListProfiles(ctx, afterID, limit)
}

// memTx is the unlocked Store over one memState.
type memTx struct {
	s   *memState
	now func() time.Time
}

func (t *memTx) FindProgress(_ context.Context, userID, activityType, ref string) (*models.ProgressRecord, error) {
	for _, r := range t.s.progress[userID] {
		if r.ActivityType == activityType && r.ActivityRef == ref {
			out := r
			return &out, nil
		}
	}
	return nil, nil
}

func (t *memTx) CreateProgress(ctx context.Context, rec *models.ProgressRecord) (*models.ProgressRecord, error) {
	if existing, _ := t.FindProgress(ctx, rec.ExternalUserID, rec.ActivityType, rec.ActivityRef); existing != nil {
		return nil, fmt.Errorf("progress %s/%s for %s: %w", rec.ActivityType, rec.ActivityRef, rec.ExternalUserID, ErrDuplicateRecord)
	}
	_ = rec.BeforeCreate(nil)
	now := t.now()
	rec.CreatedAt, rec.UpdatedAt = now, now
	t.s.progress[rec.ExternalUserID] = append(t.s.progress[rec.ExternalUserID], *rec)
	return rec, nil
}

func (t *memTx) UpdateProgressScore(_ context.Context, id string, score int) error {
	for user, rows := range t.s.progress {
		for i := range rows {
			if rows[i].ID == id {
				s := score
				rows[i].Score = &s
				rows[i].UpdatedAt = t.now()
				t.s.progress[user] = rows
				return nil
			}
		}
	}
	return fmt.Errorf("progress %s: %w", id, ErrNotFound)
}

func (t *memTx) ListCompleted(_ context.Context, userID string) ([]models.ProgressRecord, error) {
	var out []models.ProgressRecord
	for _, r := range t.s.progress[userID] {
		if r.Status == models.ProgressStatusCompleted {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *memTx) CountCompleted(ctx context.Context, userID string) (int64, error) {
	rows, _ := t.ListCompleted(ctx, userID)
	return int64(len(rows)), nil
}

func (t *memTx) FindBadge(_ context.Context, userID, name string) (*models.Badge, error) {
	for _, b := range t.s.badges[userID] {
		if b.Name == name {
			out := b
			return &out, nil
		}
	}
	return nil, nil
}

func (t *memTx) ListBadges(_ context.Context, userID string) ([]models.Badge, error) {
	return append([]models.Badge(nil), t.s.badges[userID]...), nil
}

func (t *memTx) CreateBadge(ctx context.Context, b *models.Badge) (*models.Badge, error) {
	if existing, _ := t.FindBadge(ctx, b.ExternalUserID, b.Name); existing != nil {
		return nil, fmt.Errorf("badge %q for %s: %w", b.Name, b.ExternalUserID, ErrDuplicateRecord)
	}
	_ = b.BeforeCreate(nil)
	b.AwardedAt = t.now()
	t.s.badges[b.ExternalUserID] = append(t.s.badges[b.ExternalUserID], *b)
	return b, nil
}

func (t *memTx) GetProfile(_ context.Context, userID string) (*models.UserProfile, error) {
	p, ok := t.s.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("profile %s: %w", userID, ErrNotFound)
	}
	return &p, nil
}

func (t *memTx) EnsureProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	if _, ok := t.s.profiles[userID]; !ok {
		p := models.UserProfile{ExternalUserID: userID}
		_ = p.BeforeCreate(nil)
		now := t.now()
		p.CreatedAt, p.UpdatedAt = now, now
		t.s.profiles[userID] = p
	}
	return t.GetProfile(ctx, userID)
}

func (t *memTx) UpdateProfile(_ context.Context, userID string, fields ProfileUpdate) error {
	p, ok := t.s.profiles[userID]
	if !ok {
		return fmt.Errorf("profile %s: %w", userID, ErrNotFound)
	}
	if fields.empty() {
		return nil
	}
	if fields.TotalXP != nil {
		p.TotalXP = *fields.TotalXP
	}
	if fields.Level != nil {
		p.Level = *fields.Level
	}
	if fields.Points != nil {
		p.Points = *fields.Points
	}
	if fields.Streak != nil {
		p.Streak = *fields.Streak
	}
	if fields.LastActiveOn != nil {
		d := *fields.LastActiveOn
		p.LastActiveOn = &d
	}
	if fields.LastLevelUpAt != nil {
		d := *fields.LastLevelUpAt
		p.LastLevelUpAt = &d
	}
	p.UpdatedAt = t.now()
	t.s.profiles[userID] = p
	return nil
}

func (t *memTx) ListProfiles(_ context.Context, afterID string, limit int) ([]models.UserProfile, error) {
	if limit < 1 || limit > 1000 {
		limit = 500
	}
	all := make([]models.UserProfile, 0, len(t.s.profiles))
	for _, p := range t.s.profiles {
		if p.ID > afterID {
			all = append(all, p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}
