package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"progress-engine/models"
)

// Activity types accepted by the completion flow.
const (
	TypeQuiz        = "quiz"
	TypeLab         = "lab"
	TypeDeepDive    = "deep-dive"
	TypeCheatsheet  = "cheatsheet"
	TypeLibrary     = "library"
	TypeScenario    = "scenario"
	TypeTrackModule = "track-module"
)

var ErrTrackNotFound = errors.New("track not found")

// Reward is what a first completion of an activity type grants.
type Reward struct {
	Points int64 `json:"points"`
	XP     int64 `json:"xp"`
}

// BadgeDef is the static description of a badge; the awarded row copies it.
type BadgeDef struct {
	Name        string               `json:"name"`
	Description string               `json:"description"`
	Icon        string               `json:"icon"`
	Category    models.BadgeCategory `json:"category"`
}

// Track is an ordered curriculum. Completing every item awards Badge.
type Track struct {
	Slug  string               `json:"slug"`
	Title string               `json:"title"`
	Items []models.ActivityKey `json:"items"`
	Badge BadgeDef             `json:"badge"`
}

// Specialty awards Badge when the (Type, Ref) activity is completed with at least MinScore.
type Specialty struct {
	Type     string
	Ref      string
	MinScore int
	Badge    BadgeDef
}

// Milestone awards Badge when a counter lands exactly on Count.
type Milestone struct {
	Count int64
	Badge BadgeDef
}

// Config is the raw catalog content; New validates it.
type Config struct {
	Rewards            map[string]Reward
	Rescorable         []string
	Tracks             []Track
	Specialties        []Specialty
	ActivityMilestones []Milestone
	StreakMilestones   []Milestone
	StreakBonusPoints  int64
	PerfectScore       BadgeDef
	QuizMaster         BadgeDef
	QuizMasterScore    int
}

// Catalog is the single source of activity rewards and track membership.
// It is immutable after New and safe for concurrent use.
type Catalog struct {
	cfg        Config
	rescorable map[string]bool
	tracks     map[string]*Track
	trackOrder []string
	owner      map[models.ActivityKey]string
	explorers  map[string]BadgeDef
}

func New(cfg Config) (*Catalog, error) {
	cfg.Tracks = append([]Track(nil), cfg.Tracks...)
	c := &Catalog{
		cfg:        cfg,
		rescorable: make(map[string]bool),
		tracks:     make(map[string]*Track),
		owner:      make(map[models.ActivityKey]string),
		explorers:  make(map[string]BadgeDef),
	}
	if len(cfg.Rewards) == 0 {
		return nil, fmt.Errorf("catalog: no activity types configured")
	}
	if cfg.StreakBonusPoints < 0 {
		return nil, fmt.Errorf("catalog: negative streak bonus")
	}
	if cfg.QuizMasterScore < 1 || cfg.QuizMasterScore > 100 {
		return nil, fmt.Errorf("catalog: quiz master score %d out of range", cfg.QuizMasterScore)
	}

	names := make(map[string]bool)
	claim := func(b BadgeDef) error {
		if strings.TrimSpace(b.Name) == "" {
			return fmt.Errorf("catalog: badge with empty name")
		}
		if names[b.Name] {
			return fmt.Errorf("catalog: duplicate badge name %q", b.Name)
		}
		names[b.Name] = true
		return nil
	}

	title := cases.Title(language.English)
	for _, t := range c.Types() {
		r := cfg.Rewards[t]
		if r.Points < 0 || r.XP < 0 {
			return nil, fmt.Errorf("catalog: negative reward for %q", t)
		}
		def := BadgeDef{
			Name:        title.String(strings.ReplaceAll(t, "-", " ")) + " Explorer",
			Description: fmt.Sprintf("Completed your first %s", strings.ReplaceAll(t, "-", " ")),
			Icon:        "🧭",
			Category:    models.BadgeCategoryAchievement,
		}
		if err := claim(def); err != nil {
			return nil, err
		}
		c.explorers[t] = def
	}

	for _, t := range cfg.Rescorable {
		if _, ok := cfg.Rewards[t]; !ok {
			return nil, fmt.Errorf("catalog: rescorable type %q is unknown", t)
		}
		c.rescorable[t] = true
	}

	for i := range cfg.Tracks {
		t := &cfg.Tracks[i]
		if !slug.IsSlug(t.Slug) {
			return nil, fmt.Errorf("catalog: invalid track slug %q", t.Slug)
		}
		if _, dup := c.tracks[t.Slug]; dup {
			return nil, fmt.Errorf("catalog: duplicate track %q", t.Slug)
		}
		if len(t.Items) == 0 {
			return nil, fmt.Errorf("catalog: track %q has no items", t.Slug)
		}
		for _, item := range t.Items {
			if _, ok := cfg.Rewards[item.Type]; !ok {
				return nil, fmt.Errorf("catalog: track %q item %s/%s has unknown type", t.Slug, item.Type, item.Ref)
			}
			if other, taken := c.owner[item]; taken {
				return nil, fmt.Errorf("catalog: item %s/%s belongs to both %q and %q", item.Type, item.Ref, other, t.Slug)
			}
			c.owner[item] = t.Slug
		}
		t.Badge.Category = models.BadgeCategoryTrack
		if err := claim(t.Badge); err != nil {
			return nil, err
		}
		c.tracks[t.Slug] = t
		c.trackOrder = append(c.trackOrder, t.Slug)
	}

	for _, s := range cfg.Specialties {
		if _, ok := cfg.Rewards[s.Type]; !ok {
			return nil, fmt.Errorf("catalog: specialty %q has unknown type %q", s.Badge.Name, s.Type)
		}
		if err := claim(s.Badge); err != nil {
			return nil, err
		}
	}
	for _, m := range append(append([]Milestone{}, cfg.ActivityMilestones...), cfg.StreakMilestones...) {
		if m.Count < 1 {
			return nil, fmt.Errorf("catalog: milestone %q needs a positive count", m.Badge.Name)
		}
		if err := claim(m.Badge); err != nil {
			return nil, err
		}
	}
	for _, b := range []BadgeDef{cfg.PerfectScore, cfg.QuizMaster} {
		if err := claim(b); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustNew is New for static content known to be valid.
func MustNew(cfg Config) *Catalog {
	c, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

// Types returns the known activity types in lexical order.
func (c *Catalog) Types() []string {
	out := make([]string, 0, len(c.cfg.Rewards))
	for t := range c.cfg.Rewards {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (c *Catalog) IsKnownType(activityType string) bool {
	_, ok := c.cfg.Rewards[activityType]
	return ok
}

// RewardFor returns the base points and XP for a first completion of activityType.
func (c *Catalog) RewardFor(activityType string) (Reward, bool) {
	r, ok := c.cfg.Rewards[activityType]
	return r, ok
}

// Rescorable reports whether an already completed activity of this type accepts score revisions.
func (c *Catalog) Rescorable(activityType string) bool {
	return c.rescorable[activityType]
}

// TrackFor returns the slug of the track owning (activityType, ref), if any.
func (c *Catalog) TrackFor(activityType, ref string) (string, bool) {
	s, ok := c.owner[models.ActivityKey{Type: activityType, Ref: ref}]
	return s, ok
}

// Track looks a track up by slug. Free-form input such as "System Design Fundamentals"
// is normalized before the lookup.
func (c *Catalog) Track(trackSlug string) (Track, error) {
	t, ok := c.tracks[trackSlug]
	if !ok {
		t, ok = c.tracks[slug.Make(trackSlug)]
	}
	if !ok {
		return Track{}, fmt.Errorf("%w: %q", ErrTrackNotFound, trackSlug)
	}
	out := *t
	out.Items = append([]models.ActivityKey(nil), t.Items...)
	return out, nil
}

// ItemsFor returns the ordered items of a track.
func (c *Catalog) ItemsFor(trackSlug string) ([]models.ActivityKey, error) {
	t, err := c.Track(trackSlug)
	if err != nil {
		return nil, err
	}
	return t.Items, nil
}

// Tracks returns every track in declaration order.
func (c *Catalog) Tracks() []Track {
	out := make([]Track, 0, len(c.trackOrder))
	for _, s := range c.trackOrder {
		t, _ := c.Track(s)
		out = append(out, t)
	}
	return out
}

func (c *Catalog) ExplorerBadge(activityType string) (BadgeDef, bool) {
	b, ok := c.explorers[activityType]
	return b, ok
}

func (c *Catalog) Specialties() []Specialty        { return c.cfg.Specialties }
func (c *Catalog) ActivityMilestones() []Milestone { return c.cfg.ActivityMilestones }
func (c *Catalog) StreakMilestones() []Milestone   { return c.cfg.StreakMilestones }
func (c *Catalog) StreakBonusPoints() int64        { return c.cfg.StreakBonusPoints }
func (c *Catalog) PerfectScoreBadge() BadgeDef     { return c.cfg.PerfectScore }

// QuizMasterBadge returns the badge and the minimum quiz score that earns it.
func (c *Catalog) QuizMasterBadge() (BadgeDef, int) {
	return c.cfg.QuizMaster, c.cfg.QuizMasterScore
}
