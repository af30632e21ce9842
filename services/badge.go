package services

import (
	"progress-engine/catalog"
	"progress-engine/models"
)

// TrackFact tells the engine whether the just-touched track is now fully complete.
type TrackFact struct {
	Slug     string
	Complete bool
	Badge    catalog.BadgeDef
}

// EvalContext is an immutable snapshot of a user's state right after a completion.
type EvalContext struct {
	ActivityType string
	ActivityRef  string
	Score        *int

	// History holds every completed record, the current one included.
	History        []models.ProgressRecord
	TotalCompleted int64
	HeldBadges     map[string]bool

	Streak      int
	StreakBonus bool

	Track *TrackFact
}

func (c EvalContext) completedOfType(activityType string) int {
	n := 0
	for _, r := range c.History {
		if r.ActivityType == activityType {
			n++
		}
	}
	return n
}

// Rule yields at most one candidate badge for a context.
type Rule struct {
	Name string
	Eval func(EvalContext) (catalog.BadgeDef, bool)
}

// BadgeEngine holds the rule registry and computes which badges become newly earned.
type BadgeEngine struct {
	rules []Rule
}

// NewBadgeEngine builds the rule set from the catalog.
func NewBadgeEngine(cat *catalog.Catalog) *BadgeEngine {
	return &BadgeEngine{rules: buildRules(cat)}
}

// Rules returns a shallow copy of the registry in evaluation order.
func (e *BadgeEngine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Evaluate runs every rule and returns the candidates the user does not hold yet,
// in rule order. It never fails; an unknown activity type satisfies no typed rule.
func (e *BadgeEngine) Evaluate(c EvalContext) []catalog.BadgeDef {
	var out []catalog.BadgeDef
	seen := make(map[string]bool)
	for _, r := range e.rules {
		b, ok := r.Eval(c)
		if !ok || c.HeldBadges[b.Name] || seen[b.Name] {
			continue
		}
		seen[b.Name] = true
		out = append(out, b)
	}
	return out
}

func buildRules(cat *catalog.Catalog) []Rule {
	perfect := cat.PerfectScoreBadge()
	quizMaster, quizMasterScore := cat.QuizMasterBadge()

	rules := []Rule{
		// ── Score ──────────────────────────────────────────────────────────
		{
			Name: "perfect_score",
			Eval: func(c EvalContext) (catalog.BadgeDef, bool) {
				return perfect, c.Score != nil && *c.Score == 100
			},
		},
		{
			Name: "quiz_master",
			Eval: func(c EvalContext) (catalog.BadgeDef, bool) {
				return quizMaster, c.ActivityType == catalog.TypeQuiz && c.Score != nil && *c.Score >= quizMasterScore
			},
		},
	}

	for _, s := range cat.Specialties() {
		s := s
		rules = append(rules, Rule{
			Name: "specialty:" + s.Badge.Name,
			Eval: func(c EvalContext) (catalog.BadgeDef, bool) {
				return s.Badge, c.ActivityType == s.Type && c.ActivityRef == s.Ref &&
					c.Score != nil && *c.Score >= s.MinScore
			},
		})
	}

	// ── First of kind ──────────────────────────────────────────────────────
	rules = append(rules, Rule{
		Name: "first_of_kind",
		Eval: func(c EvalContext) (catalog.BadgeDef, bool) {
			b, ok := cat.ExplorerBadge(c.ActivityType)
			return b, ok && c.completedOfType(c.ActivityType) == 1
		},
	})

	// ── Milestones (exact count on the post-increment total) ───────────────
	for _, m := range cat.ActivityMilestones() {
		m := m
		rules = append(rules, Rule{
			Name: "milestone:" + m.Badge.Name,
			Eval: func(c EvalContext) (catalog.BadgeDef, bool) {
				return m.Badge, c.TotalCompleted == m.Count
			},
		})
	}

	// ── Consistency ────────────────────────────────────────────────────────
	for _, m := range cat.StreakMilestones() {
		m := m
		rules = append(rules, Rule{
			Name: "streak:" + m.Badge.Name,
			Eval: func(c EvalContext) (catalog.BadgeDef, bool) {
				return m.Badge, c.StreakBonus && int64(c.Streak) == m.Count
			},
		})
	}

	// ── Tracks ─────────────────────────────────────────────────────────────
	rules = append(rules, Rule{
		Name: "track_complete",
		Eval: func(c EvalContext) (catalog.BadgeDef, bool) {
			if c.Track == nil {
				return catalog.BadgeDef{}, false
			}
			return c.Track.Badge, c.Track.Complete
		},
	})
	return rules
}
