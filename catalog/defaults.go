package catalog

import "progress-engine/models"

// Badge names referenced outside the catalog.
const (
	BadgeFirstSteps       = "First Steps"
	BadgeDedicatedLearner = "Dedicated Learner"
	BadgePerfectScore     = "Perfect Score"
	BadgeQuizMaster       = "Quiz Master"
	BadgeWeekWarrior      = "Week Warrior"
)

// DefaultRewards: base points / XP per activity type (tunable via config later)
var DefaultRewards = map[string]Reward{
	TypeQuiz:        {Points: 10, XP: 50},
	TypeLab:         {Points: 20, XP: 100},
	TypeDeepDive:    {Points: 15, XP: 75},
	TypeCheatsheet:  {Points: 5, XP: 10},
	TypeLibrary:     {Points: 5, XP: 25},
	TypeScenario:    {Points: 25, XP: 120},
	TypeTrackModule: {Points: 10, XP: 40},
}

func trackModules(refs ...string) []models.ActivityKey {
	out := make([]models.ActivityKey, len(refs))
	for i, r := range refs {
		out[i] = models.ActivityKey{Type: TypeTrackModule, Ref: r}
	}
	return out
}

var DefaultTracks = []Track{
	{
		Slug:  "system-design-fundamentals",
		Title: "System Design Fundamentals",
		Items: trackModules(
			"sdf-scalability-basics",
			"sdf-load-balancing",
			"sdf-caching-strategies",
			"sdf-database-design",
		),
		Badge: BadgeDef{
			Name:        "System Design Graduate",
			Description: "Completed the System Design Fundamentals track",
			Icon:        "🎓",
		},
	},
	{
		Slug:  "distributed-systems",
		Title: "Distributed Systems",
		Items: trackModules(
			"ds-consistency-models",
			"ds-replication",
			"ds-partitioning",
			"ds-consensus",
			"ds-fault-tolerance",
		),
		Badge: BadgeDef{
			Name:        "Distributed Systems Scholar",
			Description: "Completed the Distributed Systems track",
			Icon:        "🌐",
		},
	},
	{
		Slug:  "interview-prep",
		Title: "Interview Prep",
		Items: []models.ActivityKey{
			{Type: TypeTrackModule, Ref: "ip-framework"},
			{Type: TypeQuiz, Ref: "interview-readiness"},
			{Type: TypeScenario, Ref: "design-url-shortener"},
			{Type: TypeScenario, Ref: "design-chat-system"},
		},
		Badge: BadgeDef{
			Name:        "Interview Ready",
			Description: "Completed the Interview Prep track",
			Icon:        "💼",
		},
	},
}

var DefaultSpecialties = []Specialty{
	{
		Type: TypeQuiz, Ref: "caching-basics", MinScore: 90,
		Badge: BadgeDef{Name: "Caching Expert", Description: "Scored 90% or more on the caching quiz", Icon: "⚡", Category: models.BadgeCategorySpecial},
	},
	{
		Type: TypeQuiz, Ref: "database-scaling", MinScore: 90,
		Badge: BadgeDef{Name: "Database Guru", Description: "Scored 90% or more on the database scaling quiz", Icon: "🗄️", Category: models.BadgeCategorySpecial},
	},
	{
		Type: TypeQuiz, Ref: "load-balancing", MinScore: 90,
		Badge: BadgeDef{Name: "Traffic Controller", Description: "Scored 90% or more on the load balancing quiz", Icon: "🚦", Category: models.BadgeCategorySpecial},
	},
	{
		Type: TypeScenario, Ref: "design-url-shortener", MinScore: 80,
		Badge: BadgeDef{Name: "Architect in Training", Description: "Scored 80% or more on the URL shortener scenario", Icon: "📐", Category: models.BadgeCategorySpecial},
	},
}

var DefaultActivityMilestones = []Milestone{
	{Count: 1, Badge: BadgeDef{Name: BadgeFirstSteps, Description: "Completed your first activity", Icon: "👣", Category: models.BadgeCategoryMilestone}},
	{Count: 10, Badge: BadgeDef{Name: BadgeDedicatedLearner, Description: "Completed 10 activities", Icon: "📚", Category: models.BadgeCategoryMilestone}},
	{Count: 25, Badge: BadgeDef{Name: "Knowledge Seeker", Description: "Completed 25 activities", Icon: "🔎", Category: models.BadgeCategoryMilestone}},
	{Count: 50, Badge: BadgeDef{Name: "Scholar", Description: "Completed 50 activities", Icon: "🏛️", Category: models.BadgeCategoryMilestone}},
}

// Streak milestones are multiples of the weekly streak bonus.
var DefaultStreakMilestones = []Milestone{
	{Count: 7, Badge: BadgeDef{Name: BadgeWeekWarrior, Description: "Kept a 7 day learning streak", Icon: "🔥", Category: models.BadgeCategoryAchievement}},
	{Count: 28, Badge: BadgeDef{Name: "Streak Legend", Description: "Kept a 28 day learning streak", Icon: "☄️", Category: models.BadgeCategoryAchievement}},
}

func DefaultConfig() Config {
	return Config{
		Rewards:            DefaultRewards,
		Rescorable:         []string{TypeQuiz},
		Tracks:             DefaultTracks,
		Specialties:        DefaultSpecialties,
		ActivityMilestones: DefaultActivityMilestones,
		StreakMilestones:   DefaultStreakMilestones,
		StreakBonusPoints:  25,
		PerfectScore:       BadgeDef{Name: BadgePerfectScore, Description: "Scored 100%", Icon: "💯", Category: models.BadgeCategoryAchievement},
		QuizMaster:         BadgeDef{Name: BadgeQuizMaster, Description: "Scored 90% or more on a quiz", Icon: "🧠", Category: models.BadgeCategoryAchievement},
		QuizMasterScore:    90,
	}
}

// Default returns the built-in catalog.
func Default() *Catalog {
	return MustNew(DefaultConfig())
}
