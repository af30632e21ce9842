package services

import "time"

// StreakBonusInterval: every multiple of this many consecutive days earns a bonus.
const StreakBonusInterval = 7

// DayOf truncates t to midnight UTC, the only granularity streaks are compared at.
func DayOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// UpdateStreak computes the streak after activity on today, given the previous
// streak and last credited day (nil when the user was never active).
//
//	same day      -> unchanged, no bonus
//	next day      -> +1, bonus on every multiple of StreakBonusInterval
//	larger gap    -> reset to 1, no bonus
//
// The caller persists ActiveDay(lastActive, today) as the new last-active day.
func UpdateStreak(prev int, lastActive *time.Time, today time.Time) (streak int, bonus bool) {
	if lastActive == nil {
		return 1, false
	}
	days := int(DayOf(today).Sub(DayOf(*lastActive)).Hours() / 24)
	switch {
	case days <= 0:
		// Today was already credited, or the clock is behind the stored day.
		return prev, false
	case days == 1:
		streak = prev + 1
		return streak, streak%StreakBonusInterval == 0
	default:
		return 1, false
	}
}

// ActiveDay is the last-active day to store after activity on today: the later of
// today and lastActive, so a clock behind the stored day never rewinds it.
func ActiveDay(lastActive *time.Time, today time.Time) time.Time {
	today = DayOf(today)
	if lastActive != nil && DayOf(*lastActive).After(today) {
		return DayOf(*lastActive)
	}
	return today
}
