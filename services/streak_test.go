package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(n int) time.Time {
	return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestUpdateStreak(t *testing.T) {
	last := day(0)

	tests := []struct {
		name       string
		prev       int
		lastActive *time.Time
		today      time.Time
		want       int
		bonus      bool
	}{
		{"first activity", 0, nil, day(0), 1, false},
		{"same day", 3, &last, day(0).Add(22 * time.Hour), 3, false},
		{"next day", 3, &last, day(1), 4, false},
		{"next day reaches a week", 6, &last, day(1).Add(5 * time.Hour), 7, true},
		{"second week", 13, &last, day(1), 14, true},
		{"gap resets", 6, &last, day(3), 1, false},
		{"clock behind stored day", 5, &last, day(-2), 5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, bonus := UpdateStreak(tt.prev, tt.lastActive, tt.today)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.bonus, bonus)
		})
	}
}

func TestDayOfUsesUTC(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*3600)
	// 02:00 local on the 2nd is still the 1st in UTC
	local := time.Date(2026, 3, 2, 2, 0, 0, 0, loc)
	assert.Equal(t, day(0), DayOf(local))
}

func TestActiveDayNeverRewinds(t *testing.T) {
	last := day(4)

	assert.Equal(t, day(0), ActiveDay(nil, day(0).Add(13*time.Hour)))
	assert.Equal(t, day(5), ActiveDay(&last, day(5).Add(time.Hour)))
	assert.Equal(t, day(4), ActiveDay(&last, day(4).Add(23*time.Hour)))
	assert.Equal(t, day(4), ActiveDay(&last, day(2)))
}
