package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jwalitptl/notify-engine/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestClassify(t *testing.T) {
	today := date(2024, 7, 4)

	tests := []struct {
		name  string
		start time.Time
		end   time.Time
		want  model.MembershipStatus
	}{
		{"starts tomorrow", date(2024, 7, 5), date(2024, 8, 5), model.MembershipStatusUpcoming},
		{"ended yesterday", date(2024, 6, 1), date(2024, 7, 3), model.MembershipStatusExpired},
		{"ends today", date(2024, 6, 1), date(2024, 7, 4), model.MembershipStatusExpiringSoon},
		{"ends in 3 days", date(2024, 6, 1), date(2024, 7, 7), model.MembershipStatusExpiringSoon},
		{"ends in 4 days", date(2024, 6, 1), date(2024, 7, 8), model.MembershipStatusActive},
		{"mid membership", date(2024, 6, 1), date(2024, 9, 1), model.MembershipStatusActive},
		{"starts and ends today", today, today, model.MembershipStatusExpiringSoon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.start, tt.end, today))
		})
	}
}

func TestClassifyIgnoresTimeOfDay(t *testing.T) {
	start := time.Date(2024, 6, 1, 23, 59, 0, 0, time.UTC)
	end := time.Date(2024, 7, 4, 0, 1, 0, 0, time.UTC)
	today := time.Date(2024, 7, 4, 18, 30, 0, 0, time.UTC)

	assert.Equal(t, model.MembershipStatusExpiringSoon, Classify(start, end, today))
}

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 3, DaysBetween(date(2024, 7, 4), date(2024, 7, 7)))
	assert.Equal(t, -3, DaysBetween(date(2024, 7, 4), date(2024, 7, 1)))
	assert.Equal(t, 0, DaysBetween(date(2024, 7, 4), date(2024, 7, 4)))
	// across a month boundary
	assert.Equal(t, 3, DaysBetween(date(2024, 6, 29), date(2024, 7, 2)))
	// across a year boundary
	assert.Equal(t, 2, DaysBetween(date(2023, 12, 31), date(2024, 1, 2)))
}

func TestNextBirthday(t *testing.T) {
	dob := date(1990, 7, 4)

	assert.Equal(t, date(2024, 7, 4), NextBirthday(dob, date(2024, 7, 4)))
	assert.Equal(t, date(2024, 7, 4), NextBirthday(dob, date(2024, 1, 1)))
	// already passed this year, rolls over
	assert.Equal(t, date(2025, 7, 4), NextBirthday(dob, date(2024, 7, 5)))
	// late December birthday seen from early January
	assert.Equal(t, date(2024, 12, 28), NextBirthday(date(1985, 12, 28), date(2024, 1, 2)))
}

func TestNextBirthdayLeapDay(t *testing.T) {
	dob := date(2000, 2, 29)

	// leap year: exact match
	assert.Equal(t, date(2024, 2, 29), NextBirthday(dob, date(2024, 2, 1)))
	// non-leap year normalizes to Mar 1
	assert.Equal(t, date(2025, 3, 1), NextBirthday(dob, date(2025, 2, 1)))
}

func TestIsBirthday(t *testing.T) {
	assert.True(t, IsBirthday(date(1990, 7, 4), date(2024, 7, 4)))
	assert.False(t, IsBirthday(date(1990, 7, 5), date(2024, 7, 4)))
	assert.False(t, IsBirthday(date(1990, 7, 3), date(2024, 7, 4)))
}

func TestExpiryTrigger(t *testing.T) {
	today := date(2024, 7, 4)

	tests := []struct {
		end     time.Time
		trigger model.TriggerType
		due     bool
	}{
		{date(2024, 7, 7), model.TriggerExpiryBefore, true},
		{date(2024, 7, 4), model.TriggerExpiryOn, true},
		{date(2024, 7, 1), model.TriggerExpiryAfter, true},
		{date(2024, 7, 8), "", false},
		{date(2024, 7, 6), "", false},
		{date(2024, 7, 5), "", false},
		{date(2024, 7, 3), "", false},
		{date(2024, 6, 30), "", false},
	}

	for _, tt := range tests {
		trigger, due := ExpiryTrigger(tt.end, today)
		assert.Equal(t, tt.due, due, "end=%s", tt.end.Format(time.DateOnly))
		assert.Equal(t, tt.trigger, trigger, "end=%s", tt.end.Format(time.DateOnly))
	}
}
