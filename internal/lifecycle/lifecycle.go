// Package lifecycle holds the pure date arithmetic behind the reminder
// engine: membership state classification, day diffs and birthday
// projection. Nothing here touches a clock or performs I/O; "today" is
// always an argument.
package lifecycle

import (
	"time"

	"github.com/jwalitptl/notify-engine/internal/model"
)

// ExpiringSoonDays is the window, in days before the end date, during which
// a membership counts as expiring_soon.
const ExpiringSoonDays = 3

// DateOf truncates t to a calendar date at UTC midnight. All comparisons in
// this package operate on values normalized through DateOf.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole number of calendar days from a to b
// (positive when b is after a).
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)) / (24 * time.Hour))
}

// Classify derives the lifecycle state of a membership from its inclusive
// start/end dates and the given day. Rules are evaluated in order: a
// membership is upcoming before it starts, expired after it ends,
// expiring_soon within the last ExpiringSoonDays days, otherwise active.
func Classify(start, end, today time.Time) model.MembershipStatus {
	start, end, today = DateOf(start), DateOf(end), DateOf(today)
	switch {
	case start.After(today):
		return model.MembershipStatusUpcoming
	case end.Before(today):
		return model.MembershipStatusExpired
	case DaysBetween(today, end) <= ExpiringSoonDays:
		return model.MembershipStatusExpiringSoon
	default:
		return model.MembershipStatusActive
	}
}

// NextBirthday projects the month/day of dob onto the current year, or the
// next one if the occurrence has already passed today. Feb 29 birthdays
// normalize to Mar 1 in non-leap years.
func NextBirthday(dob, today time.Time) time.Time {
	today = DateOf(today)
	occurrence := time.Date(today.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, time.UTC)
	if occurrence.Before(today) {
		occurrence = time.Date(today.Year()+1, dob.Month(), dob.Day(), 0, 0, 0, 0, time.UTC)
	}
	return occurrence
}

// IsBirthday reports whether today matches the client's birthday,
// ignoring the year.
func IsBirthday(dob, today time.Time) bool {
	return DaysBetween(DateOf(today), NextBirthday(dob, today)) == 0
}

// ExpiryTrigger maps the day offset between today and a membership end date
// to its expiry trigger type. Only the exact offsets +3, 0 and -3 owe a
// reminder; anything else returns false.
func ExpiryTrigger(end, today time.Time) (model.TriggerType, bool) {
	switch DaysBetween(today, end) {
	case model.ExpiryBeforeOffset:
		return model.TriggerExpiryBefore, true
	case model.ExpiryOnOffset:
		return model.TriggerExpiryOn, true
	case model.ExpiryAfterOffset:
		return model.TriggerExpiryAfter, true
	}
	return "", false
}
