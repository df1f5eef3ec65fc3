package reports

import (
	"time"

	"salesservice/internal/domain"
)

// DefaultLookback is how far back the worker reaches when a command has no start date.
const DefaultLookback = 30 * 24 * time.Hour

// CurrentMonthRange spans the calendar month containing now, from the first
// day at 00:00:00 to the last day at 23:59:59, in now's location.
func CurrentMonthRange(now time.Time) (time.Time, time.Time) {
	y, m, _ := now.Date()
	loc := now.Location()
	start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
	end := time.Date(y, m+1, 0, 23, 59, 59, 0, loc)
	return start, end
}

// ResolveRange fills missing bounds of a command: the start defaults to
// DefaultLookback before now and the end defaults to now.
func ResolveRange(cmd domain.ReportCommand, now time.Time) (time.Time, time.Time) {
	start := now.Add(-DefaultLookback)
	if cmd.StartDate != nil {
		start = *cmd.StartDate
	}
	end := now
	if cmd.EndDate != nil {
		end = *cmd.EndDate
	}
	return start, end
}
