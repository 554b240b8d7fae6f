package provider

import (
	"sort"
	"time"

	"github.com/devtrack/devtrack-server/internal/model"
)

const day = 24 * time.Hour

// streaks computes the current and longest runs of consecutive UTC calendar
// days with at least one event.
//
// The current streak starts at the most recent active date and walks back
// until the first gap. The longest streak is the maximum run over every
// event passed in, not only the recent window.
func streaks(events []model.ActivityEvent) (current, longest int) {
	days := activeDays(events)
	if len(days) == 0 {
		return 0, 0
	}

	current = 1
	run := 1
	longest = 1
	counting := true

	for i := 1; i < len(days); i++ {
		if days[i-1].Sub(days[i]) == day {
			run++
			if counting {
				current = run
			}
		} else {
			run = 1
			counting = false
		}
		if run > longest {
			longest = run
		}
	}

	return current, longest
}

// activeDays returns the distinct UTC dates of events, newest first.
func activeDays(events []model.ActivityEvent) []time.Time {
	seen := make(map[time.Time]struct{}, len(events))
	for _, e := range events {
		seen[truncateDay(e.Time)] = struct{}{}
	}

	days := make([]time.Time, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })
	return days
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
