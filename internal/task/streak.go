package task

import (
	"time"

	"starchart/internal/model"
)

// Streak counts consecutive calendar days with at least one completed log,
// walking backward from today. A streak survives overnight: if nothing is
// completed yet today, yesterday still anchors it. Two missing days break
// the chain.
func Streak(dates []string, today time.Time) int {
	if len(dates) == 0 {
		return 0
	}

	set := make(map[string]bool, len(dates))
	for _, d := range dates {
		set[d] = true
	}

	day := today
	if !set[day.Format(model.DateLayout)] {
		day = day.AddDate(0, 0, -1)
		if !set[day.Format(model.DateLayout)] {
			return 0
		}
	}

	streak := 0
	for set[day.Format(model.DateLayout)] {
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}
