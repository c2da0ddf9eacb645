package task

import (
	"testing"
	"time"
)

var streakToday = time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

func TestStreakThreeDaysEndingToday(t *testing.T) {
	dates := []string{"2026-03-08", "2026-03-09", "2026-03-10"}

	if got := Streak(dates, streakToday); got != 3 {
		t.Errorf("streak = %d, want 3", got)
	}
}

func TestStreakAnchoredAtYesterday(t *testing.T) {
	// Nothing today yet, but yesterday still holds the chain.
	dates := []string{"2026-03-09"}

	if got := Streak(dates, streakToday); got != 1 {
		t.Errorf("streak = %d, want 1", got)
	}
}

func TestStreakBrokenByGap(t *testing.T) {
	// Completions two and three days ago, nothing yesterday or today.
	dates := []string{"2026-03-07", "2026-03-08"}

	if got := Streak(dates, streakToday); got != 0 {
		t.Errorf("streak = %d, want 0", got)
	}
}

func TestStreakStopsAtFirstGap(t *testing.T) {
	dates := []string{"2026-03-05", "2026-03-08", "2026-03-09", "2026-03-10"}

	if got := Streak(dates, streakToday); got != 3 {
		t.Errorf("streak = %d, want 3", got)
	}
}

func TestStreakEmpty(t *testing.T) {
	if got := Streak(nil, streakToday); got != 0 {
		t.Errorf("streak = %d, want 0", got)
	}
}

func TestStreakDuplicateDatesCountOnce(t *testing.T) {
	dates := []string{"2026-03-10", "2026-03-10", "2026-03-09"}

	if got := Streak(dates, streakToday); got != 2 {
		t.Errorf("streak = %d, want 2", got)
	}
}

func TestStreakCrossesMonthBoundary(t *testing.T) {
	today := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	dates := []string{"2026-02-27", "2026-02-28", "2026-03-01"}

	if got := Streak(dates, today); got != 3 {
		t.Errorf("streak = %d, want 3", got)
	}
}
