package timeline

import "time"

// Zoom levels. Each level picks a bucket granularity and a trailing window.
const (
	LevelQuarter = 0
	LevelMonth   = 1
	LevelDay     = 2

	maxLevel = LevelDay
)

// Trailing window lengths in days for the month and day levels.
const (
	monthWindowDays = 365
	dayWindowDays   = 90
)

// Zoom is the current zoom level, bounded to [LevelQuarter, LevelDay].
type Zoom struct {
	level int
}

// In moves one level closer, reporting whether the level changed.
func (z *Zoom) In() bool {
	if z.level >= maxLevel {
		return false
	}
	z.level++
	return true
}

// Out moves one level further, reporting whether the level changed.
func (z *Zoom) Out() bool {
	if z.level <= LevelQuarter {
		return false
	}
	z.level--
	return true
}

// Reset returns to the quarter level.
func (z *Zoom) Reset() bool {
	changed := z.level != LevelQuarter
	z.level = LevelQuarter
	return changed
}

func (z *Zoom) Level() int { return z.level }

// Granularity returns the bucket width for the current level.
func (z *Zoom) Granularity() Granularity {
	return LevelGranularity(z.level)
}

// LevelGranularity maps a zoom level to a bucket width.
func LevelGranularity(level int) Granularity {
	switch {
	case level <= LevelQuarter:
		return Quarter
	case level == LevelMonth:
		return Month
	default:
		return Day
	}
}

// DateWindow is the visible horizontal extent of the chart.
type DateWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether w lies within other.
func (w DateWindow) Contains(other DateWindow) bool {
	return !other.Start.Before(w.Start) && !other.End.After(w.End)
}

// Window returns the visible window for the current level.
func (z *Zoom) Window(fullStart, fullEnd time.Time) DateWindow {
	return LevelWindow(z.level, fullStart, fullEnd)
}

// LevelWindow derives the visible window from the full date range. The
// quarter level shows everything; deeper levels show a trailing window
// anchored at fullEnd and never starting before fullStart. The window only
// limits what is shown; buckets always span the full range.
func LevelWindow(level int, fullStart, fullEnd time.Time) DateWindow {
	var days int
	switch {
	case level <= LevelQuarter:
		return DateWindow{Start: fullStart, End: fullEnd}
	case level == LevelMonth:
		days = monthWindowDays
	default:
		days = dayWindowDays
	}
	start := fullEnd.AddDate(0, 0, -days)
	if start.Before(fullStart) {
		start = fullStart
	}
	return DateWindow{Start: start, End: fullEnd}
}
