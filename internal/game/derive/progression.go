package derive

import "github.com/rwpulley/charkeep/internal/game/sheet"

// LevelInfo is the XP-derived progression state.
type LevelInfo struct {
	CurrentLevel int     `json:"currentLevel"`
	NextLevelXP  int     `json:"nextLevelXp"`
	Progress     float64 `json:"progress"`
	CanLevelUp   bool    `json:"canLevelUp"`
}

// ResolveProgression derives the current level and progress percentage from
// the XP table and current XP.
//
// The current level is the largest i+1 with currentXp >= xpTable[i],
// scanning from the end; level 1 when the table is empty or nothing
// matches. At the table cap the next-level threshold is the last entry.
// Progress is the percentage into the current level band, clamped to
// [0, 100]; a non-positive band width counts as 100.
func ResolveProgression(c sheet.Character) LevelInfo {
	table := c.XPTable
	if len(table) == 0 {
		return LevelInfo{CurrentLevel: 1, Progress: 100, CanLevelUp: false}
	}

	level := 1
	for i := len(table) - 1; i >= 0; i-- {
		if c.CurrentXP >= table[i] {
			level = i + 1
			break
		}
	}

	next := table[len(table)-1]
	if level < len(table) {
		next = table[level]
	}

	floor := table[level-1]
	progress := 100.0
	if band := next - floor; band > 0 {
		progress = 100 * float64(c.CurrentXP-floor) / float64(band)
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}

	return LevelInfo{
		CurrentLevel: level,
		NextLevelXP:  next,
		Progress:     progress,
		CanLevelUp:   c.CurrentXP >= next,
	}
}
