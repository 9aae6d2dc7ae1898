// Package leveling holds the XP arithmetic. It has no storage and no clock.
package leveling

import "errors"

// DefaultXPPerLevel is used when Rules carries no explicit threshold.
const DefaultXPPerLevel = 100

// ErrNegativeXP is returned when an award would remove experience.
var ErrNegativeXP = errors.New("xp award must not be negative")

// Progress is a student's experience state.
type Progress struct {
	Level     int `json:"level"`
	TotalXP   int `json:"total_xp"`
	CurrentXP int `json:"current_xp"`
}

// Rules configures how experience converts into levels.
type Rules struct {
	XPPerLevel int
}

func (r Rules) threshold() int {
	if r.XPPerLevel <= 0 {
		return DefaultXPPerLevel
	}
	return r.XPPerLevel
}

// Normalize repairs a progress value read from storage so that level starts at 1.
func (r Rules) Normalize(p Progress) Progress {
	if p.Level < 1 {
		p.Level = 1
	}
	if p.TotalXP < 0 {
		p.TotalXP = 0
	}
	if p.CurrentXP < 0 {
		p.CurrentXP = 0
	}
	return p
}

// Award adds xp to the progress and carries whole levels out of currentXP.
// It returns the new progress and how many levels were gained.
func (r Rules) Award(p Progress, xp int) (Progress, int, error) {
	if xp < 0 {
		return p, 0, ErrNegativeXP
	}
	step := r.threshold()
	next := r.Normalize(p)
	next.TotalXP += xp
	next.CurrentXP += xp

	gained := 0
	for next.CurrentXP >= step {
		next.CurrentXP -= step
		next.Level++
		gained++
	}
	return next, gained, nil
}

// ToNextLevel reports how much experience is missing for the next level.
func (r Rules) ToNextLevel(p Progress) int {
	remaining := r.threshold() - r.Normalize(p).CurrentXP
	if remaining < 0 {
		return 0
	}
	return remaining
}
