package service

// GradingPolicy holds the mastery threshold and the default XP reward of new assignments.
type GradingPolicy struct {
	PassingScore    float64
	DefaultXPReward int
}

// DefaultGradingPolicy returns the classroom defaults.
func DefaultGradingPolicy() GradingPolicy {
	return GradingPolicy{PassingScore: 60, DefaultXPReward: 10}
}

func (p GradingPolicy) normalized() GradingPolicy {
	defaults := DefaultGradingPolicy()
	if p.PassingScore <= 0 || p.PassingScore > 100 {
		p.PassingScore = defaults.PassingScore
	}
	if p.DefaultXPReward <= 0 {
		p.DefaultXPReward = defaults.DefaultXPReward
	}
	return p
}

// Passes reports whether score reaches the mastery threshold.
func (p GradingPolicy) Passes(score float64) bool {
	return score >= p.PassingScore
}
