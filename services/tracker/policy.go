package tracker

import "time"

// Policy holds the pacing of the polling loop, the zero value of a field
// means its default.
type Policy struct {
	ShortWaitMin time.Duration
	ShortWaitMax time.Duration

	// a long break becomes possible once this many polls missed in a row
	LongBreakAfter       int
	LongBreakProbability float64
	LongBreakMin         time.Duration
	LongBreakMax         time.Duration

	RefreshAttempts  int
	RefreshJitterMin time.Duration
	RefreshJitterMax time.Duration
	Cooldown         time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		ShortWaitMin:         55 * time.Second,
		ShortWaitMax:         95 * time.Second,
		LongBreakAfter:       10,
		LongBreakProbability: 0.80,
		LongBreakMin:         300 * time.Second,
		LongBreakMax:         600 * time.Second,
		RefreshAttempts:      5,
		RefreshJitterMin:     30 * time.Second,
		RefreshJitterMax:     90 * time.Second,
		Cooldown:             3600 * time.Second,
	}
}

// WithDefaults fills zero fields from DefaultPolicy.
func (p Policy) WithDefaults() Policy {
	d := DefaultPolicy()
	if p.ShortWaitMin <= 0 {
		p.ShortWaitMin = d.ShortWaitMin
	}
	if p.ShortWaitMax <= 0 {
		p.ShortWaitMax = d.ShortWaitMax
	}
	if p.LongBreakAfter <= 0 {
		p.LongBreakAfter = d.LongBreakAfter
	}
	if p.LongBreakProbability <= 0 {
		p.LongBreakProbability = d.LongBreakProbability
	}
	if p.LongBreakMin <= 0 {
		p.LongBreakMin = d.LongBreakMin
	}
	if p.LongBreakMax <= 0 {
		p.LongBreakMax = d.LongBreakMax
	}
	if p.RefreshAttempts <= 0 {
		p.RefreshAttempts = d.RefreshAttempts
	}
	if p.RefreshJitterMin <= 0 {
		p.RefreshJitterMin = d.RefreshJitterMin
	}
	if p.RefreshJitterMax <= 0 {
		p.RefreshJitterMax = d.RefreshJitterMax
	}
	if p.Cooldown <= 0 {
		p.Cooldown = d.Cooldown
	}
	return p
}

func (p Policy) shortWait(rng Random) time.Duration {
	return uniformSeconds(rng, p.ShortWaitMin, p.ShortWaitMax)
}

// NextWait returns how long to wait after a poll that found nothing, given
// the number of misses since the last long break (this one included).
// long reports whether the wait is a long break.
func (p Policy) NextWait(sinceLongBreak int, rng Random) (wait time.Duration, long bool) {
	if sinceLongBreak >= p.LongBreakAfter && rng.Float64() <= p.LongBreakProbability {
		return uniformSeconds(rng, p.LongBreakMin, p.LongBreakMax), true
	}
	return p.shortWait(rng), false
}
