package tracker

import (
	"math/rand/v2"
	"time"
)

// Random is the source of the jitter in waits, *rand.Rand satisfies it.
type Random interface {
	IntN(n int) int
	Float64() float64
}

// globalRandom uses the goroutine safe top level functions of math/rand/v2.
type globalRandom struct{}

func (globalRandom) IntN(n int) int {
	return rand.IntN(n)
}

func (globalRandom) Float64() float64 {
	return rand.Float64()
}

// uniformSeconds draws a whole number of seconds in [min, max].
func uniformSeconds(rng Random, min, max time.Duration) time.Duration {
	lo := int(min / time.Second)
	hi := int(max / time.Second)
	if hi <= lo {
		return time.Duration(lo) * time.Second
	}
	return time.Duration(lo+rng.IntN(hi-lo+1)) * time.Second
}
