package chrono

import (
	"context"
	"time"

	"mhrs-tracker/lib/timezone"
)

// API is the interface that anything depending on the system clock should use.
type API interface {
	// Now returns the current time in Europe/Istanbul.
	Now() time.Time
}

// Sleeper is the interface that anything waiting on the wall clock should use.
type Sleeper interface {
	// Sleep blocks for d or until ctx is done, in which case ctx.Err() is
	// returned.
	Sleep(ctx context.Context, d time.Duration) error
}

// StandardImpl implements API and Sleeper using the standard library.
type StandardImpl struct {
	location *time.Location
}

func NewStandardImpl() StandardImpl {
	return StandardImpl{location: timezone.Location}
}

func (s StandardImpl) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardImpl) Location() *time.Location {
	return s.location
}

func (StandardImpl) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
