package tracker

import (
	"context"
	"fmt"
	"time"
)

type EventKind int

const (
	EventSlotFound EventKind = iota
	EventBooked
	EventBookingFailed
	EventLongBreak
	EventTokenInvalid
	EventSessionRefreshing
	EventSessionRefreshed
	EventSessionExhausted
	EventCooldownStarted
	EventCooldownEnded
)

var eventNames = map[EventKind]string{
	EventSlotFound:         "slot_found",
	EventBooked:            "booked",
	EventBookingFailed:     "booking_failed",
	EventLongBreak:         "long_break",
	EventTokenInvalid:      "token_invalid",
	EventSessionRefreshing: "session_refreshing",
	EventSessionRefreshed:  "session_refreshed",
	EventSessionExhausted:  "session_exhausted",
	EventCooldownStarted:   "cooldown_started",
	EventCooldownEnded:     "cooldown_ended",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Terminal reports whether the tracker is gone after the event.
func (k EventKind) Terminal() bool {
	return k == EventSlotFound || k == EventBooked
}

// Event is something the subscriber of a tracker should hear about.
type Event struct {
	Kind    EventKind
	At      time.Time
	Tracker TrackerInfo
	// set for SlotFound, Booked and BookingFailed
	Slot *Slot
	// set for Booked
	Booking *Booking
	// set for LongBreak and CooldownStarted
	Duration time.Duration
	// set for BookingFailed and SessionExhausted
	Err error
}

// Notifier delivers events. A failing Notify is logged, it never stops a
// tracker.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

type NotifierFunc func(ctx context.Context, event Event) error

func (f NotifierFunc) Notify(ctx context.Context, event Event) error {
	return f(ctx, event)
}
