package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"mhrs-tracker/lib/timezone"
	"mhrs-tracker/services/tracker"
)

// Console prints events for the person at the terminal.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Notify(ctx context.Context, event tracker.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, "[%s] %s\n\n", event.At.In(timezone.Location).Format(time.TimeOnly), Text(event))
	return err
}

type multi []tracker.Notifier

// Multi delivers every event to all notifiers, one failing does not keep
// the others from being called.
func Multi(notifiers ...tracker.Notifier) tracker.Notifier {
	out := make(multi, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func (m multi) Notify(ctx context.Context, event tracker.Event) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.Notify(ctx, event))
	}
	return errors.Join(errs...)
}

// Only passes on the events of the given kinds.
func Only(n tracker.Notifier, kinds ...tracker.EventKind) tracker.Notifier {
	return tracker.NotifierFunc(func(ctx context.Context, event tracker.Event) error {
		if !slices.Contains(kinds, event.Kind) {
			return nil
		}
		return n.Notify(ctx, event)
	})
}

// Important are the events worth an e-mail.
var Important = []tracker.EventKind{
	tracker.EventSlotFound,
	tracker.EventBooked,
	tracker.EventBookingFailed,
	tracker.EventTokenInvalid,
	tracker.EventSessionExhausted,
}

// Log writes events to the default logger.
type Log struct{}

func (Log) Notify(ctx context.Context, event tracker.Event) error {
	args := []any{
		"subscriber", event.Tracker.Subscriber,
		"tracker", event.Tracker.Code,
		"clinic", event.Tracker.Filter.String(),
	}
	if event.Slot != nil {
		args = append(args, "slot", event.Slot.Start.In(timezone.Location).Format(timeLayout))
	}
	if event.Duration > 0 {
		args = append(args, "duration", event.Duration)
	}
	if event.Err != nil {
		args = append(args, "err", event.Err)
	}
	slog.InfoContext(ctx, event.Kind.String(), args...)
	return nil
}
