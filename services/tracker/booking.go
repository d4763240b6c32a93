package tracker

import (
	"context"
	"fmt"
	"strings"

	"mhrs-tracker/lib/htmlutil"
	"mhrs-tracker/lib/mhrs"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type BookingExecutor struct {
	api API
}

func NewBookingExecutor(api API) BookingExecutor {
	return BookingExecutor{api: api}
}

// Book reserves slot once. Any outcome other than a confirmation wraps
// ErrBookingRejected.
func (b BookingExecutor) Book(ctx context.Context, token string, slot Slot) (Booking, error) {
	ctx, span := tracer.Start(ctx, "BookingExecutor:Book")
	defer span.End()
	span.SetAttributes(attribute.Int64("slot_id", slot.Id))

	res, err := b.api.Reserve(ctx, token, mhrs.ReserveRequest{
		SlotId:         slot.Id,
		ScheduleId:     slot.ScheduleId,
		ExamLocationId: slot.ExamLocationId,
		Newborn:        false,
		Note:           "",
		Start:          slot.RawStart,
		End:            slot.RawEnd,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "reservation request failed")
		return Booking{}, fmt.Errorf("%w: %w", ErrBookingRejected, err)
	}
	if res.Rejected() {
		span.SetStatus(codes.Error, "reservation rejected")
		if w, ok := firstWarning(res.Warnings); ok {
			return Booking{}, fmt.Errorf("%w: %s: %s", ErrBookingRejected, w.Code, htmlutil.StripMarkup(w.Message))
		}
		return Booking{}, ErrBookingRejected
	}

	bookingCounter.Add(ctx, 1)
	return confirmation(slot, res.Data), nil
}

// confirmation prefers the names in the reservation response over the
// ones resolved from the search tree.
func confirmation(slot Slot, data mhrs.ReserveConfirmation) Booking {
	return Booking{
		Slot:             slot,
		PhysicianName:    firstNonEmpty(data.Physician.DisplayName(), slot.PhysicianName),
		ClinicName:       firstNonEmpty(data.Clinic.DisplayName(), slot.ClinicName),
		ExamLocationName: firstNonEmpty(data.ExamLocation.Name, slot.ExamLocationName),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
