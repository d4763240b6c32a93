package notify

import (
	"fmt"
	"strings"
	"time"

	"mhrs-tracker/lib/timezone"
	"mhrs-tracker/services/tracker"
)

const timeLayout = "02.01.2006 15:04"

// Text renders an event as the message a subscriber reads.
func Text(event tracker.Event) string {
	info := event.Tracker
	var b strings.Builder

	switch event.Kind {
	case tracker.EventSlotFound:
		fmt.Fprintf(&b, "Slot found [%s]\n", info.Code)
		writeSlot(&b, event.Slot)
		b.WriteString("It is not booked, reserve it on MHRS.")
	case tracker.EventBooked:
		fmt.Fprintf(&b, "Appointment booked [%s]\n", info.Code)
		if event.Booking != nil {
			slot := event.Booking.Slot
			slot.ClinicName = event.Booking.ClinicName
			slot.PhysicianName = event.Booking.PhysicianName
			slot.ExamLocationName = event.Booking.ExamLocationName
			writeSlot(&b, &slot)
		}
	case tracker.EventBookingFailed:
		fmt.Fprintf(&b, "Booking failed [%s], still watching\n", info.Code)
		writeSlot(&b, event.Slot)
		writeErr(&b, event.Err)
	case tracker.EventLongBreak:
		fmt.Fprintf(&b, "No slot for %d tries [%s], pausing for %s", info.Attempts, info.Code, minutes(event.Duration))
	case tracker.EventTokenInvalid:
		fmt.Fprintf(&b, "Token rejected [%s]\nSend a new one with /token %s <token>", info.Code, info.Code)
	case tracker.EventSessionRefreshing:
		fmt.Fprintf(&b, "Session expired [%s], logging in again", info.Code)
	case tracker.EventSessionRefreshed:
		fmt.Fprintf(&b, "Logged in again [%s], watching continues", info.Code)
	case tracker.EventSessionExhausted:
		fmt.Fprintf(&b, "Could not log in [%s]\n", info.Code)
		writeErr(&b, event.Err)
	case tracker.EventCooldownStarted:
		fmt.Fprintf(&b, "Pausing for %s before trying again [%s]", minutes(event.Duration), info.Code)
	case tracker.EventCooldownEnded:
		fmt.Fprintf(&b, "Pause over [%s], watching %s", info.Code, info.Filter)
	default:
		fmt.Fprintf(&b, "%s [%s]", event.Kind, info.Code)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Subject is a one line summary used as an e-mail subject.
func Subject(event tracker.Event) string {
	line, _, _ := strings.Cut(Text(event), "\n")
	return "MHRS: " + line
}

func writeSlot(b *strings.Builder, slot *tracker.Slot) {
	if slot == nil {
		return
	}
	fmt.Fprintf(b, "Time: %s\n", slot.Start.In(timezone.Location).Format(timeLayout))
	fmt.Fprintf(b, "Clinic: %s\n", slot.ClinicName)
	fmt.Fprintf(b, "Physician: %s\n", slot.PhysicianName)
	if slot.InstitutionName != "" {
		fmt.Fprintf(b, "Hospital: %s\n", slot.InstitutionName)
	}
	if slot.ExamLocationName != "" {
		fmt.Fprintf(b, "Room: %s\n", slot.ExamLocationName)
	}
}

func writeErr(b *strings.Builder, err error) {
	if err != nil {
		fmt.Fprintf(b, "Reason: %s\n", err)
	}
}

func minutes(d time.Duration) string {
	return fmt.Sprintf("%d min", int(d.Round(time.Minute)/time.Minute))
}
