package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mhrs-tracker/lib/htmlutil"
	"mhrs-tracker/lib/mhrs"
	"mhrs-tracker/lib/timezone"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const unknownName = "Unknown"

// QueryOutcome is the result of a poll that did not hit a 401. Slots is
// empty when nothing matched, Diagnostic then says why.
type QueryOutcome struct {
	Slots      []Slot
	Diagnostic string
	// classification of a failed poll, nil when the server answered
	Err error
}

type QueryClient struct {
	api API
	loc *time.Location
}

func NewQueryClient(api API) QueryClient {
	return QueryClient{api: api, loc: timezone.Location}
}

// SearchWindow slides the declared window so it starts at midnight of
// now's day and keeps its length in whole days.
func SearchWindow(now time.Time, declared Window) (from, until time.Time) {
	from = timezone.StartOfDay(now)
	return from, from.AddDate(0, 0, declared.Days())
}

// Query polls once. The only error returned wraps ErrTokenExpired, every
// other failure is reported as an empty outcome.
func (q QueryClient) Query(ctx context.Context, token string, filter Filter, window Window, now time.Time) (QueryOutcome, error) {
	ctx, span := tracer.Start(ctx, "QueryClient:Query")
	defer span.End()

	now = now.In(q.loc)
	from, until := SearchWindow(now, window)
	span.SetAttributes(
		attribute.String("from", from.Format(time.DateOnly)),
		attribute.String("until", until.Format(time.DateOnly)),
		attribute.Int64("clinic_id", filter.ClinicId),
	)

	req := mhrs.NewSearchRequest(filter.searchFilter(), from, until)
	res, err := q.api.SearchSlots(ctx, token, req)
	pollCounter.Add(ctx, 1)
	if errors.Is(err, mhrs.ErrUnauthorized) {
		span.SetStatus(codes.Error, "token expired")
		return QueryOutcome{}, fmt.Errorf("%w: %w", ErrTokenExpired, err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "slot query failed")
		return failedOutcome(err), nil
	}

	if len(res.Institutions) == 0 {
		if w, ok := firstWarning(res.Warnings); ok {
			return QueryOutcome{Diagnostic: warningDiagnostic(w)}, nil
		}
		return QueryOutcome{Diagnostic: fmt.Sprintf("no result for %s", filter.label(filter.ClinicName, filter.ClinicId))}, nil
	}

	slots := FlattenSlots(ctx, res, now, q.loc)
	span.SetAttributes(attribute.Int("slots", len(slots)))
	if len(slots) == 0 {
		return QueryOutcome{Diagnostic: "no available slot in the future"}, nil
	}
	return QueryOutcome{Slots: slots}, nil
}

func failedOutcome(err error) QueryOutcome {
	var statusErr *mhrs.StatusError
	switch {
	case errors.As(err, &statusErr):
		outcome := QueryOutcome{Err: fmt.Errorf("%w: %w", ErrTransientHTTP, err)}
		if w, ok := statusErr.FirstWarning(); ok {
			outcome.Diagnostic = fmt.Sprintf("HTTP %d | %s", statusErr.StatusCode, warningDiagnostic(w))
		} else {
			outcome.Diagnostic = fmt.Sprintf("slot query failed: HTTP %d", statusErr.StatusCode)
		}
		return outcome
	case errors.Is(err, mhrs.ErrMalformedResponse):
		return QueryOutcome{
			Err:        fmt.Errorf("%w: %w", ErrMalformedResponse, err),
			Diagnostic: "slot query returned an unreadable response",
		}
	default:
		return QueryOutcome{
			Err:        fmt.Errorf("%w: %w", ErrTransientHTTP, err),
			Diagnostic: fmt.Sprintf("slot query failed: %s", err),
		}
	}
}

func firstWarning(warnings []mhrs.Warning) (mhrs.Warning, bool) {
	if len(warnings) == 0 {
		return mhrs.Warning{}, false
	}
	return warnings[0], true
}

func warningDiagnostic(w mhrs.Warning) string {
	code := w.Code
	if code == "" {
		code = "UNKNOWN"
	}
	return fmt.Sprintf("MHRS warning | code: %s | message: %s", code, htmlutil.StripMarkup(w.Message))
}

// FlattenSlots walks institution, physician, exam location and hour nodes
// in server order and returns the available slots starting strictly after
// now.
func FlattenSlots(ctx context.Context, res mhrs.SearchResult, now time.Time, loc *time.Location) []Slot {
	var out []Slot
	for _, inst := range res.Institutions {
		clinicName := inst.Clinic.DisplayName()
		if clinicName == "" {
			clinicName = unknownName
		}
		for _, physician := range inst.Physicians {
			physicianName := physician.PhysicianName()
			if physicianName == "" {
				physicianName = unknownName
			}
			for _, location := range physician.ExamLocations {
				for _, hour := range location.Hours {
					for _, entry := range hour.Slots {
						if !entry.Available {
							continue
						}
						start, err := mhrs.ParseTimestamp(entry.Start, loc)
						if err != nil {
							slog.DebugContext(ctx, "skipping slot with unreadable start", "slot", entry.Id, "err", err)
							continue
						}
						if !start.After(now) {
							continue
						}
						end, err := mhrs.ParseTimestamp(entry.End, loc)
						if err != nil {
							end = start
						}

						out = append(out, Slot{
							Id:               entry.Id,
							ScheduleId:       entry.Detail.ScheduleId,
							ExamLocationId:   examLocationId(entry, location.ExamLocation),
							Start:            start,
							End:              end,
							RawStart:         entry.Start,
							RawEnd:           entry.End,
							InstitutionName:  inst.Institution.Name,
							ClinicName:       clinicName,
							PhysicianName:    physicianName,
							ExamLocationName: location.ExamLocation.Name,
						})
					}
				}
			}
		}
	}
	return out
}

func examLocationId(entry mhrs.SlotEntry, location mhrs.ExamLocation) int64 {
	if entry.Detail.ExamLocationId != nil {
		return *entry.Detail.ExamLocationId
	}
	if location.Id != 0 {
		return location.Id
	}
	return mhrs.AnyId
}

// SelectFirst picks the first slot in server order.
func SelectFirst(slots []Slot) (Slot, bool) {
	if len(slots) == 0 {
		return Slot{}, false
	}
	return slots[0], true
}
