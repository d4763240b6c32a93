package chatbot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mhrs-tracker/lib/mhrs"
	"mhrs-tracker/lib/timezone"
	"mhrs-tracker/services/lookup"
	"mhrs-tracker/services/tracker"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Lookup lists the choices /watch arguments are resolved against.
type Lookup interface {
	Districts(ctx context.Context, token string, regionId int64) ([]mhrs.Option, error)
	Clinics(ctx context.Context, token string, regionId, districtId int64) ([]mhrs.Option, error)
	Institutions(ctx context.Context, token string, regionId, districtId, clinicId int64) ([]mhrs.Option, error)
	Physicians(ctx context.Context, token string, institutionId, clinicId int64) ([]mhrs.Option, error)
}

var _ Lookup = lookup.Service{}

// Session provides the MHRS login chat trackers start with.
type Session interface {
	Token(ctx context.Context) (string, error)
	// nil when trackers cannot log in again by themselves
	Credentials() *tracker.Credentials
}

const watchUsage = "Usage: /watch <region>, <district>, <clinic>[, institution][, physician][, notify|book][, start][, end]"

// replyError is sent to the chat as is.
type replyError string

func (e replyError) Error() string {
	return string(e)
}

type watchRequest struct {
	region      string
	district    string
	clinic      string
	institution string
	physician   string
	mode        tracker.Mode
	window      tracker.Window
}

// parseWatch reads comma separated /watch arguments, institution and
// physician default to any, the window to two weeks from today.
func parseWatch(args string, now time.Time) (watchRequest, error) {
	parts := strings.Split(args, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) < 3 || len(parts) > 8 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return watchRequest{}, replyError(watchUsage)
	}
	arg := func(i int) string {
		if i < len(parts) {
			return parts[i]
		}
		return ""
	}

	req := watchRequest{
		region:      parts[0],
		district:    parts[1],
		clinic:      parts[2],
		institution: arg(3),
		physician:   arg(4),
	}
	var err error
	req.mode, err = tracker.ParseMode(arg(5))
	if err != nil {
		return watchRequest{}, replyError(fmt.Sprintf("Unknown mode %q, use notify or book.", arg(5)))
	}

	req.window.Start = timezone.StartOfDay(now.In(timezone.Location))
	if start := arg(6); start != "" {
		req.window.Start, err = time.ParseInLocation(time.DateOnly, start, timezone.Location)
		if err != nil {
			return watchRequest{}, replyError(fmt.Sprintf("Start date %q is not YYYY-MM-DD.", start))
		}
	}
	req.window.End = req.window.Start.AddDate(0, 0, tracker.DefaultWindowDays)
	if end := arg(7); end != "" {
		req.window.End, err = time.ParseInLocation(time.DateOnly, end, timezone.Location)
		if err != nil {
			return watchRequest{}, replyError(fmt.Sprintf("End date %q is not YYYY-MM-DD.", end))
		}
	}
	if req.window.End.Before(req.window.Start) {
		return watchRequest{}, replyError("The end date is before the start date.")
	}
	return req, nil
}

func pick(options []mhrs.Option, input, what string) (mhrs.Option, error) {
	option, ok := lookup.Resolve(options, input)
	if !ok {
		return mhrs.Option{}, replyError(fmt.Sprintf("No %s matches %q.", what, input))
	}
	return option, nil
}

// pickOrAny resolves input against options that start with "Any", an
// empty input is any.
func pickOrAny(options []mhrs.Option, input, what string) (mhrs.Option, error) {
	if input == "" {
		return mhrs.Option{Value: mhrs.AnyId, Text: lookup.AnyText}, nil
	}
	return pick(options, input, what)
}

func fetchFailed(ctx context.Context, what string, err error) error {
	slog.WarnContext(ctx, "failed to load "+what, "err", err)
	return replyError(fmt.Sprintf("Could not load the %s from MHRS, try again later.", what))
}

func (s Service) resolveFilter(ctx context.Context, token string, req watchRequest) (tracker.Filter, error) {
	region, err := pick(lookup.Regions(), req.region, "region")
	if err != nil {
		return tracker.Filter{}, err
	}

	districts, err := s.lookup.Districts(ctx, token, region.Value)
	if err != nil {
		return tracker.Filter{}, fetchFailed(ctx, "districts", err)
	}
	district, err := pick(districts, req.district, "district")
	if err != nil {
		return tracker.Filter{}, err
	}

	clinics, err := s.lookup.Clinics(ctx, token, region.Value, district.Value)
	if err != nil {
		return tracker.Filter{}, fetchFailed(ctx, "clinics", err)
	}
	clinic, err := pick(clinics, req.clinic, "clinic")
	if err != nil {
		return tracker.Filter{}, err
	}

	institution := mhrs.Option{Value: mhrs.AnyId, Text: lookup.AnyText}
	if req.institution != "" {
		institutions, err := s.lookup.Institutions(ctx, token, region.Value, district.Value, clinic.Value)
		if err != nil {
			return tracker.Filter{}, fetchFailed(ctx, "institutions", err)
		}
		institution, err = pickOrAny(institutions, req.institution, "institution")
		if err != nil {
			return tracker.Filter{}, err
		}
	}

	physician := mhrs.Option{Value: mhrs.AnyId, Text: lookup.AnyText}
	if req.physician != "" {
		physicians, err := s.lookup.Physicians(ctx, token, institution.Value, clinic.Value)
		if err != nil {
			return tracker.Filter{}, fetchFailed(ctx, "physicians", err)
		}
		physician, err = pickOrAny(physicians, req.physician, "physician")
		if err != nil {
			return tracker.Filter{}, err
		}
	}

	return tracker.Filter{
		RegionId:        region.Value,
		DistrictId:      district.Value,
		ClinicId:        clinic.Value,
		InstitutionId:   institution.Value,
		PhysicianId:     physician.Value,
		RegionName:      region.Text,
		DistrictName:    district.Text,
		ClinicName:      clinic.Text,
		InstitutionName: institution.Text,
		PhysicianName:   physician.Text,
	}, nil
}

// watch creates a tracker for the chat from a single /watch message.
func (s Service) watch(ctx context.Context, subscriber tracker.SubscriberId, args string) string {
	if s.lookup == nil || s.session == nil {
		return "Starting trackers from chat is not enabled."
	}
	req, err := parseWatch(args, s.clock.Now())
	if err != nil {
		return err.Error()
	}

	ctx, span := tracer.Start(ctx, "Service:watch")
	defer span.End()
	span.SetAttributes(attribute.String("subscriber", string(subscriber)))

	token, err := s.session.Token(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "no mhrs session")
		slog.WarnContext(ctx, "no mhrs session for a chat tracker", "err", err)
		return "Could not log in to MHRS, try again later."
	}
	filter, err := s.resolveFilter(ctx, token, req)
	if err != nil {
		return err.Error()
	}

	id, err := s.trackers.CreateTracker(subscriber, tracker.Spec{
		Filter:      filter,
		Mode:        req.mode,
		Window:      req.window,
		Token:       token,
		Credentials: s.session.Credentials(),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create tracker")
		return fmt.Sprintf("Could not start the tracker: %s", err)
	}
	for _, info := range s.trackers.List(subscriber) {
		if info.Id == id {
			return fmt.Sprintf(
				"Tracking %s in %s/%s as %s (%s, %d days).\nStop it with /cancel %s.",
				info.Filter, filter.RegionName, filter.DistrictName,
				info.Code, info.Mode, info.Window.Days(), info.Code,
			)
		}
	}
	return "Tracker started."
}
