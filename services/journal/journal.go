package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"mhrs-tracker/internal/components/chrono"
	"mhrs-tracker/lib/timezone"
	"mhrs-tracker/services/journal/db"
	"mhrs-tracker/services/tracker"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("mhrs-tracker/services/journal")

// Recorded are the event kinds that end up in the journal.
var Recorded = []tracker.EventKind{
	tracker.EventSlotFound,
	tracker.EventBooked,
	tracker.EventBookingFailed,
	tracker.EventSessionExhausted,
}

type Entry struct {
	Id          int64
	At          time.Time
	Kind        string
	Subscriber  string
	TrackerCode string
	Filter      string
	Clinic      string
	Physician   string
	Institution string
	// zero when the entry is not about a slot
	SlotStart time.Time
	Detail    string
}

// Journal keeps a history of found and booked slots in a sql database.
type Journal struct {
	db    *sql.DB
	qry   *db.Queries
	clock chrono.API
}

// Open migrates database and returns a journal writing to it, clock
// stamps events that carry no time and decides what pruning deletes.
func Open(ctx context.Context, database *sql.DB, clock chrono.API) (Journal, error) {
	if clock == nil {
		clock = chrono.NewStandardImpl()
	}
	err := db.Migrate(ctx, database)
	if err != nil {
		return Journal{}, fmt.Errorf("migrate journal: %w", err)
	}
	return Journal{db: database, qry: db.New(database), clock: clock}, nil
}

func (j Journal) Notify(ctx context.Context, event tracker.Event) error {
	if !slices.Contains(Recorded, event.Kind) {
		return nil
	}

	ctx, span := tracer.Start(ctx, "Journal:Notify")
	defer span.End()
	span.SetAttributes(attribute.String("kind", event.Kind.String()))

	at := event.At
	if at.IsZero() {
		at = j.clock.Now()
	}
	params := db.CreateEntryParams{
		At:         at.Unix(),
		Kind:       event.Kind.String(),
		Subscriber: string(event.Tracker.Subscriber),
		Tracker:    event.Tracker.Code,
		Filter:     event.Tracker.Filter.String(),
	}

	slot := event.Slot
	if event.Booking != nil {
		booked := event.Booking.Slot
		booked.ClinicName = event.Booking.ClinicName
		booked.PhysicianName = event.Booking.PhysicianName
		slot = &booked
	}
	if slot != nil {
		params.Clinic = slot.ClinicName
		params.Physician = slot.PhysicianName
		params.Institution = slot.InstitutionName
		params.SlotStart = sql.NullInt64{Int64: slot.Start.Unix(), Valid: !slot.Start.IsZero()}
	}
	if event.Err != nil {
		params.Detail = event.Err.Error()
	}

	_, err := j.qry.CreateEntry(ctx, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write journal entry")
		return err
	}
	return nil
}

// List returns the newest entries first.
func (j Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	ctx, span := tracer.Start(ctx, "Journal:List")
	defer span.End()

	rows, err := j.qry.ListEntries(ctx, int64(limit))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list journal entries")
		return nil, err
	}

	out := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entry := Entry{
			Id:          row.ID,
			At:          time.Unix(row.At, 0).In(timezone.Location),
			Kind:        row.Kind,
			Subscriber:  row.Subscriber,
			TrackerCode: row.Tracker,
			Filter:      row.Filter,
			Clinic:      row.Clinic,
			Physician:   row.Physician,
			Institution: row.Institution,
			Detail:      row.Detail,
		}
		if row.SlotStart.Valid {
			entry.SlotStart = time.Unix(row.SlotStart.Int64, 0).In(timezone.Location)
		}
		out = append(out, entry)
	}
	return out, nil
}

// Prune deletes entries older than before and returns how many went.
func (j Journal) Prune(ctx context.Context, before time.Time) (int64, error) {
	ctx, span := tracer.Start(ctx, "Journal:Prune")
	defer span.End()

	n, err := j.qry.DeleteEntriesBefore(ctx, before.Unix())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to prune journal")
		return 0, err
	}
	span.SetAttributes(attribute.Int64("deleted", n))
	return n, nil
}

// SchedulePruning deletes entries older than retention every time spec
// fires (for example "@daily").
func (j Journal) SchedulePruning(ctx context.Context, cron chrono.CronAPI, spec string, retention time.Duration) error {
	return cron.Cron(spec, func() {
		n, err := j.Prune(ctx, j.clock.Now().Add(-retention))
		if err != nil {
			slog.ErrorContext(ctx, "failed to prune journal", "err", err)
			return
		}
		slog.DebugContext(ctx, "pruned journal", "deleted", n)
	})
}
