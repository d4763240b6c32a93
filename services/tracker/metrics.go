package tracker

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var tracer = otel.Tracer("mhrs-tracker/services/tracker")
var meter = otel.Meter("mhrs-tracker/services/tracker")

var pollCounter, _ = meter.Int64Counter(
	"tracker_polls_total",
	metric.WithDescription("The total amount of slot queries sent."),
)
var bookingCounter, _ = meter.Int64Counter(
	"tracker_bookings_total",
	metric.WithDescription("The total amount of confirmed reservations."),
)
var refreshCounter, _ = meter.Int64Counter(
	"tracker_refresh_total",
	metric.WithDescription("The total amount of times a session token has been refreshed."),
)
var longBreakCounter, _ = meter.Int64Counter(
	"tracker_long_breaks_total",
	metric.WithDescription("The total amount of long breaks taken."),
)
var activeTrackers, _ = meter.Int64UpDownCounter(
	"tracker_active",
	metric.WithDescription("The amount of trackers currently polling."),
)
