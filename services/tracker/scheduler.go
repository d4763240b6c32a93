package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"mhrs-tracker/internal/components/chrono"
	"mhrs-tracker/lib/mhrs"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Options struct {
	API      API
	Registry Registry
	Notifier Notifier
	// defaults to chrono.NewStandardImpl()
	Clock   chrono.API
	Sleeper chrono.Sleeper
	// defaults to the top level functions of math/rand/v2
	Random Random
	Policy Policy
}

// Scheduler runs one goroutine per tracker: query, select, book or
// notify, then wait, until the tracker succeeds or leaves the registry.
type Scheduler struct {
	registry Registry
	notifier Notifier
	clock    chrono.API
	sleeper  chrono.Sleeper
	rng      Random
	policy   Policy

	session SessionManager
	query   QueryClient
	booking BookingExecutor

	mu  sync.Mutex
	ctx context.Context
	wg  sync.WaitGroup
}

func NewScheduler(opts Options) *Scheduler {
	standard := chrono.NewStandardImpl()
	if opts.Registry == nil {
		opts.Registry = NewMemoryRegistry()
	}
	if opts.Notifier == nil {
		opts.Notifier = NotifierFunc(func(context.Context, Event) error { return nil })
	}
	if opts.Clock == nil {
		opts.Clock = standard
	}
	if opts.Sleeper == nil {
		opts.Sleeper = standard
	}
	if opts.Random == nil {
		opts.Random = globalRandom{}
	}
	policy := opts.Policy.WithDefaults()

	return &Scheduler{
		registry: opts.Registry,
		notifier: opts.Notifier,
		clock:    opts.Clock,
		sleeper:  opts.Sleeper,
		rng:      opts.Random,
		policy:   policy,
		session:  NewSessionManager(opts.API, opts.Sleeper, opts.Random, policy),
		query:    NewQueryClient(opts.API),
		booking:  NewBookingExecutor(opts.API),
	}
}

// Start sets the context trackers run under, cancelling it stops every
// tracker at its next wait.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ctx = ctx
}

// Wait blocks until every tracker goroutine has returned.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) Registry() Registry {
	return s.registry
}

// CreateTracker validates spec, registers a tracker and starts polling.
func (s *Scheduler) CreateTracker(subscriber SubscriberId, spec Spec) (TrackerId, error) {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return "", ErrNotStarted
	}

	err := spec.validate()
	if err != nil {
		return "", err
	}

	t := newTracker(subscriber, spec, s.clock.Now())
	err = s.registry.Add(t)
	if err != nil {
		return "", err
	}

	slog.InfoContext(
		ctx, "tracker created",
		"subscriber", subscriber,
		"tracker", t.Code,
		"filter", t.Filter.String(),
		"mode", t.Mode,
		"days", t.Window.Days(),
	)

	s.wg.Add(1)
	go s.run(ctx, t)
	return t.Id, nil
}

// CancelTracker removes a tracker, it reports false when there was nothing
// to remove.
func (s *Scheduler) CancelTracker(subscriber SubscriberId, id TrackerId) bool {
	return s.registry.Remove(subscriber, id)
}

// CancelAll removes every tracker of a subscriber and returns how many
// there were.
func (s *Scheduler) CancelAll(subscriber SubscriberId) int {
	return len(s.registry.RemoveAll(subscriber))
}

// UpdateToken replaces the token of a tracker, resuming it when it was
// stalled on an expired token.
func (s *Scheduler) UpdateToken(subscriber SubscriberId, id TrackerId, token string) bool {
	t, ok := s.registry.Get(subscriber, id)
	if !ok || token == "" {
		return false
	}
	t.setToken(token)
	return true
}

func (s *Scheduler) List(subscriber SubscriberId) []TrackerInfo {
	trackers := s.registry.ListActive(subscriber)
	out := make([]TrackerInfo, len(trackers))
	for i, t := range trackers {
		out[i] = t.Info()
	}
	return out
}

// FindByCode looks a tracker up by its short code, ignoring case.
func (s *Scheduler) FindByCode(subscriber SubscriberId, code string) (TrackerInfo, bool) {
	for _, t := range s.registry.ListActive(subscriber) {
		if strings.EqualFold(t.Code, strings.TrimSpace(code)) {
			return t.Info(), true
		}
	}
	return TrackerInfo{}, false
}

func (s *Scheduler) run(ctx context.Context, t *Tracker) {
	defer s.wg.Done()
	activeTrackers.Add(ctx, 1)
	defer activeTrackers.Add(context.WithoutCancel(ctx), -1)

	logger := slog.With(
		"subscriber", t.Subscriber,
		"tracker", t.Code,
		"clinic", t.Filter.ClinicName,
	)

	for {
		if ctx.Err() != nil {
			logger.Info("tracker stopped by shutdown")
			return
		}
		if !s.registry.Contains(t.Subscriber, t.Id) {
			t.setState(StateTerminated)
			logger.Info("tracker cancelled")
			return
		}

		wait, done := s.cycle(ctx, t, logger)
		if done {
			t.setState(StateTerminated)
			return
		}
		if wait <= 0 {
			continue
		}
		logger.Debug("waiting", "duration", wait)
		if s.sleeper.Sleep(ctx, wait) != nil {
			continue
		}
	}
}

// cycle runs a single poll and returns the wait before the next one.
func (s *Scheduler) cycle(ctx context.Context, t *Tracker, logger *slog.Logger) (wait time.Duration, done bool) {
	ctx, span := tracer.Start(ctx, "Scheduler:cycle")
	defer span.End()
	span.SetAttributes(
		attribute.String("tracker", t.Code),
		attribute.String("subscriber", string(t.Subscriber)),
	)

	defer func() {
		if r := recover(); r != nil {
			logger.Error(
				"tracker cycle panicked",
				"filter", t.Filter.String(),
				"mode", t.Mode,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			span.SetStatus(codes.Error, fmt.Sprint(r))
			wait = s.policy.shortWait(s.rng)
			done = false
		}
	}()

	if t.isStalled() {
		return s.policy.shortWait(s.rng), false
	}

	// the retry after a refresh must send the same window even when the
	// refresh took minutes
	now := s.clock.Now()
	token, version := t.session()
	outcome, err := QueryOutcome{}, ErrTokenExpired
	if token != "" {
		outcome, err = s.query.Query(ctx, token, t.Filter, t.Window, now)
	}
	if errors.Is(err, ErrTokenExpired) {
		if token != "" {
			logger.Warn("session token rejected")
		}
		fresh, pause, ok := s.refreshSession(ctx, t, version, logger)
		if !ok {
			return pause, false
		}
		outcome, err = s.query.Query(ctx, fresh, t.Filter, t.Window, now)
		if errors.Is(err, ErrTokenExpired) {
			logger.Warn("refreshed token was rejected too")
			outcome = QueryOutcome{Diagnostic: "token rejected right after refresh", Err: err}
		}
	}

	slot, found := SelectFirst(outcome.Slots)
	if !found {
		logger.Info("no slot", "diagnostic", outcome.Diagnostic, "err", outcome.Err)
		logResponseBody(ctx, logger, outcome.Err)
		return s.nextWait(ctx, t), false
	}

	// a cancellation that raced with the query wins over acting on its result
	if !s.registry.Contains(t.Subscriber, t.Id) {
		return 0, true
	}
	logger.Info(
		"slot found",
		"start", slot.Start.Format(time.DateTime),
		"physician", slot.PhysicianName,
		"candidates", len(outcome.Slots),
	)

	if t.Mode == ModeNotify {
		if s.registry.Remove(t.Subscriber, t.Id) {
			s.emit(ctx, t, Event{Kind: EventSlotFound, Slot: &slot})
		}
		return 0, true
	}

	token, _ = t.session()
	booking, err := s.booking.Book(ctx, token, slot)
	if err != nil {
		logger.Warn("booking failed", "slot", slot.Id, "err", err)
		s.emit(ctx, t, Event{Kind: EventBookingFailed, Slot: &slot, Err: err})
		return s.nextWait(ctx, t), false
	}

	logger.Info(
		"appointment booked",
		"start", slot.Start.Format(time.DateTime),
		"physician", booking.PhysicianName,
		"clinic", booking.ClinicName,
	)
	s.registry.Remove(t.Subscriber, t.Id)
	s.emit(ctx, t, Event{Kind: EventBooked, Slot: &slot, Booking: &booking})
	return 0, true
}

// refreshSession obtains a new token for t. When ok is false the cycle
// ends with the returned wait (the tracker is stalled, cooled down or
// shutting down).
func (s *Scheduler) refreshSession(ctx context.Context, t *Tracker, version uint64, logger *slog.Logger) (token string, wait time.Duration, ok bool) {
	if !t.Credentials.usable() {
		if t.stall(version) {
			logger.Warn("token is invalid and there are no credentials to refresh it")
			s.emit(ctx, t, Event{Kind: EventTokenInvalid, Err: ErrNoCredentials})
		}
		return "", s.policy.shortWait(s.rng), false
	}

	t.setState(StateTokenRefreshing)
	s.emit(ctx, t, Event{Kind: EventSessionRefreshing})

	token, err := s.session.Refresh(ctx, t.Credentials)
	if err == nil {
		t.setToken(token)
		logger.Info("session refreshed")
		s.emit(ctx, t, Event{Kind: EventSessionRefreshed})
		return token, 0, true
	}
	if ctx.Err() != nil {
		return "", 0, false
	}

	logger.Error("session refresh exhausted, cooling down", "cooldown", s.policy.Cooldown, "err", err)
	s.emit(ctx, t, Event{Kind: EventSessionExhausted, Err: err})
	t.setState(StateCooldown)
	s.emit(ctx, t, Event{Kind: EventCooldownStarted, Duration: s.policy.Cooldown})
	if s.sleeper.Sleep(ctx, s.policy.Cooldown) != nil {
		return "", 0, false
	}
	t.setState(StateActive)
	s.emit(ctx, t, Event{Kind: EventCooldownEnded})
	return "", 0, false
}

// nextWait counts a miss and picks a short wait or a long break.
func (s *Scheduler) nextWait(ctx context.Context, t *Tracker) time.Duration {
	t.setState(StateActive)
	since := t.recordMiss()
	wait, long := s.policy.NextWait(since, s.rng)
	if long {
		t.resetLongBreak()
		longBreakCounter.Add(ctx, 1)
		s.emit(ctx, t, Event{Kind: EventLongBreak, Duration: wait})
	}
	return wait
}

func (s *Scheduler) emit(ctx context.Context, t *Tracker, event Event) {
	event.At = s.clock.Now()
	event.Tracker = t.Info()
	err := s.notifier.Notify(ctx, event)
	if err != nil {
		slog.WarnContext(
			ctx, "failed to notify subscriber",
			"subscriber", t.Subscriber,
			"tracker", t.Code,
			"event", event.Kind,
			"err", err,
		)
	}
}

// logResponseBody logs what the server sent back with a non-2xx status.
func logResponseBody(ctx context.Context, logger *slog.Logger, err error) {
	var statusErr *mhrs.StatusError
	if !errors.As(err, &statusErr) || statusErr.Body == "" {
		return
	}
	logger.DebugContext(
		ctx, "slot query response body",
		"status", statusErr.StatusCode,
		"body", statusErr.Body,
	)
}
