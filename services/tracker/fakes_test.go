package tracker

import (
	"context"
	"sync"
	"time"

	"mhrs-tracker/lib/mhrs"
	"mhrs-tracker/lib/timezone"
)

var testNow = time.Date(2025, time.March, 10, 10, 30, 0, 0, timezone.Location)

type fakeClock struct {
	now time.Time
}

func (c fakeClock) Now() time.Time {
	return c.now
}

// steppingClock returns its readings in order and repeats the last one.
type steppingClock struct {
	mu       sync.Mutex
	readings []time.Time
}

func (c *steppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.readings[0]
	if len(c.readings) > 1 {
		c.readings = c.readings[1:]
	}
	return now
}

type fakeSleeper struct {
	mu     sync.Mutex
	sleeps []time.Duration
	// called after a sleep is recorded with its 1-based index
	onSleep func(n int, d time.Duration)
	// block until the context is done instead of returning immediately
	block bool
}

func (s *fakeSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.sleeps = append(s.sleeps, d)
	n := len(s.sleeps)
	hook := s.onSleep
	s.mu.Unlock()

	if hook != nil {
		hook(n, d)
	}
	if s.block {
		<-ctx.Done()
	}
	return ctx.Err()
}

func (s *fakeSleeper) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.sleeps))
	copy(out, s.sleeps)
	return out
}

// fakeRandom returns fixed draws, IntN is clamped to n-1.
type fakeRandom struct {
	mu     sync.Mutex
	intN   int
	floats []float64
	float  float64
}

func (r *fakeRandom) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.intN >= n {
		return n - 1
	}
	return r.intN
}

func (r *fakeRandom) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.floats) > 0 {
		f := r.floats[0]
		r.floats = r.floats[1:]
		return f
	}
	return r.float
}

type searchCall struct {
	token string
	req   mhrs.SearchRequest
}

type fakeAPI struct {
	mu       sync.Mutex
	logins   int
	searches []searchCall
	reserves []mhrs.ReserveRequest

	login   func(identity, secret string) (string, error)
	search  func(n int, token string) (mhrs.SearchResult, error)
	reserve func(req mhrs.ReserveRequest) (mhrs.ReserveResult, error)
}

func (a *fakeAPI) Login(ctx context.Context, identity, secret string) (string, error) {
	a.mu.Lock()
	a.logins++
	fn := a.login
	a.mu.Unlock()
	if fn == nil {
		return "", mhrs.ErrLoginFailed
	}
	return fn(identity, secret)
}

func (a *fakeAPI) SearchSlots(ctx context.Context, token string, req mhrs.SearchRequest) (mhrs.SearchResult, error) {
	a.mu.Lock()
	a.searches = append(a.searches, searchCall{token: token, req: req})
	n := len(a.searches)
	fn := a.search
	a.mu.Unlock()
	if fn == nil {
		return mhrs.SearchResult{}, nil
	}
	return fn(n, token)
}

func (a *fakeAPI) Reserve(ctx context.Context, token string, req mhrs.ReserveRequest) (mhrs.ReserveResult, error) {
	a.mu.Lock()
	a.reserves = append(a.reserves, req)
	fn := a.reserve
	a.mu.Unlock()
	if fn == nil {
		return mhrs.ReserveResult{}, nil
	}
	return fn(req)
}

func (a *fakeAPI) searchCalls() []searchCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]searchCall, len(a.searches))
	copy(out, a.searches)
	return out
}

func (a *fakeAPI) loginCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.logins
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Notify(ctx context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recorder) recorded() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) kinds() []EventKind {
	var out []EventKind
	for _, e := range r.recorded() {
		out = append(out, e.Kind)
	}
	return out
}

var errUnauthorized = &mhrs.StatusError{Endpoint: "SearchSlots", StatusCode: 401}

func slotEntry(id int64, available bool, start time.Time) mhrs.SlotEntry {
	examLocation := int64(501)
	return mhrs.SlotEntry{
		Id:        id,
		Available: available,
		Start:     start.Format(time.DateTime),
		End:       start.Add(10 * time.Minute).Format(time.DateTime),
		Detail: mhrs.SlotDetail{
			ScheduleId:     44,
			ExamLocationId: &examLocation,
		},
	}
}

func resultWith(entries ...mhrs.SlotEntry) mhrs.SearchResult {
	return mhrs.SearchResult{
		Institutions: []mhrs.InstitutionSlots{{
			Institution: mhrs.Institution{Id: 1021, Name: "Ankara Şehir Hastanesi"},
			Clinic:      mhrs.Clinic{Id: 165, Name: "Kardiyoloji"},
			Physicians: []mhrs.PhysicianSlots{{
				Info: &mhrs.Physician{FirstName: "AYŞE", LastName: "YILMAZ"},
				ExamLocations: []mhrs.ExamLocationSlots{{
					ExamLocation: mhrs.ExamLocation{Id: 501, Name: "Poliklinik 3"},
					Hours:        []mhrs.HourSlots{{Slots: entries}},
				}},
			}},
		}},
	}
}

func testSpec() Spec {
	return Spec{
		Filter: Filter{
			RegionId:      6,
			DistrictId:    1130,
			ClinicId:      165,
			InstitutionId: mhrs.AnyId,
			PhysicianId:   mhrs.AnyId,
			ClinicName:    "Kardiyoloji",
		},
		Mode: ModeNotify,
		Window: Window{
			Start: time.Date(2025, time.March, 1, 0, 0, 0, 0, timezone.Location),
			End:   time.Date(2025, time.March, 15, 0, 0, 0, 0, timezone.Location),
		},
		Token: "old",
	}
}
