package tracker

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"mhrs-tracker/lib/mhrs"
	"mhrs-tracker/lib/timezone"

	"github.com/google/uuid"
	random "github.com/mazen160/go-random"
)

type SubscriberId string

type TrackerId string

func newTrackerId() TrackerId {
	return TrackerId(uuid.NewString())
}

const codeLength = 6

// newCode returns the short code users refer to a tracker by.
func newCode() string {
	code, err := random.String(codeLength)
	if err == nil {
		code = strings.ToUpper(code)
	}
	if err != nil || len(code) != codeLength {
		return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:codeLength])
	}
	return code
}

type Mode int

const (
	// ModeNotify reports the first matching slot and stops.
	ModeNotify Mode = iota
	// ModeBook reserves the first matching slot and stops once it is
	// confirmed.
	ModeBook
)

func (m Mode) String() string {
	switch m {
	case ModeNotify:
		return "notify"
	case ModeBook:
		return "book"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "notify":
		return ModeNotify, nil
	case "book", "auto":
		return ModeBook, nil
	}
	return ModeNotify, fmt.Errorf("unknown mode %q, expected notify or book", s)
}

type State int

const (
	StateActive State = iota
	StateTokenRefreshing
	StateCooldown
	StateStalled
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateTokenRefreshing:
		return "refreshing"
	case StateCooldown:
		return "cooldown"
	case StateStalled:
		return "stalled"
	case StateTerminated:
		return "terminated"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Filter selects slots. InstitutionId and PhysicianId are mhrs.AnyId when
// any institution or physician will do, the names are display labels.
type Filter struct {
	RegionId      int64 `json:"region_id"`
	DistrictId    int64 `json:"district_id"`
	ClinicId      int64 `json:"clinic_id"`
	InstitutionId int64 `json:"institution_id"`
	PhysicianId   int64 `json:"physician_id"`

	RegionName      string `json:"region_name"`
	DistrictName    string `json:"district_name"`
	ClinicName      string `json:"clinic_name"`
	InstitutionName string `json:"institution_name"`
	PhysicianName   string `json:"physician_name"`
}

func (f Filter) searchFilter() mhrs.SearchFilter {
	return mhrs.SearchFilter{
		RegionId:      f.RegionId,
		DistrictId:    f.DistrictId,
		ClinicId:      f.ClinicId,
		InstitutionId: f.InstitutionId,
		PhysicianId:   f.PhysicianId,
	}
}

func (f Filter) String() string {
	parts := []string{f.label(f.ClinicName, f.ClinicId)}
	if f.InstitutionId != mhrs.AnyId {
		parts = append(parts, f.label(f.InstitutionName, f.InstitutionId))
	}
	if f.PhysicianId != mhrs.AnyId {
		parts = append(parts, f.label(f.PhysicianName, f.PhysicianId))
	}
	return strings.Join(parts, " / ")
}

func (Filter) label(name string, id int64) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("#%d", id)
}

// DefaultWindowDays is the window length used when only a start is known.
const DefaultWindowDays = 14

// Window is the declared search range, only its length in whole days is
// used once polling starts.
type Window struct {
	Start time.Time
	End   time.Time
}

func (w Window) Days() int {
	return timezone.WholeDaysBetween(w.Start, w.End)
}

type Credentials struct {
	Identity string
	Secret   string
}

func (c *Credentials) usable() bool {
	return c != nil && c.Identity != "" && c.Secret != ""
}

// Spec is everything needed to create a tracker.
type Spec struct {
	Filter      Filter
	Mode        Mode
	Window      Window
	Token       string
	Credentials *Credentials
}

func (s Spec) validate() error {
	if s.Window.End.Before(s.Window.Start) {
		return ErrInvalidWindow
	}
	if s.Filter.RegionId <= 0 || s.Filter.DistrictId <= 0 || s.Filter.ClinicId <= 0 {
		return ErrInvalidFilter
	}
	if s.Token == "" && !s.Credentials.usable() {
		return ErrNoCredentials
	}
	return nil
}

// Tracker is one active search. Identity and filter never change, the
// token and counters are guarded by mu.
type Tracker struct {
	Id          TrackerId
	Code        string
	Subscriber  SubscriberId
	Filter      Filter
	Mode        Mode
	Window      Window
	Credentials *Credentials
	CreatedAt   time.Time

	mu             sync.Mutex
	token          string
	tokenVersion   uint64
	stalledVersion uint64
	stalled        bool
	attempts       int
	sinceLongBreak int
	state          State
}

func newTracker(subscriber SubscriberId, spec Spec, now time.Time) *Tracker {
	filter := spec.Filter
	if filter.InstitutionId == 0 {
		filter.InstitutionId = mhrs.AnyId
	}
	if filter.PhysicianId == 0 {
		filter.PhysicianId = mhrs.AnyId
	}
	return &Tracker{
		Id:          newTrackerId(),
		Code:        newCode(),
		Subscriber:  subscriber,
		Filter:      filter,
		Mode:        spec.Mode,
		Window:      spec.Window,
		Credentials: spec.Credentials,
		CreatedAt:   now,
		token:       spec.Token,
	}
}

func (t *Tracker) session() (string, uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.token, t.tokenVersion
}

// setToken replaces the token and clears a stall.
func (t *Tracker) setToken(token string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.token = token
	t.tokenVersion++
	t.stalled = false
	if t.state == StateStalled {
		t.state = StateActive
	}
}

// stall marks the token of the given version as unusable, it reports
// false when the tracker was already stalled on it.
func (t *Tracker) stall(version uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tokenVersion != version {
		return false
	}
	if t.stalled && t.stalledVersion == version {
		return false
	}
	t.stalled = true
	t.stalledVersion = version
	t.state = StateStalled
	return true
}

func (t *Tracker) isStalled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stalled && t.stalledVersion == t.tokenVersion
}

func (t *Tracker) setState(state State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = state
}

// recordMiss counts an unsuccessful poll and returns the number of polls
// since the last long break.
func (t *Tracker) recordMiss() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.attempts++
	t.sinceLongBreak++
	return t.sinceLongBreak
}

func (t *Tracker) resetLongBreak() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sinceLongBreak = 0
}

func (t *Tracker) counters() (attempts, sinceLongBreak int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.attempts, t.sinceLongBreak
}

// TrackerInfo is a copy of a tracker's state safe to hand out.
type TrackerInfo struct {
	Id             TrackerId
	Code           string
	Subscriber     SubscriberId
	Filter         Filter
	Mode           Mode
	Window         Window
	CreatedAt      time.Time
	Attempts       int
	SinceLongBreak int
	State          State
	Automatic      bool
}

func (t *Tracker) Info() TrackerInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TrackerInfo{
		Id:             t.Id,
		Code:           t.Code,
		Subscriber:     t.Subscriber,
		Filter:         t.Filter,
		Mode:           t.Mode,
		Window:         t.Window,
		CreatedAt:      t.CreatedAt,
		Attempts:       t.attempts,
		SinceLongBreak: t.sinceLongBreak,
		State:          t.state,
		Automatic:      t.Mode == ModeBook,
	}
}

// Slot is an available appointment produced by a single poll.
type Slot struct {
	Id             int64
	ScheduleId     int64
	ExamLocationId int64
	Start          time.Time
	End            time.Time
	// timestamps as sent by the server, echoed back when booking
	RawStart string
	RawEnd   string

	InstitutionName  string
	ClinicName       string
	PhysicianName    string
	ExamLocationName string
}

// Booking is a confirmed reservation.
type Booking struct {
	Slot             Slot
	ClinicName       string
	PhysicianName    string
	ExamLocationName string
}
