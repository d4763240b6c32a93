package chatbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"mhrs-tracker/lib/telegram"
	"mhrs-tracker/services/tracker"

	"github.com/stretchr/testify/require"
)

type fakeTrackers struct {
	trackers map[tracker.SubscriberId][]tracker.TrackerInfo
	tokens   map[tracker.TrackerId]string
	created  []tracker.Spec
	err      error
}

func (f *fakeTrackers) CreateTracker(subscriber tracker.SubscriberId, spec tracker.Spec) (tracker.TrackerId, error) {
	if f.err != nil {
		return "", f.err
	}
	f.created = append(f.created, spec)
	id := tracker.TrackerId(fmt.Sprintf("new%d", len(f.created)))
	f.trackers[subscriber] = append(f.trackers[subscriber], tracker.TrackerInfo{
		Id:     id,
		Code:   fmt.Sprintf("NEW%03d", len(f.created)),
		Filter: spec.Filter,
		Mode:   spec.Mode,
		Window: spec.Window,
	})
	return id, nil
}

func newFakeTrackers() *fakeTrackers {
	return &fakeTrackers{
		trackers: map[tracker.SubscriberId][]tracker.TrackerInfo{
			"100": {
				{Id: "t1", Code: "AAAAAA", Filter: tracker.Filter{ClinicName: "Kardiyoloji", InstitutionId: -1, PhysicianId: -1}, Mode: tracker.ModeNotify, Attempts: 3},
				{Id: "t2", Code: "BBBBBB", Filter: tracker.Filter{ClinicName: "Göz", InstitutionId: -1, PhysicianId: -1}, Mode: tracker.ModeBook, State: tracker.StateStalled},
			},
		},
		tokens: map[tracker.TrackerId]string{},
	}
}

func (f *fakeTrackers) CancelTracker(subscriber tracker.SubscriberId, id tracker.TrackerId) bool {
	list := f.trackers[subscriber]
	for i, info := range list {
		if info.Id == id {
			f.trackers[subscriber] = append(list[:i], list[i+1:]...)
			return true
		}
	}
	return false
}

func (f *fakeTrackers) CancelAll(subscriber tracker.SubscriberId) int {
	n := len(f.trackers[subscriber])
	delete(f.trackers, subscriber)
	return n
}

func (f *fakeTrackers) UpdateToken(subscriber tracker.SubscriberId, id tracker.TrackerId, token string) bool {
	for _, info := range f.trackers[subscriber] {
		if info.Id == id {
			f.tokens[id] = token
			return true
		}
	}
	return false
}

func (f *fakeTrackers) List(subscriber tracker.SubscriberId) []tracker.TrackerInfo {
	return f.trackers[subscriber]
}

func (f *fakeTrackers) FindByCode(subscriber tracker.SubscriberId, code string) (tracker.TrackerInfo, bool) {
	for _, info := range f.trackers[subscriber] {
		if strings.EqualFold(info.Code, code) {
			return info, true
		}
	}
	return tracker.TrackerInfo{}, false
}

func TestHandle(t *testing.T) {
	ctx := context.Background()
	trackers := newFakeTrackers()
	s := NewService(Options{Trackers: trackers})

	require.Equal(t, helpText, s.Handle(ctx, 100, "/help"))
	require.Equal(t, "", s.Handle(ctx, 100, "hello"))
	require.True(t, strings.HasPrefix(s.Handle(ctx, 100, "/frobnicate"), "Unknown command."))

	require.Equal(t,
		"AAAAAA notify | Kardiyoloji | active | 3 tries\nBBBBBB book | Göz | stalled | 0 tries",
		s.Handle(ctx, 100, "/list"),
	)
	require.Equal(t, "You have no active trackers.", s.Handle(ctx, 200, "/list"))

	require.Equal(t, "Token updated for BBBBBB.", s.Handle(ctx, 100, "/token bbbbbb eyJnew"))
	require.Equal(t, map[tracker.TrackerId]string{"t2": "eyJnew"}, trackers.tokens)
	require.Equal(t, "Token updated for 2 tracker(s).", s.Handle(ctx, 100, "/token eyJall"))
	require.Equal(t, "eyJall", trackers.tokens["t1"])
	require.Equal(t, "Usage: /token [code] <token>", s.Handle(ctx, 100, "/token"))
	require.Equal(t, "No tracker with code ZZZZZZ.", s.Handle(ctx, 100, "/token zzzzzz eyJ"))

	require.Equal(t, "Usage: /cancel <code>", s.Handle(ctx, 100, "/cancel"))
	require.Equal(t, "Stopped AAAAAA (Kardiyoloji).", s.Handle(ctx, 100, "/cancel@MhrsBot aaaaaa"))
	require.Equal(t, "No tracker with code AAAAAA.", s.Handle(ctx, 100, "/cancel aaaaaa"))

	require.Equal(t, "Stopped 1 tracker(s).", s.Handle(ctx, 100, "/stop"))
	require.Equal(t, "You have no active trackers.", s.Handle(ctx, 100, "/stop"))
}

func TestHandlePrivate(t *testing.T) {
	ctx := context.Background()
	s := NewService(Options{Trackers: newFakeTrackers(), AllowedChats: []int64{100}})
	require.Equal(t, "This bot is private.", s.Handle(ctx, 200, "/stop"))
	require.NotEqual(t, "This bot is private.", s.Handle(ctx, 100, "/list"))
}

type fakeBot struct {
	mu      sync.Mutex
	offsets []int64
	batches [][]telegram.Update
	errs    []error
	replies map[string][]string
}

func (b *fakeBot) GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, error) {
	b.mu.Lock()
	b.offsets = append(b.offsets, offset)
	if len(b.errs) > 0 {
		err := b.errs[0]
		b.errs = b.errs[1:]
		b.mu.Unlock()
		return nil, err
	}
	if len(b.batches) > 0 {
		batch := b.batches[0]
		b.batches = b.batches[1:]
		b.mu.Unlock()
		return batch, nil
	}
	b.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (b *fakeBot) SendMessage(ctx context.Context, chatId string, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.replies[chatId] = append(b.replies[chatId], text)
	return nil
}

type countingSleeper struct {
	mu    sync.Mutex
	count int
}

func (s *countingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
	return nil
}

func message(update int64, chat int64, text string) telegram.Update {
	return telegram.Update{Id: update, Message: &telegram.Message{Chat: telegram.Chat{Id: chat}, Text: text}}
}

func TestRun(t *testing.T) {
	bot := &fakeBot{
		errs: []error{errors.New("bad gateway")},
		batches: [][]telegram.Update{
			{message(10, 100, "/list"), {Id: 11}},
			{message(12, 100, "/stop"), message(13, 100, "just chatting")},
		},
		replies: map[string][]string{},
	}
	sleeper := &countingSleeper{}
	s := NewService(Options{Bot: bot, Trackers: newFakeTrackers(), Sleeper: sleeper})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		bot.mu.Lock()
		defer bot.mu.Unlock()
		return len(bot.offsets) == 4
	}, time.Second, time.Millisecond)
	cancel()
	<-done

	require.Equal(t, []int64{0, 0, 12, 14}, bot.offsets)
	require.Equal(t, 1, sleeper.count)
	require.Len(t, bot.replies["100"], 2)
	require.Equal(t, "Stopped 2 tracker(s).", bot.replies["100"][1])
}
