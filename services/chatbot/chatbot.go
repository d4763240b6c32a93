package chatbot

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"mhrs-tracker/internal/components/chrono"
	"mhrs-tracker/lib/telegram"
	"mhrs-tracker/services/tracker"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("mhrs-tracker/services/chatbot")

const (
	pollTimeout = 30 * time.Second
	errorPause  = 5 * time.Second
)

type Bot interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]telegram.Update, error)
	SendMessage(ctx context.Context, chatId string, text string) error
}

// Trackers is the part of the scheduler the chat commands drive.
type Trackers interface {
	CreateTracker(subscriber tracker.SubscriberId, spec tracker.Spec) (tracker.TrackerId, error)
	CancelTracker(subscriber tracker.SubscriberId, id tracker.TrackerId) bool
	CancelAll(subscriber tracker.SubscriberId) int
	UpdateToken(subscriber tracker.SubscriberId, id tracker.TrackerId, token string) bool
	List(subscriber tracker.SubscriberId) []tracker.TrackerInfo
	FindByCode(subscriber tracker.SubscriberId, code string) (tracker.TrackerInfo, bool)
}

var _ Trackers = (*tracker.Scheduler)(nil)

type Options struct {
	Bot      Bot
	Trackers Trackers
	// needed by /watch
	Lookup  Lookup
	Session Session
	Clock   chrono.API
	Sleeper chrono.Sleeper
	// when not empty, messages from other chats are refused
	AllowedChats []int64
}

// Service answers chat commands, the chat id is the subscriber id of the
// trackers it controls.
type Service struct {
	bot      Bot
	trackers Trackers
	lookup   Lookup
	session  Session
	clock    chrono.API
	sleeper  chrono.Sleeper
	allowed  []int64
}

func NewService(opts Options) Service {
	standard := chrono.NewStandardImpl()
	if opts.Sleeper == nil {
		opts.Sleeper = standard
	}
	if opts.Clock == nil {
		opts.Clock = standard
	}
	return Service{
		bot:      opts.Bot,
		trackers: opts.Trackers,
		lookup:   opts.Lookup,
		session:  opts.Session,
		clock:    opts.Clock,
		sleeper:  opts.Sleeper,
		allowed:  opts.AllowedChats,
	}
}

// Run long polls for messages until ctx is done.
func (s Service) Run(ctx context.Context) {
	var offset int64
	for ctx.Err() == nil {
		updates, err := s.bot.GetUpdates(ctx, offset, pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.WarnContext(ctx, "failed to get telegram updates", "err", err)
			s.sleeper.Sleep(ctx, errorPause)
			continue
		}
		for _, update := range updates {
			offset = max(offset, update.Id+1)
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			s.handleMessage(ctx, *update.Message)
		}
	}
}

func (s Service) handleMessage(ctx context.Context, msg telegram.Message) {
	ctx, span := tracer.Start(ctx, "Service:handleMessage")
	defer span.End()
	span.SetAttributes(attribute.Int64("chat", msg.Chat.Id))

	reply := s.Handle(ctx, msg.Chat.Id, msg.Text)
	if reply == "" {
		return
	}
	err := s.bot.SendMessage(ctx, telegram.ChatId(msg.Chat.Id), reply)
	if err != nil {
		slog.WarnContext(ctx, "failed to reply", "chat", msg.Chat.Id, "err", err)
	}
}

const helpText = `/watch <region>, <district>, <clinic>[, institution][, physician][, notify|book][, start][, end] - start a tracker
/list - show your trackers
/cancel <code> - stop one tracker
/stop - stop all of your trackers
/token <token> - give all of your trackers a new MHRS token
/token <code> <token> - give one tracker a new MHRS token
/help - show this message

/watch takes names, ids or #positions separated by commas, for example
/watch ankara, çankaya, kardiyoloji, any, any, book, 2025-03-10, 2025-03-24`

// Handle runs one command and returns the reply, "" means no reply.
func (s Service) Handle(ctx context.Context, chatId int64, text string) string {
	if len(s.allowed) > 0 && !slices.Contains(s.allowed, chatId) {
		return "This bot is private."
	}

	subscriber := tracker.SubscriberId(telegram.ChatId(chatId))
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return ""
	}
	// "/cancel@SomeBot" in group chats
	command, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")
	args := fields[1:]

	switch command {
	case "/start", "/help":
		return helpText
	case "/list":
		return s.list(subscriber)
	case "/stop":
		n := s.trackers.CancelAll(subscriber)
		if n == 0 {
			return "You have no active trackers."
		}
		return fmt.Sprintf("Stopped %d tracker(s).", n)
	case "/cancel":
		if len(args) != 1 {
			return "Usage: /cancel <code>"
		}
		info, ok := s.trackers.FindByCode(subscriber, args[0])
		if !ok || !s.trackers.CancelTracker(subscriber, info.Id) {
			return fmt.Sprintf("No tracker with code %s.", strings.ToUpper(args[0]))
		}
		return fmt.Sprintf("Stopped %s (%s).", info.Code, info.Filter)
	case "/token":
		return s.token(subscriber, args)
	case "/watch":
		_, rest, _ := strings.Cut(strings.TrimSpace(text), " ")
		return s.watch(ctx, subscriber, rest)
	}
	if strings.HasPrefix(command, "/") {
		return "Unknown command.\n\n" + helpText
	}
	return ""
}

func (s Service) list(subscriber tracker.SubscriberId) string {
	infos := s.trackers.List(subscriber)
	if len(infos) == 0 {
		return "You have no active trackers."
	}
	var b strings.Builder
	for _, info := range infos {
		fmt.Fprintf(
			&b, "%s %s | %s | %s | %d tries\n",
			info.Code, info.Mode, info.Filter, info.State, info.Attempts,
		)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func (s Service) token(subscriber tracker.SubscriberId, args []string) string {
	switch len(args) {
	case 1:
		n := 0
		for _, info := range s.trackers.List(subscriber) {
			if s.trackers.UpdateToken(subscriber, info.Id, args[0]) {
				n++
			}
		}
		if n == 0 {
			return "You have no active trackers."
		}
		return fmt.Sprintf("Token updated for %d tracker(s).", n)
	case 2:
		info, ok := s.trackers.FindByCode(subscriber, args[0])
		if !ok || !s.trackers.UpdateToken(subscriber, info.Id, args[1]) {
			return fmt.Sprintf("No tracker with code %s.", strings.ToUpper(args[0]))
		}
		return fmt.Sprintf("Token updated for %s.", info.Code)
	}
	return "Usage: /token [code] <token>"
}
