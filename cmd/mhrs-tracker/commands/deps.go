package commands

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"time"

	"mhrs-tracker/internal/components/chrono"
	"mhrs-tracker/lib/mhrs"
	"mhrs-tracker/lib/telegram"
	"mhrs-tracker/services/journal"
	"mhrs-tracker/services/lookup"
	"mhrs-tracker/services/notify"
	"mhrs-tracker/services/tracker"

	"github.com/jedib0t/go-pretty/v6/table"
)

var errNoToken = errors.New("no MHRS token: set MHRS_TOKEN, or MHRS_IDENTITY and MHRS_SECRET")

func newMhrsClient() (*mhrs.Client, error) {
	return mhrs.NewClient(mhrs.ClientOptions{
		BaseUrl:           cfg.Mhrs.BaseUrl,
		UserAgent:         cfg.Mhrs.UserAgent,
		RequestsPerSecond: cfg.Mhrs.RequestsPerSecond,
		BypassCloudflare:  cfg.Mhrs.BypassCloudflare,
	})
}

func newLookup(client *mhrs.Client) lookup.Service {
	return lookup.NewService(client, time.Duration(cfg.LookupCacheMinutes)*time.Minute)
}

// obtainToken returns the configured token or logs in with the configured
// credentials.
func obtainToken(ctx context.Context, client *mhrs.Client) (string, error) {
	if cfg.Mhrs.Token != "" {
		return cfg.Mhrs.Token, nil
	}
	creds := cfg.Mhrs.credentials()
	if creds == nil {
		return "", errNoToken
	}
	return client.Login(ctx, creds.Identity, creds.Secret)
}

// configSession logs chat trackers in with the configured account.
type configSession struct {
	client *mhrs.Client
}

func (s configSession) Token(ctx context.Context) (string, error) {
	return obtainToken(ctx, s.client)
}

func (configSession) Credentials() *tracker.Credentials {
	return cfg.Mhrs.credentials()
}

func openJournal(ctx context.Context, clock chrono.API) (journal.Journal, *sql.DB, error) {
	database, err := cfg.Journal.Database.OpenDB()
	if err != nil {
		return journal.Journal{}, nil, err
	}
	j, err := journal.Open(ctx, database, clock)
	if err != nil {
		database.Close()
		return journal.Journal{}, nil, err
	}
	return j, database, nil
}

func newTelegram() (*telegram.Client, error) {
	if cfg.Telegram.BotToken == "" {
		return nil, nil
	}
	return telegram.NewClient(telegram.ClientOptions{
		Token:   cfg.Telegram.BotToken,
		BaseUrl: cfg.Telegram.BaseUrl,
	})
}

// newNotifier fans events out to every configured channel. Without a
// console events are logged, bot is only used for trackers whose
// subscriber is a chat.
func newNotifier(console io.Writer, j journal.Journal, bot *telegram.Client) tracker.Notifier {
	notifiers := []tracker.Notifier{j}
	if console != nil {
		notifiers = append(notifiers, notify.NewConsole(console))
	} else {
		notifiers = append(notifiers, notify.Log{})
	}
	if bot != nil {
		chats := notify.NewTelegram(bot, "")
		notifiers = append(notifiers, tracker.NotifierFunc(func(ctx context.Context, event tracker.Event) error {
			if event.Tracker.Subscriber == consoleSubscriber {
				return nil
			}
			return chats.Notify(ctx, event)
		}))
	}
	if cfg.Email.enabled() {
		notifiers = append(notifiers, notify.Only(notify.NewEmail(cfg.Email.Smtp, cfg.Email.To), notify.Important...))
	}
	return notify.Multi(notifiers...)
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}
