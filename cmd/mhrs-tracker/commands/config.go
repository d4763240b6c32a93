package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"mhrs-tracker/lib/configutil"
	configlibsql "mhrs-tracker/lib/configutil/libsql"
	"mhrs-tracker/lib/telemetry"
	"mhrs-tracker/lib/timezone"
	"mhrs-tracker/services/notify"
	"mhrs-tracker/services/tracker"
)

type MhrsConfig struct {
	BaseUrl           string  `json:"base_url"`
	UserAgent         string  `json:"user_agent"`
	RequestsPerSecond float64 `json:"requests_per_second"`
	BypassCloudflare  bool    `json:"bypass_cloudflare"`
	Identity          string  `json:"identity"`
	Secret            string  `json:"secret"`
	Token             string  `json:"token"`
}

func (c MhrsConfig) credentials() *tracker.Credentials {
	if c.Identity == "" || c.Secret == "" {
		return nil
	}
	return &tracker.Credentials{Identity: c.Identity, Secret: c.Secret}
}

// PollingConfig overrides the wait policy, durations are in seconds and
// zero keeps the default.
type PollingConfig struct {
	ShortWaitMin         int     `json:"short_wait_min"`
	ShortWaitMax         int     `json:"short_wait_max"`
	LongBreakAfter       int     `json:"long_break_after"`
	LongBreakProbability float64 `json:"long_break_probability"`
	LongBreakMin         int     `json:"long_break_min"`
	LongBreakMax         int     `json:"long_break_max"`
	RefreshAttempts      int     `json:"refresh_attempts"`
	RefreshJitterMin     int     `json:"refresh_jitter_min"`
	RefreshJitterMax     int     `json:"refresh_jitter_max"`
	Cooldown             int     `json:"cooldown"`
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func (c PollingConfig) Policy() tracker.Policy {
	return tracker.Policy{
		ShortWaitMin:         seconds(c.ShortWaitMin),
		ShortWaitMax:         seconds(c.ShortWaitMax),
		LongBreakAfter:       c.LongBreakAfter,
		LongBreakProbability: c.LongBreakProbability,
		LongBreakMin:         seconds(c.LongBreakMin),
		LongBreakMax:         seconds(c.LongBreakMax),
		RefreshAttempts:      c.RefreshAttempts,
		RefreshJitterMin:     seconds(c.RefreshJitterMin),
		RefreshJitterMax:     seconds(c.RefreshJitterMax),
		Cooldown:             seconds(c.Cooldown),
	}.WithDefaults()
}

type TelegramConfig struct {
	BotToken string `json:"bot_token"`
	BaseUrl  string `json:"base_url"`
	// chats allowed to command the bot, empty allows everyone
	AllowedChats []int64 `json:"allowed_chats"`
}

type EmailConfig struct {
	Smtp notify.SmtpConfig `json:"smtp"`
	To   []string          `json:"to"`
}

func (c EmailConfig) enabled() bool {
	return c.Smtp.Server != "" && len(c.To) > 0
}

type JournalConfig struct {
	Database      configlibsql.Struct `json:"database"`
	RetentionDays int                 `json:"retention_days"`
	PruneSchedule string              `json:"prune_schedule"`
}

// TrackerConfig declares a tracker started by the run command.
type TrackerConfig struct {
	// telegram chat id events go to, empty means the console
	Subscriber string `json:"subscriber"`
	Mode       string `json:"mode"`
	// YYYY-MM-DD, only the number of days between them matters
	Start string `json:"start"`
	End   string `json:"end"`
	// overrides mhrs.token
	Token string `json:"token"`

	Filter tracker.Filter `json:"filter"`
}

const consoleSubscriber = tracker.SubscriberId("console")

func (c TrackerConfig) subscriber() tracker.SubscriberId {
	if c.Subscriber == "" {
		return consoleSubscriber
	}
	return tracker.SubscriberId(c.Subscriber)
}

func (c TrackerConfig) Spec(mhrsConfig MhrsConfig, today time.Time) (tracker.Spec, error) {
	mode, err := tracker.ParseMode(c.Mode)
	if err != nil {
		return tracker.Spec{}, err
	}
	window, err := parseWindow(c.Start, c.End, today)
	if err != nil {
		return tracker.Spec{}, err
	}
	token := c.Token
	if token == "" {
		token = mhrsConfig.Token
	}
	return tracker.Spec{
		Filter:      c.Filter,
		Mode:        mode,
		Window:      window,
		Token:       token,
		Credentials: mhrsConfig.credentials(),
	}, nil
}

const defaultWindowDays = tracker.DefaultWindowDays

// parseWindow reads YYYY-MM-DD dates, an empty start is today and an
// empty end is two weeks after start.
func parseWindow(start, end string, today time.Time) (tracker.Window, error) {
	window := tracker.Window{Start: timezone.StartOfDay(today)}
	var err error
	if start != "" {
		window.Start, err = time.ParseInLocation(time.DateOnly, start, timezone.Location)
		if err != nil {
			return tracker.Window{}, fmt.Errorf("start date: %w", err)
		}
	}
	window.End = window.Start.AddDate(0, 0, defaultWindowDays)
	if end != "" {
		window.End, err = time.ParseInLocation(time.DateOnly, end, timezone.Location)
		if err != nil {
			return tracker.Window{}, fmt.Errorf("end date: %w", err)
		}
	}
	if window.End.Before(window.Start) {
		return tracker.Window{}, tracker.ErrInvalidWindow
	}
	return window, nil
}

type Config struct {
	Mhrs     MhrsConfig     `json:"mhrs"`
	Polling  PollingConfig  `json:"polling"`
	Telegram TelegramConfig `json:"telegram"`
	Email    EmailConfig    `json:"email"`
	Journal  JournalConfig  `json:"journal"`
	// otlp export, off unless telemetry.endpoint is set
	Telemetry telemetry.Config `json:"telemetry"`
	// minutes, 0 means 6 hours
	LookupCacheMinutes int             `json:"lookup_cache_minutes"`
	Trackers           []TrackerConfig `json:"trackers"`
}

// LoadConfig reads path (plus its .local variant), a missing file gives
// the defaults. Secrets set in the environment win over the file.
func LoadConfig(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if errors.Is(err, os.ErrNotExist) {
		slog.Debug("no config file, using defaults", "path", path)
		err = nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("read %s: %w", path, err)
	}

	configutil.OverrideFromEnv(&cfg.Mhrs.Identity, "MHRS_IDENTITY")
	configutil.OverrideFromEnv(&cfg.Mhrs.Secret, "MHRS_SECRET")
	configutil.OverrideFromEnv(&cfg.Mhrs.Token, "MHRS_TOKEN")
	configutil.OverrideFromEnv(&cfg.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	configutil.OverrideFromEnv(&cfg.Email.Smtp.Password, "SMTP_PASSWORD")
	configutil.OverrideFromEnv(&cfg.Telemetry.Endpoint, "MHRS_OTLP_ENDPOINT")

	if cfg.Journal.Database.File == "" && cfg.Journal.Database.Url == "" {
		cfg.Journal.Database.File = "mhrs-journal.db"
	}
	if cfg.Journal.RetentionDays <= 0 {
		cfg.Journal.RetentionDays = 90
	}
	if cfg.Journal.PruneSchedule == "" {
		cfg.Journal.PruneSchedule = "@daily"
	}
	if cfg.LookupCacheMinutes <= 0 {
		cfg.LookupCacheMinutes = 6 * 60
	}
	return cfg, nil
}
