package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"mhrs-tracker/internal/components/chrono"
	"mhrs-tracker/lib/mhrs"
	"mhrs-tracker/lib/timezone"
	"mhrs-tracker/services/lookup"
	"mhrs-tracker/services/tracker"

	"github.com/spf13/cobra"
	"github.com/tcnksm/go-input"
)

var watchFlags struct {
	token       string
	region      string
	district    string
	clinic      string
	institution string
	physician   string
	mode        string
	start       string
	end         string
}

func init() {
	f := watchCmd.Flags()
	f.StringVar(&watchFlags.token, "token", "", "MHRS token, asked for when neither it nor credentials are configured.")
	f.StringVar(&watchFlags.region, "region", "", "Region: plate code, #row or name.")
	f.StringVar(&watchFlags.district, "district", "", "District: id, #row or name.")
	f.StringVar(&watchFlags.clinic, "clinic", "", "Clinic: id, #row or name.")
	f.StringVar(&watchFlags.institution, "institution", "", "Institution: id, #row or name, -1 for any.")
	f.StringVar(&watchFlags.physician, "physician", "", "Physician: id, #row or name, -1 for any.")
	f.StringVar(&watchFlags.mode, "mode", "", "notify or book.")
	f.StringVar(&watchFlags.start, "start", "", "First day of the window (YYYY-MM-DD).")
	f.StringVar(&watchFlags.end, "end", "", "Last day of the window (YYYY-MM-DD).")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Pick a clinic interactively and watch it for a free slot in this terminal.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		w := wizard{ui: input.DefaultUI()}

		client, err := newMhrsClient()
		if err != nil {
			return err
		}
		token, err := w.token(ctx, client)
		if err != nil {
			return err
		}
		patient, err := client.Profile(ctx, token)
		if err != nil {
			slog.Warn("could not read the patient profile", "err", err)
		} else {
			fmt.Printf("Hello %s.\n\n", patient.FullName())
		}

		spec, err := w.spec(ctx, newLookup(client), token)
		if err != nil {
			return err
		}
		return watch(ctx, client, spec)
	},
}

type wizard struct {
	ui *input.UI
}

func (w wizard) token(ctx context.Context, client *mhrs.Client) (string, error) {
	if watchFlags.token != "" {
		return watchFlags.token, nil
	}
	token, err := obtainToken(ctx, client)
	if !errors.Is(err, errNoToken) {
		return token, err
	}
	return w.ui.Ask("MHRS token:", &input.Options{Required: true, Loop: true, Mask: true, HideOrder: true})
}

// pick resolves preset when given, otherwise it lists the options and asks
// until the answer matches one.
func (w wizard) pick(label string, options []mhrs.Option, preset string) (mhrs.Option, error) {
	if len(options) == 0 {
		return mhrs.Option{}, fmt.Errorf("MHRS returned no %s to choose from", label)
	}
	if preset != "" {
		picked, ok := lookup.Resolve(options, preset)
		if !ok {
			return mhrs.Option{}, fmt.Errorf("no %s matches %q", label, preset)
		}
		return picked, nil
	}
	if len(options) == 1 {
		fmt.Printf("%s: %s\n", label, options[0].Text)
		return options[0], nil
	}

	renderOptions(options)
	var picked mhrs.Option
	_, err := w.ui.Ask(fmt.Sprintf("%s (id, #row or name):", label), &input.Options{
		Required:  true,
		Loop:      true,
		HideOrder: true,
		ValidateFunc: func(answer string) error {
			o, ok := lookup.Resolve(options, answer)
			if !ok {
				return fmt.Errorf("no %s matches %q", label, answer)
			}
			picked = o
			return nil
		},
	})
	if err != nil {
		return mhrs.Option{}, err
	}
	fmt.Printf("%s: %s\n\n", label, picked.Text)
	return picked, nil
}

func (w wizard) ask(query, preset, fallback string, validate func(string) error) (string, error) {
	if preset != "" {
		return preset, validate(preset)
	}
	return w.ui.Ask(query, &input.Options{
		Default:      fallback,
		Loop:         true,
		HideOrder:    true,
		ValidateFunc: validate,
	})
}

func (w wizard) spec(ctx context.Context, lookups lookup.Service, token string) (tracker.Spec, error) {
	region, err := w.pick("region", lookup.Regions(), watchFlags.region)
	if err != nil {
		return tracker.Spec{}, err
	}
	districts, err := lookups.Districts(ctx, token, region.Value)
	if err != nil {
		return tracker.Spec{}, err
	}
	district, err := w.pick("district", districts, watchFlags.district)
	if err != nil {
		return tracker.Spec{}, err
	}
	clinics, err := lookups.Clinics(ctx, token, region.Value, district.Value)
	if err != nil {
		return tracker.Spec{}, err
	}
	clinic, err := w.pick("clinic", clinics, watchFlags.clinic)
	if err != nil {
		return tracker.Spec{}, err
	}
	institutions, err := lookups.Institutions(ctx, token, region.Value, district.Value, clinic.Value)
	if err != nil {
		return tracker.Spec{}, err
	}
	institution, err := w.pick("institution", institutions, watchFlags.institution)
	if err != nil {
		return tracker.Spec{}, err
	}
	physicians, err := lookups.Physicians(ctx, token, institution.Value, clinic.Value)
	if err != nil {
		return tracker.Spec{}, err
	}
	physician, err := w.pick("physician", physicians, watchFlags.physician)
	if err != nil {
		return tracker.Spec{}, err
	}

	modeText, err := w.ask("mode, notify or book:", watchFlags.mode, tracker.ModeNotify.String(), func(s string) error {
		_, err := tracker.ParseMode(s)
		return err
	})
	if err != nil {
		return tracker.Spec{}, err
	}
	mode, _ := tracker.ParseMode(modeText)

	today := timezone.StartOfDay(timezone.Now())
	validDate := func(s string) error {
		_, err := time.ParseInLocation(time.DateOnly, s, timezone.Location)
		return err
	}
	start, err := w.ask("first day (YYYY-MM-DD):", watchFlags.start, today.Format(time.DateOnly), validDate)
	if err != nil {
		return tracker.Spec{}, err
	}
	end, err := w.ask("last day (YYYY-MM-DD):", watchFlags.end, today.AddDate(0, 0, defaultWindowDays).Format(time.DateOnly), validDate)
	if err != nil {
		return tracker.Spec{}, err
	}
	window, err := parseWindow(start, end, today)
	if err != nil {
		return tracker.Spec{}, err
	}

	return tracker.Spec{
		Filter: tracker.Filter{
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
		},
		Mode:        mode,
		Window:      window,
		Token:       token,
		Credentials: cfg.Mhrs.credentials(),
	}, nil
}

// watch runs a single tracker in this terminal until it finishes or the
// process is interrupted.
func watch(ctx context.Context, api tracker.API, spec tracker.Spec) error {
	clock := chrono.NewStandardImpl()
	j, database, err := openJournal(ctx, clock)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	finished := make(chan struct{})
	notifier := newNotifier(os.Stdout, j, nil)
	scheduler := tracker.NewScheduler(tracker.Options{
		API: api,
		Notifier: tracker.NotifierFunc(func(ctx context.Context, event tracker.Event) error {
			err := notifier.Notify(ctx, event)
			if event.Kind.Terminal() {
				close(finished)
			}
			return err
		}),
		Clock:   clock,
		Sleeper: clock,
		Policy:  cfg.Polling.Policy(),
	})
	scheduler.Start(ctx)

	id, err := scheduler.CreateTracker(consoleSubscriber, spec)
	if err != nil {
		return err
	}
	for _, info := range scheduler.List(consoleSubscriber) {
		if info.Id == id {
			fmt.Printf("Watching %s as %s (%s mode), press Ctrl+C to stop.\n\n", info.Filter, info.Code, info.Mode)
		}
	}

	select {
	case <-finished:
	case <-ctx.Done():
	}
	cancel()
	scheduler.Wait()
	return nil
}
