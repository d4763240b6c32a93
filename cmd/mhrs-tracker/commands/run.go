package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mhrs-tracker/internal/components/chrono"
	"mhrs-tracker/services/chatbot"
	"mhrs-tracker/services/tracker"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the trackers declared in the config (and the Telegram bot) until interrupted.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		client, err := newMhrsClient()
		if err != nil {
			return err
		}
		bot, err := newTelegram()
		if err != nil {
			return err
		}
		if bot == nil && len(cfg.Trackers) == 0 {
			return errors.New("nothing to run: declare trackers in the config or configure a telegram bot")
		}

		clock := chrono.NewStandardImpl()
		j, database, err := openJournal(ctx, clock)
		if err != nil {
			return err
		}
		defer database.Close()

		cron := chrono.NewStandardCron()
		defer cron.Stop()
		err = j.SchedulePruning(
			ctx, cron,
			cfg.Journal.PruneSchedule,
			time.Duration(cfg.Journal.RetentionDays)*24*time.Hour,
		)
		if err != nil {
			return fmt.Errorf("schedule journal pruning: %w", err)
		}

		scheduler := tracker.NewScheduler(tracker.Options{
			API:      client,
			Notifier: newNotifier(nil, j, bot),
			Clock:    clock,
			Sleeper:  clock,
			Policy:   cfg.Polling.Policy(),
		})
		scheduler.Start(ctx)

		for i, tc := range cfg.Trackers {
			spec, err := tc.Spec(cfg.Mhrs, clock.Now())
			if err != nil {
				return fmt.Errorf("tracker %d: %w", i+1, err)
			}
			_, err = scheduler.CreateTracker(tc.subscriber(), spec)
			if err != nil {
				return fmt.Errorf("tracker %d: %w", i+1, err)
			}
		}

		if bot != nil {
			service := chatbot.NewService(chatbot.Options{
				Bot:          bot,
				Trackers:     scheduler,
				Lookup:       newLookup(client),
				Session:      configSession{client: client},
				Clock:        clock,
				Sleeper:      clock,
				AllowedChats: cfg.Telegram.AllowedChats,
			})
			go service.Run(ctx)
			slog.Info("telegram bot started")
			<-ctx.Done()
		} else {
			// without a bot nothing can add trackers, stop once all are done
			done := make(chan struct{})
			go func() {
				scheduler.Wait()
				close(done)
			}()
			select {
			case <-ctx.Done():
			case <-done:
				slog.Info("every tracker finished")
			}
		}

		scheduler.Wait()
		return nil
	},
}
