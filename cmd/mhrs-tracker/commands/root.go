package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"mhrs-tracker/lib/configutil"
	"mhrs-tracker/lib/mhrs"
	"mhrs-tracker/lib/restyutil"
	"mhrs-tracker/lib/serviceutil"
	"mhrs-tracker/lib/telemetry"

	"github.com/spf13/cobra"
)

// set with -ldflags "-X mhrs-tracker/cmd/mhrs-tracker/commands.version=..."
var version = "dev"

var (
	verbose    bool
	configPath string

	cfg Config
	tel telemetry.Telemetry
)

var rootCmd = &cobra.Command{
	Use:          "mhrs-tracker",
	Short:        "mhrs-tracker watches MHRS for free appointment slots and optionally books them.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)

		err := configutil.LoadDotenv()
		if err != nil {
			return err
		}
		cfg, err = LoadConfig(configPath)
		if err != nil {
			return err
		}

		initTelemetry(cmd.Context())
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		err := tel.Shutdown(context.Background())
		if err != nil {
			slog.Warn("failed to shutdown telemetry", "err", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging/instrumentation.")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json5", "Path to the config file.")
}

func initTelemetry(ctx context.Context) {
	var err error
	tel, err = telemetry.Setup(ctx, telemetry.Service{Name: "mhrs-tracker", Version: version}, cfg.Telemetry)
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	if !verbose {
		return
	}

	output, err := restyutil.NewFilesystemOutput("<dev_state>/resty/mhrs")
	if err != nil {
		slog.Debug("request dumps disabled", "err", err)
		return
	}
	mhrs.SetRestyInstrumentOutput(output)
}

func Execute() {
	ctx := serviceutil.SignalContext()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
