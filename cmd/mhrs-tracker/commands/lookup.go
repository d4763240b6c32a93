package commands

import (
	"context"

	"mhrs-tracker/lib/mhrs"
	"mhrs-tracker/services/lookup"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var lookupFlags struct {
	region      int64
	district    int64
	clinic      int64
	institution int64
}

func init() {
	lookupCmd.PersistentFlags().Int64Var(&lookupFlags.region, "region", 0, "Region (province plate code).")
	lookupCmd.PersistentFlags().Int64Var(&lookupFlags.district, "district", 0, "District id.")
	lookupCmd.PersistentFlags().Int64Var(&lookupFlags.clinic, "clinic", 0, "Clinic id.")
	lookupCmd.PersistentFlags().Int64Var(&lookupFlags.institution, "institution", 0, "Institution id.")

	lookupCmd.AddCommand(
		lookupCommand("regions", "List regions.", nil),
		lookupCommand("districts", "List the districts of --region.", func(ctx context.Context, s lookup.Service, token string) ([]mhrs.Option, error) {
			return s.Districts(ctx, token, lookupFlags.region)
		}),
		lookupCommand("clinics", "List the clinics of --region and --district.", func(ctx context.Context, s lookup.Service, token string) ([]mhrs.Option, error) {
			return s.Clinics(ctx, token, lookupFlags.region, lookupFlags.district)
		}),
		lookupCommand("institutions", "List the institutions of --region and --district with --clinic.", func(ctx context.Context, s lookup.Service, token string) ([]mhrs.Option, error) {
			return s.Institutions(ctx, token, lookupFlags.region, lookupFlags.district, lookupFlags.clinic)
		}),
		lookupCommand("physicians", "List the physicians of --clinic in --institution.", func(ctx context.Context, s lookup.Service, token string) ([]mhrs.Option, error) {
			return s.Physicians(ctx, token, lookupFlags.institution, lookupFlags.clinic)
		}),
	)
	rootCmd.AddCommand(lookupCmd)
}

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "List the ids MHRS uses for regions, districts, clinics, institutions and physicians.",
}

type lookupFunc func(ctx context.Context, s lookup.Service, token string) ([]mhrs.Option, error)

// lookupCommand builds a listing subcommand, a nil fetch lists the regions
// which need no request.
func lookupCommand(use, short string, fetch lookupFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			options := lookup.Regions()
			if fetch != nil {
				client, err := newMhrsClient()
				if err != nil {
					return err
				}
				token, err := obtainToken(cmd.Context(), client)
				if err != nil {
					return err
				}
				options, err = fetch(cmd.Context(), newLookup(client), token)
				if err != nil {
					return err
				}
			}
			renderOptions(options)
			return nil
		},
	}
}

func renderOptions(options []mhrs.Option) {
	t := newTable()
	t.AppendHeader(table.Row{"#", "Id", "Name"})
	for i, o := range options {
		t.AppendRow(table.Row{i + 1, o.Value, o.Text})
	}
	t.Render()
}
