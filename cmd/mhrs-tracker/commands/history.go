package commands

import (
	"mhrs-tracker/internal/components/chrono"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var historyLimit int

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of entries to show.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List found and booked slots from the journal, newest first.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		j, database, err := openJournal(cmd.Context(), chrono.NewStandardImpl())
		if err != nil {
			return err
		}
		defer database.Close()

		entries, err := j.List(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}

		t := newTable()
		t.AppendHeader(table.Row{"At", "Event", "Tracker", "Clinic", "Physician", "Slot", "Detail"})
		for _, e := range entries {
			slot := ""
			if !e.SlotStart.IsZero() {
				slot = e.SlotStart.Format(timeLayout)
			}
			clinic := e.Clinic
			if clinic == "" {
				clinic = e.Filter
			}
			t.AppendRow(table.Row{e.At.Format(timeLayout), e.Kind, e.TrackerCode, clinic, e.Physician, slot, e.Detail})
		}
		t.Render()
		return nil
	},
}

const timeLayout = "02.01.2006 15:04"
