package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(profileCmd)
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Print the name of the patient the token belongs to.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newMhrsClient()
		if err != nil {
			return err
		}
		token, err := obtainToken(cmd.Context(), client)
		if err != nil {
			return err
		}
		patient, err := client.Profile(cmd.Context(), token)
		if err != nil {
			return err
		}
		fmt.Println(patient.FullName())
		return nil
	},
}
