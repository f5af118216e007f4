package cmd

import (
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Ask the backend to re-import its source data",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, _, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		result, err := svc.Sync(cmd.Context(), newCLINotifier())
		if err != nil {
			return err
		}
		return printRawJSON(cmd, result)
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
