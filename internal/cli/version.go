package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		if JSONOutput {
			return outputSuccess(map[string]any{
				"version": Version,
				"go":      runtime.Version(),
			})
		}
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "spreadfire version %s (%s)\n", Version, runtime.Version())
		return err
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
