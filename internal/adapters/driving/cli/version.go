package cli

import (
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the entracopy version",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("entracopy %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
