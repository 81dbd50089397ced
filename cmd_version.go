package main

import (
	"github.com/spf13/cobra"

	"github.com/distantorigin/h5-companion/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the h5c version",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		v := version.Current()
		if v.Date != "" {
			printer.Always("h5c %s (%s)", v, v.Date)
			return nil
		}
		printer.Always("h5c %s", v)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
