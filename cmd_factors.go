package main

import (
	"strings"

	"github.com/spf13/cobra"
)

var factorsCmd = &cobra.Command{
	Use:   "factors",
	Short: "List the growth factors",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		def, _ := cfg.Patch.Factors.Lookup(cfg.Factor)
		for _, f := range cfg.Patch.Factors {
			mark := " "
			if strings.EqualFold(f.Label, def.Label) {
				mark = "*"
			}
			printer.Always("%s %-5s x%.2f", mark, f.Label, f.Value)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(factorsCmd)
}
