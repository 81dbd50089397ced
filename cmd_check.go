package main

import (
	"github.com/spf13/cobra"

	"github.com/distantorigin/h5-companion/internal/pak"
)

var checkPak string

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report read and write access for the archive",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkPak, "pak", "p", "", "archive to check (default from config)")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(_ *cobra.Command, _ []string) error {
	archive, err := archiveFlag(checkPak)
	if err != nil {
		return err
	}

	a := pak.Check(archive)
	if !a.Exists {
		printer.Always("%s: not found", archive)
	}
	printer.Always("%s", a)

	if fileExists(pak.BackupPath(archive)) {
		printer.Log("Backup: %s", pak.BackupPath(archive))
	} else {
		printer.Log("Backup: none")
	}
	return nil
}
