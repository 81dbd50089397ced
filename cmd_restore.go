package main

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/distantorigin/h5-companion/internal/audio"
	"github.com/distantorigin/h5-companion/internal/pak"
)

var (
	restorePak  string
	restoreWait bool
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Put the .backup copy back in place of the archive",
	Args:  cobra.NoArgs,
	RunE:  runRestore,
}

func init() {
	restoreCmd.Flags().StringVarP(&restorePak, "pak", "p", "", "archive to restore (default from config)")
	restoreCmd.Flags().BoolVar(&restoreWait, "wait", false, "wait for the game to exit instead of asking")

	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, _ []string) error {
	archive, err := archiveFlag(restorePak)
	if err != nil {
		return err
	}
	if err := guardGame(cmd.Context(), restoreWait); err != nil {
		return err
	}

	if err := pak.Restore(archive); err != nil {
		return err
	}
	logger.Debug("archive restored", "archive", archive)
	printer.Always("Restored %s from %s", filepath.Base(archive), filepath.Base(pak.BackupPath(archive)))
	player.Play(audio.Success)
	return nil
}
