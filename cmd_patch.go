package main

import (
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/distantorigin/h5-companion/internal/audio"
	"github.com/distantorigin/h5-companion/internal/pak"
	"github.com/distantorigin/h5-companion/internal/paths"
)

var (
	patchPak    string
	patchFactor string
	patchFilter string
	patchBackup bool
	patchDryRun bool
	patchCopy   bool
	patchWait   bool
)

var patchCmd = &cobra.Command{
	Use:   "patch",
	Short: "Scale WeeklyGrowth of every creature in the archive",
	Long: `Extract the archive, multiply the WeeklyGrowth value of each creature
descriptor by the chosen factor, and swap the repacked archive into place.

With --dry-run nothing is written; the command reports how many descriptors
would change and shows one sample.`,
	Args: cobra.NoArgs,
	RunE: runPatch,
}

func init() {
	f := patchCmd.Flags()
	f.StringVarP(&patchPak, "pak", "p", "", "archive to patch (default from config)")
	f.StringVarP(&patchFactor, "factor", "f", "", "growth factor label, e.g. 150% (default from config)")
	f.StringVar(&patchFilter, "filter", "", "only descriptors whose file name contains this text")
	f.BoolVar(&patchBackup, "backup", true, "keep a .backup copy of the original archive")
	f.BoolVarP(&patchDryRun, "dry-run", "n", false, "preview changes without writing")
	f.BoolVar(&patchCopy, "copy", false, "copy the summary line to the clipboard")
	f.BoolVar(&patchWait, "wait", false, "wait for the game to exit instead of asking")

	rootCmd.AddCommand(patchCmd)
}

func runPatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	archive, err := archiveFlag(patchPak)
	if err != nil {
		return err
	}
	engine, err := cfg.Engine(patchFactor)
	if err != nil {
		return invalid(err)
	}
	loc, err := cfg.Locator()
	if err != nil {
		return invalid(err)
	}

	backup := cfg.Backup
	if cmd.Flags().Changed("backup") {
		backup = patchBackup
	}

	if !patchDryRun {
		if err := guardGame(ctx, patchWait); err != nil {
			return err
		}
	}

	var runner pak.Runner
	task, err := runner.Start(ctx, pak.Options{
		ArchivePath:  archive,
		Engine:       engine,
		Locator:      loc,
		CreaturesDir: paths.Normalize(cfg.Patch.CreaturesDir),
		Filter:       patchFilter,
		Backup:       backup,
		DryRun:       patchDryRun,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	label := "Starting"
	for ev := range task.Events() {
		switch ev.Kind {
		case pak.EventState:
			label = title(ev.State.String())
		case pak.EventProgress:
			printer.Progress(label, ev.Progress)
		case pak.EventLog:
			printer.Log("%s", ev.Message)
		}
	}

	report, err := task.Wait()
	printer.Done()
	if err != nil {
		return err
	}

	if printer.Quiet {
		printer.Always("%s", report.Summary())
	}
	if len(report.Malformed) > 0 {
		logger.Warn("descriptors skipped", "count", len(report.Malformed), "archive", filepath.Base(archive))
	}
	if patchCopy {
		if err := clipboard.WriteAll(report.Summary()); err != nil {
			logger.Warn("failed to copy summary", "error", err)
		}
	}

	player.Play(audio.Success)
	return nil
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
