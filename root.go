package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/distantorigin/h5-companion/internal/audio"
	"github.com/distantorigin/h5-companion/internal/config"
	"github.com/distantorigin/h5-companion/internal/console"
	"github.com/distantorigin/h5-companion/internal/pak"
	"github.com/distantorigin/h5-companion/internal/process"
	"github.com/distantorigin/h5-companion/internal/prompt"
)

var (
	configPath     string
	quiet          bool
	verbose        bool
	noSound        bool
	nonInteractive bool
)

// Set up by setup before any sub-command runs.
var (
	cfg      config.Config
	printer  *console.Printer
	player   *audio.Player
	prompter *prompt.Prompter
	logger   = slog.Default()

	// listProcesses is swapped out in tests.
	listProcesses process.Lister = process.System
)

var rootCmd = &cobra.Command{
	Use:   "h5c",
	Short: "Heroes of Might and Magic V companion",
	Long: `h5c scales creature weekly growth inside Universe_mod.pak, keeps a
backup of the original archive, and downloads and installs the mod packages.

Examples:
  h5c patch --factor 150%
  h5c patch --factor 200 --filter angel --dry-run
  h5c restore
  h5c fetch Universe_mod H5AI_31
  h5c install Universe_mod --root "C:\Games\HeroesV"`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVarP(&configPath, "config", "c", "", "config file (default $H5C_CONFIG or ./h5c.yaml)")
	f.BoolVarP(&quiet, "quiet", "q", false, "suppress output except the final result")
	f.BoolVarP(&verbose, "verbose", "v", false, "show debug logging")
	f.BoolVar(&noSound, "no-sound", false, "do not play sounds")
	f.BoolVar(&nonInteractive, "non-interactive", false, "never prompt; assume yes")
}

// execute runs the CLI and maps any failure to one error line and exit 1.
func execute(ctx context.Context, args []string) int {
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		reportError(rootCmd.ErrOrStderr(), err)
		return 1
	}
	return 0
}

func setup(cmd *cobra.Command, _ []string) error {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	path := config.ResolvePath(configPath)
	c, err := config.Load(path)
	if err != nil {
		return invalid(err)
	}
	cfg = c
	logger.Debug("config loaded", "path", path, "archive", cfg.ArchivePath())

	interactive := !nonInteractive && !cfg.NonInteractive

	printer = console.New(quiet, interactive)
	printer.Out = cmd.OutOrStdout()

	player = audio.NewPlayer(quiet || noSound, func(format string, args ...any) {
		logger.Debug(fmt.Sprintf(format, args...))
	})

	prompter = prompt.New(cmd.InOrStdin(), cmd.OutOrStdout(), !interactive)
	prompter.Sound = player
	return nil
}

func reportError(w io.Writer, err error) {
	line := fmt.Sprintf("error (%s): %v", errorKind(err), err)
	if printer != nil {
		printer.Done()
	}
	fmt.Fprintln(w, line)
	player.Play(audio.Error)
}

// guardGame warns when a game executable is running, since it keeps the
// archive open. With wait set it blocks until the game exits.
func guardGame(ctx context.Context, wait bool) error {
	running, err := process.Running(ctx, listProcesses, cfg.GameExecutables)
	if err != nil {
		logger.Debug("process check failed", "error", err)
		return nil
	}
	if len(running) == 0 {
		return nil
	}

	names := strings.Join(running, ", ")
	if wait {
		printer.Log("Waiting for %s to exit...", names)
		if err := process.WaitForExit(ctx, listProcesses, running, time.Second); err != nil {
			return err
		}
		return nil
	}

	printer.Always("Warning: %s is running and may hold the archive open.", names)
	if prompter.Confirm("Continue anyway?") {
		return nil
	}
	return &pak.Error{Kind: pak.KindPrecondition, State: pak.StateValidating, Err: fmt.Errorf("game is running: %s", names)}
}

// archiveFlag returns the --pak value or the configured archive.
func archiveFlag(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if p := cfg.ArchivePath(); p != "" {
		return p, nil
	}
	return "", invalid(fmt.Errorf("no archive given; use --pak or set pak_path"))
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
