package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/distantorigin/h5-companion/internal/audio"
	"github.com/distantorigin/h5-companion/internal/install"
	"github.com/distantorigin/h5-companion/internal/source"
)

var (
	installRoot   string
	installZip    string
	installBrowse bool
	installFetch  bool
)

var installCmd = &cobra.Command{
	Use:   "install <name>",
	Short: "Copy a downloaded package into the game folder",
	Long: `Copy the files of a downloaded package into the bin and data folders
of the game. Existing files are only replaced after confirmation.

Examples:
  h5c install Universe_mod --root "C:\Games\HeroesV"
  h5c install H5AI_31 --browse --fetch`,
	Args: cobra.ExactArgs(1),
	RunE: runInstall,
}

func init() {
	f := installCmd.Flags()
	f.StringVarP(&installRoot, "root", "r", "", "game folder (default from config)")
	f.StringVar(&installZip, "zip", "", "package zip (default <download dir>/<name>.zip)")
	f.BoolVar(&installBrowse, "browse", false, "pick the game folder in a dialog")
	f.BoolVar(&installFetch, "fetch", false, "download the package first if the zip is missing")

	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	name := args[0]

	plan, err := install.Lookup(cfg.Install, name)
	if err != nil {
		return invalid(err)
	}

	root := installRoot
	if root == "" {
		root = cfg.GameRoot
	}
	if installBrowse {
		root, err = prompter.SelectFolder("Select the Heroes V folder", root)
		if err != nil {
			return err
		}
	}
	if !install.LooksLikeGameRoot(root) {
		printer.Always("Warning: %s has no bin and data folders.", root)
		if !prompter.Confirm("Install there anyway?") {
			return fmt.Errorf("%w: %q", install.ErrInvalidRoot, root)
		}
	}

	zipPath := installZip
	if zipPath == "" {
		zipPath = filepath.Join(cfg.DownloadDir, source.Source{Name: name}.FileName())
	}
	if installFetch && !fileExists(zipPath) {
		s, err := source.Find(cfg.Sources, name)
		if err != nil {
			return invalid(err)
		}
		if _, err := fetchSources(cmd, []source.Source{s}, filepath.Dir(zipPath)); err != nil {
			return err
		}
		zipPath = filepath.Join(filepath.Dir(zipPath), s.FileName())
	}

	entries, err := install.Install(cmd.Context(), install.Options{
		ZipPath: zipPath,
		Root:    root,
		Plan:    plan,
		Confirm: prompter.ConfirmOverwrite,
		Log:     printer.Log,
	})
	if err != nil {
		return err
	}

	counts := map[install.Outcome]int{}
	for _, e := range entries {
		counts[e.Outcome]++
	}
	printer.Always("Installed %d, skipped %d, missing %d", counts[install.Installed], counts[install.Skipped], counts[install.Missing])
	player.Play(audio.Success)
	return nil
}
