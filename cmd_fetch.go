package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/distantorigin/h5-companion/internal/audio"
	"github.com/distantorigin/h5-companion/internal/download"
	"github.com/distantorigin/h5-companion/internal/source"
	"github.com/distantorigin/h5-companion/internal/version"
)

var (
	fetchDir string
	fetchAll bool
)

var fetchCmd = &cobra.Command{
	Use:   "fetch [name...]",
	Short: "Download mod packages",
	Long: `Download one or more packages by name into the download folder as
<name>.zip. Without names an interactive menu is shown.

Examples:
  h5c fetch Universe_mod
  h5c fetch --all --dir D:\Downloads`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchDir, "dir", "d", "", "download folder (default from config)")
	fetchCmd.Flags().BoolVar(&fetchAll, "all", false, "fetch every configured package")
	rootCmd.AddCommand(fetchCmd)
}

// newFetcher is swapped out in tests.
var newFetcher = func() *source.Fetcher {
	httpClient := &http.Client{Timeout: 30 * time.Minute}
	dl := download.NewClient(httpClient)
	dl.SetUserAgent(version.UserAgent())
	f := source.NewFetcher(dl)
	f.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	f.GitHubToken = cfg.GitHubToken
	return f
}

func runFetch(cmd *cobra.Command, args []string) error {
	sources, err := selectSources(args)
	if err != nil {
		return err
	}

	dir := fetchDir
	if dir == "" {
		dir = cfg.DownloadDir
	}

	printer.Log("Downloading %d package(s) to %s", len(sources), dir)
	results, err := fetchSources(cmd, sources, dir)
	if err != nil {
		return err
	}

	for _, res := range results {
		printer.Always("%s: %s", res.Name, res)
	}
	player.Play(audio.Success)
	return nil
}

func selectSources(args []string) ([]source.Source, error) {
	if fetchAll {
		return cfg.Sources, nil
	}

	if len(args) == 0 {
		names := source.Names(cfg.Sources)
		i, err := prompter.Choose("Which package do you want to download?", names)
		if err != nil {
			return nil, err
		}
		args = []string{names[i]}
	}

	out := make([]source.Source, 0, len(args))
	for _, name := range args {
		s, err := source.Find(cfg.Sources, name)
		if err != nil {
			return nil, invalid(err)
		}
		out = append(out, s)
	}
	return out, nil
}

func fetchSources(cmd *cobra.Command, sources []source.Source, dir string) ([]download.Result, error) {
	f := newFetcher()
	ctx := cmd.Context()

	if len(sources) == 1 {
		s := sources[0]
		res, err := f.Fetch(ctx, s, dir, func(_, _ int64, pct int) {
			printer.Progress(s.Name, pct)
		})
		printer.Done()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name, err)
		}
		return []download.Result{res}, nil
	}

	results, err := f.FetchAll(ctx, sources, dir, cfg.Concurrency, func(job download.Job, _, _ int64, pct int) {
		if pct == 100 {
			printer.Log("%s finished", job.Name)
		}
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}
