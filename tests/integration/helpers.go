package integration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/distantorigin/h5-companion/internal/download"
	"github.com/distantorigin/h5-companion/internal/github"
	"github.com/distantorigin/h5-companion/internal/source"
	"github.com/distantorigin/h5-companion/internal/testutil"
)

// TestEnvironment is a game folder, a download folder and a mock GitHub
// serving both the API and the raw/asset hosts.
type TestEnvironment struct {
	T           *testing.T
	GameRoot    string
	DownloadDir string
	Server      *testutil.MockServer
	Fetcher     *source.Fetcher
}

// SetupTestEnvironment creates a Heroes V style install with bin and data.
func SetupTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()

	base := t.TempDir()
	env := &TestEnvironment{
		T:           t,
		GameRoot:    filepath.Join(base, "HeroesV"),
		DownloadDir: filepath.Join(base, "downloads"),
		Server:      testutil.NewMockServer(t),
	}
	for _, sub := range []string{"bin", "data"} {
		if err := os.MkdirAll(filepath.Join(env.GameRoot, sub), 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", sub, err)
		}
	}

	env.Fetcher = source.NewFetcher(download.NewClient(nil))
	env.Fetcher.GitHubAPIBase = env.Server.URL
	env.Fetcher.GitHubRawBase = env.Server.URL + "/raw"
	env.Fetcher.DriveBase = env.Server.URL + "/drive"
	return env
}

// PublishRelease serves a latest release of repo with one zip asset.
func (e *TestEnvironment) PublishRelease(repo, tag, asset string, entries map[string]string) {
	e.T.Helper()

	assetPath := "/assets/" + asset
	e.Server.SetFile(assetPath, testutil.ZipBytes(e.T, entries))

	rel := github.Release{
		TagName: tag,
		Assets: []github.Asset{{
			Name:               asset,
			BrowserDownloadURL: e.Server.URL + assetPath,
		}},
	}
	if err := e.Server.SetJSON("/repos/"+repo+"/releases/latest", 200, rel); err != nil {
		e.T.Fatalf("failed to publish release: %v", err)
	}
}

// ModEntries is a Universe_mod package as distributed: the launcher in bin,
// the archive in data, both nested under a top folder.
func ModEntries(t *testing.T) map[string]string {
	t.Helper()
	pak := testutil.ZipBytes(t, map[string]string{
		testutil.Creature("Haven", "Angel"):     testutil.Descriptor(3),
		testutil.Creature("Haven", "Peasant"):   testutil.Descriptor(22),
		testutil.Creature("Necropolis", "Lich"): testutil.Descriptor(2, 4),
		"Text/Game/Creatures/Angel.txt":         "Angel",
	})
	return map[string]string{
		"Universe_mod/":                      "",
		"Universe_mod/bin/H5_Universe.exe":   "MZ",
		"Universe_mod/data/Universe_mod.pak": string(pak),
		"Universe_mod/readme.txt":            "read me",
	}
}
