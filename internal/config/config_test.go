package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/distantorigin/h5-companion/internal/patch"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "h5c.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "150%", cfg.Factor)
	assert.True(t, cfg.Backup)
	assert.Equal(t, patch.DefaultField, cfg.Patch.Field)
	assert.Len(t, cfg.Sources, 4)
	assert.Contains(t, cfg.Install, "Universe_mod")
	assert.Equal(t, filepath.Join(DefaultGameRoot, "data", DefaultPakName), cfg.ArchivePath())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
pak_path: /games/h5/data/Universe_mod.pak
factor: "200%"
backup: false
concurrency: 4
patch:
  categories: [Haven, Inferno]
sources:
  - name: Custom
    kind: http
    url: https://example.com/custom.zip
install:
  Custom:
    - dir: data
      files: [custom.pak]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/games/h5/data/Universe_mod.pak", cfg.ArchivePath())
	assert.Equal(t, "200%", cfg.Factor)
	assert.False(t, cfg.Backup)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, []string{"Haven", "Inferno"}, cfg.Patch.Categories)
	assert.Equal(t, ".xdb", cfg.Patch.Extension)
	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, "Custom", cfg.Sources[0].Name)
	assert.Contains(t, cfg.Install, "Custom")
	assert.Contains(t, cfg.Install, "H5AI_31")
}

func TestLoad_EnvironmentWins(t *testing.T) {
	path := writeConfig(t, "factor: \"200%\"\n")
	t.Setenv("H5C_FACTOR", "75%")
	t.Setenv("H5C_BACKUP", "false")
	t.Setenv("H5C_GAME_ROOT", "/opt/heroes")
	t.Setenv("H5C_GITHUB_TOKEN", "tok")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "75%", cfg.Factor)
	assert.False(t, cfg.Backup)
	assert.Equal(t, "tok", cfg.GitHubToken)
	assert.Equal(t, filepath.Join("/opt/heroes", "data", DefaultPakName), cfg.ArchivePath())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown factor", "factor: \"999%\"\n", "unknown factor"},
		{"no categories", "patch:\n  categories: []\n", "no category folders"},
		{"bad category", "patch:\n  categories: [\"../x\"]\n", "invalid category"},
		{"bad source", "sources:\n  - name: x\n    kind: ftp\n", "unknown kind"},
		{"bad plan", "install:\n  x:\n    - dir: ../bin\n      files: [a]\n", "invalid install plan"},
		{"zero concurrency", "concurrency: 0\n", "concurrency"},
		{"broken yaml", "factor: [\n", "failed to parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestResolvePath(t *testing.T) {
	t.Setenv(PathEnv, "")
	assert.Equal(t, DefaultFile, ResolvePath(""))

	t.Setenv(PathEnv, "/etc/h5c.yaml")
	assert.Equal(t, "/etc/h5c.yaml", ResolvePath(""))
	assert.Equal(t, "flag.yaml", ResolvePath("flag.yaml"))
}

func TestEngine(t *testing.T) {
	cfg := Default()

	e, err := cfg.Engine("")
	require.NoError(t, err)
	assert.InDelta(t, 1.5, e.Factor, 1e-9)
	assert.Equal(t, patch.DefaultField, e.Field)

	e, err = cfg.Engine("50")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, e.Factor, 1e-9)

	_, err = cfg.Engine("42%")
	assert.ErrorIs(t, err, patch.ErrUnknownFactor)
}

func TestArchivePath_Empty(t *testing.T) {
	cfg := Config{}
	assert.Empty(t, cfg.ArchivePath())
}
