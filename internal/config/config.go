// Package config loads h5c settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/distantorigin/h5-companion/internal/install"
	"github.com/distantorigin/h5-companion/internal/locator"
	"github.com/distantorigin/h5-companion/internal/pak"
	"github.com/distantorigin/h5-companion/internal/patch"
	"github.com/distantorigin/h5-companion/internal/process"
	"github.com/distantorigin/h5-companion/internal/source"
)

const (
	// DefaultFile is read from the working directory when no path is given.
	DefaultFile = "h5c.yaml"
	// PathEnv names the variable that points at the config file.
	PathEnv = "H5C_CONFIG"
	// DefaultPakName is the archive patched inside <game root>/data.
	DefaultPakName = "Universe_mod.pak"
	// DefaultGameRoot is where the game is installed by default.
	DefaultGameRoot = `C:\Games\HeroesV`
)

// Config holds every setting. Fields tagged env are overridden by the
// environment after the file is read.
type Config struct {
	PakPath        string `yaml:"pak_path" env:"H5C_PAK_PATH"`
	GameRoot       string `yaml:"game_root" env:"H5C_GAME_ROOT"`
	DownloadDir    string `yaml:"download_dir" env:"H5C_DOWNLOAD_DIR"`
	Factor         string `yaml:"factor" env:"H5C_FACTOR"`
	Backup         bool   `yaml:"backup" env:"H5C_BACKUP"`
	NonInteractive bool   `yaml:"non_interactive" env:"H5C_NON_INTERACTIVE"`
	GitHubToken    string `yaml:"github_token" env:"H5C_GITHUB_TOKEN"`
	Concurrency    int    `yaml:"concurrency" env:"H5C_CONCURRENCY"`

	Patch           Patch                   `yaml:"patch"`
	Sources         []source.Source         `yaml:"sources"`
	Install         map[string]install.Plan `yaml:"install"`
	GameExecutables []string                `yaml:"game_executables"`
}

// Patch configures which descriptors are touched and how.
type Patch struct {
	Field        string            `yaml:"field"`
	Extension    string            `yaml:"extension"`
	CreaturesDir string            `yaml:"creatures_dir"`
	Categories   []string          `yaml:"categories"`
	Factors      patch.FactorTable `yaml:"factors"`
}

// Default returns the built-in settings.
func Default() Config {
	downloads, err := os.UserHomeDir()
	if err != nil {
		downloads = "."
	}
	return Config{
		GameRoot:    DefaultGameRoot,
		DownloadDir: downloads,
		Factor:      "150%",
		Backup:      true,
		Concurrency: 2,
		Patch: Patch{
			Field:        patch.DefaultField,
			Extension:    locator.DefaultExtension,
			CreaturesDir: pak.DefaultCreaturesDir,
			Categories:   append([]string(nil), locator.DefaultCategories...),
			Factors:      patch.DefaultFactors(),
		},
		Sources:         source.Defaults(),
		Install:         install.DefaultPlans(),
		GameExecutables: append([]string(nil), process.DefaultGameExecutables...),
	}
}

// ResolvePath picks the config file: the flag value, then H5C_CONFIG, then
// DefaultFile.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	if p := os.Getenv(PathEnv); p != "" {
		return p
	}
	return DefaultFile
}

// Load reads path over the defaults and applies environment overrides.
// A missing file is not an error. Lists in the file replace the defaults;
// install plans are merged by package name.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the factor label, category list, sources and plans.
func (c Config) Validate() error {
	if err := c.Patch.Factors.Validate(); err != nil {
		return err
	}
	if _, err := c.Patch.Factors.Lookup(c.Factor); err != nil {
		return err
	}
	if _, err := c.Locator(); err != nil {
		return err
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	for _, s := range c.Sources {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	for name, p := range c.Install {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("install %s: %w", name, err)
		}
	}
	return nil
}

// ArchivePath is PakPath, or data/Universe_mod.pak under GameRoot.
func (c Config) ArchivePath() string {
	if c.PakPath != "" {
		return c.PakPath
	}
	if c.GameRoot == "" {
		return ""
	}
	return filepath.Join(c.GameRoot, "data", DefaultPakName)
}

// Locator builds the descriptor locator from the patch settings.
func (c Config) Locator() (*locator.Locator, error) {
	return locator.New(locator.Config{
		Categories: c.Patch.Categories,
		Extension:  c.Patch.Extension,
	})
}

// Engine builds a patch engine for a factor label; "" uses c.Factor.
func (c Config) Engine(label string) (patch.Engine, error) {
	if label == "" {
		label = c.Factor
	}
	f, err := c.Patch.Factors.Lookup(label)
	if err != nil {
		return patch.Engine{}, err
	}
	return patch.NewEngine(c.Patch.Field, f.Value)
}
