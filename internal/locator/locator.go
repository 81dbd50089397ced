// Package locator selects creature descriptor files inside an unpacked
// package archive.
package locator

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/woozymasta/pathrules"

	"github.com/distantorigin/h5-companion/internal/paths"
)

// DefaultExtension is the descriptor file extension.
const DefaultExtension = ".xdb"

// DefaultCategories lists the faction folders under GameMechanics/Creature/Creatures.
var DefaultCategories = []string{
	"Academy", "Dungeon", "Dwarf", "Haven", "Inferno",
	"Necropolis", "Neutrals", "Orcs", "Preserve",
}

var (
	// ErrNoCategories means the allow-list is empty.
	ErrNoCategories = errors.New("no category folders configured")
	// ErrInvalidCategory means a category is not a plain folder name.
	ErrInvalidCategory = errors.New("invalid category folder name")
)

// Config holds the allow-list and extension used by a Locator.
type Config struct {
	Categories []string
	Extension  string
}

// Locator walks a creatures subtree and returns matching descriptor paths.
type Locator struct {
	ext     string
	matcher *pathrules.Matcher
}

// New compiles the category allow-list.
func New(cfg Config) (*Locator, error) {
	if len(cfg.Categories) == 0 {
		return nil, ErrNoCategories
	}

	rules := make([]pathrules.Rule, 0, len(cfg.Categories))
	for _, c := range cfg.Categories {
		if c == "" || c == "." || c == ".." || strings.ContainsAny(c, `/\*?[]!`) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, c)
		}
		rules = append(rules, pathrules.Rule{
			Action:  pathrules.ActionInclude,
			Pattern: "/" + c + "/**", // anchored: only the first segment counts
		})
	}

	matcher, err := pathrules.NewMatcher(rules, pathrules.MatcherOptions{
		DefaultAction: pathrules.ActionExclude,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to compile category rules: %w", err)
	}

	ext := cfg.Extension
	if ext == "" {
		ext = DefaultExtension
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	return &Locator{
		ext:     strings.ToLower(ext),
		matcher: matcher,
	}, nil
}

// Default returns a Locator over DefaultCategories and DefaultExtension.
func Default() *Locator {
	l, err := New(Config{Categories: DefaultCategories, Extension: DefaultExtension})
	if err != nil {
		panic(err)
	}
	return l
}

// Locate returns descriptor files under root, sorted by relative path.
// A missing root is not an error: there is simply nothing to patch.
// filter is matched case-insensitively against the file's base name.
func (l *Locator) Locate(root, filter string) ([]string, error) {
	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat creatures root: %w", err)
	}
	if !info.IsDir() {
		return nil, nil
	}

	filter = strings.ToLower(strings.TrimSpace(filter))

	type match struct {
		rel  string
		path string
	}
	var found []match

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		name := d.Name()
		if !strings.HasSuffix(strings.ToLower(name), l.ext) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = paths.Normalize(rel)
		if !l.Allowed(rel) {
			return nil
		}

		if filter != "" && !strings.Contains(strings.ToLower(name), filter) {
			return nil
		}

		found = append(found, match{rel: rel, path: path})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk creatures root: %w", err)
	}

	sort.Slice(found, func(i, j int) bool { return found[i].rel < found[j].rel })

	out := make([]string, 0, len(found))
	for _, m := range found {
		out = append(out, m.path)
	}
	return out, nil
}

// Allowed reports whether a slash-separated path relative to the creatures
// root sits under an allow-listed category folder.
func (l *Locator) Allowed(rel string) bool {
	if !strings.Contains(rel, "/") {
		return false
	}
	return l.matcher.Included(rel, false)
}
