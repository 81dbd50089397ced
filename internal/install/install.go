// Package install copies selected files from a downloaded package zip into a
// game installation.
package install

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/distantorigin/h5-companion/internal/paths"
)

var (
	// ErrZipNotFound means the package zip has not been downloaded.
	ErrZipNotFound = errors.New("package zip not found")
	// ErrInvalidRoot means the game folder does not exist.
	ErrInvalidRoot = errors.New("invalid game root folder")
	// ErrUnknownPackage means no install plan exists for a package.
	ErrUnknownPackage = errors.New("no install plan for package")
	// ErrInvalidPlan means a plan names a folder outside the game root.
	ErrInvalidPlan = errors.New("invalid install plan")
)

// Target lists files that go into one game subfolder.
type Target struct {
	Dir   string   `yaml:"dir"`
	Files []string `yaml:"files"`
}

// Plan is the ordered set of targets for one package.
type Plan []Target

// DefaultPlans maps package names to where their files belong.
func DefaultPlans() map[string]Plan {
	return map[string]Plan{
		"Universe_mod": {
			{Dir: "bin", Files: []string{"H5_Universe.exe"}},
			{Dir: "data", Files: []string{"Universe_mod.pak"}},
		},
		"H5AI_31": {
			{Dir: "bin", Files: []string{"H5_AIadv_31j.exe", "H5_AIProcess_31j.exe"}},
			{Dir: "data", Files: []string{"EE_options.pak", "EE_options_text.pak"}},
		},
	}
}

// Lookup finds the plan for name, ignoring case.
func Lookup(plans map[string]Plan, name string) (Plan, error) {
	if p, ok := plans[name]; ok {
		return p, nil
	}
	for k, p := range plans {
		if strings.EqualFold(k, name) {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPackage, name)
}

// Names returns the package names with a plan, sorted.
func Names(plans map[string]Plan) []string {
	out := make([]string, 0, len(plans))
	for k := range plans {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Validate rejects targets that are not a single folder name.
func (p Plan) Validate() error {
	for _, t := range p {
		if t.Dir == "" || paths.FirstSegment(t.Dir) != t.Dir || t.Dir == "." || t.Dir == ".." {
			return fmt.Errorf("%w: folder %q", ErrInvalidPlan, t.Dir)
		}
		for _, f := range t.Files {
			if f == "" || strings.ContainsAny(f, `/\`) {
				return fmt.Errorf("%w: file %q", ErrInvalidPlan, f)
			}
		}
	}
	return nil
}

// ConfirmFunc asks whether an existing file may be replaced.
type ConfirmFunc func(path string) (bool, error)

// Outcome is what happened to one planned file.
type Outcome int

const (
	Installed Outcome = iota
	Skipped
	Missing
)

func (o Outcome) String() string {
	switch o {
	case Installed:
		return "installed"
	case Skipped:
		return "skipped"
	case Missing:
		return "missing"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Entry reports one planned file.
type Entry struct {
	File    string
	Member  string
	Dest    string
	Outcome Outcome
}

// Options configures one install.
type Options struct {
	ZipPath string
	Root    string
	Plan    Plan
	Confirm ConfirmFunc // nil overwrites without asking
	Log     func(format string, args ...any)
}

// Install copies every planned file found in the zip into its folder under
// Root. Archive members are matched by base name, ignoring case. A declined
// overwrite skips that file and continues.
func Install(ctx context.Context, opts Options) ([]Entry, error) {
	logf := opts.Log
	if logf == nil {
		logf = func(string, ...any) {}
	}

	if err := opts.Plan.Validate(); err != nil {
		return nil, err
	}
	if info, err := os.Stat(opts.ZipPath); err != nil || !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrZipNotFound, opts.ZipPath)
	}
	if info, err := os.Stat(opts.Root); opts.Root == "" || err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRoot, opts.Root)
	}

	zr, err := zip.OpenReader(opts.ZipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", filepath.Base(opts.ZipPath), err)
	}
	defer zr.Close()

	byName := make(map[string]*zip.File)
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		key := paths.CleanLower(path.Base(f.Name))
		if _, dup := byName[key]; !dup {
			byName[key] = f
		}
	}

	var entries []Entry
	for _, target := range opts.Plan {
		destDir, err := paths.FindActual(filepath.Join(opts.Root, target.Dir))
		if err != nil {
			return entries, err
		}

		for _, name := range target.Files {
			if err := ctx.Err(); err != nil {
				return entries, err
			}

			f, ok := byName[paths.CleanLower(name)]
			if !ok {
				logf("not in archive: %s", name)
				entries = append(entries, Entry{File: name, Outcome: Missing})
				continue
			}

			if err := os.MkdirAll(destDir, 0o755); err != nil {
				return entries, fmt.Errorf("failed to create %s: %w", destDir, err)
			}

			base := path.Base(f.Name)
			dest, err := paths.FindActual(filepath.Join(destDir, base))
			if err != nil {
				return entries, err
			}
			entry := Entry{File: name, Member: f.Name, Dest: dest}

			if _, err := os.Stat(dest); err == nil && opts.Confirm != nil {
				ok, err := opts.Confirm(dest)
				if err != nil {
					return entries, err
				}
				if !ok {
					logf("skipped %s", base)
					entry.Outcome = Skipped
					entries = append(entries, entry)
					continue
				}
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return entries, fmt.Errorf("failed to stat %s: %w", dest, err)
			}

			if err := extractTo(f, dest); err != nil {
				return entries, fmt.Errorf("failed to install %s: %w", base, err)
			}
			logf("%s → %s", base, destDir)
			entry.Outcome = Installed
			entries = append(entries, entry)
		}
	}

	return entries, nil
}

// extractTo writes f to dest through a sibling temp file.
func extractTo(f *zip.File, dest string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, f.Mode().Perm()|0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// LooksLikeGameRoot reports whether root has the bin and data folders of a
// Heroes V installation.
func LooksLikeGameRoot(root string) bool {
	for _, sub := range []string{"bin", "data"} {
		p, _ := paths.FindActual(filepath.Join(root, sub))
		if info, err := os.Stat(p); err != nil || !info.IsDir() {
			return false
		}
	}
	return true
}
