// Package pak runs the extract, patch, repack and swap transaction against a
// zip-based game package.
package pak

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/distantorigin/h5-companion/internal/locator"
	"github.com/distantorigin/h5-companion/internal/paths"
	"github.com/distantorigin/h5-companion/internal/patch"
)

// DefaultCreaturesDir is the descriptor subtree inside an unpacked package.
const DefaultCreaturesDir = "GameMechanics/Creature/Creatures"

// Options configures one transaction.
type Options struct {
	ArchivePath  string
	Engine       patch.Engine
	Locator      *locator.Locator // nil uses locator.Default
	CreaturesDir string           // slash-separated, "" uses DefaultCreaturesDir
	Filter       string
	Backup       bool
	DryRun       bool
	TempDir      string // parent for scratch dirs, "" uses os.TempDir

	Progress ProgressFunc
	Log      LogFunc
	OnState  StateFunc
	Logger   *slog.Logger
}

type txn struct {
	opts     Options
	report   *Report
	progress *progress
	logger   *slog.Logger
	started  time.Time

	tmpDir     string
	tmpArchive string
}

// Run executes a transaction to completion. On error the returned Report
// still records how far the run got; the original archive is untouched
// unless the swap itself succeeded.
func Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Locator == nil {
		opts.Locator = locator.Default()
	}
	if opts.CreaturesDir == "" {
		opts.CreaturesDir = DefaultCreaturesDir
	}
	if opts.Engine.Field == "" {
		opts.Engine.Field = patch.DefaultField
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	t := &txn{
		opts:     opts,
		report:   &Report{Archive: opts.ArchivePath, DryRun: opts.DryRun},
		progress: newProgress(opts.Progress),
		logger:   logger.With("archive", opts.ArchivePath),
		started:  time.Now(),
	}

	err := func() error {
		defer t.cleanup()
		return t.run(ctx)
	}()

	if err != nil {
		t.enter(StateFailed)
		t.logger.Warn("transaction failed", "error", err, "elapsed", time.Since(t.started))
		return t.report, err
	}

	t.enter(StateDone)
	t.log("%s", t.report.Summary())
	return t.report, nil
}

func (t *txn) run(ctx context.Context) error {
	t.enter(StateValidating)
	if err := t.validate(); err != nil {
		return err
	}

	t.enter(StateExtracting)
	dirs, err := t.extract(ctx)
	if err != nil {
		return t.fail(StateExtracting, err)
	}

	t.enter(StateScanning)
	root := filepath.Join(t.tmpDir, paths.Denormalize(t.opts.CreaturesDir))
	files, err := t.opts.Locator.Locate(root, t.opts.Filter)
	if err != nil {
		return t.fail(StateScanning, err)
	}
	t.report.Matched = len(files)
	t.log("Matched %d descriptor(s)", len(files))

	if t.opts.DryRun {
		t.enter(StatePreviewing)
		if err := t.evaluate(ctx, files, t.opts.Engine.Preview, 50, 100); err != nil {
			return t.fail(StatePreviewing, err)
		}
		t.progress.set(100)
		return nil
	}

	t.enter(StatePatching)
	if err := t.evaluate(ctx, files, t.opts.Engine.Apply, 50, 90); err != nil {
		return t.fail(StatePatching, err)
	}

	if t.opts.Backup {
		t.enter(StateBackingUp)
		created, err := ensureBackup(t.opts.ArchivePath)
		if err != nil {
			return t.fail(StateBackingUp, err)
		}
		t.report.BackupCreated = created
		if created {
			t.log("Backup created: %s", filepath.Base(BackupPath(t.opts.ArchivePath)))
		} else {
			t.log("Backup already present, keeping it")
		}
	}

	t.enter(StateRepacking)
	if err := t.repack(ctx, dirs); err != nil {
		return t.fail(StateRepacking, err)
	}

	if err := ctx.Err(); err != nil {
		return t.fail(StateRepacking, err)
	}

	t.enter(StateSwapping)
	if err := os.Rename(t.tmpArchive, t.opts.ArchivePath); err != nil {
		return t.fail(StateSwapping, fmt.Errorf("failed to replace archive: %w", err))
	}
	t.tmpArchive = ""

	// Only list changes once they are in the archive.
	for _, name := range t.report.ChangedFiles {
		t.log(" - %s", name)
	}
	t.progress.set(100)
	return nil
}

func (t *txn) validate() error {
	e := t.opts.Engine
	if t.opts.ArchivePath == "" {
		return &Error{Kind: KindInvalid, State: StateValidating, Err: errors.New("archive path is empty")}
	}
	if e.Factor <= 0 || math.IsNaN(e.Factor) || math.IsInf(e.Factor, 0) {
		return &Error{Kind: KindInvalid, State: StateValidating, Err: fmt.Errorf("invalid factor %v", e.Factor)}
	}

	precondition := func(err error) error {
		return &Error{Kind: KindPrecondition, State: StateValidating, Err: err}
	}

	info, err := os.Stat(t.opts.ArchivePath)
	if errors.Is(err, fs.ErrNotExist) {
		return precondition(ErrArchiveNotFound)
	}
	if err != nil {
		return precondition(fmt.Errorf("%w: %v", ErrArchiveUnreadable, err))
	}
	if !info.Mode().IsRegular() {
		return precondition(ErrNotArchive)
	}

	zr, err := zip.OpenReader(t.opts.ArchivePath)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return precondition(fmt.Errorf("%w: %v", ErrArchiveUnreadable, err))
		}
		return precondition(fmt.Errorf("%w: %v", ErrNotArchive, err))
	}
	zr.Close()

	if err := dirWritable(filepath.Dir(t.opts.ArchivePath)); err != nil {
		return precondition(fmt.Errorf("%w: %v", ErrDirNotWritable, err))
	}
	return nil
}

func (t *txn) extract(ctx context.Context) ([]string, error) {
	dir, err := os.MkdirTemp(t.opts.TempDir, "universe_inplace_*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}
	t.tmpDir = dir

	zr, err := zip.OpenReader(t.opts.ArchivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer zr.Close()

	t.log("Extracting %s (%d entries)", filepath.Base(t.opts.ArchivePath), len(zr.File))
	return extractAll(ctx, &zr.Reader, dir, func(i, n int) {
		t.progress.span(0, 50, i, n)
	})
}

// evaluate runs fn over files in order, checking ctx between files.
func (t *txn) evaluate(ctx context.Context, files []string, fn func(string) (patch.Result, error), from, to int) error {
	for i, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := fn(path)
		if err != nil {
			return err
		}
		if res.Status == patch.StatusMalformed {
			t.log("unparsed: %s: %v", filepath.Base(res.Path), res.Err)
		}
		t.report.record(res)
		t.progress.span(from, to, i+1, len(files))
	}
	return nil
}

func (t *txn) repack(ctx context.Context, dirs []string) error {
	files, err := listFiles(t.tmpDir)
	if err != nil {
		return fmt.Errorf("failed to list scratch files: %w", err)
	}

	archive := t.opts.ArchivePath
	out, err := os.CreateTemp(filepath.Dir(archive), filepath.Base(archive)+".*.new")
	if err != nil {
		return fmt.Errorf("failed to create new archive: %w", err)
	}
	t.tmpArchive = out.Name()

	t.log("Repacking %d files", len(files))
	err = packDir(ctx, out, t.tmpDir, dirs, files, func(i, n int) {
		t.progress.span(90, 99, i, n)
	})
	if err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return fmt.Errorf("failed to sync new archive: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close new archive: %w", err)
	}

	if info, err := os.Stat(archive); err == nil {
		_ = os.Chmod(t.tmpArchive, info.Mode().Perm())
	}
	return nil
}

func (t *txn) cleanup() {
	if t.tmpDir != "" {
		if err := os.RemoveAll(t.tmpDir); err != nil {
			t.logger.Warn("failed to remove scratch dir", "dir", t.tmpDir, "error", err)
		}
		t.tmpDir = ""
	}
	if t.tmpArchive != "" {
		if err := os.Remove(t.tmpArchive); err != nil && !errors.Is(err, fs.ErrNotExist) {
			t.logger.Warn("failed to remove temp archive", "path", t.tmpArchive, "error", err)
		}
		t.tmpArchive = ""
	}
}

func (t *txn) enter(s State) {
	t.report.State = s
	t.logger.Debug("state", "state", s.String(), "elapsed", time.Since(t.started))
	if t.opts.OnState != nil {
		t.opts.OnState(s)
	}
}

// fail tags err with the state it happened in. Context errors become
// KindCancelled, already-tagged errors pass through.
func (t *txn) fail(s State, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	kind := KindIO
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		kind = KindCancelled
	}
	if errors.Is(err, ErrPathTraversal) {
		kind = KindInvalid
	}
	return &Error{Kind: kind, State: s, Err: err}
}

func (t *txn) log(format string, args ...any) {
	if t.opts.Log != nil {
		t.opts.Log(format, args...)
	}
}
