package pak

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// BackupPath is where the pristine copy of archivePath is kept.
func BackupPath(archivePath string) string {
	return archivePath + ".backup"
}

// Access describes what the current user may do with an archive.
type Access struct {
	Exists      bool
	Readable    bool
	DirWritable bool
}

func (a Access) String() string {
	return fmt.Sprintf("read=%t, write_dir=%t", a.Readable, a.DirWritable)
}

// OK reports whether a transaction could run against the archive.
func (a Access) OK() bool {
	return a.Exists && a.Readable && a.DirWritable
}

// Check probes read access to archivePath and write access to its directory.
// It never modifies the archive.
func Check(archivePath string) Access {
	var a Access

	info, err := os.Stat(archivePath)
	if err != nil || !info.Mode().IsRegular() {
		a.DirWritable = dirWritable(filepath.Dir(archivePath)) == nil
		return a
	}
	a.Exists = true

	if f, err := os.Open(archivePath); err == nil {
		a.Readable = true
		f.Close()
	}
	a.DirWritable = dirWritable(filepath.Dir(archivePath)) == nil
	return a
}

// dirWritable creates and removes a probe file in dir.
func dirWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".h5c-probe-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

// ensureBackup copies archivePath to its backup path unless a backup already
// exists. It reports whether a new backup was written.
func ensureBackup(archivePath string) (bool, error) {
	dst := BackupPath(archivePath)

	if _, err := os.Stat(dst); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("failed to stat backup: %w", err)
	}

	if err := copyFile(archivePath, dst); err != nil {
		return false, fmt.Errorf("failed to create backup: %w", err)
	}
	return true, nil
}

// copyFile writes src to dst through a sibling temp file, keeping the
// source's permissions and modification time.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	ok := false
	defer func() {
		if !ok {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	if _, err := io.Copy(tmp, in); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, info.Mode().Perm()); err != nil {
		return err
	}
	if err := os.Chtimes(tmpName, info.ModTime(), info.ModTime()); err != nil {
		return err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		return err
	}
	ok = true
	return nil
}

// Restore renames the backup over archivePath. The backup is consumed; the
// next patch run with backups enabled takes a fresh one.
func Restore(archivePath string) error {
	src := BackupPath(archivePath)

	info, err := os.Stat(src)
	if errors.Is(err, fs.ErrNotExist) {
		return &Error{Kind: KindPrecondition, State: StateValidating, Err: ErrNoBackup}
	}
	if err != nil {
		return &Error{Kind: KindIO, State: StateValidating, Err: fmt.Errorf("failed to stat backup: %w", err)}
	}
	if !info.Mode().IsRegular() {
		return &Error{Kind: KindPrecondition, State: StateValidating, Err: ErrNoBackup}
	}

	if err := dirWritable(filepath.Dir(archivePath)); err != nil {
		return &Error{Kind: KindPrecondition, State: StateValidating, Err: fmt.Errorf("%w: %v", ErrDirNotWritable, err)}
	}

	if err := os.Rename(src, archivePath); err != nil {
		return &Error{Kind: KindIO, State: StateSwapping, Err: fmt.Errorf("failed to restore backup: %w", err)}
	}
	return nil
}
