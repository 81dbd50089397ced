package pak

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/flate"

	"github.com/distantorigin/h5-companion/internal/paths"
)

// extractAll unpacks every entry of r below dir. step is called after each
// entry, directories included. Explicit directory entries are returned so
// repacking can reproduce the same entry set.
func extractAll(ctx context.Context, r *zip.Reader, dir string, step func(i, n int)) ([]string, error) {
	total := len(r.File)
	var dirs []string

	for i, f := range r.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		target, err := paths.Join(dir, f.Name)
		if err != nil {
			return nil, err
		}

		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create directory %s: %w", f.Name, err)
			}
			dirs = append(dirs, strings.TrimSuffix(paths.Normalize(f.Name), "/")+"/")
			step(i+1, total)
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create parent dir for %s: %w", f.Name, err)
		}
		if err := extractFile(f, target); err != nil {
			return nil, fmt.Errorf("failed to extract %s: %w", f.Name, err)
		}
		step(i+1, total)
	}

	return dirs, nil
}

func extractFile(f *zip.File, targetPath string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	perm := f.Mode().Perm() | 0o600
	out, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if !f.Modified.IsZero() {
		_ = os.Chtimes(targetPath, f.Modified, f.Modified)
	}
	return nil
}

// listFiles returns every regular file below dir as sorted slash paths.
func listFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, paths.Normalize(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// packDir writes dirs (explicit directory entries) and files from srcDir
// into w as a Deflate-compressed zip. The writer is not closed.
func packDir(ctx context.Context, w io.Writer, srcDir string, dirs, files []string, step func(i, n int)) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})

	for _, d := range dirs {
		hdr := &zip.FileHeader{Name: d, Method: zip.Store}
		hdr.SetMode(fs.ModeDir | 0o755)
		if info, err := os.Stat(filepath.Join(srcDir, paths.Denormalize(d))); err == nil {
			hdr.Modified = info.ModTime()
		}
		if _, err := zw.CreateHeader(hdr); err != nil {
			return fmt.Errorf("failed to add directory %s: %w", d, err)
		}
	}

	total := len(files)
	for i, rel := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := addFile(zw, srcDir, rel); err != nil {
			return fmt.Errorf("failed to add %s: %w", rel, err)
		}
		step(i+1, total)
	}

	return zw.Close()
}

func addFile(zw *zip.Writer, srcDir, rel string) error {
	path := filepath.Join(srcDir, paths.Denormalize(rel))

	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = rel
	hdr.Method = zip.Deflate

	dst, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(dst, in)
	return err
}
