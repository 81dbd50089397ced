// Package testutil holds fixture builders shared by package and integration
// tests.
package testutil

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"
)

// CreaturesDir is the descriptor subtree used in archive fixtures.
const CreaturesDir = "GameMechanics/Creature/Creatures"

// fixtureTime is stamped on every zip entry so rebuilt fixtures are identical.
var fixtureTime = time.Date(2009, 6, 1, 12, 0, 0, 0, time.UTC)

// Descriptor returns a creature descriptor with one growth field per value.
func Descriptor(growth ...int) string {
	var b strings.Builder
	b.WriteString("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n<Creature>\n")
	b.WriteString("\t<AttackSkill>12</AttackSkill>\n")
	for _, g := range growth {
		fmt.Fprintf(&b, "\t<WeeklyGrowth>%d</WeeklyGrowth>\n", g)
	}
	b.WriteString("</Creature>\n")
	return b.String()
}

// Creature returns the archive entry name of a descriptor.
func Creature(category, name string) string {
	return CreaturesDir + "/" + category + "/" + name + ".xdb"
}

// WriteFile creates path with content, making parent directories.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
}

// WriteZip builds a zip at path. Names ending in "/" become directory
// entries; all others are Deflate-compressed files.
func WriteZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, ZipBytes(t, entries), 0o644); err != nil {
		t.Fatalf("failed to write zip: %v", err)
	}
}

// ZipBytes returns entries encoded as a zip, names in sorted order.
func ZipBytes(t *testing.T, entries map[string]string) []byte {
	t.Helper()

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		hdr := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: fixtureTime}
		if strings.HasSuffix(name, "/") {
			hdr.Method = zip.Store
			hdr.SetMode(os.ModeDir | 0o755)
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			t.Fatalf("failed to add %s: %v", name, err)
		}
		if _, err := io.WriteString(w, entries[name]); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to close zip: %v", err)
	}
	return buf.Bytes()
}

// ReadZip returns every entry of the zip at path keyed by name. Directory
// entries map to "".
func ReadZip(t *testing.T, path string) map[string]string {
	t.Helper()

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("failed to open zip %s: %v", path, err)
	}
	defer zr.Close()

	out := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			out[f.Name] = ""
			continue
		}
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("failed to read %s: %v", f.Name, err)
		}
		out[f.Name] = string(data)
	}
	return out
}

// Snapshot captures the bytes and modification time of a file.
type Snapshot struct {
	Data    []byte
	ModTime time.Time
}

// Stat snapshots path.
func Stat(t *testing.T, path string) Snapshot {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("failed to stat %s: %v", path, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return Snapshot{Data: data, ModTime: info.ModTime()}
}

// Entries lists the names in dir, for leftover temp file checks.
func Entries(t *testing.T, dir string) []string {
	t.Helper()
	des, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read dir %s: %v", dir, err)
	}
	names := make([]string, 0, len(des))
	for _, de := range des {
		names = append(names, de.Name())
	}
	sort.Strings(names)
	return names
}
