// Package process detects running game executables.
package process

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// DefaultGameExecutables are the Heroes V binaries that hold data/*.pak open.
var DefaultGameExecutables = []string{
	"H5_Game.exe", "H5_Universe.exe", "H5_AIadv_31j.exe", "H5_AIProcess_31j.exe",
}

// Lister returns the image names of running processes.
type Lister func(ctx context.Context) ([]string, error)

// System lists processes with tasklist on Windows and ps elsewhere.
func System(ctx context.Context) ([]string, error) {
	if runtime.GOOS == "windows" {
		out, err := exec.CommandContext(ctx, "tasklist", "/FO", "CSV", "/NH").Output()
		if err != nil {
			return nil, fmt.Errorf("failed to run tasklist: %w", err)
		}
		return ParseTasklist(out)
	}

	out, err := exec.CommandContext(ctx, "ps", "-A", "-o", "comm=").Output()
	if err != nil {
		return nil, fmt.Errorf("failed to run ps: %w", err)
	}
	var names []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, filepath.Base(line))
		}
	}
	return names, nil
}

// ParseTasklist reads `tasklist /FO CSV /NH` output and returns the image
// name column.
func ParseTasklist(out []byte) ([]string, error) {
	r := csv.NewReader(bytes.NewReader(out))
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse tasklist output: %w", err)
	}

	names := make([]string, 0, len(records))
	for _, rec := range records {
		if len(rec) < 2 || !strings.Contains(rec[0], ".") {
			continue
		}
		names = append(names, rec[0])
	}
	return names, nil
}

// Running returns which of names are currently running, ignoring case.
func Running(ctx context.Context, list Lister, names []string) ([]string, error) {
	if list == nil {
		list = System
	}
	procs, err := list(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(procs))
	for _, p := range procs {
		seen[strings.ToLower(p)] = true
	}

	var found []string
	for _, n := range names {
		if seen[strings.ToLower(n)] {
			found = append(found, n)
		}
	}
	return found, nil
}

// WaitForExit polls until none of names is running or ctx ends.
func WaitForExit(ctx context.Context, list Lister, names []string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		running, err := Running(ctx, list, names)
		if err != nil {
			return err
		}
		if len(running) == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("still running %s: %w", strings.Join(running, ", "), ctx.Err())
		case <-ticker.C:
		}
	}
}
