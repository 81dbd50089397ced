// Package version reports which build of h5c is running.
package version

import (
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"
)

// Overridden at build time:
//
//	go build -ldflags "-X github.com/distantorigin/h5-companion/internal/version.Tag=v1.2.3"
var (
	Tag    = "v0.1.0"
	Commit = ""
	Date   = ""
)

// Version represents the application version
type Version struct {
	Major  int
	Minor  int
	Patch  int
	Commit string
	Date   string
}

// String returns the version in semantic format
func (v Version) String() string {
	ver := fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Commit != "" {
		ver += "+" + v.Commit
	}
	return ver
}

// ParseTag extracts version components from a git tag (e.g., "v1.2.3")
func ParseTag(tag string) (Version, error) {
	parts := strings.Split(strings.TrimPrefix(tag, "v"), ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("invalid tag format: %s (expected vX.Y.Z)", tag)
	}

	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("invalid version component %q in tag %s", p, tag)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// Current returns the version stamped into the binary. Without a stamped
// commit it falls back to the VCS revision recorded by the Go toolchain.
func Current() Version {
	v, err := ParseTag(Tag)
	if err != nil {
		v = Version{}
	}
	v.Commit = shortSHA(Commit)
	v.Date = Date

	if v.Commit == "" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					v.Commit = shortSHA(s.Value)
				case "vcs.time":
					if v.Date == "" {
						v.Date = s.Value
					}
				}
			}
		}
	}
	return v
}

// UserAgent is sent with HTTP requests.
func UserAgent() string {
	v := Current()
	return fmt.Sprintf("h5c/%d.%d.%d", v.Major, v.Minor, v.Patch)
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
