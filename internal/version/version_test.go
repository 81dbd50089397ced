package version

import "testing"

func TestVersionString(t *testing.T) {
	tests := []struct {
		name     string
		version  Version
		expected string
	}{
		{"basic version", Version{Major: 1, Minor: 2, Patch: 3}, "1.2.3"},
		{"version with commit", Version{Major: 1, Commit: "abc1234"}, "1.0.0+abc1234"},
		{"zero version", Version{}, "0.0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.version.String(); got != tt.expected {
				t.Errorf("Version.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestParseTag(t *testing.T) {
	tests := []struct {
		tag     string
		want    Version
		wantErr bool
	}{
		{"v1.2.3", Version{Major: 1, Minor: 2, Patch: 3}, false},
		{"2.0.10", Version{Major: 2, Patch: 10}, false},
		{"v1.2", Version{}, true},
		{"v1.x.3", Version{}, true},
		{"v1.-2.3", Version{}, true},
		{"", Version{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			got, err := ParseTag(tt.tag)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTag(%q) error = %v, wantErr %v", tt.tag, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseTag(%q) = %+v, want %+v", tt.tag, got, tt.want)
			}
		})
	}
}

func TestCurrent(t *testing.T) {
	oldTag, oldCommit, oldDate := Tag, Commit, Date
	t.Cleanup(func() { Tag, Commit, Date = oldTag, oldCommit, oldDate })

	Tag, Commit, Date = "v3.1.4", "0123456789abcdef", "2026-01-02"
	v := Current()
	if v.String() != "3.1.4+0123456" {
		t.Errorf("Current() = %q, want 3.1.4+0123456", v.String())
	}
	if v.Date != "2026-01-02" {
		t.Errorf("Current().Date = %q", v.Date)
	}
	if got := UserAgent(); got != "h5c/3.1.4" {
		t.Errorf("UserAgent() = %q", got)
	}

	Tag = "nightly"
	if v := Current(); v.Major != 0 || v.Minor != 0 || v.Patch != 0 {
		t.Errorf("Current() with bad tag = %+v, want zero version", v)
	}
}
