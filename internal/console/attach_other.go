//go:build !windows

package console

// Attach reports that stdout is usable; terminals need no attaching.
func Attach() bool { return true }

// SetTitle is a no-op outside Windows.
func SetTitle(string) error { return nil }
