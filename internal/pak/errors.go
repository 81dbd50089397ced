package pak

import (
	"context"
	"errors"
	"fmt"

	"github.com/distantorigin/h5-companion/internal/paths"
)

// Sentinel errors for transaction failures. Use errors.Is in callers.
var (
	// ErrArchiveNotFound means the archive path does not exist.
	ErrArchiveNotFound = errors.New("archive not found")
	// ErrArchiveUnreadable means the archive exists but cannot be opened.
	ErrArchiveUnreadable = errors.New("archive is not readable")
	// ErrNotArchive means the file is not a zip container.
	ErrNotArchive = errors.New("file is not a zip archive")
	// ErrDirNotWritable means the archive directory rejects new files.
	ErrDirNotWritable = errors.New("archive directory is not writable")
	// ErrNoBackup means there is no backup to restore from.
	ErrNoBackup = errors.New("backup file not found")
	// ErrBusy means another transaction is still running.
	ErrBusy = errors.New("another transaction is in progress")
	// ErrPathTraversal means an archive entry points outside the scratch dir.
	ErrPathTraversal = paths.ErrTraversal
)

// Kind groups failures by how a caller should react to them.
type Kind int

const (
	// KindIO is a filesystem failure mid-run.
	KindIO Kind = iota
	// KindPrecondition is detected before any side effect.
	KindPrecondition
	// KindCancelled means the context was cancelled.
	KindCancelled
	// KindBusy means a transaction was already in flight.
	KindBusy
	// KindInvalid means the options themselves are unusable.
	KindInvalid
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindPrecondition:
		return "precondition"
	case KindCancelled:
		return "cancelled"
	case KindBusy:
		return "busy"
	case KindInvalid:
		return "invalid"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a transaction failure tagged with its Kind and the state it
// happened in.
type Error struct {
	Kind  Kind
	State State
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.State, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the Kind of err. Context errors are KindCancelled,
// anything untagged is KindIO.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}
	if errors.Is(err, ErrBusy) {
		return KindBusy
	}
	return KindIO
}
