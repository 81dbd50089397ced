package pak

import (
	"fmt"
	"path/filepath"

	"github.com/distantorigin/h5-companion/internal/patch"
)

// Report summarises one transaction.
type Report struct {
	Archive       string
	DryRun        bool
	State         State
	Matched       int
	Changed       int
	ChangedFiles  []string // descriptor base names, in processing order
	Malformed     []string
	Sample        *patch.Change
	BackupCreated bool
}

// Summary is the single line shown to the user once the run ends.
func (r *Report) Summary() string {
	if r.DryRun {
		if r.Matched == 0 {
			return "[PREVIEW] No descriptors matched."
		}
		s := fmt.Sprintf("[PREVIEW] Changes: %d files", r.Changed)
		if r.Sample != nil {
			s += fmt.Sprintf(" (Sample: %s)", r.Sample)
		}
		return s
	}

	switch {
	case r.Matched == 0:
		return "Done! No descriptors matched."
	case r.Changed == 0:
		return "Done! No changes found."
	}

	s := fmt.Sprintf("Done! Changed %d .xdb.", r.Changed)
	if r.Sample != nil {
		s += fmt.Sprintf(" Sample: %s", r.Sample)
	}
	return s
}

func (r *Report) record(res patch.Result) {
	switch res.Status {
	case patch.StatusChanged:
		r.Changed++
		r.ChangedFiles = append(r.ChangedFiles, filepath.Base(res.Path))
		if r.Sample == nil && res.Sample != nil {
			c := *res.Sample
			r.Sample = &c
		}
	case patch.StatusMalformed:
		r.Malformed = append(r.Malformed, filepath.Base(res.Path))
	}
}
