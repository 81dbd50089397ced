package main

import (
	"errors"

	"github.com/distantorigin/h5-companion/internal/install"
	"github.com/distantorigin/h5-companion/internal/locator"
	"github.com/distantorigin/h5-companion/internal/pak"
	"github.com/distantorigin/h5-companion/internal/patch"
	"github.com/distantorigin/h5-companion/internal/prompt"
	"github.com/distantorigin/h5-companion/internal/source"
)

// usageError marks bad input from the command line or config.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func invalid(err error) error {
	return usageError{err}
}

// errorKind names the failure class shown in the error line.
func errorKind(err error) string {
	var pe *pak.Error
	if errors.As(err, &pe) {
		return pe.Kind.String()
	}

	var ue usageError
	switch {
	case errors.As(err, &ue),
		errors.Is(err, patch.ErrUnknownFactor),
		errors.Is(err, locator.ErrNoCategories),
		errors.Is(err, locator.ErrInvalidCategory),
		errors.Is(err, source.ErrUnknownSource),
		errors.Is(err, source.ErrInvalidSource),
		errors.Is(err, install.ErrUnknownPackage),
		errors.Is(err, install.ErrInvalidPlan):
		return pak.KindInvalid.String()
	case errors.Is(err, install.ErrZipNotFound),
		errors.Is(err, install.ErrInvalidRoot):
		return pak.KindPrecondition.String()
	case errors.Is(err, prompt.ErrCancelled):
		return pak.KindCancelled.String()
	}
	return pak.KindOf(err).String()
}
