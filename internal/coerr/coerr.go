// Package coerr defines the closed error enumeration used across compis
// (spec.md §7) as sentinel errors compatible with errors.Is, plus wrapping
// helpers in the style distri's internal packages use xerrors for
// (internal/build/build.go: `xerrors.Errorf("...: %w", err)`).
package coerr

import (
	"fmt"

	"golang.org/x/xerrors"
)

// Err is one of the closed set of error tags every fallible compis
// operation returns.
type Err struct {
	name string
}

func (e *Err) Error() string { return e.name }

var (
	Ok            = &Err{"ok"}
	Invalid       = &Err{"invalid argument"}
	NoMem         = &Err{"out of memory"}
	NotFound      = &Err{"not found"}
	Exists        = &Err{"already exists"}
	IO            = &Err{"i/o error"}
	Overflow      = &Err{"overflow"}
	Canceled      = &Err{"canceled"}
	NotSupported  = &Err{"not supported"}
	End           = &Err{"end of input"}
	MFault        = &Err{"memory fault"}
	IsDir         = &Err{"is a directory"}
	NotDir        = &Err{"not a directory"}
)

// Wrap annotates err with a message, in the same "%s: %w" style distri uses
// pervasively via xerrors.Errorf, preserving the wrapped sentinel for
// errors.Is.
func Wrap(msg string, err error) error {
	if err == nil {
		return nil
	}
	return xerrors.Errorf("%s: %w", msg, err)
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return xerrors.Errorf(fmt.Sprintf(format, args...)+": %w", err)
}
