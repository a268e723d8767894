package fsext

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorIsMatchesSentinel(t *testing.T) {
	err := newErr("fsext.Open", NotFound, fmt.Errorf("inode 5 missing"))
	if !errors.Is(err, ErrNotFound) {
		t.Error("errors.Is(err, ErrNotFound) = false, want true")
	}
	if errors.Is(err, ErrCorruptFormat) {
		t.Error("errors.Is(err, ErrCorruptFormat) = true, want false")
	}
}

func TestErrorIsMatchesAnotherError(t *testing.T) {
	a := newErr("op-a", CorruptFormat, fmt.Errorf("bad magic"))
	b := newErr("op-b", CorruptFormat, fmt.Errorf("unrelated"))
	if !errors.Is(a, b) {
		t.Error("two *Error values with the same Kind should match via errors.Is")
	}
}

func TestErrorUnwrap(t *testing.T) {
	wrapped := fmt.Errorf("underlying cause")
	err := newErr("fsext.readBlock", IoFailure, wrapped)
	if !errors.Is(err, wrapped) {
		t.Error("errors.Is should see through Unwrap to the underlying error")
	}
}

func TestKindString(t *testing.T) {
	if InvalidArgument.String() != "invalid argument" {
		t.Errorf("InvalidArgument.String() = %q", InvalidArgument.String())
	}
	if Kind(99).String() != "unknown error kind" {
		t.Errorf("Kind(99).String() = %q", Kind(99).String())
	}
}

func TestErrorMessageFormat(t *testing.T) {
	err := newErr("fsext.Open", CorruptFormat, fmt.Errorf("bad magic"))
	want := "fsext.Open: corrupt format: bad magic"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
