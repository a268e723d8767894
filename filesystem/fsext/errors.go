package fsext

import (
	"errors"
	"fmt"
)

// Kind is the closed set of error categories the core reports. Every
// error returned out of this package's public API can be matched against
// one of these with errors.Is.
type Kind int

const (
	// InvalidArgument means the caller supplied a null/zero/out-of-range
	// input, such as inode number 0.
	InvalidArgument Kind = iota + 1
	// OutOfRange means a parsed value exceeds the volume's geometry, such
	// as an inode number beyond the inode count or a physical block
	// number off the end of the volume.
	OutOfRange
	// CorruptFormat means an on-disk structure failed a structural
	// invariant: bad magic, a record length that overflows its block, an
	// extent entry count above its node's maximum, and so on.
	CorruptFormat
	// Unsupported means a feature flag, name-index, or encoding this core
	// does not implement was encountered: an unknown incompatible feature,
	// an EA name-index outside the known table, an encrypted inode.
	Unsupported
	// IoFailure means the underlying byte source returned an error, or a
	// short read at an offset that must be fully populated.
	IoFailure
	// NotFound means a requested path component or inode-by-path lookup
	// missed.
	NotFound
	// Aborted means the volume's abort flag was set during the operation.
	Aborted
	// LogicError means an internal invariant was broken. It should never
	// occur in a correct build of this library.
	LogicError
)

func (k Kind) String() string {
	switch k {
	case InvalidArgument:
		return "invalid argument"
	case OutOfRange:
		return "out of range"
	case CorruptFormat:
		return "corrupt format"
	case Unsupported:
		return "unsupported"
	case IoFailure:
		return "io failure"
	case NotFound:
		return "not found"
	case Aborted:
		return "aborted"
	case LogicError:
		return "logic error"
	default:
		return "unknown error kind"
	}
}

// Error is the concrete error type returned by this package's public API.
// Op names the failing operation (e.g. "fsext.Open", "readInode").
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is a Kind that matches e's Kind, enabling
// errors.Is(err, fsext.ErrNotFound) style checks against either a
// sentinel kindError or another *Error.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == e.Kind
	}
	var k kindError
	if errors.As(target, &k) {
		return Kind(k) == e.Kind
	}
	return false
}

func newErr(op string, kind Kind, err error) error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// Sentinel errors, one per Kind, so callers can write
// errors.Is(err, fsext.ErrNotFound) instead of unwrapping *Error by hand.
var (
	ErrInvalidArgument = sentinel(InvalidArgument)
	ErrOutOfRange      = sentinel(OutOfRange)
	ErrCorruptFormat   = sentinel(CorruptFormat)
	ErrUnsupported     = sentinel(Unsupported)
	ErrIoFailure       = sentinel(IoFailure)
	ErrNotFound        = sentinel(NotFound)
	ErrAborted         = sentinel(Aborted)
	ErrLogicError      = sentinel(LogicError)
)

func sentinel(k Kind) error { return kindError(k) }

type kindError Kind

func (k kindError) Error() string { return Kind(k).String() }

func (k kindError) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return other.Kind == Kind(k)
	}
	var kk kindError
	if errors.As(target, &kk) {
		return kk == k
	}
	return false
}
