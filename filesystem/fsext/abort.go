package fsext

import "sync/atomic"

// abortFlag is a per-volume, monotonic cancellation signal. Once set it
// never clears: a Volume that has been told to abort stays aborted for
// the rest of its life, per spec.md §4.13. It is checked cooperatively
// at the top of every directory-walk, extent-recursion, and
// indirect-block-recursion iteration, never preemptively.
type abortFlag struct {
	set int32
}

func (a *abortFlag) signal() { atomic.StoreInt32(&a.set, 1) }

func (a *abortFlag) isSet() bool { return atomic.LoadInt32(&a.set) != 0 }
