package cotb

import (
	"github.com/pkg/errors"
)

// JoinHandle owns a spawned coroutine until it is joined or cancelled.
// While a live handle exists the scheduler does not destroy the frame on
// completion; joining yields the child's result and releases it, cancelling
// requests teardown at the scheduler's next inspection. The inter-test
// teardown destroys every frame but the test's own, live handle or not.
type JoinHandle struct {
	f         *frame
	joined    bool
	cancelled bool
}

// Join awaits the child's completion and returns its error. Joining twice,
// or joining after Cancel, is rejected.
func (jh *JoinHandle) Join(co *Coro) error {
	if jh.joined {
		return errors.New("join handle already joined")
	}
	if jh.cancelled {
		return errors.New("join handle was cancelled")
	}
	jh.joined = true
	if jh.f != nil {
		jh.f.hasJoinHandle = false
	}
	return co.joinFrame(jh.f)
}

// Cancel releases the handle without joining. The child is marked cancelled
// and destroyed when the scheduler next pops it, or at the inter-test sweep.
// Idiomatic use is `defer jh.Cancel()`: cancelling an already-joined handle
// is a no-op.
func (jh *JoinHandle) Cancel() {
	if jh.joined || jh.cancelled || jh.f == nil {
		return
	}
	jh.cancelled = true
	jh.f.hasJoinHandle = false
	if !jh.f.finished && !jh.f.dead {
		jh.f.cancelled = true
	}
}
