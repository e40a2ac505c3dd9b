package cotb

import "fmt"

// assertionError is what a failed Assert unwinds with; the frame records it
// as the coroutine's error.
type assertionError struct {
	msg string
}

func (e *assertionError) Error() string { return e.msg }

// Assert fails the running coroutine when condition is false. The failure
// propagates to the joining awaiter or, for a test body, to the runner.
func Assert(condition bool, format string, args ...any) {
	if condition {
		return
	}
	msg := "assertion failed"
	if format != "" {
		msg = "assertion failed: " + fmt.Sprintf(format, args...)
	}
	panic(&assertionError{msg: msg})
}
