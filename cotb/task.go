package cotb

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/gocotb/gocotb/gpi"
)

// TaskFunc is a coroutine body. It runs on its own fiber and may suspend at
// any Await. Returning a non-nil error, or panicking, fails the coroutine;
// the error surfaces at the joining awaiter or, for a test body, at the
// runner.
type TaskFunc func(co *Coro) error

type resumeMode int

const (
	resumeRun resumeMode = iota
	resumeKill
)

// killed is the private panic sentinel used to unwind a fiber that is being
// destroyed without completing. User defers still run during the unwind.
type killed struct{}

// frame is a coroutine frame: one goroutine with strict synchronous handoff
// against the simulator's scheduling goroutine. At most one side runs at any
// instant.
type frame struct {
	id    uint64
	name  string
	sched *Scheduler
	body  TaskFunc

	resume chan resumeMode
	parked chan struct{}

	started  bool
	finished bool // body returned or unwound
	dead     bool // frame destroyed; trampolines must ignore it

	detached  bool
	completed bool
	cancelled bool

	// hasJoinHandle marks frames owned by a live JoinHandle; the scheduler
	// does not destroy those on completion (the inter-test teardown still
	// does).
	hasJoinHandle bool
	joinWaiter    *frame

	err error
}

func (s *Scheduler) newFrame(name string, body TaskFunc) *frame {
	s.nextFrameID++
	if name == "" {
		name = fmt.Sprintf("task-%d", s.nextFrameID)
	}
	return &frame{
		id:     s.nextFrameID,
		name:   name,
		sched:  s,
		body:   body,
		resume: make(chan resumeMode),
		parked: make(chan struct{}),
	}
}

// run is the fiber main. It executes the body and records its outcome.
func (f *frame) run() {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(killed); !ok {
				f.err = recoveredError(r)
			}
		}
		f.finished = true
		f.parked <- struct{}{}
	}()
	co := &Coro{f: f, sched: f.sched}
	f.err = f.body(co)
}

func recoveredError(r any) error {
	switch v := r.(type) {
	case *assertionError:
		return v
	case error:
		return errors.Wrap(v, "coroutine panicked")
	default:
		return errors.Errorf("coroutine panicked: %v", v)
	}
}

// park suspends the fiber until the scheduler resumes it. Called only from
// the fiber's own goroutine, after the wakeup condition is registered.
func (f *frame) park() {
	f.parked <- struct{}{}
	if mode := <-f.resume; mode == resumeKill {
		panic(killed{})
	}
}

// resumeFrame runs f until its next suspension or completion. Called only
// from the scheduling goroutine.
func (s *Scheduler) resumeFrame(f *frame) {
	if f.dead || f.finished {
		return
	}
	if !f.started {
		f.started = true
		go f.run()
	} else {
		f.resume <- resumeRun
	}
	<-f.parked
}

// destroyFrame releases f without resuming its body. A fiber parked at an
// await is unwound through the kill sentinel so its defers run.
func (s *Scheduler) destroyFrame(f *frame) {
	if f == nil || f.dead {
		return
	}
	s.unregister(f)
	if !f.started || f.finished {
		f.dead = true
		return
	}
	f.resume <- resumeKill
	<-f.parked
	f.dead = true
}

// Task is a constructed but not yet scheduled coroutine. Awaiting it with
// Coro.JoinTask schedules it implicitly; passing it to Scheduler.Schedule
// transfers it to the ready queue.
type Task struct {
	f *frame
}

// Coro is the capability handed to a running coroutine body: awaiting
// triggers, spawning children and joining them.
type Coro struct {
	f     *frame
	sched *Scheduler
}

// Await suspends the coroutine until the trigger's condition holds. Triggers
// are one-shot; construct a fresh one for every await.
func (co *Coro) Await(t Trigger) {
	if t.ready() {
		return
	}
	t.suspend(co.sched, co.f)
	co.f.park()
}

// NewTask constructs an unscheduled coroutine sharing this coroutine's
// scheduler.
func (co *Coro) NewTask(body TaskFunc) *Task {
	return &Task{f: co.sched.newFrame("", body)}
}

// JoinTask awaits t's completion and returns its error, scheduling t first
// if it was never spawned. The target frame is destroyed once observed, so a
// task can be joined at most once.
func (co *Coro) JoinTask(t *Task) error {
	if t == nil {
		return nil
	}
	return co.joinFrame(t.f)
}

func (co *Coro) joinFrame(f *frame) error {
	if f == nil || f.dead {
		return nil
	}
	if !f.finished {
		if f.joinWaiter != nil {
			return errors.Errorf("task %s already has a join waiter", f.name)
		}
		f.joinWaiter = co.f
		if !f.detached {
			co.sched.schedule(f)
		}
		co.f.park()
	}
	err := f.err
	co.sched.destroyFrame(f)
	return err
}

// Spawn transfers a new coroutine to the scheduler for concurrent execution
// and returns its join handle.
func (co *Coro) Spawn(body TaskFunc) *JoinHandle {
	return co.sched.startSoon(co.sched.newFrame("", body))
}

// SimTime returns the current simulation time in ticks.
func (co *Coro) SimTime() uint64 { return co.sched.gpi.SimTime() }

// Log returns a logger entry tagged with this coroutine's name.
func (co *Coro) Log() *logrus.Entry {
	return co.sched.logger.WithField("component", "gocotb."+co.f.name)
}

// Precision returns the simulator's tick size exponent.
func (co *Coro) Precision() gpi.Unit { return co.sched.gpi.SimPrecision() }
