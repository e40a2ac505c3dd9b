package cotb

import (
	"github.com/sirupsen/logrus"

	"github.com/gocotb/gocotb/gpi"
)

// writeRequest is a deferred signal store, applied in FIFO order at the next
// read-write phase.
type writeRequest struct {
	handle gpi.SimHandle
	value  int64
}

// Scheduler multiplexes coroutine frames onto the simulator's scheduling
// goroutine. It owns the ready queue, the pending-write queue and the phase
// state machine that decides when callbacks are (re)registered with the
// simulator.
type Scheduler struct {
	gpi    gpi.Interface
	logger *logrus.Logger
	log    *logrus.Entry

	ready         []*frame
	pendingWrites []writeRequest

	rwCbPending   bool
	inReadonly    bool
	needRWAfterRO bool

	active map[*frame]struct{}

	runner      *Runner
	nextFrameID uint64
}

func newScheduler(g gpi.Interface, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		gpi:    g,
		logger: logger,
		log:    logger.WithField("component", "gocotb.scheduler"),
		active: make(map[*frame]struct{}),
	}
}

func (s *Scheduler) register(f *frame) {
	s.active[f] = struct{}{}
}

func (s *Scheduler) unregister(f *frame) {
	delete(s.active, f)
}

// Schedule transfers a task into the ready queue.
func (s *Scheduler) Schedule(t *Task) {
	if t == nil {
		return
	}
	s.schedule(t.f)
}

func (s *Scheduler) schedule(f *frame) {
	if f == nil || f.dead {
		return
	}
	s.register(f)
	s.ready = append(s.ready, f)
}

// startSoon marks f detached, schedules it and wraps it in a join handle.
func (s *Scheduler) startSoon(f *frame) *JoinHandle {
	f.detached = true
	f.hasJoinHandle = true
	s.schedule(f)
	return &JoinHandle{f: f}
}

// enqueueReady pushes a bare continuation and requests a read-write callback
// so pending writes clear before it runs.
func (s *Scheduler) enqueueReady(f *frame) {
	if f == nil || f.dead {
		return
	}
	s.ready = append(s.ready, f)
	s.requestReadWriteCallback()
}

// scheduleReadWrite is the timer-trampoline path: the continuation runs in
// the next read-write phase, after the write flush.
func (s *Scheduler) scheduleReadWrite(f *frame) {
	if f == nil || f.dead {
		return
	}
	s.ready = append(s.ready, f)
	s.requestReadWriteCallback()
}

// scheduleReadOnly parks f until the read-only phase of the current time
// step. The frame enters the ready queue only when the phase callback fires,
// not while the current drain is still running.
func (s *Scheduler) scheduleReadOnly(f *frame) {
	if f == nil || f.dead {
		return
	}
	r := &readonlyCallbackRecord{sched: s, frame: f}
	r.id = s.gpi.RegisterReadOnlyCallback(r.fire)
	if r.id == 0 {
		s.log.Error("failed to register readonly callback")
		r.frame = nil
		s.enqueueReady(f)
	}
}

// QueueWrite appends a pending signal store and requests a read-write
// callback. All stores funnel through here; nothing writes eagerly.
func (s *Scheduler) QueueWrite(h gpi.SimHandle, value int64) {
	s.pendingWrites = append(s.pendingWrites, writeRequest{handle: h, value: value})
	s.requestReadWriteCallback()
}

// requestReadWriteCallback arms at most one read-write callback per phase.
// Inside a read-only phase the request is deferred to the next time step,
// since writes are illegal until then.
func (s *Scheduler) requestReadWriteCallback() {
	if s.inReadonly {
		s.needRWAfterRO = true
		return
	}
	if s.rwCbPending {
		return
	}
	s.rwCbPending = true
	s.gpi.RegisterReadWriteCallback(s.readwriteCallback)
}

// pendingValue reports the newest queued store for h, so reads issued in the
// same resume batch as a write observe the written value even before the
// flush.
func (s *Scheduler) pendingValue(h gpi.SimHandle) (int64, bool) {
	for i := len(s.pendingWrites) - 1; i >= 0; i-- {
		if s.pendingWrites[i].handle == h {
			return s.pendingWrites[i].value, true
		}
	}
	return 0, false
}

func (s *Scheduler) flushPendingWrites() {
	for len(s.pendingWrites) > 0 {
		wr := s.pendingWrites[0]
		s.pendingWrites = s.pendingWrites[1:]
		s.gpi.SetSignalValue(wr.handle, wr.value, gpi.Deposit)
	}
	s.rwCbPending = false
}

// RunReady drains the ready queue, resuming each frame once. With
// flushWrites set this is the read-write phase entry: pending writes are
// applied before any continuation observes signal values.
func (s *Scheduler) RunReady(flushWrites bool) {
	if flushWrites {
		s.flushPendingWrites()
	}
	for len(s.ready) > 0 {
		f := s.ready[0]
		s.ready = s.ready[1:]
		if f == nil || f.dead {
			continue
		}
		if f.cancelled {
			s.destroyFrame(f)
			continue
		}
		s.resumeFrame(f)
		if !f.finished {
			// suspended on some trigger; nothing more to do
			continue
		}
		f.completed = true
		s.unregister(f)

		if w := f.joinWaiter; w != nil {
			if flushWrites && len(s.pendingWrites) > 0 {
				// The completed frame enqueued writes inside this read-write
				// phase. Flush them now and bounce the waiter through a
				// zero-tick timer so the simulator settles before the waiter
				// observes signals.
				s.flushPendingWrites()
				s.scheduleAfterTime(w, 0)
			} else {
				s.enqueueReady(w)
			}
			// the waiter destroys the frame when it observes completion
			continue
		}
		if s.runner != nil && s.runner.isCurrentTest(f) {
			s.runner.onTestComplete()
		} else if f.detached && !f.hasJoinHandle {
			s.destroyFrame(f)
		}
	}
}

// CancelAll marks every active frame cancelled, honored lazily at the next
// scheduler inspection. The current test's frame is preserved; completed
// frames are released immediately.
func (s *Scheduler) CancelAll() {
	var current *frame
	if s.runner != nil {
		current = s.runner.currentFrame()
	}
	for f := range s.active {
		if f == current {
			continue
		}
		if f.finished {
			s.destroyFrame(f)
			continue
		}
		f.cancelled = true
	}
}

// sweepInactive destroys every active frame except current, including frames
// still parked on triggers whose callbacks never fired. Trampolines tolerate
// the dead frames afterwards.
func (s *Scheduler) sweepInactive(current *frame) {
	for f := range s.active {
		if f != current {
			s.destroyFrame(f)
		}
	}
}

// timerCallbackRecord is held by the simulator across the suspension and
// cleared at the single firing.
type timerCallbackRecord struct {
	sched *Scheduler
	frame *frame
	id    gpi.CallbackID
}

func (r *timerCallbackRecord) fire() int32 {
	f := r.frame
	r.frame = nil
	if f == nil || f.dead {
		return 0
	}
	r.sched.scheduleReadWrite(f)
	return 0
}

// scheduleAfterTime installs a one-shot timed callback whose trampoline
// enqueues f for the next read-write phase. Registration failure falls back
// to a direct ready enqueue, best effort.
func (s *Scheduler) scheduleAfterTime(f *frame, ticks uint64) {
	r := &timerCallbackRecord{sched: s, frame: f}
	r.id = s.gpi.RegisterTimedCallback(r.fire, ticks)
	if r.id == 0 {
		s.log.Error("failed to register timed callback")
		r.frame = nil
		s.enqueueReady(f)
	}
}

// edgeCallbackRecord extends the timer record with the awaited signal edge.
type edgeCallbackRecord struct {
	sched  *Scheduler
	frame  *frame
	signal gpi.SimHandle
	edge   gpi.Edge
	id     gpi.CallbackID
}

func (r *edgeCallbackRecord) fire() int32 {
	f := r.frame
	r.frame = nil
	if f == nil || f.dead {
		return 0
	}
	// edges fire between phases: drain directly, without re-entering the
	// read-write trampoline
	r.sched.ready = append(r.sched.ready, f)
	r.sched.RunReady(false)
	return 0
}

// scheduleOnEdge installs a one-shot value-change callback whose trampoline
// pushes f onto the ready queue and drains it immediately.
func (s *Scheduler) scheduleOnEdge(f *frame, signal gpi.SimHandle, edge gpi.Edge) {
	r := &edgeCallbackRecord{sched: s, frame: f, signal: signal, edge: edge}
	r.id = s.gpi.RegisterValueChangeCallback(r.fire, signal, edge)
	if r.id == 0 {
		s.log.Errorf("failed to register value change callback on %s", s.gpi.SignalName(signal))
		r.frame = nil
		s.enqueueReady(f)
	}
}

// readonlyCallbackRecord parks one frame until the read-only phase.
type readonlyCallbackRecord struct {
	sched *Scheduler
	frame *frame
	id    gpi.CallbackID
}

func (r *readonlyCallbackRecord) fire() int32 {
	f := r.frame
	r.frame = nil
	if f == nil || f.dead {
		return 0
	}
	s := r.sched
	s.ready = append(s.ready, f)
	s.inReadonly = true
	s.RunReady(false)
	s.inReadonly = false
	if s.needRWAfterRO {
		// writes requested during the read-only phase defer to the next time
		// step
		s.needRWAfterRO = false
		s.gpi.RegisterNextTimeCallback(s.nexttimeCallback)
	}
	return 0
}

func (s *Scheduler) readwriteCallback() int32 {
	s.RunReady(true)
	return 0
}

func (s *Scheduler) nexttimeCallback() int32 {
	s.requestReadWriteCallback()
	return 0
}
