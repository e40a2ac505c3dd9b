// Package sim is an event-driven logic simulator backend implementing the
// gpi contract in-process. It exists so the coroutine core and its test
// suites run hermetically: signals live in a dotted-path hierarchy, timed
// callbacks wait in a deterministic event queue, and each time step settles
// through the value-change / read-write / read-only phases before time
// advances to the next queued event.
package sim

import (
	"github.com/sirupsen/logrus"

	"github.com/gocotb/gocotb/gpi"
)

// registration is a one-shot phase callback (read-write, read-only or
// next-time).
type registration struct {
	id gpi.CallbackID
	cb gpi.Callback
}

// nbaWrite is a nonblocking model assignment, applied after the user-facing
// callbacks of the wave that produced it.
type nbaWrite struct {
	sig   *signal
	value int64
}

// Simulator is the event loop: it holds simulation time, the design
// hierarchy, and the per-phase callback queues.
type Simulator struct {
	precision gpi.Unit
	clock     uint64
	seq       uint64

	root    *object
	handles []*object

	events *eventHeap
	rw     []*registration
	ro     []*registration
	nt     []*registration

	// delta-wave state
	changed []*signal
	nba     []nbaWrite

	inReadWrite bool
	// writes observed outside a read-write window; see IllegalWriteCount
	illegalWrites int

	finished   bool
	startOfSim func()
	endOfSim   func()

	log *logrus.Entry
}

// New creates a simulator with the named design root and tick precision.
func New(top string, precision gpi.Unit) *Simulator {
	s := &Simulator{
		precision: precision,
		events:    newEventHeap(),
		log:       logrus.WithField("component", "sim"),
	}
	s.root = s.newObject(nil, top)
	return s
}

// SetLogger redirects the simulator's event-loop logs.
func (s *Simulator) SetLogger(l *logrus.Logger) {
	s.log = l.WithField("component", "sim")
}

func (s *Simulator) nextSeq() uint64 {
	s.seq++
	return s.seq
}

// RootHandle implements gpi.Interface.
func (s *Simulator) RootHandle(name string) gpi.SimHandle {
	if name == "" || name == s.root.name {
		return s.root.id
	}
	return gpi.NullHandle
}

// HandleByName implements gpi.Interface.
func (s *Simulator) HandleByName(parent gpi.SimHandle, path string) gpi.SimHandle {
	obj := s.resolve(s.lookup(parent), path)
	if obj == nil {
		return gpi.NullHandle
	}
	return obj.id
}

// SimTime implements gpi.Interface.
func (s *Simulator) SimTime() uint64 { return s.clock }

// SimPrecision implements gpi.Interface.
func (s *Simulator) SimPrecision() gpi.Unit { return s.precision }

// RegisterTimedCallback implements gpi.Interface.
func (s *Simulator) RegisterTimedCallback(cb gpi.Callback, ticks uint64) gpi.CallbackID {
	id := s.nextSeq()
	s.events.PushEvent(&timedEvent{time: s.clock + ticks, seq: id, cb: cb})
	return gpi.CallbackID(id)
}

// RegisterValueChangeCallback implements gpi.Interface.
func (s *Simulator) RegisterValueChangeCallback(cb gpi.Callback, h gpi.SimHandle, edge gpi.Edge) gpi.CallbackID {
	obj := s.lookup(h)
	if obj == nil || obj.sig == nil {
		return 0
	}
	reg := &vcRegistration{id: gpi.CallbackID(s.nextSeq()), edge: edge, cb: cb}
	obj.sig.vcRegs = append(obj.sig.vcRegs, reg)
	return reg.id
}

// RegisterReadWriteCallback implements gpi.Interface.
func (s *Simulator) RegisterReadWriteCallback(cb gpi.Callback) gpi.CallbackID {
	reg := &registration{id: gpi.CallbackID(s.nextSeq()), cb: cb}
	s.rw = append(s.rw, reg)
	return reg.id
}

// RegisterReadOnlyCallback implements gpi.Interface.
func (s *Simulator) RegisterReadOnlyCallback(cb gpi.Callback) gpi.CallbackID {
	reg := &registration{id: gpi.CallbackID(s.nextSeq()), cb: cb}
	s.ro = append(s.ro, reg)
	return reg.id
}

// RegisterNextTimeCallback implements gpi.Interface.
func (s *Simulator) RegisterNextTimeCallback(cb gpi.Callback) gpi.CallbackID {
	reg := &registration{id: gpi.CallbackID(s.nextSeq()), cb: cb}
	s.nt = append(s.nt, reg)
	return reg.id
}

// SetSignalValue implements gpi.Interface. The stored value updates
// immediately; edge dispatch and model evaluation happen in the next delta
// wave, after the current callback returns.
func (s *Simulator) SetSignalValue(h gpi.SimHandle, value int64, _ gpi.ForceMode) {
	obj := s.lookup(h)
	if obj == nil || obj.sig == nil {
		s.log.Errorf("write to invalid handle %d dropped", h)
		return
	}
	if !s.inReadWrite {
		s.illegalWrites++
		s.log.Warnf("write to %s outside a read-write phase", obj.fullName)
	}
	s.applyWrite(obj.sig, value)
}

func (s *Simulator) applyWrite(sig *signal, value int64) {
	if sig.value == value {
		return
	}
	if !sig.changePending {
		sig.changePending = true
		sig.waveOld = sig.value
		s.changed = append(s.changed, sig)
	}
	sig.value = value
}

// SignalValueLong implements gpi.Interface.
func (s *Simulator) SignalValueLong(h gpi.SimHandle) int64 {
	obj := s.lookup(h)
	if obj == nil || obj.sig == nil {
		return 0
	}
	return obj.sig.value
}

// SignalValueReal implements gpi.Interface.
func (s *Simulator) SignalValueReal(h gpi.SimHandle) float64 {
	return float64(s.SignalValueLong(h))
}

// SignalName implements gpi.Interface.
func (s *Simulator) SignalName(h gpi.SimHandle) string {
	obj := s.lookup(h)
	if obj == nil {
		return "<invalid>"
	}
	return obj.fullName
}

// RegisterStartOfSimCallback implements gpi.Interface.
func (s *Simulator) RegisterStartOfSimCallback(cb func()) { s.startOfSim = cb }

// RegisterEndOfSimCallback implements gpi.Interface.
func (s *Simulator) RegisterEndOfSimCallback(cb func()) { s.endOfSim = cb }

// Finish implements gpi.Interface.
func (s *Simulator) Finish() { s.finished = true }

// IllegalWriteCount reports how many signal writes arrived outside a
// read-write window since the simulator was created.
func (s *Simulator) IllegalWriteCount() int { return s.illegalWrites }

// processWave dispatches one settled batch of signal changes: matching
// value-change callbacks fire first (observing pre-update model outputs),
// then edge-sensitive models run, then their nonblocking writes seed the
// next wave.
func (s *Simulator) processWave() {
	batch := s.changed
	s.changed = nil

	type firing struct {
		old, new int64
		sig      *signal
	}
	firings := make([]firing, 0, len(batch))
	for _, sig := range batch {
		old, cur := sig.waveOld, sig.value
		sig.changePending = false
		if old == cur {
			continue
		}
		firings = append(firings, firing{old: old, new: cur, sig: sig})
	}

	for _, f := range firings {
		// snapshot: callbacks registered during dispatch wait for a later edge
		regs := f.sig.vcRegs
		kept := regs[:0]
		var due []*vcRegistration
		for _, reg := range regs {
			if edgeMatches(reg.edge, f.old, f.new) {
				due = append(due, reg)
			} else {
				kept = append(kept, reg)
			}
		}
		f.sig.vcRegs = kept
		for _, reg := range due {
			reg.cb()
		}
	}

	for _, f := range firings {
		for _, p := range f.sig.procs {
			if edgeMatches(p.edge, f.old, f.new) {
				p.fn(s)
			}
		}
	}

	nba := s.nba
	s.nba = nil
	for _, w := range nba {
		s.applyWrite(w.sig, w.value)
	}
}

// nbaSet queues a nonblocking assignment from a behavioral model.
func (s *Simulator) nbaSet(h gpi.SimHandle, value int64) {
	obj := s.lookup(h)
	if obj == nil || obj.sig == nil {
		return
	}
	s.nba = append(s.nba, nbaWrite{sig: obj.sig, value: value})
}

func (s *Simulator) runReadWrite() {
	regs := s.rw
	s.rw = nil
	s.inReadWrite = true
	for _, reg := range regs {
		reg.cb()
	}
	s.inReadWrite = false
}

func (s *Simulator) runReadOnly() {
	regs := s.ro
	s.ro = nil
	for _, reg := range regs {
		reg.cb()
	}
}

func (s *Simulator) runNextTime() {
	regs := s.nt
	s.nt = nil
	for _, reg := range regs {
		reg.cb()
	}
}

func (s *Simulator) fireDueTimed() {
	for {
		top := s.events.Peek()
		if top == nil || top.time != s.clock {
			return
		}
		s.events.PopEvent().cb()
	}
}

// settle drains the current time step: delta waves, read-write phases and
// same-timestamp timed callbacks, in that order, until none remain.
func (s *Simulator) settle() {
	for !s.finished {
		if len(s.changed) > 0 {
			s.processWave()
			continue
		}
		if len(s.rw) > 0 {
			s.runReadWrite()
			continue
		}
		if top := s.events.Peek(); top != nil && top.time == s.clock {
			s.fireDueTimed()
			continue
		}
		return
	}
}

// Run drives the event loop until the design calls Finish, no activity
// remains, or simulation time would pass the horizon. A horizon of zero
// means no limit.
func (s *Simulator) Run(horizon uint64) {
	if s.startOfSim != nil {
		s.startOfSim()
	}
	for !s.finished {
		s.settle()
		if s.finished {
			break
		}
		if len(s.ro) > 0 {
			s.runReadOnly()
			continue
		}

		var next uint64
		switch {
		case s.events.Len() > 0:
			next = s.events.Peek().time
		case len(s.nt) > 0:
			next = s.clock + 1
		default:
			s.log.Debugf("[tick %07d] event queue exhausted", s.clock)
			s.finished = true
		}
		if s.finished {
			break
		}
		if horizon > 0 && next > horizon {
			s.log.Warnf("[tick %07d] horizon %d reached before tests finished", s.clock, horizon)
			break
		}
		s.clock = next
		s.log.Debugf("[tick %07d] advancing", s.clock)
		s.runNextTime()
	}
	if s.endOfSim != nil {
		s.endOfSim()
	}
}
