package cotb

import (
	"github.com/gocotb/gocotb/gpi"
)

// Trigger describes why a coroutine suspends: elapsed time, a signal edge or
// a phase rendezvous. A trigger is consumed by a single Await.
type Trigger interface {
	// ready short-circuits suspension when the condition already holds.
	ready() bool
	// suspend registers f's resumption under the trigger's condition.
	suspend(s *Scheduler, f *frame)
}

type timerTrigger struct {
	delay uint64
	unit  gpi.Unit
}

// Timer elapses after delay expressed in unit, converted to simulator ticks
// with the simulator's precision. A zero delay does not suspend.
func Timer(delay uint64, unit gpi.Unit) Trigger {
	return timerTrigger{delay: delay, unit: unit}
}

func (t timerTrigger) ready() bool { return t.delay == 0 }

func (t timerTrigger) suspend(s *Scheduler, f *frame) {
	s.scheduleAfterTime(f, gpi.Ticks(t.delay, t.unit, s.gpi.SimPrecision()))
}

type edgeTrigger struct {
	sig  *Handle
	edge gpi.Edge
}

// RisingEdge elapses on the signal's next 0-to-nonzero transition.
func RisingEdge(sig *Handle) Trigger { return edgeTrigger{sig: sig, edge: gpi.Rising} }

// FallingEdge elapses on the signal's next nonzero-to-0 transition.
func FallingEdge(sig *Handle) Trigger { return edgeTrigger{sig: sig, edge: gpi.Falling} }

// Edge elapses on the signal's next value change of either direction.
func Edge(sig *Handle) Trigger { return edgeTrigger{sig: sig, edge: gpi.AnyEdge} }

func (t edgeTrigger) ready() bool { return false }

func (t edgeTrigger) suspend(s *Scheduler, f *frame) {
	s.scheduleOnEdge(f, t.sig.raw(), t.edge)
}

type readOnlyTrigger struct{}

// ReadOnly elapses in the read-only phase of the current time step, once all
// writes have settled. Signal stores are deferred to the next time step
// while there.
func ReadOnly() Trigger { return readOnlyTrigger{} }

func (readOnlyTrigger) ready() bool { return false }

func (readOnlyTrigger) suspend(s *Scheduler, f *frame) {
	s.scheduleReadOnly(f)
}
