// Package gpi defines the generic programming interface contract between the
// coroutine core and a hardware simulator: opaque design handles, one-shot
// callback registration for the simulator's scheduling phases, and signal
// value access. The core consumes this contract; backends implement it.
package gpi

import (
	"github.com/pkg/errors"
)

// SimHandle is an opaque reference to a simulator object (scope or signal).
// The zero value is invalid.
type SimHandle uint64

// NullHandle is the invalid handle.
const NullHandle SimHandle = 0

// Valid reports whether h refers to a simulator object.
func (h SimHandle) Valid() bool { return h != NullHandle }

// CallbackID identifies a registered callback. Zero means the registration
// failed.
type CallbackID uint64

// Callback is the simulator callback signature. The return value is ignored
// by the core; convention is 0. Each firing consumes its registration.
type Callback func() int32

// Edge selects which value transitions fire a value-change callback.
type Edge int32

const (
	Rising  Edge = 1
	Falling Edge = 2
	AnyEdge Edge = 3
)

func (e Edge) String() string {
	switch e {
	case Rising:
		return "rising"
	case Falling:
		return "falling"
	case AnyEdge:
		return "any"
	}
	return "unknown"
}

// ForceMode selects how a signal write is applied.
type ForceMode int32

const (
	Deposit ForceMode = iota
	Force
	Release
)

// Unit is a simulation time unit, encoded as a power-of-ten exponent.
// Step is the simulator's native tick and carries no exponent.
type Unit int32

const (
	Fs   Unit = -15
	Ps   Unit = -12
	Ns   Unit = -9
	Us   Unit = -6
	Ms   Unit = -3
	Sec  Unit = 1
	Step Unit = 0
)

func (u Unit) String() string {
	switch u {
	case Fs:
		return "fs"
	case Ps:
		return "ps"
	case Ns:
		return "ns"
	case Us:
		return "us"
	case Ms:
		return "ms"
	case Sec:
		return "sec"
	case Step:
		return "step"
	}
	return "unknown"
}

// ParseUnit resolves a unit name as used in configs and bridge tokens.
func ParseUnit(s string) (Unit, error) {
	switch s {
	case "fs":
		return Fs, nil
	case "ps":
		return Ps, nil
	case "ns":
		return Ns, nil
	case "us":
		return Us, nil
	case "ms":
		return Ms, nil
	case "sec":
		return Sec, nil
	case "step":
		return Step, nil
	}
	return Step, errors.Errorf("unknown time unit %q", s)
}

// Ticks converts a delay expressed in unit u into simulator ticks given the
// simulator precision exponent: delay * 10^(u - precision), rounded toward
// zero. A Step delay is already in ticks and passes through unchanged.
func Ticks(delay uint64, u, precision Unit) uint64 {
	if u == Step {
		return delay
	}
	exp := int(u) - int(precision)
	if exp >= 0 {
		for i := 0; i < exp; i++ {
			delay *= 10
		}
		return delay
	}
	for i := 0; i < -exp; i++ {
		delay /= 10
	}
	return delay
}

// Interface is the simulator gateway consumed by the core. All callbacks are
// one-shot; implementations run them on the simulator's single scheduling
// goroutine.
type Interface interface {
	// RootHandle resolves the design root, preferring an explicit name.
	// An empty name yields the simulator's default root.
	RootHandle(name string) SimHandle

	// HandleByName resolves a dotted hierarchical path below parent.
	HandleByName(parent SimHandle, path string) SimHandle

	// SimTime returns the current simulation time in ticks.
	SimTime() uint64

	// SimPrecision returns the tick size as a power-of-ten exponent.
	SimPrecision() Unit

	// RegisterTimedCallback fires cb once after ticks simulator ticks.
	RegisterTimedCallback(cb Callback, ticks uint64) CallbackID

	// RegisterValueChangeCallback fires cb once when signal makes an edge
	// transition.
	RegisterValueChangeCallback(cb Callback, signal SimHandle, edge Edge) CallbackID

	// RegisterReadWriteCallback fires cb at the next read-write phase of the
	// current time step.
	RegisterReadWriteCallback(cb Callback) CallbackID

	// RegisterReadOnlyCallback fires cb after all writes for the current time
	// step have settled.
	RegisterReadOnlyCallback(cb Callback) CallbackID

	// RegisterNextTimeCallback fires cb at the start of the next time step.
	RegisterNextTimeCallback(cb Callback) CallbackID

	SetSignalValue(h SimHandle, value int64, mode ForceMode)
	SignalValueLong(h SimHandle) int64
	SignalValueReal(h SimHandle) float64

	// SignalName returns the hierarchical name of h, for diagnostics.
	SignalName(h SimHandle) string

	// RegisterStartOfSimCallback installs the hook run once when simulation
	// starts, before any time advances.
	RegisterStartOfSimCallback(cb func())

	// RegisterEndOfSimCallback installs the hook run once when simulation
	// ends.
	RegisterEndOfSimCallback(cb func())

	// Finish requests the simulator to stop.
	Finish()
}
