package cotb

import (
	"github.com/gocotb/gocotb/gpi"
)

// Handle is a navigable reference into the design hierarchy. Handles are
// cheap, do not own the simulator object, and memoize child lookups —
// including misses, so repeated bad names don't re-query the simulator.
type Handle struct {
	sched *Scheduler
	hdl   gpi.SimHandle
	cache map[string]*Handle
}

func newHandle(s *Scheduler, h gpi.SimHandle) *Handle {
	return &Handle{sched: s, hdl: h}
}

// Valid reports whether the handle refers to a design object.
func (h *Handle) Valid() bool { return h != nil && h.hdl.Valid() }

func (h *Handle) raw() gpi.SimHandle {
	if h == nil {
		return gpi.NullHandle
	}
	return h.hdl
}

// Name returns the hierarchical name, for diagnostics.
func (h *Handle) Name() string {
	if !h.Valid() {
		return "<invalid>"
	}
	return h.sched.gpi.SignalName(h.hdl)
}

// Child indexes the hierarchy by name. A missing child is reported once and
// yields an invalid handle on this and subsequent lookups.
func (h *Handle) Child(name string) *Handle {
	if !h.Valid() {
		h.sched.log.Errorf("attempted to index an invalid handle with %q", name)
		return &Handle{sched: h.sched}
	}
	if h.cache == nil {
		h.cache = make(map[string]*Handle)
	}
	if child, ok := h.cache[name]; ok {
		return child
	}
	raw := h.sched.gpi.HandleByName(h.hdl, name)
	child := newHandle(h.sched, raw)
	if !raw.Valid() {
		h.sched.log.Errorf("failed to find child %q of %s", name, h.Name())
	}
	h.cache[name] = child
	return child
}

// Int reads the signal's value: the newest store still queued on the
// scheduler if one exists, else the settled simulator value. An invalid
// handle reads as zero.
func (h *Handle) Int() int64 {
	if !h.Valid() {
		return 0
	}
	if v, ok := h.sched.pendingValue(h.hdl); ok {
		return v
	}
	return h.sched.gpi.SignalValueLong(h.hdl)
}

// Uint reads the signal's value, as Int does, truncated to a 32-bit word.
func (h *Handle) Uint() uint32 { return uint32(h.Int()) }

// Bool reads the signal as a truth value.
func (h *Handle) Bool() bool {
	return h.Real() != 0
}

// Real reads the signal as a float.
func (h *Handle) Real() float64 {
	if !h.Valid() {
		return 0
	}
	if v, ok := h.sched.pendingValue(h.hdl); ok {
		return float64(v)
	}
	return h.sched.gpi.SignalValueReal(h.hdl)
}

// Set enqueues a store of value to this signal. The store is not applied
// until the next read-write phase; every write issued during one resume
// batch becomes visible together. A write to an invalid handle is reported
// and dropped.
func (h *Handle) Set(value int64) {
	if !h.Valid() {
		h.sched.log.Error("attempted to drive an invalid handle")
		return
	}
	h.sched.QueueWrite(h.hdl, value)
}

// SetBool enqueues a boolean store.
func (h *Handle) SetBool(value bool) {
	if value {
		h.Set(1)
	} else {
		h.Set(0)
	}
}
