package sim

import (
	"strings"

	"github.com/gocotb/gocotb/gpi"
)

// object is a node in the design hierarchy: either a scope or a signal leaf.
type object struct {
	id       gpi.SimHandle
	name     string
	fullName string
	parent   *object
	children map[string]*object
	sig      *signal
}

// signal carries a settled value plus the bookkeeping for edge dispatch.
type signal struct {
	obj   *object
	value int64

	// delta-wave state: set while a change awaits dispatch
	changePending bool
	waveOld       int64

	vcRegs []*vcRegistration
	procs  []*process
}

// vcRegistration is a one-shot value-change callback filtered by edge kind.
type vcRegistration struct {
	id   gpi.CallbackID
	edge gpi.Edge
	cb   gpi.Callback
}

// process is a behavioral model evaluated when its trigger signal makes a
// matching transition. Models write results through the nonblocking queue so
// that user callbacks for the same transition observe pre-update values.
type process struct {
	edge gpi.Edge
	fn   func(s *Simulator)
}

func edgeMatches(edge gpi.Edge, old, new int64) bool {
	switch edge {
	case gpi.Rising:
		return old == 0 && new != 0
	case gpi.Falling:
		return old != 0 && new == 0
	case gpi.AnyEdge:
		return old != new
	}
	return false
}

func (s *Simulator) newObject(parent *object, name string) *object {
	obj := &object{
		name:     name,
		parent:   parent,
		children: make(map[string]*object),
	}
	if parent != nil {
		obj.fullName = parent.fullName + "." + name
		parent.children[name] = obj
	} else {
		obj.fullName = name
	}
	s.handles = append(s.handles, obj)
	obj.id = gpi.SimHandle(len(s.handles))
	return obj
}

func (s *Simulator) lookup(h gpi.SimHandle) *object {
	if h == gpi.NullHandle || int(h) > len(s.handles) {
		return nil
	}
	return s.handles[int(h)-1]
}

// AddSignal creates (or returns) the signal at the dotted path below the
// design root. Intermediate scopes are created on demand.
func (s *Simulator) AddSignal(path string, init int64) gpi.SimHandle {
	obj := s.root
	for _, part := range strings.Split(path, ".") {
		child, ok := obj.children[part]
		if !ok {
			child = s.newObject(obj, part)
		}
		obj = child
	}
	if obj.sig == nil {
		obj.sig = &signal{obj: obj, value: init}
	}
	return obj.id
}

func (s *Simulator) resolve(parent *object, path string) *object {
	obj := parent
	for _, part := range strings.Split(path, ".") {
		if obj == nil {
			return nil
		}
		obj = obj.children[part]
	}
	return obj
}
