package cotb

import (
	"github.com/sirupsen/logrus"

	"github.com/gocotb/gocotb/gpi"
	"github.com/gocotb/gocotb/sim"
)

// newTestBench builds a ns-precision simulator plus an engine wired to it,
// with logging quieted for test runs.
func newTestBench(build func(*sim.Simulator)) (*sim.Simulator, *Engine) {
	backend := sim.New("top", gpi.Ns)
	if build != nil {
		build(backend)
	}
	e := NewEngine(backend)
	e.Logger().SetLevel(logrus.FatalLevel)
	backend.SetLogger(e.Logger())
	return backend, e
}

// gatewayHooks wraps a gpi backend to observe or sabotage individual calls.
type gatewayHooks struct {
	gpi.Interface
	onHandleByName  func()
	failTimed       bool
	failValueChange bool
}

func (g *gatewayHooks) HandleByName(parent gpi.SimHandle, path string) gpi.SimHandle {
	if g.onHandleByName != nil {
		g.onHandleByName()
	}
	return g.Interface.HandleByName(parent, path)
}

func (g *gatewayHooks) RegisterTimedCallback(cb gpi.Callback, ticks uint64) gpi.CallbackID {
	if g.failTimed {
		return 0
	}
	return g.Interface.RegisterTimedCallback(cb, ticks)
}

func (g *gatewayHooks) RegisterValueChangeCallback(cb gpi.Callback, signal gpi.SimHandle, edge gpi.Edge) gpi.CallbackID {
	if g.failValueChange {
		return 0
	}
	return g.Interface.RegisterValueChangeCallback(cb, signal, edge)
}
