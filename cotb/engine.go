package cotb

import (
	"os"

	"github.com/sirupsen/logrus"

	"github.com/gocotb/gocotb/gpi"
)

// TopLevelEnv overrides the simulator-provided design root name.
const TopLevelEnv = "TOPLEVEL"

// Engine wires the scheduler and the test runner onto one simulator gateway.
// There is no process-wide state: the engine value is created before
// simulation starts and everything it owns threads through it.
type Engine struct {
	gpi    gpi.Interface
	logger *logrus.Logger
	sched  *Scheduler
	runner *Runner

	// Toplevel names the design root explicitly (empty selects the
	// simulator's default root); the TOPLEVEL environment variable applies
	// when that root resolves invalid.
	Toplevel string
}

// NewEngine builds an engine on the given gateway and installs its
// start-of-sim and end-of-sim hooks.
func NewEngine(g gpi.Interface) *Engine {
	logger := newLogger(g)
	sched := newScheduler(g, logger)
	runner := newRunner(sched, logger)
	sched.runner = runner
	e := &Engine{
		gpi:    g,
		logger: logger,
		sched:  sched,
		runner: runner,
	}
	g.RegisterStartOfSimCallback(e.onSimStart)
	g.RegisterEndOfSimCallback(e.onSimEnd)
	return e
}

// Logger exposes the engine's logger for level configuration.
func (e *Engine) Logger() *logrus.Logger { return e.logger }

// Scheduler exposes the coroutine scheduler.
func (e *Engine) Scheduler() *Scheduler { return e.sched }

// Runner exposes the test runner.
func (e *Engine) Runner() *Runner { return e.runner }

// Register adds a named test to the engine's regression.
func (e *Engine) Register(name string, fn TestFunc) {
	e.runner.Register(name, fn)
}

// Results returns the regression outcomes recorded so far.
func (e *Engine) Results() []TestResult { return e.runner.Results() }

// ExitCode is 0 when all tests passed, 1 otherwise.
func (e *Engine) ExitCode() int { return e.runner.ExitCode() }

func (e *Engine) onSimStart() {
	log := e.logger.WithField("component", "gocotb")
	log.Info("start of simulation")

	root := e.gpi.RootHandle(e.Toplevel)
	if !root.Valid() {
		if name := os.Getenv(TopLevelEnv); name != "" {
			root = e.gpi.RootHandle(name)
		}
	}
	if !root.Valid() {
		log.Error("failed to get root handle")
		return
	}
	e.runner.StartAll(newHandle(e.sched, root))
}

func (e *Engine) onSimEnd() {
	e.logger.WithField("component", "gocotb").Info("end of simulation")
}
