package cotb

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// TestFunc is a registered test body. It receives the design root alongside
// the coroutine capability.
type TestFunc func(co *Coro, dut *Handle) error

// TestResult is the recorded outcome of one test.
type TestResult struct {
	Name     string
	Passed   bool
	Duration time.Duration
	Err      error
}

type registeredTest struct {
	name string
	fn   TestFunc
}

// Runner drives the registered tests sequentially through the scheduler,
// isolating each test: coroutines spawned by one test are cancelled and
// swept before the next starts.
type Runner struct {
	sched *Scheduler
	log   *logrus.Entry

	tests   []registeredTest
	results []TestResult
	filter  func(name string) bool

	dut     *Handle
	index   int
	current *frame
	started time.Time
}

func newRunner(s *Scheduler, logger *logrus.Logger) *Runner {
	return &Runner{
		sched: s,
		log:   logger.WithField("component", "gocotb.regression"),
	}
}

// Register adds a named test to the regression.
func (r *Runner) Register(name string, fn TestFunc) {
	r.tests = append(r.tests, registeredTest{name: name, fn: fn})
}

// SetFilter restricts StartAll to tests the predicate accepts.
func (r *Runner) SetFilter(filter func(name string) bool) {
	r.filter = filter
}

// Results returns the recorded outcomes so far.
func (r *Runner) Results() []TestResult { return r.results }

// ExitCode is 0 when every selected test ran and passed, 1 otherwise. A
// regression the simulator starved before finishing counts as failed.
func (r *Runner) ExitCode() int {
	selected := 0
	for _, t := range r.tests {
		if r.filter == nil || r.filter(t.name) {
			selected++
		}
	}
	if len(r.results) < selected {
		return 1
	}
	for _, res := range r.results {
		if !res.Passed {
			return 1
		}
	}
	return 0
}

func (r *Runner) isCurrentTest(f *frame) bool { return r.current != nil && r.current == f }

func (r *Runner) currentFrame() *frame { return r.current }

// StartAll runs the regression against the given design root. It returns
// once the running test suspends into the simulator or every test has
// completed; remaining progress happens from simulator callbacks.
func (r *Runner) StartAll(dut *Handle) {
	if !dut.Valid() {
		r.log.Error("no design root available")
		return
	}
	r.log.Info("running tests")
	r.dut = dut
	r.index = 0
	r.results = r.results[:0]
	r.runNextTest()
}

func (r *Runner) runNextTest() {
	for r.index < len(r.tests) && r.filter != nil && !r.filter(r.tests[r.index].name) {
		r.index++
	}
	if r.index >= len(r.tests) {
		r.reportResults()
		r.sched.gpi.Finish()
		return
	}

	idx := r.index
	r.index++
	test := r.tests[idx]
	r.log.Infof("running %s (%d/%d)", test.name, r.index, len(r.tests))
	r.started = time.Now()

	if test.fn == nil {
		r.results = append(r.results, TestResult{
			Name:     test.name,
			Passed:   false,
			Duration: time.Since(r.started),
			Err:      errors.New("test has no body"),
		})
		r.runNextTest()
		return
	}

	f := r.sched.newFrame(test.name, func(co *Coro) error {
		return test.fn(co, r.dut)
	})
	f.detached = true
	r.current = f
	r.sched.schedule(f)
	r.sched.RunReady(false)
}

// onTestComplete is invoked by the scheduler when the current test's frame
// finishes. It captures the outcome, tears down the test's surviving
// coroutines and advances.
func (r *Runner) onTestComplete() {
	if r.current == nil {
		return
	}
	duration := time.Since(r.started)
	name := r.current.name
	testErr := r.current.err

	// cancel siblings, drain once to destroy the cancelled ones, then sweep
	// frames still parked on triggers that never fired
	r.sched.CancelAll()
	r.sched.RunReady(false)
	r.sched.sweepInactive(r.current)

	result := TestResult{
		Name:     name,
		Passed:   testErr == nil,
		Duration: duration,
		Err:      testErr,
	}
	r.results = append(r.results, result)

	current := r.current
	r.current = nil
	r.sched.destroyFrame(current)

	if result.Passed {
		r.log.Infof("%s passed  execution time: %.3f s", name, duration.Seconds())
	} else {
		r.log.Infof("%s failed  execution time: %.3f s", name, duration.Seconds())
		r.log.Errorf("  error: %v", testErr)
	}

	r.runNextTest()
}

func (r *Runner) reportResults() {
	const width = 60
	separator := make([]byte, width)
	for i := range separator {
		separator[i] = '*'
	}
	r.log.Info(string(separator))
	r.log.Infof("** %-30s %-8s %14s **", "TEST", "STATUS", "REAL TIME (s)")
	r.log.Info(string(separator))

	passed, failed := 0, 0
	for _, res := range r.results {
		status := "PASS"
		if !res.Passed {
			status = "FAIL"
			failed++
		} else {
			passed++
		}
		r.log.Infof("** %-30s %-8s %14.3f **", res.Name, status, res.Duration.Seconds())
		if !res.Passed && res.Err != nil {
			r.log.Errorf("**   %v", res.Err)
		}
	}

	r.log.Info(string(separator))
	r.log.Info(fmt.Sprintf("** TESTS=%d PASS=%d FAIL=%d", passed+failed, passed, failed))
	r.log.Info(string(separator))
}
