package bridge

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocotb/gocotb/cotb"
	"github.com/gocotb/gocotb/gpi"
	"github.com/gocotb/gocotb/sim"
)

// scriptedSource fakes an embedded script: a fixed token sequence plus a
// recording of every resume value handed back.
type scriptedSource struct {
	tokens  []Token
	index   int
	resumes []Resume
	err     error
}

func (s *scriptedSource) Next(resume Resume) (Token, bool, error) {
	s.resumes = append(s.resumes, resume)
	if s.err != nil {
		return Token{}, false, s.err
	}
	if s.index >= len(s.tokens) {
		return Token{}, false, nil
	}
	tok := s.tokens[s.index]
	s.index++
	return tok, true, nil
}

func newBench(t *testing.T) (*sim.Simulator, *cotb.Engine) {
	t.Helper()
	backend := sim.New("top", gpi.Ns)
	backend.AddSignal("clk", 0)
	e := cotb.NewEngine(backend)
	e.Logger().SetLevel(logrus.FatalLevel)
	backend.SetLogger(e.Logger())
	return backend, e
}

func TestRun_TimerAndEdgeTokens(t *testing.T) {
	// GIVEN a script yielding a timer token then an edge token
	backend, e := newBench(t)
	src := &scriptedSource{tokens: []Token{
		{Kind: KindTimer, Delay: 10, UnitName: "ns"},
		{Kind: KindEdge, Path: "clk"},
	}}
	var edgeSeen uint64
	e.Register("script", func(co *cotb.Coro, dut *cotb.Handle) error {
		driver := co.Spawn(func(co *cotb.Coro) error {
			co.Await(cotb.Timer(25, gpi.Ns))
			dut.Child("clk").Set(1)
			return nil
		})
		defer driver.Cancel()
		if err := Run(co, dut, src); err != nil {
			return err
		}
		edgeSeen = co.SimTime()
		return nil
	})
	backend.Run(0)

	require.Len(t, e.Results(), 1)
	require.True(t, e.Results()[0].Passed, "test error: %v", e.Results()[0].Err)
	assert.Equal(t, uint64(25), edgeSeen)
	// one resume per Next call: initial, post-timer, post-edge
	assert.Len(t, src.resumes, 3)
}

func TestRun_OpTokenRoundTripsResult(t *testing.T) {
	// GIVEN an op token wrapping a native coroutine with a u32 output slot
	backend, e := newBench(t)
	e.Register("op_script", func(co *cotb.Coro, dut *cotb.Handle) error {
		op := &OpState{Result: ResultU32}
		op.Task = co.NewTask(func(co *cotb.Coro) error {
			co.Await(cotb.Timer(5, gpi.Ns))
			op.U32 = 0xBEEF
			return nil
		})
		src := &scriptedSource{tokens: []Token{{Kind: KindOp, Op: op}}}
		if err := Run(co, dut, src); err != nil {
			return err
		}
		// the op's value comes back as the script's resume value
		cotb.Assert(len(src.resumes) == 2, "want 2 resumes, got %d", len(src.resumes))
		v, ok := src.resumes[1].Value.(uint32)
		cotb.Assert(ok && v == 0xBEEF, "resume value %v", src.resumes[1].Value)
		return nil
	})
	backend.Run(0)
	require.True(t, e.Results()[0].Passed, "test error: %v", e.Results()[0].Err)
}

func TestRun_OpErrorSurfaces(t *testing.T) {
	backend, e := newBench(t)
	var runErr error
	e.Register("op_error", func(co *cotb.Coro, dut *cotb.Handle) error {
		op := &OpState{}
		op.Task = co.NewTask(func(co *cotb.Coro) error {
			op.Err = "bus fault"
			return nil
		})
		src := &scriptedSource{tokens: []Token{{Kind: KindOp, Op: op}}}
		runErr = Run(co, dut, src)
		return nil
	})
	backend.Run(0)
	require.True(t, e.Results()[0].Passed)
	require.Error(t, runErr)
	assert.Contains(t, runErr.Error(), "bus fault")
}

func TestRun_ScriptErrorWrapped(t *testing.T) {
	backend, e := newBench(t)
	var runErr error
	e.Register("script_error", func(co *cotb.Coro, dut *cotb.Handle) error {
		src := &scriptedSource{err: errors.New("syntax error")}
		runErr = Run(co, dut, src)
		return nil
	})
	backend.Run(0)
	require.Error(t, runErr)
	assert.Contains(t, runErr.Error(), "syntax error")
}

func TestRun_BadTokensRejected(t *testing.T) {
	backend, e := newBench(t)
	var badUnit, badPath error
	e.Register("bad_tokens", func(co *cotb.Coro, dut *cotb.Handle) error {
		badUnit = Run(co, dut, &scriptedSource{tokens: []Token{
			{Kind: KindTimer, Delay: 1, UnitName: "eons"},
		}})
		badPath = Run(co, dut, &scriptedSource{tokens: []Token{
			{Kind: KindEdge, Path: "no.such.signal"},
		}})
		return nil
	})
	backend.Run(0)
	assert.Error(t, badUnit)
	assert.Error(t, badPath)
}
