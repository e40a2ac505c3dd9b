package cotb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gocotb/gocotb/gpi"
	"github.com/gocotb/gocotb/sim"
)

func TestWriteBeforeResume_TimerOfAnyDelay(t *testing.T) {
	// GIVEN a coroutine that writes, waits d ticks, then reads back
	for _, delay := range []uint64{0, 1, 3} {
		backend, e := newTestBench(func(s *sim.Simulator) {
			s.AddSignal("sig", 0)
		})
		e.Register("write_before_resume", func(co *Coro, dut *Handle) error {
			sig := dut.Child("sig")
			sig.Set(5)
			co.Await(Timer(delay, gpi.Ns))
			Assert(sig.Int() == 5, "read after Timer(%d) saw %d", delay, sig.Int())
			return nil
		})
		backend.Run(0)

		// THEN the read observes the written value regardless of d >= 0
		require.True(t, e.Results()[0].Passed, "delay %d: %v", delay, e.Results()[0].Err)
	}
}

func TestWritesApplyNoLaterThanAwaitedEdge(t *testing.T) {
	// GIVEN writes enqueued before awaiting a rising clock edge
	backend, e := newTestBench(func(s *sim.Simulator) {
		require.NoError(t, s.AttachDFF("clk", "d", "q"))
	})
	var dAtEdge int64 = -1
	e.Register("edge_write", func(co *Coro, dut *Handle) error {
		clk := dut.Child("clk")
		clock := co.Spawn(Clock(dut, 10, gpi.Us))
		defer clock.Cancel()

		dut.Child("d").Set(1)
		co.Await(RisingEdge(clk))
		dAtEdge = dut.Child("d").Int()
		return nil
	})
	backend.Run(0)

	// THEN the simulator observed the write by the time the edge arrived
	require.True(t, e.Results()[0].Passed, "test error: %v", e.Results()[0].Err)
	assert.Equal(t, int64(1), dAtEdge)
	assert.Zero(t, backend.IllegalWriteCount())
}

func TestDFFScenario_DriveAtEdgeReadNextEdge(t *testing.T) {
	// GIVEN a DFF and a spawned 10 us clock
	backend, e := newTestBench(func(s *sim.Simulator) {
		require.NoError(t, s.AttachDFF("clk", "d", "q"))
	})
	e.Register("dff", func(co *Coro, dut *Handle) error {
		clock := co.Spawn(Clock(dut, 10, gpi.Us))
		defer clock.Cancel()
		clk := dut.Child("clk")

		dut.Child("d").Set(1)
		co.Await(RisingEdge(clk))
		// q updates nonblocking: visible one edge later
		co.Await(RisingEdge(clk))
		Assert(dut.Child("q").Int() == 1, "q did not capture d, q=%d", dut.Child("q").Int())
		return nil
	})
	backend.Run(0)

	require.True(t, e.Results()[0].Passed, "test error: %v", e.Results()[0].Err)
	assert.Zero(t, backend.IllegalWriteCount())
}

func TestPhaseLegality_NoWriteOutsideReadWrite(t *testing.T) {
	// GIVEN a busy test mixing timers, edges and spawned writers
	backend, e := newTestBench(func(s *sim.Simulator) {
		require.NoError(t, s.AttachDFF("clk", "d", "q"))
		s.AddSignal("aux", 0)
	})
	e.Register("busy", func(co *Coro, dut *Handle) error {
		clock := co.Spawn(Clock(dut, 10, gpi.Us))
		defer clock.Cancel()
		aux := co.Spawn(func(co *Coro) error {
			sig := dut.Child("aux")
			for i := int64(0); i < 8; i++ {
				sig.Set(i % 2)
				co.Await(Timer(3, gpi.Us))
			}
			return nil
		})
		clk := dut.Child("clk")
		for i := 0; i < 5; i++ {
			dut.Child("d").Set(int64(i % 2))
			co.Await(RisingEdge(clk))
		}
		return aux.Join(co)
	})
	backend.Run(0)

	// THEN every store reached the simulator inside a read-write window
	require.True(t, e.Results()[0].Passed, "test error: %v", e.Results()[0].Err)
	assert.Zero(t, backend.IllegalWriteCount())
}

func TestCancelledFrameIsDestroyedWithoutResuming(t *testing.T) {
	backend, e := newTestBench(nil)
	resumedAfterCancel := false
	cleaned := false
	e.Register("cancel", func(co *Coro, dut *Handle) error {
		jh := co.Spawn(func(co *Coro) error {
			defer func() { cleaned = true }()
			for {
				co.Await(Timer(1, gpi.Ns))
				resumedAfterCancel = true
			}
		})
		co.Await(Timer(5, gpi.Ns))
		resumedAfterCancel = false
		jh.Cancel()
		// the child's timer for this time step has already queued it; the
		// scheduler must destroy the frame instead of resuming it
		co.Await(Timer(5, gpi.Ns))
		Assert(!resumedAfterCancel, "cancelled coroutine was resumed")
		Assert(cleaned, "cancelled coroutine was not unwound")
		return nil
	})
	backend.Run(0)
	require.True(t, e.Results()[0].Passed, "test error: %v", e.Results()[0].Err)
}

func TestTeardownSweep_DestroysParkedSiblings(t *testing.T) {
	// GIVEN a test that leaves a spawned infinite loop running
	backend, e := newTestBench(nil)
	cleaned := false
	e.Register("leaves_child", func(co *Coro, dut *Handle) error {
		co.Spawn(func(co *Coro) error {
			defer func() { cleaned = true }()
			for {
				co.Await(Timer(1000000, gpi.Ns))
			}
		})
		co.Await(Timer(1, gpi.Ns))
		return nil
	})
	e.Register("after", func(co *Coro, dut *Handle) error {
		co.Await(Timer(1, gpi.Ns))
		return nil
	})
	backend.Run(0)

	// THEN the inter-test sweep unwound the orphan before the next test
	require.True(t, cleaned)
	assert.Equal(t, 0, e.ExitCode())
}
