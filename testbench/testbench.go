// Package testbench registers the demo regressions the CLI runs against the
// built-in simulator: a D flip-flop exercise, an AXI-Lite register-file
// soak, and a deliberately failing trio for runner isolation.
package testbench

import (
	"math/rand"

	"github.com/gocotb/gocotb/axil"
	"github.com/gocotb/gocotb/cotb"
	"github.com/gocotb/gocotb/gpi"
)

// Wait drives a fixed stimulus pattern on clk and d, t ticks per step. The
// third step produces a rising clock edge with d high.
func Wait(dut *cotb.Handle, t uint64) cotb.TaskFunc {
	return func(co *cotb.Coro) error {
		co.Await(cotb.Timer(t, gpi.Step))
		dut.Child("clk").Set(0)
		co.Await(cotb.Timer(t, gpi.Step))
		dut.Child("d").Set(1)
		co.Await(cotb.Timer(t, gpi.Step))
		dut.Child("clk").Set(1)
		co.Await(cotb.Timer(t, gpi.Step))
		dut.Child("d").Set(0)
		return nil
	}
}

// RegisterDFF adds the flip-flop tests.
func RegisterDFF(e *cotb.Engine, seed int64) {
	e.Register("test_dff", func(co *cotb.Coro, dut *cotb.Handle) error {
		co.Log().Info("starting test_dff coroutine")
		rng := rand.New(rand.NewSource(seed))

		// initial input value, so it doesn't float
		dut.Child("d").Set(0)

		clock := co.Spawn(cotb.Clock(dut, 10, gpi.Us))
		defer clock.Cancel()

		clk := dut.Child("clk")

		// synchronize with the clock; this registers the initial d value
		co.Await(cotb.RisingEdge(clk))

		expected := int64(0)
		for i := 0; i < 10; i++ {
			val := int64(rng.Intn(2))
			dut.Child("d").Set(val)
			co.Await(cotb.RisingEdge(clk))
			cotb.Assert(expected == dut.Child("q").Int(),
				"output q was incorrect on the %d th cycle", i)
			expected = val
		}

		co.Await(cotb.RisingEdge(clk))
		cotb.Assert(expected == dut.Child("q").Int(), "output q was incorrect on the last cycle")

		co.Log().Info("test_dff completed successfully")
		return nil
	})

	e.Register("test_dff_post", func(co *cotb.Coro, dut *cotb.Handle) error {
		co.Log().Info("starting test_dff_post coroutine")

		dut.Child("d").Set(0)
		dut.Child("clk").Set(0)

		if err := co.JoinTask(co.NewTask(Wait(dut, 20))); err != nil {
			return err
		}
		co.Await(cotb.Timer(10, gpi.Step))

		cotb.Assert(dut.Child("q").Int() == 1, "1: output q was incorrect")

		co.Await(cotb.Timer(10, gpi.Step))

		dut.Child("clk").Set(0)
		dut.Child("d").Set(0)
		co.Await(cotb.Timer(10, gpi.Step))
		dut.Child("clk").Set(1)
		co.Await(cotb.Timer(10, gpi.Step))
		dut.Child("d").Set(0)

		cotb.Assert(dut.Child("q").Int() == 0, "2: output q was incorrect")

		if err := co.JoinTask(co.NewTask(Wait(dut, 100))); err != nil {
			return err
		}
		co.Log().Info("spawning wait coroutine")
		wait := co.Spawn(Wait(dut, 100))
		if err := wait.Join(co); err != nil {
			return err
		}
		co.Log().Info("joined wait coroutine")

		co.Await(cotb.Timer(10, gpi.Step))
		cotb.Assert(dut.Child("q").Int() == 1, "3: output q was incorrect")

		simTime := co.SimTime()
		co.Await(cotb.Timer(10, gpi.Step))
		cotb.Assert(co.SimTime() == simTime+10, "timer in steps advanced the wrong amount")

		co.Await(cotb.Timer(10, gpi.Us))
		wantTicks := gpi.Ticks(10, gpi.Us, co.Precision())
		cotb.Assert(co.SimTime() == simTime+10+wantTicks, "timer in us advanced the wrong amount")

		co.Log().Info("completed test_dff_post successfully")
		return nil
	})
}

// aclkDriver drives the AXI bus clock with a period of 2*half ticks.
func aclkDriver(dut *cotb.Handle, half uint64) cotb.TaskFunc {
	return func(co *cotb.Coro) error {
		aclk := dut.Child("ACLK")
		for {
			aclk.Set(0)
			co.Await(cotb.Timer(half, gpi.Step))
			aclk.Set(1)
			co.Await(cotb.Timer(half, gpi.Step))
		}
	}
}

// RegisterAxil adds the AXI-Lite register-file soak test. iterations bounds
// the randomized write/read loop.
func RegisterAxil(e *cotb.Engine, seed int64, iterations int) {
	e.Register("axil_simple_test", func(co *cotb.Coro, dut *cotb.Handle) error {
		co.Log().Info("starting axil_simple_test coroutine")

		clk := dut.Child("ACLK")
		clock := co.Spawn(aclkDriver(dut, 5))
		defer clock.Cancel()

		driver := axil.NewDriver(dut, clk)
		driver.Reset(co)
		for dut.Child("ARESETn").Int() == 0 {
			co.Await(cotb.RisingEdge(clk))
		}

		rng := rand.New(rand.NewSource(seed))
		mem := make([]uint32, 1024)
		for i := 0; i < iterations; i++ {
			addr := uint32(rng.Intn(1024))
			data := rng.Uint32()
			mem[addr] = data
			driver.Write(co, addr*4, data, 0xF)

			addrRd := uint32(rng.Intn(1024))
			dataRd := driver.Read(co, addrRd*4)
			cotb.Assert(dataRd == mem[addrRd],
				"read back 0x%X from address 0x%X", dataRd, addrRd*4)
		}

		driver.Write(co, 0x100, 0xDEADBEEF, 0xF)
		dataRd := driver.Read(co, 0x100)
		cotb.Assert(dataRd == 0xDEADBEEF, "read back 0x%X from address 0x100", dataRd)

		co.Await(cotb.Timer(1, gpi.Us))

		co.Log().Info("completed axil_simple_test coroutine")
		return nil
	})
}

// RegisterFailure adds the pass/fail/pass trio that checks per-test
// isolation and the process exit code.
func RegisterFailure(e *cotb.Engine) {
	e.Register("test_pass_before_failure", func(co *cotb.Coro, dut *cotb.Handle) error {
		co.Await(cotb.Timer(10, gpi.Step))
		return nil
	})
	e.Register("test_failure", func(co *cotb.Coro, dut *cotb.Handle) error {
		co.Log().Info("starting test_failure coroutine")
		cotb.Assert(false, "expected failure")
		co.Await(cotb.Timer(10, gpi.Step))
		return nil
	})
	e.Register("test_pass_after_failure", func(co *cotb.Coro, dut *cotb.Handle) error {
		co.Await(cotb.Timer(10, gpi.Step))
		return nil
	})
}
