package cotb

import (
	"github.com/gocotb/gocotb/gpi"
)

// Clock returns a periodic-signal coroutine driving dut.clk: low for half a
// period, high for the other half, forever. Spawn it and discard the join
// handle after the test body; the inter-test sweep tears it down.
func Clock(dut *Handle, period uint64, unit gpi.Unit) TaskFunc {
	return func(co *Coro) error {
		clk := dut.Child("clk")
		for {
			clk.Set(0)
			co.Await(Timer(period/2, unit))
			clk.Set(1)
			co.Await(Timer(period/2, unit))
		}
	}
}
