// Package axil implements an AXI-Lite master driver as coroutines over the
// core's native triggers. Handshakes sample the bus at each rising clock
// edge, observing pre-edge values the way a synchronous master would.
package axil

import (
	"github.com/gocotb/gocotb/cotb"
)

// Driver is an AXI-Lite master bound to a DUT scope and its bus clock.
type Driver struct {
	dut *cotb.Handle
	clk *cotb.Handle
}

// NewDriver binds a driver to the bus signals below dut, clocked by clk.
func NewDriver(dut, clk *cotb.Handle) *Driver {
	return &Driver{dut: dut, clk: clk}
}

// Reset parks every master-driven control signal low and waits one edge.
func (d *Driver) Reset(co *cotb.Coro) {
	d.dut.Child("AWVALID").Set(0)
	d.dut.Child("WVALID").Set(0)
	d.dut.Child("BREADY").Set(0)
	d.dut.Child("ARVALID").Set(0)
	d.dut.Child("RREADY").Set(0)
	co.Await(cotb.RisingEdge(d.clk))
}

// Write performs a single-beat write: address and data are offered together
// and held until the slave accepts both, then the response channel drains.
func (d *Driver) Write(co *cotb.Coro, addr, data, wstrb uint32) {
	d.dut.Child("AWADDR").Set(int64(addr))
	d.dut.Child("AWVALID").Set(1)

	d.dut.Child("WDATA").Set(int64(data))
	d.dut.Child("WSTRB").Set(int64(wstrb))
	d.dut.Child("WVALID").Set(1)

	for {
		co.Await(cotb.RisingEdge(d.clk))
		if d.dut.Child("AWREADY").Bool() && d.dut.Child("WREADY").Bool() {
			break
		}
	}

	d.dut.Child("AWVALID").Set(0)
	d.dut.Child("WVALID").Set(0)

	d.dut.Child("BREADY").Set(1)
	for {
		co.Await(cotb.RisingEdge(d.clk))
		if d.dut.Child("BVALID").Bool() {
			break
		}
	}
	d.dut.Child("BREADY").Set(0)
}

// Read performs a single-beat read and returns the data word.
func (d *Driver) Read(co *cotb.Coro, addr uint32) uint32 {
	d.dut.Child("ARADDR").Set(int64(addr))
	d.dut.Child("ARVALID").Set(1)

	for {
		co.Await(cotb.RisingEdge(d.clk))
		if d.dut.Child("ARREADY").Bool() {
			break
		}
	}

	d.dut.Child("ARVALID").Set(0)

	var data uint32
	d.dut.Child("RREADY").Set(1)
	for {
		co.Await(cotb.RisingEdge(d.clk))
		if d.dut.Child("RVALID").Bool() {
			data = d.dut.Child("RDATA").Uint()
			break
		}
	}
	d.dut.Child("RREADY").Set(0)
	return data
}
