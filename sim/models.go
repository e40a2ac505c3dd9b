package sim

import (
	"github.com/pkg/errors"

	"github.com/gocotb/gocotb/gpi"
)

// attachProcess registers an edge-sensitive behavioral process on a signal.
func (s *Simulator) attachProcess(h gpi.SimHandle, edge gpi.Edge, fn func(*Simulator)) error {
	obj := s.lookup(h)
	if obj == nil || obj.sig == nil {
		return errors.Errorf("no signal at handle %d", h)
	}
	obj.sig.procs = append(obj.sig.procs, &process{edge: edge, fn: fn})
	return nil
}

// AttachDFF models a positive-edge D flip-flop: on each rising edge of clk,
// q takes the value d held at the edge. The update is nonblocking, so user
// callbacks for the same clock edge observe the previous q.
func (s *Simulator) AttachDFF(clk, d, q string) error {
	clkH := s.AddSignal(clk, 0)
	dH := s.AddSignal(d, 0)
	qH := s.AddSignal(q, 0)
	return s.attachProcess(clkH, gpi.Rising, func(s *Simulator) {
		s.nbaSet(qH, s.SignalValueLong(dH))
	})
}

// AxilConfig parameterizes the AXI-Lite register-file model. Signal names
// follow the channel naming of the bus; Prefix scopes them below the root
// ("" keeps them at top level).
type AxilConfig struct {
	Prefix string
	Words  int
}

func (c AxilConfig) path(name string) string {
	if c.Prefix == "" {
		return name
	}
	return c.Prefix + "." + name
}

// AttachAxilRegFile models a single-beat AXI-Lite slave backed by a word
// memory. Write: AWVALID/WVALID accepted together, response on BVALID until
// BREADY. Read: ARVALID accepted, data on RVALID until RREADY. All outputs
// update nonblocking on the rising edge of ACLK; ARESETn low clears them.
func (s *Simulator) AttachAxilRegFile(cfg AxilConfig) error {
	if cfg.Words <= 0 {
		return errors.New("axil regfile needs a positive word count")
	}
	aclk := s.AddSignal(cfg.path("ACLK"), 0)
	rstn := s.AddSignal(cfg.path("ARESETn"), 1)

	awaddr := s.AddSignal(cfg.path("AWADDR"), 0)
	awvalid := s.AddSignal(cfg.path("AWVALID"), 0)
	awready := s.AddSignal(cfg.path("AWREADY"), 0)
	wdata := s.AddSignal(cfg.path("WDATA"), 0)
	wstrb := s.AddSignal(cfg.path("WSTRB"), 0)
	wvalid := s.AddSignal(cfg.path("WVALID"), 0)
	wready := s.AddSignal(cfg.path("WREADY"), 0)
	bvalid := s.AddSignal(cfg.path("BVALID"), 0)
	bready := s.AddSignal(cfg.path("BREADY"), 0)
	bresp := s.AddSignal(cfg.path("BRESP"), 0)

	araddr := s.AddSignal(cfg.path("ARADDR"), 0)
	arvalid := s.AddSignal(cfg.path("ARVALID"), 0)
	arready := s.AddSignal(cfg.path("ARREADY"), 0)
	rdata := s.AddSignal(cfg.path("RDATA"), 0)
	rvalid := s.AddSignal(cfg.path("RVALID"), 0)
	rready := s.AddSignal(cfg.path("RREADY"), 0)
	rresp := s.AddSignal(cfg.path("RRESP"), 0)

	mem := make([]uint32, cfg.Words)

	return s.attachProcess(aclk, gpi.Rising, func(s *Simulator) {
		if s.SignalValueLong(rstn) == 0 {
			for _, h := range []gpi.SimHandle{awready, wready, bvalid, bresp, arready, rvalid, rresp, rdata} {
				s.nbaSet(h, 0)
			}
			return
		}

		// write channel: accept address and data in the same beat
		wAccept := s.SignalValueLong(awvalid) != 0 &&
			s.SignalValueLong(wvalid) != 0 &&
			s.SignalValueLong(awready) == 0
		if wAccept {
			s.nbaSet(awready, 1)
			s.nbaSet(wready, 1)
			idx := (uint64(s.SignalValueLong(awaddr)) >> 2) % uint64(len(mem))
			strb := uint32(s.SignalValueLong(wstrb)) & 0xF
			data := uint32(s.SignalValueLong(wdata))
			old := mem[idx]
			var mask uint32
			for b := 0; b < 4; b++ {
				if strb&(1<<b) != 0 {
					mask |= 0xFF << (8 * b)
				}
			}
			mem[idx] = (old &^ mask) | (data & mask)
		} else {
			s.nbaSet(awready, 0)
			s.nbaSet(wready, 0)
		}
		if s.SignalValueLong(bvalid) != 0 {
			if s.SignalValueLong(bready) != 0 {
				s.nbaSet(bvalid, 0)
			}
		} else if wAccept {
			s.nbaSet(bvalid, 1)
			s.nbaSet(bresp, 0)
		}

		// read channel
		rAccept := s.SignalValueLong(arvalid) != 0 &&
			s.SignalValueLong(arready) == 0
		if rAccept {
			s.nbaSet(arready, 1)
			idx := (uint64(s.SignalValueLong(araddr)) >> 2) % uint64(len(mem))
			s.nbaSet(rdata, int64(mem[idx]))
		} else {
			s.nbaSet(arready, 0)
		}
		if s.SignalValueLong(rvalid) != 0 {
			if s.SignalValueLong(rready) != 0 {
				s.nbaSet(rvalid, 0)
			}
		} else if rAccept {
			s.nbaSet(rvalid, 1)
			s.nbaSet(rresp, 0)
		}
	})
}
