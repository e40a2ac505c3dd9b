// Package bridge defines the trigger-token contract between an embedded
// scripting layer and the coroutine core. A script cooperates by yielding
// tokens describing what to wait on; the bridge translates each token into a
// native trigger and round-trips results back as resume values. No
// interpreter is linked here — any token source satisfying Source works.
package bridge

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/gocotb/gocotb/cotb"
	"github.com/gocotb/gocotb/gpi"
)

// Kind discriminates the token payload.
type Kind int

const (
	// KindTimer waits for an elapsed time: payload is Delay and UnitName.
	KindTimer Kind = iota
	// KindEdge waits for a rising edge on the signal at Path.
	KindEdge
	// KindOp joins a native coroutine carried in Op.
	KindOp
)

func (k Kind) String() string {
	switch k {
	case KindTimer:
		return "timer"
	case KindEdge:
		return "edge"
	case KindOp:
		return "op"
	}
	return "unknown"
}

// ResultKind tags an op's output slot.
type ResultKind uint8

const (
	ResultNone ResultKind = iota
	ResultU32
)

// OpState is the shared state of an op token: a native coroutine reference
// plus an output slot. The op's body fills U32 (when ResultU32) and records
// any failure in Err before completing.
type OpState struct {
	Task   *cotb.Task
	Result ResultKind
	U32    uint32
	Err    string
}

// Token is one yielded awaitable descriptor.
type Token struct {
	Kind Kind

	// timer payload
	Delay    uint64
	UnitName string

	// edge payload
	Path string

	// op payload
	Op *OpState
}

// Resume is the value handed back to the script after its token elapsed.
// Value is nil except after an op with a u32 output slot.
type Resume struct {
	Value any
}

// Source yields the script's tokens. Next receives the resume value of the
// previous token and reports more=false when the script has finished.
type Source interface {
	Next(resume Resume) (tok Token, more bool, err error)
}

// Run drives a token source to completion as a native coroutine body.
func Run(co *cotb.Coro, dut *cotb.Handle, src Source) error {
	resume := Resume{}
	for {
		tok, more, err := src.Next(resume)
		if err != nil {
			return errors.Wrap(err, "script failed")
		}
		if !more {
			return nil
		}
		resume = Resume{}

		switch tok.Kind {
		case KindTimer:
			unit, err := gpi.ParseUnit(tok.UnitName)
			if err != nil {
				return errors.Wrap(err, "bad timer token")
			}
			co.Await(cotb.Timer(tok.Delay, unit))

		case KindEdge:
			sig := dut
			for _, part := range strings.Split(tok.Path, ".") {
				sig = sig.Child(part)
			}
			if !sig.Valid() {
				return errors.Errorf("edge token names unknown signal %q", tok.Path)
			}
			co.Await(cotb.RisingEdge(sig))

		case KindOp:
			if tok.Op == nil || tok.Op.Task == nil {
				return errors.New("op token carries no coroutine")
			}
			if err := co.JoinTask(tok.Op.Task); err != nil {
				return errors.Wrap(err, "op coroutine failed")
			}
			if tok.Op.Err != "" {
				return errors.New(tok.Op.Err)
			}
			if tok.Op.Result == ResultU32 {
				resume = Resume{Value: tok.Op.U32}
			}

		default:
			return errors.Errorf("unknown token kind %d", tok.Kind)
		}
	}
}
