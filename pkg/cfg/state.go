package cfg

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/simwalk/simwalk/pkg/explore"
)

// SimState is one walk over a program graph. It implements explore.State
// plus the Lifecycle, BlockFetcher and Lengther capabilities.
type SimState struct {
	prog   *Program
	id     string
	addr   uint64
	depth  int
	exited bool
	failed error
	trace  []uint64
}

// NewState creates a fresh state at the program's entry point.
func NewState(prog *Program) *SimState {
	return &SimState{
		prog:  prog,
		id:    uuid.New().String(),
		addr:  prog.Entry,
		trace: []uint64{prog.Entry},
	}
}

// ID implements explore.State.
func (s *SimState) ID() string { return s.id }

// Addr implements explore.State.
func (s *SimState) Addr() uint64 { return s.addr }

// Exited implements explore.Lifecycle.
func (s *SimState) Exited() bool { return s.exited }

// Failed implements explore.Lifecycle.
func (s *SimState) Failed() error { return s.failed }

// Length implements explore.Lengther: the number of blocks stepped so far.
func (s *SimState) Length() int { return s.depth }

// Trace returns the addresses visited so far, in order.
func (s *SimState) Trace() []uint64 {
	return append([]uint64(nil), s.trace...)
}

// Block implements explore.BlockFetcher.
func (s *SimState) Block() (explore.Block, error) {
	b, ok := s.prog.Block(s.addr)
	if !ok {
		return nil, fmt.Errorf("no block at %#x", s.addr)
	}
	return b, nil
}

// child derives a successor state at the given address.
func (s *SimState) child(addr uint64) *SimState {
	return &SimState{
		prog:  s.prog,
		id:    uuid.New().String(),
		addr:  addr,
		depth: s.depth + 1,
		trace: append(append([]uint64(nil), s.trace...), addr),
	}
}

// exitedChild derives a successor marking the end of execution.
func (s *SimState) exitedChild() *SimState {
	c := s.child(s.addr)
	c.addr = s.addr
	c.trace = c.trace[:len(c.trace)-1]
	c.exited = true
	return c
}
