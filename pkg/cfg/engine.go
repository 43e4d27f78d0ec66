package cfg

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/simwalk/simwalk/pkg/explore"
)

// Engine walks states over a program graph one block per step. It also
// serves as the state codec for spilling, since it can rebind decoded
// states to the program.
type Engine struct {
	prog       *Program
	introspect bool
}

// NewEngine creates an engine for the given program. introspect controls
// whether the engine advertises block introspection to matchers.
func NewEngine(prog *Program, introspect bool) *Engine {
	return &Engine{prog: prog, introspect: introspect}
}

// IntrospectsBlocks implements explore.Engine.
func (e *Engine) IntrospectsBlocks() bool { return e.introspect }

// Successors implements explore.Engine: one successor per outgoing edge of
// the state's current block, in edge order. Exit blocks and blocks without
// successors produce a single exited state; trap blocks fail.
func (e *Engine) Successors(_ context.Context, s explore.State, _ *explore.StepOptions) ([]explore.State, error) {
	sim, ok := s.(*SimState)
	if !ok {
		return nil, fmt.Errorf("state %s is not a cfg state", s.ID())
	}
	block, ok := e.prog.Block(sim.addr)
	if !ok {
		return nil, fmt.Errorf("no block at %#x", sim.addr)
	}
	if block.Trap != "" {
		return nil, fmt.Errorf("trap at %#x: %s", block.Addr, block.Trap)
	}
	if block.Exit || len(block.Succs) == 0 {
		return []explore.State{sim.exitedChild()}, nil
	}

	succs := make([]explore.State, 0, len(block.Succs))
	for _, addr := range block.Succs {
		succs = append(succs, sim.child(addr))
	}
	return succs, nil
}

// stateDoc is the serialized form of a SimState.
type stateDoc struct {
	ID     string   `json:"id"`
	Addr   uint64   `json:"addr"`
	Depth  int      `json:"depth"`
	Exited bool     `json:"exited"`
	Trace  []uint64 `json:"trace"`
}

// EncodeState implements explore.StateCodec.
func (e *Engine) EncodeState(s explore.State) ([]byte, error) {
	sim, ok := s.(*SimState)
	if !ok {
		return nil, fmt.Errorf("state %s is not a cfg state", s.ID())
	}
	return json.Marshal(stateDoc{
		ID:     sim.id,
		Addr:   sim.addr,
		Depth:  sim.depth,
		Exited: sim.exited,
		Trace:  sim.trace,
	})
}

// DecodeState implements explore.StateCodec, rebinding the state to this
// engine's program.
func (e *Engine) DecodeState(data []byte) (explore.State, error) {
	var doc stateDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding state: %w", err)
	}
	return &SimState{
		prog:   e.prog,
		id:     doc.ID,
		addr:   doc.Addr,
		depth:  doc.Depth,
		exited: doc.Exited,
		trace:  doc.Trace,
	}, nil
}
