package explore

import (
	"context"
	"time"
)

// State is one execution state under exploration. The core treats it as
// opaque beyond a stable identity and a current program counter; richer
// behavior is discovered through the optional capability interfaces below.
type State interface {
	// ID returns a stable identifier for this state. It is used for stash
	// membership tracking, failure records and spill bookkeeping.
	ID() string

	// Addr returns the state's current program counter.
	Addr() uint64
}

// Lifecycle is an optional State capability that reports whether execution
// has ended. The default filter uses it to route states into the
// "deadended" and "errored" stashes.
type Lifecycle interface {
	// Exited reports whether the state has run to a normal end of execution.
	Exited() bool

	// Failed returns the execution failure attached to the state, or nil.
	Failed() error
}

// Block is a basic block of the program under analysis.
type Block interface {
	// InstructionAddrs returns the addresses of the instructions in the
	// block, in program order.
	InstructionAddrs() []uint64
}

// BlockFetcher is an optional State capability exposing the state's current
// basic block. Matchers use it to catch addresses in the middle of a block;
// it is only consulted when the engine declares block-introspection support.
type BlockFetcher interface {
	Block() (Block, error)
}

// Valuer is an optional State capability for evaluating the state's
// condition expression when predicates reference symbolic quantities.
type Valuer interface {
	// IsSymbolic reports whether the state's current condition value depends
	// on unconstrained input.
	IsSymbolic() bool

	// Eval concretizes the state's current condition value.
	Eval(ctx context.Context) (uint64, error)
}

// Lengther is an optional State capability reporting how many steps the
// state has survived since the start of the run. LengthLimiter relies on it.
type Lengther interface {
	Length() int
}

// Engine computes raw successors for execution states. It is the narrow
// interface the core needs from the lifting/execution machinery; everything
// else about the engine is out of scope here.
type Engine interface {
	// Successors advances one state by one basic block and returns the
	// resulting states.
	Successors(ctx context.Context, s State, opts *StepOptions) ([]State, error)

	// IntrospectsBlocks reports whether the engine can enumerate the
	// instruction addresses of a state's current block. It gates the
	// matcher's mid-block probe.
	IntrospectsBlocks() bool
}

// Project bundles the analysis-wide context shared by the manager and every
// registered technique. It is injected at registration time and must be
// treated as immutable for the lifetime of a run.
type Project struct {
	// Engine computes successors and declares introspection capabilities.
	Engine Engine
}

// StateCodec serializes execution states for secondary storage. The encoding
// is owned by the host state type; the core treats payloads as opaque.
type StateCodec interface {
	EncodeState(s State) ([]byte, error)
	DecodeState(data []byte) (State, error)
}

// SpillStore is the secondary storage used by Spiller for evicted states.
// Implementations must persist payloads durably enough to survive the
// eviction/restore round-trip within one run.
type SpillStore interface {
	// PutState stores the serialized state under its identity.
	PutState(ctx context.Context, id string, addr uint64, payload []byte) error

	// GetState retrieves a serialized state by identity.
	GetState(ctx context.Context, id string) ([]byte, error)

	// DeleteState removes a serialized state after restoration.
	DeleteState(ctx context.Context, id string) error
}

// Observer receives progress callbacks from the manager and the built-in
// techniques. All methods may be called from the stepping goroutine only;
// implementations should be cheap.
type Observer interface {
	// RoundCompleted is called after each stepping round.
	RoundCompleted(stash string, selected, produced int, elapsed time.Duration)

	// StashResized is called whenever a stash changes size.
	StashResized(stash string, size int)

	// StateFailed is called when a state is quarantined into "errored".
	StateFailed(stateID string)

	// StatesSpilled and StatesRestored report Spiller traffic.
	StatesSpilled(n int)
	StatesRestored(n int)
}
