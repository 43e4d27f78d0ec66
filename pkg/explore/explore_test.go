package explore

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeState is the test double for an execution state. It carries every
// optional capability the core probes for.
type fakeState struct {
	id     string
	addr   uint64
	exited bool
	failed error
	length int
	block  []uint64
}

func (s *fakeState) ID() string    { return s.id }
func (s *fakeState) Addr() uint64  { return s.addr }
func (s *fakeState) Exited() bool  { return s.exited }
func (s *fakeState) Failed() error { return s.failed }
func (s *fakeState) Length() int   { return s.length }

func (s *fakeState) Block() (Block, error) {
	if s.block == nil {
		return nil, fmt.Errorf("no block at %#x", s.addr)
	}
	return fakeBlock(s.block), nil
}

type fakeBlock []uint64

func (b fakeBlock) InstructionAddrs() []uint64 { return b }

// panicState panics when its block is fetched.
type panicState struct{ fakeState }

func (s *panicState) Block() (Block, error) { panic("corrupt lifter") }

// fakeEngine advances states along a static address graph. A state whose
// address has no outgoing edges produces one exited child.
type fakeEngine struct {
	introspect bool
	edges      map[uint64][]uint64
	failAt     map[uint64]error

	mu     sync.Mutex
	nextID int
}

func (e *fakeEngine) IntrospectsBlocks() bool { return e.introspect }

func (e *fakeEngine) Successors(_ context.Context, s State, _ *StepOptions) ([]State, error) {
	if err := e.failAt[s.Addr()]; err != nil {
		return nil, err
	}
	length := 0
	if ln, ok := s.(Lengther); ok {
		length = ln.Length()
	}
	dests := e.edges[s.Addr()]
	if len(dests) == 0 {
		return []State{&fakeState{id: e.id(), addr: s.Addr(), exited: true, length: length + 1}}, nil
	}
	out := make([]State, 0, len(dests))
	for _, d := range dests {
		out = append(out, &fakeState{id: e.id(), addr: d, length: length + 1})
	}
	return out, nil
}

func (e *fakeEngine) id() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	return fmt.Sprintf("s%d", e.nextID)
}

func newTestManager(t *testing.T, engine Engine, initial ...State) *Manager {
	t.Helper()
	mgr, err := NewManager(ManagerConfig{
		Project: &Project{Engine: engine},
		Initial: initial,
		Logger:  zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return mgr
}

func stashAddrs(mgr *Manager, stash string) []uint64 {
	states := mgr.Stash(stash)
	out := make([]uint64, len(states))
	for i, s := range states {
		out[i] = s.Addr()
	}
	return out
}

func stashIDs(mgr *Manager, stash string) []string {
	states := mgr.Stash(stash)
	out := make([]string, len(states))
	for i, s := range states {
		out[i] = s.ID()
	}
	return out
}

// recordObserver counts callbacks for assertions.
type recordObserver struct {
	mu       sync.Mutex
	rounds   int
	spilled  int
	restored int
	failed   []string
}

func (o *recordObserver) RoundCompleted(string, int, int, time.Duration) {
	o.mu.Lock()
	o.rounds++
	o.mu.Unlock()
}

func (o *recordObserver) StashResized(string, int) {}

func (o *recordObserver) StateFailed(id string) {
	o.mu.Lock()
	o.failed = append(o.failed, id)
	o.mu.Unlock()
}

func (o *recordObserver) StatesSpilled(n int) {
	o.mu.Lock()
	o.spilled += n
	o.mu.Unlock()
}

func (o *recordObserver) StatesRestored(n int) {
	o.mu.Lock()
	o.restored += n
	o.mu.Unlock()
}
