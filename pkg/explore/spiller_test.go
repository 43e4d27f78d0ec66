package explore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

// mapSpillStore is an in-memory SpillStore for tests.
type mapSpillStore struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
}

func newMapSpillStore() *mapSpillStore {
	return &mapSpillStore{data: make(map[string][]byte)}
}

func (m *mapSpillStore) PutState(_ context.Context, id string, _ uint64, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = payload
	return nil
}

func (m *mapSpillStore) GetState(_ context.Context, id string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	payload, ok := m.data[id]
	if !ok {
		return nil, fmt.Errorf("state %s not spilled", id)
	}
	return payload, nil
}

func (m *mapSpillStore) DeleteState(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

func (m *mapSpillStore) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

// fakeCodec round-trips fakeState through JSON.
type fakeCodec struct{}

type fakeStateDoc struct {
	ID     string `json:"id"`
	Addr   uint64 `json:"addr"`
	Length int    `json:"length"`
}

func (fakeCodec) EncodeState(s State) ([]byte, error) {
	fs, ok := s.(*fakeState)
	if !ok {
		return nil, fmt.Errorf("unexpected state type %T", s)
	}
	return json.Marshal(fakeStateDoc{ID: fs.id, Addr: fs.addr, Length: fs.length})
}

func (fakeCodec) DecodeState(data []byte) (State, error) {
	var doc fakeStateDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return &fakeState{id: doc.ID, addr: doc.Addr, length: doc.Length}, nil
}

func newSpillerForTest(t *testing.T, mgr *Manager, store SpillStore, max, min int) *Spiller {
	t.Helper()
	sp, err := NewSpiller(SpillerConfig{
		Max:    max,
		Min:    min,
		Store:  store,
		Codec:  fakeCodec{},
		Logger: zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewSpiller() error = %v", err)
	}
	if err := mgr.Use(sp, 100); err != nil {
		t.Fatalf("Use() error = %v", err)
	}
	return sp
}

func TestNewSpillerValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  SpillerConfig
	}{
		{name: "missing store", cfg: SpillerConfig{Max: 2, Codec: fakeCodec{}}},
		{name: "missing codec", cfg: SpillerConfig{Max: 2, Store: newMapSpillStore()}},
		{name: "non-positive capacity", cfg: SpillerConfig{Store: newMapSpillStore(), Codec: fakeCodec{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSpiller(tt.cfg); err == nil || !IsConfig(err) {
				t.Errorf("NewSpiller() error = %v, want config error", err)
			}
		})
	}
}

func TestSpillerEvictsOverflow(t *testing.T) {
	store := newMapSpillStore()
	// Self-loops keep every state resident.
	engine := &fakeEngine{edges: map[uint64][]uint64{1: {1}, 2: {2}, 3: {3}, 4: {4}}}
	mgr := newTestManager(t, engine,
		&fakeState{id: "a", addr: 1},
		&fakeState{id: "b", addr: 2},
		&fakeState{id: "c", addr: 3},
		&fakeState{id: "d", addr: 4},
	)
	obs := &recordObserver{}
	mgr.observer = obs
	newSpillerForTest(t, mgr, store, 2, 1)

	if err := mgr.Step(context.Background(), StashActive, nil); err != nil {
		t.Fatalf("Step() error = %v", err)
	}

	// Never-stepped states rank oldest, ties broken by stash order, so a
	// and b are the victims.
	if got := stashIDs(mgr, StashSpilled); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("spilled = %v, want [a b]", got)
	}
	if store.len() != 2 {
		t.Errorf("store holds %d payloads, want 2", store.len())
	}
	if obs.spilled != 2 {
		t.Errorf("observed spills = %d, want 2", obs.spilled)
	}
	// The survivors stepped normally.
	if got := stashAddrs(mgr, StashActive); len(got) != 2 || got[0] != 3 || got[1] != 4 {
		t.Errorf("active = %v, want [3 4]", got)
	}
}

func TestSpillerEvictsLeastRecentlyStepped(t *testing.T) {
	store := newMapSpillStore()
	engine := &fakeEngine{edges: map[uint64][]uint64{1: {1}, 2: {2}, 3: {3}}}
	mgr := newTestManager(t, engine,
		&fakeState{id: "a", addr: 1},
		&fakeState{id: "b", addr: 2},
		&fakeState{id: "c", addr: 3},
	)
	sp := newSpillerForTest(t, mgr, store, 2, 1)

	// Mark a as recently stepped: the eviction must prefer b despite a's
	// earlier stash position.
	if _, err := sp.StepState(context.Background(), mgr, mgr.Stash(StashActive)[0], nil); err != nil {
		t.Fatalf("StepState() error = %v", err)
	}
	sp.evictOverflow(context.Background(), mgr)

	if got := stashIDs(mgr, StashSpilled); len(got) != 1 || got[0] != "b" {
		t.Errorf("spilled = %v, want [b]", got)
	}
}

func TestSpillerRestoresHeadroom(t *testing.T) {
	store := newMapSpillStore()
	// Every address dead-ends, so the round empties the active stash.
	engine := &fakeEngine{}
	mgr := newTestManager(t, engine,
		&fakeState{id: "a", addr: 1, length: 5},
		&fakeState{id: "b", addr: 2},
		&fakeState{id: "c", addr: 3},
		&fakeState{id: "d", addr: 4},
	)
	obs := &recordObserver{}
	mgr.observer = obs
	newSpillerForTest(t, mgr, store, 2, 2)

	if err := mgr.Step(context.Background(), StashActive, nil); err != nil {
		t.Fatalf("Step() error = %v", err)
	}

	// a and b were evicted before the round; c and d dead-ended during it;
	// the post-round restore brought a and b back under the low-water mark.
	if got := stashIDs(mgr, StashActive); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("active = %v, want [a b]", got)
	}
	if n := mgr.Count(StashSpilled); n != 0 {
		t.Errorf("Count(spilled) = %d, want 0", n)
	}
	if store.len() != 0 {
		t.Errorf("store holds %d payloads, want 0 after restore", store.len())
	}
	if obs.restored != 2 {
		t.Errorf("observed restores = %d, want 2", obs.restored)
	}
	// Content survives the round trip.
	if restored := mgr.Stash(StashActive)[0].(*fakeState); restored.length != 5 {
		t.Errorf("restored length = %d, want 5", restored.length)
	}
}

func TestSpillerRestoresOnDemand(t *testing.T) {
	store := newMapSpillStore()
	engine := &fakeEngine{edges: map[uint64][]uint64{7: {8}}}
	mgr := newTestManager(t, engine)
	sp := newSpillerForTest(t, mgr, store, 2, 1)

	payload, err := fakeCodec{}.EncodeState(&fakeState{id: "x", addr: 7, length: 3})
	if err != nil {
		t.Fatal(err)
	}
	if err := store.PutState(context.Background(), "x", 7, payload); err != nil {
		t.Fatal(err)
	}

	// Stepping the reference restores the full state and advances it in the
	// same move.
	res, err := sp.StepState(context.Background(), mgr, &spillRef{id: "x", addr: 7}, nil)
	if err != nil {
		t.Fatalf("StepState() error = %v", err)
	}
	if !res.Decided() {
		t.Fatal("StepState() undecided for a spill reference")
	}
	succs := res.Mapping()[StashActive]
	if len(succs) != 1 || succs[0].Addr() != 8 {
		t.Errorf("mapping[active] = %v, want one successor at 8", succs)
	}
	if succs[0].(*fakeState).length != 4 {
		t.Errorf("successor length = %d, want 4", succs[0].(*fakeState).length)
	}
	if store.len() != 0 {
		t.Errorf("store holds %d payloads, want 0 after restore", store.len())
	}
}

func TestSpillerRestoreFailureKeepsReference(t *testing.T) {
	store := newMapSpillStore()
	store.getErr = errors.New("disk gone")
	mgr := newTestManager(t, &fakeEngine{})
	sp := newSpillerForTest(t, mgr, store, 2, 2)

	if err := mgr.Insert(StashSpilled, &spillRef{id: "x", addr: 7}); err != nil {
		t.Fatal(err)
	}
	sp.restoreHeadroom(context.Background(), mgr)

	// The reference survives a failed restore so the state is not lost.
	if got := stashIDs(mgr, StashSpilled); len(got) != 1 || got[0] != "x" {
		t.Errorf("spilled = %v, want [x]", got)
	}
	if n := mgr.Count(StashActive); n != 0 {
		t.Errorf("Count(active) = %d, want 0", n)
	}
}

func TestSpillerStepStateConcurrent(t *testing.T) {
	// A parallel stepper invokes the step-state chain from worker
	// goroutines, so the recency bookkeeping must tolerate concurrent
	// calls (run with -race).
	store := newMapSpillStore()
	engine := &fakeEngine{edges: map[uint64][]uint64{1: {1}}}
	mgr := newTestManager(t, engine)
	sp := newSpillerForTest(t, mgr, store, 4, 2)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				s := &fakeState{id: fmt.Sprintf("w%d-%d", w, i), addr: 1}
				if _, err := sp.StepState(context.Background(), mgr, s, nil); err != nil {
					t.Errorf("StepState() error = %v", err)
				}
			}
		}(w)
	}
	wg.Wait()
}

func TestSpillerWithParallelStepper(t *testing.T) {
	store := newMapSpillStore()
	engine := &fakeEngine{edges: map[uint64][]uint64{
		1: {1}, 2: {2}, 3: {3}, 4: {4}, 5: {5}, 6: {6},
	}}
	mgr := newTestManager(t, engine,
		&fakeState{id: "a", addr: 1},
		&fakeState{id: "b", addr: 2},
		&fakeState{id: "c", addr: 3},
		&fakeState{id: "d", addr: 4},
		&fakeState{id: "e", addr: 5},
		&fakeState{id: "f", addr: 6},
	)
	newSpillerForTest(t, mgr, store, 4, 2)
	if err := mgr.Use(NewThreading(4, zerolog.Nop()), 90); err != nil {
		t.Fatalf("Use() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := mgr.Step(context.Background(), StashActive, nil); err != nil {
			t.Fatalf("Step() round %d error = %v", i, err)
		}
	}

	// The first round evicted the overflow; self-loops keep the working
	// set at capacity afterwards.
	if n := mgr.Count(StashActive); n != 4 {
		t.Errorf("Count(active) = %d, want 4", n)
	}
	if got := stashIDs(mgr, StashSpilled); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("spilled = %v, want [a b]", got)
	}
	if n := mgr.Count(StashErrored); n != 0 {
		t.Errorf("Count(errored) = %d, want 0", n)
	}
}

func TestSpillerPrunesRetiredRecency(t *testing.T) {
	store := newMapSpillStore()
	// One hop then a dead end: every stepped state retires immediately.
	engine := &fakeEngine{edges: map[uint64][]uint64{1: {2}}}
	mgr := newTestManager(t, engine, &fakeState{id: "a", addr: 1})
	sp := newSpillerForTest(t, mgr, store, 4, 1)

	for i := 0; i < 3; i++ {
		if err := mgr.Step(context.Background(), StashActive, nil); err != nil {
			t.Fatalf("Step() round %d error = %v", i, err)
		}
	}

	// Both a and its successor have been consumed, so neither may linger
	// in the recency map.
	sp.mu.Lock()
	n := len(sp.lastStep)
	sp.mu.Unlock()
	if n != 0 {
		t.Errorf("recency map holds %d entries, want 0 after retirement", n)
	}
}
