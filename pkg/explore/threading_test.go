package explore

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

func TestThreadingMatchesSequentialOrder(t *testing.T) {
	edges := map[uint64][]uint64{
		1: {10, 11},
		2: {20},
		3: {30, 31},
		4: {40},
		5: {50},
		6: {60, 61},
	}
	seed := func() []State {
		return []State{
			&fakeState{id: "a", addr: 1},
			&fakeState{id: "b", addr: 2},
			&fakeState{id: "c", addr: 3},
			&fakeState{id: "d", addr: 4},
			&fakeState{id: "e", addr: 5},
			&fakeState{id: "f", addr: 6},
		}
	}

	sequential := newTestManager(t, &fakeEngine{edges: edges}, seed()...)
	if err := sequential.Step(context.Background(), StashActive, nil); err != nil {
		t.Fatalf("sequential Step() error = %v", err)
	}
	want := stashAddrs(sequential, StashActive)

	for _, workers := range []int{1, 3, 16} {
		parallel := newTestManager(t, &fakeEngine{edges: edges}, seed()...)
		if err := parallel.Use(NewThreading(workers, zerolog.Nop()), 0); err != nil {
			t.Fatal(err)
		}
		if err := parallel.Step(context.Background(), StashActive, nil); err != nil {
			t.Fatalf("parallel Step() error = %v", err)
		}

		got := stashAddrs(parallel, StashActive)
		if len(got) != len(want) {
			t.Fatalf("workers=%d: active = %v, want %v", workers, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("workers=%d: active = %v, want %v", workers, got, want)
			}
		}
	}
}

func TestThreadingQuarantinesFailures(t *testing.T) {
	engine := &fakeEngine{
		edges:  map[uint64][]uint64{1: {10}, 3: {30}},
		failAt: map[uint64]error{2: errors.New("lift fault")},
	}
	mgr := newTestManager(t, engine,
		&fakeState{id: "a", addr: 1},
		&fakeState{id: "b", addr: 2},
		&fakeState{id: "c", addr: 3},
	)
	if err := mgr.Use(NewThreading(2, zerolog.Nop()), 0); err != nil {
		t.Fatal(err)
	}

	if err := mgr.Step(context.Background(), StashActive, nil); err != nil {
		t.Fatalf("Step() error = %v", err)
	}

	if got := stashIDs(mgr, StashErrored); len(got) != 1 || got[0] != "b" {
		t.Fatalf("errored = %v, want [b]", got)
	}
	if mgr.Failure("b") == nil {
		t.Error("Failure(b) = nil, want recorded failure")
	}
	if got := stashAddrs(mgr, StashActive); len(got) != 2 || got[0] != 10 || got[1] != 30 {
		t.Errorf("active = %v, want [10 30]", got)
	}
}

func TestThreadingCountsRounds(t *testing.T) {
	engine := &fakeEngine{edges: map[uint64][]uint64{1: {1}}}
	mgr := newTestManager(t, engine, &fakeState{id: "a", addr: 1})
	obs := &recordObserver{}
	mgr.observer = obs
	if err := mgr.Use(NewThreading(2, zerolog.Nop()), 0); err != nil {
		t.Fatal(err)
	}

	if err := mgr.Run(context.Background(), &RunOptions{MaxRounds: 3}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if obs.rounds != 3 {
		t.Errorf("rounds = %d, want 3", obs.rounds)
	}
}

func TestNewThreadingDefaultsWorkers(t *testing.T) {
	if th := NewThreading(0, zerolog.Nop()); th.workers != 4 {
		t.Errorf("workers = %d, want 4", th.workers)
	}
}
