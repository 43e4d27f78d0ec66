package explore

import (
	"context"
	"testing"
)

func TestDFSLimitsRoundWidth(t *testing.T) {
	engine := &fakeEngine{edges: map[uint64][]uint64{
		1: {11}, 2: {12}, 3: {13}, 4: {14}, 5: {15},
	}}
	mgr := newTestManager(t, engine,
		&fakeState{id: "a", addr: 1},
		&fakeState{id: "b", addr: 2},
		&fakeState{id: "c", addr: 3},
		&fakeState{id: "d", addr: 4},
		&fakeState{id: "e", addr: 5},
	)
	if err := mgr.Use(NewDFS(2), 0); err != nil {
		t.Fatal(err)
	}

	if err := mgr.Step(context.Background(), StashActive, nil); err != nil {
		t.Fatalf("Step() error = %v", err)
	}

	// Only the first two states stepped; the rest stay in place, in order,
	// ahead of the new successors.
	got := stashAddrs(mgr, StashActive)
	want := []uint64{3, 4, 5, 11, 12}
	if len(got) != len(want) {
		t.Fatalf("active = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("active = %v, want %v", got, want)
		}
	}
}

func TestDFSBudgetResetsEachRound(t *testing.T) {
	engine := &fakeEngine{edges: map[uint64][]uint64{1: {1}, 2: {2}}}
	mgr := newTestManager(t, engine,
		&fakeState{id: "a", addr: 1},
		&fakeState{id: "b", addr: 2},
	)
	if err := mgr.Use(NewDFS(1), 0); err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 3; i++ {
		if err := mgr.Step(context.Background(), StashActive, nil); err != nil {
			t.Fatalf("Step() round %d error = %v", i, err)
		}
	}
	// One state advances per round; nothing is ever dropped.
	if n := mgr.Count(StashActive); n != 2 {
		t.Errorf("Count(active) = %d, want 2", n)
	}
}

func TestNewDFSDefaultsLimit(t *testing.T) {
	if d := NewDFS(0); d.limit != 1 {
		t.Errorf("limit = %d, want 1", d.limit)
	}
	if d := NewDFS(-3); d.limit != 1 {
		t.Errorf("limit = %d, want 1", d.limit)
	}
}
