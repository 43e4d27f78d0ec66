package explore

import (
	"context"
	"testing"
)

func TestLengthLimiterCutsLongStates(t *testing.T) {
	ll := NewLengthLimiter(2, "")

	tests := []struct {
		name    string
		state   State
		wantCut bool
	}{
		{name: "under the limit", state: &fakeState{id: "a", addr: 1, length: 1}, wantCut: false},
		{name: "at the limit", state: &fakeState{id: "b", addr: 1, length: 2}, wantCut: false},
		{name: "over the limit", state: &fakeState{id: "c", addr: 1, length: 3}, wantCut: true},
		{name: "no length capability", state: &bareState{id: "d", addr: 1}, wantCut: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ll.Filter(context.Background(), nil, tt.state, nil)
			if tt.wantCut {
				if !res.Decided() || res.Stash() != StashCut {
					t.Errorf("Filter() = %+v, want move to cut", res)
				}
			} else if res.Decided() {
				t.Errorf("Filter() = %+v, want undecided", res)
			}
		})
	}
}

// bareState carries no optional capabilities at all.
type bareState struct {
	id   string
	addr uint64
}

func (s *bareState) ID() string   { return s.id }
func (s *bareState) Addr() uint64 { return s.addr }

func TestLengthLimiterInRun(t *testing.T) {
	// A self-loop runs forever without the limiter.
	engine := &fakeEngine{edges: map[uint64][]uint64{1: {1}}}
	mgr := newTestManager(t, engine, &fakeState{id: "a", addr: 1})
	if err := mgr.Use(NewLengthLimiter(3, ""), 0); err != nil {
		t.Fatal(err)
	}

	if err := mgr.Run(context.Background(), &RunOptions{MaxRounds: 10}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if n := mgr.Count(StashActive); n != 0 {
		t.Errorf("Count(active) = %d, want 0", n)
	}
	cut := mgr.Stash(StashCut)
	if len(cut) != 1 {
		t.Fatalf("Count(cut) = %d, want 1", len(cut))
	}
	if ln := cut[0].(Lengther).Length(); ln != 4 {
		t.Errorf("cut state length = %d, want 4", ln)
	}
}

func TestLengthLimiterCustomStash(t *testing.T) {
	ll := NewLengthLimiter(0, "tired")
	res := ll.Filter(context.Background(), nil, &fakeState{id: "a", addr: 1, length: 1}, nil)
	if !res.Decided() || res.Stash() != "tired" {
		t.Errorf("Filter() = %+v, want move to tired", res)
	}
}
