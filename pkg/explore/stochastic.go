package explore

import (
	"context"
	"math/rand"
)

// StochasticSearch keeps exactly one randomly chosen state stepping each
// round and parks the rest in the deferred stash. Addresses that have been
// visited often are weighted down, nudging the walk toward fresh code. The
// RNG is seeded explicitly so runs are reproducible.
type StochasticSearch struct {
	rng      *rand.Rand
	deferred string
	visits   map[uint64]int
}

// NewStochasticSearch creates a randomized selection technique.
func NewStochasticSearch(seed int64, deferredStash string) *StochasticSearch {
	if deferredStash == "" {
		deferredStash = StashDeferred
	}
	return &StochasticSearch{
		rng:      rand.New(rand.NewSource(seed)),
		deferred: deferredStash,
		visits:   make(map[uint64]int),
	}
}

// Name implements Technique.
func (st *StochasticSearch) Name() string { return "stochastic" }

// Step picks one weighted-random survivor, defers the others, then
// delegates the round.
func (st *StochasticSearch) Step(ctx context.Context, mgr *Manager, stash string, opts *StepOptions, next StepFunc) error {
	states := mgr.Stash(stash)
	if len(states) > 1 {
		survivor := st.pick(states)
		st.visits[survivor.Addr()]++
		mgr.Move(stash, st.deferred, func(s State) bool {
			return s.ID() != survivor.ID()
		})
	} else if len(states) == 1 {
		st.visits[states[0].Addr()]++
	}
	return next(ctx, stash, opts)
}

// pick draws one state with probability inversely proportional to how often
// its address has been visited.
func (st *StochasticSearch) pick(states []State) State {
	weights := make([]float64, len(states))
	total := 0.0
	for i, s := range states {
		weights[i] = 1.0 / float64(1+st.visits[s.Addr()])
		total += weights[i]
	}
	draw := st.rng.Float64() * total
	for i, w := range weights {
		draw -= w
		if draw <= 0 {
			return states[i]
		}
	}
	return states[len(states)-1]
}
