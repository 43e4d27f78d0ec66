package explore

import (
	"context"
	"sync"
)

// UniqueSearch deduplicates the population by a caller-supplied key: the
// first successor carrying a given key proceeds normally, later ones are
// filtered into the deferred stash instead of competing for step budget.
// The default key is the state's address.
type UniqueSearch struct {
	key      func(s State) any
	deferred string

	// The filter chain runs from worker goroutines under a parallel
	// stepper; mu makes the check-then-claim on seen atomic.
	mu   sync.Mutex
	seen map[any]bool
}

// NewUniqueSearch creates a deduplicating technique. A nil key function
// keys states by address.
func NewUniqueSearch(key func(s State) any, deferredStash string) *UniqueSearch {
	if key == nil {
		key = func(s State) any { return s.Addr() }
	}
	if deferredStash == "" {
		deferredStash = StashDeferred
	}
	return &UniqueSearch{key: key, deferred: deferredStash, seen: make(map[any]bool)}
}

// Name implements Technique.
func (u *UniqueSearch) Name() string { return "unique" }

// Filter implements Filterer.
func (u *UniqueSearch) Filter(_ context.Context, _ *Manager, s State, _ *StepOptions) FilterResult {
	k := u.key(s)
	u.mu.Lock()
	dup := u.seen[k]
	if !dup {
		u.seen[k] = true
	}
	u.mu.Unlock()
	if dup {
		return MoveTo(u.deferred)
	}
	return Undecided()
}
