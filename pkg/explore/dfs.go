package explore

import "context"

// DFS bounds how many states are stepped each round. The first Limit states
// in stash order participate; the excess are left untouched in place, never
// dropped, and get their turn in later rounds. With a limit of one and the
// default append-order stashes the search proceeds depth-first.
type DFS struct {
	limit int
	taken int
}

// NewDFS creates a depth-bounded selection technique. A non-positive limit
// defaults to one.
func NewDFS(limit int) *DFS {
	if limit <= 0 {
		limit = 1
	}
	return &DFS{limit: limit}
}

// Name implements Technique.
func (d *DFS) Name() string { return "dfs" }

// Step resets the per-round budget, then delegates the round unchanged.
func (d *DFS) Step(ctx context.Context, _ *Manager, stash string, opts *StepOptions, next StepFunc) error {
	d.taken = 0
	return next(ctx, stash, opts)
}

// Select keeps the first Limit states offered this round and skips the rest.
func (d *DFS) Select(_ context.Context, _ *Manager, _ State, _ *StepOptions) SelectResult {
	if d.taken < d.limit {
		d.taken++
		return SelectKeep
	}
	return SelectSkip
}
