package explore

import "context"

// LengthLimiter cuts off states that have been stepped more than a
// configured number of times: instead of returning to "active" they are
// filtered into the cut stash, where they remain inspectable.
//
// The step count is read from the state's Lengther capability. States that
// do not expose a length pass through undecided.
type LengthLimiter struct {
	max      int
	cutStash string
}

// NewLengthLimiter creates a step-count limiting technique. max is the
// number of steps a state may accumulate before it is cut.
func NewLengthLimiter(max int, cutStash string) *LengthLimiter {
	if cutStash == "" {
		cutStash = StashCut
	}
	return &LengthLimiter{max: max, cutStash: cutStash}
}

// Name implements Technique.
func (l *LengthLimiter) Name() string { return "length-limiter" }

// Filter implements Filterer.
func (l *LengthLimiter) Filter(_ context.Context, _ *Manager, s State, _ *StepOptions) FilterResult {
	if ln, ok := s.(Lengther); ok && ln.Length() > l.max {
		return MoveTo(l.cutStash)
	}
	return Undecided()
}
