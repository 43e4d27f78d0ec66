package explore

import "context"

// Legacy hook shapes. Technique authors evolve independently of the core, so
// the registration step accepts older, reduced signatures and wraps them
// into the canonical shape once, at Use time. Dispatch never sees them.
//
// The legacy return conventions predate the explicit undecided results: a
// filter returning "" and a step-state returning a nil map both mean "defer
// to the next link".

// SimpleFilterer is the legacy filter shape: decide a destination stash from
// the state alone. An empty string defers.
type SimpleFilterer interface {
	Filter(s State) string
}

// SimpleSelector is the legacy selector shape: a plain yes/no gate with no
// way to defer.
type SimpleSelector interface {
	Select(s State) bool
}

// SimpleStateStepper is the legacy state-stepper shape: produce a
// destination-stash mapping from the state alone. A nil map defers.
type SimpleStateStepper interface {
	StepState(s State) map[string][]State
}

// SimpleStepper is the legacy round shape: the technique performs the whole
// round for the named stash itself, driving the manager's round primitives
// directly, with no options and no continuation to delegate to.
type SimpleStepper interface {
	Step(mgr *Manager, stash string) error
}

// techEntry is one adapted link of the chain: the technique plus its hooks
// normalized to canonical signatures. Nil funcs mean the hook is absent and
// the dispatcher moves straight to the next link.
type techEntry struct {
	tech     Technique
	priority int
	seq      int

	step      func(ctx context.Context, mgr *Manager, stash string, opts *StepOptions, next StepFunc) error
	filter    func(ctx context.Context, mgr *Manager, s State, opts *StepOptions) FilterResult
	selector  func(ctx context.Context, mgr *Manager, s State, opts *StepOptions) SelectResult
	stepState func(ctx context.Context, mgr *Manager, s State, opts *StepOptions) (StepStateResult, error)
	succ      func(ctx context.Context, mgr *Manager, s State, opts *StepOptions) (SuccessorsResult, error)
	complete  func(mgr *Manager) bool
}

// adaptTechnique inspects which hooks a technique implements, preferring the
// canonical shape over the legacy one for each hook, and compiles the result
// into a fixed-shape entry. It fails if the technique implements no hooks at
// all, which is always a registration mistake.
func adaptTechnique(t Technique, priority, seq int) (*techEntry, error) {
	e := &techEntry{tech: t, priority: priority, seq: seq}

	switch h := t.(type) {
	case Stepper:
		e.step = h.Step
	case SimpleStepper:
		e.step = func(_ context.Context, mgr *Manager, stash string, _ *StepOptions, _ StepFunc) error {
			return h.Step(mgr, stash)
		}
	}

	switch h := t.(type) {
	case Filterer:
		e.filter = h.Filter
	case SimpleFilterer:
		e.filter = func(_ context.Context, _ *Manager, s State, _ *StepOptions) FilterResult {
			if stash := h.Filter(s); stash != "" {
				return MoveTo(stash)
			}
			return Undecided()
		}
	}

	switch h := t.(type) {
	case Selector:
		e.selector = h.Select
	case SimpleSelector:
		e.selector = func(_ context.Context, _ *Manager, s State, _ *StepOptions) SelectResult {
			if h.Select(s) {
				return SelectKeep
			}
			return SelectSkip
		}
	}

	switch h := t.(type) {
	case StateStepper:
		e.stepState = h.StepState
	case SimpleStateStepper:
		e.stepState = func(_ context.Context, _ *Manager, s State, _ *StepOptions) (StepStateResult, error) {
			if m := h.StepState(s); m != nil {
				return Stashes(m), nil
			}
			return StepStateUndecided(), nil
		}
	}

	if h, ok := t.(SuccessorProvider); ok {
		e.succ = h.Successors
	}
	if h, ok := t.(Completer); ok {
		e.complete = h.Complete
	}

	if e.step == nil && e.filter == nil && e.selector == nil &&
		e.stepState == nil && e.succ == nil && e.complete == nil {
		if _, ok := t.(Initializer); !ok {
			return nil, NewConfigError("technique implements no hooks", nil).
				WithCode(ErrCodeBadTechnique)
		}
	}

	return e, nil
}
