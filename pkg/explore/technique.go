package explore

import "context"

// Technique is a pluggable exploration policy. A technique implements any
// subset of the hook interfaces below; hooks it does not implement defer to
// the next link in the chain and finally to the Manager's built-in behavior.
//
// A technique instance may carry private bookkeeping (visit counters, LRU
// state) and must not be shared between unrelated managers.
type Technique interface {
	// Name identifies the technique in logs and registration errors.
	Name() string
}

// StepOptions carries per-round options through every hook of a round.
type StepOptions struct {
	// SuccessorFunc overrides the engine's successor computation for this
	// round. Nil means use Project.Engine.
	SuccessorFunc func(ctx context.Context, s State) ([]State, error)

	// Extra carries technique-specific options opaquely through the chain.
	Extra map[string]any
}

// StepFunc continues a stepping round at the next link of the step chain.
type StepFunc func(ctx context.Context, stash string, opts *StepOptions) error

// Initializer is implemented by techniques that need one-time setup. Init is
// called during Manager.Use, after the technique has been adapted into the
// chain; the manager (and through it the Project) is the injected context
// for the technique's lifetime.
type Initializer interface {
	Init(mgr *Manager) error
}

// Stepper intercepts a whole stepping round. Implementations either fully
// perform the round or delegate by calling next with the same stash name and
// options.
type Stepper interface {
	Step(ctx context.Context, mgr *Manager, stash string, opts *StepOptions, next StepFunc) error
}

// Filterer decides the disposition of one state after stepping.
type Filterer interface {
	Filter(ctx context.Context, mgr *Manager, s State, opts *StepOptions) FilterResult
}

// Selector gates whether a state participates in the current round.
type Selector interface {
	Select(ctx context.Context, mgr *Manager, s State, opts *StepOptions) SelectResult
}

// StateStepper performs a fully custom single-state advance, returning the
// stash map to merge. Returning an undecided result falls back to default
// successor computation and filtering.
type StateStepper interface {
	StepState(ctx context.Context, mgr *Manager, s State, opts *StepOptions) (StepStateResult, error)
}

// SuccessorProvider computes the raw successors of one state, overriding the
// engine. Returning an undecided result defers to the next link.
type SuccessorProvider interface {
	Successors(ctx context.Context, mgr *Manager, s State, opts *StepOptions) (SuccessorsResult, error)
}

// Completer is implemented by techniques that can halt the run. Any
// technique returning true halts; completion is requested, never vetoed.
type Completer interface {
	Complete(mgr *Manager) bool
}

// FilterResult is the outcome of a filter hook. The zero value is undecided.
type FilterResult struct {
	decided     bool
	stash       string
	replacement State
}

// Undecided defers the filtering decision to the next link in the chain.
func Undecided() FilterResult {
	return FilterResult{}
}

// MoveTo moves the state into the named stash.
func MoveTo(stash string) FilterResult {
	return FilterResult{decided: true, stash: stash}
}

// MoveToWith moves the state into the named stash, substituting the
// replacement state in transit. The replacement takes over the identity of
// the filtered state.
func MoveToWith(stash string, replacement State) FilterResult {
	return FilterResult{decided: true, stash: stash, replacement: replacement}
}

// Decided reports whether the result carries a decision.
func (r FilterResult) Decided() bool { return r.decided }

// Stash returns the destination stash of a decided result.
func (r FilterResult) Stash() string { return r.stash }

// Replacement returns the substituted state, or nil.
func (r FilterResult) Replacement() State { return r.replacement }

// SelectResult is the outcome of a selector hook.
type SelectResult int8

const (
	// SelectDefer passes the decision to the next link in the chain.
	SelectDefer SelectResult = iota

	// SelectKeep includes the state in this round's stepping.
	SelectKeep

	// SelectSkip leaves the state in its stash, untouched this round.
	SelectSkip
)

// StepStateResult is the outcome of a state-stepper hook. The zero value is
// undecided.
type StepStateResult struct {
	decided bool
	stashes map[string][]State
}

// StepStateUndecided falls back to the default single-state advance.
func StepStateUndecided() StepStateResult {
	return StepStateResult{}
}

// Stashes wraps an explicit destination-stash mapping. Every listed state is
// merged into the named stash in order; no further filtering is applied.
func Stashes(m map[string][]State) StepStateResult {
	return StepStateResult{decided: true, stashes: m}
}

// Decided reports whether the result carries a decision.
func (r StepStateResult) Decided() bool { return r.decided }

// Mapping returns the destination-stash mapping of a decided result.
func (r StepStateResult) Mapping() map[string][]State { return r.stashes }

// SuccessorsResult is the outcome of a successors hook. The zero value is
// undecided.
type SuccessorsResult struct {
	decided bool
	states  []State
}

// SuccessorsUndecided defers successor computation to the next link.
func SuccessorsUndecided() SuccessorsResult {
	return SuccessorsResult{}
}

// SuccessorsOf wraps an explicit successor list.
func SuccessorsOf(states []State) SuccessorsResult {
	return SuccessorsResult{decided: true, states: states}
}

// Decided reports whether the result carries a decision.
func (r SuccessorsResult) Decided() bool { return r.decided }

// States returns the successors of a decided result.
func (r SuccessorsResult) States() []State { return r.states }
