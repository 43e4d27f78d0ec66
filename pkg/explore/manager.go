package explore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Well-known stash names. Techniques are free to invent additional stashes;
// these are the ones the built-in behavior routes to.
const (
	StashActive    = "active"
	StashDeadended = "deadended"
	StashErrored   = "errored"
	StashFound     = "found"
	StashAvoid     = "avoid"
	StashCut       = "cut"
	StashDeferred  = "deferred"
	StashSpilled   = "spilled"
)

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// Project is the analysis-wide context shared with every technique.
	Project *Project

	// Initial seeds the "active" stash.
	Initial []State

	// Logger is the structured logger; the manager derives a component
	// logger from it.
	Logger zerolog.Logger

	// Observer receives progress callbacks. Optional.
	Observer Observer

	// Tracer wraps rounds in spans when set. Optional.
	Tracer trace.Tracer
}

// Manager orchestrates one exploration run: it owns the stash map and the
// ordered technique chain and dispatches every hook through the chain.
//
// A Manager is created once per run and must not be mutated externally while
// a round is in flight; only one round may be in flight at a time. The
// Threading technique may call the round primitives (SelectStates,
// StepOneState, MergeStashes, Quarantine) from worker goroutines; those are
// the only concurrency-safe entry points.
type Manager struct {
	id       string
	project  *Project
	logger   zerolog.Logger
	observer Observer
	tracer   trace.Tracer

	mu        sync.RWMutex
	stashes   map[string][]State
	locations map[string]string // state ID -> stash name
	failures  map[string]error
	chain     []*techEntry
	seq       int
	rounds    int
}

// NewManager creates a manager seeded with the given states.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	m := &Manager{
		id:        uuid.New().String(),
		project:   cfg.Project,
		logger:    cfg.Logger.With().Str("component", "explore-manager").Logger(),
		observer:  cfg.Observer,
		tracer:    cfg.Tracer,
		stashes:   make(map[string][]State),
		locations: make(map[string]string),
		failures:  make(map[string]error),
	}
	if err := m.Insert(StashActive, cfg.Initial...); err != nil {
		return nil, err
	}
	return m, nil
}

// ID returns the run identifier.
func (m *Manager) ID() string { return m.id }

// Project returns the injected analysis context.
func (m *Manager) Project() *Project { return m.project }

// Use registers a technique into the chain with the given priority.
// Techniques with higher priority are tried first; among equal priorities
// the technique registered last is tried first. The technique is adapted to
// the canonical hook shape once, here, and its Init hook (if any) runs with
// the manager as injected context.
func (m *Manager) Use(t Technique, priority int) error {
	m.mu.Lock()
	m.seq++
	entry, err := adaptTechnique(t, priority, m.seq)
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("registering technique %q: %w", t.Name(), err)
	}
	m.chain = append(m.chain, entry)
	sort.SliceStable(m.chain, func(i, j int) bool {
		if m.chain[i].priority != m.chain[j].priority {
			return m.chain[i].priority > m.chain[j].priority
		}
		return m.chain[i].seq > m.chain[j].seq
	})
	m.mu.Unlock()

	if init, ok := t.(Initializer); ok {
		if err := init.Init(m); err != nil {
			m.Remove(t)
			return fmt.Errorf("initializing technique %q: %w", t.Name(), err)
		}
	}
	m.logger.Debug().Str("technique", t.Name()).Int("priority", priority).
		Msg("Technique registered")
	return nil
}

// Remove unregisters a technique from the chain. It reports whether the
// technique was registered.
func (m *Manager) Remove(t Technique) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.chain {
		if e.tech == t {
			m.chain = append(m.chain[:i], m.chain[i+1:]...)
			return true
		}
	}
	return false
}

// Techniques returns the active chain in dispatch order.
func (m *Manager) Techniques() []Technique {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Technique, len(m.chain))
	for i, e := range m.chain {
		out[i] = e.tech
	}
	return out
}

// Stash returns a copy of the named stash in order.
func (m *Manager) Stash(name string) []State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]State(nil), m.stashes[name]...)
}

// Count returns the number of states in the named stash.
func (m *Manager) Count(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.stashes[name])
}

// Stashes returns a copy of the whole stash map.
func (m *Manager) Stashes() map[string][]State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]State, len(m.stashes))
	for name, states := range m.stashes {
		out[name] = append([]State(nil), states...)
	}
	return out
}

// Failure returns the recorded failure for a quarantined state, or nil.
func (m *Manager) Failure(stateID string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.failures[stateID]
}

// Insert adds states to the named stash, preserving order. Membership is
// exclusive: inserting a state that is already resident anywhere is a
// configuration error.
func (m *Manager) Insert(stash string, states ...State) error {
	m.mu.Lock()
	for _, s := range states {
		if where, ok := m.locations[s.ID()]; ok {
			m.mu.Unlock()
			return NewConfigError(
				fmt.Sprintf("state already resident in stash %q", where), nil).
				WithCode(ErrCodeDuplicateState).WithState(s.ID())
		}
	}
	for _, s := range states {
		m.stashes[stash] = append(m.stashes[stash], s)
		m.locations[s.ID()] = stash
	}
	size := len(m.stashes[stash])
	m.mu.Unlock()
	m.notifyResized(stash, size)
	return nil
}

// Move transfers every state of the source stash matching pred into the
// destination stash, preserving order, and returns how many moved. A nil
// pred moves everything.
func (m *Manager) Move(from, to string, pred func(s State) bool) int {
	m.mu.Lock()
	var kept, moved []State
	for _, s := range m.stashes[from] {
		if pred == nil || pred(s) {
			moved = append(moved, s)
		} else {
			kept = append(kept, s)
		}
	}
	m.stashes[from] = kept
	for _, s := range moved {
		m.stashes[to] = append(m.stashes[to], s)
		m.locations[s.ID()] = to
	}
	fromSize, toSize := len(m.stashes[from]), len(m.stashes[to])
	m.mu.Unlock()
	m.notifyResized(from, fromSize)
	m.notifyResized(to, toSize)
	return len(moved)
}

// take removes a specific state from a stash. Used by techniques in this
// package that relocate individual states (e.g. the spiller).
func (m *Manager) take(stash, stateID string) (State, bool) {
	m.mu.Lock()
	states := m.stashes[stash]
	for i, s := range states {
		if s.ID() == stateID {
			m.stashes[stash] = append(append([]State(nil), states[:i]...), states[i+1:]...)
			delete(m.locations, stateID)
			size := len(m.stashes[stash])
			m.mu.Unlock()
			m.notifyResized(stash, size)
			return s, true
		}
	}
	m.mu.Unlock()
	return nil, false
}

// SelectStates applies the selector chain to the named stash and removes the
// selected states from it, returning them in stash order. States the chain
// rejects stay put, order preserved, excluded from this round.
func (m *Manager) SelectStates(ctx context.Context, stash string, opts *StepOptions) []State {
	m.mu.Lock()
	snapshot := append([]State(nil), m.stashes[stash]...)
	chain := append([]*techEntry(nil), m.chain...)
	m.mu.Unlock()

	var selected, remaining []State
	for _, s := range snapshot {
		if m.selectOne(ctx, chain, s, opts) {
			selected = append(selected, s)
		} else {
			remaining = append(remaining, s)
		}
	}

	m.mu.Lock()
	m.stashes[stash] = remaining
	for _, s := range selected {
		delete(m.locations, s.ID())
	}
	size := len(remaining)
	m.mu.Unlock()
	m.notifyResized(stash, size)
	return selected
}

func (m *Manager) selectOne(ctx context.Context, chain []*techEntry, s State, opts *StepOptions) bool {
	for _, e := range chain {
		if e.selector == nil {
			continue
		}
		switch e.selector(ctx, m, s, opts) {
		case SelectKeep:
			return true
		case SelectSkip:
			return false
		}
	}
	// Default selector: every state participates.
	return true
}

// StepOneState advances one state through the step-state chain, falling back
// to DefaultStepState, and returns the destination-stash mapping to merge.
func (m *Manager) StepOneState(ctx context.Context, s State, opts *StepOptions) (map[string][]State, error) {
	m.mu.RLock()
	chain := append([]*techEntry(nil), m.chain...)
	m.mu.RUnlock()

	for _, e := range chain {
		if e.stepState == nil {
			continue
		}
		res, err := e.stepState(ctx, m, s, opts)
		if err != nil {
			return nil, err
		}
		if res.Decided() {
			return res.Mapping(), nil
		}
	}
	return m.DefaultStepState(ctx, s, opts)
}

// DefaultStepState is the built-in single-state advance: compute successors
// through the successor chain, then run every successor through the filter
// chain to choose its destination stash.
func (m *Manager) DefaultStepState(ctx context.Context, s State, opts *StepOptions) (map[string][]State, error) {
	succs, err := m.successors(ctx, s, opts)
	if err != nil {
		return nil, NewStepError("computing successors", err).
			WithCode(ErrCodeStepFailed).WithState(s.ID())
	}

	out := make(map[string][]State)
	for _, succ := range succs {
		res := m.filter(ctx, succ, opts)
		dest := succ
		if r := res.Replacement(); r != nil {
			dest = r
		}
		out[res.Stash()] = append(out[res.Stash()], dest)
	}
	return out, nil
}

// successors runs the successor chain, deferring to the round's override
// function and finally the project engine.
func (m *Manager) successors(ctx context.Context, s State, opts *StepOptions) ([]State, error) {
	m.mu.RLock()
	chain := append([]*techEntry(nil), m.chain...)
	m.mu.RUnlock()

	for _, e := range chain {
		if e.succ == nil {
			continue
		}
		res, err := e.succ(ctx, m, s, opts)
		if err != nil {
			return nil, err
		}
		if res.Decided() {
			return res.States(), nil
		}
	}
	if opts != nil && opts.SuccessorFunc != nil {
		return opts.SuccessorFunc(ctx, s)
	}
	if m.project == nil || m.project.Engine == nil {
		return nil, NewConfigError("no engine available for successor computation", nil)
	}
	return m.project.Engine.Successors(ctx, s, opts)
}

// filter runs the filter chain for one state; the first decided result
// short-circuits the remaining links. The built-in default routes runnable
// states to "active", exited states to "deadended" and failed states to
// "errored".
func (m *Manager) filter(ctx context.Context, s State, opts *StepOptions) FilterResult {
	m.mu.RLock()
	chain := append([]*techEntry(nil), m.chain...)
	m.mu.RUnlock()

	for _, e := range chain {
		if e.filter == nil {
			continue
		}
		if res := e.filter(ctx, m, s, opts); res.Decided() {
			return res
		}
	}

	if lc, ok := s.(Lifecycle); ok {
		if err := lc.Failed(); err != nil {
			m.recordFailure(s.ID(), NewStepError("state failed", err).
				WithCode(ErrCodeStepFailed).WithState(s.ID()))
			return MoveTo(StashErrored)
		}
		if lc.Exited() {
			return MoveTo(StashDeadended)
		}
	}
	return MoveTo(StashActive)
}

// MergeStashes merges a destination-stash mapping into the stash map. Lists
// keep their order; stash names are visited in sorted order so merges are
// deterministic regardless of map iteration. The merge is serialized, which
// is the synchronization point the Threading technique relies on.
func (m *Manager) MergeStashes(result map[string][]State) {
	names := make([]string, 0, len(result))
	for name := range result {
		names = append(names, name)
	}
	sort.Strings(names)

	sizes := make([]int, len(names))
	m.mu.Lock()
	for i, name := range names {
		for _, s := range result[name] {
			if where, ok := m.locations[s.ID()]; ok && where != name {
				// Exclusive membership: a merged state supersedes any
				// earlier residence (filter replacement in transit).
				m.removeLocked(where, s.ID())
			}
			m.stashes[name] = append(m.stashes[name], s)
			m.locations[s.ID()] = name
		}
		sizes[i] = len(m.stashes[name])
	}
	m.mu.Unlock()
	for i, name := range names {
		m.notifyResized(name, sizes[i])
	}
}

// Quarantine routes one state into the "errored" stash with its failure
// recorded for later inspection. A quarantined state never aborts the round.
func (m *Manager) Quarantine(s State, err error) {
	m.recordFailure(s.ID(), err)
	m.mu.Lock()
	m.stashes[StashErrored] = append(m.stashes[StashErrored], s)
	m.locations[s.ID()] = StashErrored
	size := len(m.stashes[StashErrored])
	m.mu.Unlock()
	m.notifyResized(StashErrored, size)

	if m.observer != nil {
		m.observer.StateFailed(s.ID())
	}
	m.logger.Warn().Str("state", s.ID()).Err(err).Msg("State quarantined")
}

func (m *Manager) recordFailure(stateID string, err error) {
	m.mu.Lock()
	m.failures[stateID] = err
	m.mu.Unlock()
}

func (m *Manager) removeLocked(stash, stateID string) {
	states := m.stashes[stash]
	for i, s := range states {
		if s.ID() == stateID {
			m.stashes[stash] = append(append([]State(nil), states[:i]...), states[i+1:]...)
			return
		}
	}
}

// Step processes one round for the named stash through the step chain:
// outermost technique first, each link either fully handling the round or
// delegating down, with the built-in round as the innermost link.
func (m *Manager) Step(ctx context.Context, stash string, opts *StepOptions) error {
	if opts == nil {
		opts = &StepOptions{}
	}
	if m.tracer != nil {
		var span trace.Span
		ctx, span = m.tracer.Start(ctx, "explore.step",
			trace.WithAttributes(
				attribute.String("stash", stash),
				attribute.String("run_id", m.id),
			))
		defer span.End()
	}

	m.mu.RLock()
	var steppers []*techEntry
	for _, e := range m.chain {
		if e.step != nil {
			steppers = append(steppers, e)
		}
	}
	m.mu.RUnlock()

	next := StepFunc(m.stepRound)
	for i := len(steppers) - 1; i >= 0; i-- {
		entry, inner := steppers[i], next
		next = func(ctx context.Context, stash string, opts *StepOptions) error {
			return entry.step(ctx, m, stash, opts, inner)
		}
	}
	return next(ctx, stash, opts)
}

// stepRound is the innermost link of the step chain: the built-in round.
func (m *Manager) stepRound(ctx context.Context, stash string, opts *StepOptions) error {
	start := time.Now()
	selected := m.SelectStates(ctx, stash, opts)

	produced := 0
	for _, s := range selected {
		if err := ctx.Err(); err != nil {
			// Put the unstepped remainder back; a cancelled round must not
			// lose states.
			m.MergeStashes(map[string][]State{stash: {s}})
			continue
		}
		result, err := m.StepOneState(ctx, s, opts)
		if err != nil {
			m.Quarantine(s, err)
			continue
		}
		for _, states := range result {
			produced += len(states)
		}
		m.MergeStashes(result)
	}

	m.finishRound(stash, len(selected), produced, start)
	return ctx.Err()
}

// finishRound records accounting shared by the built-in round and techniques
// that fully replace it (e.g. Threading).
func (m *Manager) finishRound(stash string, selected, produced int, start time.Time) {
	m.mu.Lock()
	m.rounds++
	round := m.rounds
	m.mu.Unlock()

	if m.observer != nil {
		m.observer.RoundCompleted(stash, selected, produced, time.Since(start))
	}
	m.logger.Debug().
		Int("round", round).
		Str("stash", stash).
		Int("selected", selected).
		Int("produced", produced).
		Dur("elapsed", time.Since(start)).
		Msg("Round completed")
}

// Complete reports whether any technique in the chain requests a halt.
// Halting is requested, never vetoed: a single true wins.
func (m *Manager) Complete() bool {
	m.mu.RLock()
	chain := append([]*techEntry(nil), m.chain...)
	m.mu.RUnlock()
	for _, e := range chain {
		if e.complete != nil && e.complete(m) {
			return true
		}
	}
	return false
}

// RunOptions configures Manager.Run.
type RunOptions struct {
	// Stash is the stash to step. Defaults to "active".
	Stash string

	// MaxRounds bounds the run; zero means unbounded.
	MaxRounds int

	// Step carries the per-round options.
	Step *StepOptions
}

// Run repeatedly steps the target stash until a technique requests
// completion, the stash drains, MaxRounds is reached, or the context is
// cancelled. A run can finish with a non-empty "errored" stash; callers
// must inspect it explicitly.
func (m *Manager) Run(ctx context.Context, opts *RunOptions) error {
	if opts == nil {
		opts = &RunOptions{}
	}
	stash := opts.Stash
	if stash == "" {
		stash = StashActive
	}
	if m.tracer != nil {
		var span trace.Span
		ctx, span = m.tracer.Start(ctx, "explore.run",
			trace.WithAttributes(attribute.String("run_id", m.id)))
		defer span.End()
	}

	for rounds := 0; ; rounds++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if m.Count(stash) == 0 {
			m.logger.Info().Str("stash", stash).Int("rounds", rounds).Msg("Run drained")
			return nil
		}
		if m.Complete() {
			m.logger.Info().Int("rounds", rounds).Msg("Run completed")
			return nil
		}
		if opts.MaxRounds > 0 && rounds >= opts.MaxRounds {
			m.logger.Info().Int("rounds", rounds).Msg("Run reached round limit")
			return nil
		}
		if err := m.Step(ctx, stash, opts.Step); err != nil {
			return err
		}
	}
}

// notifyResized reports a stash's new size to the observer. Callers snapshot
// the size under m.mu and invoke this after unlocking, so an observer is free
// to call back into the manager.
func (m *Manager) notifyResized(stash string, size int) {
	if m.observer != nil {
		m.observer.StashResized(stash, size)
	}
}
