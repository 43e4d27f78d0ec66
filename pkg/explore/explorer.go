package explore

import (
	"context"

	"github.com/rs/zerolog"
)

// GoalPrecedence decides which goal wins when a state's matched addresses
// intersect both the find and the avoid condition within the same block.
type GoalPrecedence int8

const (
	// AvoidFirst routes a doubly-matched state to the avoid stash.
	AvoidFirst GoalPrecedence = iota

	// FindFirst routes a doubly-matched state to the found stash.
	FindFirst
)

// ExplorerConfig configures an Explorer.
type ExplorerConfig struct {
	// Find is the goal condition: any shape ConditionFrom accepts.
	Find any

	// Avoid is the exclusion condition: any shape ConditionFrom accepts.
	Avoid any

	// Precedence resolves find/avoid overlap. Defaults to AvoidFirst.
	Precedence GoalPrecedence

	// NumFind is the number of found states that triggers completion.
	// Defaults to 1. Zero or negative after defaulting means "never halt".
	NumFind int

	// FoundStash and AvoidStash override the destination stashes.
	FoundStash string
	AvoidStash string

	// Logger is the structured logger.
	Logger zerolog.Logger
}

// Explorer is a goal-directed search technique: successors matching the
// avoid condition move to the avoid stash, successors matching the find
// condition move to the found stash, and the run halts once enough states
// have been found.
type Explorer struct {
	findCond  Condition
	avoidCond Condition
	find      *Matcher
	avoid     *Matcher

	precedence GoalPrecedence
	numFind    int
	foundStash string
	avoidStash string
	logger     zerolog.Logger
}

// NewExplorer creates an explorer. Condition shapes are normalized eagerly
// so a bad specification fails here, at the caller that built it; the
// matchers themselves are compiled at registration, once the project
// context is known.
func NewExplorer(cfg ExplorerConfig) (*Explorer, error) {
	findCond, err := ConditionFrom(cfg.Find)
	if err != nil {
		return nil, err
	}
	avoidCond, err := ConditionFrom(cfg.Avoid)
	if err != nil {
		return nil, err
	}

	numFind := cfg.NumFind
	if numFind == 0 {
		numFind = 1
	}
	foundStash := cfg.FoundStash
	if foundStash == "" {
		foundStash = StashFound
	}
	avoidStash := cfg.AvoidStash
	if avoidStash == "" {
		avoidStash = StashAvoid
	}

	return &Explorer{
		findCond:   findCond,
		avoidCond:  avoidCond,
		precedence: cfg.Precedence,
		numFind:    numFind,
		foundStash: foundStash,
		avoidStash: avoidStash,
		logger:     cfg.Logger.With().Str("component", "explorer").Logger(),
	}, nil
}

// Name implements Technique.
func (e *Explorer) Name() string { return "explorer" }

// Init compiles the matchers against the manager's project so the mid-block
// probe is gated by the actual engine capabilities.
func (e *Explorer) Init(mgr *Manager) error {
	e.find = compileCondition(e.findCond, mgr.Project(), false)
	e.avoid = compileCondition(e.avoidCond, mgr.Project(), false)
	return nil
}

// FindMatcher exposes the compiled find matcher (nil before Init).
func (e *Explorer) FindMatcher() *Matcher { return e.find }

// AvoidMatcher exposes the compiled avoid matcher (nil before Init).
func (e *Explorer) AvoidMatcher() *Matcher { return e.avoid }

// Filter implements Filterer. The matchers report which addresses matched,
// so a state whose block covers both goals is resolved by the configured
// precedence instead of by accident of evaluation order.
func (e *Explorer) Filter(_ context.Context, _ *Manager, s State, _ *StepOptions) FilterResult {
	avoided := e.avoid.Match(s)
	found := e.find.Match(s)

	switch {
	case avoided.Matched() && found.Matched():
		if e.precedence == FindFirst {
			e.logGoal(s, "find", found)
			return MoveTo(e.foundStash)
		}
		e.logGoal(s, "avoid", avoided)
		return MoveTo(e.avoidStash)
	case avoided.Matched():
		e.logGoal(s, "avoid", avoided)
		return MoveTo(e.avoidStash)
	case found.Matched():
		e.logGoal(s, "find", found)
		return MoveTo(e.foundStash)
	}
	return Undecided()
}

// Complete implements Completer: the run halts once the found stash holds
// the configured number of states.
func (e *Explorer) Complete(mgr *Manager) bool {
	if e.numFind <= 0 {
		return false
	}
	return mgr.Count(e.foundStash) >= e.numFind
}

func (e *Explorer) logGoal(s State, goal string, res MatchResult) {
	ev := e.logger.Debug().Str("state", s.ID()).Uint64("addr", s.Addr()).Str("goal", goal)
	if addrs := res.Addrs(); addrs != nil {
		ev = ev.Uints64("matched", addrs.Sorted())
	}
	ev.Msg("Goal matched")
}
