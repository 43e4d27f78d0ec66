// Package explore provides the core types and interfaces for the simwalk
// exploration engine. It steers a population of execution states through a
// symbolic-execution run by composing pluggable techniques into an ordered
// interceptor chain.
//
// # Overview
//
// Exploration revolves around three ideas:
//
//  1. Stash - a named, ordered bucket of execution states. A state belongs to
//     exactly one stash at a time; ownership transfers atomically on moves.
//  2. Technique - a policy object implementing any subset of the hook
//     interfaces (Stepper, Filterer, Selector, StateStepper,
//     SuccessorProvider, Completer). Hooks that decline a decision return an
//     explicit Undecided result and defer to the next link in the chain, and
//     finally to the Manager's built-in behavior.
//  3. Manager - the orchestrator. It owns the stash map and the technique
//     chain, dispatches each stepping round through the chain, and merges
//     results back into stashes deterministically.
//
// # Rounds
//
// One call to Manager.Step processes one round for one stash: the selector
// chain gates which states participate, the step-state chain advances each
// selected state (falling back to engine successor computation plus the
// filter chain), and the resulting states are merged into their destination
// stashes in arrival order. A failure while stepping a single state routes
// that state into the "errored" stash with the failure recorded; it never
// aborts the round.
//
// # Techniques
//
// Techniques are registered with Manager.Use and adapted once, at
// registration time, into a fixed canonical shape. Legacy hook signatures
// (state-only filter, selector and step-state methods) are wrapped by the
// same adapter, so older technique code keeps working without the dispatch
// path special-casing call shapes.
//
// Built-in techniques cover goal-directed search (Explorer), per-round
// stepping caps (DFS), step-count limits (LengthLimiter), working-set
// eviction to secondary storage (Spiller), parallel stepping (Threading),
// and randomized or deduplicating selection (StochasticSearch, UniqueSearch).
//
// # Matchers
//
// Address conditions (a single address, an address set, or an arbitrary
// predicate) are compiled by NewMatcher into a uniform Matcher that reports
// which of the requested addresses a state currently covers, including
// addresses in the middle of the state's current basic block when the engine
// supports block introspection.
package explore
