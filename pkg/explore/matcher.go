package explore

import "fmt"

// MatchResult is the outcome of probing one state against a matcher. For
// address-derived conditions it carries the subset of requested addresses
// the state covers, so callers composing several goals (find and avoid at
// once) can tell which goal fired. For opaque predicate conditions only the
// boolean outcome is available.
type MatchResult struct {
	matched bool
	addrs   AddrSet
}

// NoMatch is the negative result.
func NoMatch() MatchResult {
	return MatchResult{}
}

// MatchedAddrs builds a result from the intersecting address subset. An
// empty set is a non-match.
func MatchedAddrs(addrs AddrSet) MatchResult {
	return MatchResult{matched: !addrs.Empty(), addrs: addrs}
}

// MatchedBool builds a result from a bare predicate outcome.
func MatchedBool(ok bool) MatchResult {
	return MatchResult{matched: ok}
}

// Matched reports whether the state matched the condition.
func (r MatchResult) Matched() bool { return r.matched }

// Addrs returns the matched address subset, or nil for predicate conditions.
func (r MatchResult) Addrs() AddrSet { return r.addrs }

// Condition is a normalized address condition: exactly one of a static
// address set or an opaque predicate. The zero value is the empty condition,
// which compiles to a constant matcher.
type Condition struct {
	addrs AddrSet
	pred  func(s State) bool
}

// Addresses builds a static-address condition.
func Addresses(addrs ...uint64) Condition {
	return Condition{addrs: NewAddrSet(addrs...)}
}

// AddressSet builds a static-address condition from an existing set.
func AddressSet(s AddrSet) Condition {
	return Condition{addrs: s.Clone()}
}

// Predicate builds an opaque predicate condition.
func Predicate(fn func(s State) bool) Condition {
	return Condition{pred: fn}
}

// IsZero reports whether the condition is empty.
func (c Condition) IsZero() bool {
	return c.addrs == nil && c.pred == nil
}

// ConditionFrom normalizes a heterogeneous condition specification into a
// Condition. Accepted shapes: nil (empty condition), a single address
// (uint64, int, uint, uintptr), an address sequence ([]uint64 or AddrSet),
// a predicate func(State) bool, or an already-normalized Condition. Any
// other shape is a configuration error.
func ConditionFrom(v any) (Condition, error) {
	switch c := v.(type) {
	case nil:
		return Condition{}, nil
	case Condition:
		return c, nil
	case uint64:
		return Addresses(c), nil
	case uint:
		return Addresses(uint64(c)), nil
	case uintptr:
		return Addresses(uint64(c)), nil
	case int:
		if c < 0 {
			return Condition{}, NewConfigError(
				fmt.Sprintf("negative address %d in condition", c), nil).
				WithCode(ErrCodeUnsupportedCondition)
		}
		return Addresses(uint64(c)), nil
	case []uint64:
		return Addresses(c...), nil
	case []int:
		addrs := make([]uint64, 0, len(c))
		for _, a := range c {
			if a < 0 {
				return Condition{}, NewConfigError(
					fmt.Sprintf("negative address %d in condition", a), nil).
					WithCode(ErrCodeUnsupportedCondition)
			}
			addrs = append(addrs, uint64(a))
		}
		return Addresses(addrs...), nil
	case AddrSet:
		return AddressSet(c), nil
	case func(s State) bool:
		return Predicate(c), nil
	default:
		return Condition{}, NewConfigError(
			fmt.Sprintf("unable to convert type %T to a condition", v), nil).
			WithCode(ErrCodeUnsupportedCondition)
	}
}

// Matcher is a compiled condition: a pure function from states to match
// results plus the static address set behind it, when one exists. A matcher
// is immutable once compiled and referentially transparent with respect to
// state content.
type Matcher struct {
	fn     func(s State) MatchResult
	static AddrSet
}

// NewMatcher compiles a condition specification into a matcher.
//
// The specification may be anything ConditionFrom accepts. def is the
// constant result produced for the empty condition. proj provides the
// engine capability gate for the mid-block probe; a nil project disables it.
//
// For static-address conditions the matcher first checks the state's exact
// address and returns the singleton intersection on a hit. Otherwise, when
// the engine supports block introspection, it intersects the condition with
// the instruction addresses of the state's current block, so breakpoints in
// the middle of a block are still caught. Any failure inside that probe is
// treated as a non-match and never propagates: exploration must not abort
// because one heuristic probe failed.
func NewMatcher(spec any, proj *Project, def bool) (*Matcher, error) {
	cond, err := ConditionFrom(spec)
	if err != nil {
		return nil, err
	}
	return compileCondition(cond, proj, def), nil
}

func compileCondition(cond Condition, proj *Project, def bool) *Matcher {
	switch {
	case cond.pred != nil:
		// Arbitrary predicate: passed through as-is, no static fast path.
		return &Matcher{
			fn: func(s State) MatchResult { return MatchedBool(cond.pred(s)) },
		}

	case cond.addrs != nil:
		static := cond.addrs
		return &Matcher{
			static: static,
			fn: func(s State) MatchResult {
				if static.Contains(s.Addr()) {
					return MatchedAddrs(NewAddrSet(s.Addr()))
				}
				return MatchedAddrs(probeBlock(s, proj, static))
			},
		}

	default:
		return &Matcher{
			static: NewAddrSet(),
			fn:     func(State) MatchResult { return MatchedBool(def) },
		}
	}
}

// Match probes one state against the compiled condition.
func (m *Matcher) Match(s State) MatchResult {
	return m.fn(s)
}

// StaticAddrs returns the normalized static address set behind the matcher,
// or nil when the condition is an opaque predicate and no fast path exists.
func (m *Matcher) StaticAddrs() AddrSet {
	return m.static
}

// probeBlock intersects static with the instruction addresses of the
// state's current block. Every failure mode (no introspection support, no
// block capability, a fetch error, even a panic inside the host block
// implementation) degrades to an empty intersection.
func probeBlock(s State, proj *Project, static AddrSet) (out AddrSet) {
	defer func() {
		if recover() != nil {
			out = nil
		}
	}()

	if proj == nil || proj.Engine == nil || !proj.Engine.IntrospectsBlocks() {
		return nil
	}
	bf, ok := s.(BlockFetcher)
	if !ok {
		return nil
	}
	blk, err := bf.Block()
	if err != nil || blk == nil {
		return nil
	}
	return static.Intersect(NewAddrSet(blk.InstructionAddrs()...))
}
