package explore

import "sort"

// AddrSet is a set of program addresses.
type AddrSet map[uint64]struct{}

// NewAddrSet builds a set from the given addresses.
func NewAddrSet(addrs ...uint64) AddrSet {
	s := make(AddrSet, len(addrs))
	for _, a := range addrs {
		s[a] = struct{}{}
	}
	return s
}

// Add inserts an address into the set.
func (s AddrSet) Add(addr uint64) {
	s[addr] = struct{}{}
}

// Contains reports whether addr is in the set.
func (s AddrSet) Contains(addr uint64) bool {
	_, ok := s[addr]
	return ok
}

// Empty reports whether the set has no members.
func (s AddrSet) Empty() bool {
	return len(s) == 0
}

// Intersect returns the intersection of s and other.
func (s AddrSet) Intersect(other AddrSet) AddrSet {
	small, large := s, other
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(AddrSet)
	for a := range small {
		if _, ok := large[a]; ok {
			out[a] = struct{}{}
		}
	}
	return out
}

// Clone returns a copy of the set.
func (s AddrSet) Clone() AddrSet {
	out := make(AddrSet, len(s))
	for a := range s {
		out[a] = struct{}{}
	}
	return out
}

// Sorted returns the members in ascending order.
func (s AddrSet) Sorted() []uint64 {
	out := make([]uint64, 0, len(s))
	for a := range s {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
