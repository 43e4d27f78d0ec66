// Package config loads and validates simwalk run configurations.
//
// A run configuration is a YAML document naming the program to explore and
// the techniques to compose: find/avoid goals (as address lists or Starlark
// predicate scripts), per-round stepping caps, step-count limits, spilling
// capacities and worker counts. Struct tags drive validation through
// go-playground/validator, so a bad configuration fails before a manager is
// ever built.
package config
