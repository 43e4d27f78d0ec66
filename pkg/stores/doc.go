// Package stores provides secondary storage for evicted execution states.
//
// The SQLite-backed store persists serialized states spilled by the
// exploration engine's eviction technique; the in-memory store backs tests
// and short-lived runs. Both satisfy the explore.SpillStore contract: put,
// get and delete one opaque payload keyed by state identity.
package stores
