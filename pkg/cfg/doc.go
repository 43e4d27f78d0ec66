// Package cfg provides a small deterministic control-flow-graph engine for
// the simwalk exploration core. A program is an explicit graph of basic
// blocks (instruction addresses plus successor addresses), loadable from
// YAML; states walk the graph one block per step.
//
// The package exists so the exploration machinery can run end to end
// without a real lifter or constraint solver: it implements exactly the
// narrow State/Engine contracts pkg/explore consumes, including block
// introspection and state serialization for the spiller.
package cfg
