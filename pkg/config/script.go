package config

import (
	"fmt"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/simwalk/simwalk/pkg/explore"
)

// CompilePredicate compiles a Starlark script into a state predicate usable
// as a goal condition. The script must define a function
//
//	def match(state):
//	    return state.addr == 0x400000
//
// where state carries addr, id and length plus symbolic when the host state
// exposes it. The script is executed once here; a bad script fails at
// configuration time, at the caller that wrote it. A runtime evaluation
// error in match is treated as a non-match, mirroring how matcher probes
// degrade, so one bad state cannot abort the run.
func CompilePredicate(script string) (func(s explore.State) bool, error) {
	thread := &starlark.Thread{
		Name: "simwalk-predicate",
		Print: func(_ *starlark.Thread, _ string) {
			// Suppress print: predicates must be pure.
		},
	}
	predeclared := starlark.StringDict{
		"struct": starlark.NewBuiltin("struct", starlarkstruct.Make),
	}

	globals, err := starlark.ExecFile(thread, "predicate.star", script, predeclared)
	if err != nil {
		return nil, fmt.Errorf("compiling predicate script: %w", err)
	}
	match, ok := globals["match"]
	if !ok {
		return nil, fmt.Errorf("predicate script must define match(state)")
	}
	fn, ok := match.(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("predicate script: match is not callable")
	}

	return func(s explore.State) bool {
		callThread := &starlark.Thread{Name: "simwalk-predicate"}
		res, err := starlark.Call(callThread, fn, starlark.Tuple{stateValue(s)}, nil)
		if err != nil {
			return false
		}
		return bool(res.Truth())
	}, nil
}

// stateValue projects a state onto a Starlark struct.
func stateValue(s explore.State) starlark.Value {
	fields := starlark.StringDict{
		"id":   starlark.String(s.ID()),
		"addr": starlark.MakeUint64(s.Addr()),
	}
	if ln, ok := s.(explore.Lengther); ok {
		fields["length"] = starlark.MakeInt(ln.Length())
	}
	if v, ok := s.(explore.Valuer); ok {
		fields["symbolic"] = starlark.Bool(v.IsSymbolic())
	}
	return starlarkstruct.FromStringDict(starlarkstruct.Default, fields)
}
