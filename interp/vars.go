// Copyright (c) 2017, Daniel Martí <mvdan@mvdan.cc>
// See LICENSE for licensing information

package interp

import (
	"os"
	"strconv"

	"github.com/cjsh-project/cjsh/expand"
	"github.com/cjsh-project/cjsh/syntax"
)

// overlayEnviron overlays a set of variables on top of a parent Environ,
// letting us implement function-local scopes and background-subshell
// variable isolation without copying the entire environment each time.
type overlayEnviron struct {
	parent expand.Environ
	values map[string]expand.Variable
	names  []string // preserves insertion order for Each

	// funcScope is true when this overlay represents a function call's
	// local scope, as opposed to e.g. a subshell's copy of the environment.
	// Non-local assignments inside a function scope are written through to
	// the nearest declaring ancestor, matching the dynamic scoping rules
	// that `local` is meant to opt out of.
	funcScope bool
}

func newOverlayEnviron(parent expand.WriteEnviron, funcScope bool) *overlayEnviron {
	return &overlayEnviron{parent: parent, funcScope: funcScope}
}

func (o *overlayEnviron) Get(name string) expand.Variable {
	if vr, ok := o.values[name]; ok {
		return vr
	}
	if o.parent != nil {
		return o.parent.Get(name)
	}
	return expand.Variable{}
}

func (o *overlayEnviron) Each(f func(name string, vr expand.Variable) bool) {
	if o.parent != nil {
		o.parent.Each(f)
	}
	for _, name := range o.names {
		vr, ok := o.values[name]
		if !ok {
			continue
		}
		if !f(name, vr) {
			return
		}
	}
}

// Set writes a variable into the overlay. A plain, non-local assignment
// inside a function scope is delegated up the parent chain if the name is
// already declared there, so that `foo=bar` inside a function updates the
// enclosing scope's variable rather than shadowing it; `local foo=bar`
// marks vr.Local to force the write into this scope instead.
func (o *overlayEnviron) Set(name string, vr expand.Variable) error {
	if o.funcScope && !vr.Local {
		if _, ok := o.values[name]; !ok {
			if parentWrite, ok := o.parent.(expand.WriteEnviron); ok {
				if o.parent.Get(name).Declared() {
					return parentWrite.Set(name, vr)
				}
			}
		}
	}
	if o.values == nil {
		o.values = make(map[string]expand.Variable)
	}
	if _, ok := o.values[name]; !ok {
		o.names = append(o.names, name)
	}
	o.values[name] = vr
	return nil
}

// lookupVar resolves name to its current value, special-casing the shell
// parameters that are computed rather than stored, such as $# and $@.
func (r *Runner) lookupVar(name string) expand.Variable {
	if name == "" {
		panic("variable name must not be empty")
	}
	switch name {
	case "#":
		return expand.Variable{Set: true, Kind: expand.String, Str: strconv.Itoa(len(r.Params))}
	case "@", "*":
		return expand.Variable{Set: true, Kind: expand.Indexed, List: r.Params}
	case "?":
		return expand.Variable{Set: true, Kind: expand.String, Str: strconv.Itoa(int(r.exit.code))}
	case "$":
		return expand.Variable{Set: true, Kind: expand.String, Str: strconv.Itoa(os.Getpid())}
	case "PPID":
		return expand.Variable{Set: true, Kind: expand.String, Str: strconv.Itoa(os.Getppid())}
	case "DIRSTACK":
		return expand.Variable{Set: true, Kind: expand.Indexed, List: r.dirStack}
	case "0":
		filename := r.filename
		if filename == "" {
			filename = "cjsh"
		}
		return expand.Variable{Set: true, Kind: expand.String, Str: filename}
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		i := int(name[0] - '1')
		if i < len(r.Params) {
			return expand.Variable{Set: true, Kind: expand.String, Str: r.Params[i]}
		}
		return expand.Variable{}
	}
	return r.writeEnv.Get(name)
}

// execEnv builds the "NAME=value" list passed as an external command's
// environment, in the form [os/exec.Cmd.Env] expects. Only exported
// variables are forwarded, matching every POSIX shell's inheritance rules.
func execEnv(env expand.Environ) []string {
	list := make([]string, 0, 32)
	env.Each(func(name string, vr expand.Variable) bool {
		if !vr.Exported || !vr.IsSet() {
			return true
		}
		list = append(list, name+"="+vr.String())
		return true
	})
	return list
}

// envGet resolves name the same way [Runner.lookupVar] does, but returns
// its plain string value, following the one level of implicit conversion
// that e.g. array variables get when used as a scalar.
func (r *Runner) envGet(name string) string {
	return r.lookupVar(name).String()
}

// setVar stores vr under name, refusing the write if the existing
// variable is marked read-only.
func (r *Runner) setVar(name string, vr expand.Variable) {
	cur := r.lookupVar(name)
	if cur.ReadOnly {
		r.errf("%s: readonly variable\n", name)
		r.exit.code = 1
		return
	}
	if vr.Kind == expand.String && r.opts[optAllExport] {
		vr.Exported = true
	}
	if err := r.writeEnv.Set(name, vr); err != nil {
		r.errf("%s: %v\n", name, err)
		r.exit.code = 1
		return
	}
}

func (r *Runner) setVarString(name, value string) {
	r.setVar(name, expand.Variable{Set: true, Kind: expand.String, Str: value})
}

// setVarWithIndex stores vr under name at the given array index, if any;
// with a nil index it behaves like [Runner.setVar]. Assigning a plain
// string onto an existing array falls back to index 0, or the empty
// string key for associative arrays, matching Bash.
func (r *Runner) setVarWithIndex(prev expand.Variable, name string, index syntax.ArithmExpr, vr expand.Variable) {
	if vr.Kind == expand.String && index == nil {
		switch prev.Kind {
		case expand.Indexed:
			index = &syntax.Word{Parts: []syntax.WordPart{&syntax.Lit{Value: "0"}}}
		case expand.Associative:
			index = &syntax.Word{Parts: []syntax.WordPart{&syntax.DblQuoted{}}}
		}
	}
	if index == nil {
		r.setVar(name, vr)
		return
	}

	// The syntax package only produces a non-nil index alongside a string
	// value; nested arrays aren't a thing.
	valStr := vr.Str

	if prev.Kind == expand.Associative {
		w, ok := index.(*syntax.Word)
		if !ok {
			return
		}
		k := r.literal(w)
		amap := prev.Map
		if amap == nil {
			amap = make(map[string]string, 1)
		}
		amap[k] = valStr
		prev.Kind = expand.Associative
		prev.Set = true
		prev.Map = amap
		r.setVar(name, prev)
		return
	}

	var list []string
	switch prev.Kind {
	case expand.String:
		list = append(list, prev.Str)
	case expand.Indexed:
		list = prev.List
	}
	k := r.arithm(index)
	if k < 0 {
		k = 0
	}
	for len(list) < k+1 {
		list = append(list, "")
	}
	list[k] = valStr
	prev.Kind = expand.Indexed
	prev.Set = true
	prev.List = list
	r.setVar(name, prev)
}

// delVar unsets name, refusing to do so if it is read-only.
func (r *Runner) delVar(name string) {
	vr := r.lookupVar(name)
	if vr.ReadOnly {
		r.errf("%s: readonly variable\n", name)
		r.exit.code = 1
		return
	}
	r.writeEnv.Set(name, expand.Variable{})
}

func (r *Runner) setFunc(name string, body *syntax.Stmt) {
	if r.Funcs == nil {
		r.Funcs = make(map[string]*syntax.Stmt, 4)
	}
	r.Funcs[name] = body
}

// stringIndex reports whether an array literal element's index looks like
// a quoted string, which is how bare `(a b)` array literals are told apart
// from `([k]=v)` associative ones once indices are supported.
func stringIndex(index syntax.ArithmExpr) bool {
	w, ok := index.(*syntax.Word)
	if !ok || len(w.Parts) != 1 {
		return false
	}
	switch w.Parts[0].(type) {
	case *syntax.DblQuoted, *syntax.SglQuoted:
		return true
	}
	return false
}

// assignVal computes the new value for an assignment, given the variable's
// previous value and the requested type (one of "", "-a", "-A", "-n" as
// used by the declare/local/export/typeset builtins).
func (r *Runner) assignVal(prev expand.Variable, as *syntax.Assign, valType string) expand.Variable {
	if as.Naked {
		return prev
	}
	if as.Array == nil {
		s := r.literal(&as.Value)
		if valType == "-n" {
			return expand.Variable{Set: true, Kind: expand.NameRef, Str: s}
		}
		if !as.Append || !prev.IsSet() {
			return expand.Variable{Set: true, Kind: expand.String, Str: s}
		}
		switch prev.Kind {
		case expand.Indexed:
			list := prev.List
			if len(list) == 0 {
				list = append(list, "")
			}
			list[0] += s
			prev.List = list
			return prev
		case expand.Associative:
			return prev
		default:
			return expand.Variable{Set: true, Kind: expand.String, Str: prev.Str + s}
		}
	}

	words := as.Array.List
	if valType == "" {
		valType = "-a"
	}
	if valType == "-A" {
		amap := make(map[string]string, len(words))
		for _, w := range words {
			amap[r.literal(&w)] = ""
		}
		if as.Append && prev.Kind == expand.Associative {
			for k, v := range prev.Map {
				if _, ok := amap[k]; !ok {
					amap[k] = v
				}
			}
		}
		return expand.Variable{Set: true, Kind: expand.Associative, Map: amap}
	}

	strs := make([]string, len(words))
	for i, w := range words {
		strs[i] = r.literal(&w)
	}
	if !as.Append || !prev.IsSet() {
		return expand.Variable{Set: true, Kind: expand.Indexed, List: strs}
	}
	switch prev.Kind {
	case expand.String:
		return expand.Variable{Set: true, Kind: expand.Indexed, List: append([]string{prev.Str}, strs...)}
	case expand.Indexed:
		return expand.Variable{Set: true, Kind: expand.Indexed, List: append(prev.List, strs...)}
	default:
		return expand.Variable{Set: true, Kind: expand.Indexed, List: strs}
	}
}
