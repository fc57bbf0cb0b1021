// Package argreader implements the Argument Reader: the state machine every
// native function binding uses to resolve C-style overloads against a
// Reference_Stack of already-evaluated arguments, without ever throwing on a
// partial match until every overload has been tried.
//
// A binding declares one or more overloads in sequence:
//
//	r := argreader.New("std.array.sort", stack)
//	r.StartOverload()
//	var arr *value.Array
//	r.RequiredArray(&arr)
//	if r.EndOverload() {
//	     ...
//	}
//	r.ThrowNoMatchingFunctionCall()
//
// Each accessor records the parameter's type name for the diagnostic message
// and marks the overload as a non-match (without aborting early) the moment
// a type check fails, mirroring do_mark_match_failure in the original.
package argreader

import (
	"strconv"
	"strings"

	"asteria/internal/errors"
	"asteria/internal/value"
)

type state struct {
	params  []string
	nparams int
	finish  bool
	match   bool
}

// Reader drives overload resolution against a fixed argument stack.
type Reader struct {
	name      string
	stack     *value.Stack
	st        state
	saved     []state
	overloads []string // one joined parameter list per attempted overload
}

// New creates a reader for the named function over the given argument stack.
// The stack is read, never mutated.
func New(name string, stack *value.Stack) *Reader {
	return &Reader{name: name, stack: stack}
}

// Name returns the base name of the enclosing function.
func (r *Reader) Name() string { return r.name }

func (r *Reader) prepareParameter(param string) {
	r.st.params = append(r.st.params, param)
	r.st.nparams++
}

func (r *Reader) terminateParameterList() {
	r.st.finish = true
	r.overloads = append(r.overloads, strings.Join(r.st.params, ", "))
}

func (r *Reader) markMatchFailure() { r.st.match = false }

// peekArgument returns the Reference bound to the parameter currently being
// read, or nil if the stack doesn't have enough arguments or the overload
// has already failed.
func (r *Reader) peekArgument() *value.Reference {
	if !r.st.match {
		return nil
	}
	rindex := r.stack.Size() - r.st.nparams
	if rindex < 0 || rindex >= r.stack.Size() {
		return nil
	}
	return r.stack.Top(rindex)
}

// LoadState restores a previously saved parser state, letting overloads that
// share a common prefix skip re-parsing it.
func (r *Reader) LoadState(index int) {
	if index >= 0 && index < len(r.saved) {
		r.st = r.saved[index]
	}
}

// SaveState snapshots the current parser state into slot index.
func (r *Reader) SaveState(index int) {
	for index >= len(r.saved) {
		r.saved = append(r.saved, state{})
	}
	r.saved[index] = r.st
}

// StartOverload resets the reader to begin matching a new overload.
func (r *Reader) StartOverload() {
	r.st = state{match: true}
}

// OptionalReference copies the argument reference as-is (no dereference),
// for bindings that need to mutate the caller's variable in place.
func (r *Reader) OptionalReference(out **value.Reference) {
	*out = nil
	r.prepareParameter("[reference]")
	if q := r.peekArgument(); q != nil {
		*out = q
	}
}

// OptionalValue dereferences the argument and copies it verbatim, accepting
// any type including null.
func (r *Reader) OptionalValue(out *value.Value) {
	*out = value.Null()
	r.prepareParameter("[value]")
	q := r.peekArgument()
	if q == nil {
		return
	}
	v, err := q.DereferenceReadonly()
	if err != nil {
		r.markMatchFailure()
		return
	}
	*out = v
}

func (r *Reader) optionalTyped(label string, check func(value.Value) bool, assign func(value.Value)) {
	r.prepareParameter(label)
	q := r.peekArgument()
	if q == nil {
		return
	}
	v, err := q.DereferenceReadonly()
	if err != nil {
		r.markMatchFailure()
		return
	}
	if v.IsNull() {
		return
	}
	if !check(v) {
		r.markMatchFailure()
		return
	}
	assign(v)
}

func (r *Reader) OptionalBoolean(out *bool, present *bool) {
	*present = false
	r.optionalTyped("[boolean]", value.Value.IsBoolean, func(v value.Value) {
		*out = v.MustBoolean()
		*present = true
	})
}

func (r *Reader) OptionalInteger(out *int64, present *bool) {
	*present = false
	r.optionalTyped("[integer]", value.Value.IsInteger, func(v value.Value) {
		*out = v.MustInteger()
		*present = true
	})
}

func (r *Reader) OptionalReal(out *float64, present *bool) {
	*present = false
	r.optionalTyped("[real]", value.Value.IsReal, func(v value.Value) {
		*out = v.MustReal()
		*present = true
	})
}

func (r *Reader) OptionalString(out *string, present *bool) {
	*present = false
	r.optionalTyped("[string]", value.Value.IsString, func(v value.Value) {
		*out = v.MustString()
		*present = true
	})
}

func (r *Reader) OptionalOpaque(out *value.Opaque) {
	*out = nil
	r.optionalTyped("[opaque]", value.Value.IsOpaque, func(v value.Value) {
		o, _ := v.AsOpaque()
		*out = o
	})
}

func (r *Reader) OptionalFunction(out *value.Function) {
	*out = nil
	r.optionalTyped("[function]", value.Value.IsFunction, func(v value.Value) {
		f, _ := v.AsFunction()
		*out = f
	})
}

func (r *Reader) OptionalArray(out **value.Array) {
	*out = nil
	r.optionalTyped("[array]", value.Value.IsArray, func(v value.Value) {
		*out = v.MustArray()
	})
}

func (r *Reader) OptionalObject(out **value.Object) {
	*out = nil
	r.optionalTyped("[object]", value.Value.IsObject, func(v value.Value) {
		*out = v.MustObject()
	})
}

// RequiredValue accepts an argument of any type, including null, failing
// only if no argument is present at this position.
func (r *Reader) RequiredValue(out *value.Value) {
	*out = value.Null()
	r.prepareParameter("[value]")
	q := r.peekArgument()
	if q == nil {
		r.markMatchFailure()
		return
	}
	v, err := q.DereferenceReadonly()
	if err != nil {
		r.markMatchFailure()
		return
	}
	*out = v
}

func (r *Reader) required(label string, check func(value.Value) bool, assign func(value.Value)) {
	r.prepareParameter(label)
	q := r.peekArgument()
	if q == nil {
		r.markMatchFailure()
		return
	}
	v, err := q.DereferenceReadonly()
	if err != nil {
		r.markMatchFailure()
		return
	}
	if !check(v) {
		r.markMatchFailure()
		return
	}
	assign(v)
}

func (r *Reader) RequiredBoolean(out *bool) {
	r.required("boolean", value.Value.IsBoolean, func(v value.Value) { *out = v.MustBoolean() })
}

func (r *Reader) RequiredInteger(out *int64) {
	r.required("integer", value.Value.IsInteger, func(v value.Value) { *out = v.MustInteger() })
}

func (r *Reader) RequiredReal(out *float64) {
	r.required("real", value.Value.IsReal, func(v value.Value) { *out = v.MustReal() })
}

func (r *Reader) RequiredString(out *string) {
	r.required("string", value.Value.IsString, func(v value.Value) { *out = v.MustString() })
}

func (r *Reader) RequiredOpaque(out *value.Opaque) {
	r.required("opaque", value.Value.IsOpaque, func(v value.Value) {
		o, _ := v.AsOpaque()
		*out = o
	})
}

func (r *Reader) RequiredFunction(out *value.Function) {
	r.required("function", value.Value.IsFunction, func(v value.Value) {
		f, _ := v.AsFunction()
		*out = f
	})
}

func (r *Reader) RequiredArray(out **value.Array) {
	r.required("array", value.Value.IsArray, func(v value.Value) { *out = v.MustArray() })
}

func (r *Reader) RequiredObject(out **value.Object) {
	r.required("object", value.Value.IsObject, func(v value.Value) { *out = v.MustObject() })
}

// EndOverload terminates the current overload and reports whether every
// declared parameter matched and no extra arguments remain.
func (r *Reader) EndOverload() bool {
	r.terminateParameterList()
	if !r.st.match {
		return false
	}
	if r.stack.Size() > r.st.nparams {
		r.markMatchFailure()
		return false
	}
	return true
}

// EndOverloadVariadicRefs is like EndOverload but additionally collects any
// surplus arguments as raw references, oldest first.
func (r *Reader) EndOverloadVariadicRefs() ([]*value.Reference, bool) {
	r.prepareParameter("...")
	r.terminateParameterList()
	if !r.st.match {
		return nil, false
	}
	nparams := r.st.nparams - 1
	var vargs []*value.Reference
	if r.stack.Size() > nparams {
		nvargs := r.stack.Size() - nparams
		for nvargs > 0 {
			nvargs--
			vargs = append(vargs, r.stack.Top(nvargs))
		}
	}
	return vargs, true
}

// EndOverloadVariadicValues is like EndOverloadVariadicRefs, but dereferences
// each surplus argument to a plain Value.
func (r *Reader) EndOverloadVariadicValues() ([]value.Value, bool) {
	refs, ok := r.EndOverloadVariadicRefs()
	if !ok {
		return nil, false
	}
	vargs := make([]value.Value, len(refs))
	for i, ref := range refs {
		v, err := ref.DereferenceReadonly()
		if err != nil {
			return nil, false
		}
		vargs[i] = v
	}
	return vargs, true
}

// ThrowNoMatchingFunctionCall builds the "no matching function call" error
// listing the actual argument types received and every overload attempted,
// the same diagnostic shape the original throws.
func (r *Reader) ThrowNoMatchingFunctionCall() error {
	var caller strings.Builder
	caller.WriteString(r.name)
	caller.WriteByte('(')
	n := r.stack.Size()
	for i := 0; i < n; i++ {
		if i > 0 {
			caller.WriteString(", ")
		}
		ref := r.stack.Top(n - 1 - i)
		v, err := ref.DereferenceReadonly()
		if err != nil {
			caller.WriteString("<error>")
			continue
		}
		caller.WriteString(value.DescribeType(v.Type()))
	}
	caller.WriteByte(')')

	var overloads strings.Builder
	overloads.WriteString("[list of overloads:")
	for i, params := range r.overloads {
		overloads.WriteString("\n  ")
		overloads.WriteString(strconv.Itoa(i + 1))
		overloads.WriteString(") `")
		overloads.WriteString(r.name)
		overloads.WriteByte('(')
		overloads.WriteString(params)
		overloads.WriteString(")`")
	}
	overloads.WriteString("\n  -- end of list of overloads]")

	return errors.New(errors.ArgumentError, "no matching function call for `%s`\n%s", caller.String(), overloads.String())
}
