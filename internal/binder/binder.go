// Package binder collapses the twelve native-function signature shapes the
// original engine generates from a macro (whether a binding wants the
// global context, a self reference, and whether it returns a place or a
// plain value) into one Go closure shape: every native binding becomes a
// func(value.GlobalContext, *value.Reference, *argreader.Reader) (value.Value, error).
// A binding that doesn't care about the global context or self reference
// simply ignores its first two parameters; one that logically returns
// "void" returns value.Null().
package binder

import (
	"fmt"

	"asteria/internal/argreader"
	"asteria/internal/value"
)

// Target is the uniform shape every native function implementation has,
// regardless of which of the twelve original shapes it corresponds to.
type Target func(global value.GlobalContext, self *value.Reference, reader *argreader.Reader) (value.Value, error)

// Native wraps a Target as a value.Function, the thunk the original
// generates per ASTERIA_BINDING invocation.
type Native struct {
	name   string
	file   string
	line   int
	target Target
}

// New builds a native function binding. name is the fully qualified script
// name ("std.array.sort"); file/line identify the Go source location for
// describe(), mirroring the __FILE__/__LINE__ the macro captures.
func New(name, file string, line int, target Target) *Native {
	return &Native{name: name, file: file, line: line, target: target}
}

func (n *Native) Describe() string {
	return fmt.Sprintf("`%s` at '%s:%d'", n.name, n.file, n.line)
}

// Invoke implements value.Function. self is the reference the call was made
// through and must not be nil; stack holds the already
// evaluated arguments, topmost last. On return, self holds the result.
func (n *Native) Invoke(self *value.Reference, global value.GlobalContext, stack *value.Stack) error {
	reader := argreader.New(n.name, stack)
	result, err := n.target(global, self, reader)
	if err != nil {
		return err
	}
	self.SetTemporary(result)
	return nil
}

// Name returns the script-visible qualified name of the binding.
func (n *Native) Name() string { return n.name }
