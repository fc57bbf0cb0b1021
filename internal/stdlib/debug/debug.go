// Package debug implements std.debug: value inspection (print/dump) and a
// stderr logger whose severity prefix is colored only on a terminal.
package debug

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"asteria/internal/argreader"
	"asteria/internal/binder"
	"asteria/internal/errors"
	"asteria/internal/runtime"
	"asteria/internal/value"
)

func init() {
	runtime.RegisterStdModule(runtime.APIVersion0001_0000, "debug", createBindings)
}

func bind(name string, target binder.Target) value.Value {
	return value.FromFunction(binder.New(name, "internal/stdlib/debug/debug.go", 0, target))
}

func createBindings(exports *value.Object, maxAPI runtime.APIVersion) {
	exports.Set("print", bind("std.debug.print", bPrint))
	exports.Set("dump", bind("std.debug.dump", bDump))
	exports.Set("logf", bind("std.debug.logf", bLogf))
	exports.Set("format_bytes", bind("std.debug.format_bytes", bFormatBytes))
	exports.Set("is_terminal", bind("std.debug.is_terminal", bIsTerminal))
}

func bPrint(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var v value.Value
	r.StartOverload()
	r.RequiredValue(&v)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	return value.Str(v.Print()), nil
}

func bDump(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var v value.Value
	var indent int64
	var hasIndent bool
	r.StartOverload()
	r.RequiredValue(&v)
	r.OptionalInteger(&indent, &hasIndent)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	if !hasIndent {
		indent = 2
	}
	if indent < 0 || indent > 40 {
		return value.Value{}, errors.New(errors.RangeError, "std.debug.dump: indent must be in [0, 40]")
	}
	return value.Str(v.Dump(int(indent))), nil
}

// bLogf writes a single line to stderr, prefixing it with a severity tag
// that is ANSI-colored only when stderr is an interactive terminal.
func bLogf(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var level, message string
	r.StartOverload()
	r.RequiredString(&level)
	r.RequiredString(&message)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	prefix := "[" + level + "]"
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		prefix = colorFor(level) + prefix + "\x1b[0m"
	}
	fmt.Fprintln(os.Stderr, prefix, message)
	return value.Null(), nil
}

func colorFor(level string) string {
	switch level {
	case "error", "fatal":
		return "\x1b[31m"
	case "warn", "warning":
		return "\x1b[33m"
	default:
		return "\x1b[36m"
	}
}

func bFormatBytes(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var n int64
	r.StartOverload()
	r.RequiredInteger(&n)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	if n < 0 {
		return value.Value{}, errors.New(errors.RangeError, "std.debug.format_bytes: size must not be negative")
	}
	return value.Str(humanize.Bytes(uint64(n))), nil
}

func bIsTerminal(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	r.StartOverload()
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	return value.Bool(isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())), nil
}
