// Package asteria is the embedding surface for the runtime: it blank-imports
// every internal/stdlib/* package so their init() functions register with
// internal/runtime's module table, and wraps internal/runtime.New behind a
// small constructor an embedder calls without reaching into internal/.
package asteria

import (
	"asteria/internal/runtime"
	"asteria/internal/value"

	_ "asteria/internal/stdlib/array"
	_ "asteria/internal/stdlib/checksum"
	_ "asteria/internal/stdlib/chrono"
	_ "asteria/internal/stdlib/csv"
	_ "asteria/internal/stdlib/debug"
	_ "asteria/internal/stdlib/filesystem"
	_ "asteria/internal/stdlib/gc"
	_ "asteria/internal/stdlib/ini"
	_ "asteria/internal/stdlib/json"
	_ "asteria/internal/stdlib/mathlib"
	_ "asteria/internal/stdlib/numeric"
	_ "asteria/internal/stdlib/rsa"
	_ "asteria/internal/stdlib/strlib"
	_ "asteria/internal/stdlib/system"
	_ "asteria/internal/stdlib/version"
	_ "asteria/internal/stdlib/zlib"
)

// APIVersion re-exports internal/runtime's gating type so an embedder never
// has to import internal/runtime directly.
type APIVersion = runtime.APIVersion

const (
	APIVersionNone      = runtime.APIVersionNone
	APIVersion0001_0000 = runtime.APIVersion0001_0000
	APIVersionLatest    = runtime.APIVersionLatest
)

// Context is a script execution's Global_Context: the value/reference model,
// the registered std library tree, the GC facade, and the PRNG, all scoped
// to one embedding session.
type Context = runtime.Global

// NewContext builds a Context exposing every standard library module whose
// API version does not exceed apiVersionReq. Passing APIVersionLatest
// exposes every module this build links in.
func NewContext(apiVersionReq APIVersion) *Context {
	return runtime.New(apiVersionReq)
}

// Std returns the `std` namespace object a host function or embedder looks
// up standard-library entries from, e.g. Std(ctx).Get("string").
func Std(ctx *Context) *value.Object {
	return ctx.Std()
}
