// Package version exposes std.version: the API version the enclosing Global
// Context was constructed with, split into major/minor halves. It registers
// at the sentinel version zero so it is present even when the embedder
// requests no standard library at all, mirroring the reference module table
// where `version` precedes every gated module.
package version

import (
	"asteria/internal/runtime"
	"asteria/internal/value"
)

func init() {
	runtime.RegisterStdModule(runtime.APIVersionNone, "version", createBindings)
}

func createBindings(exports *value.Object, maxAPI runtime.APIVersion) {
	exports.Set("major", value.Int(int64(maxAPI>>16)))
	exports.Set("minor", value.Int(int64(maxAPI&0xFFFF)))
}
