// Package runtime provides Global_Context: the object a script execution
// owns for its whole lifetime. It holds the garbage-collector facade, the
// ISAAC PRNG, the module loader, optional profiling hooks, and the `std`
// object tree built from every standard library module whose API version is
// at or below the version requested at construction.
package runtime

import (
	"sort"

	"asteria/internal/errors"
	"asteria/internal/module"
	"asteria/internal/value"
)

// APIVersion gates which standard library modules a Global_Context exposes,
// mirroring the api_version_req parameter of the original constructor.
type APIVersion uint32

const (
	APIVersionNone      APIVersion = 0
	APIVersion0001_0000 APIVersion = 0x0001_0000
	APIVersion0002_0000 APIVersion = 0x0002_0000
	APIVersionLatest    APIVersion = 0xFFFF_FFFF
)

// ModuleInit populates the module's export object. maxVersion is the
// highest API version active for this context, threaded through so a module
// can expose version-gated members of its own.
type ModuleInit func(exports *value.Object, maxVersion APIVersion)

// stdModule is one entry of the sorted module table, matching the anonymous
// Module/s_modules pair.
type stdModule struct {
	apiVersion APIVersion
	name       string
	init       ModuleInit
}

var stdModules []stdModule

// RegisterStdModule adds a standard library module to the global table. It
// is called from each internal/stdlib/* package's init(), so the set of
// modules a build exposes is exactly the set of stdlib packages linked in.
func RegisterStdModule(apiVersion APIVersion, name string, init ModuleInit) {
	stdModules = append(stdModules, stdModule{apiVersion, name, init})
	sort.SliceStable(stdModules, func(i, j int) bool {
		return stdModules[i].apiVersion < stdModules[j].apiVersion
	})
}

// Global is the per-script global context.
type Global struct {
	gc         *Collector
	prng       *PRNG
	loader     *module.Loader
	hooks      Hooks
	std        *value.Object
	maxAPI     APIVersion
	recurDepth int
	recurMax   int
}

// Hooks lets an embedder observe function calls without modifying the
// interpreter; the (out of scope) AVMC engine is the primary caller, but
// host bindings such as std.debug may also fire hooks.
type Hooks interface {
	OnCall(name string)
	OnReturn(name string)
}

// New builds a global context exposing every registered std module whose
// API version does not exceed apiVersionReq.
func New(apiVersionReq APIVersion) *Global {
	g := &Global{
		gc:       NewCollector(),
		prng:     NewPRNG(),
		loader:   module.New(defaultSearchPath()),
		std:      value.NewObject(),
		recurMax: 512,
	}

	end := sort.Search(len(stdModules), func(i int) bool {
		return stdModules[i].apiVersion > apiVersionReq
	})
	// Each module initializer receives the highest version actually selected,
	// not the raw request, so a request for 0xFFFFFFFF does not unlock members
	// no registered module version introduces.
	var selected APIVersion
	if end > 0 {
		selected = stdModules[end-1].apiVersion
	}
	for _, m := range stdModules[:end] {
		sub, ok := g.std.Get(m.name)
		var obj *value.Object
		if ok && sub.IsObject() {
			obj = sub.MustObject()
		} else {
			obj = value.NewObject()
			g.std.Set(m.name, value.FromObject(obj))
		}
		m.init(obj, selected)
	}
	g.maxAPI = selected
	return g
}

func defaultSearchPath() []string {
	return []string{".", "./lib", "./modules"}
}

// MaxAPIVersion returns the highest API version this build supports.
func (g *Global) MaxAPIVersion() APIVersion {
	if len(stdModules) == 0 {
		return APIVersionNone
	}
	return stdModules[len(stdModules)-1].apiVersion
}

// Std returns the `std` object tree, the root script code addresses as
// std.array.sort, std.string.find, and so on.
func (g *Global) Std() *value.Object { return g.std }

// GC returns the garbage-collector facade.
func (g *Global) GC() *Collector { return g.gc }

// PRNG returns the ISAAC random engine.
func (g *Global) PRNG() *PRNG { return g.prng }

// Loader returns the module cache.
func (g *Global) Loader() *module.Loader { return g.loader }

// SetHooks installs or clears profiling hooks.
func (g *Global) SetHooks(h Hooks) { g.hooks = h }

// HooksOpt returns the installed hooks, or nil.
func (g *Global) HooksOpt() Hooks { return g.hooks }

// Recursion implements value.GlobalContext: it guards against runaway
// native-to-native recursion the way Recursion_Sentry guards script call
// depth, since host bindings like std.array.sort's comparator callback can
// recurse back into the interpreter.
func (g *Global) Recursion() error {
	g.recurDepth++
	if g.recurDepth > g.recurMax {
		g.recurDepth--
		return errors.New(errors.RangeError, "max recursion depth exceeded (%d)", g.recurMax)
	}
	return nil
}

// ReleaseRecursion undoes one Recursion() call; bindings that recurse must
// call it exactly once per successful Recursion() on every return path.
func (g *Global) ReleaseRecursion() {
	if g.recurDepth > 0 {
		g.recurDepth--
	}
}

// Random implements value.GlobalContext: std.numeric.random and
// std.array.shuffle both draw entropy from the context's single PRNG rather
// than seeding one of their own.
func (g *Global) Random() float64 { return g.prng.Float64() }
