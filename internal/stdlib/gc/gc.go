// Package gc exposes std.gc: generation-scoped variable counts, get/set
// threshold, and an explicit collect(), backed by the Global Context's
// collector facade.
package gc

import (
	"asteria/internal/argreader"
	"asteria/internal/binder"
	"asteria/internal/errors"
	"asteria/internal/runtime"
	"asteria/internal/value"
)

func init() {
	runtime.RegisterStdModule(runtime.APIVersion0001_0000, "gc", createBindings)
}

func bind(name string, target binder.Target) value.Value {
	return value.FromFunction(binder.New(name, "internal/stdlib/gc/gc.go", 0, target))
}

func createBindings(exports *value.Object, maxAPI runtime.APIVersion) {
	exports.Set("count_variables", bind("std.gc.count_variables", bCountVariables))
	exports.Set("get_threshold", bind("std.gc.get_threshold", bGetThreshold))
	exports.Set("set_threshold", bind("std.gc.set_threshold", bSetThreshold))
	exports.Set("collect", bind("std.gc.collect", bCollect))
}

func collector(global value.GlobalContext, name string) (*runtime.Collector, error) {
	g, ok := global.(*runtime.Global)
	if !ok {
		return nil, errors.New(errors.TypeMismatch, "%s: no garbage collector available in this context", name)
	}
	return g.GC(), nil
}

func generation(n int64, name string) (runtime.Generation, error) {
	if n < 0 || n > 2 {
		return 0, errors.New(errors.RangeError, "%s: generation must be 0, 1, or 2", name)
	}
	return runtime.Generation(n), nil
}

func bCountVariables(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var gen int64
	r.StartOverload()
	r.RequiredInteger(&gen)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	c, err := collector(global, "std.gc.count_variables")
	if err != nil {
		return value.Value{}, err
	}
	g, err := generation(gen, "std.gc.count_variables")
	if err != nil {
		return value.Value{}, err
	}
	return value.Int(c.CountVariables(g)), nil
}

func bGetThreshold(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var gen int64
	r.StartOverload()
	r.RequiredInteger(&gen)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	c, err := collector(global, "std.gc.get_threshold")
	if err != nil {
		return value.Value{}, err
	}
	g, err := generation(gen, "std.gc.get_threshold")
	if err != nil {
		return value.Value{}, err
	}
	return value.Int(c.GetThreshold(g)), nil
}

func bSetThreshold(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var gen, threshold int64
	r.StartOverload()
	r.RequiredInteger(&gen)
	r.RequiredInteger(&threshold)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	c, err := collector(global, "std.gc.set_threshold")
	if err != nil {
		return value.Value{}, err
	}
	g, err := generation(gen, "std.gc.set_threshold")
	if err != nil {
		return value.Value{}, err
	}
	return value.Int(c.SetThreshold(g, threshold)), nil
}

func bCollect(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var gen int64
	var hasGen bool
	r.StartOverload()
	r.OptionalInteger(&gen, &hasGen)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	c, err := collector(global, "std.gc.collect")
	if err != nil {
		return value.Value{}, err
	}
	g := runtime.GenerationOldest
	if hasGen {
		g, err = generation(gen, "std.gc.collect")
		if err != nil {
			return value.Value{}, err
		}
	}
	return value.Int(c.Collect(g)), nil
}
