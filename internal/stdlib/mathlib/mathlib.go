// Package mathlib implements std.math: thin wrappers over Go's math
// package, plus a variadic hypot, a generalized log that special-cases
// base e, 2 and 10, and a generalized exp that special-cases base e and 2
// onto the faster stdlib entry points; exp with any other base, 10
// included, goes through math.Pow.
package mathlib

import (
	"math"

	"asteria/internal/argreader"
	"asteria/internal/binder"
	"asteria/internal/runtime"
	"asteria/internal/value"
)

func init() {
	runtime.RegisterStdModule(runtime.APIVersion0001_0000, "math", createBindings)
}

func bind(name string, target binder.Target) value.Value {
	return value.FromFunction(binder.New(name, "internal/stdlib/mathlib/mathlib.go", 0, target))
}

func createBindings(exports *value.Object, maxAPI runtime.APIVersion) {
	exports.Set("e", value.Real(math.E))
	exports.Set("pi", value.Real(math.Pi))

	exports.Set("exp", bind("std.math.exp", unary(math.Exp)))
	exports.Set("exp2", bind("std.math.exp2", unary(math.Exp2)))
	exports.Set("expm1", bind("std.math.expm1", unary(math.Expm1)))
	exports.Set("log", bind("std.math.log", bLog))
	exports.Set("log2", bind("std.math.log2", unary(math.Log2)))
	exports.Set("log10", bind("std.math.log10", unary(math.Log10)))
	exports.Set("log1p", bind("std.math.log1p", unary(math.Log1p)))
	exports.Set("exp_generic", bind("std.math.exp_generic", bExpGeneric))

	exports.Set("sin", bind("std.math.sin", unary(math.Sin)))
	exports.Set("cos", bind("std.math.cos", unary(math.Cos)))
	exports.Set("tan", bind("std.math.tan", unary(math.Tan)))
	exports.Set("asin", bind("std.math.asin", unary(math.Asin)))
	exports.Set("acos", bind("std.math.acos", unary(math.Acos)))
	exports.Set("atan", bind("std.math.atan", unary(math.Atan)))
	exports.Set("atan2", bind("std.math.atan2", binaryFn(math.Atan2)))
	exports.Set("sinh", bind("std.math.sinh", unary(math.Sinh)))
	exports.Set("cosh", bind("std.math.cosh", unary(math.Cosh)))
	exports.Set("tanh", bind("std.math.tanh", unary(math.Tanh)))
	exports.Set("asinh", bind("std.math.asinh", unary(math.Asinh)))
	exports.Set("acosh", bind("std.math.acosh", unary(math.Acosh)))
	exports.Set("atanh", bind("std.math.atanh", unary(math.Atanh)))

	exports.Set("pow", bind("std.math.pow", binaryFn(math.Pow)))
	exports.Set("sqrt", bind("std.math.sqrt", unary(math.Sqrt)))
	exports.Set("cbrt", bind("std.math.cbrt", unary(math.Cbrt)))
	exports.Set("hypot", bind("std.math.hypot", bHypot))

	exports.Set("gamma", bind("std.math.gamma", unary(math.Gamma)))
	exports.Set("lgamma", bind("std.math.lgamma", unary(bLgamma)))
	exports.Set("erf", bind("std.math.erf", unary(math.Erf)))
	exports.Set("erfc", bind("std.math.erfc", unary(math.Erfc)))
}

func bLgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}

func unary(f func(float64) float64) binder.Target {
	return func(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
		var x float64
		r.StartOverload()
		r.RequiredReal(&x)
		if !r.EndOverload() {
			return value.Value{}, r.ThrowNoMatchingFunctionCall()
		}
		return value.Real(f(x)), nil
	}
}

func binaryFn(f func(float64, float64) float64) binder.Target {
	return func(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
		var x, y float64
		r.StartOverload()
		r.RequiredReal(&x)
		r.RequiredReal(&y)
		if !r.EndOverload() {
			return value.Value{}, r.ThrowNoMatchingFunctionCall()
		}
		return value.Real(f(x, y)), nil
	}
}

// bLog implements log(x) for natural log and log(base, x) for arbitrary
// bases, special-casing e/2/10 onto math.Log/Log2/Log10 for accuracy.
func bLog(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var x float64
	r.StartOverload()
	r.RequiredReal(&x)
	if r.EndOverload() {
		return value.Real(math.Log(x)), nil
	}
	var base float64
	r.StartOverload()
	r.RequiredReal(&base)
	r.RequiredReal(&x)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	switch base {
	case math.E:
		return value.Real(math.Log(x)), nil
	case 2:
		return value.Real(math.Log2(x)), nil
	case 10:
		return value.Real(math.Log10(x)), nil
	default:
		return value.Real(math.Log(x) / math.Log(base)), nil
	}
}

// bExpGeneric implements exp(base, y), special-casing e and 2 onto
// math.Exp/Exp2. Base 10 has no special case and uses math.Pow like every
// other base.
func bExpGeneric(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var base, y float64
	r.StartOverload()
	r.RequiredReal(&base)
	r.RequiredReal(&y)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	switch base {
	case math.E:
		return value.Real(math.Exp(y)), nil
	case 2:
		return value.Real(math.Exp2(y)), nil
	default:
		return value.Real(math.Pow(base, y)), nil
	}
}

// bHypot computes the Euclidean norm of any number of arguments, not just
// two, unlike math.Hypot.
func bHypot(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	r.StartOverload()
	vargs, ok := r.EndOverloadVariadicValues()
	if !ok {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	args := make([]float64, len(vargs))
	for i, v := range vargs {
		f, ok := v.AsRealLax()
		if !ok {
			return value.Value{}, r.ThrowNoMatchingFunctionCall()
		}
		args[i] = f
	}
	if len(args) == 0 {
		return value.Real(0), nil
	}
	maxAbs := 0.0
	for _, a := range args {
		if av := math.Abs(a); av > maxAbs {
			maxAbs = av
		}
	}
	if maxAbs == 0 {
		return value.Real(0), nil
	}
	sumSquares := 0.0
	for _, a := range args {
		ratio := a / maxAbs
		sumSquares += ratio * ratio
	}
	return value.Real(maxAbs * math.Sqrt(sumSquares)), nil
}
