// Package numeric implements std.numeric: classification, rounding,
// clamping, the base/ebase text format and parse pair, and the binary
// pack/unpack family that moves fixed-width integers and floats between
// script arrays and byte strings.
package numeric

import (
	"math"
	"math/bits"
	"strconv"
	"strings"

	"asteria/internal/argreader"
	"asteria/internal/binder"
	"asteria/internal/errors"
	"asteria/internal/runtime"
	"asteria/internal/value"
)

func init() {
	runtime.RegisterStdModule(runtime.APIVersion0001_0000, "numeric", createBindings)
}

func bind(name string, target binder.Target) value.Value {
	return value.FromFunction(binder.New(name, "internal/stdlib/numeric/numeric.go", 0, target))
}

func createBindings(exports *value.Object, maxAPI runtime.APIVersion) {
	exports.Set("integer_max", value.Int(math.MaxInt64))
	exports.Set("integer_min", value.Int(math.MinInt64))
	exports.Set("real_max", value.Real(math.MaxFloat64))
	exports.Set("real_min", value.Real(-math.MaxFloat64))
	exports.Set("real_epsilon", value.Real(2.220446049250313e-16))
	exports.Set("size_max", value.Int(math.MaxInt64))

	exports.Set("abs", bind("std.numeric.abs", bAbs))
	exports.Set("sign", bind("std.numeric.sign", bSign))
	exports.Set("is_finite", bind("std.numeric.is_finite", bIsFinite))
	exports.Set("is_infinity", bind("std.numeric.is_infinity", bIsInfinity))
	exports.Set("is_nan", bind("std.numeric.is_nan", bIsNaN))
	exports.Set("max", bind("std.numeric.max", bMax))
	exports.Set("min", bind("std.numeric.min", bMin))
	exports.Set("clamp", bind("std.numeric.clamp", bClamp))
	exports.Set("round", bind("std.numeric.round", makeRound(math.Round, false)))
	exports.Set("iround", bind("std.numeric.iround", makeRound(math.Round, true)))
	exports.Set("floor", bind("std.numeric.floor", makeRound(math.Floor, false)))
	exports.Set("ifloor", bind("std.numeric.ifloor", makeRound(math.Floor, true)))
	exports.Set("ceil", bind("std.numeric.ceil", makeRound(math.Ceil, false)))
	exports.Set("iceil", bind("std.numeric.iceil", makeRound(math.Ceil, true)))
	exports.Set("trunc", bind("std.numeric.trunc", makeRound(math.Trunc, false)))
	exports.Set("itrunc", bind("std.numeric.itrunc", makeRound(math.Trunc, true)))
	exports.Set("random", bind("std.numeric.random", bRandom))
	exports.Set("remainder", bind("std.numeric.remainder", bRemainder))
	exports.Set("frexp", bind("std.numeric.frexp", bFrexp))
	exports.Set("ldexp", bind("std.numeric.ldexp", bLdexp))
	exports.Set("rotl", bind("std.numeric.rotl", makeRot(true)))
	exports.Set("rotr", bind("std.numeric.rotr", makeRot(false)))
	exports.Set("format", bind("std.numeric.format", bFormat))
	exports.Set("parse", bind("std.numeric.parse", bParse))

	for _, n := range []int{8, 16, 32, 64} {
		n := n
		exports.Set("pack_i"+itoa(n)+"_be", bind("std.numeric.pack_i"+itoa(n)+"_be", makePackInt(n, true)))
		exports.Set("pack_i"+itoa(n)+"_le", bind("std.numeric.pack_i"+itoa(n)+"_le", makePackInt(n, false)))
		exports.Set("unpack_i"+itoa(n)+"_be", bind("std.numeric.unpack_i"+itoa(n)+"_be", makeUnpackInt(n, true)))
		exports.Set("unpack_i"+itoa(n)+"_le", bind("std.numeric.unpack_i"+itoa(n)+"_le", makeUnpackInt(n, false)))
	}
	for _, n := range []int{32, 64} {
		n := n
		exports.Set("pack_f"+itoa(n)+"_be", bind("std.numeric.pack_f"+itoa(n)+"_be", makePackFloat(n, true)))
		exports.Set("pack_f"+itoa(n)+"_le", bind("std.numeric.pack_f"+itoa(n)+"_le", makePackFloat(n, false)))
		exports.Set("unpack_f"+itoa(n)+"_be", bind("std.numeric.unpack_f"+itoa(n)+"_be", makeUnpackFloat(n, true)))
		exports.Set("unpack_f"+itoa(n)+"_le", bind("std.numeric.unpack_f"+itoa(n)+"_le", makeUnpackFloat(n, false)))
	}
}

func itoa(n int) string { return strconv.Itoa(n) }

// --- classification / sign / min-max-clamp -----------------------------

func bAbs(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var i int64
	r.StartOverload()
	r.RequiredInteger(&i)
	if r.EndOverload() {
		if i == math.MinInt64 {
			return value.Value{}, errors.New(errors.RangeError, "abs(integer_min) overflows a 64-bit integer")
		}
		if i < 0 {
			i = -i
		}
		return value.Int(i), nil
	}
	var f float64
	r.StartOverload()
	r.RequiredReal(&f)
	if r.EndOverload() {
		return value.Real(math.Abs(f)), nil
	}
	return value.Value{}, r.ThrowNoMatchingFunctionCall()
}

func bSign(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var i int64
	r.StartOverload()
	r.RequiredInteger(&i)
	if r.EndOverload() {
		if i < 0 {
			return value.Int(-1), nil
		}
		return value.Int(0), nil
	}
	var f float64
	r.StartOverload()
	r.RequiredReal(&f)
	if r.EndOverload() {
		if math.Signbit(f) {
			return value.Int(-1), nil
		}
		return value.Int(0), nil
	}
	return value.Value{}, r.ThrowNoMatchingFunctionCall()
}

func bIsFinite(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var v value.Value
	r.StartOverload()
	r.RequiredValue(&v)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	if v.IsInteger() {
		return value.Bool(true), nil
	}
	if v.IsReal() {
		f := v.MustReal()
		return value.Bool(!math.IsInf(f, 0) && !math.IsNaN(f)), nil
	}
	return value.Value{}, errors.New(errors.TypeMismatch, "std.numeric.is_finite: argument must be integer or real")
}

func bIsInfinity(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var v value.Value
	r.StartOverload()
	r.RequiredValue(&v)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	if v.IsReal() {
		return value.Bool(math.IsInf(v.MustReal(), 0)), nil
	}
	return value.Bool(false), nil
}

func bIsNaN(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var v value.Value
	r.StartOverload()
	r.RequiredValue(&v)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	if v.IsReal() {
		return value.Bool(math.IsNaN(v.MustReal())), nil
	}
	return value.Bool(false), nil
}

func bMax(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	return variadicOrdered(r, "std.numeric.max", func(c value.Compare) bool { return c == value.CompareLess })
}

func bMin(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	return variadicOrdered(r, "std.numeric.min", func(c value.Compare) bool { return c == value.CompareGreater })
}

// variadicOrdered picks the extremum of a variadic argument list using
// partial comparison; replace reports whether candidate should replace the
// running best given the comparison of (best, candidate).
func variadicOrdered(r *argreader.Reader, name string, replace func(value.Compare) bool) (value.Value, error) {
	r.StartOverload()
	vargs, ok := r.EndOverloadVariadicValues()
	if !ok {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	if len(vargs) == 0 {
		return value.Value{}, errors.New(errors.ArgumentError, "%s requires at least one argument", name)
	}
	best := vargs[0]
	for _, v := range vargs[1:] {
		c := best.ComparePartial(v)
		if c == value.CompareUnordered {
			return value.Value{}, errors.New(errors.OrderError, "%s: values are unordered", name)
		}
		if replace(c) {
			best = v
		}
	}
	return best, nil
}

func bClamp(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var v, lo, hi value.Value
	r.StartOverload()
	r.RequiredValue(&v)
	r.RequiredValue(&lo)
	r.RequiredValue(&hi)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	if c := lo.ComparePartial(hi); c == value.CompareGreater || c == value.CompareUnordered {
		return value.Value{}, errors.New(errors.RangeError, "std.numeric.clamp: lower bound exceeds upper bound")
	}
	if c := v.ComparePartial(lo); c == value.CompareUnordered {
		return value.Value{}, errors.New(errors.OrderError, "std.numeric.clamp: value is unordered with bounds")
	} else if c == value.CompareLess {
		return lo, nil
	}
	if c := v.ComparePartial(hi); c == value.CompareUnordered {
		return value.Value{}, errors.New(errors.OrderError, "std.numeric.clamp: value is unordered with bounds")
	} else if c == value.CompareGreater {
		return hi, nil
	}
	return v, nil
}

// --- rounding family -----------------------------------------------------

func makeRound(f func(float64) float64, toInt bool) binder.Target {
	return func(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
		var i int64
		r.StartOverload()
		r.RequiredInteger(&i)
		if r.EndOverload() {
			if toInt {
				return value.Int(i), nil
			}
			return value.Int(i), nil
		}
		var x float64
		r.StartOverload()
		r.RequiredReal(&x)
		if !r.EndOverload() {
			return value.Value{}, r.ThrowNoMatchingFunctionCall()
		}
		rounded := f(x)
		if toInt {
			if rounded > math.MaxInt64 || rounded < math.MinInt64 || math.IsNaN(rounded) {
				return value.Value{}, errors.New(errors.RangeError, "value out of int64 range for integer rounding")
			}
			return value.Int(int64(rounded)), nil
		}
		return value.Real(rounded), nil
	}
}

func bRandom(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var limit int64
	var hasLimit bool
	r.StartOverload()
	r.OptionalInteger(&limit, &hasLimit)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	f := global.Random()
	if !hasLimit {
		return value.Real(f), nil
	}
	if limit <= 0 {
		return value.Value{}, errors.New(errors.RangeError, "std.numeric.random: limit must be positive")
	}
	return value.Int(int64(f * float64(limit))), nil
}

func bRemainder(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var x, y float64
	r.StartOverload()
	r.RequiredReal(&x)
	r.RequiredReal(&y)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	return value.Real(math.Remainder(x, y)), nil
}

func bFrexp(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var x float64
	r.StartOverload()
	r.RequiredReal(&x)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	frac, exp := math.Frexp(x)
	out := value.NewArray()
	out.Append(value.Real(frac))
	out.Append(value.Int(int64(exp)))
	return value.FromArray(out), nil
}

func bLdexp(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var frac float64
	var exp int64
	r.StartOverload()
	r.RequiredReal(&frac)
	r.RequiredInteger(&exp)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	return value.Real(math.Ldexp(frac, int(exp))), nil
}

func makeRot(left bool) binder.Target {
	return func(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
		var x, shift int64
		var m int64
		var hasM bool
		r.StartOverload()
		r.RequiredInteger(&x)
		r.RequiredInteger(&shift)
		r.OptionalInteger(&m, &hasM)
		if !r.EndOverload() {
			return value.Value{}, r.ThrowNoMatchingFunctionCall()
		}
		width := int64(64)
		if hasM {
			width = m
		}
		if width < 0 || width > 64 {
			return value.Value{}, errors.New(errors.RangeError, "rotation width must be in [0, 64]")
		}
		if width == 0 {
			return value.Int(x), nil
		}
		u := uint64(x)
		mask := uint64(1)<<uint(width) - 1
		if width == 64 {
			mask = ^uint64(0)
		}
		body := u & mask
		rest := u &^ mask
		s := ((shift % width) + width) % width
		if !left {
			s = width - s
			if s == width {
				s = 0
			}
		}
		rotated := ((body << uint(s)) | (body >> uint(width-s))) & mask
		return value.Int(int64(rotated | rest)), nil
	}
}

// --- format / parse -------------------------------------------------------

func bFormat(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var v value.Value
	var base, ebase int64
	var hasBase, hasEbase bool
	r.StartOverload()
	r.RequiredValue(&v)
	r.OptionalInteger(&base, &hasBase)
	r.OptionalInteger(&ebase, &hasEbase)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	if !v.IsNumeric() {
		return value.Value{}, errors.New(errors.TypeMismatch, "std.numeric.format: value must be integer or real")
	}
	if !hasBase {
		base = 10
	}
	if base != 2 && base != 10 && base != 16 {
		return value.Value{}, errors.New(errors.RangeError, "std.numeric.format: base must be 2, 10, or 16")
	}
	if !hasEbase {
		return value.Str(formatPlain(v, base)), nil
	}
	valid := (base == 2 && ebase == 2) || (base == 16 && ebase == 2) || (base == 10 && ebase == 10)
	if !valid {
		return value.Value{}, errors.New(errors.RangeError, "std.numeric.format: unsupported base/ebase combination %d/%d", base, ebase)
	}
	return value.Str(formatExponent(v, base)), nil
}

func radixPrefix(base int64) string {
	if base == 2 {
		return "0b"
	}
	return "0x"
}

// formatIntegerRadix renders i in the given base, prefixed 0b/0x for the
// non-decimal bases, with uppercase hexadecimal digits.
func formatIntegerRadix(i int64, base int64) string {
	if base == 10 {
		return strconv.FormatInt(i, 10)
	}
	sign := ""
	u := uint64(i)
	if i < 0 {
		sign = "-"
		u = uint64(-i)
	}
	digits := strconv.FormatUint(u, int(base))
	if base == 16 {
		digits = strings.ToUpper(digits)
	}
	return sign + radixPrefix(base) + digits
}

func formatPlain(v value.Value, base int64) string {
	if v.IsInteger() {
		return formatIntegerRadix(v.MustInteger(), base)
	}
	f := v.MustReal()
	if base == 10 {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return formatRealRadix(f, base)
}

// splitMantissa decomposes a finite non-zero f into mant * 2^e with the
// trailing zero bits of mant stripped.
func splitMantissa(f float64) (mant uint64, e int) {
	frac, exp := math.Frexp(f)
	mant = uint64(frac * (1 << 53))
	e = exp - 53
	for mant&1 == 0 {
		mant >>= 1
		e++
	}
	return mant, e
}

// formatRealRadix renders a real in positional base-2 or base-16 notation
// with no exponent. Both radices are powers of two, so the expansion of any
// finite binary64 value terminates.
func formatRealRadix(f float64, base int64) string {
	sign := ""
	if math.Signbit(f) {
		sign = "-"
		f = -f
	}
	if math.IsNaN(f) {
		return "nan"
	}
	if math.IsInf(f, 0) {
		return sign + "infinity"
	}
	prefix := radixPrefix(base)
	if f == 0 {
		return sign + prefix + "0"
	}
	mant, e := splitMantissa(f)
	bitsPerDigit := 1
	if base == 16 {
		bitsPerDigit = 4
	}
	// Align the binary exponent to a whole digit count.
	for e%bitsPerDigit != 0 {
		mant <<= 1
		e--
	}
	digits := strconv.FormatUint(mant, int(base))
	if base == 16 {
		digits = strings.ToUpper(digits)
	}
	shift := e / bitsPerDigit
	if shift >= 0 {
		return sign + prefix + digits + strings.Repeat("0", shift)
	}
	point := len(digits) + shift
	if point <= 0 {
		return sign + prefix + "0." + strings.Repeat("0", -point) + digits
	}
	return sign + prefix + digits[:point] + "." + digits[point:]
}

// formatRealRadixExp renders a real in normalized base-2 or base-16 notation
// with a binary 'p' exponent, e.g. 0b1.01p+3 or 0x1.8Ap-4.
func formatRealRadixExp(f float64, base int64) string {
	sign := ""
	if math.Signbit(f) {
		sign = "-"
		f = -f
	}
	if math.IsNaN(f) {
		return "nan"
	}
	if math.IsInf(f, 0) {
		return sign + "infinity"
	}
	prefix := radixPrefix(base)
	if f == 0 {
		return sign + prefix + "0p+0"
	}
	mant, e := splitMantissa(f)
	// Normalize so the leading digit is the mantissa's top bit: the binary
	// point sits right after the first bit of mant.
	bitlen := 64 - bits.LeadingZeros64(mant)
	pexp := e + bitlen - 1
	fracBits := bitlen - 1
	bitsPerDigit := 1
	if base == 16 {
		bitsPerDigit = 4
	}
	for fracBits%bitsPerDigit != 0 {
		mant <<= 1
		fracBits++
	}
	lead := mant >> uint(fracBits)
	frac := mant & (1<<uint(fracBits) - 1)
	out := sign + prefix + strconv.FormatUint(lead, 10)
	if frac != 0 {
		digits := strconv.FormatUint(frac, int(base))
		if base == 16 {
			digits = strings.ToUpper(digits)
		}
		pad := fracBits/bitsPerDigit - len(digits)
		out += "." + strings.Repeat("0", pad) + digits
		out = strings.TrimRight(out, "0")
		out = strings.TrimSuffix(out, ".")
	}
	return out + "p" + signedDecimal(pexp)
}

func signedDecimal(n int) string {
	if n >= 0 {
		return "+" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// decomposeInteger strips factors of eb from i, returning the reduced
// mantissa and the count of factors removed.
func decomposeInteger(i int64, eb int64) (int64, int) {
	exp := 0
	for i != 0 && i%eb == 0 {
		i /= eb
		exp++
	}
	return i, exp
}

func formatExponent(v value.Value, base int64) string {
	if v.IsInteger() {
		eb := int64(2)
		marker := "p"
		if base == 10 {
			eb = 10
			marker = "e"
		}
		m, exp := decomposeInteger(v.MustInteger(), eb)
		return formatIntegerRadix(m, base) + marker + signedDecimal(exp)
	}
	f := v.MustReal()
	if base == 10 {
		return strconv.FormatFloat(f, 'e', -1, 64)
	}
	return formatRealRadixExp(f, base)
}

func bParse(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text string
	r.StartOverload()
	r.RequiredString(&text)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	t := strings.TrimSpace(text)
	if t == "" {
		return value.Value{}, errors.New(errors.ParseError, "std.numeric.parse: empty string")
	}
	hasPoint := strings.ContainsAny(t, ".")
	lower := strings.ToLower(t)
	neg := strings.HasPrefix(lower, "-")
	unsigned := strings.TrimPrefix(strings.TrimPrefix(lower, "-"), "+")

	var f float64
	var err error
	switch {
	case strings.HasPrefix(unsigned, "0x"):
		iv, perr := strconv.ParseInt(strings.TrimPrefix(unsigned, "0x"), 16, 64)
		if perr != nil {
			return value.Value{}, errors.New(errors.ParseError, "std.numeric.parse: invalid hex literal %q", text)
		}
		if neg {
			iv = -iv
		}
		return value.Int(iv), nil
	case strings.HasPrefix(unsigned, "0b"):
		iv, perr := strconv.ParseInt(strings.TrimPrefix(unsigned, "0b"), 2, 64)
		if perr != nil {
			return value.Value{}, errors.New(errors.ParseError, "std.numeric.parse: invalid binary literal %q", text)
		}
		if neg {
			iv = -iv
		}
		return value.Int(iv), nil
	default:
		if !hasPoint && !strings.ContainsAny(lower, "ep") {
			if iv, perr := strconv.ParseInt(t, 10, 64); perr == nil {
				return value.Int(iv), nil
			}
		}
		f, err = strconv.ParseFloat(t, 64)
		if err != nil {
			return value.Value{}, errors.New(errors.ParseError, "std.numeric.parse: invalid numeric literal %q", text)
		}
	}
	if !hasPoint && !strings.ContainsAny(lower, "ep") && f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64 {
		return value.Int(int64(f)), nil
	}
	return value.Real(f), nil
}

// --- binary pack / unpack -------------------------------------------------

func byteOrderPut(buf []byte, u uint64, n, bytesN int, be bool) {
	for i := 0; i < bytesN; i++ {
		shift := uint(i * 8)
		if be {
			shift = uint((bytesN - 1 - i) * 8)
		}
		buf[i] = byte(u >> shift)
	}
}

func byteOrderGet(buf []byte, bytesN int, be bool) uint64 {
	var u uint64
	for i := 0; i < bytesN; i++ {
		shift := uint(i * 8)
		if be {
			shift = uint((bytesN - 1 - i) * 8)
		}
		u |= uint64(buf[i]) << shift
	}
	return u
}

func integerElements(r *argreader.Reader) ([]int64, bool) {
	var scalar int64
	r.StartOverload()
	r.RequiredInteger(&scalar)
	if r.EndOverload() {
		return []int64{scalar}, true
	}
	var arr *value.Array
	r.StartOverload()
	r.RequiredArray(&arr)
	if r.EndOverload() {
		out := make([]int64, arr.Len())
		for i := range out {
			v := arr.At(i)
			if !v.IsInteger() {
				return nil, false
			}
			out[i] = v.MustInteger()
		}
		return out, true
	}
	return nil, false
}

func makePackInt(width int, be bool) binder.Target {
	bytesN := width / 8
	return func(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
		elems, ok := integerElements(r)
		if !ok {
			return value.Value{}, r.ThrowNoMatchingFunctionCall()
		}
		out := make([]byte, 0, len(elems)*bytesN)
		for _, v := range elems {
			buf := make([]byte, bytesN)
			byteOrderPut(buf, uint64(v), width, bytesN, be)
			out = append(out, buf...)
		}
		return value.Str(string(out)), nil
	}
}

func makeUnpackInt(width int, be bool) binder.Target {
	bytesN := width / 8
	return func(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
		var data string
		r.StartOverload()
		r.RequiredString(&data)
		if !r.EndOverload() {
			return value.Value{}, r.ThrowNoMatchingFunctionCall()
		}
		if len(data)%bytesN != 0 {
			return value.Value{}, errors.New(errors.RangeError, "unpack_i%d: length %d is not a multiple of %d", width, len(data), bytesN)
		}
		n := len(data) / bytesN
		out := make([]value.Value, n)
		for i := 0; i < n; i++ {
			u := byteOrderGet([]byte(data[i*bytesN:(i+1)*bytesN]), bytesN, be)
			out[i] = value.Int(signExtend(u, width))
		}
		return value.FromArray(value.NewArrayFrom(out)), nil
	}
}

func signExtend(u uint64, width int) int64 {
	if width >= 64 {
		return int64(u)
	}
	shift := uint(64 - width)
	return int64(u<<shift) >> shift
}

func realElements(r *argreader.Reader) ([]float64, bool) {
	var scalar float64
	r.StartOverload()
	r.RequiredReal(&scalar)
	if r.EndOverload() {
		return []float64{scalar}, true
	}
	var arr *value.Array
	r.StartOverload()
	r.RequiredArray(&arr)
	if r.EndOverload() {
		out := make([]float64, arr.Len())
		for i := range out {
			v := arr.At(i)
			if !v.IsReal() && !v.IsInteger() {
				return nil, false
			}
			f, _ := v.AsRealLax()
			out[i] = f
		}
		return out, true
	}
	return nil, false
}

func makePackFloat(width int, be bool) binder.Target {
	return func(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
		elems, ok := realElements(r)
		if !ok {
			return value.Value{}, r.ThrowNoMatchingFunctionCall()
		}
		bytesN := width / 8
		out := make([]byte, 0, len(elems)*bytesN)
		for _, f := range elems {
			var u uint64
			if width == 32 {
				u = uint64(math.Float32bits(float32(f)))
			} else {
				u = math.Float64bits(f)
			}
			buf := make([]byte, bytesN)
			byteOrderPut(buf, u, width, bytesN, be)
			out = append(out, buf...)
		}
		return value.Str(string(out)), nil
	}
}

func makeUnpackFloat(width int, be bool) binder.Target {
	bytesN := width / 8
	return func(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
		var data string
		r.StartOverload()
		r.RequiredString(&data)
		if !r.EndOverload() {
			return value.Value{}, r.ThrowNoMatchingFunctionCall()
		}
		if len(data)%bytesN != 0 {
			return value.Value{}, errors.New(errors.RangeError, "unpack_f%d: length %d is not a multiple of %d", width, len(data), bytesN)
		}
		n := len(data) / bytesN
		out := make([]value.Value, n)
		for i := 0; i < n; i++ {
			u := byteOrderGet([]byte(data[i*bytesN:(i+1)*bytesN]), bytesN, be)
			if width == 32 {
				out[i] = value.Real(float64(math.Float32frombits(uint32(u))))
			} else {
				out[i] = value.Real(math.Float64frombits(u))
			}
		}
		return value.FromArray(value.NewArrayFrom(out)), nil
	}
}
