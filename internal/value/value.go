// Package value implements Asteria's tagged runtime value: the nine-variant
// sum type every host binding reads and writes, plus the comparison rules
// the rest of the standard library depends on.
package value

import (
	"fmt"
	"math"
)

// Type is the tag of a Value. Exactly one tag is active at a time.
type Type int

const (
	TNull Type = iota
	TBoolean
	TInteger
	TReal
	TString
	TOpaque
	TFunction
	TArray
	TObject
)

func (t Type) String() string {
	switch t {
	case TNull:
		return "null"
	case TBoolean:
		return "boolean"
	case TInteger:
		return "integer"
	case TReal:
		return "real"
	case TString:
		return "string"
	case TOpaque:
		return "opaque"
	case TFunction:
		return "function"
	case TArray:
		return "array"
	case TObject:
		return "object"
	default:
		return "unknown"
	}
}

// Opaque is a host-defined value with native state: a hasher, a compression
// stream, a compiled regular expression. It carries its own cloning protocol
// since Asteria's copy semantics demand an independent deep clone on copy.
type Opaque interface {
	Describe() string
	Clone() Opaque
	CollectVariables(collect func(*Variable))
}

// Function is a shared callable host or script object.
type Function interface {
	Describe() string
	Invoke(self *Reference, global GlobalContext, stack *Stack) error
}

// GlobalContext is the minimal surface a Function needs from the owning
// interpreter instance. The concrete type lives in package runtime; value
// only needs the interface to avoid an import cycle.
type GlobalContext interface {
	Recursion() error
	Random() float64
}

// Value is a tagged union of the nine Asteria variants. The zero Value is
// null. Heap variants (string, opaque, function, array, object) are
// logically shared: copying a Value copies a handle, and mutating one
// handle is observable through every other handle that shares it.
type Value struct {
	tag Type
	b   bool
	i   int64
	r   float64
	s   string
	o   Opaque
	f   Function
	a   *Array
	ob  *Object
}

func Null() Value                { return Value{tag: TNull} }
func Bool(b bool) Value          { return Value{tag: TBoolean, b: b} }
func Int(i int64) Value          { return Value{tag: TInteger, i: i} }
func Real(r float64) Value       { return Value{tag: TReal, r: r} }
func Str(s string) Value         { return Value{tag: TString, s: s} }
func FromOpaque(o Opaque) Value  { return Value{tag: TOpaque, o: o} }
func FromFunction(f Function) Value { return Value{tag: TFunction, f: f} }
func FromArray(a *Array) Value   { return Value{tag: TArray, a: a} }
func FromObject(o *Object) Value { return Value{tag: TObject, ob: o} }

func (v Value) Type() Type { return v.tag }

func (v Value) IsNull() bool     { return v.tag == TNull }
func (v Value) IsBoolean() bool  { return v.tag == TBoolean }
func (v Value) IsInteger() bool  { return v.tag == TInteger }
func (v Value) IsReal() bool     { return v.tag == TReal }
func (v Value) IsString() bool   { return v.tag == TString }
func (v Value) IsOpaque() bool   { return v.tag == TOpaque }
func (v Value) IsFunction() bool { return v.tag == TFunction }
func (v Value) IsArray() bool    { return v.tag == TArray }
func (v Value) IsObject() bool   { return v.tag == TObject }

// IsNumeric reports whether the value is integer or real, the two tags that
// compare numerically against each other.
func (v Value) IsNumeric() bool { return v.tag == TInteger || v.tag == TReal }

// TypeMismatch is returned by the AsX accessors when called on the wrong tag.
// The Argument Reader never lets this surface to script code; it is the
// defensive error host functions see when a precondition is violated.
type TypeMismatch struct {
	Want Type
	Got  Type
}

func (e *TypeMismatch) Error() string {
	return fmt.Sprintf("type mismatch: expected %s, got %s", e.Want, e.Got)
}

func (v Value) AsBoolean() (bool, error) {
	if v.tag != TBoolean {
		return false, &TypeMismatch{TBoolean, v.tag}
	}
	return v.b, nil
}

func (v Value) AsInteger() (int64, error) {
	if v.tag != TInteger {
		return 0, &TypeMismatch{TInteger, v.tag}
	}
	return v.i, nil
}

func (v Value) AsReal() (float64, error) {
	if v.tag != TReal {
		return 0, &TypeMismatch{TReal, v.tag}
	}
	return v.r, nil
}

func (v Value) AsString() (string, error) {
	if v.tag != TString {
		return "", &TypeMismatch{TString, v.tag}
	}
	return v.s, nil
}

func (v Value) AsOpaque() (Opaque, error) {
	if v.tag != TOpaque {
		return nil, &TypeMismatch{TOpaque, v.tag}
	}
	return v.o, nil
}

func (v Value) AsFunction() (Function, error) {
	if v.tag != TFunction {
		return nil, &TypeMismatch{TFunction, v.tag}
	}
	return v.f, nil
}

func (v Value) AsArray() (*Array, error) {
	if v.tag != TArray {
		return nil, &TypeMismatch{TArray, v.tag}
	}
	return v.a, nil
}

func (v Value) AsObject() (*Object, error) {
	if v.tag != TObject {
		return nil, &TypeMismatch{TObject, v.tag}
	}
	return v.ob, nil
}

// Unchecked accessors: used internally once a tag has already been verified
// (e.g. by the argument reader), to avoid threading an error nobody expects.
func (v Value) MustBoolean() bool      { b, _ := v.AsBoolean(); return b }
func (v Value) MustInteger() int64     { i, _ := v.AsInteger(); return i }
func (v Value) MustReal() float64      { r, _ := v.AsReal(); return r }
func (v Value) MustString() string     { s, _ := v.AsString(); return s }
func (v Value) MustOpaque() Opaque     { o, _ := v.AsOpaque(); return o }
func (v Value) MustFunction() Function { f, _ := v.AsFunction(); return f }
func (v Value) MustArray() *Array      { a, _ := v.AsArray(); return a }
func (v Value) MustObject() *Object    { o, _ := v.AsObject(); return o }

// AsRealLax coerces integer or real to a float64, the numeric promotion the
// comparison and arithmetic helpers use throughout the library.
func (v Value) AsRealLax() (float64, bool) {
	switch v.tag {
	case TInteger:
		return float64(v.i), true
	case TReal:
		return v.r, true
	default:
		return 0, false
	}
}

// Test implements script truthiness: null and false are falsy, as are zero
// integer/real, an empty string, empty array and empty object; everything
// else is truthy.
func (v Value) Test() bool {
	switch v.tag {
	case TNull:
		return false
	case TBoolean:
		return v.b
	case TInteger:
		return v.i != 0
	case TReal:
		return v.r != 0
	case TString:
		return len(v.s) != 0
	case TArray:
		return v.a != nil && v.a.Len() != 0
	case TObject:
		return v.ob != nil && v.ob.Len() != 0
	default:
		return true
	}
}

// Clone returns an independent deep copy. Scalars and strings are copied
// trivially (Go strings are already immutable and safely shared); heap
// containers are deep-cloned recursively so the result shares no storage
// with the original.
func (v Value) Clone() Value {
	switch v.tag {
	case TArray:
		return FromArray(v.a.Clone())
	case TObject:
		return FromObject(v.ob.Clone())
	case TOpaque:
		if v.o == nil {
			return v
		}
		return FromOpaque(v.o.Clone())
	default:
		return v
	}
}

// Compare is the result of a three/four-way comparison.
type Compare int

const (
	CompareLess Compare = iota
	CompareEqual
	CompareGreater
	CompareUnordered
)

// typeRank orders mismatched, non-numeric tags for CompareTotal.
func typeRank(t Type) int {
	switch t {
	case TNull:
		return 0
	case TBoolean:
		return 1
	case TInteger, TReal:
		return 2
	case TString:
		return 3
	case TOpaque:
		return 4
	case TFunction:
		return 5
	case TArray:
		return 6
	case TObject:
		return 7
	default:
		return 8
	}
}

// CompareTotal orders every pair of values except a NaN against a number:
// two quiet NaNs compare equal, a NaN against any other number (including a
// signaling NaN) is Unordered, integer and real compare numerically, and
// mismatched non-numeric tags are ordered by tag rank.
func (v Value) CompareTotal(other Value) Compare {
	if v.IsNumeric() && other.IsNumeric() {
		return compareNumeric(v, other, true)
	}
	if v.tag != other.tag {
		lr, rr := typeRank(v.tag), typeRank(other.tag)
		if lr < rr {
			return CompareLess
		}
		return CompareGreater
	}
	return compareSameTag(v, other, true)
}

// ComparePartial is like CompareTotal, except any NaN participation and any
// cross-type comparison yield Unordered instead of a definite rank.
func (v Value) ComparePartial(other Value) Compare {
	if v.IsNumeric() && other.IsNumeric() {
		return compareNumeric(v, other, false)
	}
	if v.tag != other.tag {
		return CompareUnordered
	}
	return compareSameTag(v, other, false)
}

func compareNumeric(a, b Value, total bool) Compare {
	if a.tag == TReal && math.IsNaN(a.r) {
		if total && b.tag == TReal && math.IsNaN(b.r) && math.Float64bits(a.r)&math.Float64bits(b.r)&(1<<51) != 0 {
			return CompareEqual
		}
		return CompareUnordered
	}
	if b.tag == TReal && math.IsNaN(b.r) {
		return CompareUnordered
	}
	if a.tag == TInteger && b.tag == TInteger {
		switch {
		case a.i < b.i:
			return CompareLess
		case a.i > b.i:
			return CompareGreater
		default:
			return CompareEqual
		}
	}
	af, _ := a.AsRealLax()
	bf, _ := b.AsRealLax()
	switch {
	case af < bf:
		return CompareLess
	case af > bf:
		return CompareGreater
	default:
		return CompareEqual
	}
}

func compareSameTag(a, b Value, total bool) Compare {
	switch a.tag {
	case TNull:
		return CompareEqual
	case TBoolean:
		if a.b == b.b {
			return CompareEqual
		}
		if !a.b {
			return CompareLess
		}
		return CompareGreater
	case TString:
		switch {
		case a.s < b.s:
			return CompareLess
		case a.s > b.s:
			return CompareGreater
		default:
			return CompareEqual
		}
	case TArray:
		return compareArrays(a.a, b.a, total)
	default:
		// opaque, function, object: compared by identity only.
		if sameHandle(a, b) {
			return CompareEqual
		}
		if !total {
			return CompareUnordered
		}
		// Total order still needs every pair ordered; break ties on handle
		// identity so the order is stable but otherwise arbitrary.
		if handleLess(a, b) {
			return CompareLess
		}
		return CompareGreater
	}
}

func compareArrays(a, b *Array, total bool) Compare {
	if a == b {
		return CompareEqual
	}
	al, bl := 0, 0
	if a != nil {
		al = a.Len()
	}
	if b != nil {
		bl = b.Len()
	}
	n := al
	if bl < n {
		n = bl
	}
	for i := 0; i < n; i++ {
		var c Compare
		if total {
			c = a.At(i).CompareTotal(b.At(i))
		} else {
			c = a.At(i).ComparePartial(b.At(i))
		}
		if c != CompareEqual {
			return c
		}
	}
	switch {
	case al < bl:
		return CompareLess
	case al > bl:
		return CompareGreater
	default:
		return CompareEqual
	}
}

func handleLess(a, b Value) bool {
	return fmt.Sprintf("%p", handlePtr(a)) < fmt.Sprintf("%p", handlePtr(b))
}

func handlePtr(v Value) any {
	switch v.tag {
	case TOpaque:
		return v.o
	case TFunction:
		return v.f
	case TObject:
		return v.ob
	default:
		return nil
	}
}

func sameHandle(a, b Value) bool {
	switch a.tag {
	case TOpaque:
		return a.o == b.o
	case TFunction:
		return a.f == b.f
	case TArray:
		return a.a == b.a
	case TObject:
		return a.ob == b.ob
	default:
		return false
	}
}

// DescribeType returns the human-readable type name used in error messages
// such as the Argument Reader's "no matching function call" diagnostics.
func DescribeType(t Type) string { return t.String() }
