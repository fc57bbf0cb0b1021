package value

import (
	"math"
	"testing"
)

func TestCompareTotalNumeric(t *testing.T) {
	cases := []struct {
		a, b Value
		want Compare
	}{
		{Int(1), Int(2), CompareLess},
		{Int(2), Int(2), CompareEqual},
		{Real(1.0), Int(1), CompareEqual},
		{Int(3), Real(2.5), CompareGreater},
		{Real(math.NaN()), Real(math.NaN()), CompareEqual},
		{Real(math.NaN()), Int(1), CompareUnordered},
	}
	for _, c := range cases {
		got := c.a.CompareTotal(c.b)
		if got != c.want {
			t.Errorf("CompareTotal(%v, %v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestComparePartialNaNAndCrossType(t *testing.T) {
	if Real(math.NaN()).ComparePartial(Real(math.NaN())) != CompareUnordered {
		t.Error("NaN vs NaN under partial compare must be unordered")
	}
	if Int(1).ComparePartial(Str("1")) != CompareUnordered {
		t.Error("cross-type partial compare must be unordered")
	}
	if Int(1).CompareTotal(Str("1")) == CompareUnordered {
		t.Error("cross-type total compare must never be unordered")
	}
}

func TestCompareTotalTagRank(t *testing.T) {
	if Null().CompareTotal(Bool(false)) != CompareLess {
		t.Error("null must rank below boolean under total order")
	}
	if Str("a").CompareTotal(Int(1)) != CompareGreater {
		t.Error("string must rank above numeric under total order")
	}
}

func TestTest(t *testing.T) {
	cases := []struct {
		v    Value
		want bool
	}{
		{Null(), false},
		{Bool(false), false},
		{Bool(true), true},
		{Int(0), false},
		{Int(1), true},
		{Real(0), false},
		{Str(""), false},
		{Str("x"), true},
		{FromArray(NewArrayFrom(nil)), false},
		{FromArray(NewArrayFrom([]Value{Int(1)})), true},
	}
	for _, c := range cases {
		if got := c.v.Test(); got != c.want {
			t.Errorf("Test(%#v) = %v, want %v", c.v, got, c.want)
		}
	}
}

func TestCloneDeepCopiesContainers(t *testing.T) {
	inner := NewArrayFrom([]Value{Int(1), Int(2)})
	outer := FromArray(inner)
	clone := outer.Clone()

	clone.MustArray().Set(0, Int(99))
	if inner.At(0).MustInteger() != 1 {
		t.Error("Clone must not share storage with the original array")
	}
}

func TestAsAccessorsTypeMismatch(t *testing.T) {
	_, err := Str("x").AsInteger()
	if err == nil {
		t.Fatal("expected a type-mismatch error reading an integer out of a string value")
	}
	var mismatch *TypeMismatch
	if tm, ok := err.(*TypeMismatch); !ok {
		t.Fatalf("expected *TypeMismatch, got %T", err)
	} else {
		mismatch = tm
	}
	if mismatch.Want != TInteger || mismatch.Got != TString {
		t.Errorf("unexpected mismatch fields: %+v", mismatch)
	}
}

func TestArrayCompareLexicographic(t *testing.T) {
	a := FromArray(NewArrayFrom([]Value{Int(1), Int(2)}))
	b := FromArray(NewArrayFrom([]Value{Int(1), Int(3)}))
	if a.CompareTotal(b) != CompareLess {
		t.Error("shorter-prefix-equal arrays must compare by the first differing element")
	}
	c := FromArray(NewArrayFrom([]Value{Int(1)}))
	if c.CompareTotal(a) != CompareLess {
		t.Error("a strict prefix must compare less than its extension")
	}
}
