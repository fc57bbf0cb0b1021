package argreader

import (
	"testing"

	"asteria/internal/value"
)

func stackOf(vs ...value.Value) *value.Stack {
	var s value.Stack
	for _, v := range vs {
		s.Push().SetTemporary(v)
	}
	return &s
}

func TestSingleOverloadExactMatch(t *testing.T) {
	r := New("std.test.f", stackOf(value.Int(1), value.Str("hi")))
	var n int64
	var text string
	r.StartOverload()
	r.RequiredInteger(&n)
	r.RequiredString(&text)
	if !r.EndOverload() {
		t.Fatal("expected overload to match exactly")
	}
	if n != 1 || text != "hi" {
		t.Errorf("got n=%d text=%q", n, text)
	}
}

func TestRequiredRejectsNull(t *testing.T) {
	r := New("std.test.f", stackOf(value.Null()))
	var n int64
	r.StartOverload()
	r.RequiredInteger(&n)
	if r.EndOverload() {
		t.Fatal("a null argument must not satisfy a required integer parameter")
	}
}

func TestOptionalAcceptsNullAsAbsent(t *testing.T) {
	r := New("std.test.f", stackOf(value.Null()))
	var n int64
	var has bool
	r.StartOverload()
	r.OptionalInteger(&n, &has)
	if !r.EndOverload() {
		t.Fatal("optional parameter must accept a null argument as absent")
	}
	if has {
		t.Error("has must be false when the argument was null")
	}
}

func TestExtraArgumentsFailEndOverload(t *testing.T) {
	r := New("std.test.f", stackOf(value.Int(1), value.Int(2)))
	var n int64
	r.StartOverload()
	r.RequiredInteger(&n)
	if r.EndOverload() {
		t.Fatal("a declared single-parameter overload must not match two arguments")
	}
}

func TestSaveLoadStateSharesPrefix(t *testing.T) {
	r := New("std.test.f", stackOf(value.Int(1), value.Str("x")))
	var n int64
	r.StartOverload()
	r.RequiredInteger(&n)
	r.SaveState(0)

	var text string
	r.RequiredString(&text)
	if !r.EndOverload() {
		t.Fatal("first overload (integer, string) must match")
	}
	if n != 1 || text != "x" {
		t.Errorf("got n=%d text=%q", n, text)
	}

	// A second overload attempt must explicitly StartOverload even after
	// LoadState; LoadState alone only restores parsing position, it does
	// not reset match/finish state for a brand new attempt.
	r.LoadState(0)
	r.StartOverload()
	r.LoadState(0)
	var second int64
	r.RequiredInteger(&second)
	if r.EndOverload() {
		t.Fatal("(integer, integer) must not match when the second argument is a string")
	}
}

func TestVariadicTailCollectsExtras(t *testing.T) {
	r := New("std.test.f", stackOf(value.Int(1), value.Int(2), value.Int(3)))
	var first int64
	r.StartOverload()
	r.RequiredInteger(&first)
	extras, ok := r.EndOverloadVariadicValues()
	if !ok {
		t.Fatal("variadic tail must accept any number of trailing arguments")
	}
	if len(extras) != 2 {
		t.Fatalf("expected 2 trailing values, got %d", len(extras))
	}
	if extras[0].MustInteger() != 2 || extras[1].MustInteger() != 3 {
		t.Errorf("unexpected trailing values: %v", extras)
	}
}

func TestThrowNoMatchingFunctionCallListsOverloads(t *testing.T) {
	r := New("std.test.f", stackOf(value.Str("nope")))
	var n int64
	r.StartOverload()
	r.RequiredInteger(&n)
	if r.EndOverload() {
		t.Fatal("expected overload to fail for a type mismatch")
	}
	err := r.ThrowNoMatchingFunctionCall()
	if err == nil {
		t.Fatal("expected a non-matching-call error")
	}
	msg := err.Error()
	if !contains(msg, "std.test.f") {
		t.Errorf("error message must name the function: %q", msg)
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
