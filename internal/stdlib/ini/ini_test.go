package ini

import (
	"testing"

	"asteria/internal/argreader"
	"asteria/internal/value"
)

func call(t *testing.T, target binder1, args ...value.Value) (value.Value, error) {
	t.Helper()
	var stack value.Stack
	for _, a := range args {
		stack.Push().SetTemporary(a)
	}
	r := argreader.New("std.ini.test", &stack)
	var self value.Reference
	return target(nil, &self, r)
}

type binder1 = func(value.GlobalContext, *value.Reference, *argreader.Reader) (value.Value, error)

// Parsing "a=1\r\n[s]\r\nb=2\r\n" yields {a:"1", s:{b:"2"}}, and
// formatting that value again yields the same text.
func TestIniRoundTrip(t *testing.T) {
	src := "a=1\r\n[s]\r\nb=2\r\n"
	parsed, err := call(t, bParse, value.Str(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	obj := parsed.MustObject()
	a, _ := obj.Get("a")
	if a.MustString() != "1" {
		t.Errorf("a = %q, want \"1\"", a.MustString())
	}
	sv, ok := obj.Get("s")
	if !ok || !sv.IsObject() {
		t.Fatalf("expected section s to be an object, got %v", sv)
	}
	b, _ := sv.MustObject().Get("b")
	if b.MustString() != "2" {
		t.Errorf("s.b = %q, want \"2\"", b.MustString())
	}

	formatted, err := call(t, bFormat, parsed)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if formatted.MustString() != src {
		t.Errorf("format(parse(src)) = %q, want %q", formatted.MustString(), src)
	}
}

func TestIniRejectsKeyWithSpace(t *testing.T) {
	if _, err := call(t, bParse, value.Str("a b=1\n")); err == nil {
		t.Fatal("a key containing a space must be a parse error")
	}
}

func TestIniStripsBOM(t *testing.T) {
	src := "\ufeffa=1\n"
	parsed, err := call(t, bParse, value.Str(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	a, ok := parsed.MustObject().Get("a")
	if !ok || a.MustString() != "1" {
		t.Errorf("BOM-prefixed input must parse a=1, got %v", parsed)
	}
}
