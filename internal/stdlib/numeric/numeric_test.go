package numeric

import (
	"testing"

	"asteria/internal/argreader"
	"asteria/internal/value"
)

func callWith(t *testing.T, target string, args ...value.Value) (value.Value, error) {
	t.Helper()
	var stack value.Stack
	for _, a := range args {
		stack.Push().SetTemporary(a)
	}
	r := argreader.New(target, &stack)
	var self value.Reference
	fn, ok := bindings[target]
	if !ok {
		t.Fatalf("no binding registered for %s", target)
	}
	return fn(nil, &self, r)
}

// bindings mirrors createBindings' target table so tests can invoke a
// binding by name without standing up a full Global_Context.
var bindings = map[string]func(value.GlobalContext, *value.Reference, *argreader.Reader) (value.Value, error){
	"pack_i8_be":    makePackInt(8, true),
	"pack_i8_le":    makePackInt(8, false),
	"unpack_i8_be":  makeUnpackInt(8, true),
	"unpack_i8_le":  makeUnpackInt(8, false),
	"pack_i16_be":   makePackInt(16, true),
	"pack_i16_le":   makePackInt(16, false),
	"unpack_i16_be": makeUnpackInt(16, true),
	"unpack_i16_le": makeUnpackInt(16, false),
	"pack_i32_be":   makePackInt(32, true),
	"pack_i32_le":   makePackInt(32, false),
	"unpack_i32_be": makeUnpackInt(32, true),
	"unpack_i32_le": makeUnpackInt(32, false),
	"pack_i64_be":   makePackInt(64, true),
	"pack_i64_le":   makePackInt(64, false),
	"unpack_i64_be": makeUnpackInt(64, true),
	"unpack_i64_le": makeUnpackInt(64, false),
	"pack_f32_be":   makePackFloat(32, true),
	"pack_f32_le":   makePackFloat(32, false),
	"unpack_f32_be": makeUnpackFloat(32, true),
	"unpack_f32_le": makeUnpackFloat(32, false),
	"pack_f64_be":   makePackFloat(64, true),
	"pack_f64_le":   makePackFloat(64, false),
	"unpack_f64_be": makeUnpackFloat(64, true),
	"unpack_f64_le": makeUnpackFloat(64, false),
	"format":        bFormat,
	"parse":         bParse,
	"clamp":         bClamp,
	"rotl":          makeRot(true),
	"rotr":          makeRot(false),
}

// unpack_iN_E(pack_iN_E(xs)) == xs, modulo sign
// extension to 64 bits for widths below 64.
func TestIntegerPackUnpackRoundTrip(t *testing.T) {
	widths := []int{8, 16, 32, 64}
	endians := []string{"be", "le"}
	xs := value.NewArrayFrom([]value.Value{value.Int(-1), value.Int(0), value.Int(42), value.Int(-100)})

	for _, w := range widths {
		for _, e := range endians {
			packed, err := callWith(t, "pack_i"+itoa(w)+"_"+e, value.FromArray(xs))
			if err != nil {
				t.Fatalf("pack_i%d_%s: %v", w, e, err)
			}
			unpacked, err := callWith(t, "unpack_i"+itoa(w)+"_"+e, packed)
			if err != nil {
				t.Fatalf("unpack_i%d_%s: %v", w, e, err)
			}
			arr := unpacked.MustArray()
			if arr.Len() != xs.Len() {
				t.Fatalf("i%d_%s: got %d elements, want %d", w, e, arr.Len(), xs.Len())
			}
			for i := 0; i < xs.Len(); i++ {
				if arr.At(i).MustInteger() != xs.At(i).MustInteger() {
					t.Errorf("i%d_%s[%d]: got %d, want %d", w, e, i, arr.At(i).MustInteger(), xs.At(i).MustInteger())
				}
			}
		}
	}
}

func TestFloatPackUnpackRoundTrip(t *testing.T) {
	xs := value.NewArrayFrom([]value.Value{value.Real(0), value.Real(1.5), value.Real(-2.25)})
	for _, w := range []int{32, 64} {
		for _, e := range []string{"be", "le"} {
			packed, err := callWith(t, "pack_f"+itoa(w)+"_"+e, value.FromArray(xs))
			if err != nil {
				t.Fatalf("pack_f%d_%s: %v", w, e, err)
			}
			unpacked, err := callWith(t, "unpack_f"+itoa(w)+"_"+e, packed)
			if err != nil {
				t.Fatalf("unpack_f%d_%s: %v", w, e, err)
			}
			arr := unpacked.MustArray()
			for i := 0; i < xs.Len(); i++ {
				if arr.At(i).MustReal() != xs.At(i).MustReal() {
					t.Errorf("f%d_%s[%d]: got %v, want %v", w, e, i, arr.At(i).MustReal(), xs.At(i).MustReal())
				}
			}
		}
	}
}

func TestFormatParseRoundTripsIntegers(t *testing.T) {
	formatted, err := callWith(t, "format", value.Int(255))
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	parsed, err := callWith(t, "parse", formatted)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !parsed.IsInteger() || parsed.MustInteger() != 255 {
		t.Errorf("parse(format(255)) = %v, want integer 255", parsed)
	}
}

func TestParseHexAndBinaryLiterals(t *testing.T) {
	v, err := callWith(t, "parse", value.Str("0xFF"))
	if err != nil {
		t.Fatalf("parse hex: %v", err)
	}
	if !v.IsInteger() || v.MustInteger() != 255 {
		t.Errorf("parse(\"0xFF\") = %v, want 255", v)
	}
	v, err = callWith(t, "parse", value.Str("0b101"))
	if err != nil {
		t.Fatalf("parse binary: %v", err)
	}
	if !v.IsInteger() || v.MustInteger() != 5 {
		t.Errorf("parse(\"0b101\") = %v, want 5", v)
	}
}

func TestFormatRadixNotation(t *testing.T) {
	cases := []struct {
		v    value.Value
		args []value.Value
		want string
	}{
		{value.Int(255), []value.Value{value.Int(16)}, "0xFF"},
		{value.Int(-6), []value.Value{value.Int(2)}, "-0b110"},
		{value.Int(42), nil, "42"},
		{value.Int(48), []value.Value{value.Int(16), value.Int(2)}, "0x3p+4"},
		{value.Int(300), []value.Value{value.Int(10), value.Int(10)}, "3e+2"},
		{value.Real(2.5), []value.Value{value.Int(2)}, "0b10.1"},
		{value.Real(0.5), []value.Value{value.Int(16)}, "0x0.8"},
		{value.Real(10), []value.Value{value.Int(2), value.Int(2)}, "0b1.01p+3"},
	}
	for _, c := range cases {
		args := append([]value.Value{c.v}, c.args...)
		got, err := callWith(t, "format", args...)
		if err != nil {
			t.Errorf("format(%v, %v): %v", c.v, c.args, err)
			continue
		}
		if got.MustString() != c.want {
			t.Errorf("format(%v, %v) = %q, want %q", c.v, c.args, got.MustString(), c.want)
		}
	}
}

func TestFormatRejectsBadBaseCombination(t *testing.T) {
	if _, err := callWith(t, "format", value.Int(1), value.Int(8)); err == nil {
		t.Fatal("base 8 must be rejected")
	}
	if _, err := callWith(t, "format", value.Int(1), value.Int(16), value.Int(10)); err == nil {
		t.Fatal("base 16 with ebase 10 must be rejected")
	}
}

func TestRotlRotrModularWidth(t *testing.T) {
	v, err := callWith(t, "rotl", value.Int(0b1001), value.Int(1), value.Int(4))
	if err != nil {
		t.Fatalf("rotl: %v", err)
	}
	if v.MustInteger() != 0b0011 {
		t.Errorf("rotl(0b1001, 1, 4) = %#b, want 0b0011", v.MustInteger())
	}
	v, err = callWith(t, "rotr", value.Int(0b1001), value.Int(1), value.Int(4))
	if err != nil {
		t.Fatalf("rotr: %v", err)
	}
	if v.MustInteger() != 0b1100 {
		t.Errorf("rotr(0b1001, 1, 4) = %#b, want 0b1100", v.MustInteger())
	}
	if _, err := callWith(t, "rotl", value.Int(1), value.Int(1), value.Int(65)); err == nil {
		t.Fatal("a rotation width beyond 64 must be rejected")
	}
}

func TestClampUsesPartialOrder(t *testing.T) {
	v, err := callWith(t, "clamp", value.Int(5), value.Int(0), value.Int(10))
	if err != nil {
		t.Fatalf("clamp: %v", err)
	}
	if v.MustInteger() != 5 {
		t.Errorf("clamp(5, 0, 10) = %v, want 5", v)
	}
	v, err = callWith(t, "clamp", value.Int(-5), value.Int(0), value.Int(10))
	if err != nil {
		t.Fatalf("clamp: %v", err)
	}
	if v.MustInteger() != 0 {
		t.Errorf("clamp(-5, 0, 10) = %v, want 0", v)
	}
}
