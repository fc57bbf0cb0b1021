package chrono

import (
	"testing"

	"asteria/internal/argreader"
	"asteria/internal/value"
)

func call(t *testing.T, target func(value.GlobalContext, *value.Reference, *argreader.Reader) (value.Value, error), args ...value.Value) (value.Value, error) {
	t.Helper()
	var stack value.Stack
	for _, a := range args {
		stack.Push().SetTemporary(a)
	}
	r := argreader.New("std.chrono.test", &stack)
	var self value.Reference
	return target(nil, &self, r)
}

func TestFormatParseRoundTripUTC(t *testing.T) {
	for _, ms := range []int64{0, 1_700_000_000_000, 1_700_000_000_123} {
		formatted, err := call(t, bFormat, value.Int(ms), value.Bool(true))
		if err != nil {
			t.Fatalf("format(%d): %v", ms, err)
		}
		parsed, err := call(t, bParse, formatted)
		if err != nil {
			t.Fatalf("parse(%q): %v", formatted.MustString(), err)
		}
		if parsed.MustInteger() != ms {
			t.Errorf("parse(format(%d)) = %d via %q", ms, parsed.MustInteger(), formatted.MustString())
		}
	}
}

func TestParseExplicitOffset(t *testing.T) {
	utc, err := call(t, bParse, value.Str("2023-11-14 22:13:20 UTC"))
	if err != nil {
		t.Fatalf("parse UTC: %v", err)
	}
	offset, err := call(t, bParse, value.Str("2023-11-14 23:13:20 +0100"))
	if err != nil {
		t.Fatalf("parse offset: %v", err)
	}
	if utc.MustInteger() != offset.MustInteger() {
		t.Errorf("+0100 wall clock one hour ahead must equal the UTC instant: %d vs %d",
			utc.MustInteger(), offset.MustInteger())
	}
}

func TestParseMillisecondFraction(t *testing.T) {
	base, err := call(t, bParse, value.Str("2023-11-14 22:13:20 UTC"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	frac, err := call(t, bParse, value.Str("2023-11-14 22:13:20.5 UTC"))
	if err != nil {
		t.Fatalf("parse fraction: %v", err)
	}
	if frac.MustInteger()-base.MustInteger() != 500 {
		t.Errorf(".5 must add 500ms, got %d", frac.MustInteger()-base.MustInteger())
	}
}

func TestParseRejectsGarbageSuffix(t *testing.T) {
	if _, err := call(t, bParse, value.Str("2023-11-14 22:13:20 PDT")); err == nil {
		t.Fatal("an unrecognized timezone suffix must be a parse error")
	}
	if _, err := call(t, bParse, value.Str("not a timestamp")); err == nil {
		t.Fatal("malformed input must be a parse error")
	}
}

func TestSteadyNowIsMonotonicNonNegative(t *testing.T) {
	a, err := call(t, bSteadyNow)
	if err != nil {
		t.Fatalf("steady_now: %v", err)
	}
	b, err := call(t, bSteadyNow)
	if err != nil {
		t.Fatalf("steady_now: %v", err)
	}
	if b.MustInteger() < a.MustInteger() {
		t.Errorf("steady clock went backwards: %d then %d", a.MustInteger(), b.MustInteger())
	}
}
