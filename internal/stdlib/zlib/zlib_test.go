package zlib

import (
	"testing"

	"asteria/internal/argreader"
	"asteria/internal/value"
)

func callZlib(t *testing.T, target func(value.GlobalContext, *value.Reference, *argreader.Reader) (value.Value, error), args ...value.Value) value.Value {
	t.Helper()
	var stack value.Stack
	for _, a := range args {
		stack.Push().SetTemporary(a)
	}
	r := argreader.New("std.zlib.test", &stack)
	var self value.Reference
	v, err := target(nil, &self, r)
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	return v
}

// For every framing and level, inflate(deflate(s, L))
// reproduces s exactly.
func TestDeflateInflateRoundTrip(t *testing.T) {
	payload := "the quick brown fox jumps over the lazy dog, repeated. " +
		"the quick brown fox jumps over the lazy dog, repeated."
	for _, framing := range []string{"raw", "deflate", "gzip"} {
		for level := int64(0); level <= 9; level++ {
			compressed := callZlib(t, bDeflateOneshot, value.Str(framing), value.Str(payload), value.Int(level))
			decompressed := callZlib(t, bInflateOneshot, value.Str(framing), compressed)
			if decompressed.MustString() != payload {
				t.Errorf("framing=%s level=%d: round trip mismatch: got %q", framing, level, decompressed.MustString())
			}
		}
	}
}

func TestDeflateInflateEmptyInput(t *testing.T) {
	for _, framing := range []string{"raw", "deflate", "gzip"} {
		compressed := callZlib(t, bDeflateOneshot, value.Str(framing), value.Str(""))
		decompressed := callZlib(t, bInflateOneshot, value.Str(framing), compressed)
		if decompressed.MustString() != "" {
			t.Errorf("framing=%s: round trip of empty input produced %q", framing, decompressed.MustString())
		}
	}
}

func TestStreamingDeflatorInflatorRoundTrip(t *testing.T) {
	dv := callZlib(t, bNewDeflator, value.Str("deflate"))
	deflatorHandle, err := dv.AsOpaque()
	if err != nil {
		t.Fatalf("deflator: %v", err)
	}

	var out string
	out += callZlib(t, bDeflatorUpdate, value.FromOpaque(deflatorHandle), value.Str("chunk one ")).MustString()
	out += callZlib(t, bDeflatorUpdate, value.FromOpaque(deflatorHandle), value.Str("chunk two")).MustString()
	out += callZlib(t, bDeflatorFinish, value.FromOpaque(deflatorHandle)).MustString()

	iv := callZlib(t, bNewInflator, value.Str("deflate"))
	inflatorHandle, err := iv.AsOpaque()
	if err != nil {
		t.Fatalf("inflator: %v", err)
	}
	got := callZlib(t, bInflatorUpdate, value.FromOpaque(inflatorHandle), value.Str(out)).MustString()
	got += callZlib(t, bInflatorFinish, value.FromOpaque(inflatorHandle)).MustString()

	if got != "chunk one chunk two" {
		t.Errorf("streaming round trip = %q, want %q", got, "chunk one chunk two")
	}
}
