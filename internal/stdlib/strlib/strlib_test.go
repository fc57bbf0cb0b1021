package strlib

import (
	"testing"

	"asteria/internal/argreader"
	"asteria/internal/value"
)

func callStr(t *testing.T, target func(value.GlobalContext, *value.Reference, *argreader.Reader) (value.Value, error), args ...value.Value) (value.Value, error) {
	t.Helper()
	var stack value.Stack
	for _, a := range args {
		stack.Push().SetTemporary(a)
	}
	r := argreader.New("std.string.test", &stack)
	var self value.Reference
	return target(nil, &self, r)
}

func mustCallStr(t *testing.T, target func(value.GlobalContext, *value.Reference, *argreader.Reader) (value.Value, error), args ...value.Value) value.Value {
	t.Helper()
	v, err := callStr(t, target, args...)
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}
	return v
}

// hex_decode(hex_encode(s)) == s, and likewise for
// base32, base64, url, and url_query.
func TestHexRoundTrip(t *testing.T) {
	for _, s := range []string{"", "a", "hello world", string([]byte{0x00, 0x01, 0xFE, 0xFF})} {
		enc := mustCallStr(t, bHexEncode, value.Str(s)).MustString()
		dec := mustCallStr(t, bHexDecode, value.Str(enc)).MustString()
		if dec != s {
			t.Errorf("hex round trip of %q: got %q via %q", s, dec, enc)
		}
	}
}

func TestBase32RoundTrip(t *testing.T) {
	for _, s := range []string{"", "a", "hello world", string([]byte{0x00, 0x01, 0xFE, 0xFF})} {
		enc := mustCallStr(t, bBase32Encode, value.Str(s)).MustString()
		dec := mustCallStr(t, bBase32Decode, value.Str(enc)).MustString()
		if dec != s {
			t.Errorf("base32 round trip of %q: got %q via %q", s, dec, enc)
		}
	}
}

func TestBase64RoundTrip(t *testing.T) {
	for _, s := range []string{"", "a", "hello world", string([]byte{0x00, 0x01, 0xFE, 0xFF})} {
		enc := mustCallStr(t, bBase64Encode, value.Str(s)).MustString()
		dec := mustCallStr(t, bBase64Decode, value.Str(enc)).MustString()
		if dec != s {
			t.Errorf("base64 round trip of %q: got %q via %q", s, dec, enc)
		}
	}
}

func TestURLRoundTrip(t *testing.T) {
	for _, s := range []string{"", "hello world", "a/b?c=d&e=f", "100% safe"} {
		enc := mustCallStr(t, bURLEncode, value.Str(s)).MustString()
		dec := mustCallStr(t, bURLDecode, value.Str(enc)).MustString()
		if dec != s {
			t.Errorf("url round trip of %q: got %q via %q", s, dec, enc)
		}
	}
}

func TestURLQueryRoundTrip(t *testing.T) {
	for _, s := range []string{"", "hello world", "a/b?c=d&e=f", "100% safe"} {
		enc := mustCallStr(t, bURLQueryEncode, value.Str(s)).MustString()
		dec := mustCallStr(t, bURLQueryDecode, value.Str(enc)).MustString()
		if dec != s {
			t.Errorf("url_query round trip of %q: got %q via %q", s, dec, enc)
		}
	}
}

// hex_encode is uppercase and takes an optional inter-byte
// delimiter; hex_decode tolerates whitespace between complete byte pairs but
// rejects an odd number of hex digits.
func TestHexEncodeUppercaseDefault(t *testing.T) {
	s := string([]byte{0x00, 0xFF})
	got := mustCallStr(t, bHexEncode, value.Str(s)).MustString()
	if got != "00FF" {
		t.Errorf("hex_encode([0x00,0xFF]) = %q, want %q", got, "00FF")
	}
}

func TestHexEncodeDelimiter(t *testing.T) {
	s := string([]byte{0x00, 0xFF})
	got := mustCallStr(t, bHexEncode, value.Str(s), value.Str("-")).MustString()
	if got != "00-FF" {
		t.Errorf("hex_encode([0x00,0xFF], \"-\") = %q, want %q", got, "00-FF")
	}
}

func TestHexDecodeSkipsWhitespaceBetweenPairs(t *testing.T) {
	got := mustCallStr(t, bHexDecode, value.Str(" 00 FF ")).MustString()
	if got != string([]byte{0x00, 0xFF}) {
		t.Errorf("hex_decode(\" 00 FF \") = %x, want 00ff", got)
	}
}

func TestHexDecodeRejectsOddLength(t *testing.T) {
	if _, err := callStr(t, bHexDecode, value.Str("0")); err == nil {
		t.Fatal("hex_decode with an odd number of digits must be a parse error")
	}
	if _, err := callStr(t, bHexDecode, value.Str("0 0")); err == nil {
		t.Fatal("whitespace splitting a byte pair must be a parse error")
	}
}

func TestBase64DecodeRejectsMissingPadding(t *testing.T) {
	// "hi" -> standard base64 "aGk=" ; the unpadded form must be rejected.
	if _, err := callStr(t, bBase64Decode, value.Str("aGk")); err == nil {
		t.Fatal("base64_decode without required padding must be a parse error")
	}
	dec := mustCallStr(t, bBase64Decode, value.Str("aGk=")).MustString()
	if dec != "hi" {
		t.Errorf("base64_decode(\"aGk=\") = %q, want %q", dec, "hi")
	}
}

func TestURLEncodeUnreservedSet(t *testing.T) {
	got := mustCallStr(t, bURLEncode, value.Str("a~b c")).MustString()
	if got != "a~b%20c" {
		t.Errorf("url_encode(\"a~b c\") = %q, want %q", got, "a~b%20c")
	}
	got = mustCallStr(t, bURLQueryEncode, value.Str("a~b c")).MustString()
	if got != "a%7Eb+c" {
		t.Errorf("url_query_encode(\"a~b c\") = %q, want %q", got, "a%7Eb+c")
	}
}

func TestPCREFindReturnsOffsetAndLength(t *testing.T) {
	v := mustCallStr(t, bPCREFind, value.Str("hello world"), value.Str(`wor\w+`))
	pair := v.MustArray()
	if pair.At(0).MustInteger() != 6 || pair.At(1).MustInteger() != 5 {
		t.Errorf("pcre_find = [%v, %v], want [6, 5]", pair.At(0), pair.At(1))
	}
	v = mustCallStr(t, bPCREFind, value.Str("hello"), value.Str("xyz"))
	if !v.IsNull() {
		t.Errorf("a non-match must yield null, got %v", v)
	}
}

func TestPCRENamedMatch(t *testing.T) {
	v := mustCallStr(t, bPCRENamedMatch, value.Str("2024-01-31"), value.Str(`(?<year>\d{4})-(?<month>\d{2})`))
	obj := v.MustObject()
	year, _ := obj.Get("year")
	if year.MustString() != "2024" {
		t.Errorf("year group = %v, want \"2024\"", year)
	}
	month, _ := obj.Get("month")
	if month.MustString() != "01" {
		t.Errorf("month group = %v, want \"01\"", month)
	}
}

func TestPCREReplaceGlobal(t *testing.T) {
	v := mustCallStr(t, bPCREReplace, value.Str("a1b22c333"), value.Str(`\d+`), value.Str("#"))
	if v.MustString() != "a#b#c#" {
		t.Errorf("pcre_replace = %q, want %q", v.MustString(), "a#b#c#")
	}
}

func TestTranslateRemapsAndDeletes(t *testing.T) {
	// 'a' maps to 'x'; 'b' has no output position and is deleted.
	v := mustCallStr(t, bTranslate, value.Str("abcabc"), value.Str("ab"), value.Str("x"))
	if v.MustString() != "xcxc" {
		t.Errorf("translate = %q, want %q", v.MustString(), "xcxc")
	}
}

func TestExplodeImplodeRoundTrip(t *testing.T) {
	parts := mustCallStr(t, bExplode, value.Str("a,b,,c"), value.Str(",")).MustArray()
	if parts.Len() != 4 || parts.At(2).MustString() != "" {
		t.Fatalf("explode = %v, want 4 parts with an empty third", parts.Elements())
	}
	joined := mustCallStr(t, bImplode, value.FromArray(parts), value.Str(","))
	if joined.MustString() != "a,b,,c" {
		t.Errorf("implode(explode(s)) = %q, want the original", joined.MustString())
	}
}

func TestFormatPositionalSubstitution(t *testing.T) {
	v := mustCallStr(t, bFormat, value.Str("$1 and ${2}, escaped $$1"), value.Str("one"), value.Int(2))
	if v.MustString() != "one and 2, escaped $1" {
		t.Errorf("format = %q", v.MustString())
	}
}

func TestVisualWidth(t *testing.T) {
	v := mustCallStr(t, bVisualWidth, value.Str("abc"))
	if v.MustInteger() != 3 {
		t.Errorf("visual_width(\"abc\") = %d, want 3", v.MustInteger())
	}
	v = mustCallStr(t, bVisualWidth, value.Str("世界"))
	if v.MustInteger() != 4 {
		t.Errorf("visual_width of two wide characters = %d, want 4", v.MustInteger())
	}
	if _, err := callStr(t, bVisualWidth, value.Str("a\tb")); err == nil {
		t.Fatal("control characters must be rejected")
	}
}

func TestUTF8RoundTrip(t *testing.T) {
	cps := value.NewArrayFrom([]value.Value{
		value.Int('A'), value.Int(0x7F0), value.Int(0x4E16), value.Int(0x1F600),
	})
	encoded := mustCallStr(t, bUTF8Encode, value.FromArray(cps))
	decoded := mustCallStr(t, bUTF8Decode, encoded).MustArray()
	if decoded.Len() != cps.Len() {
		t.Fatalf("round trip length %d, want %d", decoded.Len(), cps.Len())
	}
	for i := 0; i < cps.Len(); i++ {
		if decoded.At(i).MustInteger() != cps.At(i).MustInteger() {
			t.Errorf("code point %d: got %#x, want %#x", i, decoded.At(i).MustInteger(), cps.At(i).MustInteger())
		}
	}
}

func TestIconvLatin1(t *testing.T) {
	// "é" in UTF-8 is 0xC3 0xA9; in ISO-8859-1 it is the single byte 0xE9.
	v := mustCallStr(t, bIconv, value.Str("ISO-8859-1"), value.Str("caf\xc3\xa9"))
	if v.MustString() != "caf\xe9" {
		t.Errorf("iconv to latin-1 = %x, want caf e9", v.MustString())
	}
	back := mustCallStr(t, bIconv, value.Str("UTF-8"), v, value.Str("ISO-8859-1"))
	if back.MustString() != "caf\xc3\xa9" {
		t.Errorf("iconv back to UTF-8 = %x", back.MustString())
	}
}

func TestURLDecodeRejectsControlCharacters(t *testing.T) {
	if _, err := callStr(t, bURLDecode, value.Str("a\x01b")); err == nil {
		t.Fatal("control characters in a URL must be a parse error")
	}
	if _, err := callStr(t, bURLDecode, value.Str("%2")); err == nil {
		t.Fatal("a truncated percent escape must be a parse error")
	}
}
