package csv

import (
	"strings"
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
	r := argreader.New("std.csv.test", &stack)
	var self value.Reference
	return target(nil, &self, r)
}

func cell(t *testing.T, v value.Value, row, col int) string {
	t.Helper()
	return v.MustArray().At(row).MustArray().At(col).MustString()
}

func TestParseQuotedFieldWithEmbeddedSeparators(t *testing.T) {
	src := "a,\"x,\"\"y\"\"\nz\",c\r\nd,e,f\r\n"
	v, err := call(t, bParse, value.Str(src))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	rows := v.MustArray()
	if rows.Len() != 2 {
		t.Fatalf("got %d rows, want 2", rows.Len())
	}
	if got := cell(t, v, 0, 1); got != "x,\"y\"\nz" {
		t.Errorf("quoted field = %q, want embedded comma, quotes, and LF", got)
	}
	if got := cell(t, v, 1, 2); got != "f" {
		t.Errorf("row 1 col 2 = %q, want \"f\"", got)
	}
}

func TestParseStripsCRAndBOM(t *testing.T) {
	v, err := call(t, bParse, value.Str("\ufeffa,b\r\nc,d\r\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := cell(t, v, 0, 0); got != "a" {
		t.Errorf("first cell = %q, want \"a\" with the BOM stripped", got)
	}
}

func TestParseUnterminatedQuoteReportsOpeningLine(t *testing.T) {
	_, err := call(t, bParse, value.Str("a,b\nc,\"unterminated\nstill open"))
	if err == nil {
		t.Fatal("an unterminated quoted field must be a parse error")
	}
	if !strings.Contains(err.Error(), "line 2") {
		t.Errorf("error must carry the line the quote opened on: %v", err)
	}
}

func TestFormatQuotesOnlyWhenNeeded(t *testing.T) {
	rows := value.NewArrayFrom([]value.Value{
		value.FromArray(value.NewArrayFrom([]value.Value{
			value.Str("plain"),
			value.Str("has,comma"),
			value.Str("has\"quote"),
			value.Int(7),
		})),
	})
	v, err := call(t, bFormat, value.FromArray(rows))
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	want := "plain,\"has,comma\",\"has\"\"quote\",7\r\n"
	if v.MustString() != want {
		t.Errorf("format = %q, want %q", v.MustString(), want)
	}
}

func TestFormatOmitsNonScalarCells(t *testing.T) {
	rows := value.NewArrayFrom([]value.Value{
		value.FromArray(value.NewArrayFrom([]value.Value{
			value.Str("a"),
			value.FromArray(value.NewArrayFrom([]value.Value{value.Int(1)})),
			value.Str("b"),
		})),
	})
	v, err := call(t, bFormat, value.FromArray(rows))
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if v.MustString() != "a,,b\r\n" {
		t.Errorf("non-scalar cells must render empty: %q", v.MustString())
	}
}
