// Package csv implements std.csv. The parser is hand-rolled rather than
// encoding/csv: errors here carry the line the opening quote appeared on,
// rows may vary in width, and embedded CR handling differs from Go's
// stdlib reader.
package csv

import (
	"strings"

	"asteria/internal/argreader"
	"asteria/internal/binder"
	"asteria/internal/errors"
	"asteria/internal/runtime"
	"asteria/internal/value"
)

func init() {
	runtime.RegisterStdModule(runtime.APIVersion0001_0000, "csv", createBindings)
}

func bind(name string, target binder.Target) value.Value {
	return value.FromFunction(binder.New(name, "internal/stdlib/csv/csv.go", 0, target))
}

func createBindings(exports *value.Object, maxAPI runtime.APIVersion) {
	exports.Set("parse", bind("std.csv.parse", bParse))
	exports.Set("format", bind("std.csv.format", bFormat))
}

func bParse(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text string
	r.StartOverload()
	r.RequiredString(&text)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	text = strings.TrimPrefix(text, "\ufeff")

	var rows []value.Value
	var fields []value.Value
	var field strings.Builder
	line := 1
	quoteOpenLine := 0
	i := 0
	n := len(text)
	inQuotes := false

	flushField := func() {
		fields = append(fields, value.Str(field.String()))
		field.Reset()
	}
	flushRow := func() {
		flushField()
		rows = append(rows, value.FromArray(value.NewArrayFrom(fields)))
		fields = nil
	}

	for i < n {
		c := text[i]
		if inQuotes {
			switch c {
			case '"':
				if i+1 < n && text[i+1] == '"' {
					field.WriteByte('"')
					i += 2
					continue
				}
				inQuotes = false
				i++
			case '\r':
				i++
			case '\n':
				field.WriteByte('\n')
				line++
				i++
			default:
				field.WriteByte(c)
				i++
			}
			continue
		}
		switch c {
		case '"':
			if field.Len() == 0 {
				inQuotes = true
				quoteOpenLine = line
				i++
				continue
			}
			field.WriteByte(c)
			i++
		case ',':
			flushField()
			i++
		case '\r':
			i++
		case '\n':
			flushRow()
			line++
			i++
		default:
			field.WriteByte(c)
			i++
		}
	}
	if inQuotes {
		return value.Value{}, errors.New(errors.ParseError, "std.csv.parse: unterminated quoted field opened at line %d", quoteOpenLine)
	}
	if field.Len() > 0 || len(fields) > 0 {
		flushRow()
	}
	return value.FromArray(value.NewArrayFrom(rows)), nil
}

func bFormat(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var rows *value.Array
	r.StartOverload()
	r.RequiredArray(&rows)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	var sb strings.Builder
	for ri := 0; ri < rows.Len(); ri++ {
		rowV := rows.At(ri)
		if !rowV.IsArray() {
			return value.Value{}, errors.New(errors.TypeMismatch, "std.csv.format: row %d is not an array", ri)
		}
		row := rowV.MustArray()
		for ci := 0; ci < row.Len(); ci++ {
			if ci > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(formatCell(row.At(ci)))
		}
		sb.WriteString("\r\n")
	}
	return value.Str(sb.String()), nil
}

func formatCell(v value.Value) string {
	var text string
	switch v.Type() {
	case value.TString:
		text = v.MustString()
	case value.TInteger, value.TReal, value.TBoolean:
		text = v.Print()
	default:
		return ""
	}
	if strings.ContainsAny(text, ",\n\"") {
		return `"` + strings.ReplaceAll(text, `"`, `""`) + `"`
	}
	return text
}
