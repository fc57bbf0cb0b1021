// Package ini implements std.ini: a strict INI codec with `[section]`
// headers, `key=value` lines, `;`/`#` line comments, a reject-character
// set for keys and values, and duplicate-key replace-in-place semantics.
// Unlike a permissive INI library this rejects leading/trailing whitespace
// in keys and values instead of silently trimming it.
package ini

import (
	"strings"

	"asteria/internal/argreader"
	"asteria/internal/binder"
	"asteria/internal/errors"
	"asteria/internal/runtime"
	"asteria/internal/value"
)

func init() {
	runtime.RegisterStdModule(runtime.APIVersion0001_0000, "ini", createBindings)
}

func bind(name string, target binder.Target) value.Value {
	return value.FromFunction(binder.New(name, "internal/stdlib/ini/ini.go", 0, target))
}

func createBindings(exports *value.Object, maxAPI runtime.APIVersion) {
	exports.Set("parse", bind("std.ini.parse", bParse))
	exports.Set("format", bind("std.ini.format", bFormat))
}

const rejectSet = "[]=;# "

func containsReject(s string) bool {
	return strings.ContainsAny(s, rejectSet)
}

func bParse(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text string
	r.StartOverload()
	r.RequiredString(&text)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	text = strings.TrimPrefix(text, "\ufeff")
	root := value.NewObject()
	var currentSection *value.Object
	lines := splitLines(text)
	for lineNo, raw := range lines {
		line := raw
		if i := strings.IndexAny(line, ";#"); i >= 0 {
			line = line[:i]
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if strings.HasPrefix(line, "[") {
			end := strings.IndexByte(line, ']')
			if end < 0 {
				return value.Value{}, errors.New(errors.ParseError, "std.ini.parse: unterminated section header at line %d", lineNo+1)
			}
			name := line[1:end]
			if containsReject(name) || name != strings.TrimSpace(name) {
				return value.Value{}, errors.New(errors.ParseError, "std.ini.parse: invalid section name %q at line %d", name, lineNo+1)
			}
			sec := value.NewObject()
			root.Set(name, value.FromObject(sec))
			currentSection = sec
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			return value.Value{}, errors.New(errors.ParseError, "std.ini.parse: missing '=' at line %d", lineNo+1)
		}
		key, val := line[:eq], line[eq+1:]
		if key != strings.TrimSpace(key) || containsReject(key) || key == "" {
			return value.Value{}, errors.New(errors.ParseError, "std.ini.parse: invalid key %q at line %d", key, lineNo+1)
		}
		if val != strings.TrimSpace(val) || containsReject(val) {
			return value.Value{}, errors.New(errors.ParseError, "std.ini.parse: invalid value %q at line %d", val, lineNo+1)
		}
		if currentSection != nil {
			currentSection.Set(key, value.Str(val))
		} else {
			root.Set(key, value.Str(val))
		}
	}
	return value.FromObject(root), nil
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func bFormat(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var obj *value.Object
	r.StartOverload()
	r.RequiredObject(&obj)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	var sb strings.Builder
	var sectionKeys []string
	for _, k := range obj.Keys() {
		v, _ := obj.Get(k)
		if v.IsObject() {
			sectionKeys = append(sectionKeys, k)
			continue
		}
		if err := writeKV(&sb, k, v); err != nil {
			return value.Value{}, err
		}
	}
	for _, k := range sectionKeys {
		sb.WriteByte('[')
		sb.WriteString(k)
		sb.WriteString("]\r\n")
		v, _ := obj.Get(k)
		sec := v.MustObject()
		for _, sk := range sec.Keys() {
			sv, _ := sec.Get(sk)
			if err := writeKV(&sb, sk, sv); err != nil {
				return value.Value{}, err
			}
		}
	}
	return value.Str(sb.String()), nil
}

func writeKV(sb *strings.Builder, key string, v value.Value) error {
	if containsReject(key) {
		return errors.New(errors.ArgumentError, "std.ini.format: key %q contains a reserved character", key)
	}
	text, err := scalarText(v)
	if err != nil {
		return err
	}
	sb.WriteString(key)
	sb.WriteByte('=')
	sb.WriteString(text)
	sb.WriteString("\r\n")
	return nil
}

func scalarText(v value.Value) (string, error) {
	switch v.Type() {
	case value.TString:
		s := v.MustString()
		if containsReject(s) {
			return "", errors.New(errors.ArgumentError, "std.ini.format: value %q contains a reserved character", s)
		}
		return s, nil
	case value.TInteger:
		return v.Print(), nil
	case value.TReal:
		return v.Print(), nil
	case value.TBoolean:
		return v.Print(), nil
	case value.TNull:
		return "", nil
	default:
		return "", errors.New(errors.ArgumentError, "std.ini.format: value of type %s cannot be rendered as an INI scalar", v.Type())
	}
}
