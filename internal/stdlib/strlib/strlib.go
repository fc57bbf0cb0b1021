// Package strlib implements std.string: slicing, searching, case and
// padding transforms, the byte-level codec family (hex/base32/base64/url),
// UTF-8 validation/encode/decode, and a PCRE matching facade backed by
// regexp2 (a PCRE-compatible engine, since Go's native
// regexp is RE2 and cannot express backreferences or lookaround). The PCRE
// facade is exposed two ways: throwaway free functions that compile a
// pattern per call, and an opaque std.string.pcre_compile() matcher a
// script can reuse across many calls. visual_width renders wcwidth-style
// terminal cell counts via github.com/mattn/go-runewidth, and iconv
// transcodes between named encodings via golang.org/x/text/encoding.
package strlib

import (
	"encoding/base32"
	"encoding/base64"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dlclark/regexp2"
	"github.com/mattn/go-runewidth"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"asteria/internal/argreader"
	"asteria/internal/binder"
	"asteria/internal/errors"
	"asteria/internal/runtime"
	"asteria/internal/value"
)

func init() {
	runtime.RegisterStdModule(runtime.APIVersion0001_0000, "string", createBindings)
}

func bind(name string, target binder.Target) value.Value {
	return value.FromFunction(binder.New(name, "internal/stdlib/strlib/strlib.go", 0, target))
}

func createBindings(exports *value.Object, maxAPI runtime.APIVersion) {
	exports.Set("slice", bind("std.string.slice", bSlice))
	exports.Set("replace_slice", bind("std.string.replace_slice", bReplaceSlice))
	exports.Set("compare", bind("std.string.compare", bCompare))
	exports.Set("starts_with", bind("std.string.starts_with", bStartsWith))
	exports.Set("ends_with", bind("std.string.ends_with", bEndsWith))
	exports.Set("find", bind("std.string.find", bFind))
	exports.Set("rfind", bind("std.string.rfind", bRfind))
	exports.Set("replace", bind("std.string.replace", bReplace))
	exports.Set("find_any_of", bind("std.string.find_any_of", bFindAnyOf))
	exports.Set("rfind_any_of", bind("std.string.rfind_any_of", bRfindAnyOf))
	exports.Set("find_not_of", bind("std.string.find_not_of", bFindNotOf))
	exports.Set("rfind_not_of", bind("std.string.rfind_not_of", bRfindNotOf))
	exports.Set("reverse", bind("std.string.reverse", bReverse))
	exports.Set("trim", bind("std.string.trim", bTrim))
	exports.Set("triml", bind("std.string.triml", bTrimL))
	exports.Set("trimr", bind("std.string.trimr", bTrimR))
	exports.Set("padl", bind("std.string.padl", bPadL))
	exports.Set("padr", bind("std.string.padr", bPadR))
	exports.Set("to_upper", bind("std.string.to_upper", bToUpper))
	exports.Set("to_lower", bind("std.string.to_lower", bToLower))
	exports.Set("translate", bind("std.string.translate", bTranslate))
	exports.Set("explode", bind("std.string.explode", bExplode))
	exports.Set("implode", bind("std.string.implode", bImplode))
	exports.Set("hex_encode", bind("std.string.hex_encode", bHexEncode))
	exports.Set("hex_decode", bind("std.string.hex_decode", bHexDecode))
	exports.Set("base32_encode", bind("std.string.base32_encode", bBase32Encode))
	exports.Set("base32_decode", bind("std.string.base32_decode", bBase32Decode))
	exports.Set("base64_encode", bind("std.string.base64_encode", bBase64Encode))
	exports.Set("base64_decode", bind("std.string.base64_decode", bBase64Decode))
	exports.Set("url_encode", bind("std.string.url_encode", bURLEncode))
	exports.Set("url_decode", bind("std.string.url_decode", bURLDecode))
	exports.Set("url_query_encode", bind("std.string.url_query_encode", bURLQueryEncode))
	exports.Set("url_query_decode", bind("std.string.url_query_decode", bURLQueryDecode))
	exports.Set("utf8_validate", bind("std.string.utf8_validate", bUTF8Validate))
	exports.Set("utf8_encode", bind("std.string.utf8_encode", bUTF8Encode))
	exports.Set("utf8_decode", bind("std.string.utf8_decode", bUTF8Decode))
	exports.Set("pcre_find", bind("std.string.pcre_find", bPCREFind))
	exports.Set("pcre_match", bind("std.string.pcre_match", bPCREMatch))
	exports.Set("pcre_named_match", bind("std.string.pcre_named_match", bPCRENamedMatch))
	exports.Set("pcre_replace", bind("std.string.pcre_replace", bPCREReplace))
	exports.Set("pcre_compile", bind("std.string.pcre_compile", bPCRECompile))
	exports.Set("pcre_find_opaque", bind("std.string.pcre_find_opaque", bPCREOpaqueFind))
	exports.Set("pcre_match_opaque", bind("std.string.pcre_match_opaque", bPCREOpaqueMatch))
	exports.Set("pcre_named_match_opaque", bind("std.string.pcre_named_match_opaque", bPCREOpaqueNamedMatch))
	exports.Set("pcre_replace_opaque", bind("std.string.pcre_replace_opaque", bPCREOpaqueReplace))
	exports.Set("format", bind("std.string.format", bFormat))
	exports.Set("visual_width", bind("std.string.visual_width", bVisualWidth))
	exports.Set("iconv", bind("std.string.iconv", bIconv))
}

// --- slicing, matching the array package's do_slice contract ------------

func sliceRange(n int, from int64, length *int64) (int, int) {
	if from >= int64(n) {
		return n, n
	}
	var start int
	if from >= 0 {
		start = int(from)
	} else {
		rfrom := from + int64(n)
		if rfrom >= 0 {
			start = int(rfrom)
		} else {
			if length == nil {
				return 0, n
			}
			adj := rfrom + *length
			if adj <= 0 {
				return 0, 0
			}
			if adj >= int64(n) {
				return 0, n
			}
			return 0, int(adj)
		}
	}
	if length == nil || *length >= int64(n-start) {
		return start, n
	}
	if *length <= 0 {
		return start, start
	}
	return start, start + int(*length)
}

func bSlice(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text string
	var from int64
	var length int64
	var hasLength bool
	r.StartOverload()
	r.RequiredString(&text)
	r.RequiredInteger(&from)
	r.OptionalInteger(&length, &hasLength)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	var lp *int64
	if hasLength {
		lp = &length
	}
	lo, hi := sliceRange(len(text), from, lp)
	return value.Str(text[lo:hi]), nil
}

func bReplaceSlice(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text, rep string
	var from int64
	var length, rfrom, rlength int64
	var hasLength, hasRfrom, hasRlength bool
	r.StartOverload()
	r.RequiredString(&text)
	r.RequiredInteger(&from)
	r.SaveState(0)
	r.RequiredString(&rep)
	r.OptionalInteger(&rfrom, &hasRfrom)
	r.OptionalInteger(&rlength, &hasRlength)
	if !r.EndOverload() {
		// The longer form slots a length between from and the replacement.
		r.LoadState(0)
		r.OptionalInteger(&length, &hasLength)
		r.RequiredString(&rep)
		r.OptionalInteger(&rfrom, &hasRfrom)
		r.OptionalInteger(&rlength, &hasRlength)
		if !r.EndOverload() {
			return value.Value{}, r.ThrowNoMatchingFunctionCall()
		}
	}
	var lp, rlp *int64
	if hasLength {
		lp = &length
	}
	if hasRlength {
		rlp = &rlength
	}
	rf := int64(0)
	if hasRfrom {
		rf = rfrom
	}
	lo, hi := sliceRange(len(text), from, lp)
	rlo, rhi := sliceRange(len(rep), rf, rlp)
	return value.Str(text[:lo] + rep[rlo:rhi] + text[hi:]), nil
}

func bCompare(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var a, b string
	var n int64
	var hasN bool
	r.StartOverload()
	r.RequiredString(&a)
	r.RequiredString(&b)
	r.OptionalInteger(&n, &hasN)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	if hasN {
		if int64(len(a)) > n {
			a = a[:n]
		}
		if int64(len(b)) > n {
			b = b[:n]
		}
	}
	return value.Int(int64(strings.Compare(a, b))), nil
}

func bStartsWith(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var a, b string
	r.StartOverload()
	r.RequiredString(&a)
	r.RequiredString(&b)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	return value.Bool(strings.HasPrefix(a, b)), nil
}

func bEndsWith(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var a, b string
	r.StartOverload()
	r.RequiredString(&a)
	r.RequiredString(&b)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	return value.Bool(strings.HasSuffix(a, b)), nil
}

// resolveFindRange matches the (text, pattern), (text, from, pattern), and
// (text, from, length, pattern) overload cascade shared by find and rfind.
func resolveFindRange(r *argreader.Reader, text, pattern *string) (int, int, bool) {
	var from, length int64
	r.StartOverload()
	r.RequiredString(text)
	r.RequiredString(pattern)
	if r.EndOverload() {
		return 0, len(*text), true
	}
	r.StartOverload()
	r.RequiredString(text)
	r.RequiredInteger(&from)
	r.RequiredString(pattern)
	if r.EndOverload() {
		lo, hi := sliceRange(len(*text), from, nil)
		return lo, hi, true
	}
	r.StartOverload()
	r.RequiredString(text)
	r.RequiredInteger(&from)
	r.RequiredInteger(&length)
	r.RequiredString(pattern)
	if r.EndOverload() {
		lo, hi := sliceRange(len(*text), from, &length)
		return lo, hi, true
	}
	return 0, 0, false
}

func bFind(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text, pattern string
	lo, hi, ok := resolveFindRange(r, &text, &pattern)
	if !ok {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	idx := strings.Index(text[lo:hi], pattern)
	if idx < 0 {
		return value.Null(), nil
	}
	return value.Int(int64(lo + idx)), nil
}

func bRfind(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text, pattern string
	lo, hi, ok := resolveFindRange(r, &text, &pattern)
	if !ok {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	idx := strings.LastIndex(text[lo:hi], pattern)
	if idx < 0 {
		return value.Null(), nil
	}
	return value.Int(int64(lo + idx)), nil
}

func bReplace(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text, pattern, rep string
	r.StartOverload()
	r.RequiredString(&text)
	r.RequiredString(&pattern)
	r.RequiredString(&rep)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	if pattern == "" {
		return value.Str(text), nil
	}
	return value.Str(strings.ReplaceAll(text, pattern, rep)), nil
}

func bFindAnyOf(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text, set string
	r.StartOverload()
	r.RequiredString(&text)
	r.RequiredString(&set)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	idx := strings.IndexAny(text, set)
	if idx < 0 {
		return value.Null(), nil
	}
	return value.Int(int64(idx)), nil
}

func bRfindAnyOf(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text, set string
	r.StartOverload()
	r.RequiredString(&text)
	r.RequiredString(&set)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	idx := strings.LastIndexAny(text, set)
	if idx < 0 {
		return value.Null(), nil
	}
	return value.Int(int64(idx)), nil
}

func bFindNotOf(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text, set string
	r.StartOverload()
	r.RequiredString(&text)
	r.RequiredString(&set)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	for i := 0; i < len(text); i++ {
		if !strings.ContainsRune(set, rune(text[i])) {
			return value.Int(int64(i)), nil
		}
	}
	return value.Null(), nil
}

func bRfindNotOf(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text, set string
	r.StartOverload()
	r.RequiredString(&text)
	r.RequiredString(&set)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	for i := len(text) - 1; i >= 0; i-- {
		if !strings.ContainsRune(set, rune(text[i])) {
			return value.Int(int64(i)), nil
		}
	}
	return value.Null(), nil
}

func bReverse(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text string
	r.StartOverload()
	r.RequiredString(&text)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	b := []byte(text)
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	return value.Str(string(b)), nil
}

const asciiWhitespace = " \t\n\v\f\r"

func bTrim(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text, reject string
	var hasReject bool
	r.StartOverload()
	r.RequiredString(&text)
	r.OptionalString(&reject, &hasReject)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	if !hasReject {
		reject = asciiWhitespace
	}
	return value.Str(strings.Trim(text, reject)), nil
}

func bTrimL(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text, reject string
	var hasReject bool
	r.StartOverload()
	r.RequiredString(&text)
	r.OptionalString(&reject, &hasReject)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	if !hasReject {
		reject = asciiWhitespace
	}
	return value.Str(strings.TrimLeft(text, reject)), nil
}

func bTrimR(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text, reject string
	var hasReject bool
	r.StartOverload()
	r.RequiredString(&text)
	r.OptionalString(&reject, &hasReject)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	if !hasReject {
		reject = asciiWhitespace
	}
	return value.Str(strings.TrimRight(text, reject)), nil
}

func bPadL(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text, pad string
	var width int64
	var hasPad bool
	r.StartOverload()
	r.RequiredString(&text)
	r.RequiredInteger(&width)
	r.OptionalString(&pad, &hasPad)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	if !hasPad {
		pad = " "
	}
	if pad == "" {
		return value.Value{}, errors.New(errors.RangeError, "padding string must not be empty")
	}
	var b strings.Builder
	for int64(b.Len()+len(text)) < width {
		b.WriteString(pad)
	}
	out := b.String()
	need := int(width) - len(text)
	if need < 0 {
		need = 0
	}
	if len(out) > need {
		out = out[:need]
	}
	return value.Str(out + text), nil
}

func bPadR(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text, pad string
	var width int64
	var hasPad bool
	r.StartOverload()
	r.RequiredString(&text)
	r.RequiredInteger(&width)
	r.OptionalString(&pad, &hasPad)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	if !hasPad {
		pad = " "
	}
	if pad == "" {
		return value.Value{}, errors.New(errors.RangeError, "padding string must not be empty")
	}
	var b strings.Builder
	b.WriteString(text)
	for int64(b.Len()) < width {
		b.WriteString(pad)
	}
	out := b.String()
	if int64(len(out)) > width {
		out = out[:width]
	}
	return value.Str(out), nil
}

func bToUpper(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text string
	r.StartOverload()
	r.RequiredString(&text)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	b := []byte(text)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
	return value.Str(string(b)), nil
}

func bToLower(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text string
	r.StartOverload()
	r.RequiredString(&text)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	b := []byte(text)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 32
		}
	}
	return value.Str(string(b)), nil
}

func bTranslate(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text, inputs, outputs string
	var hasOutputs bool
	r.StartOverload()
	r.RequiredString(&text)
	r.RequiredString(&inputs)
	r.OptionalString(&outputs, &hasOutputs)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	table := make(map[byte]int, len(inputs))
	for i := 0; i < len(inputs); i++ {
		table[inputs[i]] = i
	}
	var b strings.Builder
	for i := 0; i < len(text); i++ {
		c := text[i]
		pos, found := table[c]
		if !found {
			b.WriteByte(c)
			continue
		}
		if !hasOutputs || pos >= len(outputs) {
			continue // deleted
		}
		b.WriteByte(outputs[pos])
	}
	return value.Str(b.String()), nil
}

func bExplode(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text, sep string
	var limit int64
	var hasLimit bool
	r.StartOverload()
	r.RequiredString(&text)
	r.RequiredString(&sep)
	r.OptionalInteger(&limit, &hasLimit)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	var parts []string
	if sep == "" {
		for i := 0; i < len(text); i++ {
			parts = append(parts, string(text[i]))
		}
	} else if hasLimit && limit > 0 {
		parts = strings.SplitN(text, sep, int(limit))
	} else {
		parts = strings.Split(text, sep)
	}
	out := make([]value.Value, len(parts))
	for i, p := range parts {
		out[i] = value.Str(p)
	}
	return value.FromArray(value.NewArrayFrom(out)), nil
}

func bImplode(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var arr *value.Array
	var sep string
	var hasSep bool
	r.StartOverload()
	r.RequiredArray(&arr)
	r.OptionalString(&sep, &hasSep)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	parts := make([]string, arr.Len())
	for i := 0; i < arr.Len(); i++ {
		s, err := arr.At(i).AsString()
		if err != nil {
			return value.Value{}, err
		}
		parts[i] = s
	}
	return value.Str(strings.Join(parts, sep)), nil
}

// --- format: positional $N / ${N} substitution ---------------------------

func bFormat(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var template string
	var args []value.Value
	r.StartOverload()
	r.RequiredString(&template)
	var ok bool
	args, ok = r.EndOverloadVariadicValues()
	if !ok {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	return value.Str(formatTemplate(template, args)), nil
}

func formatTemplate(tmpl string, args []value.Value) string {
	var b strings.Builder
	i := 0
	for i < len(tmpl) {
		c := tmpl[i]
		if c != '$' {
			b.WriteByte(c)
			i++
			continue
		}
		i++
		if i >= len(tmpl) {
			b.WriteByte('$')
			break
		}
		switch {
		case tmpl[i] == '$':
			b.WriteByte('$')
			i++
		case tmpl[i] == '{':
			j := strings.IndexByte(tmpl[i:], '}')
			if j < 0 {
				b.WriteString(tmpl[i-1:])
				i = len(tmpl)
				break
			}
			numStr := tmpl[i+1 : i+j]
			writeArg(&b, numStr, args)
			i += j + 1
		case tmpl[i] >= '0' && tmpl[i] <= '9':
			start := i
			for i < len(tmpl) && tmpl[i] >= '0' && tmpl[i] <= '9' {
				i++
			}
			writeArg(&b, tmpl[start:i], args)
		default:
			b.WriteByte('$')
			b.WriteByte(tmpl[i])
			i++
		}
	}
	return b.String()
}

func writeArg(b *strings.Builder, numStr string, args []value.Value) {
	n := 0
	for _, c := range numStr {
		if c < '0' || c > '9' {
			return
		}
		n = n*10 + int(c-'0')
	}
	if n < 1 || n > len(args) {
		return
	}
	v := args[n-1]
	if v.IsString() {
		b.WriteString(v.MustString())
		return
	}
	b.WriteString(printValue(v))
}

func printValue(v value.Value) string {
	switch v.Type() {
	case value.TNull:
		return "null"
	case value.TBoolean:
		if v.MustBoolean() {
			return "true"
		}
		return "false"
	case value.TInteger:
		return strconv.FormatInt(v.MustInteger(), 10)
	case value.TReal:
		return strconv.FormatFloat(v.MustReal(), 'g', -1, 64)
	default:
		return value.DescribeType(v.Type())
	}
}

// --- byte-level codecs ----------------------------------------------------

const hexDigitsUpper = "0123456789ABCDEF"

// bHexEncode renders each input byte as two uppercase hexadecimal digits,
// inserting the delimiter (if given) before every byte other than the first.
func bHexEncode(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text, delim string
	var hasDelim bool
	r.StartOverload()
	r.RequiredString(&text)
	r.OptionalString(&delim, &hasDelim)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	var b strings.Builder
	b.Grow(len(text) * (2 + len(delim)))
	for i := 0; i < len(text); i++ {
		if i > 0 {
			b.WriteString(delim)
		}
		c := text[i]
		b.WriteByte(hexDigitsUpper[c>>4])
		b.WriteByte(hexDigitsUpper[c&0x0F])
	}
	return value.Str(b.String()), nil
}

func hexDigitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	default:
		return -1
	}
}

// bHexDecode reads pairs of hexadecimal digits, either case. ASCII whitespace
// is permitted between complete byte pairs only; a whitespace or end of input
// splitting a pair is an unpaired-digit error.
func bHexDecode(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text string
	r.StartOverload()
	r.RequiredString(&text)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	var out []byte
	reg := -1
	for i := 0; i < len(text); i++ {
		c := text[i]
		if strings.IndexByte(asciiWhitespace, c) >= 0 {
			if reg >= 0 {
				return value.Value{}, errors.New(errors.ParseError, "unpaired hexadecimal digit at offset %d", i)
			}
			continue
		}
		d := hexDigitValue(c)
		if d < 0 {
			return value.Value{}, errors.New(errors.ParseError, "invalid hexadecimal digit %q at offset %d", string(c), i)
		}
		if reg < 0 {
			reg = d
			continue
		}
		out = append(out, byte(reg<<4|d))
		reg = -1
	}
	if reg >= 0 {
		return value.Value{}, errors.New(errors.ParseError, "unpaired hexadecimal digit at end of input")
	}
	return value.Str(string(out)), nil
}

func bBase32Encode(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text string
	r.StartOverload()
	r.RequiredString(&text)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	return value.Str(base32.StdEncoding.EncodeToString([]byte(text))), nil
}

func bBase32Decode(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text string
	r.StartOverload()
	r.RequiredString(&text)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	out, err := base32.StdEncoding.DecodeString(strings.ToUpper(text))
	if err != nil {
		return value.Value{}, errors.New(errors.ArgumentError, "invalid base32 string: %v", err)
	}
	return value.Str(string(out)), nil
}

func bBase64Encode(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text string
	r.StartOverload()
	r.RequiredString(&text)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	return value.Str(base64.StdEncoding.EncodeToString([]byte(text))), nil
}

func bBase64Decode(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text string
	r.StartOverload()
	r.RequiredString(&text)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	// ASCII whitespace is stripped wherever it occurs, not only between
	// 4-character groups; padding is checked strictly by the underlying decoder.
	stripped := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\t' || r == '\n' || r == '\v' || r == '\f' || r == '\r' {
			return -1
		}
		return r
	}, text)
	out, err := base64.StdEncoding.DecodeString(stripped)
	if err != nil {
		return value.Value{}, errors.New(errors.ParseError, "invalid base64 string: %v", err)
	}
	return value.Str(string(out)), nil
}

// urlUnreserved reports whether c passes through percent-encoding untouched.
// The path form keeps '~'; the query form does not.
func urlUnreserved(c byte, query bool) bool {
	if (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') {
		return true
	}
	if c == '-' || c == '_' || c == '.' {
		return true
	}
	return !query && c == '~'
}

func urlEncode(text string, query bool) string {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		c := text[i]
		if urlUnreserved(c, query) {
			b.WriteByte(c)
			continue
		}
		if query && c == ' ' {
			b.WriteByte('+')
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hexDigitsUpper[c>>4])
		b.WriteByte(hexDigitsUpper[c&0x0F])
	}
	return b.String()
}

// urlDecode rejects control characters, space, DEL and 0xFF, requires two hexadecimal digits after
// every '%', and leaves all other bytes intact. The query form additionally
// decodes '+' as a space.
func urlDecode(text string, query bool) (string, error) {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		c := text[i]
		if c <= ' ' || c == 0x7F || c == 0xFF {
			return "", errors.New(errors.ParseError, "invalid character in URL (byte %#02x at offset %d)", c, i)
		}
		if query && c == '+' {
			b.WriteByte(' ')
			continue
		}
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		if len(text)-i < 3 {
			return "", errors.New(errors.ParseError, "not enough hexadecimal digits after `%%`")
		}
		hi := hexDigitValue(text[i+1])
		lo := hexDigitValue(text[i+2])
		if hi < 0 || lo < 0 {
			return "", errors.New(errors.ParseError, "invalid hexadecimal digit after `%%` at offset %d", i)
		}
		b.WriteByte(byte(hi<<4 | lo))
		i += 2
	}
	return b.String(), nil
}

func bURLEncode(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text string
	r.StartOverload()
	r.RequiredString(&text)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	return value.Str(urlEncode(text, false)), nil
}

func bURLDecode(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text string
	r.StartOverload()
	r.RequiredString(&text)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	out, err := urlDecode(text, false)
	if err != nil {
		return value.Value{}, err
	}
	return value.Str(out), nil
}

func bURLQueryEncode(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text string
	r.StartOverload()
	r.RequiredString(&text)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	return value.Str(urlEncode(text, true)), nil
}

func bURLQueryDecode(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text string
	r.StartOverload()
	r.RequiredString(&text)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	out, err := urlDecode(text, true)
	if err != nil {
		return value.Value{}, err
	}
	return value.Str(out), nil
}

// --- UTF-8 ------------------------------------------------------------

func bUTF8Validate(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text string
	r.StartOverload()
	r.RequiredString(&text)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	return value.Bool(utf8.ValidString(text)), nil
}

// bUTF8Encode accepts an array of code point integers (or a single integer)
// and concatenates their UTF-8 encodings. Surrogate halves and out-of-range
// code points are rejected unless permissive is true, in which case they are
// replaced with U+FFFD, matching the original's permissive flag.
func bUTF8Encode(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var codes *value.Array
	var permissive bool
	var hasPermissive bool
	r.StartOverload()
	r.RequiredArray(&codes)
	r.OptionalBoolean(&permissive, &hasPermissive)
	if !r.EndOverload() {
		var code int64
		r.StartOverload()
		r.RequiredInteger(&code)
		r.OptionalBoolean(&permissive, &hasPermissive)
		if !r.EndOverload() {
			return value.Value{}, r.ThrowNoMatchingFunctionCall()
		}
		codes = value.NewArrayFrom([]value.Value{value.Int(code)})
	}
	var b strings.Builder
	for i := 0; i < codes.Len(); i++ {
		cv := codes.At(i)
		if !cv.IsInteger() {
			return value.Value{}, errors.New(errors.TypeMismatch, "code point at index %d is not an integer", i)
		}
		cp := cv.MustInteger()
		if cp < 0 || cp > 0x10FFFF || (cp >= 0xD800 && cp <= 0xDFFF) {
			if hasPermissive && permissive {
				b.WriteRune(utf8.RuneError)
				continue
			}
			return value.Value{}, errors.New(errors.RangeError, "invalid UTF-8 code point: %d", cp)
		}
		b.WriteRune(rune(cp))
	}
	return value.Str(b.String()), nil
}

func bUTF8Decode(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text string
	var permissive bool
	var hasPermissive bool
	r.StartOverload()
	r.RequiredString(&text)
	r.OptionalBoolean(&permissive, &hasPermissive)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	var out []value.Value
	for i := 0; i < len(text); {
		rn, size := utf8.DecodeRuneInString(text[i:])
		if rn == utf8.RuneError && size <= 1 {
			if hasPermissive && permissive {
				out = append(out, value.Int(int64(text[i])))
				i++
				continue
			}
			return value.Value{}, errors.New(errors.ArgumentError, "invalid UTF-8 byte sequence at offset %d", i)
		}
		out = append(out, value.Int(int64(rn)))
		i += size
	}
	return value.FromArray(value.NewArrayFrom(out)), nil
}

// --- PCRE facade, backed by regexp2 (.NET-flavoured PCRE) -----------------

func compilePattern(pattern, flags string) (*regexp2.Regexp, error) {
	opts := regexp2.None
	for _, f := range flags {
		switch f {
		case 'i':
			opts |= regexp2.IgnoreCase
		case 's':
			opts |= regexp2.Singleline
		case 'x':
			opts |= regexp2.IgnorePatternWhitespace
		case 'm':
			opts |= regexp2.Multiline
		default:
			return nil, errors.New(errors.ArgumentError, "unknown PCRE option flag: %q", string(f))
		}
	}
	re, err := regexp2.Compile(pattern, opts)
	if err != nil {
		return nil, errors.New(errors.ParseError, "invalid PCRE pattern: %v", err)
	}
	return re, nil
}

func optionalFlags(r *argreader.Reader) (string, bool) {
	var flags string
	var has bool
	r.OptionalString(&flags, &has)
	return flags, has
}

func bPCREFind(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text, pattern string
	r.StartOverload()
	r.RequiredString(&text)
	r.RequiredString(&pattern)
	flags, _ := optionalFlags(r)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	re, err := compilePattern(pattern, flags)
	if err != nil {
		return value.Value{}, err
	}
	m, err := re.FindStringMatch(text)
	if err != nil || m == nil {
		return value.Null(), nil
	}
	pair := value.NewArrayFrom([]value.Value{value.Int(int64(m.Index)), value.Int(int64(m.Length))})
	return value.FromArray(pair), nil
}

func bPCREMatch(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text, pattern string
	r.StartOverload()
	r.RequiredString(&text)
	r.RequiredString(&pattern)
	flags, _ := optionalFlags(r)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	re, err := compilePattern(pattern, flags)
	if err != nil {
		return value.Value{}, err
	}
	m, err := re.FindStringMatch(text)
	if err != nil || m == nil {
		return value.Null(), nil
	}
	groups := m.Groups()
	out := make([]value.Value, len(groups))
	for i, g := range groups {
		if len(g.Captures) == 0 {
			out[i] = value.Null()
			continue
		}
		out[i] = value.Str(g.String())
	}
	return value.FromArray(value.NewArrayFrom(out)), nil
}

func bPCRENamedMatch(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text, pattern string
	r.StartOverload()
	r.RequiredString(&text)
	r.RequiredString(&pattern)
	flags, _ := optionalFlags(r)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	re, err := compilePattern(pattern, flags)
	if err != nil {
		return value.Value{}, err
	}
	m, err := re.FindStringMatch(text)
	if err != nil || m == nil {
		return value.Null(), nil
	}
	obj := value.NewObject()
	obj.Set("&", value.Str(m.String()))
	for _, name := range re.GetGroupNames() {
		if isNumericGroupName(name) {
			continue
		}
		g := m.GroupByName(name)
		if g == nil || len(g.Captures) == 0 {
			obj.Set(name, value.Null())
			continue
		}
		obj.Set(name, value.Str(g.String()))
	}
	return value.FromObject(obj), nil
}

// isNumericGroupName filters regexp2's implicit positional groups ("0",
// "1", ...) out of named-match results, which report named captures only.
func isNumericGroupName(name string) bool {
	for i := 0; i < len(name); i++ {
		if name[i] < '0' || name[i] > '9' {
			return false
		}
	}
	return len(name) > 0
}

func bPCREReplace(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text, pattern, rep string
	r.StartOverload()
	r.RequiredString(&text)
	r.RequiredString(&pattern)
	r.RequiredString(&rep)
	flags, _ := optionalFlags(r)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	re, err := compilePattern(pattern, flags)
	if err != nil {
		return value.Value{}, err
	}
	out, err := re.Replace(text, convertDollarRefs(rep), -1, -1)
	if err != nil {
		return value.Value{}, errors.New(errors.ArgumentError, "PCRE replace failed: %v", err)
	}
	return value.Str(out), nil
}

// convertDollarRefs returns rep unchanged: regexp2 already accepts $N and
// ${name} backreferences natively, so nothing is rewritten. It is kept for
// symmetry with std.string.format.
func convertDollarRefs(rep string) string { return rep }

// --- PCRE opaque matcher: a persistent compiled pattern --------------------

// pcreMatcher is the opaque value std.string.pcre_compile() returns, letting
// a script compile a pattern once and reuse it across many find/match/
// named_match/replace calls instead of recompiling per call.
type pcreMatcher struct {
	pattern string
	flags   string
	re      *regexp2.Regexp
}

func (p *pcreMatcher) Describe() string { return "std.string.PCRE_Matcher" }

func (p *pcreMatcher) Clone() value.Opaque {
	re, _ := compilePattern(p.pattern, p.flags)
	return &pcreMatcher{pattern: p.pattern, flags: p.flags, re: re}
}

func (p *pcreMatcher) CollectVariables(func(*value.Variable)) {}

func asMatcher(v value.Opaque, name string) (*pcreMatcher, error) {
	m, ok := v.(*pcreMatcher)
	if !ok {
		return nil, errors.New(errors.TypeMismatch, "%s: argument is not a PCRE matcher", name)
	}
	return m, nil
}

// flagsFromOptions turns the options-array form (tags "caseless", "dotall",
// "extended", "multiline") into the same single-letter flag string
// compilePattern already accepts, so both entry points share one compiler.
func flagsFromOptions(v value.Value) (string, error) {
	if v.IsNull() {
		return "", nil
	}
	if !v.IsArray() {
		return "", errors.New(errors.TypeMismatch, "PCRE options must be an array of tag strings")
	}
	arr := v.MustArray()
	var b strings.Builder
	for i := 0; i < arr.Len(); i++ {
		el := arr.At(i)
		if !el.IsString() {
			return "", errors.New(errors.TypeMismatch, "PCRE options must be an array of tag strings")
		}
		switch el.MustString() {
		case "caseless":
			b.WriteByte('i')
		case "dotall":
			b.WriteByte('s')
		case "extended":
			b.WriteByte('x')
		case "multiline":
			b.WriteByte('m')
		default:
			return "", errors.New(errors.ArgumentError, "unrecognized PCRE option tag: %q", el.MustString())
		}
	}
	return b.String(), nil
}

func bPCRECompile(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var pattern string
	var options value.Value
	r.StartOverload()
	r.RequiredString(&pattern)
	r.OptionalValue(&options)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	flags, err := flagsFromOptions(options)
	if err != nil {
		return value.Value{}, err
	}
	re, err := compilePattern(pattern, flags)
	if err != nil {
		return value.Value{}, err
	}
	return value.FromOpaque(&pcreMatcher{pattern: pattern, flags: flags, re: re}), nil
}

func bPCREOpaqueFind(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text string
	var o value.Opaque
	r.StartOverload()
	r.RequiredOpaque(&o)
	r.RequiredString(&text)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	m, err := asMatcher(o, "std.string.pcre_find_opaque")
	if err != nil {
		return value.Value{}, err
	}
	match, err := m.re.FindStringMatch(text)
	if err != nil || match == nil {
		return value.Null(), nil
	}
	pair := value.NewArrayFrom([]value.Value{value.Int(int64(match.Index)), value.Int(int64(match.Length))})
	return value.FromArray(pair), nil
}

func bPCREOpaqueMatch(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text string
	var o value.Opaque
	r.StartOverload()
	r.RequiredOpaque(&o)
	r.RequiredString(&text)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	m, err := asMatcher(o, "std.string.pcre_match_opaque")
	if err != nil {
		return value.Value{}, err
	}
	match, err := m.re.FindStringMatch(text)
	if err != nil || match == nil {
		return value.Null(), nil
	}
	groups := match.Groups()
	out := make([]value.Value, len(groups))
	for i, g := range groups {
		if len(g.Captures) == 0 {
			out[i] = value.Null()
			continue
		}
		out[i] = value.Str(g.String())
	}
	return value.FromArray(value.NewArrayFrom(out)), nil
}

func bPCREOpaqueNamedMatch(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text string
	var o value.Opaque
	r.StartOverload()
	r.RequiredOpaque(&o)
	r.RequiredString(&text)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	m, err := asMatcher(o, "std.string.pcre_named_match_opaque")
	if err != nil {
		return value.Value{}, err
	}
	match, err := m.re.FindStringMatch(text)
	if err != nil || match == nil {
		return value.Null(), nil
	}
	obj := value.NewObject()
	obj.Set("&", value.Str(match.String()))
	for _, name := range m.re.GetGroupNames() {
		if isNumericGroupName(name) {
			continue
		}
		g := match.GroupByName(name)
		if g == nil || len(g.Captures) == 0 {
			obj.Set(name, value.Null())
			continue
		}
		obj.Set(name, value.Str(g.String()))
	}
	return value.FromObject(obj), nil
}

func bPCREOpaqueReplace(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text, rep string
	var o value.Opaque
	r.StartOverload()
	r.RequiredOpaque(&o)
	r.RequiredString(&text)
	r.RequiredString(&rep)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	m, err := asMatcher(o, "std.string.pcre_replace_opaque")
	if err != nil {
		return value.Value{}, err
	}
	out, err := m.re.Replace(text, convertDollarRefs(rep), -1, -1)
	if err != nil {
		return value.Value{}, errors.New(errors.ArgumentError, "PCRE replace failed: %v", err)
	}
	return value.Str(out), nil
}

// --- visual_width: wcwidth-style terminal cell width ------------------------

func bVisualWidth(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text string
	r.StartOverload()
	r.RequiredString(&text)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	total := 0
	for i, ch := range text {
		if ch == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(text[i:]); size <= 1 {
				return value.Value{}, errors.New(errors.ArgumentError, "std.string.visual_width: invalid UTF-8 at offset %d", i)
			}
		}
		if ch < 0x20 || ch == 0x7F {
			return value.Value{}, errors.New(errors.ArgumentError, "std.string.visual_width: non-printable character U+%04X", ch)
		}
		total += runewidth.RuneWidth(ch)
	}
	return value.Int(int64(total)), nil
}

// --- iconv: byte-level transcoding between named encodings -----------------

func lookupEncoding(name string) (encoding.Encoding, error) {
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, errors.New(errors.ArgumentError, "std.string.iconv: unknown encoding %q", name)
	}
	return enc, nil
}

// bIconv transcodes text from the `from` encoding (default UTF-8) to `to`.
// Conversion failures report the byte offset of the first bad sequence by
// growing the prefix one byte at a time until transform.String rejects it,
// since golang.org/x/text/transform.String itself reports no position.
func bIconv(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var to, text string
	var from string
	var hasFrom bool
	r.StartOverload()
	r.RequiredString(&to)
	r.RequiredString(&text)
	r.OptionalString(&from, &hasFrom)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	if !hasFrom {
		from = "UTF-8"
	}
	srcEnc, err := lookupEncoding(from)
	if err != nil {
		return value.Value{}, err
	}
	dstEnc, err := lookupEncoding(to)
	if err != nil {
		return value.Value{}, err
	}
	decoded, _, err := transform.String(srcEnc.NewDecoder(), text)
	if err != nil {
		return value.Value{}, errors.New(errors.ArgumentError, "std.string.iconv: invalid %s sequence at byte offset %d", from, badOffset(srcEnc, text))
	}
	out, _, err := transform.String(dstEnc.NewEncoder(), decoded)
	if err != nil {
		return value.Value{}, errors.New(errors.ArgumentError, "std.string.iconv: cannot represent input in %s", to)
	}
	return value.Str(out), nil
}

func badOffset(enc encoding.Encoding, text string) int {
	for i := 1; i <= len(text); i++ {
		if _, _, err := transform.String(enc.NewDecoder(), text[:i]); err != nil {
			return i - 1
		}
	}
	return len(text)
}
