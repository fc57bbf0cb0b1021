package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Print writes a human-readable, non-round-trippable rendering of v, the
// form script code gets from string interpolation and std.debug.print: a
// bare scalar, or a container's elements joined the way a REPL echoes a
// result.
func (v Value) Print() string {
	var sb strings.Builder
	v.print(&sb)
	return sb.String()
}

func (v Value) print(sb *strings.Builder) {
	switch v.tag {
	case TNull:
		sb.WriteString("null")
	case TBoolean:
		sb.WriteString(strconv.FormatBool(v.b))
	case TInteger:
		sb.WriteString(strconv.FormatInt(v.i, 10))
	case TReal:
		sb.WriteString(formatReal(v.r))
	case TString:
		sb.WriteString(v.s)
	case TOpaque:
		if v.o != nil {
			sb.WriteString(v.o.Describe())
		} else {
			sb.WriteString("<opaque>")
		}
	case TFunction:
		if v.f != nil {
			sb.WriteString(v.f.Describe())
		} else {
			sb.WriteString("<function>")
		}
	case TArray:
		sb.WriteByte('[')
		for i, e := range v.a.Elements() {
			if i > 0 {
				sb.WriteString(",")
			}
			e.print(sb)
		}
		sb.WriteByte(']')
	case TObject:
		sb.WriteByte('{')
		first := true
		v.ob.Range(func(k string, e Value) bool {
			if !first {
				sb.WriteString(",")
			}
			first = false
			sb.WriteString(k)
			sb.WriteString(" = ")
			e.print(sb)
			return true
		})
		sb.WriteByte('}')
	}
}

func formatReal(r float64) string {
	return strconv.FormatFloat(r, 'g', -1, 64)
}

// Dump writes a structured, possibly multi-line rendering that distinguishes
// types that Print elides (quoted strings, nulls inside arrays, the
// difference between an empty array and an empty object). indent <= 0
// produces a single compact line; indent > 0 pretty-prints with that many
// spaces per nesting level.
func (v Value) Dump(indent int) string {
	var sb strings.Builder
	v.dump(&sb, indent, 0)
	return sb.String()
}

func dumpNewline(sb *strings.Builder, indent, depth int) {
	if indent <= 0 {
		return
	}
	sb.WriteByte('\n')
	sb.WriteString(strings.Repeat(" ", indent*depth))
}

func (v Value) dump(sb *strings.Builder, indent, depth int) {
	switch v.tag {
	case TNull:
		sb.WriteString("null")
	case TBoolean:
		sb.WriteString(strconv.FormatBool(v.b))
	case TInteger:
		sb.WriteString(strconv.FormatInt(v.i, 10))
	case TReal:
		sb.WriteString(formatReal(v.r))
	case TString:
		sb.WriteString(strconv.Quote(v.s))
	case TOpaque:
		if v.o != nil {
			fmt.Fprintf(sb, "<opaque: %s>", v.o.Describe())
		} else {
			sb.WriteString("<opaque>")
		}
	case TFunction:
		if v.f != nil {
			fmt.Fprintf(sb, "<function: %s>", v.f.Describe())
		} else {
			sb.WriteString("<function>")
		}
	case TArray:
		elems := v.a.Elements()
		if len(elems) == 0 {
			sb.WriteString("[]")
			return
		}
		sb.WriteByte('[')
		for i, e := range elems {
			if i > 0 {
				sb.WriteByte(',')
			}
			dumpNewline(sb, indent, depth+1)
			e.dump(sb, indent, depth+1)
		}
		dumpNewline(sb, indent, depth)
		sb.WriteByte(']')
	case TObject:
		keys := v.ob.Keys()
		if len(keys) == 0 {
			sb.WriteString("{}")
			return
		}
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			dumpNewline(sb, indent, depth+1)
			sb.WriteString(strconv.Quote(k))
			sb.WriteString(": ")
			e, _ := v.ob.Get(k)
			e.dump(sb, indent, depth+1)
		}
		dumpNewline(sb, indent, depth)
		sb.WriteByte('}')
	}
}

// CollectVariables traverses into array/object/opaque members to enumerate
// reachable variable cells, the operation the GC facade uses to discover
// whether a cycle is otherwise unreachable. visit is handed to each opaque
// member's own CollectVariables; seen records the containers already walked
// so shared and cyclic containers are entered once. The walk recurses into
// nested arrays and objects.
func (v Value) CollectVariables(visit func(*Variable), seen map[any]bool) {
	switch v.tag {
	case TArray:
		if v.a == nil || seen[v.a] {
			return
		}
		seen[v.a] = true
		for _, e := range v.a.Elements() {
			e.CollectVariables(visit, seen)
		}
	case TObject:
		if v.ob == nil || seen[v.ob] {
			return
		}
		seen[v.ob] = true
		v.ob.Range(func(_ string, e Value) bool {
			e.CollectVariables(visit, seen)
			return true
		})
	case TOpaque:
		if v.o == nil || seen[v.o] {
			return
		}
		seen[v.o] = true
		v.o.CollectVariables(visit)
	}
}
