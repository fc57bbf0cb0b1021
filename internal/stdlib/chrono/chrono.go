// Package chrono implements std.chrono: wall-clock and steady-clock
// readings and a fixed-grammar timestamp formatter/parser
// ("YYYY-MM-DD HH:MM:SS[.mmm][ (UTC|+-HHMM)]") with saturating overflow.
// A free-standing strftime helper covers POSIX-style layout strings.
package chrono

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"

	"asteria/internal/argreader"
	"asteria/internal/binder"
	"asteria/internal/errors"
	"asteria/internal/runtime"
	"asteria/internal/value"
)

func init() {
	runtime.RegisterStdModule(runtime.APIVersion0001_0000, "chrono", createBindings)
}

func bind(name string, target binder.Target) value.Value {
	return value.FromFunction(binder.New(name, "internal/stdlib/chrono/chrono.go", 0, target))
}

func createBindings(exports *value.Object, maxAPI runtime.APIVersion) {
	exports.Set("now", bind("std.chrono.now", bNow))
	exports.Set("steady_now", bind("std.chrono.steady_now", bSteadyNow))
	exports.Set("hires_now", bind("std.chrono.hires_now", bHiresNow))
	exports.Set("local_now", bind("std.chrono.local_now", bLocalNow))
	exports.Set("utc_now", bind("std.chrono.utc_now", bUTCNow))
	exports.Set("format", bind("std.chrono.format", bFormat))
	exports.Set("parse", bind("std.chrono.parse", bParse))
	exports.Set("strftime", bind("std.chrono.strftime", bStrftime))
}

// saturateInt64 clamps a float64 millisecond count into the int64
// domain instead of overflowing, matching the original's explicit
// saturating-cast behavior for out-of-range timestamps.
func saturateInt64(f float64) int64 {
	if math.IsNaN(f) {
		return 0
	}
	if f >= math.MaxInt64 {
		return math.MaxInt64
	}
	if f <= math.MinInt64 {
		return math.MinInt64
	}
	return int64(f)
}

func bNow(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	r.StartOverload()
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	return value.Int(time.Now().UnixMilli()), nil
}

// steadyOrigin anchors the monotonic clocks. Both carry a constant offset
// so their readings are never mistaken for realtime milliseconds.
var steadyOrigin = time.Now()

const (
	hiresOffsetMillis  = 123456789
	steadyOffsetMillis = 987654321
)

func bSteadyNow(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	r.StartOverload()
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	return value.Int(time.Since(steadyOrigin).Milliseconds() + steadyOffsetMillis), nil
}

func bHiresNow(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	r.StartOverload()
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	return value.Real(float64(time.Since(steadyOrigin).Nanoseconds())/1e6 + hiresOffsetMillis), nil
}

func bLocalNow(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	r.StartOverload()
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	return formatTime(time.Now().Local(), false), nil
}

func bUTCNow(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	r.StartOverload()
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	return formatTime(time.Now().UTC(), true), nil
}

func formatTime(t time.Time, utc bool) value.Value {
	ms := t.Nanosecond() / 1e6
	base := t.Format("2006-01-02 15:04:05")
	if ms != 0 {
		base += fmt.Sprintf(".%03d", ms)
	}
	if utc {
		base += " UTC"
	} else {
		_, offset := t.Zone()
		sign := byte('+')
		if offset < 0 {
			sign = '-'
			offset = -offset
		}
		base += fmt.Sprintf(" %c%02d%02d", sign, offset/3600, (offset%3600)/60)
	}
	return value.Str(base)
}

func bFormat(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var ms int64
	var utc, hasUTC bool
	r.StartOverload()
	r.RequiredInteger(&ms)
	r.OptionalBoolean(&utc, &hasUTC)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	t := time.UnixMilli(ms)
	if utc {
		t = t.UTC()
	} else {
		t = t.Local()
	}
	return formatTime(t, utc), nil
}

// bParse accepts "YYYY-MM-DD HH:MM:SS[.mmm][ (UTC|+-HHMM)]" and returns the
// millisecond Unix timestamp, saturating to the int64 range instead of
// erroring on overflow.
func bParse(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var text string
	r.StartOverload()
	r.RequiredString(&text)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	text = strings.TrimSpace(text)
	if len(text) < 19 {
		return value.Value{}, errors.New(errors.ParseError, "std.chrono.parse: %q is too short to be a timestamp", text)
	}
	datePart := text[:19]
	rest := strings.TrimSpace(text[19:])

	var millis int
	if strings.HasPrefix(rest, ".") {
		j := 1
		for j < len(rest) && rest[j] >= '0' && rest[j] <= '9' {
			j++
		}
		frac := rest[1:j]
		for len(frac) < 3 {
			frac += "0"
		}
		if len(frac) > 3 {
			frac = frac[:3]
		}
		v, _ := strconv.Atoi(frac)
		millis = v
		rest = strings.TrimSpace(rest[j:])
	}

	loc := time.UTC
	offsetSeconds := 0
	haveOffset := false
	switch {
	case rest == "UTC" || rest == "GMT":
	case rest == "":
		// No timezone suffix means the timestamp is in local time.
		loc = time.Local
	case len(rest) == 5 && (rest[0] == '+' || rest[0] == '-'):
		hh, err1 := strconv.Atoi(rest[1:3])
		mm, err2 := strconv.Atoi(rest[3:5])
		if err1 != nil || err2 != nil {
			return value.Value{}, errors.New(errors.ParseError, "std.chrono.parse: invalid offset %q", rest)
		}
		offsetSeconds = hh*3600 + mm*60
		if rest[0] == '-' {
			offsetSeconds = -offsetSeconds
		}
		haveOffset = true
	default:
		return value.Value{}, errors.New(errors.ParseError, "std.chrono.parse: unrecognized timezone suffix %q", rest)
	}

	t, err := time.ParseInLocation("2006-01-02 15:04:05", datePart, loc)
	if err != nil {
		return value.Value{}, errors.New(errors.ParseError, "std.chrono.parse: %v", err)
	}
	if haveOffset {
		t = t.Add(-time.Duration(offsetSeconds) * time.Second)
	}
	f := float64(t.Unix())*1000 + float64(millis)
	return value.Int(saturateInt64(f)), nil
}

func bStrftime(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var layout string
	var ms int64
	r.StartOverload()
	r.RequiredString(&layout)
	r.RequiredInteger(&ms)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	return value.Str(strftime.Format(layout, time.UnixMilli(ms).UTC())), nil
}
