// Package zlib implements std.zlib: streaming deflate/inflate over three
// framings (raw, zlib-wrapped "deflate", gzip), following the same
// opaque-plus-free-function facade std.checksum uses for its hashers.
package zlib

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"io"

	"asteria/internal/argreader"
	"asteria/internal/binder"
	"asteria/internal/errors"
	"asteria/internal/runtime"
	"asteria/internal/value"
)

func init() {
	runtime.RegisterStdModule(runtime.APIVersion0001_0000, "zlib", createBindings)
}

func bind(name string, target binder.Target) value.Value {
	return value.FromFunction(binder.New(name, "internal/stdlib/zlib/zlib.go", 0, target))
}

func createBindings(exports *value.Object, maxAPI runtime.APIVersion) {
	exports.Set("deflator", bind("std.zlib.deflator", bNewDeflator))
	exports.Set("deflator_update", bind("std.zlib.deflator_update", bDeflatorUpdate))
	exports.Set("deflator_flush", bind("std.zlib.deflator_flush", bDeflatorFlush))
	exports.Set("deflator_finish", bind("std.zlib.deflator_finish", bDeflatorFinish))
	exports.Set("deflator_clear", bind("std.zlib.deflator_clear", bDeflatorClear))

	exports.Set("inflator", bind("std.zlib.inflator", bNewInflator))
	exports.Set("inflator_update", bind("std.zlib.inflator_update", bInflatorUpdate))
	exports.Set("inflator_flush", bind("std.zlib.inflator_flush", bInflatorFlush))
	exports.Set("inflator_finish", bind("std.zlib.inflator_finish", bInflatorFinish))
	exports.Set("inflator_clear", bind("std.zlib.inflator_clear", bInflatorClear))

	exports.Set("deflate", bind("std.zlib.deflate", bDeflateOneshot))
	exports.Set("inflate", bind("std.zlib.inflate", bInflateOneshot))
}

// framing selects which of the three wire formats a stream uses.
type framing int

const (
	framingRaw framing = iota
	framingZlib
	framingGzip
)

func parseFraming(s string) (framing, error) {
	switch s {
	case "raw":
		return framingRaw, nil
	case "deflate":
		return framingZlib, nil
	case "gzip":
		return framingGzip, nil
	default:
		return 0, errors.New(errors.ArgumentError, "unknown zlib framing %q (want raw, deflate, or gzip)", s)
	}
}

func parseLevel(level int64, has bool) (int, error) {
	if !has {
		return flate.DefaultCompression, nil
	}
	if level < 0 || level > 9 {
		return 0, errors.New(errors.RangeError, "zlib compression level must be in [0, 9]")
	}
	return int(level), nil
}

// --- deflator --------------------------------------------------------

type deflator struct {
	framing framing
	level   int
	buf     bytes.Buffer
	w       io.WriteCloser
}

func (d *deflator) Describe() string { return "std.zlib.deflator" }
func (d *deflator) Clone() value.Opaque {
	nd, _ := newDeflator(d.framing, d.level)
	return nd
}
func (d *deflator) CollectVariables(func(*value.Variable)) {}

func newDeflator(f framing, level int) (*deflator, error) {
	d := &deflator{framing: f, level: level}
	if err := d.reset(); err != nil {
		return nil, err
	}
	return d, nil
}

// reset discards buffered output and starts a fresh stream writing into this
// deflator's own buffer, so handles held by script code stay valid.
func (d *deflator) reset() error {
	d.buf.Reset()
	switch d.framing {
	case framingRaw:
		fw, err := flate.NewWriter(&d.buf, d.level)
		if err != nil {
			return errors.New(errors.CompressionError, "deflator: %v", err)
		}
		d.w = fw
	case framingZlib:
		zw, err := zlib.NewWriterLevel(&d.buf, d.level)
		if err != nil {
			return errors.New(errors.CompressionError, "deflator: %v", err)
		}
		d.w = zw
	case framingGzip:
		gw, err := gzip.NewWriterLevel(&d.buf, d.level)
		if err != nil {
			return errors.New(errors.CompressionError, "deflator: %v", err)
		}
		d.w = gw
	}
	return nil
}

func asDeflator(o value.Opaque, name string) (*deflator, error) {
	d, ok := o.(*deflator)
	if !ok {
		return nil, errors.New(errors.TypeMismatch, "%s: argument is not a deflator", name)
	}
	return d, nil
}

func bNewDeflator(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var framingText string
	var level int64
	var hasLevel bool
	r.StartOverload()
	r.RequiredString(&framingText)
	r.OptionalInteger(&level, &hasLevel)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	f, err := parseFraming(framingText)
	if err != nil {
		return value.Value{}, err
	}
	lv, err := parseLevel(level, hasLevel)
	if err != nil {
		return value.Value{}, err
	}
	d, err := newDeflator(f, lv)
	if err != nil {
		return value.Value{}, err
	}
	return value.FromOpaque(d), nil
}

func bDeflatorUpdate(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var o value.Opaque
	var data string
	r.StartOverload()
	r.RequiredOpaque(&o)
	r.RequiredString(&data)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	d, err := asDeflator(o, "std.zlib.deflator_update")
	if err != nil {
		return value.Value{}, err
	}
	if _, err := d.w.Write([]byte(data)); err != nil {
		return value.Value{}, errors.New(errors.CompressionError, "deflator_update: %v", err)
	}
	out := d.buf.String()
	d.buf.Reset()
	return value.Str(out), nil
}

func bDeflatorFlush(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var o value.Opaque
	r.StartOverload()
	r.RequiredOpaque(&o)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	d, err := asDeflator(o, "std.zlib.deflator_flush")
	if err != nil {
		return value.Value{}, err
	}
	if f, ok := d.w.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return value.Value{}, errors.New(errors.CompressionError, "deflator_flush: %v", err)
		}
	}
	out := d.buf.String()
	d.buf.Reset()
	return value.Str(out), nil
}

func bDeflatorFinish(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var o value.Opaque
	r.StartOverload()
	r.RequiredOpaque(&o)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	d, err := asDeflator(o, "std.zlib.deflator_finish")
	if err != nil {
		return value.Value{}, err
	}
	if err := d.w.Close(); err != nil {
		return value.Value{}, errors.New(errors.CompressionError, "deflator_finish: %v", err)
	}
	out := d.buf.String()
	if err := d.reset(); err != nil {
		return value.Value{}, err
	}
	return value.Str(out), nil
}

func bDeflatorClear(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var o value.Opaque
	r.StartOverload()
	r.RequiredOpaque(&o)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	d, err := asDeflator(o, "std.zlib.deflator_clear")
	if err != nil {
		return value.Value{}, err
	}
	if err := d.reset(); err != nil {
		return value.Value{}, err
	}
	return value.Null(), nil
}

// --- inflator --------------------------------------------------------

type inflator struct {
	framing framing
	pending bytes.Buffer // compressed bytes seen so far
	out     bytes.Buffer
	emitted int64 // decoded bytes already handed back across earlier drains
}

func (n *inflator) Describe() string    { return "std.zlib.inflator" }
func (n *inflator) Clone() value.Opaque { return newInflator(n.framing) }

func (n *inflator) CollectVariables(func(*value.Variable)) {}

func newInflator(f framing) *inflator { return &inflator{framing: f} }

func asInflator(o value.Opaque, name string) (*inflator, error) {
	n, ok := o.(*inflator)
	if !ok {
		return nil, errors.New(errors.TypeMismatch, "%s: argument is not an inflator", name)
	}
	return n, nil
}

func bNewInflator(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var framingText string
	r.StartOverload()
	r.RequiredString(&framingText)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	f, err := parseFraming(framingText)
	if err != nil {
		return value.Value{}, err
	}
	return value.FromOpaque(newInflator(f)), nil
}

// drain decodes whatever is decodable from the bytes buffered so far into
// n.out. compress/flate|zlib|gzip readers poison their state permanently if
// the source runs dry mid-stream, so each call replays the accumulated bytes
// through a fresh reader and skips the prefix already emitted by earlier
// drains; partial trailing input is tolerated (the read just stops) since a
// stream may still be mid update.
func (n *inflator) drain() error {
	src := bytes.NewReader(n.pending.Bytes())
	var r io.Reader
	var err error
	switch n.framing {
	case framingRaw:
		r = flate.NewReader(src)
	case framingZlib:
		r, err = zlib.NewReader(src)
	case framingGzip:
		r, err = gzip.NewReader(src)
	}
	if err != nil {
		// A short source means the header is still arriving; a malformed
		// one will never become readable.
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil
		}
		return err
	}
	skip := n.emitted
	buf := make([]byte, 4096)
	for {
		nr, rerr := r.Read(buf)
		if nr > 0 {
			chunk := buf[:nr]
			if skip > 0 {
				if int64(len(chunk)) <= skip {
					skip -= int64(len(chunk))
					chunk = nil
				} else {
					chunk = chunk[skip:]
					skip = 0
				}
			}
			if len(chunk) > 0 {
				n.out.Write(chunk)
				n.emitted += int64(len(chunk))
			}
		}
		if rerr != nil {
			if c, ok := r.(io.Closer); ok {
				_ = c.Close()
			}
			// A short source just means more update() calls are coming;
			// anything else is genuine stream corruption.
			if rerr == io.EOF || rerr == io.ErrUnexpectedEOF {
				return nil
			}
			return rerr
		}
	}
}

func bInflatorUpdate(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var o value.Opaque
	var data string
	r.StartOverload()
	r.RequiredOpaque(&o)
	r.RequiredString(&data)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	n, err := asInflator(o, "std.zlib.inflator_update")
	if err != nil {
		return value.Value{}, err
	}
	n.pending.WriteString(data)
	if err := n.drain(); err != nil {
		return value.Value{}, errors.New(errors.CompressionError, "inflator_update: %v", err)
	}
	out := n.out.String()
	n.out.Reset()
	return value.Str(out), nil
}

func bInflatorFlush(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var o value.Opaque
	r.StartOverload()
	r.RequiredOpaque(&o)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	if _, err := asInflator(o, "std.zlib.inflator_flush"); err != nil {
		return value.Value{}, err
	}
	return value.Str(""), nil
}

func bInflatorFinish(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var o value.Opaque
	r.StartOverload()
	r.RequiredOpaque(&o)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	n, err := asInflator(o, "std.zlib.inflator_finish")
	if err != nil {
		return value.Value{}, err
	}
	out := n.out.String()
	n.out.Reset()
	n.pending.Reset()
	n.emitted = 0
	return value.Str(out), nil
}

func bInflatorClear(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var o value.Opaque
	r.StartOverload()
	r.RequiredOpaque(&o)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	n, err := asInflator(o, "std.zlib.inflator_clear")
	if err != nil {
		return value.Value{}, err
	}
	n.pending.Reset()
	n.out.Reset()
	n.emitted = 0
	return value.Null(), nil
}

// --- one-shot convenience wrappers -----------------------------------

func bDeflateOneshot(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var framingText, data string
	var level int64
	var hasLevel bool
	r.StartOverload()
	r.RequiredString(&framingText)
	r.RequiredString(&data)
	r.OptionalInteger(&level, &hasLevel)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	f, err := parseFraming(framingText)
	if err != nil {
		return value.Value{}, err
	}
	lv, err := parseLevel(level, hasLevel)
	if err != nil {
		return value.Value{}, err
	}
	d, err := newDeflator(f, lv)
	if err != nil {
		return value.Value{}, err
	}
	if _, err := d.w.Write([]byte(data)); err != nil {
		return value.Value{}, errors.New(errors.CompressionError, "deflate: %v", err)
	}
	if err := d.w.Close(); err != nil {
		return value.Value{}, errors.New(errors.CompressionError, "deflate: %v", err)
	}
	return value.Str(d.buf.String()), nil
}

func bInflateOneshot(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var framingText, data string
	r.StartOverload()
	r.RequiredString(&framingText)
	r.RequiredString(&data)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	f, err := parseFraming(framingText)
	if err != nil {
		return value.Value{}, err
	}
	n := newInflator(f)
	n.pending.WriteString(data)
	if err := n.drain(); err != nil {
		return value.Value{}, errors.New(errors.CompressionError, "inflate: %v", err)
	}
	return value.Str(n.out.String()), nil
}
