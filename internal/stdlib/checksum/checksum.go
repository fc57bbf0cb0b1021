// Package checksum implements std.checksum: streaming CRC32, Adler32 and
// FNV1a32 hashers plus the MD5/SHA family, each exposed as a clonable
// opaque value with a constructor and a free-function update/finish/clear
// triplet (member-call syntax on opaques is the engine's job, not ours).
// Each algorithm also gets <algo>(data) and <algo>_file(path) one-shots.
package checksum

import (
	"bufio"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding"
	"encoding/hex"
	"hash"
	"hash/adler32"
	"hash/crc32"
	"hash/fnv"
	"os"

	"asteria/internal/argreader"
	"asteria/internal/binder"
	"asteria/internal/errors"
	"asteria/internal/runtime"
	"asteria/internal/value"
)

func init() {
	runtime.RegisterStdModule(runtime.APIVersion0001_0000, "checksum", createBindings)
}

func bind(name string, target binder.Target) value.Value {
	return value.FromFunction(binder.New(name, "internal/stdlib/checksum/checksum.go", 0, target))
}

// algo describes one hashing algorithm: how to build a fresh hash.Hash and
// how to render its Sum into the script-visible digest value.
type algo struct {
	name       string
	newHash    func() hash.Hash
	wordDigest bool // true for CRC32/Adler32/FNV1a32: unsigned 32-bit integer, not hex text
}

var algos = []algo{
	{"crc32", func() hash.Hash { return crc32.NewIEEE() }, true},
	{"adler32", func() hash.Hash { return adler32.New() }, true},
	{"fnv1a32", func() hash.Hash { return fnv.New32a() }, true},
	{"md5", func() hash.Hash { return md5.New() }, false},
	{"sha1", func() hash.Hash { return sha1.New() }, false},
	{"sha224", func() hash.Hash { return sha256.New224() }, false},
	{"sha256", func() hash.Hash { return sha256.New() }, false},
	{"sha384", func() hash.Hash { return sha512.New384() }, false},
	{"sha512", func() hash.Hash { return sha512.New() }, false},
}

func createBindings(exports *value.Object, maxAPI runtime.APIVersion) {
	for _, a := range algos {
		a := a
		exports.Set(a.name, bind("std.checksum."+a.name, makeCtorOrOneshot(a)))
		exports.Set(a.name+"_clear", bind("std.checksum."+a.name+"_clear", makeClear(a)))
		exports.Set(a.name+"_update", bind("std.checksum."+a.name+"_update", makeUpdate(a)))
		exports.Set(a.name+"_finish", bind("std.checksum."+a.name+"_finish", makeFinish(a)))
		exports.Set(a.name+"_file", bind("std.checksum."+a.name+"_file", makeFile(a)))
	}
}

// hasher is the opaque value std.checksum.<algo>() returns.
type hasher struct {
	a algo
	h hash.Hash
}

func newHasher(a algo) *hasher { return &hasher{a: a, h: a.newHash()} }

func (h *hasher) Describe() string { return "std.checksum." + h.a.name }

// Clone produces an independent hasher with identical accumulated state by
// round-tripping through encoding.BinaryMarshaler, which every hash.Hash
// implementation in this table supports; a fresh zero-state hasher would
// silently diverge from the original the moment either side is updated
// again, violating the "clones are independent" digest-equality invariant.
func (h *hasher) Clone() value.Opaque {
	clone := newHasher(h.a)
	if m, ok := h.h.(encoding.BinaryMarshaler); ok {
		if data, err := m.MarshalBinary(); err == nil {
			if u, ok := clone.h.(encoding.BinaryUnmarshaler); ok {
				_ = u.UnmarshalBinary(data)
			}
		}
	}
	return clone
}

func (h *hasher) CollectVariables(func(*value.Variable)) {}

func (h *hasher) finish() value.Value {
	sum := h.h.Sum(nil)
	h.h.Reset()
	if h.a.wordDigest {
		var u uint32
		for _, b := range sum {
			u = u<<8 | uint32(b)
		}
		return value.Int(int64(u))
	}
	return value.Str(hex.EncodeToString(sum))
}

func asHasher(v value.Opaque, name string) (*hasher, error) {
	h, ok := v.(*hasher)
	if !ok {
		return nil, errors.New(errors.TypeMismatch, "%s: argument is not a checksum hasher", name)
	}
	return h, nil
}

// makeCtorOrOneshot binds std.checksum.<algo> as two overloads resolved by
// the Argument Reader: a zero-argument overload constructs a fresh streaming
// hasher opaque, and a one-string-argument overload is the `<algo>(data)`
// convenience wrapper that hashes data whole and returns the digest.
func makeCtorOrOneshot(a algo) binder.Target {
	return func(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
		r.StartOverload()
		if r.EndOverload() {
			return value.FromOpaque(newHasher(a)), nil
		}
		var data string
		r.StartOverload()
		r.RequiredString(&data)
		if !r.EndOverload() {
			return value.Value{}, r.ThrowNoMatchingFunctionCall()
		}
		h := newHasher(a)
		_, _ = h.h.Write([]byte(data))
		return h.finish(), nil
	}
}

func makeClear(a algo) binder.Target {
	name := "std.checksum." + a.name + "_clear"
	return func(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
		var o value.Opaque
		r.StartOverload()
		r.RequiredOpaque(&o)
		if !r.EndOverload() {
			return value.Value{}, r.ThrowNoMatchingFunctionCall()
		}
		h, err := asHasher(o, name)
		if err != nil {
			return value.Value{}, err
		}
		h.h.Reset()
		return value.Null(), nil
	}
}

func makeUpdate(a algo) binder.Target {
	name := "std.checksum." + a.name + "_update"
	return func(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
		var o value.Opaque
		var data string
		r.StartOverload()
		r.RequiredOpaque(&o)
		r.RequiredString(&data)
		if !r.EndOverload() {
			return value.Value{}, r.ThrowNoMatchingFunctionCall()
		}
		h, err := asHasher(o, name)
		if err != nil {
			return value.Value{}, err
		}
		_, _ = h.h.Write([]byte(data))
		return value.Null(), nil
	}
}

func makeFinish(a algo) binder.Target {
	name := "std.checksum." + a.name + "_finish"
	return func(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
		var o value.Opaque
		r.StartOverload()
		r.RequiredOpaque(&o)
		if !r.EndOverload() {
			return value.Value{}, r.ThrowNoMatchingFunctionCall()
		}
		h, err := asHasher(o, name)
		if err != nil {
			return value.Value{}, err
		}
		return h.finish(), nil
	}
}

func makeFile(a algo) binder.Target {
	return func(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
		var path string
		r.StartOverload()
		r.RequiredString(&path)
		if !r.EndOverload() {
			return value.Value{}, r.ThrowNoMatchingFunctionCall()
		}
		f, err := os.Open(path)
		if err != nil {
			return value.Value{}, errors.New(errors.IOError, "std.checksum.%s_file: %v", a.name, err)
		}
		defer f.Close()
		h := newHasher(a)
		buf := make([]byte, 4096)
		br := bufio.NewReaderSize(f, 64*1024)
		for {
			n, rerr := br.Read(buf)
			if n > 0 {
				h.h.Write(buf[:n])
			}
			if rerr != nil {
				break
			}
		}
		return h.finish(), nil
	}
}
