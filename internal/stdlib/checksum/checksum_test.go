package checksum

import (
	"testing"

	"asteria/internal/argreader"
	"asteria/internal/value"
)

func findAlgo(t *testing.T, name string) algo {
	t.Helper()
	for _, a := range algos {
		if a.name == name {
			return a
		}
	}
	t.Fatalf("no such algorithm: %s", name)
	return algo{}
}

func oneshot(t *testing.T, name, data string) value.Value {
	t.Helper()
	a := findAlgo(t, name)
	var stack value.Stack
	stack.Push().SetTemporary(value.Str(data))
	r := argreader.New("std.checksum."+name, &stack)
	var self value.Reference
	v, err := makeCtorOrOneshot(a)(nil, &self, r)
	if err != nil {
		t.Fatalf("%s(%q): %v", name, data, err)
	}
	return v
}

// CRC32 of empty input is 0, CRC32 of "abcdefg" is 0x312A6AA6,
// and SHA-256 of empty input is the well-known empty-string digest.
func TestChecksumScenarioC(t *testing.T) {
	if got := oneshot(t, "crc32", ""); got.MustInteger() != 0 {
		t.Errorf("crc32(\"\") = %#x, want 0", got.MustInteger())
	}
	if got := oneshot(t, "crc32", "abcdefg"); got.MustInteger() != 0x312A6AA6 {
		t.Errorf("crc32(\"abcdefg\") = %#x, want 0x312A6AA6", got.MustInteger())
	}
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := oneshot(t, "sha256", ""); got.MustString() != want {
		t.Errorf("sha256(\"\") = %s, want %s", got.MustString(), want)
	}
}

// update; finish; update (same bytes); finish yields
// two equal digests, since finish always resets the hasher's state.
func TestHashFinishResets(t *testing.T) {
	for _, a := range algos {
		h := newHasher(a)
		h.h.Write([]byte("hello world"))
		first := h.finish()
		h.h.Write([]byte("hello world"))
		second := h.finish()
		if a.wordDigest {
			if first.MustInteger() != second.MustInteger() {
				t.Errorf("%s: finish did not reset state between calls", a.name)
			}
		} else if first.MustString() != second.MustString() {
			t.Errorf("%s: finish did not reset state between calls", a.name)
		}
	}
}

// std.checksum.<algo> must resolve both overloads the Argument Reader is
// built to dispatch: zero arguments constructs a streaming hasher, one
// string argument is the one-shot digest convenience wrapper.
func TestCtorOverloadConstructsHasher(t *testing.T) {
	a := findAlgo(t, "sha256")
	var stack value.Stack
	r := argreader.New("std.checksum.sha256", &stack)
	var self value.Reference
	v, err := makeCtorOrOneshot(a)(nil, &self, r)
	if err != nil {
		t.Fatalf("sha256(): %v", err)
	}
	o, err := v.AsOpaque()
	if err != nil {
		t.Fatalf("sha256() = %v, want an opaque hasher", v.Type())
	}
	if _, ok := o.(*hasher); !ok {
		t.Fatalf("sha256() did not return a *hasher opaque")
	}
}

func TestHasherCloneIsIndependent(t *testing.T) {
	a := findAlgo(t, "sha256")
	h := newHasher(a)
	h.h.Write([]byte("shared prefix"))
	clone := h.Clone().(*hasher)

	h.h.Write([]byte("-original"))
	clone.h.Write([]byte("-clone"))

	got := h.finish()
	gotClone := clone.finish()
	if got.MustString() == gotClone.MustString() {
		t.Error("diverging updates after Clone must produce different digests")
	}
}
