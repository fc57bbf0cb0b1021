// Package array implements std.array: slicing, the predicate-driven search
// family, a stable bottom-up merge sort, binary search over an ordered
// array, shuffling, rotation, and object/array conversions. The merge sort
// and shuffle are ports of asteria/library/array.cpp, generalized from C++
// iterator pairs to Go slice index pairs.
package array

import (
	"asteria/internal/argreader"
	"asteria/internal/binder"
	"asteria/internal/errors"
	"asteria/internal/runtime"
	"asteria/internal/value"
)

func init() {
	runtime.RegisterStdModule(runtime.APIVersion0001_0000, "array", createBindings)
}

func bind(name string, target binder.Target) value.Value {
	return value.FromFunction(binder.New(name, "internal/stdlib/array/array.go", 0, target))
}

func createBindings(exports *value.Object, maxAPI runtime.APIVersion) {
	exports.Set("slice", bind("std.array.slice", bSlice))
	exports.Set("replace_slice", bind("std.array.replace_slice", bReplaceSlice))
	exports.Set("find", bind("std.array.find", makeFindBinding("std.array.find", findForward, false)))
	exports.Set("rfind", bind("std.array.rfind", makeFindBinding("std.array.rfind", findBackward, false)))
	exports.Set("find_not", bind("std.array.find_not", makeFindBinding("std.array.find_not", findForward, true)))
	exports.Set("rfind_not", bind("std.array.rfind_not", makeFindBinding("std.array.rfind_not", findBackward, true)))
	exports.Set("count", bind("std.array.count", makeCountBinding("std.array.count", false)))
	exports.Set("count_not", bind("std.array.count_not", makeCountBinding("std.array.count_not", true)))
	exports.Set("exclude", bind("std.array.exclude", makeExcludeBinding("std.array.exclude", false)))
	exports.Set("exclude_not", bind("std.array.exclude_not", makeExcludeBinding("std.array.exclude_not", true)))
	exports.Set("is_sorted", bind("std.array.is_sorted", bIsSorted))
	exports.Set("lower_bound", bind("std.array.lower_bound", bLowerBound))
	exports.Set("upper_bound", bind("std.array.upper_bound", bUpperBound))
	exports.Set("equal_range", bind("std.array.equal_range", bEqualRange))
	exports.Set("binary_search", bind("std.array.binary_search", bBinarySearch))
	exports.Set("sort", bind("std.array.sort", bSort))
	exports.Set("usort", bind("std.array.usort", bUsort))
	exports.Set("ksort", bind("std.array.ksort", bKsort))
	exports.Set("max_of", bind("std.array.max_of", bMaxOf))
	exports.Set("min_of", bind("std.array.min_of", bMinOf))
	exports.Set("shuffle", bind("std.array.shuffle", bShuffle))
	exports.Set("rotate", bind("std.array.rotate", bRotate))
	exports.Set("copy_keys", bind("std.array.copy_keys", bCopyKeys))
	exports.Set("copy_values", bind("std.array.copy_values", bCopyValues))
}

// --- slicing -----------------------------------------------------------

// sliceRange resolves (from, length) against a length n the way
// std::string::substr-like do_slice does: negative from counts from the
// end, out-of-range clamps to an empty range, missing length means "to end".
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
			// Wrapped index lands before the beginning.
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
	var arr *value.Array
	var from int64
	var length int64
	var hasLength bool
	r.StartOverload()
	r.RequiredArray(&arr)
	r.RequiredInteger(&from)
	r.OptionalInteger(&length, &hasLength)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	var lp *int64
	if hasLength {
		lp = &length
	}
	lo, hi := sliceRange(arr.Len(), from, lp)
	out := make([]value.Value, 0, hi-lo)
	for i := lo; i < hi; i++ {
		out = append(out, arr.At(i))
	}
	return value.FromArray(value.NewArrayFrom(out)), nil
}

func bReplaceSlice(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var data, rep *value.Array
	var from int64
	var length, rfrom, rlength int64
	var hasLength, hasRfrom, hasRlength bool
	r.StartOverload()
	r.RequiredArray(&data)
	r.RequiredInteger(&from)
	r.SaveState(0)
	r.RequiredArray(&rep)
	r.OptionalInteger(&rfrom, &hasRfrom)
	r.OptionalInteger(&rlength, &hasRlength)
	if !r.EndOverload() {
		// The longer form slots a length between from and the replacement.
		r.LoadState(0)
		r.OptionalInteger(&length, &hasLength)
		r.RequiredArray(&rep)
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
	lo, hi := sliceRange(data.Len(), from, lp)
	rlo, rhi := sliceRange(rep.Len(), rf, rlp)

	out := make([]value.Value, 0, lo+(rhi-rlo)+(data.Len()-hi))
	for i := 0; i < lo; i++ {
		out = append(out, data.At(i))
	}
	for i := rlo; i < rhi; i++ {
		out = append(out, rep.At(i))
	}
	for i := hi; i < data.Len(); i++ {
		out = append(out, data.At(i))
	}
	return value.FromArray(value.NewArrayFrom(out)), nil
}

// --- predicate matching -------------------------------------------------

func matches(global value.GlobalContext, target value.Value, elem value.Value) (bool, error) {
	if target.IsFunction() {
		fn := target.MustFunction()
		result, err := invoke1(global, fn, elem)
		if err != nil {
			return false, err
		}
		return result.Test(), nil
	}
	cmp := elem.ComparePartial(target)
	if cmp == value.CompareUnordered {
		return false, nil
	}
	return cmp == value.CompareEqual, nil
}

func findForward(global value.GlobalContext, arr *value.Array, lo, hi int, target value.Value, invert bool) (int, error) {
	for i := lo; i < hi; i++ {
		m, err := matches(global, target, arr.At(i))
		if err != nil {
			return -1, err
		}
		if m != invert {
			return i, nil
		}
	}
	return -1, nil
}

func findBackward(global value.GlobalContext, arr *value.Array, lo, hi int, target value.Value, invert bool) (int, error) {
	for i := hi - 1; i >= lo; i-- {
		m, err := matches(global, target, arr.At(i))
		if err != nil {
			return -1, err
		}
		if m != invert {
			return i, nil
		}
	}
	return -1, nil
}

func makeFindBinding(name string, search func(value.GlobalContext, *value.Array, int, int, value.Value, bool) (int, error), invert bool) binder.Target {
	return func(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
		var arr *value.Array
		var from int64
		var length int64
		var target value.Value

		finish := func(lo, hi int) (value.Value, error) {
			idx, err := search(global, arr, lo, hi, target, invert)
			if err != nil {
				return value.Value{}, err
			}
			if idx < 0 {
				return value.Null(), nil
			}
			return value.Int(int64(idx)), nil
		}

		r.StartOverload()
		r.RequiredArray(&arr)
		r.RequiredValue(&target)
		if r.EndOverload() {
			return finish(0, arr.Len())
		}

		r.StartOverload()
		r.RequiredArray(&arr)
		r.RequiredInteger(&from)
		r.RequiredValue(&target)
		if r.EndOverload() {
			lo, hi := sliceRange(arr.Len(), from, nil)
			return finish(lo, hi)
		}

		r.StartOverload()
		r.RequiredArray(&arr)
		r.RequiredInteger(&from)
		r.RequiredInteger(&length)
		r.RequiredValue(&target)
		if !r.EndOverload() {
			return value.Value{}, r.ThrowNoMatchingFunctionCall()
		}
		lo, hi := sliceRange(arr.Len(), from, &length)
		return finish(lo, hi)
	}
}

func makeCountBinding(name string, invert bool) binder.Target {
	return func(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
		var arr *value.Array
		var target value.Value
		r.StartOverload()
		r.RequiredArray(&arr)
		r.RequiredValue(&target)
		if !r.EndOverload() {
			return value.Value{}, r.ThrowNoMatchingFunctionCall()
		}
		var n int64
		for i := 0; i < arr.Len(); i++ {
			m, err := matches(global, target, arr.At(i))
			if err != nil {
				return value.Value{}, err
			}
			if m != invert {
				n++
			}
		}
		return value.Int(n), nil
	}
}

func makeExcludeBinding(name string, invert bool) binder.Target {
	return func(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
		var arr *value.Array
		var target value.Value
		r.StartOverload()
		r.RequiredArray(&arr)
		r.RequiredValue(&target)
		if !r.EndOverload() {
			return value.Value{}, r.ThrowNoMatchingFunctionCall()
		}
		out := make([]value.Value, 0, arr.Len())
		for i := 0; i < arr.Len(); i++ {
			m, err := matches(global, target, arr.At(i))
			if err != nil {
				return value.Value{}, err
			}
			if m == invert {
				out = append(out, arr.At(i))
			}
		}
		return value.FromArray(value.NewArrayFrom(out)), nil
	}
}

// --- ordered search ------------------------------------------------------

type comparator struct {
	global      value.GlobalContext
	fn          value.Function
	compareFunc func(a, b value.Value) (value.Compare, error)
}

func (c comparator) compare(a, b value.Value) (value.Compare, error) {
	if c.compareFunc != nil {
		return c.compareFunc(a, b)
	}
	if c.fn == nil {
		// The default ordering is the partial comparison: NaN or mismatched
		// tags surface as Unordered, which the callers turn into an error.
		return a.ComparePartial(b), nil
	}
	res, err := invoke2(c.global, c.fn, a, b)
	if err != nil {
		return value.CompareUnordered, err
	}
	i, err := res.AsInteger()
	if err != nil {
		return value.CompareUnordered, errors.New(errors.TypeMismatch, "comparator must return an integer")
	}
	switch {
	case i < 0:
		return value.CompareLess, nil
	case i > 0:
		return value.CompareGreater, nil
	default:
		return value.CompareEqual, nil
	}
}

func optionalComparator(global value.GlobalContext, r *argreader.Reader) comparator {
	var fn value.Function
	r.OptionalFunction(&fn)
	return comparator{global: global, fn: fn}
}

func bIsSorted(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var arr *value.Array
	r.StartOverload()
	r.RequiredArray(&arr)
	cmp := optionalComparator(global, r)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	for i := 1; i < arr.Len(); i++ {
		c, err := cmp.compare(arr.At(i-1), arr.At(i))
		if err != nil {
			return value.Value{}, err
		}
		if c == value.CompareGreater || c == value.CompareUnordered {
			return value.Bool(false), nil
		}
	}
	return value.Bool(true), nil
}

// lowerBound returns the first index i such that arr[i] >= target.
func lowerBound(cmp comparator, arr *value.Array, target value.Value) (int, error) {
	lo, hi := 0, arr.Len()
	for lo < hi {
		mid := (lo + hi) / 2
		c, err := cmp.compare(arr.At(mid), target)
		if err != nil {
			return 0, err
		}
		if c == value.CompareLess {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, nil
}

// upperBound returns the first index i such that arr[i] > target.
func upperBound(cmp comparator, arr *value.Array, target value.Value) (int, error) {
	lo, hi := 0, arr.Len()
	for lo < hi {
		mid := (lo + hi) / 2
		c, err := cmp.compare(target, arr.At(mid))
		if err != nil {
			return 0, err
		}
		if c == value.CompareLess {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo, nil
}

func bLowerBound(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var arr *value.Array
	var target value.Value
	r.StartOverload()
	r.RequiredArray(&arr)
	r.RequiredValue(&target)
	cmp := optionalComparator(global, r)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	idx, err := lowerBound(cmp, arr, target)
	if err != nil {
		return value.Value{}, err
	}
	return value.Int(int64(idx)), nil
}

func bUpperBound(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var arr *value.Array
	var target value.Value
	r.StartOverload()
	r.RequiredArray(&arr)
	r.RequiredValue(&target)
	cmp := optionalComparator(global, r)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	idx, err := upperBound(cmp, arr, target)
	if err != nil {
		return value.Value{}, err
	}
	return value.Int(int64(idx)), nil
}

func bEqualRange(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var arr *value.Array
	var target value.Value
	r.StartOverload()
	r.RequiredArray(&arr)
	r.RequiredValue(&target)
	cmp := optionalComparator(global, r)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	lo, err := lowerBound(cmp, arr, target)
	if err != nil {
		return value.Value{}, err
	}
	hi, err := upperBound(cmp, arr, target)
	if err != nil {
		return value.Value{}, err
	}
	out := value.NewArray()
	out.Append(value.Int(int64(lo)))
	out.Append(value.Int(int64(hi)))
	return value.FromArray(out), nil
}

func bBinarySearch(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var arr *value.Array
	var target value.Value
	r.StartOverload()
	r.RequiredArray(&arr)
	r.RequiredValue(&target)
	cmp := optionalComparator(global, r)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	idx, err := lowerBound(cmp, arr, target)
	if err != nil {
		return value.Value{}, err
	}
	if idx >= arr.Len() {
		return value.Null(), nil
	}
	c, err := cmp.compare(arr.At(idx), target)
	if err != nil {
		return value.Value{}, err
	}
	if c != value.CompareEqual {
		return value.Null(), nil
	}
	return value.Int(int64(idx)), nil
}

// --- sort ----------------------------------------------------------------

// mergeBlocks is the Go counterpart of do_merge_blocks: merge adjacent
// blocks of bsize elements from input into output, optionally collapsing
// adjacent equal elements when unique is set. It returns the number of
// elements written.
func mergeBlocks(cmp comparator, output, input []value.Value, unique bool, bsize int) (int, error) {
	bout := 0
	emit := func(elem value.Value) error {
		if unique && bout > 0 {
			c, err := cmp.compare(output[bout-1], elem)
			if err != nil {
				return err
			}
			if c == value.CompareUnordered {
				return errors.New(errors.OrderError, "elements not comparable")
			}
			if c == value.CompareEqual {
				return nil
			}
		}
		output[bout] = elem
		bout++
		return nil
	}

	n := len(input)
	bin := 0
	for n-bin > bsize {
		b0, e0 := bin, bin+bsize
		b1 := e0
		rem := n - b1
		blen := bsize
		if rem < blen {
			blen = rem
		}
		e1 := b1 + blen
		bin = e1

		i0, i1 := b0, b1
		var tb int
		for {
			c, err := cmp.compare(input[i0], input[i1])
			if err != nil {
				return 0, err
			}
			if c == value.CompareUnordered {
				return 0, errors.New(errors.OrderError, "elements not comparable (operands were %v and %v)", input[i0], input[i1])
			}
			if c == value.CompareGreater {
				tb = 1
			} else {
				tb = 0
			}
			var picked value.Value
			if tb == 0 {
				picked = input[i0]
				i0++
			} else {
				picked = input[i1]
				i1++
			}
			if err := emit(picked); err != nil {
				return 0, err
			}
			if tb == 0 {
				if i0 == e0 {
					break
				}
			} else {
				if i1 == e1 {
					break
				}
			}
		}
		if tb == 0 {
			for i1 < e1 {
				if err := emit(input[i1]); err != nil {
					return 0, err
				}
				i1++
			}
		} else {
			for i0 < e0 {
				if err := emit(input[i0]); err != nil {
					return 0, err
				}
				i0++
			}
		}
	}
	for bin < n {
		if err := emit(input[bin]); err != nil {
			return 0, err
		}
		bin++
	}
	return bout, nil
}

func stableSort(cmp comparator, data []value.Value, unique bool) ([]value.Value, error) {
	n := len(data)
	if n < 2 {
		out := make([]value.Value, n)
		copy(out, data)
		return out, nil
	}
	a := make([]value.Value, n)
	copy(a, data)
	b := make([]value.Value, n)

	src, dst := a, b
	for bsize := 1; bsize < n; bsize *= 2 {
		isFinal := bsize*2 >= n
		written, err := mergeBlocks(cmp, dst, src, isFinal && unique, bsize)
		if err != nil {
			return nil, err
		}
		dst = dst[:cap(dst)]
		src, dst = dst[:written], src
		if isFinal {
			return src[:written], nil
		}
	}
	return src, nil
}

func bSort(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var arr *value.Array
	r.StartOverload()
	r.RequiredArray(&arr)
	cmp := optionalComparator(global, r)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	out, err := stableSort(cmp, arr.Elements(), false)
	if err != nil {
		return value.Value{}, err
	}
	return value.FromArray(value.NewArrayFrom(out)), nil
}

func bUsort(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var arr *value.Array
	r.StartOverload()
	r.RequiredArray(&arr)
	cmp := optionalComparator(global, r)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	out, err := stableSort(cmp, arr.Elements(), true)
	if err != nil {
		return value.Value{}, err
	}
	return value.FromArray(value.NewArrayFrom(out)), nil
}

func bKsort(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var obj *value.Object
	r.StartOverload()
	r.RequiredObject(&obj)
	cmp := optionalComparator(global, r)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	keys := obj.Keys()
	pairs := make([]value.Value, len(keys))
	for i, k := range keys {
		v, _ := obj.Get(k)
		pairs[i] = value.FromArray(value.NewArrayFrom([]value.Value{value.Str(k), v}))
	}
	sorted, err := stableSort(wrapKeyComparator(cmp), pairs, false)
	if err != nil {
		return value.Value{}, err
	}
	return value.FromArray(value.NewArrayFrom(sorted)), nil
}

// wrapKeyComparator adapts a comparator over [key, value] pairs to compare
// by the key element only, the "default" ordering being plain string order.
func wrapKeyComparator(base comparator) comparator {
	if base.fn == nil {
		return comparator{compareFunc: func(a, b value.Value) (value.Compare, error) {
			return a.MustArray().At(0).CompareTotal(b.MustArray().At(0)), nil
		}}
	}
	inner := base
	return comparator{compareFunc: func(a, b value.Value) (value.Compare, error) {
		return inner.compare(a.MustArray().At(0), b.MustArray().At(0))
	}}
}

func bMaxOf(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var arr *value.Array
	r.StartOverload()
	r.RequiredArray(&arr)
	cmp := optionalComparator(global, r)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	var best value.Value
	found := false
	for i := 0; i < arr.Len(); i++ {
		v := arr.At(i)
		if v.IsNull() {
			continue
		}
		if !found {
			best, found = v, true
			continue
		}
		c, err := cmp.compare(v, best)
		if err != nil {
			return value.Value{}, err
		}
		if c == value.CompareUnordered {
			return value.Value{}, errors.New(errors.OrderError, "elements not comparable")
		}
		if c == value.CompareGreater {
			best = v
		}
	}
	if !found {
		return value.Null(), nil
	}
	return best, nil
}

func bMinOf(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var arr *value.Array
	r.StartOverload()
	r.RequiredArray(&arr)
	cmp := optionalComparator(global, r)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	var best value.Value
	found := false
	for i := 0; i < arr.Len(); i++ {
		v := arr.At(i)
		if v.IsNull() {
			continue
		}
		if !found {
			best, found = v, true
			continue
		}
		c, err := cmp.compare(v, best)
		if err != nil {
			return value.Value{}, err
		}
		if c == value.CompareUnordered {
			return value.Value{}, errors.New(errors.OrderError, "elements not comparable")
		}
		if c == value.CompareLess {
			best = v
		}
	}
	if !found {
		return value.Null(), nil
	}
	return best, nil
}

// --- shuffle / rotate ------------------------------------------------------

// drand48 state, used by shuffle for bit-exact compatibility with the
// reference implementation's seeding contract.
type drand48 struct{ state uint64 }

func newDrand48(seed int64) *drand48 {
	return &drand48{state: (uint64(seed) << 16) & 0xFFFFFFFFFFFF | 0x330E}
}

func (d *drand48) next() uint32 {
	d.state = (d.state*0x5DEECE66D + 0xB) & 0xFFFFFFFFFFFF
	return uint32(d.state >> 17)
}

func bShuffle(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var arr *value.Array
	var seed int64
	var hasSeed bool
	r.StartOverload()
	r.RequiredArray(&arr)
	r.OptionalInteger(&seed, &hasSeed)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	if !hasSeed {
		if g, ok := global.(*runtime.Global); ok {
			seed = int64(g.PRNG().Bump())
		}
	}
	out := arr.Clone().Elements()
	gen := newDrand48(seed)
	for i := len(out) - 1; i > 0; i-- {
		j := int(gen.next()) % (i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return value.FromArray(value.NewArrayFrom(out)), nil
}

func bRotate(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var arr *value.Array
	var shift int64
	r.StartOverload()
	r.RequiredArray(&arr)
	r.RequiredInteger(&shift)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	n := arr.Len()
	out := make([]value.Value, n)
	if n == 0 {
		return value.FromArray(value.NewArrayFrom(out)), nil
	}
	// Positive shift moves elements toward the end; negative rotates left.
	s := ((shift % int64(n)) + int64(n)) % int64(n)
	for i := 0; i < n; i++ {
		out[(i+int(s))%n] = arr.At(i)
	}
	return value.FromArray(value.NewArrayFrom(out)), nil
}

func bCopyKeys(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var obj *value.Object
	r.StartOverload()
	r.RequiredObject(&obj)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	keys := obj.Keys()
	out := make([]value.Value, len(keys))
	for i, k := range keys {
		out[i] = value.Str(k)
	}
	return value.FromArray(value.NewArrayFrom(out)), nil
}

func bCopyValues(global value.GlobalContext, self *value.Reference, r *argreader.Reader) (value.Value, error) {
	var obj *value.Object
	r.StartOverload()
	r.RequiredObject(&obj)
	if !r.EndOverload() {
		return value.Value{}, r.ThrowNoMatchingFunctionCall()
	}
	keys := obj.Keys()
	out := make([]value.Value, len(keys))
	for i, k := range keys {
		v, _ := obj.Get(k)
		out[i] = v
	}
	return value.FromArray(value.NewArrayFrom(out)), nil
}

// --- calling back into script functions -----------------------------------

func invoke1(global value.GlobalContext, fn value.Function, a value.Value) (value.Value, error) {
	var stack value.Stack
	stack.Push().SetTemporary(a)
	var self value.Reference
	if err := fn.Invoke(&self, global, &stack); err != nil {
		return value.Value{}, err
	}
	return self.DereferenceReadonly()
}

func invoke2(global value.GlobalContext, fn value.Function, a, b value.Value) (value.Value, error) {
	var stack value.Stack
	stack.Push().SetTemporary(a)
	stack.Push().SetTemporary(b)
	var self value.Reference
	if err := fn.Invoke(&self, global, &stack); err != nil {
		return value.Value{}, err
	}
	return self.DereferenceReadonly()
}
