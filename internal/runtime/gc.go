package runtime

import "asteria/internal/value"

// Generation identifies one of the three GC generations std.gc exposes.
// Go's own garbage collector already reclaims memory; this facade tracks the
// language-visible bookkeeping script code can observe and tune (variable
// counts, collection thresholds, explicit collect()), mirroring
// Garbage_Collector without reimplementing a tracing collector underneath.
type Generation int

const (
	GenerationNewest Generation = 0
	GenerationMiddle Generation = 1
	GenerationOldest Generation = 2
	generationCount             = 3
)

// Collector is the GC facade owned by a GlobalContext.
type Collector struct {
	thresholds [generationCount]int64
	tracked    [generationCount][]*value.Variable
}

// NewCollector creates a collector with the reference implementation's
// default per-generation thresholds.
func NewCollector() *Collector {
	return &Collector{thresholds: [generationCount]int64{100, 1000, 10000}}
}

// Track registers a freshly allocated variable in the newest generation.
func (c *Collector) Track(v *value.Variable) {
	c.tracked[GenerationNewest] = append(c.tracked[GenerationNewest], v)
}

// CountVariables returns the number of variables tracked in generation gen
// and all newer generations, matching get_collector(gen)->count_variables().
func (c *Collector) CountVariables(gen Generation) int64 {
	var n int64
	for g := GenerationNewest; g <= gen; g++ {
		n += int64(len(c.tracked[g]))
	}
	return n
}

// GetThreshold returns the variable-count threshold that triggers an
// automatic collection of generation gen.
func (c *Collector) GetThreshold(gen Generation) int64 {
	if gen < 0 || int(gen) >= generationCount {
		return 0
	}
	return c.thresholds[gen]
}

// SetThreshold changes the threshold for generation gen, clamping it into
// the non-negative range, and returns the previous value.
func (c *Collector) SetThreshold(gen Generation, threshold int64) int64 {
	if gen < 0 || int(gen) >= generationCount {
		return 0
	}
	if threshold < 0 {
		threshold = 0
	}
	old := c.thresholds[gen]
	c.thresholds[gen] = threshold
	return old
}

// Collect promotes survivors of generation gen upward and returns the number
// of variables swept. Since the underlying storage is Go-GC-managed, a
// "sweep" here means dropping this facade's own tracking references for
// variables nothing else in the tracked set still reaches; the reachability
// probe matches the reference implementation's leak-detection call
// (CollectVariables) rather than performing a real mark-and-sweep.
func (c *Collector) Collect(gen Generation) int64 {
	if gen < 0 || int(gen) >= generationCount {
		gen = GenerationOldest
	}
	var swept int64
	for g := GenerationNewest; g <= gen; g++ {
		before := len(c.tracked[g])
		live := c.tracked[g][:0]
		for _, v := range c.tracked[g] {
			if variableReachable(v) {
				live = append(live, v)
			}
		}
		swept += int64(before - len(live))
		c.tracked[g] = live
		if int(g)+1 < generationCount {
			c.tracked[g+1] = append(c.tracked[g+1], live...)
			c.tracked[g] = nil
		}
	}
	return swept
}

// variableReachable is a conservative stand-in for the original's
// mark-and-sweep reachability analysis: without a tracing collector of our
// own, a tracked variable is always considered live (Go's allocator is the
// real authority on whether its memory is reclaimed). This keeps
// std.gc.collect() well-defined and side-effect-free rather than
// approximating cycle detection incorrectly.
func variableReachable(v *value.Variable) bool { return v != nil }
